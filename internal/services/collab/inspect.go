package collab

// RoomSnapshot is the full state of one room.
type RoomSnapshot struct {
	ID       string      `json:"id"`
	Code     string      `json:"code"`
	HasCode  bool        `json:"has_code"`
	Settings Settings    `json:"settings"`
	Files    []FileEntry `json:"files"`
	Clients  []Client    `json:"clients"`
}

// RoomSummary is a room as shown in listings.
type RoomSummary struct {
	ID       string `json:"id"`
	Members  int    `json:"members"`
	HasCode  bool   `json:"has_code"`
	Language string `json:"language"`
	Theme    string `json:"theme"`
	Files    int    `json:"files"`
}

type Stats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
	ActiveRooms int `json:"active_rooms"`
}

func (e *Engine) Snapshot(roomID string) (RoomSnapshot, error) {
	if err := e.requireRoom(roomID); err != nil {
		return RoomSnapshot{}, err
	}
	code, hasCode := e.store.Code(roomID)
	settings, _ := e.store.Settings(roomID)
	files, _ := e.store.Files(roomID)
	return RoomSnapshot{
		ID:       roomID,
		Code:     code,
		HasCode:  hasCode,
		Settings: settings,
		Files:    files,
		Clients:  e.clientsOf(roomID),
	}, nil
}

func (e *Engine) Rooms() []RoomSummary {
	ids := e.store.IDs()
	out := make([]RoomSummary, 0, len(ids))
	for _, id := range ids {
		_, hasCode := e.store.Code(id)
		settings, _ := e.store.Settings(id)
		files, _ := e.store.Files(id)
		out = append(out, RoomSummary{
			ID:       id,
			Members:  e.members.Count(id),
			HasCode:  hasCode,
			Language: settings.Language,
			Theme:    settings.Theme,
			Files:    len(files),
		})
	}
	return out
}

func (e *Engine) Stats() Stats {
	active := 0
	for _, id := range e.store.IDs() {
		if e.members.Count(id) > 0 {
			active++
		}
	}
	return Stats{
		Connections: len(e.members.byConn),
		Rooms:       e.store.Len(),
		ActiveRooms: active,
	}
}
