package collab

import (
	"sort"
	"time"
)

// Defaults seeds a room on first access.
type Defaults struct {
	Language string
	Theme    string
	File     FileEntry
}

// DefaultDefaults matches what clients expect from a fresh room.
func DefaultDefaults() Defaults {
	return Defaults{
		Language: "javascript",
		Theme:    "dracula",
		File:     FileEntry{ID: "1", Name: "main", Language: "javascript"},
	}
}

// RoomState is the shareable part of a room: everything a joiner is sent.
type RoomState struct {
	Code     string      `json:"code"`
	HasCode  bool        `json:"has_code"`
	Settings Settings    `json:"settings"`
	Files    []FileEntry `json:"files"`
}

type roomState struct {
	code       string
	hasCode    bool
	settings   Settings
	files      []FileEntry
	emptySince time.Time // zero while the room has members
}

// Store holds the canonical in-memory snapshot of every room.
//
// Store is not safe for concurrent use: it is owned by the hub's dispatch
// goroutine, which serializes every read and write.
type Store struct {
	defaults Defaults
	rooms    map[string]*roomState
}

func NewStore(d Defaults) *Store {
	return &Store{defaults: d, rooms: make(map[string]*roomState)}
}

// Ensure returns the room, creating it with default settings and the default
// file entry when absent. created is true on first access.
func (s *Store) Ensure(roomID string) (created bool) {
	if _, ok := s.rooms[roomID]; ok {
		return false
	}
	s.rooms[roomID] = &roomState{
		settings: Settings{Language: s.defaults.Language, Theme: s.defaults.Theme},
		files:    []FileEntry{s.defaults.File},
	}
	return true
}

func (s *Store) Has(roomID string) bool {
	_, ok := s.rooms[roomID]
	return ok
}

// Code returns the last stored document. ok is false when the room is
// unknown or nobody has edited it yet.
func (s *Store) Code(roomID string) (code string, ok bool) {
	r, found := s.rooms[roomID]
	if !found || !r.hasCode {
		return "", false
	}
	return r.code, true
}

// SetCode overwrites the document unconditionally (last write wins).
func (s *Store) SetCode(roomID, code string) bool {
	r, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	r.code = code
	r.hasCode = true
	return true
}

func (s *Store) Settings(roomID string) (Settings, bool) {
	r, ok := s.rooms[roomID]
	if !ok {
		return Settings{}, false
	}
	return r.settings, true
}

func (s *Store) SetLanguage(roomID, language string) bool {
	r, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	r.settings.Language = language
	return true
}

func (s *Store) SetTheme(roomID, theme string) bool {
	r, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	r.settings.Theme = theme
	return true
}

// Files returns a copy of the room's file list.
func (s *Store) Files(roomID string) ([]FileEntry, bool) {
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, false
	}
	out := make([]FileEntry, len(r.files))
	copy(out, r.files)
	return out, true
}

// AddFile appends f unless a file with the same id exists.
func (s *Store) AddFile(roomID string, f FileEntry) error {
	r, ok := s.rooms[roomID]
	if !ok {
		return ErrUnknownRoom
	}
	for _, existing := range r.files {
		if existing.ID == f.ID {
			return ErrDuplicateFile
		}
	}
	r.files = append(r.files, f)
	return nil
}

// RemoveFile deletes the entry with the given id.
func (s *Store) RemoveFile(roomID, fileID string) error {
	r, ok := s.rooms[roomID]
	if !ok {
		return ErrUnknownRoom
	}
	for i, f := range r.files {
		if f.ID == fileID {
			r.files = append(r.files[:i], r.files[i+1:]...)
			return nil
		}
	}
	return ErrFileNotFound
}

// State copies the room's shareable state.
func (s *Store) State(roomID string) (RoomState, bool) {
	r, ok := s.rooms[roomID]
	if !ok {
		return RoomState{}, false
	}
	files := make([]FileEntry, len(r.files))
	copy(files, r.files)
	return RoomState{Code: r.code, HasCode: r.hasCode, Settings: r.settings, Files: files}, true
}

// Restore overwrites a known room with st. Empty settings fields keep their
// current value.
func (s *Store) Restore(roomID string, st RoomState) bool {
	r, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	r.code, r.hasCode = st.Code, st.HasCode
	if st.Settings.Language != "" {
		r.settings.Language = st.Settings.Language
	}
	if st.Settings.Theme != "" {
		r.settings.Theme = st.Settings.Theme
	}
	r.files = make([]FileEntry, len(st.Files))
	copy(r.files, st.Files)
	return true
}

// markEmpty records when the room lost its last member.
func (s *Store) markEmpty(roomID string, at time.Time) {
	if r, ok := s.rooms[roomID]; ok {
		r.emptySince = at
	}
}

func (s *Store) markOccupied(roomID string) {
	if r, ok := s.rooms[roomID]; ok {
		r.emptySince = time.Time{}
	}
}

// evictIdle deletes rooms that have been empty for at least ttl.
func (s *Store) evictIdle(now time.Time, ttl time.Duration) []string {
	var evicted []string
	for id, r := range s.rooms {
		if r.emptySince.IsZero() || now.Sub(r.emptySince) < ttl {
			continue
		}
		delete(s.rooms, id)
		evicted = append(evicted, id)
	}
	sort.Strings(evicted)
	return evicted
}

func (s *Store) Delete(roomID string) {
	delete(s.rooms, roomID)
}

// IDs lists the known rooms in lexical order.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) Len() int { return len(s.rooms) }
