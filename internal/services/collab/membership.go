package collab

// Membership is the group primitive: which connections are in which rooms.
// Members are kept in join order, which is the order clients see in the
// "joined" member list.
type Membership struct {
	rooms  map[string][]string
	byConn map[string][]string
}

func NewMembership() *Membership {
	return &Membership{
		rooms:  make(map[string][]string),
		byConn: make(map[string][]string),
	}
}

// Add puts the connection in the room. It reports whether the room went from
// zero to one member.
func (m *Membership) Add(socketID, roomID string) (opened bool) {
	members := m.rooms[roomID]
	if contains(members, socketID) {
		return false
	}
	m.rooms[roomID] = append(members, socketID)
	m.byConn[socketID] = append(m.byConn[socketID], roomID)
	return len(members) == 0
}

// Remove takes the connection out of the room. It reports whether it was a
// member and whether the room is now empty.
func (m *Membership) Remove(socketID, roomID string) (removed, emptied bool) {
	members := m.rooms[roomID]
	if !contains(members, socketID) {
		return false, false
	}
	members = without(members, socketID)
	if len(members) == 0 {
		delete(m.rooms, roomID)
		emptied = true
	} else {
		m.rooms[roomID] = members
	}

	rooms := without(m.byConn[socketID], roomID)
	if len(rooms) == 0 {
		delete(m.byConn, socketID)
	} else {
		m.byConn[socketID] = rooms
	}
	return true, emptied
}

// RemoveConn drops the connection from every room and returns the rooms
// that became empty.
func (m *Membership) RemoveConn(socketID string) (emptied []string) {
	for _, roomID := range m.RoomsOf(socketID) {
		if _, e := m.Remove(socketID, roomID); e {
			emptied = append(emptied, roomID)
		}
	}
	return emptied
}

// RoomsOf returns a snapshot of the rooms the connection belongs to.
func (m *Membership) RoomsOf(socketID string) []string {
	return clone(m.byConn[socketID])
}

// Members returns a snapshot of the room's members in join order.
func (m *Membership) Members(roomID string) []string {
	return clone(m.rooms[roomID])
}

func (m *Membership) IsMember(socketID, roomID string) bool {
	return contains(m.rooms[roomID], socketID)
}

func (m *Membership) Count(roomID string) int { return len(m.rooms[roomID]) }

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func without(list []string, v string) []string {
	out := list[:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

func clone(list []string) []string {
	if len(list) == 0 {
		return nil
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}
