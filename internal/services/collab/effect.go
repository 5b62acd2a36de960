package collab

// Audience selects who receives an outbound event.
type Audience int

const (
	// AudienceRoomExceptSender reaches every room member but the one in Effect.SocketID.
	AudienceRoomExceptSender Audience = iota
	// AudienceRoom reaches every room member, sender included.
	AudienceRoom
	// AudienceConn reaches exactly the connection in Effect.SocketID.
	AudienceConn
)

func (a Audience) String() string {
	switch a {
	case AudienceRoomExceptSender:
		return "room-except-sender"
	case AudienceRoom:
		return "room"
	case AudienceConn:
		return "conn"
	}
	return "unknown"
}

// Effect is one outbound delivery produced by an event handler. Handlers
// never touch the transport; the hub turns effects into frames.
type Effect struct {
	Audience Audience
	RoomID   string
	SocketID string // unicast target, or the excluded sender
	Event    string
	Payload  any
}

// RoomScoped reports whether the effect is addressed to a room rather than
// a single connection.
func (e Effect) RoomScoped() bool {
	return e.Audience == AudienceRoom || e.Audience == AudienceRoomExceptSender
}

func toRoom(roomID, event string, payload any) Effect {
	return Effect{Audience: AudienceRoom, RoomID: roomID, Event: event, Payload: payload}
}

func toOthers(roomID, sender, event string, payload any) Effect {
	return Effect{Audience: AudienceRoomExceptSender, RoomID: roomID, SocketID: sender, Event: event, Payload: payload}
}

func toConn(socketID, event string, payload any) Effect {
	return Effect{Audience: AudienceConn, SocketID: socketID, Event: event, Payload: payload}
}
