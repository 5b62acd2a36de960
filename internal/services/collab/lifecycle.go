package collab

import "go.uber.org/zap"

// Connect registers a new transport connection. Like the pub/sub transport
// clients were written against, every connection starts out in a room named
// after its own id.
func (e *Engine) Connect(socketID string) {
	e.enterRoom(socketID, socketID)
	zap.L().Debug("collab.connect", zap.String("socket", socketID))
}

// Disconnect tears a connection down and returns the departure notices for
// the rooms it was in.
//
// Room membership is captured before anything is removed; once the
// connection leaves its rooms there is nothing left to notify. A connection
// that never joined (no bound name) departs silently.
func (e *Engine) Disconnect(socketID string) []Effect {
	rooms := e.members.RoomsOf(socketID)
	name, bound := e.registry.Name(socketID)

	var effects []Effect
	if bound {
		for _, roomID := range rooms {
			if roomID == socketID {
				continue
			}
			effects = append(effects, toOthers(roomID, socketID, EventDisconnected, DisconnectedPayload{
				SocketID: socketID,
				Username: name,
			}))
		}
	}

	e.registry.Remove(socketID)
	for _, roomID := range e.members.RemoveConn(socketID) {
		effects = append(effects, e.roomEmptied(roomID)...)
	}

	zap.L().Debug("collab.disconnect",
		zap.String("socket", socketID),
		zap.Strings("rooms", rooms),
		zap.Int("notices", len(effects)),
	)
	return effects
}
