package collab

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Hydrate installs the shared state fetched for a room this instance just
// opened. A nil state keeps the local defaults. The members that joined while
// the state was in flight get their sync bundle, then the held events run in
// arrival order.
func (e *Engine) Hydrate(roomID string, st *RoomState) []Effect {
	held, pending := e.hydrating[roomID]
	if !pending {
		return nil
	}
	delete(e.hydrating, roomID)
	if st != nil {
		e.store.Restore(roomID, *st)
	}

	var effects []Effect
	for _, id := range e.members.Members(roomID) {
		if id == roomID {
			continue
		}
		effects = append(effects, e.syncBundle(id, roomID)...)
	}
	zap.L().Debug("collab.hydrated",
		zap.String("room", roomID),
		zap.Bool("shared_state", st != nil),
		zap.Int("held", len(held)),
	)
	return append(effects, e.replay(held)...)
}

// State is the room's shareable state, as published to other instances.
func (e *Engine) State(roomID string) (RoomState, bool) { return e.store.State(roomID) }

// StateBearing reports whether a room broadcast changes the room's state.
func StateBearing(event string) bool {
	switch event {
	case EventCodeChange, EventLanguageChange, EventThemeChange, EventFileAdded, EventFileRemoved:
		return true
	}
	return false
}

// awaitingState peeks at the event's room and reports whether that room is
// waiting for its shared state.
func (e *Engine) awaitingState(body json.RawMessage) (string, bool) {
	if len(e.hydrating) == 0 {
		return "", false
	}
	var peek struct {
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(body, &peek); err != nil || peek.RoomID == "" {
		return "", false
	}
	_, pending := e.hydrating[peek.RoomID]
	return peek.RoomID, pending
}

func (e *Engine) hold(roomID string, ev heldEvent) {
	held := e.hydrating[roomID]
	if len(held) >= maxHeldEvents {
		zap.L().Warn("collab.held_overflow", zap.String("room", roomID), zap.String("socket", ev.socketID))
		return
	}
	e.hydrating[roomID] = append(held, ev)
}

// replay dispatches held events whose connection is still around.
func (e *Engine) replay(held []heldEvent) []Effect {
	var effects []Effect
	for _, ev := range held {
		if !e.members.IsMember(ev.socketID, ev.socketID) {
			continue
		}
		effects = append(effects, e.Dispatch(ev.socketID, ev.event, ev.body)...)
	}
	return effects
}
