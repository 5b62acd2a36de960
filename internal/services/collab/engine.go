// Package collab keeps per-room editor state and decides who hears about
// each change.
package collab

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// RoomObserver is told when a room gains its first member or loses its last
// one. The synthetic per-connection room never triggers it.
type RoomObserver interface {
	RoomOpened(roomID string)
	RoomClosed(roomID string)
}

type Options struct {
	Defaults Defaults
	// SharedState is set when other instances serve the same rooms. Local
	// state is then dropped when a room empties, and a room opened here
	// holds its joiners' sync and later events until Hydrate supplies the
	// current state.
	SharedState bool
	// RoomIdleTTL is how long an empty room keeps its state. Zero keeps
	// every room until the process exits.
	RoomIdleTTL time.Duration
	Observer    RoomObserver
	Now         func() time.Time
}

// Engine is the room synchronization core. It owns the room store, the
// connection registry and the membership index and turns each incoming event
// into a list of effects.
//
// Engine is single-threaded: all methods must be called from one goroutine.
type Engine struct {
	store    *Store
	registry *Registry
	members  *Membership
	router   *Router
	observer RoomObserver
	idleTTL  time.Duration
	now      func() time.Time

	shared bool
	// opened tracks rooms the observer was told about.
	opened map[string]bool
	// hydrating holds, per room waiting for shared state, the events that
	// arrived meanwhile.
	hydrating map[string][]heldEvent
}

type heldEvent struct {
	socketID string
	event    string
	body     json.RawMessage
}

const maxHeldEvents = 1024

func NewEngine(opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Defaults == (Defaults{}) {
		opts.Defaults = DefaultDefaults()
	}
	e := &Engine{
		store:     NewStore(opts.Defaults),
		registry:  NewRegistry(),
		members:   NewMembership(),
		router:    NewRouter(),
		observer:  opts.Observer,
		idleTTL:   opts.RoomIdleTTL,
		now:       opts.Now,
		shared:    opts.SharedState,
		opened:    make(map[string]bool),
		hydrating: make(map[string][]heldEvent),
	}
	e.registerHandlers()
	return e
}

// SetObserver replaces the room observer.
func (e *Engine) SetObserver(o RoomObserver) { e.observer = o }

// SetSharedState switches shared-state mode (see Options.SharedState).
func (e *Engine) SetSharedState(on bool) { e.shared = on }

// Dispatch runs the handler bound to event. Any failure (unknown event,
// malformed payload, unknown room, ...) drops the event: no effects are
// returned and nothing is sent back to the client.
func (e *Engine) Dispatch(socketID, event string, body json.RawMessage) []Effect {
	if roomID, held := e.awaitingState(body); held {
		e.hold(roomID, heldEvent{socketID: socketID, event: event, body: body})
		return nil
	}
	effects, err := e.router.dispatch(ConnContext{SocketID: socketID}, event, body)
	if err != nil {
		zap.L().Debug("collab.drop",
			zap.String("socket", socketID),
			zap.String("event", event),
			zap.Error(err),
		)
		return nil
	}
	return effects
}

// Sweep evicts rooms that have been empty for at least the idle TTL.
func (e *Engine) Sweep() []string {
	if e.idleTTL <= 0 {
		return nil
	}
	evicted := e.store.evictIdle(e.now(), e.idleTTL)
	for _, id := range evicted {
		zap.L().Info("collab.room_evicted", zap.String("room", id))
	}
	return evicted
}

// Members returns the ids of the room's connections in join order.
func (e *Engine) Members(roomID string) []string { return e.members.Members(roomID) }

func (e *Engine) Store() *Store { return e.store }

func (e *Engine) clientsOf(roomID string) []Client {
	ids := e.members.Members(roomID)
	clients := make([]Client, 0, len(ids))
	for _, id := range ids {
		name, _ := e.registry.Name(id)
		clients = append(clients, Client{SocketID: id, Username: name})
	}
	return clients
}

// enterRoom adds the membership. Joining any room other than one's own
// opens it, once, even when the id collides with another connection's own
// room.
func (e *Engine) enterRoom(socketID, roomID string) {
	e.members.Add(socketID, roomID)
	if roomID == socketID || e.opened[roomID] {
		return
	}
	e.opened[roomID] = true
	e.store.markOccupied(roomID)
	if e.shared {
		e.hydrating[roomID] = nil
	}
	if e.observer != nil {
		e.observer.RoomOpened(roomID)
	}
}

func (e *Engine) exitRoom(socketID, roomID string) []Effect {
	if _, emptied := e.members.Remove(socketID, roomID); emptied {
		return e.roomEmptied(roomID)
	}
	return nil
}

// roomEmptied closes a room the observer saw open. Self rooms were never
// opened and pass through. Events still held for the room are replayed
// against the closed room, so a held join opens it afresh.
func (e *Engine) roomEmptied(roomID string) []Effect {
	if !e.opened[roomID] {
		return nil
	}
	held := e.hydrating[roomID]
	delete(e.opened, roomID)
	delete(e.hydrating, roomID)
	if e.shared {
		e.store.Delete(roomID)
	} else {
		e.store.markEmpty(roomID, e.now())
	}
	if e.observer != nil {
		e.observer.RoomClosed(roomID)
	}
	return e.replay(held)
}

// requireRoom is the guard every non-join event goes through.
func (e *Engine) requireRoom(roomID string) error {
	if !e.store.Has(roomID) {
		return ErrUnknownRoom
	}
	return nil
}
