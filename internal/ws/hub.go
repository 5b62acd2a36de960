package ws

import (
	"context"
	"errors"
	"time"

	"codecollabgo/internal/services/collab"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrHubStopped = errors.New("hub stopped")

type inboundMsg struct {
	conn *clientConn
	env  Envelope
}

type query struct {
	fn   func(e *collab.Engine)
	done chan struct{}
}

// Hub is the single dispatch goroutine. It owns the collab engine and the
// set of local connections; every event, connect, disconnect, relayed frame,
// sweep and inspection query runs here one at a time, so the engine needs no
// locking.
type Hub struct {
	engine *collab.Engine
	conns  map[string]*clientConn

	register   chan *clientConn
	unregister chan *clientConn
	inbound    chan inboundMsg
	remote     chan relayFrame
	queries    chan query

	relay      *relay
	sweepEvery time.Duration
	done       chan struct{}
}

func NewHub(engine *collab.Engine, sweepEvery time.Duration) *Hub {
	if sweepEvery <= 0 {
		sweepEvery = 30 * time.Second
	}
	return &Hub{
		engine:     engine,
		conns:      make(map[string]*clientConn),
		register:   make(chan *clientConn),
		unregister: make(chan *clientConn),
		inbound:    make(chan inboundMsg, 256),
		remote:     make(chan relayFrame, 256),
		queries:    make(chan query),
		sweepEvery: sweepEvery,
		done:       make(chan struct{}),
	}
}

// EnableRelay mirrors room broadcasts through Redis so that several
// instances can serve the same room. Call it before Run.
func (h *Hub) EnableRelay(rdb *redis.Client) {
	h.relay = newRelay(rdb, h.forwardRemote)
	h.engine.SetObserver(h.relay.subs)
	h.engine.SetSharedState(true)
}

func (h *Hub) forwardRemote(f relayFrame) {
	select {
	case h.remote <- f:
	case <-h.done:
	}
}

// Run processes hub traffic until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.sweepEvery)
	defer ticker.Stop()

	if h.relay != nil {
		h.relay.start(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case c := <-h.register:
			h.conns[c.id] = c
			h.engine.Connect(c.id)

		case c := <-h.unregister:
			h.handleUnregister(c)

		case m := <-h.inbound:
			if _, ok := h.conns[m.conn.id]; !ok {
				continue
			}
			h.deliver(h.engine.Dispatch(m.conn.id, m.env.Event, m.env.Body), true)

		case f := <-h.remote:
			h.handleRemote(f)

		case q := <-h.queries:
			q.fn(h.engine)
			close(q.done)

		case <-ticker.C:
			h.engine.Sweep()
		}
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) handleUnregister(c *clientConn) {
	if _, ok := h.conns[c.id]; !ok {
		return
	}
	// Disconnect reads the connection's rooms before anything is torn down.
	effects := h.engine.Disconnect(c.id)
	delete(h.conns, c.id)
	c.closeSend()
	h.deliver(effects, true)
}

func (h *Hub) handleRemote(f relayFrame) {
	if h.relay != nil && !h.relay.subs.current(f.RoomID, f.sub) {
		return
	}
	if f.hydrate {
		// bundles are unicasts; replayed events are ours to publish
		h.deliver(h.engine.Hydrate(f.RoomID, f.state), true)
		return
	}
	effects, err := h.engine.ApplyRemote(f.RoomID, f.Event, f.Exclude, f.Body)
	if err != nil {
		zap.L().Debug("relay.apply", zap.String("room", f.RoomID), zap.Error(err))
		return
	}
	h.deliver(effects, false)
}

// deliver turns effects into frames for local connections and, for room
// broadcasts that originated here, hands them to the relay.
func (h *Hub) deliver(effects []collab.Effect, publish bool) {
	for _, eff := range effects {
		frame, err := encodeFrame(eff.Event, eff.Payload)
		if err != nil {
			zap.L().Error("ws.encode", zap.String("event", eff.Event), zap.Stringer("audience", eff.Audience), zap.Error(err))
			continue
		}

		if !eff.RoomScoped() {
			h.sendTo(eff.SocketID, frame)
			continue
		}
		for _, id := range h.engine.Members(eff.RoomID) {
			if eff.Audience == collab.AudienceRoomExceptSender && id == eff.SocketID {
				continue
			}
			h.sendTo(id, frame)
		}
		if publish && h.relay != nil {
			h.relay.publish(eff, h.stateAfter(eff))
		}
	}
}

// stateAfter is the room state to store alongside a state-bearing broadcast.
func (h *Hub) stateAfter(eff collab.Effect) *collab.RoomState {
	if !collab.StateBearing(eff.Event) {
		return nil
	}
	st, ok := h.engine.State(eff.RoomID)
	if !ok {
		return nil
	}
	return &st
}

func (h *Hub) sendTo(socketID string, frame []byte) {
	if c, ok := h.conns[socketID]; ok {
		c.enqueue(frame)
	}
}

func (h *Hub) shutdown() {
	for id, c := range h.conns {
		c.closeSend()
		delete(h.conns, id)
	}
	if h.relay != nil {
		h.relay.close()
	}
	close(h.done)
	zap.L().Info("ws.hub_stopped")
}

func (h *Hub) registerConn(c *clientConn) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregisterConn(c *clientConn) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) submit(c *clientConn, env Envelope) bool {
	select {
	case h.inbound <- inboundMsg{conn: c, env: env}:
		return true
	case <-h.done:
		return false
	}
}

// ---------------------------------------------------------------------------
//  Read-only inspection, executed on the hub goroutine
// ---------------------------------------------------------------------------

func (h *Hub) query(ctx context.Context, fn func(e *collab.Engine)) error {
	q := query{fn: fn, done: make(chan struct{})}
	select {
	case h.queries <- q:
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) Stats(ctx context.Context) (collab.Stats, error) {
	var st collab.Stats
	err := h.query(ctx, func(e *collab.Engine) { st = e.Stats() })
	return st, err
}

func (h *Hub) Rooms(ctx context.Context) ([]collab.RoomSummary, error) {
	var rooms []collab.RoomSummary
	err := h.query(ctx, func(e *collab.Engine) { rooms = e.Rooms() })
	return rooms, err
}

func (h *Hub) Room(ctx context.Context, id string) (collab.RoomSnapshot, error) {
	var (
		snap    collab.RoomSnapshot
		snapErr error
	)
	if err := h.query(ctx, func(e *collab.Engine) { snap, snapErr = e.Snapshot(id) }); err != nil {
		return collab.RoomSnapshot{}, err
	}
	return snap, snapErr
}
