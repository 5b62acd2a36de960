package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"codecollabgo/internal/services/collab"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	relayPublishTimeout = 2 * time.Second
	relayQueueSize      = 1024
)

// relayFrame is what travels over "room:<id>:events" between instances.
type relayFrame struct {
	Origin  string          `json:"origin"`
	RoomID  string          `json:"roomId"`
	Exclude string          `json:"exclude,omitempty"`
	Event   string          `json:"event"`
	Body    json.RawMessage `json:"body"`

	// local only
	sub     uint64            // subscription the frame came in on
	hydrate bool              // carries the room's shared state, not an event
	state   *collab.RoomState // state to store (outbound) or install (hydrate)
}

func roomChannel(roomID string) string {
	return "room:" + roomID + ":events"
}

// relay mirrors room broadcasts to other instances through Redis pub/sub.
// Publishing is queued so the hub never waits on Redis.
type relay struct {
	rdb    *redis.Client
	origin string
	out    chan relayFrame
	subs   *subscriptionManager
	cancel context.CancelFunc
}

func newRelay(rdb *redis.Client, deliver func(relayFrame)) *relay {
	origin := uuid.NewString()
	return &relay{
		rdb:    rdb,
		origin: origin,
		out:    make(chan relayFrame, relayQueueSize),
		subs:   newSubscriptionManager(rdb, origin, deliver),
	}
}

func (r *relay) start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.subs.start(ctx)
	go r.publishLoop(ctx)
	zap.L().Info("relay.started", zap.String("origin", r.origin))
}

func (r *relay) close() {
	if r.cancel != nil {
		r.cancel()
	}
	r.subs.closeAll()
}

// publish queues a room-scoped effect for the other instances. A non-nil st
// is the room's state after the effect and is written to the state hash
// before the frame goes out.
func (r *relay) publish(eff collab.Effect, st *collab.RoomState) {
	f, err := r.toFrame(eff)
	if err != nil {
		zap.L().Error("relay.encode", zap.String("event", eff.Event), zap.Stringer("audience", eff.Audience), zap.Error(err))
		return
	}
	f.state = st
	select {
	case r.out <- f:
	default:
		zap.L().Warn("relay.queue_full", zap.String("room", f.RoomID), zap.String("event", f.Event))
	}
}

func (r *relay) toFrame(eff collab.Effect) (relayFrame, error) {
	body, err := json.Marshal(eff.Payload)
	if err != nil {
		return relayFrame{}, err
	}
	f := relayFrame{
		Origin: r.origin,
		RoomID: eff.RoomID,
		Event:  eff.Event,
		Body:   body,
	}
	if eff.Audience == collab.AudienceRoomExceptSender {
		f.Exclude = eff.SocketID
	}
	return f, nil
}

func (r *relay) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-r.out:
			pubCtx, cancel := context.WithTimeout(ctx, relayPublishTimeout)
			if err := r.publishFrame(pubCtx, f); err != nil {
				zap.L().Warn("relay.publish", zap.String("room", f.RoomID), zap.Error(err))
			}
			cancel()
		}
	}
}

func (r *relay) publishFrame(ctx context.Context, f relayFrame) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	if f.state != nil {
		fields, err := stateFields(*f.state)
		if err != nil {
			return err
		}
		if err := r.rdb.HSet(ctx, stateKey(f.RoomID), fields...).Err(); err != nil {
			return fmt.Errorf("store %s state: %w", f.RoomID, err)
		}
	}
	if err := r.rdb.Publish(ctx, roomChannel(f.RoomID), string(b)).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", f.Event, err)
	}
	return nil
}
