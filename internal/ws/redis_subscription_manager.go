package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const stateFetchTimeout = 2 * time.Second

// subscriptionManager keeps exactly one Redis subscription per room that has
// local members. It is the engine's RoomObserver, so it hears about a room
// when the first local member joins and when the last one leaves.
type subscriptionManager struct {
	rdb     *redis.Client
	origin  string
	deliver func(relayFrame)

	mu     sync.Mutex
	base   context.Context
	nextID uint64
	subs   map[string]subEntry // roomID ➜ live subscription
}

type subEntry struct {
	id     uint64
	cancel context.CancelFunc
}

func newSubscriptionManager(rdb *redis.Client, origin string, deliver func(relayFrame)) *subscriptionManager {
	return &subscriptionManager{
		rdb:     rdb,
		origin:  origin,
		deliver: deliver,
		base:    context.Background(),
		subs:    make(map[string]subEntry),
	}
}

func (sm *subscriptionManager) start(ctx context.Context) {
	sm.mu.Lock()
	sm.base = ctx
	sm.mu.Unlock()
}

// RoomOpened starts listening on the room's channel. It runs on the hub
// goroutine, so the Redis round trips happen in the fan-in goroutine.
func (sm *subscriptionManager) RoomOpened(roomID string) {
	sm.mu.Lock()
	if _, ok := sm.subs[roomID]; ok {
		sm.mu.Unlock()
		return
	}
	sm.nextID++
	ctx, cancel := context.WithCancel(sm.base)
	entry := subEntry{id: sm.nextID, cancel: cancel}
	sm.subs[roomID] = entry
	sm.mu.Unlock()

	go sm.listen(ctx, roomID, entry.id)
}

// RoomClosed tears the subscription down once no local member is left.
func (sm *subscriptionManager) RoomClosed(roomID string) {
	sm.mu.Lock()
	entry, ok := sm.subs[roomID]
	delete(sm.subs, roomID)
	sm.mu.Unlock()

	if ok {
		entry.cancel()
	}
}

func (sm *subscriptionManager) closeAll() {
	sm.mu.Lock()
	subs := sm.subs
	sm.subs = make(map[string]subEntry)
	sm.mu.Unlock()

	for _, entry := range subs {
		entry.cancel()
	}
}

func (sm *subscriptionManager) subscribed(roomID string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	_, ok := sm.subs[roomID]
	return ok
}

// current reports whether sub is the room's live subscription. Frames from a
// subscription that was torn down are stale.
func (sm *subscriptionManager) current(roomID string, sub uint64) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	entry, ok := sm.subs[roomID]
	return ok && entry.id == sub
}

func (sm *subscriptionManager) listen(ctx context.Context, roomID string, sub uint64) {
	ps := sm.rdb.Subscribe(ctx, roomChannel(roomID))
	defer ps.Close()

	// The state is read only once the subscription is live, so an update
	// lands either in the snapshot or on the channel.
	hydrate := relayFrame{RoomID: roomID, sub: sub, hydrate: true}
	if _, err := ps.Receive(ctx); err != nil {
		if ctx.Err() == nil {
			zap.L().Warn("relay.subscribe", zap.String("room", roomID), zap.Error(err))
			sm.deliver(hydrate)
		}
		return
	}
	fetchCtx, cancel := context.WithTimeout(ctx, stateFetchTimeout)
	st, err := fetchState(fetchCtx, sm.rdb, roomID)
	cancel()
	if err != nil {
		zap.L().Warn("relay.fetch_state", zap.String("room", roomID), zap.Error(err))
	}
	hydrate.state = st
	sm.deliver(hydrate)

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok { // Redis connection closed.
				return
			}
			sm.handleMessage(m.Payload, sub)
		}
	}
}

// handleMessage decodes one relayed frame and hands it to the hub unless this
// instance published it.
func (sm *subscriptionManager) handleMessage(payload string, sub uint64) bool {
	var f relayFrame
	if err := json.Unmarshal([]byte(payload), &f); err != nil {
		zap.L().Warn("relay.bad_frame", zap.Error(err))
		return false
	}
	if f.Origin == sm.origin || f.RoomID == "" || f.Event == "" {
		return false
	}
	f.sub = sub
	sm.deliver(f)
	return true
}
