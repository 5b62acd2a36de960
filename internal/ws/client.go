package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // must be < pongWait
)

// ConnConfig bounds what a single connection may send and buffer.
type ConnConfig struct {
	MaxMessageSize    int64
	SendBuffer        int
	MessagesPerSecond float64
	MessageBurst      int
	MaxRateViolations int
}

func DefaultConnConfig() ConnConfig {
	return ConnConfig{
		MaxMessageSize:    1 << 20,
		SendBuffer:        256,
		MessagesPerSecond: 100,
		MessageBurst:      200,
		MaxRateViolations: 1000,
	}
}

type clientConn struct {
	id      string
	rawConn *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	cfg     ConnConfig

	// dropped is owned by the hub goroutine.
	dropped   bool
	closeOnce sync.Once
}

func newClientConn(id string, rawConn *websocket.Conn, cfg ConnConfig) *clientConn {
	return &clientConn{
		id:      id,
		rawConn: rawConn,
		send:    make(chan []byte, cfg.SendBuffer),
		limiter: rate.NewLimiter(rate.Limit(cfg.MessagesPerSecond), cfg.MessageBurst),
		cfg:     cfg,
	}
}

// enqueue hands a frame to the write pump without blocking. A connection
// whose buffer is full is dropped; its read pump then reports the disconnect.
func (c *clientConn) enqueue(frame []byte) bool {
	if c.dropped {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		c.dropped = true
		c.closeSend()
		zap.L().Warn("ws.slow_consumer", zap.String("socket", c.id))
		return false
	}
}

func (c *clientConn) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

func (c *clientConn) readPump(h *Hub) {
	defer func() {
		h.unregisterConn(c)
		c.rawConn.Close()
	}()

	c.rawConn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	c.rawConn.SetPongHandler(func(string) error {
		return c.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	violations := 0
	for {
		_, data, err := c.rawConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				zap.L().Debug("ws.read", zap.String("socket", c.id), zap.Error(err))
			}
			return
		}

		if !c.limiter.Allow() {
			violations++
			if violations%100 == 1 {
				zap.L().Warn("ws.rate_limited", zap.String("socket", c.id), zap.Int("violations", violations))
			}
			if violations > c.cfg.MaxRateViolations {
				zap.L().Warn("ws.rate_limit_disconnect", zap.String("socket", c.id))
				return
			}
			continue
		}

		env, err := decodeFrame(data)
		if err != nil {
			zap.L().Debug("ws.bad_frame", zap.String("socket", c.id), zap.Error(err))
			continue
		}
		if !h.submit(c, env) {
			return // hub stopped
		}
	}
}

func (c *clientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.rawConn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.rawConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.rawConn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.rawConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
