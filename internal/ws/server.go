package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WsServer struct {
	hub      *Hub
	upgrader websocket.Upgrader
	cfg      ConnConfig
}

func NewWsServer(h *Hub, cfg ConnConfig) *WsServer {
	return &WsServer{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// editors are served from any origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
		cfg: cfg,
	}
}

// ---------------------------------------------------------------------------
//  Public: Gin entry‑point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.accept", zap.Error(err))
		return
	}

	conn := newClientConn(uuid.NewString(), rawConn, s.cfg)
	if !s.hub.registerConn(conn) {
		_ = rawConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		rawConn.Close()
		return
	}
	zap.L().Debug("ws.connected", zap.String("socket", conn.id))

	go conn.writePump()
	go conn.readPump(s.hub)
}
