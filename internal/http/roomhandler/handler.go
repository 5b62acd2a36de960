package roomhandler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"codecollabgo/internal/services/collab"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RoomReader is the read side of the collaboration hub.
type RoomReader interface {
	Stats(ctx context.Context) (collab.Stats, error)
	Rooms(ctx context.Context) ([]collab.RoomSummary, error)
	Room(ctx context.Context, id string) (collab.RoomSnapshot, error)
}

type Handler struct {
	rooms RoomReader
}

func New(rooms RoomReader) *Handler { return &Handler{rooms: rooms} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/health", h.health)
	r.GET("/api/stats", h.stats)
	r.GET("/api/rooms", h.list)
	r.GET("/api/rooms/:id", h.info)
}

// @Summary		Liveness check
// @Tags			Ops
// @Success		200	{object}	HealthResponse
// @Router			/health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Timestamp: time.Now().UTC()})
}

// @Summary		Server statistics
// @Description	Connection and room counters for this instance.
// @Tags			Rooms
// @Success		200	{object}	collab.Stats
// @Failure		503	{object}	ErrorResponse
// @Router			/api/stats [get]
func (h *Handler) stats(c *gin.Context) {
	st, err := h.rooms.Stats(c.Request.Context())
	if err != nil {
		unavailable(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary		List rooms
// @Description	Every room this instance holds state for, sorted by id.
// @Tags			Rooms
// @Success		200	{array}		collab.RoomSummary
// @Failure		503	{object}	ErrorResponse
// @Router			/api/rooms [get]
func (h *Handler) list(c *gin.Context) {
	rooms, err := h.rooms.Rooms(c.Request.Context())
	if err != nil {
		unavailable(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

// @Summary		Get room details
// @Description	Returns the code, settings, files and connected clients of a room.
// @Tags			Rooms
// @Param			id	path		string	true	"Room ID"	default(abc)
// @Success		200	{object}	collab.RoomSnapshot
// @Failure		404	{object}	ErrorResponse
// @Router			/api/rooms/{id} [get]
func (h *Handler) info(c *gin.Context) {
	var p RoomPath
	if err := c.ShouldBindUri(&p); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	snap, err := h.rooms.Room(c.Request.Context(), p.ID)
	switch {
	case errors.Is(err, collab.ErrUnknownRoom):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case err != nil:
		unavailable(c, err)
	default:
		c.JSON(http.StatusOK, snap)
	}
}

func unavailable(c *gin.Context, err error) {
	zap.L().Warn("http.room_query", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
}
