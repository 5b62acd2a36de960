package roomhandler

import "time"

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse

type HealthResponse struct {
	Status    string    `json:"status"    example:"ok"`
	Timestamp time.Time `json:"timestamp" example:"2025-07-27T16:05:05Z"`
} // @name HealthResponse

type RoomPath struct {
	ID string `uri:"id" binding:"required,max=256"`
} // @name RoomPath
