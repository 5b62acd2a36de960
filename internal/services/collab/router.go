package collab

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ConnContext identifies the connection an event came from.
type ConnContext struct {
	SocketID string
}

// internal (untyped) handler signature.
type rawHandler func(c ConnContext, body json.RawMessage) ([]Effect, error)

// Router keeps a map[event]handler. Every handler decodes and validates its
// payload before running, so a handler only ever sees well-formed requests.
type Router struct {
	handlers map[string]rawHandler
	validate *validator.Validate
}

func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]rawHandler),
		validate: validator.New(),
	}
}

// Register binds an event to a strongly-typed handler.
func Register[Req any](
	r *Router,
	event string,
	h func(c ConnContext, req Req) ([]Effect, error),
) {
	if event == "" {
		panic("collab router: empty event")
	}

	r.handlers[event] = func(c ConnContext, body json.RawMessage) ([]Effect, error) {
		var req Req
		if len(body) == 0 {
			return nil, fmt.Errorf("%w: empty body", ErrMalformed)
		}
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if err := r.validate.Struct(req); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return h(c, req)
	}
}

// Has reports whether an event name has a handler.
func (r *Router) Has(event string) bool {
	_, ok := r.handlers[event]
	return ok
}

func (r *Router) dispatch(c ConnContext, event string, body json.RawMessage) ([]Effect, error) {
	h, ok := r.handlers[event]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	return h(c, body)
}
