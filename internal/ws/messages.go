package ws

import (
	"encoding/json"
	"fmt"
)

// Envelope wraps every WS frame.
type Envelope struct {
	Event string          `json:"event"`          // e.g. "code-change"
	Body  json.RawMessage `json:"body,omitempty"` // event payload
}

// outEnvelope is the encoding side of Envelope; the body is marshalled
// straight from the handler's payload value.
type outEnvelope struct {
	Event string `json:"event"`
	Body  any    `json:"body"`
}

func encodeFrame(event string, payload any) ([]byte, error) {
	b, err := json.Marshal(outEnvelope{Event: event, Body: payload})
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return b, nil
}

func decodeFrame(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, err
	}
	if env.Event == "" {
		return env, fmt.Errorf("frame without event")
	}
	return env, nil
}
