package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"codecollabgo/internal/services/collab"

	"github.com/redis/go-redis/v9"
)

// stateKey is the hash holding a room's latest shared state. Every instance
// that publishes a state-bearing event rewrites it, so a room opened on
// another instance starts from it instead of from defaults.
func stateKey(roomID string) string {
	return "room:" + roomID + ":state"
}

func stateFields(st collab.RoomState) ([]any, error) {
	files, err := json.Marshal(st.Files)
	if err != nil {
		return nil, err
	}
	hasCode := "0"
	if st.HasCode {
		hasCode = "1"
	}
	return []any{
		"code", st.Code,
		"has_code", hasCode,
		"language", st.Settings.Language,
		"theme", st.Settings.Theme,
		"files", string(files),
	}, nil
}

// parseState turns HGETALL output back into a state; nil when the room was
// never written.
func parseState(h map[string]string) (*collab.RoomState, error) {
	if len(h) == 0 {
		return nil, nil
	}
	st := &collab.RoomState{
		Code:    h["code"],
		HasCode: h["has_code"] == "1",
		Settings: collab.Settings{
			Language: h["language"],
			Theme:    h["theme"],
		},
	}
	if raw := h["files"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &st.Files); err != nil {
			return nil, fmt.Errorf("files of room state: %w", err)
		}
	}
	return st, nil
}

func fetchState(ctx context.Context, rdb *redis.Client, roomID string) (*collab.RoomState, error) {
	h, err := rdb.HGetAll(ctx, stateKey(roomID)).Result()
	if err != nil {
		return nil, err
	}
	return parseState(h)
}
