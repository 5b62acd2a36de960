package collab

import (
	"encoding/json"
	"fmt"
)

// ApplyRemote replays a room broadcast that another instance produced. The
// state-bearing events update the local store when this instance knows the
// room; every event is then delivered to local members except exclude.
func (e *Engine) ApplyRemote(roomID, event, exclude string, body json.RawMessage) ([]Effect, error) {
	var payload any
	switch event {
	case EventCodeChange:
		var p CodePayload
		if err := decodeRemote(body, &p); err != nil {
			return nil, err
		}
		e.store.SetCode(roomID, p.Code)
		payload = p
	case EventLanguageChange:
		var p LanguagePayload
		if err := decodeRemote(body, &p); err != nil {
			return nil, err
		}
		e.store.SetLanguage(roomID, p.Language)
		payload = p
	case EventThemeChange:
		var p ThemePayload
		if err := decodeRemote(body, &p); err != nil {
			return nil, err
		}
		e.store.SetTheme(roomID, p.Theme)
		payload = p
	case EventFileAdded:
		var p FileAddedPayload
		if err := decodeRemote(body, &p); err != nil {
			return nil, err
		}
		_ = e.store.AddFile(roomID, p.File)
		payload = p
	case EventFileRemoved:
		var p FileRemovedPayload
		if err := decodeRemote(body, &p); err != nil {
			return nil, err
		}
		_ = e.store.RemoveFile(roomID, p.FileID)
		payload = p
	default:
		// cursor, chat and departure notices carry no room state
		payload = body
	}

	if exclude == "" {
		return []Effect{toRoom(roomID, event, payload)}, nil
	}
	return []Effect{toOthers(roomID, exclude, event, payload)}, nil
}

func decodeRemote(body json.RawMessage, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
