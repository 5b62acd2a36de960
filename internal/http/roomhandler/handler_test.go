package roomhandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"codecollabgo/internal/services/collab"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRooms struct {
	stats collab.Stats
	rooms []collab.RoomSummary
	snaps map[string]collab.RoomSnapshot
	err   error
}

func (f *fakeRooms) Stats(context.Context) (collab.Stats, error) { return f.stats, f.err }

func (f *fakeRooms) Rooms(context.Context) ([]collab.RoomSummary, error) { return f.rooms, f.err }

func (f *fakeRooms) Room(_ context.Context, id string) (collab.RoomSnapshot, error) {
	if f.err != nil {
		return collab.RoomSnapshot{}, f.err
	}
	snap, ok := f.snaps[id]
	if !ok {
		return collab.RoomSnapshot{}, collab.ErrUnknownRoom
	}
	return snap, nil
}

func newRouter(rooms RoomReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	New(rooms).Register(r)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	w := get(newRouter(&fakeRooms{}), "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var got HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "ok", got.Status)
	assert.False(t, got.Timestamp.IsZero())
}

func TestStats(t *testing.T) {
	w := get(newRouter(&fakeRooms{stats: collab.Stats{Connections: 3, Rooms: 2, ActiveRooms: 1}}), "/api/stats")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"connections":3,"rooms":2,"active_rooms":1}`, w.Body.String())
}

func TestListRooms(t *testing.T) {
	rooms := []collab.RoomSummary{{ID: "abc", Members: 2, Language: "go", Theme: "nord", Files: 1}}
	w := get(newRouter(&fakeRooms{rooms: rooms}), "/api/rooms")
	require.Equal(t, http.StatusOK, w.Code)

	var got []collab.RoomSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, rooms, got)
}

func TestRoomInfo(t *testing.T) {
	snap := collab.RoomSnapshot{
		ID:       "abc",
		Code:     "x",
		HasCode:  true,
		Settings: collab.Settings{Language: "go", Theme: "nord"},
		Files:    []collab.FileEntry{{ID: "1", Name: "main", Language: "go"}},
		Clients:  []collab.Client{{SocketID: "s1", Username: "alice"}},
	}
	r := newRouter(&fakeRooms{snaps: map[string]collab.RoomSnapshot{"abc": snap}})

	w := get(r, "/api/rooms/abc")
	require.Equal(t, http.StatusOK, w.Code)
	var got collab.RoomSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, snap, got)

	w = get(r, "/api/rooms/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHubUnavailable(t *testing.T) {
	r := newRouter(&fakeRooms{err: context.DeadlineExceeded})
	for _, path := range []string{"/api/stats", "/api/rooms", "/api/rooms/abc"} {
		assert.Equal(t, http.StatusServiceUnavailable, get(r, path).Code, path)
	}
}
