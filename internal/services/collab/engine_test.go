package collab

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func send(t *testing.T, e *Engine, socketID, event string, body any) []Effect {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return e.Dispatch(socketID, event, raw)
}

func connectAndJoin(t *testing.T, e *Engine, socketID, roomID, name string) []Effect {
	t.Helper()
	e.Connect(socketID)
	return send(t, e, socketID, EventJoin, JoinRequest{RoomID: roomID, Username: name})
}

// inbox resolves every effect to its recipients the way the hub does.
func inbox(e *Engine, effects []Effect) map[string][]Effect {
	out := make(map[string][]Effect)
	for _, eff := range effects {
		switch eff.Audience {
		case AudienceConn:
			out[eff.SocketID] = append(out[eff.SocketID], eff)
		case AudienceRoom:
			for _, id := range e.Members(eff.RoomID) {
				out[id] = append(out[id], eff)
			}
		case AudienceRoomExceptSender:
			for _, id := range e.Members(eff.RoomID) {
				if id != eff.SocketID {
					out[id] = append(out[id], eff)
				}
			}
		}
	}
	return out
}

func eventsOf(effects []Effect) []string {
	names := make([]string, 0, len(effects))
	for _, eff := range effects {
		names = append(names, eff.Event)
	}
	return names
}

func TestFirstJoinCreatesRoomWithDefaults(t *testing.T) {
	e := NewEngine(Options{})

	effects := connectAndJoin(t, e, "A", "abc", "alice")
	got := inbox(e, effects)["A"]

	require.NotEmpty(t, got)
	assert.Equal(t, EventJoined, got[0].Event)
	assert.Equal(t, JoinedPayload{
		Clients:  []Client{{SocketID: "A", Username: "alice"}},
		Username: "alice",
		SocketID: "A",
	}, got[0].Payload)

	// no document yet, so no code-change in the sync bundle
	assert.Equal(t, []string{EventJoined, EventLanguageChange, EventThemeChange, EventFileList}, eventsOf(got))
	assert.Equal(t, LanguagePayload{Language: "javascript"}, got[1].Payload)
	assert.Equal(t, ThemePayload{Theme: "dracula"}, got[2].Payload)
	assert.Equal(t, FileListPayload{Files: []FileEntry{{ID: "1", Name: "main", Language: "javascript"}}}, got[3].Payload)

	settings, ok := e.Store().Settings("abc")
	require.True(t, ok)
	assert.Equal(t, Settings{Language: "javascript", Theme: "dracula"}, settings)
}

func TestJoinNotifiesEveryMemberIndividually(t *testing.T) {
	e := NewEngine(Options{})
	connectAndJoin(t, e, "A", "abc", "alice")

	effects := connectAndJoin(t, e, "B", "abc", "bob")

	want := JoinedPayload{
		Clients:  []Client{{SocketID: "A", Username: "alice"}, {SocketID: "B", Username: "bob"}},
		Username: "bob",
		SocketID: "B",
	}
	for _, id := range []string{"A", "B"} {
		var joined []Effect
		for _, eff := range effects {
			if eff.Event == EventJoined && eff.SocketID == id {
				joined = append(joined, eff)
			}
		}
		require.Len(t, joined, 1, "member %s", id)
		assert.Equal(t, AudienceConn, joined[0].Audience)
		assert.Equal(t, want, joined[0].Payload)
	}
}

func TestCodeChangeSkipsSender(t *testing.T) {
	e := NewEngine(Options{})
	connectAndJoin(t, e, "A", "R", "alice")
	connectAndJoin(t, e, "B", "R", "bob")

	got := inbox(e, send(t, e, "A", EventCodeChange, CodeChangeRequest{RoomID: "R", Code: "x"}))

	assert.Empty(t, got["A"])
	require.Len(t, got["B"], 1)
	assert.Equal(t, EventCodeChange, got["B"][0].Event)
	assert.Equal(t, CodePayload{Code: "x"}, got["B"][0].Payload)

	code, ok := e.Store().Code("R")
	require.True(t, ok)
	assert.Equal(t, "x", code)
}

func TestCodeChangeLastWriteWins(t *testing.T) {
	e := NewEngine(Options{})
	connectAndJoin(t, e, "A", "R", "alice")
	connectAndJoin(t, e, "B", "R", "bob")

	send(t, e, "A", EventCodeChange, CodeChangeRequest{RoomID: "R", Code: "from alice"})
	send(t, e, "B", EventCodeChange, CodeChangeRequest{RoomID: "R", Code: "from bob"})

	code, _ := e.Store().Code("R")
	assert.Equal(t, "from bob", code)
}

func TestLateJoinerReceivesDocument(t *testing.T) {
	e := NewEngine(Options{})
	connectAndJoin(t, e, "A", "R", "alice")
	send(t, e, "A", EventCodeChange, CodeChangeRequest{RoomID: "R", Code: "let v = 1"})

	got := inbox(e, connectAndJoin(t, e, "C", "R", "carol"))["C"]

	assert.Contains(t, got, Effect{
		Audience: AudienceConn,
		SocketID: "C",
		Event:    EventCodeChange,
		Payload:  CodePayload{Code: "let v = 1"},
	})
}

func TestSettingsChangesReachSender(t *testing.T) {
	e := NewEngine(Options{})
	connectAndJoin(t, e, "A", "abc", "alice")
	connectAndJoin(t, e, "B", "abc", "bob")

	got := inbox(e, send(t, e, "A", EventThemeChange, ThemeChangeRequest{RoomID: "abc", Theme: "nord"}))
	for _, id := range []string{"A", "B"} {
		require.Len(t, got[id], 1)
		assert.Equal(t, ThemePayload{Theme: "nord"}, got[id][0].Payload)
	}

	got = inbox(e, send(t, e, "B", EventLanguageChange, LanguageChangeRequest{RoomID: "abc", Language: "python"}))
	for _, id := range []string{"A", "B"} {
		require.Len(t, got[id], 1)
		assert.Equal(t, LanguagePayload{Language: "python"}, got[id][0].Payload)
	}

	late := inbox(e, connectAndJoin(t, e, "C", "abc", "carol"))["C"]
	assert.Contains(t, late, toConn("C", EventThemeChange, ThemePayload{Theme: "nord"}))
	assert.Contains(t, late, toConn("C", EventLanguageChange, LanguagePayload{Language: "python"}))
}

func TestSettingsChangeOnUnknownRoomIsDropped(t *testing.T) {
	e := NewEngine(Options{})
	e.Connect("A")

	assert.Nil(t, send(t, e, "A", EventThemeChange, ThemeChangeRequest{RoomID: "ghost", Theme: "nord"}))
	assert.Nil(t, send(t, e, "A", EventCodeChange, CodeChangeRequest{RoomID: "ghost", Code: "x"}))
	assert.False(t, e.Store().Has("ghost"))
}

func TestCursorChangeCarriesOwnerName(t *testing.T) {
	e := NewEngine(Options{})
	connectAndJoin(t, e, "A", "R", "alice")
	connectAndJoin(t, e, "B", "R", "bob")

	got := inbox(e, send(t, e, "A", EventCursorChange, CursorChangeRequest{
		RoomID:   "R",
		Cursor:   json.RawMessage(`{"line":3,"ch":7}`),
		SocketID: "spoofed",
	}))

	assert.Empty(t, got["A"])
	require.Len(t, got["B"], 1)
	p := got["B"][0].Payload.(CursorPayload)
	assert.JSONEq(t, `{"line":3,"ch":7}`, string(p.Cursor))
	assert.Equal(t, "A", p.SocketID)
	assert.Equal(t, "alice", p.Username)
}

func TestChatMessageIsRelayedVerbatim(t *testing.T) {
	e := NewEngine(Options{})
	connectAndJoin(t, e, "A", "R", "alice")
	connectAndJoin(t, e, "B", "R", "bob")

	got := inbox(e, send(t, e, "A", EventChatMessage, ChatMessageRequest{
		RoomID:    "R",
		Username:  "alice",
		Message:   "hi",
		Timestamp: json.RawMessage(`"10:42:01 AM"`),
	}))

	for _, id := range []string{"A", "B"} {
		require.Len(t, got[id], 1)
		raw, err := json.Marshal(got[id][0].Payload)
		require.NoError(t, err)
		assert.JSONEq(t, `{"username":"alice","message":"hi","timestamp":"10:42:01 AM"}`, string(raw))
	}
}

func TestGetFileListAnswersOnlyRequester(t *testing.T) {
	e := NewEngine(Options{})
	connectAndJoin(t, e, "A", "R", "alice")
	connectAndJoin(t, e, "B", "R", "bob")

	effects := send(t, e, "B", EventGetFileList, GetFileListRequest{RoomID: "R"})

	require.Len(t, effects, 1)
	assert.Equal(t, toConn("B", EventFileList, FileListPayload{
		Files: []FileEntry{{ID: "1", Name: "main", Language: "javascript"}},
	}), effects[0])
}

func TestAddFileIsIdempotentByID(t *testing.T) {
	e := NewEngine(Options{})
	connectAndJoin(t, e, "A", "R", "alice")
	connectAndJoin(t, e, "B", "R", "bob")

	file := FileEntry{ID: "17", Name: "util.js", Language: "javascript"}
	got := inbox(e, send(t, e, "A", EventAddFile, AddFileRequest{RoomID: "R", File: &file}))
	for _, id := range []string{"A", "B"} {
		require.Len(t, got[id], 1)
		assert.Equal(t, FileAddedPayload{File: file}, got[id][0].Payload)
	}

	dup := FileEntry{ID: "17", Name: "other.js", Language: "javascript"}
	assert.Nil(t, send(t, e, "B", EventAddFile, AddFileRequest{RoomID: "R", File: &dup}))

	files, _ := e.Store().Files("R")
	assert.Equal(t, []FileEntry{{ID: "1", Name: "main", Language: "javascript"}, file}, files)
}

func TestRemoveFile(t *testing.T) {
	e := NewEngine(Options{})
	connectAndJoin(t, e, "A", "R", "alice")
	file := FileEntry{ID: "2", Name: "b.js", Language: "javascript"}
	send(t, e, "A", EventAddFile, AddFileRequest{RoomID: "R", File: &file})

	t.Run("unknown id is a silent no-op", func(t *testing.T) {
		assert.Nil(t, send(t, e, "A", EventRemoveFile, RemoveFileRequest{RoomID: "R", FileID: "404"}))
		files, _ := e.Store().Files("R")
		assert.Len(t, files, 2)
	})

	t.Run("listed id is removed and broadcast", func(t *testing.T) {
		effects := send(t, e, "A", EventRemoveFile, RemoveFileRequest{RoomID: "R", FileID: "2"})
		require.Len(t, effects, 1)
		assert.Equal(t, toRoom("R", EventFileRemoved, FileRemovedPayload{FileID: "2"}), effects[0])
		files, _ := e.Store().Files("R")
		assert.Equal(t, []FileEntry{{ID: "1", Name: "main", Language: "javascript"}}, files)
	})

	t.Run("default entry is not protected", func(t *testing.T) {
		require.Len(t, send(t, e, "A", EventRemoveFile, RemoveFileRequest{RoomID: "R", FileID: "1"}), 1)
		files, _ := e.Store().Files("R")
		assert.Empty(t, files)
	})
}

func TestMalformedEventsAreDropped(t *testing.T) {
	e := NewEngine(Options{})
	connectAndJoin(t, e, "A", "R", "alice")

	cases := []struct {
		name  string
		event string
		body  string
	}{
		{"join without username", EventJoin, `{"roomId":"R"}`},
		{"join without room", EventJoin, `{"username":"x"}`},
		{"code change without room", EventCodeChange, `{"code":"x"}`},
		{"cursor without cursor", EventCursorChange, `{"roomId":"R"}`},
		{"chat without message", EventChatMessage, `{"roomId":"R","username":"alice"}`},
		{"add file without file", EventAddFile, `{"roomId":"R"}`},
		{"add file without id", EventAddFile, `{"roomId":"R","file":{"name":"x"}}`},
		{"remove file without id", EventRemoveFile, `{"roomId":"R"}`},
		{"invalid json", EventThemeChange, `{"roomId":`},
		{"wrong type", EventLanguageChange, `{"roomId":1,"language":"go"}`},
		{"empty body", EventGetFileList, ``},
		{"unknown event", "format-disk", `{}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Nil(t, e.Dispatch("A", tc.event, json.RawMessage(tc.body)))
		})
	}

	// nothing above changed the room
	files, _ := e.Store().Files("R")
	assert.Len(t, files, 1)
	_, hasCode := e.Store().Code("R")
	assert.False(t, hasCode)
}

func TestSyncCode(t *testing.T) {
	e := NewEngine(Options{})
	connectAndJoin(t, e, "A", "R", "alice")

	assert.Nil(t, send(t, e, "A", EventSyncCode, SyncCodeRequest{RoomID: "R"}))

	send(t, e, "A", EventCodeChange, CodeChangeRequest{RoomID: "R", Code: "abc"})
	assert.Equal(t, []Effect{toConn("A", EventCodeChange, CodePayload{Code: "abc"})},
		send(t, e, "A", EventSyncCode, SyncCodeRequest{RoomID: "R"}))
}

func TestLeave(t *testing.T) {
	e := NewEngine(Options{})
	connectAndJoin(t, e, "A", "R", "alice")
	connectAndJoin(t, e, "B", "R", "bob")

	got := inbox(e, send(t, e, "A", EventLeave, LeaveRequest{RoomID: "R"}))

	assert.Empty(t, got["A"])
	require.Len(t, got["B"], 1)
	assert.Equal(t, DisconnectedPayload{SocketID: "A", Username: "alice"}, got["B"][0].Payload)
	assert.Equal(t, []string{"B"}, e.Members("R"))

	assert.Nil(t, send(t, e, "A", EventLeave, LeaveRequest{RoomID: "R"}))
}

func TestRejoinRebindsName(t *testing.T) {
	e := NewEngine(Options{})
	connectAndJoin(t, e, "A", "R", "alice")

	effects := send(t, e, "A", EventJoin, JoinRequest{RoomID: "R", Username: "alicia"})

	require.NotEmpty(t, effects)
	assert.Equal(t, []Client{{SocketID: "A", Username: "alicia"}}, effects[0].Payload.(JoinedPayload).Clients)
	assert.Equal(t, []string{"A"}, e.Members("R"))
}

type recordingObserver struct {
	opened, closed []string
}

func (r *recordingObserver) RoomOpened(id string) { r.opened = append(r.opened, id) }
func (r *recordingObserver) RoomClosed(id string) { r.closed = append(r.closed, id) }

func TestObserverSeesRealRoomsOnly(t *testing.T) {
	obs := &recordingObserver{}
	e := NewEngine(Options{Observer: obs})

	connectAndJoin(t, e, "A", "R", "alice")
	connectAndJoin(t, e, "B", "R", "bob")
	e.Disconnect("A")
	e.Disconnect("B")

	assert.Equal(t, []string{"R"}, obs.opened)
	assert.Equal(t, []string{"R"}, obs.closed)
}

func TestSweepEvictsIdleRooms(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	e := NewEngine(Options{RoomIdleTTL: time.Minute, Now: func() time.Time { return now }})

	connectAndJoin(t, e, "A", "idle", "alice")
	connectAndJoin(t, e, "B", "busy", "bob")
	e.Disconnect("A")

	now = now.Add(30 * time.Second)
	assert.Empty(t, e.Sweep())

	now = now.Add(31 * time.Second)
	assert.Equal(t, []string{"idle"}, e.Sweep())
	assert.False(t, e.Store().Has("idle"))
	assert.True(t, e.Store().Has("busy"))
}

func TestSweepDisabledKeepsRoomsForever(t *testing.T) {
	now := time.Now()
	e := NewEngine(Options{Now: func() time.Time { return now }})
	connectAndJoin(t, e, "A", "R", "alice")
	e.Disconnect("A")

	now = now.Add(24 * time.Hour)
	assert.Empty(t, e.Sweep())
	assert.True(t, e.Store().Has("R"))
}

func TestRejoinCancelsEviction(t *testing.T) {
	now := time.Now()
	e := NewEngine(Options{RoomIdleTTL: time.Minute, Now: func() time.Time { return now }})
	connectAndJoin(t, e, "A", "R", "alice")
	e.Disconnect("A")

	now = now.Add(50 * time.Second)
	connectAndJoin(t, e, "B", "R", "bob")

	now = now.Add(time.Hour)
	assert.Empty(t, e.Sweep())
}

func TestStatsAndRooms(t *testing.T) {
	e := NewEngine(Options{})
	connectAndJoin(t, e, "A", "a", "alice")
	connectAndJoin(t, e, "B", "b", "bob")
	e.Connect("C")
	e.Disconnect("B")

	assert.Equal(t, Stats{Connections: 2, Rooms: 2, ActiveRooms: 1}, e.Stats())

	rooms := e.Rooms()
	require.Len(t, rooms, 2)
	assert.Equal(t, RoomSummary{ID: "a", Members: 1, Language: "javascript", Theme: "dracula", Files: 1}, rooms[0])
	assert.Equal(t, 0, rooms[1].Members)

	snap, err := e.Snapshot("a")
	require.NoError(t, err)
	assert.Equal(t, []Client{{SocketID: "A", Username: "alice"}}, snap.Clients)

	_, err = e.Snapshot("zzz")
	assert.ErrorIs(t, err, ErrUnknownRoom)
}

func TestObserverBalancedWhenRoomIDIsAConnectionID(t *testing.T) {
	t.Run("owner leaves last", func(t *testing.T) {
		obs := &recordingObserver{}
		e := NewEngine(Options{Observer: obs})
		e.Connect("A")
		connectAndJoin(t, e, "B", "A", "bob")

		send(t, e, "B", EventLeave, LeaveRequest{RoomID: "A"})
		assert.Empty(t, obs.closed)
		e.Disconnect("A")

		assert.Equal(t, []string{"A"}, obs.opened)
		assert.Equal(t, []string{"A"}, obs.closed)
	})

	t.Run("owner leaves first", func(t *testing.T) {
		obs := &recordingObserver{}
		e := NewEngine(Options{Observer: obs})
		e.Connect("A")
		connectAndJoin(t, e, "B", "A", "bob")

		e.Disconnect("A")
		e.Disconnect("B")

		assert.Equal(t, []string{"A"}, obs.opened)
		assert.Equal(t, []string{"A"}, obs.closed)
	})
}
