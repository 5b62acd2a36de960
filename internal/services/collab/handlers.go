package collab

func (e *Engine) registerHandlers() {
	Register(e.router, EventJoin, e.join)
	Register(e.router, EventLeave, e.leave)
	Register(e.router, EventCodeChange, e.codeChange)
	Register(e.router, EventSyncCode, e.syncCode)
	Register(e.router, EventCursorChange, e.cursorChange)
	Register(e.router, EventLanguageChange, e.languageChange)
	Register(e.router, EventThemeChange, e.themeChange)
	Register(e.router, EventChatMessage, e.chatMessage)
	Register(e.router, EventGetFileList, e.getFileList)
	Register(e.router, EventAddFile, e.addFile)
	Register(e.router, EventRemoveFile, e.removeFile)
}

// join binds the connection to the room and name, tells every member (the
// joiner included) who is in the room, then brings the joiner up to date.
func (e *Engine) join(c ConnContext, req JoinRequest) ([]Effect, error) {
	e.registry.Bind(c.SocketID, req.Username)
	e.store.Ensure(req.RoomID)
	e.enterRoom(c.SocketID, req.RoomID)

	clients := e.clientsOf(req.RoomID)
	effects := make([]Effect, 0, len(clients)+4)
	for _, m := range clients {
		effects = append(effects, toConn(m.SocketID, EventJoined, JoinedPayload{
			Clients:  clients,
			Username: req.Username,
			SocketID: c.SocketID,
		}))
	}
	if _, pending := e.hydrating[req.RoomID]; pending {
		// Hydrate sends the bundle once the shared state is in.
		return effects, nil
	}
	return append(effects, e.syncBundle(c.SocketID, req.RoomID)...), nil
}

// syncBundle is the room state a fresh member needs to converge.
func (e *Engine) syncBundle(socketID, roomID string) []Effect {
	var out []Effect
	if code, ok := e.store.Code(roomID); ok {
		out = append(out, toConn(socketID, EventCodeChange, CodePayload{Code: code}))
	}
	if st, ok := e.store.Settings(roomID); ok {
		out = append(out,
			toConn(socketID, EventLanguageChange, LanguagePayload{Language: st.Language}),
			toConn(socketID, EventThemeChange, ThemePayload{Theme: st.Theme}),
		)
	}
	if files, ok := e.store.Files(roomID); ok {
		out = append(out, toConn(socketID, EventFileList, FileListPayload{Files: files}))
	}
	return out
}

func (e *Engine) leave(c ConnContext, req LeaveRequest) ([]Effect, error) {
	if !e.members.IsMember(c.SocketID, req.RoomID) {
		return nil, ErrNotMember
	}
	name, _ := e.registry.Name(c.SocketID)
	effects := []Effect{toOthers(req.RoomID, c.SocketID, EventDisconnected, DisconnectedPayload{
		SocketID: c.SocketID,
		Username: name,
	})}
	return append(effects, e.exitRoom(c.SocketID, req.RoomID)...), nil
}

func (e *Engine) codeChange(c ConnContext, req CodeChangeRequest) ([]Effect, error) {
	if err := e.requireRoom(req.RoomID); err != nil {
		return nil, err
	}
	e.store.SetCode(req.RoomID, req.Code)
	return []Effect{toOthers(req.RoomID, c.SocketID, EventCodeChange, CodePayload{Code: req.Code})}, nil
}

func (e *Engine) syncCode(c ConnContext, req SyncCodeRequest) ([]Effect, error) {
	code, ok := e.store.Code(req.RoomID)
	if !ok {
		return nil, ErrNothingToSync
	}
	return []Effect{toConn(c.SocketID, EventCodeChange, CodePayload{Code: code})}, nil
}

// cursorChange is not persisted. The owner is always the sender.
func (e *Engine) cursorChange(c ConnContext, req CursorChangeRequest) ([]Effect, error) {
	if err := e.requireRoom(req.RoomID); err != nil {
		return nil, err
	}
	name, _ := e.registry.Name(c.SocketID)
	return []Effect{toOthers(req.RoomID, c.SocketID, EventCursorChange, CursorPayload{
		Cursor:   req.Cursor,
		SocketID: c.SocketID,
		Username: name,
	})}, nil
}

func (e *Engine) languageChange(_ ConnContext, req LanguageChangeRequest) ([]Effect, error) {
	if !e.store.SetLanguage(req.RoomID, req.Language) {
		return nil, ErrUnknownRoom
	}
	return []Effect{toRoom(req.RoomID, EventLanguageChange, LanguagePayload{Language: req.Language})}, nil
}

func (e *Engine) themeChange(_ ConnContext, req ThemeChangeRequest) ([]Effect, error) {
	if !e.store.SetTheme(req.RoomID, req.Theme) {
		return nil, ErrUnknownRoom
	}
	return []Effect{toRoom(req.RoomID, EventThemeChange, ThemePayload{Theme: req.Theme})}, nil
}

// chatMessage is relayed verbatim and never stored.
func (e *Engine) chatMessage(_ ConnContext, req ChatMessageRequest) ([]Effect, error) {
	if err := e.requireRoom(req.RoomID); err != nil {
		return nil, err
	}
	return []Effect{toRoom(req.RoomID, EventChatMessage, ChatPayload{
		Username:  req.Username,
		Message:   req.Message,
		Timestamp: req.Timestamp,
	})}, nil
}

func (e *Engine) getFileList(c ConnContext, req GetFileListRequest) ([]Effect, error) {
	files, ok := e.store.Files(req.RoomID)
	if !ok {
		return nil, ErrUnknownRoom
	}
	return []Effect{toConn(c.SocketID, EventFileList, FileListPayload{Files: files})}, nil
}

// addFile ignores a file whose id is already listed.
func (e *Engine) addFile(_ ConnContext, req AddFileRequest) ([]Effect, error) {
	if err := e.store.AddFile(req.RoomID, *req.File); err != nil {
		return nil, err
	}
	return []Effect{toRoom(req.RoomID, EventFileAdded, FileAddedPayload{File: *req.File})}, nil
}

// removeFile of an id that is not listed is a no-op and broadcasts nothing.
func (e *Engine) removeFile(_ ConnContext, req RemoveFileRequest) ([]Effect, error) {
	if err := e.store.RemoveFile(req.RoomID, req.FileID); err != nil {
		return nil, err
	}
	return []Effect{toRoom(req.RoomID, EventFileRemoved, FileRemovedPayload{FileID: req.FileID})}, nil
}
