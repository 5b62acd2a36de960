package collab

import "encoding/json"

// Event names of the wire contract.
const (
	EventJoin           = "join"
	EventJoined         = "joined"
	EventLeave          = "leave"
	EventDisconnected   = "disconnected"
	EventCodeChange     = "code-change"
	EventSyncCode       = "sync-code"
	EventCursorChange   = "cursor-change"
	EventLanguageChange = "language-change"
	EventThemeChange    = "theme-change"
	EventChatMessage    = "chat-message"
	EventGetFileList    = "get-file-list"
	EventFileList       = "file-list"
	EventAddFile        = "add-file"
	EventFileAdded      = "file-added"
	EventRemoveFile     = "remove-file"
	EventFileRemoved    = "file-removed"
)

// ──────────────────────────── shared shapes ──────────────────────────────────

// FileEntry is one file of a room's file list.
type FileEntry struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

// Settings is the per-room editor settings record.
type Settings struct {
	Language string `json:"language"`
	Theme    string `json:"theme"`
}

// Client is a room member as presented to other members.
type Client struct {
	SocketID string `json:"socketId"`
	Username string `json:"username"`
}

// ──────────────────────────── inbound (client → server) ───────────────────────

type JoinRequest struct {
	RoomID   string `json:"roomId"   validate:"required"`
	Username string `json:"username" validate:"required"`
}

type LeaveRequest struct {
	RoomID string `json:"roomId" validate:"required"`
}

type CodeChangeRequest struct {
	RoomID string `json:"roomId" validate:"required"`
	Code   string `json:"code"`
}

type SyncCodeRequest struct {
	RoomID string `json:"roomId" validate:"required"`
}

// CursorChangeRequest carries the editor cursor as an opaque object
// ({line, ch} for CodeMirror); it is relayed without reinterpretation.
type CursorChangeRequest struct {
	RoomID   string          `json:"roomId"   validate:"required"`
	Cursor   json.RawMessage `json:"cursor"   validate:"required"`
	SocketID string          `json:"socketId"`
}

type LanguageChangeRequest struct {
	RoomID   string `json:"roomId"   validate:"required"`
	Language string `json:"language" validate:"required"`
}

type ThemeChangeRequest struct {
	RoomID string `json:"roomId" validate:"required"`
	Theme  string `json:"theme"  validate:"required"`
}

// ChatMessageRequest keeps the client timestamp as raw JSON so it is
// echoed back exactly as sent.
type ChatMessageRequest struct {
	RoomID    string          `json:"roomId"   validate:"required"`
	Username  string          `json:"username" validate:"required"`
	Message   string          `json:"message"  validate:"required"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

type GetFileListRequest struct {
	RoomID string `json:"roomId" validate:"required"`
}

type AddFileRequest struct {
	RoomID string     `json:"roomId" validate:"required"`
	File   *FileEntry `json:"file"   validate:"required"`
}

type RemoveFileRequest struct {
	RoomID string `json:"roomId" validate:"required"`
	FileID string `json:"fileId" validate:"required"`
}

// ──────────────────────────── outbound (server → client) ──────────────────────

type JoinedPayload struct {
	Clients  []Client `json:"clients"`
	Username string   `json:"username"`
	SocketID string   `json:"socketId"`
}

type DisconnectedPayload struct {
	SocketID string `json:"socketId"`
	Username string `json:"username"`
}

type CodePayload struct {
	Code string `json:"code"`
}

type CursorPayload struct {
	Cursor   json.RawMessage `json:"cursor"`
	SocketID string          `json:"socketId"`
	Username string          `json:"username"`
}

type LanguagePayload struct {
	Language string `json:"language"`
}

type ThemePayload struct {
	Theme string `json:"theme"`
}

type ChatPayload struct {
	Username  string          `json:"username"`
	Message   string          `json:"message"`
	Timestamp json.RawMessage `json:"timestamp,omitempty"`
}

type FileListPayload struct {
	Files []FileEntry `json:"files"`
}

type FileAddedPayload struct {
	File FileEntry `json:"file"`
}

type FileRemovedPayload struct {
	FileID string `json:"fileId"`
}
