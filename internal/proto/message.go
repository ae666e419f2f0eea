package proto

import "encoding/json"

// Inbound is the envelope for events coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Inbound event names.
const (
	InboundTypeRegister      = "register"
	InboundTypeLogin         = "login"
	InboundTypeVerifySession = "verify-session"
	InboundTypeMessage       = "message"
	InboundTypeEnterRoom     = "enterRoom"
	InboundTypeTryCreateRoom = "try-create-room"
)

// Outbound event names.
const (
	OutboundTypeRegisterSuccess   = "register-success"
	OutboundTypeLoginSuccess      = "login-success"
	OutboundTypeConnexionError    = "connexion-error"
	OutboundTypeSessionValid      = "session-valid"
	OutboundTypeSessionInvalid    = "session-invalid"
	OutboundTypeMessage           = "message"
	OutboundTypeMessageHistory    = "messageHistory"
	OutboundTypeRoomChanged       = "roomChanged"
	OutboundTypeUserList          = "userList"
	OutboundTypeRoomList          = "roomList"
	OutboundTypeCreateRoomSuccess = "create-room-success"
	OutboundTypeCreateRoomFailed  = "create-room-failed"
	OutboundTypeError             = "error"
)

// CredentialsData carries register and login requests.
type CredentialsData struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// VerifySessionData binds the connection to a known username.
type VerifySessionData struct {
	Username string `json:"username"`
}

// MessageData is a chat message from the client.
type MessageData struct {
	Text string `json:"text"`
}

// EnterRoomData requests a room switch. Name is the display name the
// client announces itself with; only RoomName is authoritative.
type EnterRoomData struct {
	Name     string `json:"name"`
	RoomName string `json:"roomName"`
}

// TryCreateRoomData requests an explicit room creation.
type TryCreateRoomData struct {
	RoomName string `json:"roomName"`
}

// Outbound is the envelope for events sent to the client.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// AuthData acknowledges register/login and carries the session token
// consumed by the upload endpoint.
type AuthData struct {
	Token string `json:"token"`
}

// ErrorData carries connexion-error, create-room-failed and error payloads.
type ErrorData struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// SessionValidData confirms a verified session.
type SessionValidData struct {
	Username string `json:"username"`
	UserID   int64  `json:"userId"`
	RoomName string `json:"roomName"`
}

// AttachmentData is upload metadata attached to a message.
type AttachmentData struct {
	URL          string `json:"url"`
	FileType     string `json:"fileType"`
	FileSize     int64  `json:"fileSize"`
	OriginalName string `json:"originalName"`
}

// EventMessage is one chat message or system notice.
type EventMessage struct {
	ID          int64           `json:"id,omitempty"`
	Name        string          `json:"name"`
	Text        string          `json:"text"`
	MessageType string          `json:"messageType"`
	Time        string          `json:"time"`
	Attachment  *AttachmentData `json:"attachment,omitempty"`
}

// MessageHistoryData is the history page served on room entry.
type MessageHistoryData struct {
	RoomName string         `json:"roomName"`
	Messages []EventMessage `json:"messages"`
}

// RoomChangedData tells the caller which room it now occupies.
type RoomChangedData struct {
	RoomName string `json:"roomName"`
}

// UserEntry is one occupant in a userList payload.
type UserEntry struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Status   string `json:"status"`
}

// UserListData lists the live occupants of a room.
type UserListData struct {
	RoomName string      `json:"roomName"`
	Users    []UserEntry `json:"users"`
}

// RoomEntry is one catalog entry in a roomList payload.
type RoomEntry struct {
	ID          int64  `json:"id"`
	RoomName    string `json:"room_name"`
	IsPermanent bool   `json:"isPermanent"`
	UserCount   int    `json:"userCount"`
}

// RoomListData is the room catalog with live member counts.
type RoomListData struct {
	Rooms []RoomEntry `json:"rooms"`
}

// CreateRoomSuccessData confirms an explicit room creation.
type CreateRoomSuccessData struct {
	RoomName string `json:"roomName"`
}

// CreateRoomFailedData reports why a creation was refused.
type CreateRoomFailedData struct {
	ErrorMessage string `json:"errorMessage"`
}
