package core

import "errors"

// Error codes for coordinator-level failures. They are surfaced to the
// originating connection only and never crash the process.
const (
	ErrCodeNotAuthenticated  = "not_authenticated"
	ErrCodeSessionInvalid    = "session_invalid"
	ErrCodeInvalidName       = "invalid_name"
	ErrCodeRoomExists        = "room_exists"
	ErrCodeRoomNotFound      = "room_not_found"
	ErrCodeDuplicateUsername = "duplicate_username"
	ErrCodeWrongCredentials  = "wrong_credentials"
	ErrCodeStoreFailure      = "store_failure"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidName      = errors.New("invalid name")
	ErrRoomExists       = errors.New("room exists")
	ErrRoomNotFound     = errors.New("room not found")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
