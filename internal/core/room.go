package core

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxRoomNameLen bounds room names before normalization.
const maxRoomNameLen = 64

// NormalizeRoomName is the canonical-casing transform applied to every room
// name before lookup, create or compare: trim whitespace, uppercase the
// first rune, lowercase the remainder. Idempotent.
func NormalizeRoomName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}

	first, size := utf8.DecodeRuneInString(trimmed)
	return string(unicode.ToUpper(first)) + strings.ToLower(trimmed[size:])
}

// validRoomName reports whether a raw name survives normalization.
func validRoomName(name string) bool {
	trimmed := strings.TrimSpace(name)
	return trimmed != "" && utf8.RuneCountInString(trimmed) <= maxRoomNameLen
}

// RoomSummary is one room catalog entry with its live member count, as
// published in room list broadcasts.
type RoomSummary struct {
	ID          int64
	Name        string
	IsPermanent bool
	UserCount   int
}
