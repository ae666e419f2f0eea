package core

import "testing"

func TestNormalizeRoomName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"general", "General"},
		{"GENERAL", "General"},
		{"  games  ", "Games"},
		{"mUsIC", "Music"},
		{"été", "Été"},
		{"a", "A"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := NormalizeRoomName(tc.in); got != tc.want {
			t.Errorf("NormalizeRoomName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeRoomNameIdempotent(t *testing.T) {
	for _, name := range []string{"general", "  Games ", "MUSIC"} {
		once := NormalizeRoomName(name)
		twice := NormalizeRoomName(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q != %q", name, once, twice)
		}
	}
}

func TestValidRoomName(t *testing.T) {
	if validRoomName("") || validRoomName("   ") {
		t.Error("blank names must be invalid")
	}
	if !validRoomName("games") {
		t.Error("simple name must be valid")
	}

	long := make([]rune, maxRoomNameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if validRoomName(string(long)) {
		t.Error("over-length name must be invalid")
	}
	if !validRoomName(string(long[:maxRoomNameLen])) {
		t.Error("name at the limit must be valid")
	}
}
