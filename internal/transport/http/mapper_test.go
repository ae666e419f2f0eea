package http

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/salon-chat/salon-server/internal/core"
	"github.com/salon-chat/salon-server/internal/proto"
	"github.com/salon-chat/salon-server/internal/store"
)

func inbound(t *testing.T, typ string, data any) proto.Inbound {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return proto.Inbound{Type: typ, Data: raw}
}

func TestInboundToCommand(t *testing.T) {
	cmd, errData, err := inboundToCommand(inbound(t, proto.InboundTypeVerifySession, proto.VerifySessionData{Username: "alice"}))
	if err != nil || errData != nil {
		t.Fatalf("verify-session: %v, %+v", err, errData)
	}
	if cmd.Kind != core.CommandVerifySession || cmd.Username != "alice" {
		t.Fatalf("bad command: %+v", cmd)
	}

	cmd, errData, err = inboundToCommand(inbound(t, proto.InboundTypeMessage, proto.MessageData{Text: "hi"}))
	if err != nil || errData != nil {
		t.Fatalf("message: %v, %+v", err, errData)
	}
	if cmd.Kind != core.CommandSendMessage || cmd.Text != "hi" {
		t.Fatalf("bad command: %+v", cmd)
	}

	cmd, errData, err = inboundToCommand(inbound(t, proto.InboundTypeEnterRoom, proto.EnterRoomData{RoomName: "games"}))
	if err != nil || errData != nil {
		t.Fatalf("enterRoom: %v, %+v", err, errData)
	}
	if cmd.Kind != core.CommandEnterRoom || cmd.Room != "games" {
		t.Fatalf("bad command: %+v", cmd)
	}

	cmd, errData, err = inboundToCommand(inbound(t, proto.InboundTypeTryCreateRoom, proto.TryCreateRoomData{RoomName: "books"}))
	if err != nil || errData != nil {
		t.Fatalf("try-create-room: %v, %+v", err, errData)
	}
	if cmd.Kind != core.CommandTryCreateRoom || cmd.Room != "books" {
		t.Fatalf("bad command: %+v", cmd)
	}
}

func TestInboundToCommandRejections(t *testing.T) {
	cmd, errData, err := inboundToCommand(inbound(t, proto.InboundTypeVerifySession, proto.VerifySessionData{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd != nil || errData == nil || errData.Code != core.ErrCodeSessionInvalid {
		t.Fatalf("expected session_invalid rejection, got %+v / %+v", cmd, errData)
	}

	cmd, errData, err = inboundToCommand(inbound(t, proto.InboundTypeMessage, proto.MessageData{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd != nil || errData == nil {
		t.Fatalf("empty text must be rejected, got %+v", cmd)
	}

	cmd, errData, err = inboundToCommand(proto.Inbound{Type: "bogus"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd != nil || errData == nil {
		t.Fatal("unknown type must be rejected")
	}

	if _, _, err := inboundToCommand(proto.Inbound{Type: proto.InboundTypeMessage, Data: json.RawMessage(`{`)}); err == nil {
		t.Fatal("malformed JSON must surface an error")
	}
}

func TestOutboundFromEvent(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	out := outboundFromEvent(&core.Event{
		Kind: core.EventSessionValid,
		Room: "General",
		Session: &core.SessionInfo{
			Username: "alice",
			UserID:   2,
			RoomName: "General",
		},
	})
	if out.Type != proto.OutboundTypeSessionValid {
		t.Fatalf("expected session-valid, got %q", out.Type)
	}
	sv := out.Data.(proto.SessionValidData)
	if sv.Username != "alice" || sv.UserID != 2 || sv.RoomName != "General" {
		t.Fatalf("bad payload: %+v", sv)
	}

	out = outboundFromEvent(&core.Event{
		Kind: core.EventMessage,
		Room: "General",
		Message: &store.Message{
			ID:        7,
			Username:  "alice",
			Content:   "hello",
			Type:      store.TypeUserMessage,
			CreatedAt: created,
			Attachment: &store.Attachment{
				FilePath:     "uploads/abc.png",
				FileType:     "image/png",
				FileSize:     1234,
				OriginalName: "cat.png",
			},
		},
	})
	if out.Type != proto.OutboundTypeMessage {
		t.Fatalf("expected message, got %q", out.Type)
	}
	msg := out.Data.(proto.EventMessage)
	if msg.Name != "alice" || msg.Text != "hello" || msg.MessageType != string(store.TypeUserMessage) {
		t.Fatalf("bad payload: %+v", msg)
	}
	if msg.Time != "2026-03-14T09:26:53Z" {
		t.Fatalf("bad time: %q", msg.Time)
	}
	if msg.Attachment == nil || msg.Attachment.URL != "/uploads/abc.png" {
		t.Fatalf("bad attachment: %+v", msg.Attachment)
	}

	out = outboundFromEvent(&core.Event{
		Kind: core.EventRoomList,
		Rooms: []core.RoomSummary{
			{ID: 1, Name: "General", IsPermanent: true, UserCount: 2},
			{ID: 4, Name: "Games", UserCount: 1},
		},
	})
	if out.Type != proto.OutboundTypeRoomList {
		t.Fatalf("expected roomList, got %q", out.Type)
	}
	rl := out.Data.(proto.RoomListData)
	if len(rl.Rooms) != 2 || rl.Rooms[0].RoomName != "General" || !rl.Rooms[0].IsPermanent || rl.Rooms[1].UserCount != 1 {
		t.Fatalf("bad payload: %+v", rl)
	}

	out = outboundFromEvent(&core.Event{
		Kind:  core.EventCreateRoomFailed,
		Error: &core.CoreError{Code: core.ErrCodeRoomExists, Message: "a room with this name already exists"},
	})
	if out.Type != proto.OutboundTypeCreateRoomFailed {
		t.Fatalf("expected create-room-failed, got %q", out.Type)
	}
	cf := out.Data.(proto.CreateRoomFailedData)
	if cf.ErrorMessage == "" {
		t.Fatal("error message missing")
	}

	out = outboundFromEvent(&core.Event{
		Kind:  core.EventError,
		Error: &core.CoreError{Code: core.ErrCodeNotAuthenticated, Message: "you must be connected"},
	})
	ed := out.Data.(proto.ErrorData)
	if ed.Code != core.ErrCodeNotAuthenticated {
		t.Fatalf("bad code: %q", ed.Code)
	}
}

func TestRoomListWireFormat(t *testing.T) {
	out := outboundFromEvent(&core.Event{
		Kind:  core.EventRoomList,
		Rooms: []core.RoomSummary{{ID: 1, Name: "General", IsPermanent: true, UserCount: 0}},
	})

	raw, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded struct {
		Type string `json:"type"`
		Data struct {
			Rooms []map[string]any `json:"rooms"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Type != "roomList" {
		t.Fatalf("bad type: %q", decoded.Type)
	}
	room := decoded.Data.Rooms[0]
	if room["room_name"] != "General" {
		t.Fatalf("room_name key missing: %v", room)
	}
	if _, ok := room["userCount"]; !ok {
		t.Fatalf("userCount key missing: %v", room)
	}
}
