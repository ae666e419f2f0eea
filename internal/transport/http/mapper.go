package http

import (
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/samber/lo"

	"github.com/salon-chat/salon-server/internal/core"
	"github.com/salon-chat/salon-server/internal/proto"
	"github.com/salon-chat/salon-server/internal/store"
)

// inboundToCommand maps a hub-bound wire event to a coordinator command.
// Register and login never reach the hub and are handled by the ws session
// directly. Validation happens here, before the coordinator sees anything.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.ErrorData, error) {
	switch inbound.Type {
	case proto.InboundTypeVerifySession:
		var data proto.VerifySessionData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.Username == "" {
			return nil, &proto.ErrorData{Code: core.ErrCodeSessionInvalid, Message: "username is required"}, nil
		}
		return &core.Command{Kind: core.CommandVerifySession, Username: data.Username}, nil, nil

	case proto.InboundTypeMessage:
		var data proto.MessageData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.Text == "" {
			return nil, &proto.ErrorData{Code: core.ErrCodeInvalidName, Message: "text is required"}, nil
		}
		return &core.Command{Kind: core.CommandSendMessage, Text: data.Text}, nil, nil

	case proto.InboundTypeEnterRoom:
		var data proto.EnterRoomData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		return &core.Command{Kind: core.CommandEnterRoom, Room: data.RoomName}, nil, nil

	case proto.InboundTypeTryCreateRoom:
		var data proto.TryCreateRoomData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		return &core.Command{Kind: core.CommandTryCreateRoom, Room: data.RoomName}, nil, nil

	default:
		return nil, &proto.ErrorData{Code: "invalid_message", Message: "unknown event type"}, nil
	}
}

// outboundFromEvent maps a coordinator event to its wire representation.
func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventSessionValid:
		return proto.Outbound{
			Type: proto.OutboundTypeSessionValid,
			Data: proto.SessionValidData{
				Username: event.Session.Username,
				UserID:   event.Session.UserID,
				RoomName: event.Session.RoomName,
			},
		}
	case core.EventSessionInvalid:
		return proto.Outbound{Type: proto.OutboundTypeSessionInvalid}
	case core.EventMessage:
		return proto.Outbound{
			Type: proto.OutboundTypeMessage,
			Data: messageToProto(event.Message),
		}
	case core.EventHistory:
		return proto.Outbound{
			Type: proto.OutboundTypeMessageHistory,
			Data: proto.MessageHistoryData{
				RoomName: event.Room,
				Messages: lo.Map(event.Messages, func(m *store.Message, _ int) proto.EventMessage {
					return messageToProto(m)
				}),
			},
		}
	case core.EventRoomChanged:
		return proto.Outbound{
			Type: proto.OutboundTypeRoomChanged,
			Data: proto.RoomChangedData{RoomName: event.Room},
		}
	case core.EventUserList:
		return proto.Outbound{
			Type: proto.OutboundTypeUserList,
			Data: proto.UserListData{
				RoomName: event.Room,
				Users: lo.Map(event.Users, func(u core.UserInfo, _ int) proto.UserEntry {
					return proto.UserEntry{UserID: u.UserID, Username: u.Username, Status: u.Status}
				}),
			},
		}
	case core.EventRoomList:
		return proto.Outbound{
			Type: proto.OutboundTypeRoomList,
			Data: proto.RoomListData{
				Rooms: lo.Map(event.Rooms, func(r core.RoomSummary, _ int) proto.RoomEntry {
					return proto.RoomEntry{
						ID:          r.ID,
						RoomName:    r.Name,
						IsPermanent: r.IsPermanent,
						UserCount:   r.UserCount,
					}
				}),
			},
		}
	case core.EventCreateRoomSuccess:
		return proto.Outbound{
			Type: proto.OutboundTypeCreateRoomSuccess,
			Data: proto.CreateRoomSuccessData{RoomName: event.Room},
		}
	case core.EventCreateRoomFailed:
		return proto.Outbound{
			Type: proto.OutboundTypeCreateRoomFailed,
			Data: proto.CreateRoomFailedData{ErrorMessage: event.Error.Message},
		}
	case core.EventError:
		return proto.Outbound{
			Type: proto.OutboundTypeError,
			Data: proto.ErrorData{Code: event.Error.Code, Message: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeError, Data: proto.ErrorData{Message: "unknown event"}}
	}
}

func messageToProto(m *store.Message) proto.EventMessage {
	out := proto.EventMessage{
		ID:          m.ID,
		Name:        m.Username,
		Text:        m.Content,
		MessageType: string(m.Type),
		Time:        m.CreatedAt.Format(time.RFC3339),
	}
	if m.Attachment != nil {
		out.Attachment = &proto.AttachmentData{
			URL:          "/uploads/" + filepath.Base(m.Attachment.FilePath),
			FileType:     m.Attachment.FileType,
			FileSize:     m.Attachment.FileSize,
			OriginalName: m.Attachment.OriginalName,
		}
	}
	return out
}
