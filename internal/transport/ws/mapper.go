package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/proto"
)

var roomUserEvents = map[string]core.EventKind{
	proto.EventUserJoined:  core.EventUserJoined,
	proto.EventUserLeft:    core.EventUserLeft,
	proto.EventUserKicked:  core.EventUserKicked,
	proto.EventForcedLeave: core.EventForcedLeave,
	proto.EventRoomJoined:  core.EventRoomJoined,
	proto.EventRoomLeft:    core.EventRoomLeft,
	proto.EventTypingStart: core.EventTypingStart,
	proto.EventTypingStop:  core.EventTypingStop,
}

// inboundToEvent maps a server frame to an engine event. ok is false for frames
// the engine does not consume.
func inboundToEvent(inbound proto.Inbound, now time.Time) (ev core.Event, ok bool, err error) {
	switch inbound.Type {
	case proto.InboundTypeError:
		if inbound.Error == nil {
			return core.Event{}, false, nil
		}
		return core.Event{
			Kind:   core.EventSocketError,
			RoomID: inbound.Error.Room,
			Reason: inbound.Error.Msg,
			Error:  core.NewError(inbound.Error.Code, inbound.Error.Msg),
		}, true, nil
	case proto.InboundTypeEvent:
	default:
		return core.Event{}, false, nil
	}

	if inbound.Event == proto.EventMessage {
		var data proto.MessageData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return core.Event{}, false, fmt.Errorf("decode message event: %w", err)
		}
		msg := messageFromProto(data, now)
		return core.Event{Kind: core.EventMessage, RoomID: msg.RoomID, User: msg.Sender, Message: msg}, true, nil
	}

	kind, known := roomUserEvents[inbound.Event]
	if !known {
		return core.Event{}, false, nil
	}
	var data proto.EventRoomUser
	if len(inbound.Data) > 0 {
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return core.Event{}, false, fmt.Errorf("decode %s event: %w", inbound.Event, err)
		}
	}
	return core.Event{
		Kind:   kind,
		RoomID: data.Room,
		User:   senderFromProto(data.User),
		Reason: data.Reason,
	}, true, nil
}

func messageFromProto(data proto.MessageData, now time.Time) core.Message {
	createdAt := now
	if data.TS > 0 {
		createdAt = time.UnixMilli(data.TS)
	}
	msg := core.Message{
		ID:        data.ID,
		RoomID:    data.Room,
		Body:      data.Text,
		Sender:    senderFromProto(data.User),
		CreatedAt: createdAt,
		Kind:      kindFromProto(data.Kind),
	}
	if data.Gift != nil || data.CardImage != "" {
		msg.Payload = &core.Payload{CardImage: data.CardImage}
		if data.Gift != nil {
			msg.Payload.Gift = &core.Gift{
				ID:       data.Gift.ID,
				Name:     data.Gift.Name,
				Quantity: data.Gift.Quantity,
				To:       data.Gift.To,
			}
		}
	}
	return msg
}

func senderFromProto(u proto.User) core.Sender {
	return core.Sender{
		ID:       u.ID,
		Name:     u.Name,
		Level:    u.Level,
		Online:   u.Online,
		Mentor:   u.Mentor,
		Merchant: u.Merchant,
		Admin:    u.Admin,
	}
}

func kindFromProto(kind string) core.MessageKind {
	switch core.MessageKind(kind) {
	case core.KindSystem, core.KindAction, core.KindGift, core.KindBot:
		return core.MessageKind(kind)
	default:
		return core.KindText
	}
}

func joinFrame(roomID string) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeJoin, Data: proto.JoinData{Room: roomID}}
}

func leaveFrame(roomID string, force bool) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeLeave, Data: proto.LeaveData{Room: roomID, Force: force}}
}

func msgFrame(roomID, text string) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeMsg, Data: proto.MsgData{Room: roomID, Text: text}}
}

func typingFrame(roomID string, typing bool) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeTyping, Data: proto.TypingData{Room: roomID, Typing: typing}}
}

func helloFrame(token string) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeHello, Data: proto.HelloData{Token: token, Protocol: proto.ProtocolVersion}}
}
