package http

import (
	"encoding/json"
	"fmt"

	"github.com/roomchat/roomchat-server/internal/core"
	"github.com/roomchat/roomchat-server/internal/proto"
)

// inboundToCommand maps a client event to a core command. A nil command with
// a non-nil error means the event was malformed; callers drop it silently
// per the protocol contract (logged at debug, no reply, no close).
func inboundToCommand(inbound proto.Inbound) (*core.Command, error) {
	switch inbound.Event {
	case proto.EventJoinRoom:
		var join proto.JoinRoomData
		if err := json.Unmarshal(inbound.Data, &join); err != nil {
			return nil, fmt.Errorf("decode joinRoom: %w", err)
		}
		if join.User == "" {
			return nil, fmt.Errorf("joinRoom without user")
		}
		return &core.Command{Kind: core.CommandJoinRoom, Room: join.Room, User: join.User}, nil

	case proto.EventLeaveRoom:
		var leave proto.LeaveRoomData
		if err := json.Unmarshal(inbound.Data, &leave); err != nil {
			return nil, fmt.Errorf("decode leaveRoom: %w", err)
		}
		if leave.Room == "" || leave.User == "" {
			return nil, fmt.Errorf("leaveRoom missing room or user")
		}
		return &core.Command{Kind: core.CommandLeaveRoom, Room: leave.Room, User: leave.User}, nil

	case proto.EventSendMessage:
		var msg proto.SendMessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, fmt.Errorf("decode sendMessage: %w", err)
		}
		if msg.Room == "" || msg.Message == "" {
			return nil, fmt.Errorf("sendMessage missing room or message")
		}
		return &core.Command{Kind: core.CommandSendMessage, Room: msg.Room, User: msg.User, Body: msg.Message}, nil

	case proto.EventPrivateMessage:
		var pm proto.PrivateMessageData
		if err := json.Unmarshal(inbound.Data, &pm); err != nil {
			return nil, fmt.Errorf("decode privateMessage: %w", err)
		}
		if pm.ToUser == "" || pm.Message == "" {
			return nil, fmt.Errorf("privateMessage missing to_user or message")
		}
		return &core.Command{Kind: core.CommandSendPrivate, User: pm.FromUser, To: pm.ToUser, Body: pm.Message}, nil

	case proto.EventTyping:
		var typing proto.TypingData
		if err := json.Unmarshal(inbound.Data, &typing); err != nil {
			return nil, fmt.Errorf("decode typing: %w", err)
		}
		if typing.Room == "" || typing.User == "" {
			return nil, fmt.Errorf("typing missing room or user")
		}
		return &core.Command{Kind: core.CommandTyping, Room: typing.Room, User: typing.User}, nil

	case proto.EventStopTyping:
		var stop proto.StopTypingData
		if err := json.Unmarshal(inbound.Data, &stop); err != nil {
			return nil, fmt.Errorf("decode stopTyping: %w", err)
		}
		if stop.Room == "" {
			return nil, fmt.Errorf("stopTyping without room")
		}
		return &core.Command{Kind: core.CommandStopTyping, Room: stop.Room}, nil

	default:
		return nil, fmt.Errorf("unknown event %q", inbound.Event)
	}
}

// outboundFromEvent maps a core event to its wire envelope.
func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventMembers:
		members := event.Members
		if members == nil {
			members = []string{}
		}
		return proto.Outbound{Event: proto.EventUpdateMembers, Data: members}

	case core.EventHistory:
		messages := make([]proto.MessagePayload, 0, len(event.Messages))
		for _, msg := range event.Messages {
			payload := proto.MessagePayload{
				FromUser: msg.From,
				ToUser:   msg.To,
				Message:  msg.Body,
				DateSent: msg.SentAt,
			}
			if msg.To == "" {
				payload.Room = msg.Room
			}
			messages = append(messages, payload)
		}
		return proto.Outbound{Event: proto.EventLoadMessages, Data: messages}

	case core.EventMessage:
		return proto.Outbound{
			Event: proto.EventReceiveMessage,
			Data: proto.ReceiveMessageData{
				User:     event.Message.From,
				Message:  event.Message.Body,
				DateSent: event.Message.SentAt,
			},
		}

	case core.EventPrivateMessage:
		return proto.Outbound{
			Event: proto.EventReceivePrivateMessage,
			Data: proto.ReceivePrivateMessageData{
				FromUser: event.Message.From,
				Message:  event.Message.Body,
				DateSent: event.Message.SentAt,
			},
		}

	case core.EventTyping:
		return proto.Outbound{
			Event: proto.EventUserTyping,
			Data:  proto.UserTypingData{User: event.User},
		}

	case core.EventStopTyping:
		return proto.Outbound{Event: proto.EventStopTyping}

	default:
		return proto.Outbound{}
	}
}
