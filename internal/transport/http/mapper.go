package http

import (
	"github.com/deskline/deskline-server/internal/core"
	"github.com/deskline/deskline-server/internal/proto"
)

func messageToProto(room string, msg core.Message) proto.EventMessage {
	return proto.EventMessage{
		Room: room,
		User: msg.From,
		Text: msg.Body,
		TS:   msg.SentAt.Unix(),
	}
}

func ticketToProto(t *core.Ticket) proto.EventTicket {
	return proto.EventTicket{
		Room:      t.RoomID,
		User:      t.Requester,
		Message:   t.InitialMessage.Body,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt.Unix(),
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventRoomMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: "message",
			Data:  messageToProto(event.Room, event.Message),
		}
	case core.EventTicketOpened:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: "ticket_opened",
			Data:  ticketToProto(event.Ticket),
		}
	case core.EventConversationStarted:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: "conversation_started",
			Data:  messageToProto(event.Room, event.Message),
		}
	case core.EventTicketClaimed:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: "ticket_claimed",
			Data:  ticketToProto(event.Ticket),
		}
	case core.EventTicketClosed:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: "ticket_closed",
			Data:  proto.EventClosed{Room: event.Room},
		}
	case core.EventHistory:
		messages := make([]proto.EventMessage, 0, len(event.Messages))
		for _, msg := range event.Messages {
			messages = append(messages, messageToProto(event.Room, msg))
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: "history",
			Data: proto.EventHistory{
				Room:     event.Room,
				Messages: messages,
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func errorOutbound(err error) proto.Outbound {
	ce := core.AsCoreError(err)
	return proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: ce.Code, Msg: ce.Message},
	}
}
