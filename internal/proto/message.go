package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello       = "hello"
	InboundTypeSend        = "send"
	InboundTypeClaim       = "claim"
	InboundTypeClose       = "close"
	InboundTypeJoinDesk    = "join_desk"
	InboundTypeListTickets = "list_tickets"
	InboundTypeLookup      = "lookup"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// HelloData is sent by the client to introduce itself. Token is required;
// it carries the identity and role minted by the auth endpoints.
type HelloData struct {
	Token    string `json:"token"`
	Protocol int    `json:"protocol,omitempty"`
}

// SendData is a chat message from the client. The room is implied by the
// session binding; a first send from an unbound requester opens a ticket.
type SendData struct {
	Text string `json:"text"`
}

// ClaimData asks to claim an open ticket by room key.
type ClaimData struct {
	Room string `json:"room"`
}

// CloseData asks to close a ticket by room key.
type CloseData struct {
	Room string `json:"room"`
}

// LookupData asks for the latest ticket of a requester.
type LookupData struct {
	User string `json:"user"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventMessage carries one chat message, announcements included.
type EventMessage struct {
	Room string `json:"room"`
	User string `json:"user"`
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

// EventTicket describes a ticket in ticket lifecycle events and listings.
type EventTicket struct {
	Room      string `json:"room"`
	User      string `json:"user"`
	Message   string `json:"message"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

// EventTicketList carries all currently open tickets in creation order.
type EventTicketList struct {
	Tickets []EventTicket `json:"tickets"`
}

// EventHistory delivers the room transcript to a claiming agent.
type EventHistory struct {
	Room     string         `json:"room"`
	Messages []EventMessage `json:"messages"`
}

// EventClosed notifies that a ticket was closed.
type EventClosed struct {
	Room string `json:"room"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
