package core

// EventKind is a notification the core emits to sessions.
type EventKind int

const (
	// EventRoomMessage notifies room participants about a chat message,
	// including system announcements.
	EventRoomMessage EventKind = iota
	// EventTicketOpened notifies desk agents that a requester opened a
	// new ticket.
	EventTicketOpened
	// EventConversationStarted notifies room participants that an agent
	// claimed the ticket and joined the conversation.
	EventConversationStarted
	// EventTicketClaimed notifies desk agents that a ticket is no longer
	// available to claim.
	EventTicketClaimed
	// EventTicketClosed notifies room participants and desk agents that
	// a ticket was closed.
	EventTicketClosed
	// EventHistory delivers the room transcript to a claiming agent.
	EventHistory
	// EventError notifies a session about a domain error.
	EventError
)

// Event is sent to sessions to describe what happened in the system.
type Event struct {
	Kind     EventKind
	Room     string
	Message  Message
	Messages []Message // for EventHistory
	Ticket   *Ticket
	Error    *CoreError
}
