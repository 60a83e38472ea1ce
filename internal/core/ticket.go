package core

import "time"

// Status is the lifecycle state of a support ticket.
type Status string

const (
	StatusOpen    Status = "open"
	StatusClaimed Status = "claimed"
	StatusClosed  Status = "closed"
)

// Message is the domain model for one chat message. It is immutable once
// created; ordering within a room is the order of acceptance by the
// Router, not client timestamps.
type Message struct {
	From   string
	Body   string
	SentAt time.Time
}

// Ticket is the lifecycle record of one support request, created together
// with its room. Status only ever moves forward: open -> claimed -> closed,
// and a ticket can close without ever being claimed. Closed is terminal.
type Ticket struct {
	RoomID         string
	Requester      string
	InitialMessage Message
	Status         Status
	CreatedAt      time.Time
}

// AnnouncementSender is the identity system announcements are sent under.
const AnnouncementSender = "Announcement"

const (
	// ThrottleNotice replaces a message that was dropped by the limiter.
	ThrottleNotice = "Please wait a moment before sending another message"
	// AgentJoinedNotice is delivered to the room when an agent claims
	// the ticket.
	AgentJoinedNotice = "Tech support has joined the chat"
)
