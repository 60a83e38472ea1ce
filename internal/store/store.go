package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Agent is a registered support-staff account. Requesters are anonymous
// and never stored.
type Agent struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// TicketEvent is one append-only lifecycle record: a ticket was opened,
// claimed or closed. Chat transcripts are deliberately not persisted.
type TicketEvent struct {
	ID        int64
	RoomID    string
	Kind      string
	Actor     string
	CreatedAt time.Time
}

// AgentStore handles agent account persistence.
type AgentStore interface {
	// CreateAgent creates a new agent with hashed password.
	CreateAgent(ctx context.Context, username, passwordHash string) (*Agent, error)

	// GetAgentByUsername retrieves an agent by username.
	GetAgentByUsername(ctx context.Context, username string) (*Agent, error)

	// GetAgentByID retrieves an agent by ID.
	GetAgentByID(ctx context.Context, id int64) (*Agent, error)
}

// JournalStore records ticket lifecycle transitions.
type JournalStore interface {
	// RecordTicketEvent appends one lifecycle record for a room.
	RecordTicketEvent(ctx context.Context, roomID, kind, actor string) error

	// ListTicketEvents returns a room's lifecycle records oldest first.
	ListTicketEvents(ctx context.Context, roomID string) ([]*TicketEvent, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	AgentStore
	JournalStore

	// Close closes the underlying database connection.
	Close() error
}
