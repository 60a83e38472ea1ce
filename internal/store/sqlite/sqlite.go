package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/deskline/deskline-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS agents (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS ticket_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id    TEXT NOT NULL,
	kind       TEXT NOT NULL,
	actor      TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_ticket_events_room ON ticket_events(room_id);
`

// New creates a new SQLite store at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply an alternative schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateAgent creates a new agent with hashed password.
func (s *SQLiteStore) CreateAgent(ctx context.Context, username, passwordHash string) (*store.Agent, error) {
	query := `
		INSERT INTO agents (username, password_hash)
		VALUES (?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("insert agent: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetAgentByID(ctx, id)
}

// GetAgentByID retrieves an agent by ID.
func (s *SQLiteStore) GetAgentByID(ctx context.Context, id int64) (*store.Agent, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM agents
		WHERE id = ?
	`
	return s.scanAgent(s.db.QueryRowContext(ctx, query, id))
}

// GetAgentByUsername retrieves an agent by username.
func (s *SQLiteStore) GetAgentByUsername(ctx context.Context, username string) (*store.Agent, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM agents
		WHERE username = ?
	`
	return s.scanAgent(s.db.QueryRowContext(ctx, query, username))
}

func (s *SQLiteStore) scanAgent(row *sql.Row) (*store.Agent, error) {
	var agent store.Agent
	err := row.Scan(
		&agent.ID,
		&agent.Username,
		&agent.PasswordHash,
		&agent.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query agent: %w", err)
	}
	return &agent, nil
}

// RecordTicketEvent appends one lifecycle record for a room.
func (s *SQLiteStore) RecordTicketEvent(ctx context.Context, roomID, kind, actor string) error {
	query := `
		INSERT INTO ticket_events (room_id, kind, actor)
		VALUES (?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, roomID, kind, actor); err != nil {
		return fmt.Errorf("insert ticket event: %w", err)
	}
	return nil
}

// ListTicketEvents returns a room's lifecycle records oldest first.
func (s *SQLiteStore) ListTicketEvents(ctx context.Context, roomID string) ([]*store.TicketEvent, error) {
	query := `
		SELECT id, room_id, kind, actor, created_at
		FROM ticket_events
		WHERE room_id = ?
		ORDER BY id ASC
	`
	rows, err := s.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("query ticket events: %w", err)
	}
	defer rows.Close()

	events := make([]*store.TicketEvent, 0)
	for rows.Next() {
		var ev store.TicketEvent
		if err := rows.Scan(&ev.ID, &ev.RoomID, &ev.Kind, &ev.Actor, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ticket event: %w", err)
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}
