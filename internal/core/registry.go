package core

import (
	"sync"
	"time"

	"github.com/deskline/deskline-server/internal/utils"
)

// room holds the live state of one private two-party channel.
type room struct {
	ticket     *Ticket
	members    map[string]*Session // keyed by session ID
	transcript []Message
}

// Registry is the single owner of all live routing state: sessions,
// tickets, room participant sets, transcripts and the agent desk. Every
// mutation happens inside a short critical section with no I/O, so all
// registry operations are linearizable.
type Registry struct {
	mu sync.Mutex

	sessions map[string]*Session // session ID -> session
	rooms    map[string]*room    // room key -> room; closed rooms stay so keys are never reused
	order    []string            // room keys in creation order
	bindings map[string]string   // session ID -> room key
	byUser   map[string]string   // requester identity -> latest room key
	desk     map[string]*Session // agent sessions listening for ticket events

	limiterMax    int
	limiterWindow time.Duration

	// newRoomKey is swappable in tests to force allocation collisions.
	newRoomKey func() string
}

// NewRegistry constructs an empty registry. Sessions it creates carry
// limiters configured with limiterMax messages per limiterWindow.
func NewRegistry(limiterMax int, limiterWindow time.Duration) *Registry {
	return &Registry{
		sessions:      make(map[string]*Session),
		rooms:         make(map[string]*room),
		bindings:      make(map[string]string),
		byUser:        make(map[string]string),
		desk:          make(map[string]*Session),
		limiterMax:    limiterMax,
		limiterWindow: limiterWindow,
		newRoomKey:    utils.NewRoomKey,
	}
}

// Connect registers a new session for the given identity and role.
func (r *Registry) Connect(id, identity string, role Role) *Session {
	sess := NewSession(id, identity, role, NewLimiter(r.limiterMax, r.limiterWindow))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = sess
	return sess
}

// Disconnect tears a session down: its room binding is removed from the
// room's participant set, but the ticket itself survives if still open or
// claimed, so the remaining party is not silently dropped.
func (r *Registry) Disconnect(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if key, ok := r.bindings[sessionID]; ok {
		if rm, exists := r.rooms[key]; exists {
			delete(rm.members, sessionID)
		}
		delete(r.bindings, sessionID)
	}
	delete(r.desk, sessionID)
	delete(r.sessions, sessionID)
}

// CreateTicket allocates a fresh room key, creates an open ticket with the
// given initial message and binds the requester's session to the room.
// A key collision is an internal allocation failure, retried with a new
// key rather than surfaced.
func (r *Registry) CreateTicket(sess *Session, initial Message) *Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.allocRoomKeyLocked()
	ticket := &Ticket{
		RoomID:         key,
		Requester:      sess.Identity,
		InitialMessage: initial,
		Status:         StatusOpen,
		CreatedAt:      initial.SentAt,
	}
	r.rooms[key] = &room{
		ticket:  ticket,
		members: map[string]*Session{sess.ID: sess},
	}
	r.order = append(r.order, key)
	r.bindings[sess.ID] = key
	r.byUser[sess.Identity] = key

	copied := *ticket
	return &copied
}

// allocRoomKeyLocked generates a room key unused by any room, closed ones
// included. Closed keys are never handed out again.
func (r *Registry) allocRoomKeyLocked() string {
	for {
		key := r.newRoomKey()
		if _, taken := r.rooms[key]; !taken {
			return key
		}
	}
}

// ListOpenTickets returns all open tickets in creation order.
func (r *Registry) ListOpenTickets() []Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()

	tickets := make([]Ticket, 0)
	for _, key := range r.order {
		if rm := r.rooms[key]; rm.ticket.Status == StatusOpen {
			tickets = append(tickets, *rm.ticket)
		}
	}
	return tickets
}

// Claim transitions an open ticket to claimed and binds the agent into the
// room's participant set. Concurrent claims on the same room produce
// exactly one winner; losers observe ErrAlreadyClaimed. An agent already
// bound elsewhere is rebound: claiming is the rebind operation.
func (r *Registry) Claim(roomID string, agent *Session) (*Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, ErrTicketNotFound
	}
	if rm.ticket.Status != StatusOpen {
		return nil, ErrAlreadyClaimed
	}

	if prev, bound := r.bindings[agent.ID]; bound {
		if prevRoom, exists := r.rooms[prev]; exists {
			delete(prevRoom.members, agent.ID)
		}
	}

	rm.ticket.Status = StatusClaimed
	rm.members[agent.ID] = agent
	r.bindings[agent.ID] = roomID

	copied := *rm.ticket
	return &copied, nil
}

// ResolveRoom looks up the room currently bound to a session.
func (r *Registry) ResolveRoom(sessionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.bindings[sessionID]
	return key, ok
}

// Close transitions a ticket to closed and unbinds all participants.
// Closing an already-closed room is a no-op, not an error. The returned
// sessions are the participants that were bound at close time, so the
// caller can still notify them.
func (r *Registry) Close(roomID string) (notified []*Session, closed bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, false, ErrTicketNotFound
	}
	if rm.ticket.Status == StatusClosed {
		return nil, false, nil
	}

	rm.ticket.Status = StatusClosed
	for id, sess := range rm.members {
		notified = append(notified, sess)
		delete(r.bindings, id)
	}
	rm.members = make(map[string]*Session)
	return notified, true, nil
}

// LookupByUser finds the latest ticket opened by the given requester
// identity. Agents use it for prior context before claiming.
func (r *Registry) LookupByUser(username string) (*Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, ok := r.byUser[username]
	if !ok {
		return nil, ErrTicketNotFound
	}
	copied := *r.rooms[key].ticket
	return &copied, nil
}

// Ticket returns a snapshot of the ticket for a room key.
func (r *Registry) Ticket(roomID string) (*Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, ErrTicketNotFound
	}
	copied := *rm.ticket
	return &copied, nil
}

// Append adds a message to the room's in-memory transcript. The transcript
// lives only as long as the process; nothing is persisted.
func (r *Registry) Append(roomID string, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return ErrTicketNotFound
	}
	rm.transcript = append(rm.transcript, msg)
	return nil
}

// Transcript returns a copy of the room's message history in acceptance
// order.
func (r *Registry) Transcript(roomID string) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil, ErrTicketNotFound
	}
	out := make([]Message, len(rm.transcript))
	copy(out, rm.transcript)
	return out, nil
}

// Members returns the sessions currently bound to a room.
func (r *Registry) Members(roomID string) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	members := make([]*Session, 0, len(rm.members))
	for _, sess := range rm.members {
		members = append(members, sess)
	}
	return members
}

// JoinDesk subscribes an agent session to ticket lifecycle notifications.
func (r *Registry) JoinDesk(sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.desk[sess.ID] = sess
}

// DeskAgents returns the agent sessions currently on the desk.
func (r *Registry) DeskAgents() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	agents := make([]*Session, 0, len(r.desk))
	for _, sess := range r.desk {
		agents = append(agents, sess)
	}
	return agents
}
