package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Outcome classifies what the router did with a send.
type Outcome int

const (
	// OutcomeDropped means the message had no body and was silently
	// discarded with no side effects.
	OutcomeDropped Outcome = iota
	// OutcomeThrottled means the limiter replaced the message with a
	// system announcement.
	OutcomeThrottled
	// OutcomeDelivered means the message was routed to the room.
	OutcomeDelivered
	// OutcomeOpened means the send was the first from an unbound
	// requester and implicitly opened a ticket.
	OutcomeOpened
)

// TicketJournal records ticket lifecycle transitions after the fact.
// Implementations must not be consulted for routing decisions; a journal
// failure is logged, never propagated.
type TicketJournal interface {
	RecordTicketEvent(ctx context.Context, roomID, kind, actor string) error
}

// Router is the protocol-level operation set over the registry: open
// ticket, claim ticket, send message, close ticket. It owns no state of
// its own; every mutation goes through the registry.
type Router struct {
	registry *Registry
	fanout   *Fanout
	journal  TicketJournal
	log      *zerolog.Logger
	now      func() time.Time
}

// NewRouter wires a router over the registry and fanout. journal may be
// nil when no lifecycle recording is wanted.
func NewRouter(registry *Registry, fanout *Fanout, journal TicketJournal, logger *zerolog.Logger) *Router {
	return &Router{
		registry: registry,
		fanout:   fanout,
		journal:  journal,
		log:      logger,
		now:      time.Now,
	}
}

// HandleSend routes one inbound message from a session.
//
// An empty body is a silent no-op. A throttled sender gets a single
// announcement into the room instead of the message. A first send from an
// unbound requester implicitly opens a ticket with that message as the
// initial one; a requester never opens a ticket explicitly.
func (r *Router) HandleSend(ctx context.Context, sess *Session, body string) (Outcome, error) {
	if body == "" {
		return OutcomeDropped, nil
	}

	now := r.now()
	if !sess.limiter.Observe(now) {
		notice := &Event{
			Kind: EventRoomMessage,
			Message: Message{
				From:   AnnouncementSender,
				Body:   ThrottleNotice,
				SentAt: now,
			},
		}
		if roomID, bound := r.registry.ResolveRoom(sess.ID); bound {
			notice.Room = roomID
			r.fanout.Deliver(roomID, notice, "")
		} else {
			r.fanout.Send(sess, notice)
		}
		r.log.Debug().Str("session_id", sess.ID).Msg("send throttled")
		return OutcomeThrottled, nil
	}

	msg := Message{From: sess.Identity, Body: body, SentAt: now}

	roomID, bound := r.registry.ResolveRoom(sess.ID)
	if !bound {
		if sess.Role != RoleRequester {
			return OutcomeDropped, ErrNotBound
		}

		ticket := r.registry.CreateTicket(sess, msg)
		roomID = ticket.RoomID
		_ = r.registry.Append(roomID, msg)

		r.fanout.NotifyDesk(&Event{Kind: EventTicketOpened, Room: roomID, Ticket: ticket})
		r.record(ctx, roomID, "opened", sess.Identity)
		r.log.Info().
			Str("room", roomID).
			Str("requester", sess.Identity).
			Msg("ticket opened")

		r.fanout.Deliver(roomID, &Event{Kind: EventRoomMessage, Room: roomID, Message: msg}, sess.ID)
		return OutcomeOpened, nil
	}

	if err := r.registry.Append(roomID, msg); err != nil {
		return OutcomeDropped, err
	}
	r.fanout.Deliver(roomID, &Event{Kind: EventRoomMessage, Room: roomID, Message: msg}, sess.ID)
	return OutcomeDelivered, nil
}

// HandleClaim binds an agent session to an open ticket. On success the
// room hears a join announcement, the agent receives the transcript so
// far, and the desk learns the ticket is gone. Errors are surfaced to the
// caller without any announcement.
func (r *Router) HandleClaim(ctx context.Context, sess *Session, roomID string) (*Ticket, error) {
	ticket, err := r.registry.Claim(roomID, sess)
	if err != nil {
		return nil, err
	}

	history, _ := r.registry.Transcript(roomID)
	r.fanout.Send(sess, &Event{Kind: EventHistory, Room: roomID, Messages: history})

	announcement := Message{
		From:   AnnouncementSender,
		Body:   AgentJoinedNotice,
		SentAt: r.now(),
	}
	_ = r.registry.Append(roomID, announcement)
	r.fanout.Deliver(roomID, &Event{Kind: EventConversationStarted, Room: roomID, Message: announcement}, "")
	r.fanout.NotifyDesk(&Event{Kind: EventTicketClaimed, Room: roomID, Ticket: ticket})

	r.record(ctx, roomID, "claimed", sess.Identity)
	r.log.Info().
		Str("room", roomID).
		Str("agent", sess.Identity).
		Msg("ticket claimed")

	return ticket, nil
}

// HandleClose closes a ticket if it is not already closed. Closing twice
// is a silent no-op. An unknown room is surfaced as ErrTicketNotFound.
func (r *Router) HandleClose(ctx context.Context, sess *Session, roomID string) error {
	participants, closed, err := r.registry.Close(roomID)
	if err != nil {
		return err
	}
	if !closed {
		return nil
	}

	event := &Event{Kind: EventTicketClosed, Room: roomID}
	for _, p := range participants {
		r.fanout.Send(p, event)
	}
	r.fanout.NotifyDesk(event)

	r.record(ctx, roomID, "closed", sess.Identity)
	r.log.Info().
		Str("room", roomID).
		Str("closed_by", sess.Identity).
		Msg("ticket closed")

	return nil
}

// OpenTickets lists all currently open tickets in creation order.
func (r *Router) OpenTickets() []Ticket {
	return r.registry.ListOpenTickets()
}

// LookupTicket finds the latest ticket for a requester identity.
func (r *Router) LookupTicket(username string) (*Ticket, error) {
	return r.registry.LookupByUser(username)
}

func (r *Router) record(ctx context.Context, roomID, kind, actor string) {
	if r.journal == nil {
		return
	}
	if err := r.journal.RecordTicketEvent(ctx, roomID, kind, actor); err != nil {
		r.log.Warn().Err(err).
			Str("room", roomID).
			Str("kind", kind).
			Msg("failed to journal ticket event")
	}
}
