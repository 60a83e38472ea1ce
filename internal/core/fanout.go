package core

import "github.com/rs/zerolog"

// Fanout delivers outbound events to the sessions currently bound to a
// room. Failure to reach one recipient never aborts delivery to the rest;
// a dropped event is logged and forgotten.
type Fanout struct {
	registry *Registry
	log      *zerolog.Logger
}

// NewFanout builds a fanout over the given registry.
func NewFanout(registry *Registry, logger *zerolog.Logger) *Fanout {
	return &Fanout{registry: registry, log: logger}
}

// Deliver pushes an event to every session bound to the room except the
// excluded sender. Pass an empty exclude ID to reach everyone.
func (f *Fanout) Deliver(roomID string, event *Event, excludeSessionID string) {
	for _, sess := range f.registry.Members(roomID) {
		if sess.ID == excludeSessionID {
			continue
		}
		f.push(sess, event)
	}
}

// NotifyDesk pushes an event to every agent on the desk so ticket lists
// stay live.
func (f *Fanout) NotifyDesk(event *Event) {
	for _, sess := range f.registry.DeskAgents() {
		f.push(sess, event)
	}
}

// Send pushes an event to a single session.
func (f *Fanout) Send(sess *Session, event *Event) {
	f.push(sess, event)
}

func (f *Fanout) push(sess *Session, event *Event) {
	select {
	case sess.Events <- event:
	default:
		// Slow consumer; drop rather than block the router.
		f.log.Warn().
			Str("session_id", sess.ID).
			Str("room", event.Room).
			Msg("dropping event for slow consumer")
	}
}
