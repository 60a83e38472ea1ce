package core

// Role separates the two participant kinds a room can hold.
type Role string

const (
	// RoleRequester is the end-user side of a support chat.
	RoleRequester Role = "requester"
	// RoleAgent is the support-staff side.
	RoleAgent Role = "agent"
)

// Session is one connected participant as seen by the core layer. It is
// created on connect and destroyed on disconnect; its room binding lives
// in the registry, not here.
type Session struct {
	ID       string
	Identity string
	Role     Role
	Events   chan *Event

	limiter *Limiter
}

// NewSession constructs a session with initialized event channel and
// limiter state.
func NewSession(id, identity string, role Role, limiter *Limiter) *Session {
	if limiter == nil {
		limiter = NewLimiter(DefaultLimiterMax, DefaultLimiterWindow)
	}
	return &Session{
		ID:       id,
		Identity: identity,
		Role:     role,
		Events:   make(chan *Event, 8),
		limiter:  limiter,
	}
}
