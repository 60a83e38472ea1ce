package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeTicketNotFound = "ticket_not_found"
	ErrCodeAlreadyClaimed = "already_claimed"
	ErrCodeNotBound       = "not_bound"
	ErrCodeBadRequest     = "bad_request"
	ErrCodeUnauthorized   = "unauthorized"
)

var (
	// ErrTicketNotFound is returned for operations on an unknown room key.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrAlreadyClaimed is returned to the loser of a claim race, and for
	// any claim on a ticket that is no longer open.
	ErrAlreadyClaimed = errors.New("ticket already claimed")
	// ErrNotBound is returned when a session has no room binding for an
	// operation that requires one.
	ErrNotBound = errors.New("session not bound to a room")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// AsCoreError maps a domain error onto its wire-level code. Unknown errors
// degrade to bad_request rather than leaking internals.
func AsCoreError(err error) *CoreError {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce
	}
	switch {
	case errors.Is(err, ErrTicketNotFound):
		return coreError(ErrCodeTicketNotFound, "ticket not found")
	case errors.Is(err, ErrAlreadyClaimed):
		return coreError(ErrCodeAlreadyClaimed, "ticket already claimed by someone else")
	case errors.Is(err, ErrNotBound):
		return coreError(ErrCodeNotBound, "no ticket bound to this session")
	default:
		return coreError(ErrCodeBadRequest, "bad request")
	}
}
