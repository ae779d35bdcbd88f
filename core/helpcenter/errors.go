package helpcenter

import "errors"

var (
	// ErrUnauthorized rejects a non-allow-listed identity at a protected entry point.
	ErrUnauthorized = errors.New("helpcenter: unauthorized")

	// ErrTicketNotFound reports a resolve against an unknown or already
	// resolved ticket. Distinct from a malformed token: callers show
	// "already handled" rather than "invalid action".
	ErrTicketNotFound = errors.New("helpcenter: ticket not found")

	// ErrNoActiveSession reports a cancel with nothing to cancel.
	ErrNoActiveSession = errors.New("helpcenter: no active admin session")

	// ErrNoLinkConfigured blocks a payment approval when every requested
	// link is empty; the ticket stays open for a retry.
	ErrNoLinkConfigured = errors.New("helpcenter: no link configured")

	// ErrWrongFlow rejects a submission from a user who is not in the
	// matching awaiting state; no state is mutated.
	ErrWrongFlow = errors.New("helpcenter: user is not awaiting this submission")

	// ErrUnknownAction reports an action keyword the workflow does not handle.
	ErrUnknownAction = errors.New("helpcenter: unknown action")
)
