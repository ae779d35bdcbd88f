package helpcenter

import (
	"fmt"
	"sync/atomic"
	"time"
)

// ticketRegistry allocates ticket ids and guards the create/resolve
// lifecycle. Methods that touch the state document must be called with the
// Service mutex held.
type ticketRegistry struct {
	now func() time.Time
	seq atomic.Uint64
}

// newID combines the wall clock with a process-wide monotonic counter so
// that tickets created within the same millisecond stay distinct.
func (r *ticketRegistry) newID() string {
	return fmt.Sprintf("%d-%d", r.now().UnixMilli(), r.seq.Add(1))
}

// create stores the draft under a fresh id and returns it.
func (r *ticketRegistry) create(st *State, draft PendingTicket) string {
	draft.ID = r.newID()
	draft.CreatedAt = r.now()
	st.Pending[draft.ID] = &draft
	return draft.ID
}

// get returns the ticket if it is still pending.
func (r *ticketRegistry) get(st *State, id string) (PendingTicket, bool) {
	t, ok := st.Pending[id]
	if !ok {
		return PendingTicket{}, false
	}
	return *t, true
}

// resolve removes and returns the ticket. A second resolve of the same id
// fails with ErrTicketNotFound, which is what makes double button presses
// safe no-ops instead of double-sends.
func (r *ticketRegistry) resolve(st *State, id string) (PendingTicket, error) {
	t, ok := st.Pending[id]
	if !ok {
		return PendingTicket{}, ErrTicketNotFound
	}
	delete(st.Pending, id)
	return *t, nil
}
