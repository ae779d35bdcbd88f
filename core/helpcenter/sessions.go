package helpcenter

import (
	"sync"
	"time"
)

// sessionTracker keeps the single active interaction mode per admin.
// Sessions live in memory only; a restart simply drops them, which is safe
// because every session either completes or leaves its ticket open.
type sessionTracker struct {
	mu     sync.Mutex
	now    func() time.Time
	active map[int64]*AdminSession
}

func newSessionTracker(now func() time.Time) *sessionTracker {
	return &sessionTracker{
		now:    now,
		active: make(map[int64]*AdminSession),
	}
}

// start unconditionally replaces any existing session for the admin.
func (t *sessionTracker) start(adminID int64, mode AdminMode, targetUserID int64, ticketID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active[adminID] = &AdminSession{
		AdminID:      adminID,
		Mode:         mode,
		TargetUserID: targetUserID,
		TicketID:     ticketID,
		StartedAt:    t.now(),
	}
}

// current returns a copy of the admin's active session, if any.
func (t *sessionTracker) current(adminID int64) (AdminSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.active[adminID]
	if !ok {
		return AdminSession{}, false
	}
	return *s, true
}

// clear removes the admin's session and reports whether one existed.
func (t *sessionTracker) clear(adminID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.active[adminID]; !ok {
		return false
	}
	delete(t.active, adminID)
	return true
}

// size reports the number of active sessions.
func (t *sessionTracker) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}
