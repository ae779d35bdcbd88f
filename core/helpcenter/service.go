// Package helpcenter implements the support workflow engine: pending
// ticket lifecycle, per-user flow tracking, per-admin sessions, and the
// persistence discipline tying them together.
package helpcenter

import (
	"sync"
	"time"

	"log/slog"

	"helpcenterbot/core/logger"
)

// Options configure a Service.
type Options struct {
	Store     Store
	Policy    AuthorizationPolicy
	Transport Transport
	// FanoutWorkers bounds concurrent notification deliveries.
	FanoutWorkers int
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Service is the workflow orchestrator. It owns the state document; every
// read-modify-write-persist sequence runs under one mutex so no two
// mutations interleave. Outbound notifications are sent only after the
// mutation has been persisted and the mutex released.
type Service struct {
	mu        sync.Mutex
	st        *State
	store     Store
	policy    AuthorizationPolicy
	transport Transport
	fanout    *Fanout
	tickets   ticketRegistry
	sessions  *sessionTracker
}

// New loads the persisted state and builds a ready Service.
func New(opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	st := DefaultState()
	if opts.Store != nil {
		st = opts.Store.Load()
		st.normalize()
	}

	s := &Service{
		st:        st,
		store:     opts.Store,
		policy:    opts.Policy,
		transport: opts.Transport,
		fanout:    NewFanout(opts.FanoutWorkers),
		tickets:   ticketRegistry{now: now},
		sessions:  newSessionTracker(now),
	}

	logger.SVC.Info("workflow engine ready",
		slog.String("event", "svc.init"),
		slog.Int("users", len(st.Users)),
		slog.Int("pending", len(st.Pending)),
		slog.Int("admins", opts.Policy.Size()),
	)
	return s
}

// Policy exposes the authorization policy for handler-level checks.
func (s *Service) Policy() AuthorizationPolicy {
	return s.policy
}

// persistLocked saves the document. A failed save is logged and swallowed:
// the in-memory state stays authoritative and the bot keeps running.
// Must be called with s.mu held.
func (s *Service) persistLocked() {
	if s.store == nil {
		return
	}
	if err := s.store.Save(s.st); err != nil {
		logger.SVC.Error("state save failed, continuing in-memory",
			slog.String("event", "svc.persist"),
			slog.String("err", err.Error()),
		)
	}
}

// send delivers a single message, logging a transport failure.
func (s *Service) send(recipient int64, msg Message) error {
	if s.transport == nil {
		return nil
	}
	if err := s.transport.Send(recipient, msg); err != nil {
		logger.SVC.Warn("outbound send failed",
			slog.String("event", "svc.send"),
			slog.Int64("recipient", recipient),
			slog.String("err", err.Error()),
		)
		return err
	}
	return nil
}
