package helpcenter

import (
	"fmt"

	"log/slog"

	"helpcenterbot/core/logger"
	"helpcenterbot/core/telegram/actiontoken"
)

// ResolveOutcome names the terminal (or pending) result of a ticket action.
type ResolveOutcome string

const (
	OutcomeApproved    ResolveOutcome = "approved"
	OutcomeDeclined    ResolveOutcome = "declined"
	OutcomeIgnored     ResolveOutcome = "ignored"
	OutcomeReplyPrompt ResolveOutcome = "reply_prompt"
)

// ResolveResult reports what a ticket action did.
type ResolveResult struct {
	Outcome   ResolveOutcome
	UserID    int64
	LinksSent int
}

// ResolvePayment applies an admin action to a payment ticket.
//
// Decline always resolves. Approvals resolve only when at least one of
// the requested links is configured; otherwise the call fails with
// ErrNoLinkConfigured and the ticket stays open for a retry after
// configuration. Each link actually dispatched increments LinksSent, so
// "both" with two configured links counts twice.
func (s *Service) ResolvePayment(adminID int64, ticketID, action string) (ResolveResult, error) {
	if !s.policy.IsAdmin(adminID) {
		return ResolveResult{}, ErrUnauthorized
	}

	s.mu.Lock()
	t, ok := s.tickets.get(s.st, ticketID)
	if !ok || t.Kind != TicketPayment {
		s.mu.Unlock()
		return ResolveResult{}, ErrTicketNotFound
	}

	if action == actiontoken.ActionDecline {
		if _, err := s.tickets.resolve(s.st, ticketID); err != nil {
			s.mu.Unlock()
			return ResolveResult{}, err
		}
		s.persistLocked()
		s.mu.Unlock()

		_ = s.send(t.UserID, Message{Text: noticeDeclined})
		s.logResolution(adminID, t, OutcomeDeclined, 0)
		return ResolveResult{Outcome: OutcomeDeclined, UserID: t.UserID}, nil
	}

	var links []string
	switch action {
	case actiontoken.ActionApproveVIP:
		if s.st.VipLink != "" {
			links = append(links, s.st.VipLink)
		}
	case actiontoken.ActionApproveDark:
		if s.st.DarkLink != "" {
			links = append(links, s.st.DarkLink)
		}
	case actiontoken.ActionApproveBoth:
		if s.st.VipLink != "" {
			links = append(links, s.st.VipLink)
		}
		if s.st.DarkLink != "" {
			links = append(links, s.st.DarkLink)
		}
	default:
		s.mu.Unlock()
		return ResolveResult{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	if len(links) == 0 {
		// No mutation: the ticket outlives the failed approval.
		s.mu.Unlock()
		return ResolveResult{}, ErrNoLinkConfigured
	}

	if _, err := s.tickets.resolve(s.st, ticketID); err != nil {
		s.mu.Unlock()
		return ResolveResult{}, err
	}
	// Counts attempted sends; a transport failure below does not roll back.
	s.st.Counters.LinksSent += uint64(len(links))
	s.persistLocked()
	s.mu.Unlock()

	for _, link := range links {
		_ = s.send(t.UserID, Message{Text: fmt.Sprintf(noticeLink, link)})
	}
	s.logResolution(adminID, t, OutcomeApproved, len(links))
	return ResolveResult{Outcome: OutcomeApproved, UserID: t.UserID, LinksSent: len(links)}, nil
}

// ResolveTech applies an admin action to a tech ticket. Ignore resolves
// immediately. Reply does not resolve: it opens a quick-reply session
// bound to the ticket, and resolution happens when the admin's next text
// is delivered (see ConsumeSessionText).
func (s *Service) ResolveTech(adminID int64, ticketID, action string) (ResolveResult, error) {
	if !s.policy.IsAdmin(adminID) {
		return ResolveResult{}, ErrUnauthorized
	}

	s.mu.Lock()
	t, ok := s.tickets.get(s.st, ticketID)
	if !ok || t.Kind != TicketTech {
		s.mu.Unlock()
		return ResolveResult{}, ErrTicketNotFound
	}

	switch action {
	case actiontoken.ActionIgnore:
		if _, err := s.tickets.resolve(s.st, ticketID); err != nil {
			s.mu.Unlock()
			return ResolveResult{}, err
		}
		s.persistLocked()
		s.mu.Unlock()

		_ = s.send(t.UserID, Message{Text: noticeIgnored})
		s.logResolution(adminID, t, OutcomeIgnored, 0)
		return ResolveResult{Outcome: OutcomeIgnored, UserID: t.UserID}, nil

	case actiontoken.ActionReply:
		s.mu.Unlock()
		s.sessions.start(adminID, ModeQuickReply, t.UserID, t.ID)
		logger.SVC.Info("quick-reply session opened",
			slog.String("event", "svc.session"),
			slog.Int64("admin_id", adminID),
			slog.String("ticket_id", t.ID),
			slog.Int64("user_id", t.UserID),
		)
		return ResolveResult{Outcome: OutcomeReplyPrompt, UserID: t.UserID}, nil

	default:
		s.mu.Unlock()
		return ResolveResult{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

func (s *Service) logResolution(adminID int64, t PendingTicket, outcome ResolveOutcome, links int) {
	logger.SVC.Info("ticket resolved",
		slog.String("event", "svc.resolve"),
		slog.String("ticket_id", t.ID),
		slog.String("kind", string(t.Kind)),
		slog.Int64("admin_id", adminID),
		slog.Int64("user_id", t.UserID),
		slog.String("action", string(outcome)),
		slog.Int("count", links),
	)
}
