package helpcenter

import (
	"fmt"
	"sort"
	"strings"

	"log/slog"

	"helpcenterbot/core/logger"
)

// LinkSet is the current pair of invite links.
type LinkSet struct {
	Vip  string
	Dark string
}

// BroadcastReport summarizes a broadcast run.
type BroadcastReport struct {
	Delivered int
	Total     int
}

// InsightsReport is a point-in-time snapshot for the /insights command.
type InsightsReport struct {
	Counters     Counters
	VipLink      string
	DarkLink     string
	UsersTotal   int
	PendingTotal int
}

// SessionResult reports what consuming a session payload did.
type SessionResult struct {
	Mode      AdminMode
	Delivered int
	Total     int
	UserID    int64
	TicketID  string
}

// SetVipLink replaces the VIP invite link.
func (s *Service) SetVipLink(adminID int64, link string) error {
	return s.setLinks(adminID, link, "", "vip")
}

// SetDarkLink replaces the DARK invite link.
func (s *Service) SetDarkLink(adminID int64, link string) error {
	return s.setLinks(adminID, "", link, "dark")
}

// SetBothLinks replaces both invite links at once.
func (s *Service) SetBothLinks(adminID int64, vip, dark string) error {
	return s.setLinks(adminID, vip, dark, "both")
}

func (s *Service) setLinks(adminID int64, vip, dark, which string) error {
	if !s.policy.IsAdmin(adminID) {
		return ErrUnauthorized
	}
	vip = strings.TrimSpace(vip)
	dark = strings.TrimSpace(dark)

	s.mu.Lock()
	if which == "vip" || which == "both" {
		s.st.VipLink = vip
	}
	if which == "dark" || which == "both" {
		s.st.DarkLink = dark
	}
	s.persistLocked()
	s.mu.Unlock()

	logger.SVC.Info("links updated",
		slog.String("event", "svc.links"),
		slog.Int64("admin_id", adminID),
		slog.String("target", which),
	)
	return nil
}

// Links returns the currently configured invite links.
func (s *Service) Links(adminID int64) (LinkSet, error) {
	if !s.policy.IsAdmin(adminID) {
		return LinkSet{}, ErrUnauthorized
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return LinkSet{Vip: s.st.VipLink, Dark: s.st.DarkLink}, nil
}

// Broadcast sends text to every registered user. Delivery runs outside the
// state lock against a snapshot of the user set, so users registering
// mid-broadcast are simply not included.
func (s *Service) Broadcast(adminID int64, text string) (BroadcastReport, error) {
	if !s.policy.IsAdmin(adminID) {
		return BroadcastReport{}, ErrUnauthorized
	}

	s.mu.Lock()
	ids := make([]int64, 0, len(s.st.Users))
	for id := range s.st.Users {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	msg := Message{Text: text}
	delivered := s.fanout.Send(ids, func(recipient int64) error {
		return s.transport.Send(recipient, msg)
	})

	logger.SVC.Info("broadcast finished",
		slog.String("event", "svc.broadcast"),
		slog.Int64("admin_id", adminID),
		slog.Int("delivered", delivered),
		slog.Int("total", len(ids)),
	)
	return BroadcastReport{Delivered: delivered, Total: len(ids)}, nil
}

// Insights returns usage counters and configuration state.
func (s *Service) Insights(adminID int64) (InsightsReport, error) {
	if !s.policy.IsAdmin(adminID) {
		return InsightsReport{}, ErrUnauthorized
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return InsightsReport{
		Counters:     s.st.Counters,
		VipLink:      s.st.VipLink,
		DarkLink:     s.st.DarkLink,
		UsersTotal:   len(s.st.Users),
		PendingTotal: len(s.st.Pending),
	}, nil
}

// DirectReply sends a one-off admin message to a user, outside any ticket.
func (s *Service) DirectReply(adminID, targetID int64, text string) error {
	if !s.policy.IsAdmin(adminID) {
		return ErrUnauthorized
	}
	return s.send(targetID, Message{Text: adminReplyPrefix + text})
}

// StartSession opens a session for the admin, replacing any existing one.
func (s *Service) StartSession(adminID int64, mode AdminMode) error {
	if !s.policy.IsAdmin(adminID) {
		return ErrUnauthorized
	}
	s.sessions.start(adminID, mode, 0, "")
	return nil
}

// ActiveSession returns the admin's current session, if any.
func (s *Service) ActiveSession(adminID int64) (AdminSession, bool) {
	return s.sessions.current(adminID)
}

// CancelSession drops the admin's active session. A cancelled quick-reply
// leaves its ticket open for another admin to pick up.
func (s *Service) CancelSession(adminID int64) error {
	if !s.policy.IsAdmin(adminID) {
		return ErrUnauthorized
	}
	if !s.sessions.clear(adminID) {
		return ErrNoActiveSession
	}
	return nil
}

// ConsumeSessionText feeds the admin's next text message into the active
// session. Link modes store the payload, broadcast fans it out, quick-reply
// delivers it to the ticket's user and only then resolves the ticket. The
// session is cleared in every successful path.
func (s *Service) ConsumeSessionText(adminID int64, text string) (SessionResult, error) {
	if !s.policy.IsAdmin(adminID) {
		return SessionResult{}, ErrUnauthorized
	}
	sess, ok := s.sessions.current(adminID)
	if !ok {
		return SessionResult{}, ErrNoActiveSession
	}

	res := SessionResult{Mode: sess.Mode}
	switch sess.Mode {
	case ModeSetVip:
		if err := s.SetVipLink(adminID, text); err != nil {
			return SessionResult{}, err
		}
	case ModeSetDark:
		if err := s.SetDarkLink(adminID, text); err != nil {
			return SessionResult{}, err
		}
	case ModeSetBoth:
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return SessionResult{}, fmt.Errorf("expected two links separated by whitespace, got %d fields", len(fields))
		}
		if err := s.SetBothLinks(adminID, fields[0], fields[1]); err != nil {
			return SessionResult{}, err
		}
	case ModeBroadcast:
		rep, err := s.Broadcast(adminID, text)
		if err != nil {
			return SessionResult{}, err
		}
		res.Delivered = rep.Delivered
		res.Total = rep.Total
	case ModeQuickReply:
		// Deliver first. If the user is unreachable the ticket stays
		// open and the session stays active for a retry.
		if err := s.send(sess.TargetUserID, Message{Text: adminReplyPrefix + text}); err != nil {
			return SessionResult{}, fmt.Errorf("deliver reply: %w", err)
		}
		s.mu.Lock()
		_, err := s.tickets.resolve(s.st, sess.TicketID)
		if err == nil {
			s.persistLocked()
		}
		s.mu.Unlock()
		if err != nil {
			logger.SVC.Warn("quick-reply ticket already resolved",
				slog.String("event", "svc.session"),
				slog.String("ticket_id", sess.TicketID),
				slog.Int64("admin_id", adminID),
			)
		}
		res.UserID = sess.TargetUserID
		res.TicketID = sess.TicketID
	default:
		return SessionResult{}, fmt.Errorf("%w: session mode %q", ErrUnknownAction, sess.Mode)
	}

	s.sessions.clear(adminID)
	return res, nil
}
