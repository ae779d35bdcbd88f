package helpcenter

import (
	"log/slog"

	"helpcenterbot/core/logger"
)

// SubmitResult reports a ticket submission and its admin fan-out.
type SubmitResult struct {
	TicketID       string
	AdminsNotified int
	AdminsTotal    int
}

// RegisterUser records a user on first contact and refreshes the display
// name on subsequent ones. Records are never deleted.
func (s *Service) RegisterUser(userID int64, displayName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.st.Users[userID]
	if !ok {
		u = &UserRecord{ID: userID}
		s.st.Users[userID] = u
	}
	if displayName != "" {
		u.DisplayName = displayName
	}
	s.persistLocked()
}

// Flow returns the user's current flow state.
func (s *Service) Flow(userID int64) FlowState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.st.Users[userID]; ok {
		return u.LastAction
	}
	return FlowIdle
}

// BeginPayment marks the user as awaiting payment evidence for the chosen
// service.
func (s *Service) BeginPayment(userID int64, service ServiceKind) {
	s.setFlow(userID, FlowAwaitingPayment, service)
}

// BeginTech marks the user as awaiting a technical issue description.
func (s *Service) BeginTech(userID int64) {
	s.setFlow(userID, FlowAwaitingTech, ServiceNone)
}

func (s *Service) setFlow(userID int64, flow FlowState, service ServiceKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.st.Users[userID]
	if !ok {
		u = &UserRecord{ID: userID}
		s.st.Users[userID] = u
	}
	u.LastAction = flow
	u.LastService = service
	s.persistLocked()

	logger.SVC.Debug("user flow changed",
		slog.String("event", "svc.flow"),
		slog.Int64("user_id", userID),
		slog.String("flow", string(flow)),
		slog.String("service", string(service)),
	)
}

// SubmitPayment accepts payment evidence from a user in the awaiting-payment
// flow: it creates a pending ticket, bumps the counter, resets the flow and
// persists, then notifies all admins. The flow reset is part of the same
// critical section as the ticket creation, so a partially failed fan-out can
// never leave the user stuck.
func (s *Service) SubmitPayment(userID int64, caption string, media *MediaRef) (SubmitResult, error) {
	s.mu.Lock()
	u, ok := s.st.Users[userID]
	if !ok || u.LastAction != FlowAwaitingPayment {
		s.mu.Unlock()
		return SubmitResult{}, ErrWrongFlow
	}

	ticket := PendingTicket{
		Kind:     TicketPayment,
		UserID:   userID,
		Service:  u.LastService,
		Text:     caption,
		HasMedia: media != nil,
	}
	id := s.tickets.create(s.st, ticket)
	s.st.Counters.PaymentSubmitted++
	u.LastAction = FlowIdle
	u.LastService = ServiceNone
	displayName := u.DisplayName
	s.persistLocked()
	ticket.ID = id
	s.mu.Unlock()

	return s.notifyAdmins(ticket, displayName, media)
}

// SubmitTech accepts a technical issue description from a user in the
// awaiting-tech flow. Same lifecycle as SubmitPayment.
func (s *Service) SubmitTech(userID int64, text string) (SubmitResult, error) {
	s.mu.Lock()
	u, ok := s.st.Users[userID]
	if !ok || u.LastAction != FlowAwaitingTech {
		s.mu.Unlock()
		return SubmitResult{}, ErrWrongFlow
	}

	ticket := PendingTicket{
		Kind:   TicketTech,
		UserID: userID,
		Text:   text,
	}
	id := s.tickets.create(s.st, ticket)
	s.st.Counters.TechSubmitted++
	u.LastAction = FlowIdle
	displayName := u.DisplayName
	s.persistLocked()
	ticket.ID = id
	s.mu.Unlock()

	return s.notifyAdmins(ticket, displayName, nil)
}

func (s *Service) notifyAdmins(ticket PendingTicket, displayName string, media *MediaRef) (SubmitResult, error) {
	admins := s.policy.Admins()
	if len(admins) == 0 {
		logger.SVC.Warn("no admins configured, submission will not be reviewed",
			slog.String("event", "svc.submit"),
			slog.String("ticket_id", ticket.ID),
			slog.String("kind", string(ticket.Kind)),
		)
		return SubmitResult{TicketID: ticket.ID}, nil
	}

	msg := ticketNotification(ticket, displayName, media)
	notified := s.fanout.Send(admins, func(adminID int64) error {
		return s.transport.Send(adminID, msg)
	})

	logger.SVC.Info("ticket submitted",
		slog.String("event", "svc.submit"),
		slog.String("ticket_id", ticket.ID),
		slog.String("kind", string(ticket.Kind)),
		slog.Int64("user_id", ticket.UserID),
		slog.Int("recipients", len(admins)),
		slog.Int("delivered", notified),
	)
	return SubmitResult{TicketID: ticket.ID, AdminsNotified: notified, AdminsTotal: len(admins)}, nil
}
