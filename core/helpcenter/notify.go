package helpcenter

import (
	"fmt"
	"strings"

	"log/slog"

	"helpcenterbot/core/logger"
	"helpcenterbot/core/telegram/actiontoken"
)

// User-facing resolution notices. Broadcast and quick-reply bodies are
// free-form admin text and pass through untouched.
const (
	noticeDeclined = "Your payment submission was reviewed by admin and declined. If you believe this is a mistake, reply here or contact support."
	noticeIgnored  = "Admin marked your issue as invalid/ignored. If you disagree, reply here."
	noticeLink     = "Admin approved. Here's your link: %s"

	adminReplyPrefix = "Admin: "
)

// ticketNotification renders the admin-facing message for a fresh ticket,
// including its resolution buttons.
func ticketNotification(t PendingTicket, displayName string, media *MediaRef) Message {
	name := displayName
	if name == "" {
		name = "unknown"
	}

	var b strings.Builder
	switch t.Kind {
	case TicketPayment:
		fmt.Fprintf(&b, "Payment proof from %s (id: %d)\n", name, t.UserID)
		fmt.Fprintf(&b, "Service: %s\n", strings.ToUpper(string(t.Service)))
		if t.Text != "" {
			fmt.Fprintf(&b, "Ref: %s\n", t.Text)
		}
		if !t.HasMedia {
			b.WriteString("(no screenshot attached)\n")
		}
	default:
		fmt.Fprintf(&b, "Tech issue from %s (id: %d)\n\n%s", name, t.UserID, t.Text)
	}

	return Message{
		Text:    b.String(),
		Media:   media,
		Buttons: ticketButtons(t),
	}
}

func ticketButtons(t PendingTicket) [][]Button {
	switch t.Kind {
	case TicketPayment:
		return [][]Button{
			{
				tokenButton("Approve VIP", actiontoken.DomainPayment, actiontoken.ActionApproveVIP, t.ID, 0),
				tokenButton("Approve DARK", actiontoken.DomainPayment, actiontoken.ActionApproveDark, t.ID, 0),
			},
			{tokenButton("Approve BOTH", actiontoken.DomainPayment, actiontoken.ActionApproveBoth, t.ID, 0)},
			{tokenButton("Decline", actiontoken.DomainPayment, actiontoken.ActionDecline, t.ID, 0)},
		}
	default:
		return [][]Button{
			{
				tokenButton("Reply", actiontoken.DomainTech, actiontoken.ActionReply, t.ID, t.UserID),
				tokenButton("Ignore", actiontoken.DomainTech, actiontoken.ActionIgnore, t.ID, 0),
			},
		}
	}
}

// CancelButton builds the cancel button attached to admin session prompts.
// The ticket id keeps a quick-reply cancel resolvable to its open ticket.
func CancelButton(ticketID string) Button {
	return tokenButton("❌ Cancel", actiontoken.DomainCancel, actiontoken.ActionCancel, ticketID, 0)
}

func tokenButton(text string, domain actiontoken.Domain, action, ticketID string, subject int64) Button {
	data, err := actiontoken.Encode(actiontoken.Token{
		Domain:   domain,
		Action:   action,
		TicketID: ticketID,
		Subject:  subject,
	})
	if err != nil {
		// Registry-issued ids always encode; anything else is a programming error.
		logger.SVC.Error("token encode failed",
			slog.String("event", "svc.token"),
			slog.String("action", action),
			slog.String("ticket_id", ticketID),
			slog.String("err", err.Error()),
		)
	}
	return Button{Text: text, Data: data}
}
