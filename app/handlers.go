package app

import (
	"errors"
	"fmt"
	"strings"

	"log/slog"

	"helpcenterbot/core/helpcenter"
	"helpcenterbot/core/logger"
	"helpcenterbot/core/telegram"
	"helpcenterbot/core/telegram/actiontoken"
	tghelpers "helpcenterbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

func displayName(u *tele.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if u.Username != "" {
		if name == "" {
			return "@" + u.Username
		}
		return name + " (@" + u.Username + ")"
	}
	return name
}

func (a *App) handleStart(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	a.service.RegisterUser(sender.ID, displayName(sender))
	return c.Send(textWelcome, menuMarkup())
}

// editMenu advances the menu by rewriting the pressed message in place.
// Falls back to a fresh message when the original cannot be edited.
func editMenu(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	if markup != nil {
		if err := c.Edit(text, markup); err == nil {
			return nil
		}
		return c.Send(text, markup)
	}
	if err := c.Edit(text); err == nil {
		return nil
	}
	return c.Send(text)
}

// registerMenuCallbacks wires the topic menu. These run as telebot unique
// callbacks, separate from the action token namespace.
func (a *App) registerMenuCallbacks(reg *telegram.Registry) {
	_ = reg.RegisterCallback(cbIssuePayment, func(c tele.Context) error {
		_ = tghelpers.Ack(c, "")
		return editMenu(c, textChooseService, serviceMarkup())
	})
	_ = reg.RegisterCallback(cbIssueTech, func(c tele.Context) error {
		_ = tghelpers.Ack(c, "")
		a.service.BeginTech(c.Sender().ID)
		return editMenu(c, textAskTechIssue, nil)
	})
	_ = reg.RegisterCallback(cbIssueOther, func(c tele.Context) error {
		_ = tghelpers.Ack(c, "")
		contact := a.cfg.Telegram.SupportContact
		if contact == "" {
			contact = "the admins"
		}
		return editMenu(c, fmt.Sprintf(textOtherIssue, contact), nil)
	})

	services := map[string]helpcenter.ServiceKind{
		cbPayVip:  helpcenter.ServiceVIP,
		cbPayDark: helpcenter.ServiceDark,
		cbPayBoth: helpcenter.ServiceBoth,
	}
	for key, kind := range services {
		k := kind
		_ = reg.RegisterCallback(key, func(c tele.Context) error {
			_ = tghelpers.Ack(c, "")
			a.service.BeginPayment(c.Sender().ID, k)
			return editMenu(c, textAskPaymentProof, nil)
		})
	}
}

// handleCallback routes every callback press. Menu presses carry a telebot
// unique key; everything else must decode as an action token or it is
// rejected outright.
func (a *App) handleCallback(reg *telegram.Registry) tele.HandlerFunc {
	return func(c tele.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}

		key := cb.Unique
		raw := cb.Data
		if key == "" && strings.HasPrefix(raw, "\f") {
			trimmed := strings.TrimPrefix(raw, "\f")
			key, _, _ = strings.Cut(trimmed, "|")
		}
		if key != "" {
			if h, ok := reg.GetCallback(key); ok {
				return h(c)
			}
			return reg.CallbackNotFound()(c)
		}

		token, err := actiontoken.Decode(strings.TrimSpace(raw))
		if err != nil {
			return reg.CallbackNotFound()(c)
		}
		return a.dispatchToken(c, token)
	}
}

func (a *App) dispatchToken(c tele.Context, token actiontoken.Token) error {
	tghelpers.WithHandler(c, "token."+string(token.Domain))
	adminID := c.Sender().ID

	switch token.Domain {
	case actiontoken.DomainPayment:
		res, err := a.service.ResolvePayment(adminID, token.TicketID, token.Action)
		if err != nil {
			return a.respondResolveErr(c, err)
		}
		tghelpers.MarkHandled(c, fmt.Sprintf("Handled: %s (user %d)", res.Outcome, res.UserID))
		return nil

	case actiontoken.DomainTech:
		res, err := a.service.ResolveTech(adminID, token.TicketID, token.Action)
		if err != nil {
			return a.respondResolveErr(c, err)
		}
		if res.Outcome == helpcenter.OutcomeReplyPrompt {
			_ = tghelpers.Ack(c, "")
			return c.Send(textSessionPromptReply, cancelMarkup(token.TicketID))
		}
		tghelpers.MarkHandled(c, fmt.Sprintf("Handled: %s (user %d)", res.Outcome, res.UserID))
		return nil

	case actiontoken.DomainPanel:
		return a.handlePanelAction(c, adminID, token.Action)

	case actiontoken.DomainCancel:
		if err := a.service.CancelSession(adminID); err != nil {
			if errors.Is(err, helpcenter.ErrNoActiveSession) {
				return tghelpers.Ack(c, textNoActiveSession)
			}
			return a.respondResolveErr(c, err)
		}
		tghelpers.MarkHandled(c, textSessionCancelled)
		return nil
	}
	return tghelpers.Ack(c, "Unsupported action")
}

func (a *App) respondResolveErr(c tele.Context, err error) error {
	switch {
	case errors.Is(err, helpcenter.ErrUnauthorized):
		return tghelpers.Ack(c, textNotAllowed)
	case errors.Is(err, helpcenter.ErrTicketNotFound):
		return tghelpers.Ack(c, textTicketGone)
	case errors.Is(err, helpcenter.ErrNoLinkConfigured):
		return tghelpers.Ack(c, "No link configured yet. Set it via /admin first.")
	default:
		logger.Warn(tghelpers.BuildContext(c), "app", "action.failed",
			slog.String("err", err.Error()),
		)
		return tghelpers.Ack(c, "Something went wrong, try again.")
	}
}

// withSessionPrecedence reroutes a command press into the sender's active
// admin session: mid-session text is the session's payload even when it
// parses as a command. Only /cancel bypasses this, so an admin can always
// escape a session.
func (a *App) withSessionPrecedence(h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		sender := c.Sender()
		if sender != nil {
			if _, active := a.service.ActiveSession(sender.ID); active {
				return a.consumeSession(c, sender.ID, strings.TrimSpace(c.Text()))
			}
		}
		return h(c)
	}
}

// handleText feeds admin session payloads first, then user submission flows.
// Registered as the registry's text fallback: it only sees text that matched
// no command route.
func (a *App) handleText(reg *telegram.Registry) tele.HandlerFunc {
	return func(c tele.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}
		text := strings.TrimSpace(c.Text())
		if text == "" {
			return nil
		}

		if a.service.Policy().IsAdmin(sender.ID) {
			if _, active := a.service.ActiveSession(sender.ID); active {
				return a.consumeSession(c, sender.ID, text)
			}
		}

		// Unknown slash commands fall through telebot's command routing
		// and land here.
		if strings.HasPrefix(text, "/") {
			if _, _, known := reg.LookupCommand(strings.Fields(text)[0]); !known {
				return c.Send(textUnknownCommand)
			}
		}

		a.service.RegisterUser(sender.ID, displayName(sender))
		switch a.service.Flow(sender.ID) {
		case helpcenter.FlowAwaitingTech:
			return a.submit(c, func() (helpcenter.SubmitResult, error) {
				return a.service.SubmitTech(sender.ID, text)
			})
		case helpcenter.FlowAwaitingPayment:
			return a.submit(c, func() (helpcenter.SubmitResult, error) {
				return a.service.SubmitPayment(sender.ID, text, nil)
			})
		default:
			return c.Send(textNotInFlow)
		}
	}
}

func (a *App) handlePhoto(c tele.Context) error {
	photo := c.Message().Photo
	if photo == nil {
		return nil
	}
	media := &helpcenter.MediaRef{Kind: helpcenter.MediaPhoto, FileID: photo.FileID}
	return a.handleMediaSubmission(c, media, c.Message().Caption)
}

func (a *App) handleDocument(c tele.Context) error {
	doc := c.Message().Document
	if doc == nil {
		return nil
	}
	media := &helpcenter.MediaRef{Kind: helpcenter.MediaDocument, FileID: doc.FileID}
	return a.handleMediaSubmission(c, media, c.Message().Caption)
}

func (a *App) handleMediaSubmission(c tele.Context, media *helpcenter.MediaRef, caption string) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	a.service.RegisterUser(sender.ID, displayName(sender))
	if a.service.Flow(sender.ID) != helpcenter.FlowAwaitingPayment {
		return c.Send(textNotInFlow)
	}
	return a.submit(c, func() (helpcenter.SubmitResult, error) {
		return a.service.SubmitPayment(sender.ID, strings.TrimSpace(caption), media)
	})
}

func (a *App) submit(c tele.Context, do func() (helpcenter.SubmitResult, error)) error {
	if _, err := do(); err != nil {
		if errors.Is(err, helpcenter.ErrWrongFlow) {
			return c.Send(textNotInFlow)
		}
		return err
	}
	return c.Send(textSubmissionReceived)
}
