package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"helpcenterbot/core/helpcenter"
	"helpcenterbot/core/telegram"
	"helpcenterbot/core/telegram/actiontoken"
	"helpcenterbot/core/telegram/commands"
	tghelpers "helpcenterbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

func (a *App) registerCommands(reg *telegram.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     a.handleStart,
		Description: "Open the help menu",
	})

	reg.RegisterCommand("/admin", commands.Command{
		Handler:     a.cmdAdminPanel,
		Description: "Open the admin panel",
		AdminOnly:   true,
		Hidden:      true,
		Aliases:     []string{"/panel"},
	})
	reg.RegisterCommand("/set_vip_link", commands.Command{
		Handler:     a.setLinkCommand(helpcenter.ModeSetVip, textSessionPromptVip, a.service.SetVipLink),
		Description: "Replace the VIP invite link",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/set_dark_link", commands.Command{
		Handler:     a.setLinkCommand(helpcenter.ModeSetDark, textSessionPromptDark, a.service.SetDarkLink),
		Description: "Replace the DARK invite link",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/set_both_link", commands.Command{
		Handler:     a.cmdSetBothLinks,
		Description: "Replace both invite links",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/get_links", commands.Command{
		Handler:     a.cmdGetLinks,
		Description: "Show the configured invite links",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/broadcast", commands.Command{
		Handler:     a.cmdBroadcast,
		Description: "Send a message to every user",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/insights", commands.Command{
		Handler:     a.cmdInsights,
		Description: "Show usage counters",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/reply", commands.Command{
		Handler:     a.cmdReply,
		Description: "Reply to a user: /reply <user_id> <text>",
		AdminOnly:   true,
		Hidden:      true,
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler:     a.cmdCancel,
		Description: "Cancel the active admin session",
		AdminOnly:   true,
		Hidden:      true,
	})
}

func panelMarkup() *tele.ReplyMarkup {
	row := func(text, action string) helpcenter.Button {
		data, _ := actiontoken.Encode(actiontoken.Token{
			Domain: actiontoken.DomainPanel,
			Action: action,
		})
		return helpcenter.Button{Text: text, Data: data}
	}
	return telegram.Markup([][]helpcenter.Button{
		{row("Set VIP link", actiontoken.ActionSetVip), row("Set DARK link", actiontoken.ActionSetDark)},
		{row("Set both links", actiontoken.ActionSetBoth)},
		{row("Broadcast", actiontoken.ActionBroadcast), row("Insights", actiontoken.ActionInsights)},
	})
}

func (a *App) cmdAdminPanel(c tele.Context) error {
	return c.Send("Admin panel", panelMarkup())
}

// handlePanelAction maps a panel button press to its session or report.
func (a *App) handlePanelAction(c tele.Context, adminID int64, action string) error {
	startSession := func(mode helpcenter.AdminMode, prompt string) error {
		if err := a.service.StartSession(adminID, mode); err != nil {
			return a.respondResolveErr(c, err)
		}
		_ = tghelpers.Ack(c, "")
		return c.Send(prompt, cancelMarkup(""))
	}

	switch action {
	case actiontoken.ActionSetVip:
		return startSession(helpcenter.ModeSetVip, textSessionPromptVip)
	case actiontoken.ActionSetDark:
		return startSession(helpcenter.ModeSetDark, textSessionPromptDark)
	case actiontoken.ActionSetBoth:
		return startSession(helpcenter.ModeSetBoth, textSessionPromptBoth)
	case actiontoken.ActionBroadcast:
		return startSession(helpcenter.ModeBroadcast, textSessionPromptCast)
	case actiontoken.ActionInsights:
		_ = tghelpers.Ack(c, "")
		return a.cmdInsights(c)
	}
	return tghelpers.Ack(c, "Unsupported action")
}

// setLinkCommand sets the link from the command argument when given, and
// falls back to a prompt session otherwise.
func (a *App) setLinkCommand(mode helpcenter.AdminMode, prompt string, set func(int64, string) error) tele.HandlerFunc {
	return func(c tele.Context) error {
		adminID := c.Sender().ID
		arg := strings.TrimSpace(c.Message().Payload)
		if arg == "" {
			if err := a.service.StartSession(adminID, mode); err != nil {
				return err
			}
			return c.Send(prompt, cancelMarkup(""))
		}
		if err := set(adminID, arg); err != nil {
			return err
		}
		return c.Send("Link updated.")
	}
}

func (a *App) cmdSetBothLinks(c tele.Context) error {
	adminID := c.Sender().ID
	fields := strings.Fields(c.Message().Payload)
	if len(fields) == 0 {
		if err := a.service.StartSession(adminID, helpcenter.ModeSetBoth); err != nil {
			return err
		}
		return c.Send(textSessionPromptBoth, cancelMarkup(""))
	}
	if len(fields) != 2 {
		return c.Send("Usage: /set_both_link <vip> <dark>")
	}
	if err := a.service.SetBothLinks(adminID, fields[0], fields[1]); err != nil {
		return err
	}
	return c.Send("Both links updated.")
}

func (a *App) cmdGetLinks(c tele.Context) error {
	links, err := a.service.Links(c.Sender().ID)
	if err != nil {
		return err
	}
	show := func(s string) string {
		if s == "" {
			return "(not set)"
		}
		return s
	}
	// Code spans keep underscores in invite links out of Markdown parsing.
	return tghelpers.SendMD(c, fmt.Sprintf("*VIP:* `%s`\n*DARK:* `%s`", show(links.Vip), show(links.Dark)))
}

func (a *App) cmdBroadcast(c tele.Context) error {
	adminID := c.Sender().ID
	text := strings.TrimSpace(c.Message().Payload)
	if text == "" {
		if err := a.service.StartSession(adminID, helpcenter.ModeBroadcast); err != nil {
			return err
		}
		return c.Send(textSessionPromptCast, cancelMarkup(""))
	}
	rep, err := a.service.Broadcast(adminID, text)
	if err != nil {
		return err
	}
	return c.Send(fmt.Sprintf("Broadcast delivered to %d of %d users.", rep.Delivered, rep.Total))
}

func (a *App) cmdInsights(c tele.Context) error {
	rep, err := a.service.Insights(c.Sender().ID)
	if err != nil {
		return err
	}
	show := func(s string) string {
		if s == "" {
			return "(not set)"
		}
		return s
	}
	return tghelpers.SendMD(c, fmt.Sprintf(
		"*Users:* %d\n*Pending tickets:* %d\n*Payments submitted:* %d\n*Tech issues submitted:* %d\n*Links sent:* %d\n*VIP:* `%s`\n*DARK:* `%s`",
		rep.UsersTotal, rep.PendingTotal,
		rep.Counters.PaymentSubmitted, rep.Counters.TechSubmitted, rep.Counters.LinksSent,
		show(rep.VipLink), show(rep.DarkLink),
	))
}

func (a *App) cmdReply(c tele.Context) error {
	adminID := c.Sender().ID
	payload := strings.TrimSpace(c.Message().Payload)
	idStr, text, ok := strings.Cut(payload, " ")
	if !ok || strings.TrimSpace(text) == "" {
		return c.Send("Usage: /reply <user_id> <text>")
	}
	targetID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return c.Send("Usage: /reply <user_id> <text>")
	}
	if err := a.service.DirectReply(adminID, targetID, strings.TrimSpace(text)); err != nil {
		return c.Send("Could not deliver the reply.")
	}
	return c.Send("Delivered.")
}

func (a *App) cmdCancel(c tele.Context) error {
	if err := a.service.CancelSession(c.Sender().ID); err != nil {
		if errors.Is(err, helpcenter.ErrNoActiveSession) {
			return c.Send(textNoActiveSession)
		}
		return err
	}
	return c.Send(textSessionCancelled)
}

// consumeSession feeds an admin's text into the active session and reports
// the result back.
func (a *App) consumeSession(c tele.Context, adminID int64, text string) error {
	res, err := a.service.ConsumeSessionText(adminID, text)
	if err != nil {
		if errors.Is(err, helpcenter.ErrNoActiveSession) {
			return nil
		}
		return c.Send(fmt.Sprintf("Not applied: %v", err))
	}

	switch res.Mode {
	case helpcenter.ModeBroadcast:
		return c.Send(fmt.Sprintf("Broadcast delivered to %d of %d users.", res.Delivered, res.Total))
	case helpcenter.ModeQuickReply:
		return c.Send(fmt.Sprintf("Reply delivered, ticket %s closed.", res.TicketID))
	default:
		return c.Send("Link updated.")
	}
}
