package app

import (
	"helpcenterbot/core/helpcenter"
	"helpcenterbot/core/telegram"
	"helpcenterbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

// Menu callback keys. These travel as telebot unique callbacks and are
// registered on the callback registry under the same names.
const (
	cbIssuePayment = "issue_payment"
	cbIssueTech    = "issue_tech"
	cbIssueOther   = "issue_other"

	cbPayVip  = "pay_vip"
	cbPayDark = "pay_dark"
	cbPayBoth = "pay_both"
)

func menuMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtons([]keyboard.InlineBtn{
		{Text: "💳 I paid, need access", Unique: cbIssuePayment},
		{Text: "🛠 Technical issue", Unique: cbIssueTech},
		{Text: "💬 Something else", Unique: cbIssueOther},
	})
}

func serviceMarkup() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows(
		[]keyboard.InlineBtn{
			{Text: "VIP", Unique: cbPayVip},
			{Text: "DARK", Unique: cbPayDark},
		},
		[]keyboard.InlineBtn{{Text: "Both", Unique: cbPayBoth}},
	)
}

// cancelMarkup attaches the session cancel button to a prompt.
func cancelMarkup(ticketID string) *tele.ReplyMarkup {
	return telegram.Markup([][]helpcenter.Button{{helpcenter.CancelButton(ticketID)}})
}
