package helpers

import (
	"log/slog"

	"helpcenterbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// SendText sends raw text (no parse mode) to the current recipient.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	if len(opts) > 0 && opts[0] != nil {
		return c.Send(text, opts[0])
	}
	return c.Send(text)
}

// SendMD sends a message with Markdown parse mode and optional reply markup.
func SendMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	var rm *tele.ReplyMarkup
	if len(markup) > 0 {
		rm = markup[0]
	}
	return SendText(c, text, &tele.SendOptions{ParseMode: tele.ModeMarkdown, ReplyMarkup: rm})
}

// Ack answers a callback query with an optional toast text.
func Ack(c tele.Context, text string) error {
	return c.Respond(&tele.CallbackResponse{Text: text})
}

// MarkHandled rewrites the message a callback button was attached to so the
// button cannot fire twice. Telegram rejects edits for some message kinds,
// so the helper degrades step by step: edit the text, then the caption,
// then just strip the keyboard, and as a last resort acknowledge the
// callback alone.
func MarkHandled(c tele.Context, text string) {
	if err := c.Edit(text); err == nil {
		return
	}
	msg := c.Message()
	if msg != nil {
		if _, err := c.Bot().EditCaption(msg, text); err == nil {
			return
		}
		if _, err := c.Bot().EditReplyMarkup(msg, &tele.ReplyMarkup{}); err == nil {
			return
		}
	}
	logger.TG.Debug("edit degraded to plain ack",
		slog.String("event", "tg.edit"),
	)
	_ = Ack(c, text)
}
