package telegram

import (
	"fmt"
	"sync/atomic"

	"log/slog"

	"helpcenterbot/core/helpcenter"
	"helpcenterbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// Sender adapts a telebot bot to the workflow engine's outbound transport.
// The bot instance only exists after RunTelegram builds it, so Sender is
// created first and bound to the bot from the OnStart hook.
type Sender struct {
	bot atomic.Pointer[tele.Bot]
}

// NewSender returns an unbound Sender. Sends before Bind fail.
func NewSender() *Sender {
	return &Sender{}
}

// Bind attaches the live bot instance.
func (s *Sender) Bind(bot *tele.Bot) {
	s.bot.Store(bot)
}

// Send delivers a workflow message to a chat id. Media messages carry the
// text as caption.
func (s *Sender) Send(recipient int64, msg helpcenter.Message) error {
	bot := s.bot.Load()
	if bot == nil {
		return fmt.Errorf("telegram: sender not bound")
	}

	to := &tele.User{ID: recipient}
	opts := &tele.SendOptions{}
	if markup := Markup(msg.Buttons); markup != nil {
		opts.ReplyMarkup = markup
	}

	var err error
	switch {
	case msg.Media != nil && msg.Media.Kind == helpcenter.MediaPhoto:
		_, err = bot.Send(to, &tele.Photo{File: tele.File{FileID: msg.Media.FileID}, Caption: msg.Text}, opts)
	case msg.Media != nil && msg.Media.Kind == helpcenter.MediaDocument:
		_, err = bot.Send(to, &tele.Document{File: tele.File{FileID: msg.Media.FileID}, Caption: msg.Text}, opts)
	default:
		_, err = bot.Send(to, msg.Text, opts)
	}
	if err != nil {
		logger.TG.Warn("send failed",
			slog.String("event", "tg.send"),
			slog.Int64("recipient", recipient),
			slog.String("err", err.Error()),
		)
		return err
	}
	return nil
}

// Markup converts a workflow button grid into an inline keyboard. Button
// data is used verbatim as callback data.
func Markup(rows [][]helpcenter.Button) *tele.ReplyMarkup {
	if len(rows) == 0 {
		return nil
	}
	inline := make([][]tele.InlineButton, len(rows))
	for i, row := range rows {
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = tele.InlineButton{Text: btn.Text, Data: btn.Data}
		}
		inline[i] = r
	}
	return &tele.ReplyMarkup{InlineKeyboard: inline}
}
