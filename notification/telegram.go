package notification

import (
	"time"

	tb "gopkg.in/tucnak/telebot.v2"

	"github.com/quantview/quantview/tools/log"
)

// Telegram is a send-only notifier posting alert messages to one chat.
type Telegram struct {
	client *tb.Bot
	chatID int64
}

// NewTelegram creates the notifier for the given bot token and chat.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	client, err := tb.NewBot(tb.Settings{
		Token:     token,
		ParseMode: tb.ModeMarkdown,
		Poller:    &tb.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, err
	}
	return &Telegram{client: client, chatID: chatID}, nil
}

// Notify posts the message. Failures are logged, never returned: an alert
// that cannot be delivered must not break the pipeline that raised it.
func (t *Telegram) Notify(text string) {
	if _, err := t.client.Send(&tb.User{ID: t.chatID}, text); err != nil {
		log.WithError(err).Error("notification/telegram: send failed")
	}
}
