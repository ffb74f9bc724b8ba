package notification

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

// Telegram adapts the shared bot client to the notify service interface so
// deploy announcements reuse the frontend's connection.
type Telegram struct {
	client  *tgbotapi.BotAPI
	chatIDs []int64
}

func (t *Telegram) SetClient(client *tgbotapi.BotAPI) {
	t.client = client
}

// AddReceivers appends chat ids that will receive every notification.
func (t *Telegram) AddReceivers(chatIDs ...int64) {
	t.chatIDs = append(t.chatIDs, chatIDs...)
}

// Send delivers the subject and message to every registered chat.
func (t *Telegram) Send(ctx context.Context, subject, message string) error {
	text := fmt.Sprintf("%s\n%s", subject, message)
	for _, chatID := range t.chatIDs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := t.client.Send(msg); err != nil {
			return errors.Wrapf(err, "failed to send message to telegram chat '%d'", chatID)
		}
	}
	return nil
}
