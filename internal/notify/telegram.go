package notify

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

// MessageSender is the part of the Telegram bot API used for push
// notifications. Implemented by *bot.Bot.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

var _ MessageSender = (*bot.Bot)(nil)

// TelegramSender delivers push notifications as Telegram messages. The
// target is the numeric chat id.
type TelegramSender struct {
	api MessageSender
}

// NewTelegramSender creates a TelegramSender.
func NewTelegramSender(api MessageSender) *TelegramSender {
	return &TelegramSender{api: api}
}

// NewTelegramBot connects a bot client for push delivery.
func NewTelegramBot(token string) (*bot.Bot, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return b, nil
}

// Send implements Sender.
func (s *TelegramSender) Send(ctx context.Context, target, title, body string) error {
	chatID, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", target, err)
	}

	text := title
	if body != "" {
		text = title + "\n\n" + body
	}

	_, err = s.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}
