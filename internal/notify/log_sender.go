package notify

import (
	"context"

	"gitlab.com/yelinaung/subnest/internal/logger"
	"gitlab.com/yelinaung/subnest/internal/models"
)

// LogSender records messages in the log instead of delivering them. It
// stands in for channels without a configured provider.
type LogSender struct {
	Channel models.Channel
}

// Send implements Sender.
func (s LogSender) Send(_ context.Context, target, title, body string) error {
	logger.Log.Info().
		Str("channel", string(s.Channel)).
		Str("target", logger.SanitizeText(target)).
		Str("title", title).
		Int("body_len", len(body)).
		Msg("Notification logged")
	return nil
}
