// Package notify delivers user notifications over push, email and SMS
// according to each user's preferences.
package notify

import (
	"context"
	"errors"
	"fmt"

	"gitlab.com/yelinaung/subnest/internal/models"
)

// ErrNoSender is returned when no sender is registered for a channel.
var ErrNoSender = errors.New("no sender for channel")

// Sender delivers one message to one target, such as a chat id or an email
// address.
type Sender interface {
	Send(ctx context.Context, target, title, body string) error
}

// Dispatcher routes messages to the sender registered for their channel.
type Dispatcher struct {
	senders map[models.Channel]Sender
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{senders: make(map[models.Channel]Sender)}
}

// Register sets the sender for a channel, replacing any previous one.
func (d *Dispatcher) Register(channel models.Channel, s Sender) *Dispatcher {
	d.senders[channel] = s
	return d
}

// Send delivers a message on channel.
func (d *Dispatcher) Send(ctx context.Context, channel models.Channel, target, title, body string) error {
	s, ok := d.senders[channel]
	if !ok {
		return fmt.Errorf("%w %s", ErrNoSender, channel)
	}
	return s.Send(ctx, target, title, body)
}
