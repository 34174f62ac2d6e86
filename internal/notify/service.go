package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gitlab.com/yelinaung/subnest/internal/logger"
	"gitlab.com/yelinaung/subnest/internal/models"
)

// Store is the persistence the service reads users from and records
// notifications in.
type Store interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	CreateNotification(ctx context.Context, n *models.Notification) error
	UpdateDeliveryStatus(ctx context.Context, id uuid.UUID, status string, sentAt *time.Time) error
	ListPendingNotifications(ctx context.Context, createdBefore time.Time) ([]models.Notification, error)
}

// ErrQuietHours is returned by Notify when the alert was recorded but held
// back until the user's quiet hours end.
var ErrQuietHours = errors.New("notification deferred during quiet hours")

// pendingGrace keeps DeliverPending away from rows Notify is still sending.
const pendingGrace = time.Minute

// Service sends alerts to users on the channels they enabled.
type Service struct {
	store      Store
	dispatcher *Dispatcher
	now        func() time.Time
}

// NewService creates a Service.
func NewService(store Store, dispatcher *Dispatcher) *Service {
	return &Service{store: store, dispatcher: dispatcher, now: time.Now}
}

// WithClock overrides the service's time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Notify delivers alert to userID on every channel enabled for its kind,
// recording one notification per channel. During quiet hours the records
// stay pending for DeliverPending and ErrQuietHours is returned. Delivery
// failures mark the record failed and are not returned.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, alert models.Alert) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load user for notification: %w", err)
	}

	prefs := models.ResolvePreferences(user.Preferences)
	channels := prefs.Channels(alert.Kind)
	if len(channels) == 0 {
		return nil
	}
	quiet := prefs.InQuietHours(s.now())

	var errs []error
	for _, channel := range channels {
		n := newNotification(user.ID, channel, alert)
		if err := s.store.CreateNotification(ctx, n); err != nil {
			errs = append(errs, err)
			continue
		}
		if quiet {
			continue
		}
		if err := s.send(ctx, user, n); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	if quiet {
		logger.Log.Debug().
			Str("user_id", logger.HashUserID(userID)).
			Str("kind", string(alert.Kind)).
			Msg("Deferring notification until quiet hours end")
		return ErrQuietHours
	}
	return nil
}

// DeliverPending sends notifications left pending by quiet hours whose
// owners are no longer in quiet hours at now. It returns the number of
// records attempted.
func (s *Service) DeliverPending(ctx context.Context, now time.Time) (int, error) {
	pending, err := s.store.ListPendingNotifications(ctx, now.Add(-pendingGrace))
	if err != nil {
		return 0, fmt.Errorf("failed to list pending notifications: %w", err)
	}

	users := make(map[uuid.UUID]*models.User)
	attempted := 0
	var errs []error
	for i := range pending {
		if err := ctx.Err(); err != nil {
			return attempted, err
		}
		n := &pending[i]

		user, seen := users[n.UserID]
		if !seen {
			user, err = s.store.GetUser(ctx, n.UserID)
			if err != nil {
				errs = append(errs, fmt.Errorf("failed to load user for pending notification: %w", err))
			}
			users[n.UserID] = user
		}
		if user == nil || models.ResolvePreferences(user.Preferences).InQuietHours(now) {
			continue
		}

		attempted++
		if err := s.send(ctx, user, n); err != nil {
			errs = append(errs, err)
		}
	}
	return attempted, errors.Join(errs...)
}

func newNotification(userID uuid.UUID, channel models.Channel, alert models.Alert) *models.Notification {
	return &models.Notification{
		UserID:         userID,
		Title:          alert.Title,
		Message:        alert.Message,
		Kind:           alert.Kind,
		RelatedID:      alert.RelatedID,
		RelatedType:    alert.RelatedType,
		Channel:        channel,
		DeliveryStatus: models.DeliveryPending,
	}
}

// send delivers a recorded notification and stores the outcome. Only store
// errors are returned.
func (s *Service) send(ctx context.Context, user *models.User, n *models.Notification) error {
	status := models.DeliverySent
	var sentAt *time.Time

	target, ok := targetFor(user, n.Channel)
	var sendErr error
	if !ok {
		sendErr = fmt.Errorf("user has no %s target", n.Channel)
	} else {
		sendErr = s.dispatcher.Send(ctx, n.Channel, target, n.Title, n.Message)
	}

	if sendErr != nil {
		status = models.DeliveryFailed
		logger.Log.Warn().Err(sendErr).
			Str("user_id", logger.HashUserID(user.ID)).
			Str("channel", string(n.Channel)).
			Msg("Failed to deliver notification")
	} else {
		at := s.now()
		sentAt = &at
	}

	return s.store.UpdateDeliveryStatus(ctx, n.ID, status, sentAt)
}

func targetFor(user *models.User, channel models.Channel) (string, bool) {
	switch channel {
	case models.ChannelPush:
		if user.TelegramChatID == nil {
			return "", false
		}
		return strconv.FormatInt(*user.TelegramChatID, 10), true
	case models.ChannelEmail:
		return user.Email, user.Email != ""
	case models.ChannelSMS:
		return user.PhoneNumber, user.PhoneNumber != ""
	}
	return "", false
}
