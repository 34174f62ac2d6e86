package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gitlab.com/yelinaung/subnest/internal/logger"
	"gitlab.com/yelinaung/subnest/internal/models"
)

// ReminderStore is the persistence the reminder job reads due items from.
type ReminderStore interface {
	ListEligibleUsers(ctx context.Context) ([]models.User, error)
	ListSubscriptionsDueOn(ctx context.Context, userID uuid.UUID, date time.Time) ([]models.Subscription, error)
	ListPendingBillsDueOn(ctx context.Context, userID uuid.UUID, date time.Time) ([]models.Bill, error)
	NotificationExistsOn(ctx context.Context, userID uuid.UUID, kind models.NotificationKind, relatedID uuid.UUID, day time.Time) (bool, error)
}

// Alerter delivers an alert to a user. Implemented by *Service.
type Alerter interface {
	Notify(ctx context.Context, userID uuid.UUID, alert models.Alert) error
}

// ReminderJob notifies users about subscription renewals and bills coming
// due, each user's days_before ahead of the date. A reminder goes out at
// most once per item per day.
type ReminderJob struct {
	store   ReminderStore
	alerter Alerter
	loc     *time.Location
}

// NewReminderJob creates a ReminderJob evaluating calendar days in loc.
func NewReminderJob(store ReminderStore, alerter Alerter, loc *time.Location) *ReminderJob {
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderJob{store: store, alerter: alerter, loc: loc}
}

// Name implements the job interface.
func (j *ReminderJob) Name() string { return "reminders" }

// Run sends every reminder due at now. Failures for one user are logged
// and do not stop the others.
func (j *ReminderJob) Run(ctx context.Context, now time.Time) error {
	users, err := j.store.ListEligibleUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users for reminders: %w", err)
	}

	local := now.In(j.loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, j.loc)
	today := models.DateOf(local)

	sent := 0
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := j.remindUser(ctx, user, today, dayStart)
		sent += n
		if err != nil {
			logger.Log.Error().Err(err).
				Str("user_id", logger.HashUserID(user.ID)).
				Msg("Failed to send reminders")
		}
	}

	logger.Log.Info().
		Int("users", len(users)).
		Int("reminders", sent).
		Msg("Reminder run completed")
	return nil
}

func (j *ReminderJob) remindUser(ctx context.Context, user models.User, today, dayStart time.Time) (int, error) {
	prefs := models.ResolvePreferences(user.Preferences)
	sent := 0

	if len(prefs.Channels(models.KindSubscriptionReminder)) > 0 {
		days := prefs.DaysBefore(models.KindSubscriptionReminder)
		subs, err := j.store.ListSubscriptionsDueOn(ctx, user.ID, today.AddDate(0, 0, days))
		if err != nil {
			return sent, err
		}
		for _, sub := range subs {
			alert := models.Alert{
				Kind:        models.KindSubscriptionReminder,
				RelatedID:   &sub.ID,
				RelatedType: "subscription",
				Title:       fmt.Sprintf("%s renews soon", sub.Name),
				Message: fmt.Sprintf("%s renews on %s for %s %s.",
					sub.Name, sub.NextBillingDate.Format(time.DateOnly), sub.Amount.StringFixed(2), sub.Currency),
			}
			ok, err := j.remind(ctx, user.ID, alert, dayStart)
			if err != nil {
				return sent, err
			}
			if ok {
				sent++
			}
		}
	}

	if len(prefs.Channels(models.KindBillDue)) > 0 {
		days := prefs.DaysBefore(models.KindBillDue)
		bills, err := j.store.ListPendingBillsDueOn(ctx, user.ID, today.AddDate(0, 0, days))
		if err != nil {
			return sent, err
		}
		for _, bill := range bills {
			alert := models.Alert{
				Kind:        models.KindBillDue,
				RelatedID:   &bill.ID,
				RelatedType: "bill",
				Title:       fmt.Sprintf("%s is due soon", bill.Name),
				Message: fmt.Sprintf("%s is due on %s: %s %s.",
					bill.Name, bill.DueDate.Format(time.DateOnly), bill.Amount.StringFixed(2), bill.Currency),
			}
			ok, err := j.remind(ctx, user.ID, alert, dayStart)
			if err != nil {
				return sent, err
			}
			if ok {
				sent++
			}
		}
	}

	return sent, nil
}

// remind reports whether the reminder went out now. One deferred by quiet
// hours is recorded and counts as not sent.
func (j *ReminderJob) remind(ctx context.Context, userID uuid.UUID, alert models.Alert, dayStart time.Time) (bool, error) {
	exists, err := j.store.NotificationExistsOn(ctx, userID, alert.Kind, *alert.RelatedID, dayStart)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	err = j.alerter.Notify(ctx, userID, alert)
	if errors.Is(err, ErrQuietHours) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
