// Package recommend generates savings recommendations from a user's
// subscriptions and budgets.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"gitlab.com/yelinaung/subnest/internal/logger"
	"gitlab.com/yelinaung/subnest/internal/models"
	"gitlab.com/yelinaung/subnest/internal/notify"
	"gitlab.com/yelinaung/subnest/internal/spending"
)

const instrumentationName = "gitlab.com/yelinaung/subnest/internal/recommend"

// Store is the persistence the engine reads from and writes to.
type Store interface {
	spending.Store
	ListEligibleUsers(ctx context.Context) ([]models.User, error)
	ListActiveSubscriptions(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error)
	CountSubscriptionTransactionsSince(ctx context.Context, userID, subscriptionID uuid.UUID, since time.Time) (int, error)
	ListActiveBudgets(ctx context.Context, userID uuid.UUID) ([]models.Budget, error)
	CreateRecommendationIfAbsent(ctx context.Context, rec *models.Recommendation, now time.Time, dismissCooldown time.Duration) (bool, error)
}

// Notifier delivers an alert to a user.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, alert models.Alert) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules replaces the default rule configuration.
func WithRules(rules Rules) Option {
	return func(e *Engine) { e.rules = rules }
}

// WithNotifier announces every new recommendation through n.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine runs the recommendation rules. It keeps no state between runs, so
// repeated runs over unchanged data create nothing new.
type Engine struct {
	store      Store
	aggregator *spending.Aggregator
	rules      Rules
	notifier   Notifier
	now        func() time.Time

	tracer  trace.Tracer
	created metric.Int64Counter
}

// New creates an Engine.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		aggregator: spending.New(store),
		rules:      DefaultRules(),
		now:        time.Now,
		tracer:     otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(e)
	}

	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"subnest.recommendations.created",
		metric.WithDescription("Recommendations created by the rule engine"),
	)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to create recommendation counter")
	}
	e.created = counter

	return e
}

type rule struct {
	kind     models.RecommendationType
	generate func(ctx context.Context, userID uuid.UUID, now time.Time) ([]*models.Recommendation, error)
}

func (e *Engine) ruleSet() []rule {
	return []rule{
		{models.RecSubscriptionSharing, e.subscriptionSharing},
		{models.RecSwitchPlan, e.switchPlan},
		{models.RecCancelUnused, e.cancelUnused},
		{models.RecConsolidateServices, e.consolidateServices},
		{models.RecBudgetOptimization, e.budgetOptimization},
	}
}

// GenerateForUser runs every rule for one user and stores the new
// recommendations. A failing rule is logged and does not stop the others;
// all rule failures are joined into the returned error.
func (e *Engine) GenerateForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	ctx, span := e.tracer.Start(ctx, "recommend.GenerateForUser")
	defer span.End()

	now := e.now()
	created := 0
	var errs []error

	for _, r := range e.ruleSet() {
		n, err := e.runRule(ctx, userID, r, now)
		created += n
		if err != nil {
			logger.Log.Error().Err(err).
				Str("user_id", logger.HashUserID(userID)).
				Str("rule", string(r.kind)).
				Msg("Recommendation rule failed")
			errs = append(errs, fmt.Errorf("%s: %w", r.kind, err))
		}
	}

	span.SetAttributes(attribute.Int("recommendations.created", created))
	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "one or more rules failed")
	}
	return created, err
}

func (e *Engine) runRule(ctx context.Context, userID uuid.UUID, r rule, now time.Time) (int, error) {
	candidates, err := r.generate(ctx, userID, now)
	if err != nil {
		return 0, err
	}

	created := 0
	var errs []error
	for _, rec := range candidates {
		rec.UserID = userID
		rec.Type = r.kind
		rec.PotentialSavings = rec.PotentialSavings.Round(2)

		ok, err := e.store.CreateRecommendationIfAbsent(ctx, rec, now, e.rules.DismissCooldown)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			continue
		}
		created++
		if e.created != nil {
			e.created.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(r.kind))))
		}
		e.announce(ctx, rec)
	}
	return created, errors.Join(errs...)
}

func (e *Engine) announce(ctx context.Context, rec *models.Recommendation) {
	if e.notifier == nil {
		return
	}
	id := rec.ID
	err := e.notifier.Notify(ctx, rec.UserID, models.Alert{
		Kind:        models.KindRecommendations,
		RelatedID:   &id,
		RelatedType: "recommendation",
		Title:       rec.Title,
		Message:     rec.Description,
	})
	switch {
	case errors.Is(err, notify.ErrQuietHours):
		logger.Log.Debug().
			Str("user_id", logger.HashUserID(rec.UserID)).
			Msg("Recommendation notification deferred")
	case err != nil:
		logger.Log.Warn().Err(err).
			Str("user_id", logger.HashUserID(rec.UserID)).
			Msg("Failed to send recommendation notification")
	}
}

// Summary reports the outcome of a batch run.
type Summary struct {
	Users       int
	Created     int
	FailedUsers int
}

// GenerateAll runs the rules for every active, verified user in turn. A
// user whose run fails is logged and skipped. Only a failure to list users
// is returned.
func (e *Engine) GenerateAll(ctx context.Context) (Summary, error) {
	users, err := e.store.ListEligibleUsers(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list users: %w", err)
	}

	logger.Log.Info().Int("users", len(users)).Msg("Starting recommendation generation")

	var sum Summary
	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Users++
		n, err := e.GenerateForUser(ctx, u.ID)
		sum.Created += n
		if err != nil {
			sum.FailedUsers++
		}
	}

	logger.Log.Info().
		Int("users", sum.Users).
		Int("created", sum.Created).
		Int("failed_users", sum.FailedUsers).
		Msg("Recommendation generation completed")

	return sum, nil
}
