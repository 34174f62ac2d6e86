package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/subnest/internal/database"
	"gitlab.com/yelinaung/subnest/internal/models"
)

// SubscriptionRepository handles subscription database operations.
type SubscriptionRepository struct {
	db database.PGXDB
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(db database.PGXDB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `s.id, s.user_id, s.name, s.amount, s.currency, s.billing_cycle,
	s.category_id, s.user_category_id, COALESCE(c.name, ''), s.status, s.start_date,
	s.next_billing_date, s.created_at`

// CreateSubscription inserts a subscription.
func (r *SubscriptionRepository) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.Status == "" {
		sub.Status = models.SubscriptionActive
	}
	if sub.BillingCycle == "" {
		sub.BillingCycle = models.BillingMonthly
	}
	if sub.Currency == "" {
		sub.Currency = models.DefaultCurrency
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO subscriptions (id, user_id, name, amount, currency, billing_cycle,
			category_id, user_category_id, status, start_date, next_billing_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`, sub.ID, sub.UserID, sub.Name, sub.Amount, sub.Currency, string(sub.BillingCycle),
		sub.CategoryID, sub.UserCategoryID, sub.Status, sub.StartDate, sub.NextBillingDate,
	).Scan(&sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

// SumActiveSubscriptions totals the amount of active subscriptions in scope
// that started on or before the given date.
func (r *SubscriptionRepository) SumActiveSubscriptions(
	ctx context.Context,
	userID uuid.UUID,
	scope models.Scope,
	startedOnOrBefore time.Time,
) (decimal.Decimal, error) {
	clause, args := scopeClause(scope, "s", 3)
	var total decimal.Decimal
	err := r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(s.amount), 0) FROM subscriptions s
		WHERE s.user_id = $1 AND s.status = 'active' AND s.start_date <= $2`+clause,
		append([]any{userID, startedOnOrBefore}, args...)...,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum subscriptions: %w", err)
	}
	return total, nil
}

// ListActiveSubscriptions returns a user's active subscriptions with their
// system category name, oldest first.
func (r *SubscriptionRepository) ListActiveSubscriptions(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions s
		LEFT JOIN categories c ON s.category_id = c.id
		WHERE s.user_id = $1 AND s.status = 'active'
		ORDER BY s.created_at, s.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

// ListSubscriptions returns every subscription of a user regardless of
// status, oldest first.
func (r *SubscriptionRepository) ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions s
		LEFT JOIN categories c ON s.category_id = c.id
		WHERE s.user_id = $1
		ORDER BY s.created_at, s.id
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

// ListSubscriptionsDueOn returns active subscriptions renewing on date.
func (r *SubscriptionRepository) ListSubscriptionsDueOn(ctx context.Context, userID uuid.UUID, date time.Time) ([]models.Subscription, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions s
		LEFT JOIN categories c ON s.category_id = c.id
		WHERE s.user_id = $1 AND s.status = 'active' AND s.next_billing_date = $2
		ORDER BY s.created_at, s.id
	`, userID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query due subscriptions: %w", err)
	}
	defer rows.Close()

	return scanSubscriptions(rows)
}

func scanSubscriptions(rows rowsScanner) ([]models.Subscription, error) {
	var subs []models.Subscription
	for rows.Next() {
		var s models.Subscription
		var cycle string
		if err := rows.Scan(&s.ID, &s.UserID, &s.Name, &s.Amount, &s.Currency, &cycle,
			&s.CategoryID, &s.UserCategoryID, &s.CategoryName, &s.Status, &s.StartDate,
			&s.NextBillingDate, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		s.BillingCycle = models.BillingCycle(cycle)
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriptions: %w", err)
	}
	return subs, nil
}
