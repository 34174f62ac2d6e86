// Package billing summarizes a user's subscriptions and bills: counts by
// status, normalized monthly cost, per-category breakdowns and the next
// payments coming up.
package billing

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/subnest/internal/models"
	"gitlab.com/yelinaung/subnest/internal/trend"
)

// UpcomingLimit caps the upcoming payments listed in statistics.
const UpcomingLimit = 5

// Uncategorized labels items without a system category.
const Uncategorized = "Uncategorized"

// Store is the persistence the reporter reads from.
type Store interface {
	ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]models.Subscription, error)
	ListBills(ctx context.Context, userID uuid.UUID) ([]models.Bill, error)
}

// Reporter computes subscription and bill statistics.
type Reporter struct {
	store    Store
	currency string
}

// New creates a Reporter labelling totals with currency.
func New(store Store, currency string) *Reporter {
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return &Reporter{store: store, currency: currency}
}

// UpcomingPayment is a charge coming due.
type UpcomingPayment struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	DueDate  string          `json:"due_date"`
}

func upcoming(id uuid.UUID, name string, amount decimal.Decimal, currency string, due time.Time) UpcomingPayment {
	return UpcomingPayment{
		ID:       id,
		Name:     name,
		Amount:   amount,
		Currency: currency,
		DueDate:  due.Format(time.DateOnly),
	}
}

func categoryLabel(name string) string {
	if name == "" {
		return Uncategorized
	}
	return name
}

// SubscriptionCategory is one category's share of monthly subscription cost.
type SubscriptionCategory struct {
	Category    string          `json:"category"`
	Count       int             `json:"count"`
	MonthlyCost decimal.Decimal `json:"monthly_cost"`
	Percentage  decimal.Decimal `json:"percentage"`
}

// SubscriptionStatistics summarizes every subscription of a user. Costs
// cover active subscriptions only.
type SubscriptionStatistics struct {
	TotalSubscriptions     int                    `json:"total_subscriptions"`
	ActiveSubscriptions    int                    `json:"active_subscriptions"`
	CancelledSubscriptions int                    `json:"cancelled_subscriptions"`
	PausedSubscriptions    int                    `json:"paused_subscriptions"`
	TotalMonthlyCost       decimal.Decimal        `json:"total_monthly_cost"`
	TotalYearlyCost        decimal.Decimal        `json:"total_yearly_cost"`
	Currency               string                 `json:"currency"`
	ByCategory             []SubscriptionCategory `json:"by_category"`
	UpcomingPayments       []UpcomingPayment      `json:"upcoming_payments"`
}

// SubscriptionStatistics computes the subscription summary of userID.
func (r *Reporter) SubscriptionStatistics(ctx context.Context, userID uuid.UUID) (*SubscriptionStatistics, error) {
	subs, err := r.store.ListSubscriptions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	stats := &SubscriptionStatistics{
		TotalSubscriptions: len(subs),
		Currency:           r.currency,
		ByCategory:         []SubscriptionCategory{},
		UpcomingPayments:   []UpcomingPayment{},
	}

	monthly := decimal.Zero
	costs := map[string]decimal.Decimal{}
	counts := map[string]int{}
	var active []models.Subscription
	for _, s := range subs {
		switch s.Status {
		case models.SubscriptionActive:
			stats.ActiveSubscriptions++
		case models.SubscriptionCancelled:
			stats.CancelledSubscriptions++
		case models.SubscriptionPaused:
			stats.PausedSubscriptions++
		}
		if s.Status != models.SubscriptionActive {
			continue
		}
		active = append(active, s)

		cost := s.BillingCycle.MonthlyCost(s.Amount)
		monthly = monthly.Add(cost)
		label := categoryLabel(s.CategoryName)
		costs[label] = costs[label].Add(cost)
		counts[label]++
	}

	stats.TotalMonthlyCost = monthly.Round(2)
	stats.TotalYearlyCost = monthly.Mul(decimal.NewFromInt(12)).Round(2)

	for label, cost := range costs {
		stats.ByCategory = append(stats.ByCategory, SubscriptionCategory{
			Category:    label,
			Count:       counts[label],
			MonthlyCost: cost.Round(2),
			Percentage:  trend.Percentage(cost, monthly),
		})
	}
	slices.SortFunc(stats.ByCategory, func(a, b SubscriptionCategory) int {
		if c := b.MonthlyCost.Cmp(a.MonthlyCost); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})

	slices.SortStableFunc(active, func(a, b models.Subscription) int {
		return a.NextBillingDate.Compare(b.NextBillingDate)
	})
	for _, s := range active[:min(len(active), UpcomingLimit)] {
		stats.UpcomingPayments = append(stats.UpcomingPayments,
			upcoming(s.ID, s.Name, s.Amount, s.Currency, s.NextBillingDate))
	}

	return stats, nil
}
