// Package trend reports month-by-month budget and spending totals.
package trend

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gitlab.com/yelinaung/subnest/internal/logger"
)

// Store is the persistence the reporter reads from.
type Store interface {
	SumActiveBudgetsOverlapping(ctx context.Context, userID uuid.UUID, from, to time.Time) (decimal.Decimal, error)
	SumTransactions(ctx context.Context, userID uuid.UUID, from, to time.Time) (decimal.Decimal, error)
	CountUsersCreatedBetween(ctx context.Context, from, to time.Time) (int, error)
}

// MonthlyPoint is one month of a user's trend.
type MonthlyPoint struct {
	Month          string          `json:"month"`
	BudgetAmount   decimal.Decimal `json:"budget_amount"`
	Spending       decimal.Decimal `json:"spending"`
	PercentageUsed decimal.Decimal `json:"percentage_used"`
}

// RegistrationPoint is the number of users who signed up in a month.
type RegistrationPoint struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

const monthFormat = "2006-01"

// Option configures a Reporter.
type Option func(*Reporter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

// WithLocation sets the timezone that decides the current calendar month.
func WithLocation(loc *time.Location) Option {
	return func(r *Reporter) { r.loc = loc }
}

// Reporter computes trends from current data. It keeps no state between
// calls.
type Reporter struct {
	store Store
	now   func() time.Time
	loc   *time.Location
}

// New creates a Reporter.
func New(store Store, opts ...Option) *Reporter {
	r := &Reporter{store: store, now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Months returns the first day of each of the n calendar months ending with
// the month of now, oldest first. Days are UTC midnight calendar dates. n
// below 1 is treated as 1.
func Months(now time.Time, n int) []time.Time {
	if n < 1 {
		n = 1
	}
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	months := make([]time.Time, n)
	for i := range n {
		months[i] = current.AddDate(0, i-(n-1), 0)
	}
	return months
}

// MonthlyTrend returns exactly monthsBack points, oldest first, ending at
// the current calendar month. A month that cannot be read is logged and
// reported as zeros so the sequence stays contiguous.
func (r *Reporter) MonthlyTrend(ctx context.Context, userID uuid.UUID, monthsBack int) []MonthlyPoint {
	months := Months(r.now().In(r.loc), monthsBack)
	points := make([]MonthlyPoint, len(months))

	var g errgroup.Group
	for i, start := range months {
		end := start.AddDate(0, 1, -1)
		points[i] = zeroPoint(start)
		g.Go(func() error {
			p, err := r.month(ctx, userID, start, end)
			if err != nil {
				logger.Log.Error().Err(err).
					Str("user_id", logger.HashUserID(userID)).
					Str("month", start.Format(monthFormat)).
					Msg("Failed to compute monthly trend point")
				return nil
			}
			points[i] = p
			return nil
		})
	}
	_ = g.Wait()

	return points
}

func (r *Reporter) month(ctx context.Context, userID uuid.UUID, start, end time.Time) (MonthlyPoint, error) {
	budgetAmount, err := r.store.SumActiveBudgetsOverlapping(ctx, userID, start, end)
	if err != nil {
		return MonthlyPoint{}, err
	}
	spent, err := r.store.SumTransactions(ctx, userID, start, end)
	if err != nil {
		return MonthlyPoint{}, err
	}
	return MonthlyPoint{
		Month:          start.Format(monthFormat),
		BudgetAmount:   budgetAmount,
		Spending:       spent,
		PercentageUsed: Percentage(spent, budgetAmount),
	}, nil
}

func zeroPoint(start time.Time) MonthlyPoint {
	return MonthlyPoint{
		Month:          start.Format(monthFormat),
		BudgetAmount:   decimal.Zero,
		Spending:       decimal.Zero,
		PercentageUsed: decimal.Zero,
	}
}

// RegistrationTrend counts new users per month over the last monthsBack
// months, oldest first. Month boundaries follow the reporter's timezone.
func (r *Reporter) RegistrationTrend(ctx context.Context, monthsBack int) []RegistrationPoint {
	months := Months(r.now().In(r.loc), monthsBack)
	points := make([]RegistrationPoint, len(months))

	var g errgroup.Group
	for i, m := range months {
		from := time.Date(m.Year(), m.Month(), 1, 0, 0, 0, 0, r.loc)
		to := from.AddDate(0, 1, 0)
		points[i] = RegistrationPoint{Month: m.Format(monthFormat)}
		g.Go(func() error {
			n, err := r.store.CountUsersCreatedBetween(ctx, from, to)
			if err != nil {
				logger.Log.Error().Err(err).
					Str("month", m.Format(monthFormat)).
					Msg("Failed to count registrations")
				return nil
			}
			points[i].Count = n
			return nil
		})
	}
	_ = g.Wait()

	return points
}

var hundred = decimal.NewFromInt(100)

// Percentage returns part as a percentage of whole rounded to two decimals,
// or zero when whole is not positive.
func Percentage(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}
