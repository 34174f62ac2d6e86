// Package spending computes how much of a budget has been consumed.
package spending

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gitlab.com/yelinaung/subnest/internal/logger"
	"gitlab.com/yelinaung/subnest/internal/models"
)

// Store is the persistence the aggregator reads from.
type Store interface {
	SumActiveSubscriptions(ctx context.Context, userID uuid.UUID, scope models.Scope, startedOnOrBefore time.Time) (decimal.Decimal, error)
	SumPaidBills(ctx context.Context, userID uuid.UUID, scope models.Scope, from, to time.Time) (decimal.Decimal, error)
}

// Window is the inclusive range of calendar days a budget covers.
type Window struct {
	Start time.Time
	End   time.Time
}

// Degenerate reports whether the window ends before it starts.
func (w Window) Degenerate() bool {
	return w.End.Before(w.Start)
}

// Contains reports whether day falls inside the window.
func (w Window) Contains(day time.Time) bool {
	day = models.DateOf(day)
	return !day.Before(w.Start) && !day.After(w.End)
}

// ResolveWindow derives the window of a budget as of a given instant. An
// explicit end date is used as stored. Otherwise the window runs one period
// from the start date and is capped at asOf.
func ResolveWindow(b *models.Budget, asOf time.Time) Window {
	start := models.DateOf(b.StartDate)
	if b.EndDate != nil {
		return Window{Start: start, End: models.DateOf(*b.EndDate)}
	}
	end := b.Period.AddTo(start)
	if today := models.DateOf(asOf); today.Before(end) {
		end = today
	}
	return Window{Start: start, End: end}
}

// Aggregator sums the spending attributable to a budget.
type Aggregator struct {
	store Store
}

// New creates an Aggregator.
func New(store Store) *Aggregator {
	return &Aggregator{store: store}
}

// Compute returns the spending of b over its window as of asOf: active
// subscriptions in scope that started by the window end plus paid bills in
// scope due inside the window. A degenerate window yields zero.
func (a *Aggregator) Compute(ctx context.Context, b *models.Budget, asOf time.Time) (decimal.Decimal, error) {
	w := ResolveWindow(b, asOf)
	return a.ComputeWindow(ctx, b, w)
}

// ComputeWindow is Compute over an already resolved window.
func (a *Aggregator) ComputeWindow(ctx context.Context, b *models.Budget, w Window) (decimal.Decimal, error) {
	if w.Degenerate() {
		logger.Log.Warn().
			Str("budget_id", b.ID.String()).
			Time("start", w.Start).
			Time("end", w.End).
			Msg("Budget window ends before it starts, treating spending as zero")
		return decimal.Zero, nil
	}

	scope := b.Scope()
	var subs, bills decimal.Decimal

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		subs, err = a.store.SumActiveSubscriptions(gctx, b.UserID, scope, w.End)
		return err
	})
	g.Go(func() error {
		var err error
		bills, err = a.store.SumPaidBills(gctx, b.UserID, scope, w.Start, w.End)
		return err
	})
	if err := g.Wait(); err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute spending for budget %s: %w", b.ID, err)
	}

	return subs.Add(bills), nil
}
