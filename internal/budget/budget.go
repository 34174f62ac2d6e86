// Package budget evaluates budgets against current spending.
package budget

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gitlab.com/yelinaung/subnest/internal/models"
	"gitlab.com/yelinaung/subnest/internal/spending"
	"gitlab.com/yelinaung/subnest/internal/trend"
)

// Store is the persistence the evaluator reads from.
type Store interface {
	spending.Store
	GetBudget(ctx context.Context, userID, id uuid.UUID) (*models.Budget, error)
	ListActiveBudgets(ctx context.Context, userID uuid.UUID) ([]models.Budget, error)
	ListScopedTransactions(ctx context.Context, userID uuid.UUID, scope models.Scope, from, to time.Time) ([]models.SpendingEntry, error)
}

// Evaluation is a budget's consumption as of a point in time.
type Evaluation struct {
	Budget         *models.Budget
	Window         spending.Window
	Spending       decimal.Decimal
	Remaining      decimal.Decimal
	PercentageUsed decimal.Decimal
	History        []models.SpendingEntry
}

// Evaluator computes budget evaluations and statistics.
type Evaluator struct {
	store      Store
	aggregator *spending.Aggregator
	trends     *trend.Reporter
	currency   string
}

// New creates an Evaluator. trends may be nil, in which case statistics
// carry no monthly trend.
func New(store Store, trends *trend.Reporter, currency string) *Evaluator {
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return &Evaluator{
		store:      store,
		aggregator: spending.New(store),
		trends:     trends,
		currency:   currency,
	}
}

// Evaluate computes spending, remaining amount, percentage used and the
// spending history of b as of asOf.
func (e *Evaluator) Evaluate(ctx context.Context, b *models.Budget, asOf time.Time) (*Evaluation, error) {
	w := spending.ResolveWindow(b, asOf)
	ev := &Evaluation{
		Budget:   b,
		Window:   w,
		Spending: decimal.Zero,
		History:  []models.SpendingEntry{},
	}

	if !w.Degenerate() {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			spent, err := e.aggregator.ComputeWindow(gctx, b, w)
			if err != nil {
				return err
			}
			ev.Spending = spent
			return nil
		})
		g.Go(func() error {
			history, err := e.store.ListScopedTransactions(gctx, b.UserID, b.Scope(), w.Start, w.End)
			if err != nil {
				return fmt.Errorf("failed to load spending history: %w", err)
			}
			if history != nil {
				ev.History = history
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	ev.Remaining = b.Amount.Sub(ev.Spending)
	ev.PercentageUsed = trend.Percentage(ev.Spending, b.Amount)
	return ev, nil
}

// EvaluateByID loads a budget owned by userID and evaluates it. A missing or
// foreign budget yields models.ErrNotFound.
func (e *Evaluator) EvaluateByID(ctx context.Context, userID, budgetID uuid.UUID, asOf time.Time) (*Evaluation, error) {
	b, err := e.store.GetBudget(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}
	return e.Evaluate(ctx, b, asOf)
}
