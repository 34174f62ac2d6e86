package budget

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gitlab.com/yelinaung/subnest/internal/trend"
)

// Uncategorized labels global budgets in per-category statistics.
const Uncategorized = "Uncategorized"

// CategoryStatistics is one budget's line in the statistics breakdown.
type CategoryStatistics struct {
	BudgetID       uuid.UUID       `json:"budget_id"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	BudgetAmount   decimal.Decimal `json:"budget_amount"`
	Spending       decimal.Decimal `json:"spending"`
	Remaining      decimal.Decimal `json:"remaining"`
	PercentageUsed decimal.Decimal `json:"percentage_used"`
}

// Statistics summarizes all active budgets of a user.
type Statistics struct {
	TotalBudgets      int                  `json:"total_budgets"`
	TotalBudgetAmount decimal.Decimal      `json:"total_budget_amount"`
	TotalSpending     decimal.Decimal      `json:"total_spending"`
	Remaining         decimal.Decimal      `json:"remaining"`
	PercentageUsed    decimal.Decimal      `json:"percentage_used"`
	Currency          string               `json:"currency"`
	ByCategory        []CategoryStatistics `json:"by_category"`
	MonthlyTrend      []trend.MonthlyPoint `json:"monthly_trend"`
}

// Statistics evaluates every active budget of userID as of asOf and adds a
// monthly trend over trendMonths months.
func (e *Evaluator) Statistics(ctx context.Context, userID uuid.UUID, asOf time.Time, trendMonths int) (*Statistics, error) {
	budgets, err := e.store.ListActiveBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list budgets: %w", err)
	}

	lines := make([]CategoryStatistics, len(budgets))
	g, gctx := errgroup.WithContext(ctx)
	for i := range budgets {
		b := &budgets[i]
		g.Go(func() error {
			spent, err := e.aggregator.Compute(gctx, b, asOf)
			if err != nil {
				return err
			}
			category := b.CategoryName
			if category == "" {
				category = Uncategorized
			}
			lines[i] = CategoryStatistics{
				BudgetID:       b.ID,
				Name:           b.Name,
				Category:       category,
				BudgetAmount:   b.Amount,
				Spending:       spent,
				Remaining:      b.Amount.Sub(spent),
				PercentageUsed: trend.Percentage(spent, b.Amount),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &Statistics{
		TotalBudgets:      len(budgets),
		TotalBudgetAmount: decimal.Zero,
		TotalSpending:     decimal.Zero,
		Currency:          e.currency,
		ByCategory:        lines,
		MonthlyTrend:      []trend.MonthlyPoint{},
	}
	for _, line := range lines {
		stats.TotalBudgetAmount = stats.TotalBudgetAmount.Add(line.BudgetAmount)
		stats.TotalSpending = stats.TotalSpending.Add(line.Spending)
	}
	stats.Remaining = stats.TotalBudgetAmount.Sub(stats.TotalSpending)
	stats.PercentageUsed = trend.Percentage(stats.TotalSpending, stats.TotalBudgetAmount)

	if e.trends != nil {
		stats.MonthlyTrend = e.trends.MonthlyTrend(ctx, userID, trendMonths)
	}

	return stats, nil
}
