package budget

import (
	"errors"
	"fmt"

	"github.com/go-analyze/charts"
	"github.com/shopspring/decimal"
)

// ErrNothingToChart is returned when no budget has positive spending.
var ErrNothingToChart = errors.New("no spending to chart")

// GenerateSpendingChart renders a pie chart of spending per budget category.
// Returns PNG image as bytes.
func GenerateSpendingChart(stats *Statistics) ([]byte, error) {
	totals, order := spendingByCategory(stats.ByCategory)
	if len(order) == 0 {
		return nil, ErrNothingToChart
	}

	values := make([]float64, 0, len(order))
	for _, name := range order {
		values = append(values, totals[name].InexactFloat64())
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{
			Text: fmt.Sprintf("Spending by Category (%s)", stats.Currency),
		}),
		charts.LegendLabelsOptionFunc(order),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	return buf, nil
}

// spendingByCategory sums positive spending per category label, keeping the
// first-seen order of labels.
func spendingByCategory(lines []CategoryStatistics) (map[string]decimal.Decimal, []string) {
	totals := make(map[string]decimal.Decimal)
	var order []string
	for _, line := range lines {
		if !line.Spending.IsPositive() {
			continue
		}
		if _, ok := totals[line.Category]; !ok {
			order = append(order, line.Category)
			totals[line.Category] = decimal.Zero
		}
		totals[line.Category] = totals[line.Category].Add(line.Spending)
	}
	return totals, order
}
