//go:build ignore
// +build ignore

package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/subnest/internal/budget"
)

func main() {
	stats := &budget.Statistics{
		Currency: "TRY",
		ByCategory: []budget.CategoryStatistics{
			{Name: "Streaming", Category: "Streaming", Spending: decimal.NewFromFloat(365.00)},
			{Name: "Music", Category: "Music", Spending: decimal.NewFromFloat(60.00)},
			{Name: "Work tools", Category: "Software", Spending: decimal.NewFromFloat(350.00)},
			{Name: "Home", Category: "Utilities", Spending: decimal.NewFromFloat(640.00)},
			{Name: "Other", Category: budget.Uncategorized, Spending: decimal.NewFromFloat(120.00)},
		},
	}

	chartData, err := budget.GenerateSpendingChart(stats)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile("graph.png", chartData, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Chart saved to graph.png")
}
