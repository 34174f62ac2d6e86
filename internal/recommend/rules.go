package recommend

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rules holds the thresholds and rates used by the recommendation rules.
type Rules struct {
	// SharingCategories are system categories whose premium plans can be
	// shared between several people.
	SharingCategories []string
	// FamilyPlanCategories are system categories that offer family plans.
	FamilyPlanCategories []string
	// PremiumThreshold separates premium plans (above) from individual
	// plans (below).
	PremiumThreshold decimal.Decimal
	// SharingSavingsRate is the share of a premium plan saved by sharing.
	SharingSavingsRate decimal.Decimal
	// FamilyPlanMultiplier is the family plan price relative to the
	// individual plan.
	FamilyPlanMultiplier decimal.Decimal
	// FamilyPlanMembers is how many people split a family plan.
	FamilyPlanMembers int64
	// UnusedLookbackMonths is how far back a subscription must show no
	// transactions to be considered unused.
	UnusedLookbackMonths int
	// ConsolidateMinServices is the number of subscriptions in one category
	// that triggers a consolidation advisory.
	ConsolidateMinServices int
	// ConsolidateSavingsRate is the share of a category's combined cost
	// saved by consolidating.
	ConsolidateSavingsRate decimal.Decimal
	// BudgetUsageThreshold is the used share of a budget above which an
	// optimization advisory is emitted.
	BudgetUsageThreshold decimal.Decimal
	// BudgetSavingsRate is the share of current spending suggested as
	// savings.
	BudgetSavingsRate decimal.Decimal
	// DismissCooldown keeps a dismissed recommendation from being offered
	// again until it has been dismissed this long. Zero re-offers on the
	// next run.
	DismissCooldown time.Duration
}

// DefaultRules returns the standard rule configuration.
func DefaultRules() Rules {
	return Rules{
		SharingCategories:      []string{"Streaming"},
		FamilyPlanCategories:   []string{"Music", "Streaming"},
		PremiumThreshold:       decimal.NewFromInt(100),
		SharingSavingsRate:     decimal.RequireFromString("0.75"),
		FamilyPlanMultiplier:   decimal.RequireFromString("1.5"),
		FamilyPlanMembers:      5,
		UnusedLookbackMonths:   3,
		ConsolidateMinServices: 2,
		ConsolidateSavingsRate: decimal.RequireFromString("0.30"),
		BudgetUsageThreshold:   decimal.RequireFromString("0.90"),
		BudgetSavingsRate:      decimal.RequireFromString("0.10"),
	}
}
