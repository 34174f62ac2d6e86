package recommend

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/subnest/internal/models"
)

func relatedTo(id uuid.UUID) *uuid.UUID { return &id }

// subscriptionSharing suggests sharing premium plans in shareable
// categories.
func (e *Engine) subscriptionSharing(ctx context.Context, userID uuid.UUID, _ time.Time) ([]*models.Recommendation, error) {
	subs, err := e.store.ListActiveSubscriptions(ctx, userID)
	if err != nil {
		return nil, err
	}

	var out []*models.Recommendation
	for _, s := range subs {
		if !slices.Contains(e.rules.SharingCategories, s.CategoryName) || !s.Amount.GreaterThan(e.rules.PremiumThreshold) {
			continue
		}
		out = append(out, &models.Recommendation{
			Title: fmt.Sprintf("Share your %s subscription", s.Name),
			Description: fmt.Sprintf(
				"Your %s premium plan can be used by several people. Sharing it with family members lowers the cost per person.",
				s.Name),
			RelatedID:        relatedTo(s.ID),
			RelatedType:      models.RelatedSubscription,
			PotentialSavings: s.Amount.Mul(e.rules.SharingSavingsRate),
			Currency:         s.Currency,
		})
	}
	return out, nil
}

// switchPlan suggests moving individual plans to a shared family plan.
func (e *Engine) switchPlan(ctx context.Context, userID uuid.UUID, _ time.Time) ([]*models.Recommendation, error) {
	subs, err := e.store.ListActiveSubscriptions(ctx, userID)
	if err != nil {
		return nil, err
	}

	members := decimal.NewFromInt(e.rules.FamilyPlanMembers)
	var out []*models.Recommendation
	for _, s := range subs {
		if !slices.Contains(e.rules.FamilyPlanCategories, s.CategoryName) || !s.Amount.LessThan(e.rules.PremiumThreshold) {
			continue
		}
		familyCost := s.Amount.Mul(e.rules.FamilyPlanMultiplier)
		perPerson := familyCost.Div(members)
		savings := s.Amount.Sub(perPerson)
		if !savings.IsPositive() {
			continue
		}
		out = append(out, &models.Recommendation{
			Title: fmt.Sprintf("Switch %s to a family plan", s.Name),
			Description: fmt.Sprintf(
				"Moving %s to a family plan shared by %d people brings your share down to %s %s.",
				s.Name, e.rules.FamilyPlanMembers, perPerson.StringFixed(2), s.Currency),
			RelatedID:        relatedTo(s.ID),
			RelatedType:      models.RelatedSubscription,
			PotentialSavings: savings,
			Currency:         s.Currency,
		})
	}
	return out, nil
}

// cancelUnused suggests cancelling subscriptions without recent
// transactions.
func (e *Engine) cancelUnused(ctx context.Context, userID uuid.UUID, now time.Time) ([]*models.Recommendation, error) {
	subs, err := e.store.ListActiveSubscriptions(ctx, userID)
	if err != nil {
		return nil, err
	}

	since := models.DateOf(now).AddDate(0, -e.rules.UnusedLookbackMonths, 0)
	var out []*models.Recommendation
	for _, s := range subs {
		n, err := e.store.CountSubscriptionTransactionsSince(ctx, userID, s.ID, since)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			continue
		}
		out = append(out, &models.Recommendation{
			Title: fmt.Sprintf("Cancel unused %s subscription", s.Name),
			Description: fmt.Sprintf(
				"%s has not been used in the last %d months. Cancelling it saves %s %s per billing cycle.",
				s.Name, e.rules.UnusedLookbackMonths, s.Amount.StringFixed(2), s.Currency),
			RelatedID:        relatedTo(s.ID),
			RelatedType:      models.RelatedSubscription,
			PotentialSavings: s.Amount,
			Currency:         s.Currency,
		})
	}
	return out, nil
}

// ConsolidateTitle is the title, and identity, of the consolidation
// advisory for a category.
func ConsolidateTitle(category string) string {
	return fmt.Sprintf("Consolidate your %s services", category)
}

// consolidateServices suggests merging several subscriptions of the same
// system category. One advisory is emitted per category.
func (e *Engine) consolidateServices(ctx context.Context, userID uuid.UUID, _ time.Time) ([]*models.Recommendation, error) {
	subs, err := e.store.ListActiveSubscriptions(ctx, userID)
	if err != nil {
		return nil, err
	}

	byCategory := make(map[string][]models.Subscription)
	for _, s := range subs {
		if s.CategoryID == nil || s.CategoryName == "" {
			continue
		}
		byCategory[s.CategoryName] = append(byCategory[s.CategoryName], s)
	}

	names := make([]string, 0, len(byCategory))
	for name := range byCategory {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []*models.Recommendation
	for _, name := range names {
		group := byCategory[name]
		if len(group) < e.rules.ConsolidateMinServices {
			continue
		}
		total := decimal.Zero
		for _, s := range group {
			total = total.Add(s.Amount)
		}
		savings := total.Mul(e.rules.ConsolidateSavingsRate)
		currency := group[0].Currency
		out = append(out, &models.Recommendation{
			Title: ConsolidateTitle(name),
			Description: fmt.Sprintf(
				"You subscribe to %d different %s services. Moving to a single premium service could save about %s %s per month.",
				len(group), name, savings.StringFixed(2), currency),
			RelatedType:      models.RelatedCategory,
			PotentialSavings: savings,
			Currency:         currency,
		})
	}
	return out, nil
}

// budgetOptimization flags budgets whose spending passed the usage
// threshold.
func (e *Engine) budgetOptimization(ctx context.Context, userID uuid.UUID, now time.Time) ([]*models.Recommendation, error) {
	budgets, err := e.store.ListActiveBudgets(ctx, userID)
	if err != nil {
		return nil, err
	}

	var out []*models.Recommendation
	for i := range budgets {
		b := &budgets[i]
		spent, err := e.aggregator.Compute(ctx, b, now)
		if err != nil {
			return nil, err
		}
		if !spent.GreaterThan(b.Amount.Mul(e.rules.BudgetUsageThreshold)) {
			continue
		}
		savings := spent.Mul(e.rules.BudgetSavingsRate)
		used := decimal.Zero
		if b.Amount.IsPositive() {
			used = spent.Div(b.Amount).Mul(decimal.NewFromInt(100)).Round(0)
		}
		out = append(out, &models.Recommendation{
			Title: fmt.Sprintf("Optimize your %s budget", b.Name),
			Description: fmt.Sprintf(
				"You have used %s%% of your %s budget. Cutting back could save about %s %s.",
				used.String(), b.Name, savings.StringFixed(2), b.Currency),
			RelatedID:        relatedTo(b.ID),
			RelatedType:      models.RelatedBudget,
			PotentialSavings: savings,
			Currency:         b.Currency,
		})
	}
	return out, nil
}
