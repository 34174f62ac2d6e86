package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecommendationType identifies the rule that produced a recommendation.
type RecommendationType string

const (
	RecSubscriptionSharing RecommendationType = "subscription_sharing"
	RecSwitchPlan          RecommendationType = "switch_plan"
	RecCancelUnused        RecommendationType = "cancel_unused"
	RecConsolidateServices RecommendationType = "consolidate_services"
	RecBudgetOptimization  RecommendationType = "budget_optimization"
)

// Valid reports whether t is a known recommendation type.
func (t RecommendationType) Valid() bool {
	switch t {
	case RecSubscriptionSharing, RecSwitchPlan, RecCancelUnused, RecConsolidateServices, RecBudgetOptimization:
		return true
	}
	return false
}

// Related entity kinds for recommendations and notifications.
const (
	RelatedSubscription = "subscription"
	RelatedBudget       = "budget"
	RelatedCategory     = "category"
	RelatedBill         = "bill"
)

// Recommendation is an advisory, user-dismissible savings suggestion.
type Recommendation struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	Title            string
	Description      string
	Type             RecommendationType
	RelatedID        *uuid.UUID
	RelatedType      string
	PotentialSavings decimal.Decimal
	Currency         string
	IsApplied        bool
	IsDismissed      bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Blocks reports whether an existing recommendation prevents a new one with
// the same identity from being emitted. Dismissed recommendations only block
// while they are younger than the cooldown.
func (r *Recommendation) Blocks(now time.Time, dismissCooldown time.Duration) bool {
	if !r.IsDismissed {
		return true
	}
	return dismissCooldown > 0 && r.UpdatedAt.After(now.Add(-dismissCooldown))
}

// SameIdentity reports whether r describes the same advisory as other:
// same user and type, and the same related entity or, when there is none,
// the same related type and title.
func (r *Recommendation) SameIdentity(other *Recommendation) bool {
	if r.UserID != other.UserID || r.Type != other.Type {
		return false
	}
	if r.RelatedID != nil || other.RelatedID != nil {
		return r.RelatedID != nil && other.RelatedID != nil && *r.RelatedID == *other.RelatedID
	}
	return r.RelatedType == other.RelatedType && r.Title == other.Title
}

// RecommendationFilter narrows a recommendation listing.
type RecommendationFilter struct {
	Type        *RecommendationType
	IsApplied   *bool
	IsDismissed *bool
	Page        int
	Limit       int
}

// Listing limits.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Normalize clamps paging values into their valid ranges.
func (f RecommendationFilter) Normalize() RecommendationFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	return f
}

// Offset is the number of rows skipped before the current page.
func (f RecommendationFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}
