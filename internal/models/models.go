// Package models defines the domain entities for the finance tracker.
package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when a record does not carry its own currency.
const DefaultCurrency = "TRY"

// ErrNotFound is returned when a requested record does not exist or is not
// owned by the caller.
var ErrNotFound = errors.New("not found")

// BillingCycle is the recurrence period of a subscription charge.
type BillingCycle string

// weeksPerMonth is the average number of weeks billed in a month.
var weeksPerMonth = decimal.RequireFromString("4.33")

const (
	BillingWeekly    BillingCycle = "weekly"
	BillingMonthly   BillingCycle = "monthly"
	BillingQuarterly BillingCycle = "quarterly"
	BillingYearly    BillingCycle = "yearly"
)

// MonthlyCost normalizes amount charged once per cycle to a monthly
// figure. Unknown cycles are taken as monthly.
func (c BillingCycle) MonthlyCost(amount decimal.Decimal) decimal.Decimal {
	switch c {
	case BillingWeekly:
		return amount.Mul(weeksPerMonth)
	case BillingQuarterly:
		return amount.Div(decimal.NewFromInt(3))
	case BillingYearly:
		return amount.Div(decimal.NewFromInt(12))
	default:
		return amount
	}
}

// SubscriptionStatus values.
const (
	SubscriptionActive    = "active"
	SubscriptionCancelled = "cancelled"
	SubscriptionPaused    = "paused"
)

// Bill payment statuses.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentOverdue = "overdue"
)

// User represents a registered account.
type User struct {
	ID             uuid.UUID
	Email          string
	FirstName      string
	LastName       string
	PhoneNumber    string
	TelegramChatID *int64
	IsActive       bool
	IsVerified     bool
	Preferences    *NotificationPreferences
	CreatedAt      time.Time
}

// Category is a system-wide spending category.
type Category struct {
	ID   uuid.UUID
	Name string
}

// UserCategory is a category defined by a single user.
type UserCategory struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Name   string
}

// Subscription is a recurring charge owned by a user.
type Subscription struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Name            string
	Amount          decimal.Decimal
	Currency        string
	BillingCycle    BillingCycle
	CategoryID      *uuid.UUID
	UserCategoryID  *uuid.UUID
	CategoryName    string
	Status          string
	StartDate       time.Time
	NextBillingDate time.Time
	CreatedAt       time.Time
}

// Bill is a one-off or recurring invoice owned by a user.
type Bill struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Name           string
	Amount         decimal.Decimal
	Currency       string
	DueDate        time.Time
	CategoryID     *uuid.UUID
	UserCategoryID *uuid.UUID
	CategoryName   string
	PaymentStatus  string
	CreatedAt      time.Time
}

// Transaction is an append-only ledger entry created when a bill is paid or
// a subscription renews. Exactly one of SubscriptionID and BillID is set.
type Transaction struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	SubscriptionID  *uuid.UUID
	BillID          *uuid.UUID
	Amount          decimal.Decimal
	Currency        string
	TransactionDate time.Time
	Status          string
	CreatedAt       time.Time
}

// Budget caps spending for a scope over a period.
type Budget struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Name           string
	Amount         decimal.Decimal
	Currency       string
	Period         Period
	StartDate      time.Time
	EndDate        *time.Time
	CategoryID     *uuid.UUID
	UserCategoryID *uuid.UUID
	CategoryName   string
	IsActive       bool
	CreatedAt      time.Time
}

// Scope returns the spending scope the budget applies to.
func (b *Budget) Scope() Scope {
	return ScopeOf(b.CategoryID, b.UserCategoryID)
}

// SpendingEntry is one line of a budget's spending history.
type SpendingEntry struct {
	TransactionID uuid.UUID
	Date          time.Time
	Amount        decimal.Decimal
	Description   string
	Source        string
	CreatedAt     time.Time
}

// Spending history sources.
const (
	SourceSubscription = "subscription"
	SourceBill         = "bill"
)

// DateOf truncates t to its calendar date at UTC midnight.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
