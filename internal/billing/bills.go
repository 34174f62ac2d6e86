package billing

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/subnest/internal/models"
	"gitlab.com/yelinaung/subnest/internal/trend"
)

// Bill statistics periods.
const (
	PeriodAll     = ""
	PeriodMonthly = "monthly"
	PeriodYearly  = "yearly"
)

var (
	ErrInvalidPeriod = errors.New("invalid period")
	ErrInvalidRange  = errors.New("range ends before it starts")
)

// Range bounds bill due dates, inclusive. A nil bound is open.
type Range struct {
	From *time.Time
	To   *time.Time
}

// NewRange returns the range [from, to].
func NewRange(from, to time.Time) (Range, error) {
	from, to = models.DateOf(from), models.DateOf(to)
	if to.Before(from) {
		return Range{}, ErrInvalidRange
	}
	return Range{From: &from, To: &to}, nil
}

// PeriodRange returns the calendar month or year containing now, or an
// open range for PeriodAll.
func PeriodRange(period string, now time.Time) (Range, error) {
	switch period {
	case PeriodAll:
		return Range{}, nil
	case PeriodMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return NewRange(start, start.AddDate(0, 1, -1))
	case PeriodYearly:
		return NewRange(
			time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
			time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, time.UTC),
		)
	default:
		return Range{}, fmt.Errorf("%w %q", ErrInvalidPeriod, period)
	}
}

// Contains reports whether date falls within the range.
func (r Range) Contains(date time.Time) bool {
	if r.From != nil && date.Before(*r.From) {
		return false
	}
	if r.To != nil && date.After(*r.To) {
		return false
	}
	return true
}

// BillCategory is one category's share of billed amounts.
type BillCategory struct {
	Category    string          `json:"category"`
	Count       int             `json:"count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Percentage  decimal.Decimal `json:"percentage"`
}

// BillStatistics summarizes the bills of a user due within a range.
// Upcoming payments list the earliest pending bills regardless of range.
type BillStatistics struct {
	TotalBills       int               `json:"total_bills"`
	PendingBills     int               `json:"pending_bills"`
	PaidBills        int               `json:"paid_bills"`
	OverdueBills     int               `json:"overdue_bills"`
	TotalAmount      decimal.Decimal   `json:"total_amount"`
	PaidAmount       decimal.Decimal   `json:"paid_amount"`
	PendingAmount    decimal.Decimal   `json:"pending_amount"`
	Currency         string            `json:"currency"`
	ByCategory       []BillCategory    `json:"by_category"`
	UpcomingPayments []UpcomingPayment `json:"upcoming_payments"`
}

// BillStatistics computes the bill summary of userID over rng. Pending
// amount includes overdue bills.
func (r *Reporter) BillStatistics(ctx context.Context, userID uuid.UUID, rng Range) (*BillStatistics, error) {
	bills, err := r.store.ListBills(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}

	stats := &BillStatistics{
		TotalAmount:      decimal.Zero,
		PaidAmount:       decimal.Zero,
		PendingAmount:    decimal.Zero,
		Currency:         r.currency,
		ByCategory:       []BillCategory{},
		UpcomingPayments: []UpcomingPayment{},
	}

	amounts := map[string]decimal.Decimal{}
	counts := map[string]int{}
	var pending []models.Bill
	for _, b := range bills {
		if b.PaymentStatus == models.PaymentPending {
			pending = append(pending, b)
		}
		if !rng.Contains(b.DueDate) {
			continue
		}

		stats.TotalBills++
		stats.TotalAmount = stats.TotalAmount.Add(b.Amount)
		switch b.PaymentStatus {
		case models.PaymentPaid:
			stats.PaidBills++
			stats.PaidAmount = stats.PaidAmount.Add(b.Amount)
		case models.PaymentPending:
			stats.PendingBills++
			stats.PendingAmount = stats.PendingAmount.Add(b.Amount)
		case models.PaymentOverdue:
			stats.OverdueBills++
			stats.PendingAmount = stats.PendingAmount.Add(b.Amount)
		}

		label := categoryLabel(b.CategoryName)
		amounts[label] = amounts[label].Add(b.Amount)
		counts[label]++
	}

	for label, amount := range amounts {
		stats.ByCategory = append(stats.ByCategory, BillCategory{
			Category:    label,
			Count:       counts[label],
			TotalAmount: amount,
			Percentage:  trend.Percentage(amount, stats.TotalAmount),
		})
	}
	slices.SortFunc(stats.ByCategory, func(a, b BillCategory) int {
		if c := b.TotalAmount.Cmp(a.TotalAmount); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})

	slices.SortStableFunc(pending, func(a, b models.Bill) int {
		return a.DueDate.Compare(b.DueDate)
	})
	for _, b := range pending[:min(len(pending), UpcomingLimit)] {
		stats.UpcomingPayments = append(stats.UpcomingPayments,
			upcoming(b.ID, b.Name, b.Amount, b.Currency, b.DueDate))
	}

	return stats, nil
}
