package models

import "time"

// Period is the length of a budget cycle.
type Period string

const (
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodYearly    Period = "yearly"
)

// Months returns the number of calendar months in the period. Unknown
// periods count as monthly.
func (p Period) Months() int {
	switch p {
	case PeriodQuarterly:
		return 3
	case PeriodYearly:
		return 12
	default:
		return 1
	}
}

// AddTo returns start advanced by one period.
func (p Period) AddTo(start time.Time) time.Time {
	if p == PeriodYearly {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, p.Months(), 0)
}

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	switch p {
	case PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return true
	}
	return false
}
