package types

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

// BillingPeriod is the unit a pricing term is expressed in. A term of
// {3, month} renews every three months; onetime pricing never renews.
type BillingPeriod string

const (
	BillingPeriodDay     BillingPeriod = "day"
	BillingPeriodWeek    BillingPeriod = "week"
	BillingPeriodMonth   BillingPeriod = "month"
	BillingPeriodYear    BillingPeriod = "year"
	BillingPeriodOnetime BillingPeriod = "onetime"
)

func (p BillingPeriod) String() string {
	return string(p)
}

func (p BillingPeriod) Validate() error {
	allowed := []BillingPeriod{
		BillingPeriodDay,
		BillingPeriodWeek,
		BillingPeriodMonth,
		BillingPeriodYear,
		BillingPeriodOnetime,
	}
	if !lo.Contains(allowed, p) {
		return fmt.Errorf("invalid billing period: %s", p)
	}
	return nil
}

// IsRecurring reports whether the period produces renewal dates
func (p BillingPeriod) IsRecurring() bool {
	return p != BillingPeriodOnetime
}

// AddTerm advances a date by term units of the period. Month and year
// arithmetic follow time.AddDate normalization (Jan 31 + 1 month = Mar 2/3).
func (p BillingPeriod) AddTerm(t time.Time, term int) time.Time {
	switch p {
	case BillingPeriodDay:
		return t.AddDate(0, 0, term)
	case BillingPeriodWeek:
		return t.AddDate(0, 0, 7*term)
	case BillingPeriodMonth:
		return t.AddDate(0, term, 0)
	case BillingPeriodYear:
		return t.AddDate(term, 0, 0)
	default:
		return t
	}
}

// PeriodDays returns the actual number of calendar days in the billing
// period that ends at periodEnd, for a term of the given length. For
// monthly terms this is the real length of the current month span, which
// is what proration divides by.
func (p BillingPeriod) PeriodDays(periodEnd time.Time, term int) int {
	start := p.AddTerm(periodEnd, -term)
	days := int(periodEnd.Sub(start).Hours() / 24)
	if days <= 0 {
		return 1
	}
	return days
}

// DaysBetween returns whole calendar days from a to b in UTC, negative if
// b precedes a.
func DaysBetween(a, b time.Time) int {
	aDay := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bDay := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bDay.Sub(aDay).Hours() / 24)
}
