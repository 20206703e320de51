package proration

import (
	"github.com/shopspring/decimal"
)

// Params describes one mid-cycle price change to prorate. RemainingDays
// is date_renews minus today; PeriodDays is the actual calendar length of
// the current billing period.
type Params struct {
	OldPrice      decimal.Decimal
	NewPrice      decimal.Decimal
	RemainingDays int
	PeriodDays    int
	Currency      string
	Description   string

	// ProrateCredits mirrors the client_prorate_credits setting: when
	// false a downgrade emits no credit and the change is deferred to the
	// next renewal instead
	ProrateCredits bool
}

// OptionChange is a prorated configurable-option change, rendered as a
// child line under the parent service line. Pure additions leave OldPrice
// zero; removals leave NewPrice zero.
type OptionChange struct {
	OptionName string
	OldPrice   decimal.Decimal
	NewPrice   decimal.Decimal
}

// Line is one signed prorated line item
type Line struct {
	Description string
	Amount      decimal.Decimal
	IsCredit    bool
	// IsOption marks child lines displayed indented under the parent
	// service line
	IsOption bool
}

// Result is the calculator's output for one change
type Result struct {
	Lines []Line
	// Deferred is set when a downgrade credit was suppressed because
	// prorated credits are disabled; the caller applies the new price at
	// the next renewal instead
	Deferred bool
}

// NetAmount sums the emitted lines
func (r *Result) NetAmount() decimal.Decimal {
	total := decimal.Zero
	for _, l := range r.Lines {
		total = total.Add(l.Amount)
	}
	return total
}
