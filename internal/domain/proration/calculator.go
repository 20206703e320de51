package proration

import (
	"fmt"

	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
)

// Calculator computes partial-period charges and credits for mid-cycle
// package, term and option changes. The computation is pure: identical
// inputs always produce identical rounded output.
type Calculator struct{}

// NewCalculator creates a proration calculator
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate produces the prorated line for a package/term price change:
// (new_price - old_price) × remaining_days / period_days, rounded
// half-up at the currency's precision.
func (c *Calculator) Calculate(params Params) (*Result, error) {
	if err := validateParams(params); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid proration parameters").
			Mark(ierr.ErrValidation)
	}

	amount := prorate(params.OldPrice, params.NewPrice, params.RemainingDays, params.PeriodDays, params.Currency)

	result := &Result{}
	switch {
	case amount.IsZero():
		// no price difference, nothing to emit
	case amount.IsNegative() && !params.ProrateCredits:
		result.Deferred = true
	case amount.IsNegative():
		result.Lines = append(result.Lines, Line{
			Description: creditDescription(params.Description),
			Amount:      amount,
			IsCredit:    true,
		})
	default:
		result.Lines = append(result.Lines, Line{
			Description: chargeDescription(params.Description),
			Amount:      amount,
		})
	}

	return result, nil
}

// CalculateOptions prorates configurable-option changes, each as its own
// child line under the parent service line. Additions and removals
// prorate the same way as price changes.
func (c *Calculator) CalculateOptions(changes []OptionChange, params Params) (*Result, error) {
	if err := validateParams(params); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid proration parameters").
			Mark(ierr.ErrValidation)
	}

	result := &Result{}
	for _, change := range changes {
		amount := prorate(change.OldPrice, change.NewPrice, params.RemainingDays, params.PeriodDays, params.Currency)
		if amount.IsZero() {
			continue
		}
		if amount.IsNegative() && !params.ProrateCredits {
			result.Deferred = true
			continue
		}

		line := Line{
			Amount:   amount,
			IsOption: true,
			IsCredit: amount.IsNegative(),
		}
		if line.IsCredit {
			line.Description = creditDescription(change.OptionName)
		} else {
			line.Description = chargeDescription(change.OptionName)
		}
		result.Lines = append(result.Lines, line)
	}

	return result, nil
}

func prorate(oldPrice, newPrice decimal.Decimal, remainingDays, periodDays int, currency string) decimal.Decimal {
	diff := newPrice.Sub(oldPrice)
	prorated := diff.
		Mul(decimal.NewFromInt(int64(remainingDays))).
		Div(decimal.NewFromInt(int64(periodDays)))
	return types.RoundToCurrencyPrecision(prorated, currency)
}

func chargeDescription(name string) string {
	if name == "" {
		return "Prorated Charge"
	}
	return fmt.Sprintf("Prorated Charge: %s", name)
}

func creditDescription(name string) string {
	if name == "" {
		return "Prorated Credit"
	}
	return fmt.Sprintf("Prorated Credit: %s", name)
}

func validateParams(params Params) error {
	if params.PeriodDays <= 0 {
		return fmt.Errorf("period days must be positive, got %d", params.PeriodDays)
	}
	if params.RemainingDays < 0 {
		return fmt.Errorf("remaining days cannot be negative, got %d", params.RemainingDays)
	}
	if params.RemainingDays > params.PeriodDays {
		return fmt.Errorf("remaining days %d exceeds period days %d", params.RemainingDays, params.PeriodDays)
	}
	if params.Currency == "" {
		return fmt.Errorf("currency is required")
	}
	return nil
}
