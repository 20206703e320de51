package tax

import (
	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
)

// ResolvedRules holds at most one rule per level for a location
type ResolvedRules struct {
	Level1 *Rule
	Level2 *Rule
}

// ComputeOptions carries the company and client flags the computation
// depends on
type ComputeOptions struct {
	// CascadeTax computes level 2 on the level-1-taxed amount instead of
	// the original subtotal
	CascadeTax bool
	// TaxExempt clients pay no tax; inclusive rules are subtracted out of
	// the listed price instead
	TaxExempt bool
}

// LevelResult is the computed tax for one level
type LevelResult struct {
	Rule   *Rule
	Amount decimal.Decimal
	// ExcludedFromTotal marks exclusive taxes, which are shown only at
	// payment time and left out of the displayed order total
	ExcludedFromTotal bool
}

// Computation is the engine's output for a subtotal
type Computation struct {
	Level1 *LevelResult
	Level2 *LevelResult
	// TotalTax is the amount added to the invoice total
	TotalTax decimal.Decimal
	// ExemptAdjustment is the (negative) amount subtracted from the
	// subtotal for tax-exempt clients with inclusive rules
	ExemptAdjustment decimal.Decimal
}

// ResolveRules picks the most specific applicable rule per level:
// state+country wins over country-only wins over global. Ties at equal
// specificity are broken by the most recently updated rule.
func ResolveRules(rules []*Rule, country, state string) ResolvedRules {
	var resolved ResolvedRules
	for _, r := range rules {
		if r.Status != types.StatusActive || !r.AppliesTo(country, state) {
			continue
		}
		switch r.Level {
		case types.TaxLevel1:
			resolved.Level1 = pick(resolved.Level1, r)
		case types.TaxLevel2:
			resolved.Level2 = pick(resolved.Level2, r)
		}
	}
	return resolved
}

func pick(current, candidate *Rule) *Rule {
	if current == nil {
		return candidate
	}
	if candidate.specificity() > current.specificity() {
		return candidate
	}
	if candidate.specificity() == current.specificity() && candidate.UpdatedAt.After(current.UpdatedAt) {
		return candidate
	}
	return current
}

// Compute evaluates the cascading two-level tax for a subtotal.
// Level 1 is always computed on the subtotal. Level 2 is computed on the
// level-1-taxed amount when cascading, otherwise independently on the
// original subtotal.
func Compute(subtotal decimal.Decimal, rules ResolvedRules, opts ComputeOptions) Computation {
	comp := Computation{TotalTax: decimal.Zero, ExemptAdjustment: decimal.Zero}

	if rules.Level1 != nil {
		comp.Level1 = computeLevel(subtotal, rules.Level1, opts)
	}

	if rules.Level2 != nil {
		base := subtotal
		if opts.CascadeTax && comp.Level1 != nil && !opts.TaxExempt {
			base = subtotal.Add(comp.Level1.Amount)
		}
		comp.Level2 = computeLevel(base, rules.Level2, opts)
	}

	for _, lvl := range []*LevelResult{comp.Level1, comp.Level2} {
		if lvl == nil {
			continue
		}
		if lvl.Amount.IsNegative() {
			// inclusive tax subtracted out for an exempt client
			comp.ExemptAdjustment = comp.ExemptAdjustment.Add(lvl.Amount)
			continue
		}
		comp.TotalTax = comp.TotalTax.Add(lvl.Amount)
	}

	return comp
}

func computeLevel(base decimal.Decimal, rule *Rule, opts ComputeOptions) *LevelResult {
	rate := rule.Amount.Div(decimal.NewFromInt(100))
	amount := base.Mul(rate)

	if opts.TaxExempt {
		if rule.Type == types.TaxRuleTypeInclusive {
			// the tax is embedded in the listed price; back it out
			return &LevelResult{Rule: rule, Amount: amount.Neg()}
		}
		return &LevelResult{Rule: rule, Amount: decimal.Zero}
	}

	if rule.Type == types.TaxRuleTypeInclusive {
		// already part of the listed price, nothing to add
		return &LevelResult{Rule: rule, Amount: decimal.Zero}
	}

	return &LevelResult{
		Rule:              rule,
		Amount:            amount,
		ExcludedFromTotal: rule.Type == types.TaxRuleTypeExclusive,
	}
}

// AddedTax returns the tax that appears on the displayed order total,
// excluding exclusive taxes
func (c Computation) AddedTax() decimal.Decimal {
	total := decimal.Zero
	for _, lvl := range []*LevelResult{c.Level1, c.Level2} {
		if lvl == nil || lvl.ExcludedFromTotal || lvl.Amount.IsNegative() {
			continue
		}
		total = total.Add(lvl.Amount)
	}
	return total
}
