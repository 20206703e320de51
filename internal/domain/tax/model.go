package tax

import (
	"strings"

	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
)

// Rule is a single tax rule row. Country/state empty means the rule
// applies everywhere at its level; a state-scoped rule must also carry
// its country.
type Rule struct {
	ID      string            `db:"id" json:"id"`
	Level   types.TaxLevel    `db:"level" json:"level"`
	Type    types.TaxRuleType `db:"type" json:"type"`
	Name    string            `db:"name" json:"name"`
	Amount  decimal.Decimal   `db:"amount" json:"amount"` // percentage, e.g. 8.25
	Country string            `db:"country" json:"country"`
	State   string            `db:"state" json:"state"`

	types.BaseModel
}

// specificity orders rules for resolution: state+country beats
// country-only beats global
func (r *Rule) specificity() int {
	switch {
	case r.State != "" && r.Country != "":
		return 2
	case r.Country != "":
		return 1
	default:
		return 0
	}
}

// AppliesTo reports whether the rule's scope covers the location
func (r *Rule) AppliesTo(country, state string) bool {
	if r.Country != "" && !strings.EqualFold(r.Country, country) {
		return false
	}
	if r.State != "" && !strings.EqualFold(r.State, state) {
		return false
	}
	return true
}
