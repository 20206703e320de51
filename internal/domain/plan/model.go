package plan

import (
	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
)

// Package is a sellable product with one or more pricing terms
type Package struct {
	ID          string `db:"id" json:"id"`
	GroupID     string `db:"group_id" json:"group_id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
	ModuleKey   string `db:"module_key" json:"module_key"`
	Taxable     bool   `db:"taxable" json:"taxable"`

	Pricings []*Pricing `db:"-" json:"pricings,omitempty"`
	Options  []*Option  `db:"-" json:"options,omitempty"`

	types.BaseModel
}

// Pricing is one purchasable term of a package. Rows referenced by a
// service are immutable in term, period and currency; only the prices and
// fees may change.
type Pricing struct {
	ID        string `db:"id" json:"id"`
	PackageID string `db:"package_id" json:"package_id"`

	Term     int                 `db:"term" json:"term"`
	Period   types.BillingPeriod `db:"period" json:"period"`
	Currency string              `db:"currency" json:"currency"`

	Price       decimal.Decimal `db:"price" json:"price"`
	PriceRenews decimal.Decimal `db:"price_renews" json:"price_renews"`
	SetupFee    decimal.Decimal `db:"setup_fee" json:"setup_fee"`
	CancelFee   decimal.Decimal `db:"cancel_fee" json:"cancel_fee"`

	types.BaseModel
}

// RenewalPrice returns the price charged at renewal, falling back to the
// initial price when no renewal price is configured
func (p *Pricing) RenewalPrice() decimal.Decimal {
	if p.PriceRenews.IsZero() {
		return p.Price
	}
	return p.PriceRenews
}

// Option is a configurable add-on on a package
type Option struct {
	ID        string `db:"id" json:"id"`
	PackageID string `db:"package_id" json:"package_id"`
	Name      string `db:"name" json:"name"`

	Values []*OptionValue    `db:"-" json:"values,omitempty"`
	Logic  []*OptionLogicSet `db:"-" json:"logic,omitempty"`

	types.BaseModel
}

// OptionValue is one selectable value of an option, with per-term pricing
type OptionValue struct {
	ID       string `db:"id" json:"id"`
	OptionID string `db:"option_id" json:"option_id"`
	Name     string `db:"name" json:"name"`
	Value    string `db:"value" json:"value"`

	Pricings []*OptionPricing `db:"-" json:"pricings,omitempty"`

	types.BaseModel
}

// OptionPricing prices an option value for a specific term
type OptionPricing struct {
	ID            string `db:"id" json:"id"`
	OptionValueID string `db:"option_value_id" json:"option_value_id"`

	Term     int                 `db:"term" json:"term"`
	Period   types.BillingPeriod `db:"period" json:"period"`
	Currency string              `db:"currency" json:"currency"`

	Price    decimal.Decimal `db:"price" json:"price"`
	SetupFee decimal.Decimal `db:"setup_fee" json:"setup_fee"`

	types.BaseModel
}

// PricingFor returns the pricing row matching the term, or nil
func (v *OptionValue) PricingFor(term int, period types.BillingPeriod, currency string) *OptionPricing {
	for _, p := range v.Pricings {
		if p.Term == term && p.Period == period && types.IsMatchingCurrency(p.Currency, currency) {
			return p
		}
	}
	return nil
}

// OptionLogicAction is what a matched condition set does to its target
type OptionLogicAction string

const (
	OptionLogicActionEnable  OptionLogicAction = "enable"
	OptionLogicActionDisable OptionLogicAction = "disable"
)

// OptionLogicSet enables or disables an option (or one of its values)
// when all of its conditions match the current selections
type OptionLogicSet struct {
	ID            string            `db:"id" json:"id"`
	OptionID      string            `db:"option_id" json:"option_id"`
	TargetValueID string            `db:"target_value_id" json:"target_value_id"`
	Action        OptionLogicAction `db:"action" json:"action"`

	Conditions []*OptionLogicCondition `db:"-" json:"conditions,omitempty"`
}

// OptionLogicCondition matches a selection of another option
type OptionLogicCondition struct {
	ID            string `db:"id" json:"id"`
	LogicSetID    string `db:"logic_set_id" json:"logic_set_id"`
	TriggerOption string `db:"trigger_option_id" json:"trigger_option_id"`
	TriggerValue  string `db:"trigger_value_id" json:"trigger_value_id"`
}

// Matches reports whether every condition in the set is satisfied by the
// given selections (option ID -> selected value ID)
func (s *OptionLogicSet) Matches(selections map[string]string) bool {
	for _, c := range s.Conditions {
		if selections[c.TriggerOption] != c.TriggerValue {
			return false
		}
	}
	return len(s.Conditions) > 0
}

// EvaluateLogic resolves which options and values are currently enabled
// given the client's selections. Disable wins over enable when sets
// conflict; options with no logic are enabled.
func (p *Package) EvaluateLogic(selections map[string]string) map[string]bool {
	enabled := make(map[string]bool)
	for _, opt := range p.Options {
		enabled[opt.ID] = true
		for _, v := range opt.Values {
			enabled[v.ID] = true
		}
	}

	// Apply enables first so a later disable wins
	for _, opt := range p.Options {
		for _, set := range opt.Logic {
			if set.Action != OptionLogicActionEnable || !set.Matches(selections) {
				continue
			}
			enabled[logicTarget(set)] = true
		}
	}
	for _, opt := range p.Options {
		for _, set := range opt.Logic {
			if set.Action != OptionLogicActionDisable || !set.Matches(selections) {
				continue
			}
			enabled[logicTarget(set)] = false
		}
	}

	return enabled
}

func logicTarget(set *OptionLogicSet) string {
	if set.TargetValueID != "" {
		return set.TargetValueID
	}
	return set.OptionID
}

// PricingFor returns the package pricing row matching the term, or nil
func (p *Package) PricingFor(term int, period types.BillingPeriod, currency string) *Pricing {
	for _, pr := range p.Pricings {
		if pr.Term == term && pr.Period == period && types.IsMatchingCurrency(pr.Currency, currency) {
			return pr
		}
	}
	return nil
}
