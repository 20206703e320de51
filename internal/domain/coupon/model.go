package coupon

import (
	"time"

	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
)

// Coupon represents a discount code. Amounts are stored per currency so
// no cross-currency conversion ever happens at application time.
type Coupon struct {
	ID           string             `db:"id" json:"id"`
	Code         string             `db:"code" json:"code"`
	CouponStatus types.CouponStatus `db:"coupon_status" json:"coupon_status"`

	MaxQty  int `db:"max_qty" json:"max_qty"` // 0 = unlimited
	UsedQty int `db:"used_qty" json:"used_qty"`

	StartDate *time.Time `db:"start_date" json:"start_date"`
	EndDate   *time.Time `db:"end_date" json:"end_date"`

	// Recurring re-applies the coupon at every renewal; LimitRecurring
	// controls whether the qty/date limits are re-checked then
	Recurring      bool `db:"recurring" json:"recurring"`
	LimitRecurring bool `db:"limit_recurring" json:"limit_recurring"`

	InternalUseOnly     bool `db:"internal_use_only" json:"internal_use_only"`
	ApplyPackageOptions bool `db:"apply_package_options" json:"apply_package_options"`

	// Package scope: explicit package list and/or package groups
	PackageIDs      []string `db:"-" json:"package_ids,omitempty"`
	PackageGroupIDs []string `db:"-" json:"package_group_ids,omitempty"`

	Amounts []*Amount          `db:"-" json:"amounts,omitempty"`
	Terms   []*TermRestriction `db:"-" json:"terms,omitempty"`

	types.BaseModel
}

// Amount is the per-currency discount row
type Amount struct {
	ID       string                   `db:"id" json:"id"`
	CouponID string                   `db:"coupon_id" json:"coupon_id"`
	Currency string                   `db:"currency" json:"currency"`
	Type     types.CouponDiscountType `db:"type" json:"type"`
	Amount   decimal.Decimal          `db:"amount" json:"amount"`
}

// TermRestriction limits the coupon to a pricing term. Restrictions are
// ignored entirely when none are enabled.
type TermRestriction struct {
	ID       string              `db:"id" json:"id"`
	CouponID string              `db:"coupon_id" json:"coupon_id"`
	Term     int                 `db:"term" json:"term"`
	Period   types.BillingPeriod `db:"period" json:"period"`
	Enabled  bool                `db:"enabled" json:"enabled"`
}

// AmountFor returns the discount row for a currency, or nil
func (c *Coupon) AmountFor(currency string) *Amount {
	for _, a := range c.Amounts {
		if types.IsMatchingCurrency(a.Currency, currency) {
			return a
		}
	}
	return nil
}

// HasEnabledTermRestrictions reports whether any term restriction is on
func (c *Coupon) HasEnabledTermRestrictions() bool {
	for _, t := range c.Terms {
		if t.Enabled {
			return true
		}
	}
	return false
}

// AllowsTerm reports whether the term passes the restriction list; always
// true when no restriction is enabled
func (c *Coupon) AllowsTerm(term int, period types.BillingPeriod) bool {
	if !c.HasEnabledTermRestrictions() {
		return true
	}
	for _, t := range c.Terms {
		if t.Enabled && t.Term == term && t.Period == period {
			return true
		}
	}
	return false
}

// QtyAvailable reports whether another redemption fits under max_qty
func (c *Coupon) QtyAvailable() bool {
	return c.MaxQty == 0 || c.UsedQty < c.MaxQty
}

// Discount computes the discount for a price in the given currency.
// Returns zero when the coupon carries no row for the currency.
func (c *Coupon) Discount(price decimal.Decimal, currency string) decimal.Decimal {
	row := c.AmountFor(currency)
	if row == nil {
		return decimal.Zero
	}

	var discount decimal.Decimal
	switch row.Type {
	case types.CouponDiscountTypePercent:
		discount = price.Mul(row.Amount).Div(decimal.NewFromInt(100))
	default:
		discount = row.Amount
	}

	// never discount more than the price itself
	if discount.GreaterThan(price) {
		discount = price
	}
	return types.RoundToCurrencyPrecision(discount, currency)
}
