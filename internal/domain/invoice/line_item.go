package invoice

import (
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
)

// LineItem is one ordered invoice line. Lines form a display tree via
// ParentIndex (option and proration sub-lines indent under their service
// line) but ownership stays flat on the invoice.
type LineItem struct {
	ID        string `db:"id" json:"id"`
	InvoiceID string `db:"invoice_id" json:"invoice_id"`

	Type      types.LineItemType `db:"type" json:"type"`
	ServiceID *string            `db:"service_id" json:"service_id"`

	Description string          `db:"description" json:"description"`
	Qty         decimal.Decimal `db:"qty" json:"qty"`
	UnitAmount  decimal.Decimal `db:"unit_amount" json:"unit_amount"`
	// Amount is the extended amount: qty × unit amount, already rounded
	Amount  decimal.Decimal `db:"amount" json:"amount"`
	Taxable bool            `db:"taxable" json:"taxable"`

	// ParentIndex references the owning line's position for display
	// indentation; nil for top-level lines
	ParentIndex *int `db:"parent_index" json:"parent_index"`
	SortOrder   int  `db:"sort_order" json:"sort_order"`
}

// NewLineItem builds a line with the extended amount computed and rounded
// at the currency's precision
func NewLineItem(lineType types.LineItemType, description string, qty, unitAmount decimal.Decimal, currency string) *LineItem {
	return &LineItem{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE_LINE_ITEM),
		Type:        lineType,
		Description: description,
		Qty:         qty,
		UnitAmount:  unitAmount,
		Amount:      types.RoundToCurrencyPrecision(qty.Mul(unitAmount), currency),
	}
}

// Validate checks structural line invariants
func (l *LineItem) Validate() error {
	if err := l.Type.Validate(); err != nil {
		return ierr.WithError(err).Mark(ierr.ErrValidation)
	}
	if l.Description == "" {
		return ierr.NewError("line description is required").
			Mark(ierr.ErrValidation)
	}
	if l.Qty.IsZero() {
		return ierr.NewError("line quantity cannot be zero").
			Mark(ierr.ErrValidation)
	}
	// only discounts, prorated credits and manual adjustments may be negative
	if l.Amount.IsNegative() {
		switch l.Type {
		case types.LineItemTypeDiscount, types.LineItemTypeProration, types.LineItemTypeManual:
		default:
			return ierr.NewError("negative amount on a charge line").
				WithHintf("line type %s cannot be negative", l.Type).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}
