package invoice

import (
	"time"

	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
)

// Invoice is a dated demand for payment built from ordered line items.
// Once any amount has been applied the lines, currency and status are
// immutable.
type Invoice struct {
	ID            string `db:"id" json:"id"`
	InvoiceNumber string `db:"invoice_number" json:"invoice_number"`
	ClientID      string `db:"client_id" json:"client_id"`

	InvoiceStatus types.InvoiceStatus `db:"invoice_status" json:"invoice_status"`
	InvoiceType   types.InvoiceType   `db:"invoice_type" json:"invoice_type"`
	Currency      string              `db:"currency" json:"currency"`

	DateBilled time.Time  `db:"date_billed" json:"date_billed"`
	DateDue    time.Time  `db:"date_due" json:"date_due"`
	DateClosed *time.Time `db:"date_closed" json:"date_closed"`

	AutodebitEligible bool                        `db:"autodebit_eligible" json:"autodebit_eligible"`
	DeliveryMethod    types.InvoiceDeliveryMethod `db:"delivery_method" json:"delivery_method"`
	DateDelivered     *time.Time                  `db:"date_delivered" json:"date_delivered"`

	// RecurringInvoiceID links invoices stamped from a recurring template
	RecurringInvoiceID *string `db:"recurring_invoice_id" json:"recurring_invoice_id"`

	// LateFeeApplied guards the late fee applicator's once-per-invoice rule
	LateFeeApplied bool `db:"late_fee_applied" json:"late_fee_applied"`

	Subtotal   decimal.Decimal `db:"subtotal" json:"subtotal"`
	TaxTotal   decimal.Decimal `db:"tax_total" json:"tax_total"`
	Total      decimal.Decimal `db:"total" json:"total"`
	AmountPaid decimal.Decimal `db:"amount_paid" json:"amount_paid"`

	Lines []*LineItem `db:"-" json:"lines,omitempty"`

	types.BaseModel
}

// AmountDue returns the outstanding balance
func (i *Invoice) AmountDue() decimal.Decimal {
	due := i.Total.Sub(i.AmountPaid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// IsOpen reports whether the invoice still awaits payment
func (i *Invoice) IsOpen() bool {
	return i.InvoiceStatus == types.InvoiceStatusActive && i.DateClosed == nil
}

// IsOverdue reports whether the invoice is open and past due by at least
// the given number of days
func (i *Invoice) IsOverdue(now time.Time, graceDays int) bool {
	if !i.IsOpen() || !i.AmountDue().IsPositive() {
		return false
	}
	return types.DaysBetween(i.DateDue, now) >= graceDays
}

// IsMutable reports whether lines, currency and status may still change
func (i *Invoice) IsMutable() bool {
	if i.InvoiceStatus == types.InvoiceStatusVoid {
		return false
	}
	return i.AmountPaid.IsZero()
}

// Recalculate recomputes subtotal and total from the persisted lines and
// the given tax amount. The invariant sum(lines) + tax == total holds for
// every non-void invoice.
func (i *Invoice) Recalculate(taxTotal decimal.Decimal) {
	subtotal := decimal.Zero
	for _, line := range i.Lines {
		subtotal = subtotal.Add(line.Amount)
	}
	i.Subtotal = types.RoundToCurrencyPrecision(subtotal, i.Currency)
	i.TaxTotal = types.RoundToCurrencyPrecision(taxTotal, i.Currency)
	i.Total = i.Subtotal.Add(i.TaxTotal)
}

// TaxableSubtotal sums the lines flagged taxable
func (i *Invoice) TaxableSubtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range i.Lines {
		if line.Taxable {
			subtotal = subtotal.Add(line.Amount)
		}
	}
	return subtotal
}

// AddLine appends a line, enforcing invoice mutability
func (i *Invoice) AddLine(line *LineItem) error {
	if !i.IsMutable() {
		return ierr.NewError("invoice is immutable").
			WithHintf("invoice %s has payments applied or is void", i.ID).
			Mark(ierr.ErrInvalidOperation)
	}
	line.InvoiceID = i.ID
	line.SortOrder = len(i.Lines)
	i.Lines = append(i.Lines, line)
	return nil
}

// ApplyPayment records an applied amount, freezing the invoice and
// closing it when fully paid. Proforma invoices convert to standard on
// close.
func (i *Invoice) ApplyPayment(amount decimal.Decimal, now time.Time) error {
	if i.InvoiceStatus == types.InvoiceStatusVoid {
		return ierr.NewError("cannot apply payment to a void invoice").
			WithHint("Void invoices accept no payments").
			Mark(ierr.ErrInvalidOperation)
	}
	if amount.IsNegative() {
		return ierr.NewError("application amount cannot be negative").
			Mark(ierr.ErrValidation)
	}
	if amount.GreaterThan(i.AmountDue()) {
		return ierr.NewError("application exceeds amount due").
			WithReportableDetails(map[string]any{
				"invoice_id": i.ID,
				"amount":     amount,
				"amount_due": i.AmountDue(),
			}).
			Mark(ierr.ErrValidation)
	}

	i.AmountPaid = i.AmountPaid.Add(amount)
	if i.AmountDue().IsZero() {
		closed := now
		i.DateClosed = &closed
		if i.InvoiceType == types.InvoiceTypeProforma {
			i.InvoiceType = types.InvoiceTypeStandard
		}
	}
	return nil
}

// Void marks the invoice void; rejected once payments are applied
func (i *Invoice) Void() error {
	if !i.AmountPaid.IsZero() {
		return ierr.NewError("cannot void a paid invoice").
			WithHintf("invoice %s has %s applied", i.ID, i.AmountPaid).
			Mark(ierr.ErrInvalidOperation)
	}
	i.InvoiceStatus = types.InvoiceStatusVoid
	return nil
}

// ServiceLineIndexes returns the indexes of lines belonging to the given
// service, including their child lines
func (i *Invoice) ServiceLineIndexes(serviceID string) []int {
	var indexes []int
	for idx, line := range i.Lines {
		if line.ServiceID != nil && *line.ServiceID == serviceID {
			indexes = append(indexes, idx)
			continue
		}
		// child lines follow their parent via ParentIndex
		if line.ParentIndex != nil {
			parent := i.Lines[*line.ParentIndex]
			if parent.ServiceID != nil && *parent.ServiceID == serviceID {
				indexes = append(indexes, idx)
			}
		}
	}
	return indexes
}

// OnlyForService reports whether every line belongs to the one service
func (i *Invoice) OnlyForService(serviceID string) bool {
	return len(i.ServiceLineIndexes(serviceID)) == len(i.Lines)
}

// StripServiceLines removes the given service's lines, child lines
// included, from a mutable invoice. Surviving lines are renumbered and
// their parent references remapped. Returns how many lines came out.
func (i *Invoice) StripServiceLines(serviceID string) (int, error) {
	if !i.IsMutable() {
		return 0, ierr.NewError("invoice is immutable").
			WithHintf("invoice %s has payments applied or is void", i.ID).
			Mark(ierr.ErrInvalidOperation)
	}

	drop := make(map[int]bool)
	for _, idx := range i.ServiceLineIndexes(serviceID) {
		drop[idx] = true
	}
	if len(drop) == 0 {
		return 0, nil
	}

	remap := make(map[int]int, len(i.Lines)-len(drop))
	kept := make([]*LineItem, 0, len(i.Lines)-len(drop))
	for idx, line := range i.Lines {
		if drop[idx] {
			continue
		}
		remap[idx] = len(kept)
		kept = append(kept, line)
	}
	for newIdx, line := range kept {
		line.SortOrder = newIdx
		if line.ParentIndex != nil {
			if mapped, ok := remap[*line.ParentIndex]; ok {
				idx := mapped
				line.ParentIndex = &idx
			} else {
				line.ParentIndex = nil
			}
		}
	}
	i.Lines = kept
	return len(drop), nil
}
