package recurringinvoice

import (
	"time"

	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
)

// RecurringInvoice is a standing template that stamps out a real invoice
// on a fixed cadence, independent of service renewals. A duration of
// zero repeats forever.
type RecurringInvoice struct {
	ID       string `db:"id" json:"id"`
	ClientID string `db:"client_id" json:"client_id"`

	Currency string `db:"currency" json:"currency"`
	Title    string `db:"title" json:"title"`

	Term   int                 `db:"term" json:"term"`
	Period types.BillingPeriod `db:"period" json:"period"`

	// Duration is the total number of invoices to generate; zero means
	// unlimited
	Duration       int `db:"duration" json:"duration"`
	GeneratedCount int `db:"generated_count" json:"generated_count"`

	// NextGeneration is the next date an invoice should be stamped
	NextGeneration time.Time `db:"next_generation" json:"next_generation"`
	// DueDays is how many days after generation the stamped invoice is due
	DueDays int `db:"due_days" json:"due_days"`

	AutodebitEligible bool                        `db:"autodebit_eligible" json:"autodebit_eligible"`
	DeliveryMethod    types.InvoiceDeliveryMethod `db:"delivery_method" json:"delivery_method"`

	Lines []*Line `db:"-" json:"lines,omitempty"`

	types.BaseModel
}

// Line is a template line copied verbatim onto each stamped invoice
type Line struct {
	ID                 string          `db:"id" json:"id"`
	RecurringInvoiceID string          `db:"recurring_invoice_id" json:"recurring_invoice_id"`
	Description        string          `db:"description" json:"description"`
	Qty                decimal.Decimal `db:"qty" json:"qty"`
	UnitAmount         decimal.Decimal `db:"unit_amount" json:"unit_amount"`
	Amount             decimal.Decimal `db:"amount" json:"amount"`
	Taxable            bool            `db:"taxable" json:"taxable"`
	SortOrder          int             `db:"sort_order" json:"sort_order"`
}

// IsDue reports whether the template should stamp an invoice now
func (r *RecurringInvoice) IsDue(now time.Time) bool {
	if r.Status != types.StatusActive {
		return false
	}
	if r.IsComplete() {
		return false
	}
	return !now.Before(r.NextGeneration)
}

// IsComplete reports whether the template has generated its full run
func (r *RecurringInvoice) IsComplete() bool {
	return r.Duration > 0 && r.GeneratedCount >= r.Duration
}

// Advance records one generation and moves the next generation date
// forward one term. Templates that complete their run go inactive.
func (r *RecurringInvoice) Advance() {
	r.GeneratedCount++
	r.NextGeneration = r.Period.AddTerm(r.NextGeneration, r.Term)
	if r.IsComplete() {
		r.Status = types.StatusInactive
	}
}

// Validate checks structural template invariants
func (r *RecurringInvoice) Validate() error {
	if r.ClientID == "" {
		return ierr.NewError("client id is required").Mark(ierr.ErrValidation)
	}
	if r.Currency == "" {
		return ierr.NewError("currency is required").Mark(ierr.ErrValidation)
	}
	if r.Term <= 0 {
		return ierr.NewError("term must be positive").
			WithReportableDetails(map[string]any{"term": r.Term}).
			Mark(ierr.ErrValidation)
	}
	if err := r.Period.Validate(); err != nil {
		return err
	}
	if !r.Period.IsRecurring() {
		return ierr.NewError("period must be recurring").
			WithHintf("period %s cannot drive a recurring invoice", r.Period).
			Mark(ierr.ErrValidation)
	}
	if r.Duration < 0 {
		return ierr.NewError("duration cannot be negative").Mark(ierr.ErrValidation)
	}
	if len(r.Lines) == 0 {
		return ierr.NewError("at least one template line is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}
