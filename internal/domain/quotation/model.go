package quotation

import (
	"time"

	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
)

// Quotation is a priced proposal that can be converted into one or two
// invoices on approval. Line amounts are snapshotted at creation and do
// not track later price changes.
type Quotation struct {
	ID              string `db:"id" json:"id"`
	QuotationNumber string `db:"quotation_number" json:"quotation_number"`
	ClientID        string `db:"client_id" json:"client_id"`

	QuotationStatus types.QuotationStatus `db:"quotation_status" json:"quotation_status"`
	Currency        string                `db:"currency" json:"currency"`
	Title           string                `db:"title" json:"title"`
	Notes           string                `db:"notes" json:"notes"`

	DateCreated  time.Time  `db:"date_created" json:"date_created"`
	DateExpires  time.Time  `db:"date_expires" json:"date_expires"`
	DateInvoiced *time.Time `db:"date_invoiced" json:"date_invoiced"`

	// DepositPercentage splits the converted invoice: a deposit invoice
	// due immediately and a remainder invoice due on the quotation's
	// expiry date. Zero means a single invoice for the full amount.
	DepositPercentage decimal.Decimal `db:"deposit_percentage" json:"deposit_percentage"`

	Subtotal decimal.Decimal `db:"subtotal" json:"subtotal"`
	TaxTotal decimal.Decimal `db:"tax_total" json:"tax_total"`
	Total    decimal.Decimal `db:"total" json:"total"`

	// InvoiceIDs records the invoices produced by conversion
	InvoiceIDs []string `db:"-" json:"invoice_ids,omitempty"`

	Lines []*Line `db:"-" json:"lines,omitempty"`

	types.BaseModel
}

// Line is one quoted item with its amount frozen at quotation time
type Line struct {
	ID          string          `db:"id" json:"id"`
	QuotationID string          `db:"quotation_id" json:"quotation_id"`
	Description string          `db:"description" json:"description"`
	Qty         decimal.Decimal `db:"qty" json:"qty"`
	UnitAmount  decimal.Decimal `db:"unit_amount" json:"unit_amount"`
	Amount      decimal.Decimal `db:"amount" json:"amount"`
	Taxable     bool            `db:"taxable" json:"taxable"`
	SortOrder   int             `db:"sort_order" json:"sort_order"`
}

// IsExpired reports whether the quotation passed its expiry date while
// still awaiting a decision
func (q *Quotation) IsExpired(now time.Time) bool {
	switch q.QuotationStatus {
	case types.QuotationStatusDraft, types.QuotationStatusPending:
		return now.After(q.DateExpires)
	}
	return false
}

// Expire transitions an undecided quotation to expired
func (q *Quotation) Expire(now time.Time) error {
	if !q.IsExpired(now) {
		return ierr.NewError("quotation is not past its expiry date").
			WithHintf("quotation %s expires %s", q.ID, q.DateExpires.Format(time.RFC3339)).
			Mark(ierr.ErrInvalidOperation)
	}
	q.QuotationStatus = types.QuotationStatusExpired
	return nil
}

// MarkInvoiced records the conversion, linking the produced invoices
func (q *Quotation) MarkInvoiced(invoiceIDs []string, now time.Time) error {
	if !q.QuotationStatus.CanInvoice() {
		return ierr.NewError("quotation cannot be invoiced").
			WithHintf("quotation %s is %s", q.ID, q.QuotationStatus).
			Mark(ierr.ErrInvalidOperation)
	}
	q.QuotationStatus = types.QuotationStatusInvoiced
	q.InvoiceIDs = invoiceIDs
	q.DateInvoiced = &now
	return nil
}

// DepositSplit returns the deposit and remainder amounts of the given
// total, rounded at the currency precision. The remainder absorbs any
// rounding residue so the parts always sum to the total.
func (q *Quotation) DepositSplit(total decimal.Decimal) (deposit, remainder decimal.Decimal) {
	if q.DepositPercentage.IsZero() {
		return decimal.Zero, total
	}
	deposit = types.RoundToCurrencyPrecision(
		total.Mul(q.DepositPercentage).Div(decimal.NewFromInt(100)), q.Currency)
	remainder = total.Sub(deposit)
	return deposit, remainder
}

// Recalculate recomputes subtotal and total from lines and the given tax
func (q *Quotation) Recalculate(taxTotal decimal.Decimal) {
	subtotal := decimal.Zero
	for _, line := range q.Lines {
		subtotal = subtotal.Add(line.Amount)
	}
	q.Subtotal = types.RoundToCurrencyPrecision(subtotal, q.Currency)
	q.TaxTotal = types.RoundToCurrencyPrecision(taxTotal, q.Currency)
	q.Total = q.Subtotal.Add(q.TaxTotal)
}

// TaxableSubtotal sums the taxable lines
func (q *Quotation) TaxableSubtotal() decimal.Decimal {
	subtotal := decimal.Zero
	for _, line := range q.Lines {
		if line.Taxable {
			subtotal = subtotal.Add(line.Amount)
		}
	}
	return subtotal
}

// Validate checks structural quotation invariants
func (q *Quotation) Validate() error {
	if q.ClientID == "" {
		return ierr.NewError("client id is required").Mark(ierr.ErrValidation)
	}
	if q.Currency == "" {
		return ierr.NewError("currency is required").Mark(ierr.ErrValidation)
	}
	if q.DepositPercentage.IsNegative() || q.DepositPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return ierr.NewError("deposit percentage must be between 0 and 100").
			WithReportableDetails(map[string]any{"deposit_percentage": q.DepositPercentage}).
			Mark(ierr.ErrValidation)
	}
	return q.QuotationStatus.Validate()
}
