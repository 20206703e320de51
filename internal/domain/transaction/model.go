package transaction

import (
	"time"

	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
)

// Transaction records money received from (or returned to) a client.
// Applications link a transaction's amount to one or more invoices; the
// unapplied remainder stays on the transaction as client credit.
type Transaction struct {
	ID       string `db:"id" json:"id"`
	ClientID string `db:"client_id" json:"client_id"`

	TransactionType   types.TransactionType   `db:"transaction_type" json:"transaction_type"`
	TransactionStatus types.TransactionStatus `db:"transaction_status" json:"transaction_status"`

	Currency string          `db:"currency" json:"currency"`
	Amount   decimal.Decimal `db:"amount" json:"amount"`

	// GatewayName and GatewayReference identify the processor charge for
	// gateway-originated transactions; both empty for manual entries
	GatewayName      string `db:"gateway_name" json:"gateway_name"`
	GatewayReference string `db:"gateway_reference" json:"gateway_reference"`

	// ParentTransactionID links refunds and returns to the original charge
	ParentTransactionID *string `db:"parent_transaction_id" json:"parent_transaction_id"`

	DateReceived time.Time `db:"date_received" json:"date_received"`

	Applications []*Application `db:"-" json:"applications,omitempty"`

	types.BaseModel
}

// Application ties part of a transaction's amount to one invoice
type Application struct {
	ID            string          `db:"id" json:"id"`
	TransactionID string          `db:"transaction_id" json:"transaction_id"`
	InvoiceID     string          `db:"invoice_id" json:"invoice_id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	DateApplied   time.Time       `db:"date_applied" json:"date_applied"`
}

// AppliedAmount sums the transaction's applications
func (t *Transaction) AppliedAmount() decimal.Decimal {
	total := decimal.Zero
	for _, app := range t.Applications {
		total = total.Add(app.Amount)
	}
	return total
}

// UnappliedAmount is the remainder available to apply to invoices
func (t *Transaction) UnappliedAmount() decimal.Decimal {
	return t.Amount.Sub(t.AppliedAmount())
}

// CanApply reports whether the transaction may fund new applications
func (t *Transaction) CanApply() bool {
	return t.TransactionStatus.IsSettled() && t.UnappliedAmount().IsPositive()
}

// Apply records an application of this transaction against an invoice.
// The amount must be positive, within the unapplied remainder, and the
// currencies must match.
func (t *Transaction) Apply(invoiceID, invoiceCurrency string, amount decimal.Decimal, now time.Time) (*Application, error) {
	if !t.TransactionStatus.IsSettled() {
		return nil, ierr.NewError("transaction is not settled").
			WithHintf("transaction %s is %s", t.ID, t.TransactionStatus).
			Mark(ierr.ErrInvalidOperation)
	}
	if !amount.IsPositive() {
		return nil, ierr.NewError("application amount must be positive").
			Mark(ierr.ErrValidation)
	}
	if !types.IsMatchingCurrency(t.Currency, invoiceCurrency) {
		return nil, ierr.NewError("currency mismatch").
			WithReportableDetails(map[string]any{
				"transaction_currency": t.Currency,
				"invoice_currency":     invoiceCurrency,
			}).
			Mark(ierr.ErrValidation)
	}
	if amount.GreaterThan(t.UnappliedAmount()) {
		return nil, ierr.NewError("application exceeds unapplied amount").
			WithReportableDetails(map[string]any{
				"transaction_id": t.ID,
				"amount":         amount,
				"unapplied":      t.UnappliedAmount(),
			}).
			Mark(ierr.ErrValidation)
	}

	app := &Application{
		ID:            types.GenerateUUID(),
		TransactionID: t.ID,
		InvoiceID:     invoiceID,
		Amount:        amount,
		DateApplied:   now,
	}
	t.Applications = append(t.Applications, app)
	return app, nil
}

// Unapply removes an application, releasing its amount back to the
// transaction
func (t *Transaction) Unapply(applicationID string) error {
	for idx, app := range t.Applications {
		if app.ID == applicationID {
			t.Applications = append(t.Applications[:idx], t.Applications[idx+1:]...)
			return nil
		}
	}
	return ierr.NewError("application not found").
		WithHintf("transaction %s has no application %s", t.ID, applicationID).
		Mark(ierr.ErrNotFound)
}

// Validate checks structural transaction invariants
func (t *Transaction) Validate() error {
	if t.ClientID == "" {
		return ierr.NewError("client id is required").Mark(ierr.ErrValidation)
	}
	if t.Currency == "" {
		return ierr.NewError("currency is required").Mark(ierr.ErrValidation)
	}
	if t.Amount.IsNegative() {
		return ierr.NewError("transaction amount cannot be negative").
			WithHint("Record refunds as refunded transactions linked to the original charge").
			Mark(ierr.ErrValidation)
	}
	if err := t.TransactionType.Validate(); err != nil {
		return err
	}
	return t.TransactionStatus.Validate()
}
