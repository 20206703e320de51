package client

import (
	"github.com/billforge/billforge/internal/types"
)

// Client represents a billable account holder
type Client struct {
	ID              string                      `db:"id" json:"id"`
	GroupID         string                      `db:"group_id" json:"group_id"`
	FirstName       string                      `db:"first_name" json:"first_name"`
	LastName        string                      `db:"last_name" json:"last_name"`
	Email           string                      `db:"email" json:"email"`
	Country         string                      `db:"country" json:"country"`
	State           string                      `db:"state" json:"state"`
	DefaultCurrency string                      `db:"default_currency" json:"default_currency"`
	DeliveryMethod  types.InvoiceDeliveryMethod `db:"delivery_method" json:"delivery_method"`
	TaxExempt       bool                        `db:"tax_exempt" json:"tax_exempt"`

	// Auto-debit state. The payment account reference is a token the
	// configured gateway understands; failures below the attempt ceiling
	// are transient, reaching it clears AutodebitEnabled and notifies.
	AutodebitEnabled   bool   `db:"autodebit_enabled" json:"autodebit_enabled"`
	PaymentAccountID   string `db:"payment_account_id" json:"payment_account_id"`
	PaymentAccountType string `db:"payment_account_type" json:"payment_account_type"`
	AutodebitFailures  int    `db:"autodebit_failures" json:"autodebit_failures"`

	types.BaseModel
}

// CanAutodebit reports whether the dunning manager should attempt a charge
func (c *Client) CanAutodebit() bool {
	return c.AutodebitEnabled && c.PaymentAccountID != "" && c.Status == types.StatusActive
}

// DeleteBlockers summarizes what still prevents a hard delete
type DeleteBlockers struct {
	OpenInvoices      int
	RecurringInvoices int
	LiveServices      int
}

// Clear reports whether the client may be hard deleted
func (b DeleteBlockers) Clear() bool {
	return b.OpenInvoices == 0 && b.RecurringInvoices == 0 && b.LiveServices == 0
}
