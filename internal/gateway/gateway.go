package gateway

import (
	"context"

	"github.com/shopspring/decimal"
)

// ChargeRequest asks a payment gateway to capture funds from a client's
// stored payment account
type ChargeRequest struct {
	ClientID         string
	PaymentAccountID string
	Currency         string
	Amount           decimal.Decimal
	// InvoiceID is passed through for gateway statement descriptors
	InvoiceID string
}

// ChargeResult is the gateway's answer to a charge attempt. Declined is
// a normal business outcome, not an error: err is reserved for transport
// and configuration failures.
type ChargeResult struct {
	// Reference is the processor's identifier for the charge
	Reference string
	Declined  bool
	// DeclineReason is the processor's human-readable decline message
	DeclineReason string
}

// Gateway is a payment processor integration
type Gateway interface {
	Name() string
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, reference string, amount decimal.Decimal) error
	Void(ctx context.Context, reference string) error
}
