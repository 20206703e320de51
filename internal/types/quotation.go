package types

import (
	"fmt"

	"github.com/samber/lo"
)

// QuotationStatus represents the lifecycle status of a quotation
type QuotationStatus string

const (
	QuotationStatusDraft    QuotationStatus = "draft"
	QuotationStatusPending  QuotationStatus = "pending"
	QuotationStatusApproved QuotationStatus = "approved"
	QuotationStatusExpired  QuotationStatus = "expired"
	QuotationStatusInvoiced QuotationStatus = "invoiced"
	QuotationStatusDead     QuotationStatus = "dead"
	QuotationStatusLost     QuotationStatus = "lost"
)

func (s QuotationStatus) String() string {
	return string(s)
}

func (s QuotationStatus) Validate() error {
	allowed := []QuotationStatus{
		QuotationStatusDraft,
		QuotationStatusPending,
		QuotationStatusApproved,
		QuotationStatusExpired,
		QuotationStatusInvoiced,
		QuotationStatusDead,
		QuotationStatusLost,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid quotation status: %s", s)
	}
	return nil
}

// CanInvoice reports whether the quotation may be converted to invoices
func (s QuotationStatus) CanInvoice() bool {
	return s == QuotationStatusApproved
}
