package types

import (
	"fmt"

	"github.com/samber/lo"
)

// InvoiceStatus represents the lifecycle status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft  InvoiceStatus = "draft"
	InvoiceStatusActive InvoiceStatus = "active"
	InvoiceStatusVoid   InvoiceStatus = "void"
)

func (s InvoiceStatus) String() string {
	return string(s)
}

func (s InvoiceStatus) Validate() error {
	allowed := []InvoiceStatus{
		InvoiceStatusDraft,
		InvoiceStatusActive,
		InvoiceStatusVoid,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid invoice status: %s", s)
	}
	return nil
}

// InvoiceType distinguishes standard invoices from proforma invoices,
// which convert to standard once paid and closed.
type InvoiceType string

const (
	InvoiceTypeStandard InvoiceType = "standard"
	InvoiceTypeProforma InvoiceType = "proforma"
)

func (t InvoiceType) String() string {
	return string(t)
}

func (t InvoiceType) Validate() error {
	allowed := []InvoiceType{InvoiceTypeStandard, InvoiceTypeProforma}
	if !lo.Contains(allowed, t) {
		return fmt.Errorf("invalid invoice type: %s", t)
	}
	return nil
}

// InvoiceDeliveryMethod is how the client receives invoices
type InvoiceDeliveryMethod string

const (
	InvoiceDeliveryEmail InvoiceDeliveryMethod = "email"
	InvoiceDeliveryPaper InvoiceDeliveryMethod = "paper"
)

func (m InvoiceDeliveryMethod) Validate() error {
	allowed := []InvoiceDeliveryMethod{InvoiceDeliveryEmail, InvoiceDeliveryPaper}
	if !lo.Contains(allowed, m) {
		return fmt.Errorf("invalid invoice delivery method: %s", m)
	}
	return nil
}

// LineItemType tags a line by its origin
type LineItemType string

const (
	LineItemTypeService   LineItemType = "service"
	LineItemTypeOption    LineItemType = "option"
	LineItemTypeSetupFee  LineItemType = "setup_fee"
	LineItemTypeCancelFee LineItemType = "cancel_fee"
	LineItemTypeProration LineItemType = "proration"
	LineItemTypeDiscount  LineItemType = "discount"
	LineItemTypeLateFee   LineItemType = "late_fee"
	LineItemTypeManual    LineItemType = "manual"
)

func (t LineItemType) String() string {
	return string(t)
}

func (t LineItemType) Validate() error {
	allowed := []LineItemType{
		LineItemTypeService,
		LineItemTypeOption,
		LineItemTypeSetupFee,
		LineItemTypeCancelFee,
		LineItemTypeProration,
		LineItemTypeDiscount,
		LineItemTypeLateFee,
		LineItemTypeManual,
	}
	if !lo.Contains(allowed, t) {
		return fmt.Errorf("invalid line item type: %s", t)
	}
	return nil
}
