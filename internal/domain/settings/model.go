package settings

import (
	"strconv"
	"time"

	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
)

// Setting is a single durable company setting row. All automation toggles
// and thresholds the engine reads live here, not in process config, so
// staff edits take effect without a deploy.
type Setting struct {
	Key   string `db:"key" json:"key"`
	Value string `db:"value" json:"value"`

	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
	UpdatedBy string    `db:"updated_by" json:"updated_by"`
}

// Keys for every setting the engine reads
const (
	KeyCascadeTax                 = "cascade_tax"
	KeyTaxSetupFees               = "tax_setup_fees"
	KeyTaxCancelFees              = "tax_cancel_fees"
	KeyClientProrateCredits       = "client_prorate_credits"
	KeyInvGroupServices           = "inv_group_services"
	KeyInvDaysBeforeRenewal       = "inv_days_before_renewal"
	KeyInvSuspendedServices       = "inv_suspended_services"
	KeySuspendServicesDaysAfter   = "suspend_services_days_after_due"
	KeyAutodebitDaysBeforeDue     = "autodebit_days_before_due"
	KeyAutodebitAttempts          = "autodebit_attempts"
	KeyServiceRenewalAttempts     = "service_renewal_attempts"
	KeyAutoPaidPendingServices    = "auto_paid_pending_services"
	KeyVoidInvoiceCanceledService = "void_invoice_canceled_service"
	KeyVoidInvCanceledServiceDays = "void_inv_canceled_service_days"
	KeyLateFeeDaysAfterDue        = "late_fee_days_after_due"
	KeyLateFeeType                = "late_fee_type"
	KeyLateFeeAmount              = "late_fee_amount"
	KeyLateFeeBasis               = "late_fee_basis"
	KeyQuotationValidDays         = "quotation_valid_days"
	KeyQuotationDepositPercentage = "quotation_deposit_percentage"
	KeyDefaultInvoiceType         = "default_invoice_type"
)

// Late fee setting values
const (
	LateFeeTypeFixed   = "fixed"
	LateFeeTypePercent = "percent"

	LateFeeBasisTotal  = "total"
	LateFeeBasisUnpaid = "unpaid"
)

// Defaults returns the value used when a key has no stored row
func Defaults() map[string]string {
	return map[string]string{
		KeyCascadeTax:                 "false",
		KeyTaxSetupFees:               "false",
		KeyTaxCancelFees:              "false",
		KeyClientProrateCredits:       "false",
		KeyInvGroupServices:           "true",
		KeyInvDaysBeforeRenewal:       "5",
		KeyInvSuspendedServices:       "false",
		KeySuspendServicesDaysAfter:   "5",
		KeyAutodebitDaysBeforeDue:     "1",
		KeyAutodebitAttempts:          "3",
		KeyServiceRenewalAttempts:     "3",
		KeyAutoPaidPendingServices:    "false",
		KeyVoidInvoiceCanceledService: "false",
		KeyVoidInvCanceledServiceDays: "0",
		KeyLateFeeDaysAfterDue:        "0",
		KeyLateFeeType:                LateFeeTypeFixed,
		KeyLateFeeAmount:              "0",
		KeyLateFeeBasis:               LateFeeBasisUnpaid,
		KeyQuotationValidDays:         "30",
		KeyQuotationDepositPercentage: "50",
		KeyDefaultInvoiceType:         string(types.InvoiceTypeStandard),
	}
}

// Bool parses the setting value as a boolean, false on garbage
func (s *Setting) Bool() bool {
	v, err := strconv.ParseBool(s.Value)
	if err != nil {
		return false
	}
	return v
}

// Int parses the setting value as an integer, 0 on garbage
func (s *Setting) Int() int {
	v, err := strconv.Atoi(s.Value)
	if err != nil {
		return 0
	}
	return v
}

// Decimal parses the setting value as a decimal, zero on garbage
func (s *Setting) Decimal() decimal.Decimal {
	v, err := decimal.NewFromString(s.Value)
	if err != nil {
		return decimal.Zero
	}
	return v
}
