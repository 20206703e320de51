package service

import (
	"time"

	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
)

// Service is a provisioned instance of a package pricing for a client.
// A child service (addon) references its parent and is canceled
// transitively with it.
type Service struct {
	ID              string  `db:"id" json:"id"`
	ClientID        string  `db:"client_id" json:"client_id"`
	PackageID       string  `db:"package_id" json:"package_id"`
	PricingID       string  `db:"pricing_id" json:"pricing_id"`
	ParentServiceID *string `db:"parent_service_id" json:"parent_service_id"`
	CouponID        *string `db:"coupon_id" json:"coupon_id"`

	Qty              int              `db:"qty" json:"qty"`
	OverridePrice    *decimal.Decimal `db:"override_price" json:"override_price"`
	OverrideCurrency *string          `db:"override_currency" json:"override_currency"`

	ServiceStatus      types.ServiceStatus `db:"service_status" json:"service_status"`
	SuspensionReason   string              `db:"suspension_reason" json:"suspension_reason"`
	CancellationReason string              `db:"cancellation_reason" json:"cancellation_reason"`

	DateAdded     time.Time  `db:"date_added" json:"date_added"`
	DateRenews    *time.Time `db:"date_renews" json:"date_renews"`
	DateSuspended *time.Time `db:"date_suspended" json:"date_suspended"`
	// DateCanceled in the future means the service is active but
	// scheduled to cancel at end of term
	DateCanceled *time.Time `db:"date_canceled" json:"date_canceled"`

	// Bounded module renewal retry state
	RenewalAttempts    int  `db:"renewal_attempts" json:"renewal_attempts"`
	MaxRenewalAttempts *int `db:"max_renewal_attempts" json:"max_renewal_attempts"`
	InManualQueue      bool `db:"in_manual_queue" json:"in_manual_queue"`

	// PendingPricingID holds a downgrade deferred to the next renewal
	// when prorated credits are disabled
	PendingPricingID *string           `db:"pending_pricing_id" json:"pending_pricing_id"`
	PendingOptions   map[string]string `db:"-" json:"pending_options,omitempty"`

	// Selected option values (option ID -> option value ID)
	OptionSelections map[string]string `db:"-" json:"option_selections,omitempty"`

	types.BaseModel
}

// IsScheduledForCancellation reports whether an active service carries a
// future cancellation date
func (s *Service) IsScheduledForCancellation(now time.Time) bool {
	return s.ServiceStatus == types.ServiceStatusActive &&
		s.DateCanceled != nil && s.DateCanceled.After(now)
}

// IsLive reports whether the service still blocks client deletion
func (s *Service) IsLive() bool {
	return s.ServiceStatus == types.ServiceStatusActive ||
		s.ServiceStatus == types.ServiceStatusSuspended
}

// RenewalAttemptCeiling returns the per-service override or the given
// company default
func (s *Service) RenewalAttemptCeiling(companyDefault int) int {
	if s.MaxRenewalAttempts != nil {
		return *s.MaxRenewalAttempts
	}
	return companyDefault
}

// IsRenewalDue reports whether the renewal date falls within the window
// ending at horizon
func (s *Service) IsRenewalDue(horizon time.Time) bool {
	return s.DateRenews != nil && !s.DateRenews.After(horizon)
}

// ApplyPendingChange swaps in a deferred pricing/option change and
// reports whether anything changed. The caller persists the service and
// bills the new price from the next period on.
func (s *Service) ApplyPendingChange() bool {
	changed := false
	if s.PendingPricingID != nil {
		s.PricingID = *s.PendingPricingID
		s.PendingPricingID = nil
		changed = true
	}
	if s.PendingOptions != nil {
		s.OptionSelections = s.PendingOptions
		s.PendingOptions = nil
		changed = true
	}
	return changed
}
