package types

import (
	"fmt"

	"github.com/samber/lo"
)

// CouponStatus represents whether a coupon may be redeemed at all
type CouponStatus string

const (
	CouponStatusEnabled  CouponStatus = "enabled"
	CouponStatusDisabled CouponStatus = "disabled"
)

func (s CouponStatus) String() string {
	return string(s)
}

func (s CouponStatus) Validate() error {
	allowed := []CouponStatus{CouponStatusEnabled, CouponStatusDisabled}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid coupon status: %s", s)
	}
	return nil
}

// CouponDiscountType is how a per-currency coupon amount is expressed
type CouponDiscountType string

const (
	CouponDiscountTypeAmount  CouponDiscountType = "amount"
	CouponDiscountTypePercent CouponDiscountType = "percent"
)

func (t CouponDiscountType) Validate() error {
	allowed := []CouponDiscountType{CouponDiscountTypeAmount, CouponDiscountTypePercent}
	if !lo.Contains(allowed, t) {
		return fmt.Errorf("invalid coupon discount type: %s", t)
	}
	return nil
}

// CouponValidationErrorCode identifies which ordered validation check
// rejected a coupon; the first failing check wins.
type CouponValidationErrorCode string

const (
	CouponValidationErrorCodeNotFound          CouponValidationErrorCode = "coupon_not_found"
	CouponValidationErrorCodeDisabled          CouponValidationErrorCode = "coupon_disabled"
	CouponValidationErrorCodeNotStarted        CouponValidationErrorCode = "coupon_not_started"
	CouponValidationErrorCodeExpired           CouponValidationErrorCode = "coupon_expired"
	CouponValidationErrorCodeQuantityExceeded  CouponValidationErrorCode = "coupon_quantity_exceeded"
	CouponValidationErrorCodeInternalUseOnly   CouponValidationErrorCode = "coupon_internal_use_only"
	CouponValidationErrorCodePackageNotAllowed CouponValidationErrorCode = "coupon_package_not_allowed"
	CouponValidationErrorCodeTermNotAllowed    CouponValidationErrorCode = "coupon_term_not_allowed"
	CouponValidationErrorCodeNotRecurring      CouponValidationErrorCode = "coupon_not_recurring"
	CouponValidationErrorCodeCurrencyMismatch  CouponValidationErrorCode = "coupon_currency_mismatch"
)
