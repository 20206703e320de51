package service

import (
	"context"
	"fmt"
	"time"

	"github.com/billforge/billforge/internal/domain/coupon"
	"github.com/billforge/billforge/internal/domain/invoice"
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// CouponValidationParams describes the order context a coupon is being
// validated against
type CouponValidationParams struct {
	PackageID      string
	PackageGroupID string
	Term           int
	Period         types.BillingPeriod
	Currency       string
	Now            time.Time

	// IsRenewal marks re-validation at a service renewal rather than
	// initial purchase
	IsRenewal bool
	// StaffInitiated permits internal-use-only coupons
	StaffInitiated bool
}

// CouponValidationResult reports the first failed check, if any. The
// checks run in a fixed order so clients always see the most actionable
// reason.
type CouponValidationResult struct {
	Valid  bool
	Code   types.CouponValidationErrorCode
	Coupon *coupon.Coupon
}

// CouponService validates and applies discount coupons
type CouponService interface {
	Validate(ctx context.Context, code string, params CouponValidationParams) (*CouponValidationResult, error)
	// ApplyToInvoice adds the discount line for the coupon and bumps its
	// usage count. The line inherits the taxability of the charges it
	// discounts so tax is computed on the discounted amount.
	ApplyToInvoice(ctx context.Context, inv *invoice.Invoice, c *coupon.Coupon, discountable decimal.Decimal, taxable bool) error
}

type couponService struct {
	ServiceParams
}

// NewCouponService creates a coupon service
func NewCouponService(params ServiceParams) CouponService {
	return &couponService{ServiceParams: params}
}

func (s *couponService) Validate(ctx context.Context, code string, params CouponValidationParams) (*CouponValidationResult, error) {
	c, err := s.CouponRepo.GetByCode(ctx, code)
	if err != nil {
		if ierr.IsNotFound(err) {
			return failed(types.CouponValidationErrorCodeNotFound), nil
		}
		return nil, err
	}

	if c.CouponStatus != types.CouponStatusEnabled {
		return failed(types.CouponValidationErrorCodeDisabled), nil
	}

	// renewals re-check the redemption limits only when the coupon says so
	checkLimits := !params.IsRenewal || c.LimitRecurring

	if checkLimits {
		if c.StartDate != nil && params.Now.Before(*c.StartDate) {
			return failed(types.CouponValidationErrorCodeNotStarted), nil
		}
		if c.EndDate != nil && params.Now.After(*c.EndDate) {
			return failed(types.CouponValidationErrorCodeExpired), nil
		}
		if !c.QtyAvailable() {
			return failed(types.CouponValidationErrorCodeQuantityExceeded), nil
		}
	}

	if c.InternalUseOnly && !params.StaffInitiated {
		return failed(types.CouponValidationErrorCodeInternalUseOnly), nil
	}

	if !couponAllowsPackage(c, params.PackageID, params.PackageGroupID) {
		return failed(types.CouponValidationErrorCodePackageNotAllowed), nil
	}

	if !c.AllowsTerm(params.Term, params.Period) {
		return failed(types.CouponValidationErrorCodeTermNotAllowed), nil
	}

	if params.IsRenewal && !c.Recurring {
		return failed(types.CouponValidationErrorCodeNotRecurring), nil
	}

	if c.AmountFor(params.Currency) == nil {
		return failed(types.CouponValidationErrorCodeCurrencyMismatch), nil
	}

	return &CouponValidationResult{Valid: true, Coupon: c}, nil
}

// couponAllowsPackage checks the coupon's package scope; an empty scope
// allows every package
func couponAllowsPackage(c *coupon.Coupon, packageID, packageGroupID string) bool {
	if len(c.PackageIDs) == 0 && len(c.PackageGroupIDs) == 0 {
		return true
	}
	if lo.Contains(c.PackageIDs, packageID) {
		return true
	}
	return packageGroupID != "" && lo.Contains(c.PackageGroupIDs, packageGroupID)
}

func (s *couponService) ApplyToInvoice(ctx context.Context, inv *invoice.Invoice, c *coupon.Coupon, discountable decimal.Decimal, taxable bool) error {
	discount := c.Discount(discountable, inv.Currency)
	if discount.IsZero() {
		return nil
	}

	line := invoice.NewLineItem(
		types.LineItemTypeDiscount,
		fmt.Sprintf("Coupon: %s", c.Code),
		decimal.NewFromInt(1),
		discount.Neg(),
		inv.Currency,
	)
	line.Taxable = taxable
	if err := inv.AddLine(line); err != nil {
		return err
	}

	if err := s.CouponRepo.IncrementUsage(ctx, c.ID); err != nil {
		return err
	}

	s.Logger.Debugw("applied coupon to invoice",
		"coupon_id", c.ID,
		"coupon_code", c.Code,
		"invoice_id", inv.ID,
		"discount", discount,
	)
	return nil
}

func failed(code types.CouponValidationErrorCode) *CouponValidationResult {
	return &CouponValidationResult{Valid: false, Code: code}
}
