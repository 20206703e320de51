package service

import (
	"testing"
	"time"

	"github.com/billforge/billforge/internal/domain/coupon"
	"github.com/billforge/billforge/internal/domain/invoice"
	"github.com/billforge/billforge/internal/testutil"
	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type CouponServiceSuite struct {
	testutil.BaseServiceTestSuite
	service CouponService
	now     time.Time
}

func TestCouponService(t *testing.T) {
	suite.Run(t, new(CouponServiceSuite))
}

func (s *CouponServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.service = NewCouponService(ServiceParams{
		Logger:     s.GetLogger(),
		Config:     s.GetConfig(),
		Cache:      s.GetCache(),
		CouponRepo: s.GetStores().CouponRepo,
	})
	s.now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
}

func (s *CouponServiceSuite) seedCoupon(mutate func(*coupon.Coupon)) *coupon.Coupon {
	c := &coupon.Coupon{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_COUPON),
		Code:         "SAVE10",
		CouponStatus: types.CouponStatusEnabled,
		Recurring:    true,
		Amounts: []*coupon.Amount{
			{Currency: "USD", Type: types.CouponDiscountTypePercent, Amount: decimal.NewFromInt(10)},
		},
		BaseModel: types.BaseModel{Status: types.StatusActive},
	}
	if mutate != nil {
		mutate(c)
	}
	s.NoError(s.GetStores().CouponRepo.Create(s.GetContext(), c))
	return c
}

func (s *CouponServiceSuite) defaultParams() CouponValidationParams {
	return CouponValidationParams{
		PackageID: "pkg_1",
		Term:      1,
		Period:    types.BillingPeriodMonth,
		Currency:  "USD",
		Now:       s.now,
	}
}

func (s *CouponServiceSuite) TestValidate_Valid() {
	s.seedCoupon(nil)

	result, err := s.service.Validate(s.GetContext(), "SAVE10", s.defaultParams())
	s.NoError(err)
	s.True(result.Valid)
	s.NotNil(result.Coupon)
}

func (s *CouponServiceSuite) TestValidate_NotFound() {
	result, err := s.service.Validate(s.GetContext(), "NOSUCH", s.defaultParams())
	s.NoError(err)
	s.False(result.Valid)
	s.Equal(types.CouponValidationErrorCodeNotFound, result.Code)
}

func (s *CouponServiceSuite) TestValidate_Disabled() {
	s.seedCoupon(func(c *coupon.Coupon) {
		c.CouponStatus = types.CouponStatusDisabled
	})

	result, err := s.service.Validate(s.GetContext(), "SAVE10", s.defaultParams())
	s.NoError(err)
	s.Equal(types.CouponValidationErrorCodeDisabled, result.Code)
}

func (s *CouponServiceSuite) TestValidate_DateWindow() {
	start := s.now.Add(24 * time.Hour)
	s.seedCoupon(func(c *coupon.Coupon) {
		c.StartDate = &start
	})

	result, err := s.service.Validate(s.GetContext(), "SAVE10", s.defaultParams())
	s.NoError(err)
	s.Equal(types.CouponValidationErrorCodeNotStarted, result.Code)
}

func (s *CouponServiceSuite) TestValidate_Expired() {
	end := s.now.Add(-24 * time.Hour)
	s.seedCoupon(func(c *coupon.Coupon) {
		c.EndDate = &end
	})

	result, err := s.service.Validate(s.GetContext(), "SAVE10", s.defaultParams())
	s.NoError(err)
	s.Equal(types.CouponValidationErrorCodeExpired, result.Code)
}

func (s *CouponServiceSuite) TestValidate_QuantityExceeded() {
	s.seedCoupon(func(c *coupon.Coupon) {
		c.MaxQty = 5
		c.UsedQty = 5
	})

	result, err := s.service.Validate(s.GetContext(), "SAVE10", s.defaultParams())
	s.NoError(err)
	s.Equal(types.CouponValidationErrorCodeQuantityExceeded, result.Code)
}

func (s *CouponServiceSuite) TestValidate_RenewalSkipsLimitsUnlessRestricted() {
	end := s.now.Add(-24 * time.Hour)
	s.seedCoupon(func(c *coupon.Coupon) {
		c.EndDate = &end
		c.MaxQty = 1
		c.UsedQty = 1
		c.LimitRecurring = false
	})

	params := s.defaultParams()
	params.IsRenewal = true

	// limits are skipped on renewal when limit_recurring is off
	result, err := s.service.Validate(s.GetContext(), "SAVE10", params)
	s.NoError(err)
	s.True(result.Valid)
}

func (s *CouponServiceSuite) TestValidate_RenewalRechecksLimitsWhenRestricted() {
	end := s.now.Add(-24 * time.Hour)
	s.seedCoupon(func(c *coupon.Coupon) {
		c.EndDate = &end
		c.LimitRecurring = true
	})

	params := s.defaultParams()
	params.IsRenewal = true

	result, err := s.service.Validate(s.GetContext(), "SAVE10", params)
	s.NoError(err)
	s.Equal(types.CouponValidationErrorCodeExpired, result.Code)
}

func (s *CouponServiceSuite) TestValidate_InternalUseOnly() {
	s.seedCoupon(func(c *coupon.Coupon) {
		c.InternalUseOnly = true
	})

	result, err := s.service.Validate(s.GetContext(), "SAVE10", s.defaultParams())
	s.NoError(err)
	s.Equal(types.CouponValidationErrorCodeInternalUseOnly, result.Code)

	params := s.defaultParams()
	params.StaffInitiated = true
	result, err = s.service.Validate(s.GetContext(), "SAVE10", params)
	s.NoError(err)
	s.True(result.Valid)
}

func (s *CouponServiceSuite) TestValidate_PackageScope() {
	s.seedCoupon(func(c *coupon.Coupon) {
		c.PackageIDs = []string{"pkg_other"}
	})

	result, err := s.service.Validate(s.GetContext(), "SAVE10", s.defaultParams())
	s.NoError(err)
	s.Equal(types.CouponValidationErrorCodePackageNotAllowed, result.Code)
}

func (s *CouponServiceSuite) TestValidate_PackageGroupScope() {
	s.seedCoupon(func(c *coupon.Coupon) {
		c.PackageGroupIDs = []string{"grp_vps"}
	})

	params := s.defaultParams()
	params.PackageGroupID = "grp_vps"
	result, err := s.service.Validate(s.GetContext(), "SAVE10", params)
	s.NoError(err)
	s.True(result.Valid)
}

func (s *CouponServiceSuite) TestValidate_TermRestriction() {
	s.seedCoupon(func(c *coupon.Coupon) {
		c.Terms = []*coupon.TermRestriction{
			{Term: 12, Period: types.BillingPeriodMonth, Enabled: true},
		}
	})

	result, err := s.service.Validate(s.GetContext(), "SAVE10", s.defaultParams())
	s.NoError(err)
	s.Equal(types.CouponValidationErrorCodeTermNotAllowed, result.Code)

	params := s.defaultParams()
	params.Term = 12
	result, err = s.service.Validate(s.GetContext(), "SAVE10", params)
	s.NoError(err)
	s.True(result.Valid)
}

func (s *CouponServiceSuite) TestValidate_NotRecurringAtRenewal() {
	s.seedCoupon(func(c *coupon.Coupon) {
		c.Recurring = false
	})

	params := s.defaultParams()
	params.IsRenewal = true
	result, err := s.service.Validate(s.GetContext(), "SAVE10", params)
	s.NoError(err)
	s.Equal(types.CouponValidationErrorCodeNotRecurring, result.Code)
}

func (s *CouponServiceSuite) TestValidate_CurrencyMismatch() {
	s.seedCoupon(nil)

	params := s.defaultParams()
	params.Currency = "EUR"
	result, err := s.service.Validate(s.GetContext(), "SAVE10", params)
	s.NoError(err)
	s.Equal(types.CouponValidationErrorCodeCurrencyMismatch, result.Code)
}

func (s *CouponServiceSuite) TestApplyToInvoice() {
	c := s.seedCoupon(nil)

	inv := &invoice.Invoice{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		Currency:      "USD",
		InvoiceStatus: types.InvoiceStatusDraft,
	}

	err := s.service.ApplyToInvoice(s.GetContext(), inv, c, decimal.NewFromInt(50), true)
	s.NoError(err)
	s.Len(inv.Lines, 1)
	s.True(inv.Lines[0].Amount.Equal(decimal.NewFromInt(-5)))
	s.Equal(types.LineItemTypeDiscount, inv.Lines[0].Type)

	stored, err := s.GetStores().CouponRepo.Get(s.GetContext(), c.ID)
	s.NoError(err)
	s.Equal(1, stored.UsedQty)
}
