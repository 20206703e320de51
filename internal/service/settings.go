package service

import (
	"context"
	"fmt"
	"time"

	"github.com/billforge/billforge/internal/cache"
	"github.com/billforge/billforge/internal/domain/settings"
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
)

const settingsCachePrefix = "settings:"

// SettingsService reads and writes company settings with a read-through
// cache. Unset keys resolve to their defaults so automation never blocks
// on missing configuration.
type SettingsService interface {
	Get(ctx context.Context, key string) (string, error)
	GetBool(ctx context.Context, key string) (bool, error)
	GetInt(ctx context.Context, key string) (int, error)
	GetDecimal(ctx context.Context, key string) (decimal.Decimal, error)
	Set(ctx context.Context, key, value string) error
	Reset(ctx context.Context, key string) error
}

type settingsService struct {
	ServiceParams
}

// NewSettingsService creates a settings service
func NewSettingsService(params ServiceParams) SettingsService {
	return &settingsService{ServiceParams: params}
}

func (s *settingsService) Get(ctx context.Context, key string) (string, error) {
	if _, known := settings.Defaults()[key]; !known {
		return "", ierr.NewError("unknown setting key").
			WithHintf("no setting named %q exists", key).
			Mark(ierr.ErrNotFound)
	}

	cacheKey := settingsCachePrefix + key
	if cached, ok := s.Cache.Get(ctx, cacheKey); ok {
		if value, ok := cached.(string); ok {
			return value, nil
		}
	}

	value, err := s.load(ctx, key)
	if err != nil {
		return "", err
	}
	s.Cache.Set(ctx, cacheKey, value, cache.DefaultExpiration)
	return value, nil
}

func (s *settingsService) load(ctx context.Context, key string) (string, error) {
	row, err := s.SettingsRepo.Get(ctx, key)
	if err != nil {
		if ierr.IsNotFound(err) {
			return settings.Defaults()[key], nil
		}
		return "", err
	}
	return row.Value, nil
}

func (s *settingsService) GetBool(ctx context.Context, key string) (bool, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return (&settings.Setting{Value: value}).Bool(), nil
}

func (s *settingsService) GetInt(ctx context.Context, key string) (int, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	return (&settings.Setting{Value: value}).Int(), nil
}

func (s *settingsService) GetDecimal(ctx context.Context, key string) (decimal.Decimal, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}
	return (&settings.Setting{Value: value}).Decimal(), nil
}

func (s *settingsService) Set(ctx context.Context, key, value string) error {
	if _, known := settings.Defaults()[key]; !known {
		return ierr.NewError("unknown setting key").
			WithHintf("no setting named %q exists", key).
			Mark(ierr.ErrNotFound)
	}
	if err := validateSettingValue(key, value); err != nil {
		return err
	}

	err := s.SettingsRepo.Set(ctx, &settings.Setting{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
		UpdatedBy: types.GetActorID(ctx),
	})
	if err != nil {
		return err
	}

	s.Cache.Delete(ctx, settingsCachePrefix+key)
	return nil
}

func (s *settingsService) Reset(ctx context.Context, key string) error {
	err := s.SettingsRepo.Delete(ctx, key)
	if err != nil && !ierr.IsNotFound(err) {
		return err
	}
	s.Cache.Delete(ctx, settingsCachePrefix+key)
	return nil
}

func validateSettingValue(key, value string) error {
	probe := &settings.Setting{Value: value}
	switch key {
	case settings.KeyLateFeeType:
		if value != settings.LateFeeTypeFixed && value != settings.LateFeeTypePercent {
			return invalidSetting(key, value)
		}
	case settings.KeyLateFeeBasis:
		if value != settings.LateFeeBasisTotal && value != settings.LateFeeBasisUnpaid {
			return invalidSetting(key, value)
		}
	case settings.KeyDefaultInvoiceType:
		if err := types.InvoiceType(value).Validate(); err != nil {
			return invalidSetting(key, value)
		}
	case settings.KeyLateFeeAmount, settings.KeyQuotationDepositPercentage:
		if probe.Decimal().IsNegative() {
			return invalidSetting(key, value)
		}
	case settings.KeyInvDaysBeforeRenewal, settings.KeySuspendServicesDaysAfter,
		settings.KeyAutodebitDaysBeforeDue, settings.KeyAutodebitAttempts,
		settings.KeyServiceRenewalAttempts, settings.KeyVoidInvCanceledServiceDays,
		settings.KeyLateFeeDaysAfterDue, settings.KeyQuotationValidDays:
		if _, err := fmt.Sscanf(value, "%d", new(int)); err != nil || probe.Int() < 0 {
			return invalidSetting(key, value)
		}
	}
	return nil
}

func invalidSetting(key, value string) error {
	return ierr.NewError("invalid setting value").
		WithHintf("%q is not a valid value for %s", value, key).
		WithReportableDetails(map[string]any{"key": key, "value": value}).
		Mark(ierr.ErrValidation)
}
