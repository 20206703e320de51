package service

import (
	"context"
	"time"

	"github.com/billforge/billforge/internal/domain/quotation"
	"github.com/billforge/billforge/internal/domain/settings"
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/notification"
	"github.com/billforge/billforge/internal/types"
	"github.com/billforge/billforge/internal/validator"
	"github.com/shopspring/decimal"
)

// CreateQuotationParams carries the inputs for a new quotation. Zero
// ValidDays and a nil DepositPercentage fall back to company settings.
type CreateQuotationParams struct {
	ClientID          string `validate:"required"`
	Title             string `validate:"required"`
	Notes             string
	Currency          string
	ValidDays         int
	DepositPercentage *decimal.Decimal
	Lines             []QuotationLineParams `validate:"required,min=1,dive"`
}

// QuotationLineParams is one quoted item
type QuotationLineParams struct {
	Description string          `validate:"required"`
	Qty         decimal.Decimal `validate:"required"`
	UnitAmount  decimal.Decimal
	Taxable     bool
}

// QuotationService manages the quotation lifecycle up to conversion,
// which InvoiceService.ConvertQuotation performs.
type QuotationService interface {
	Create(ctx context.Context, params CreateQuotationParams) (*quotation.Quotation, error)
	Get(ctx context.Context, id string) (*quotation.Quotation, error)
	// UpdateStatus moves an undecided quotation to pending, approved,
	// dead or lost
	UpdateStatus(ctx context.Context, id string, status types.QuotationStatus) (*quotation.Quotation, error)
	// Deliver sends the quotation to the client
	Deliver(ctx context.Context, id string) error
	// ExpireDue expires undecided quotations past their expiry date
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

type quotationService struct {
	ServiceParams
	settings SettingsService
}

// NewQuotationService creates a quotation service
func NewQuotationService(params ServiceParams) QuotationService {
	return &quotationService{
		ServiceParams: params,
		settings:      NewSettingsService(params),
	}
}

func (s *quotationService) Create(ctx context.Context, params CreateQuotationParams) (*quotation.Quotation, error) {
	if err := validator.ValidateRequest(params); err != nil {
		return nil, err
	}

	cl, err := s.ClientRepo.Get(ctx, params.ClientID)
	if err != nil {
		return nil, err
	}

	validDays := params.ValidDays
	if validDays <= 0 {
		validDays, err = s.settings.GetInt(ctx, settings.KeyQuotationValidDays)
		if err != nil {
			return nil, err
		}
	}
	depositPct := decimal.Zero
	if params.DepositPercentage != nil {
		depositPct = *params.DepositPercentage
	} else {
		depositPct, err = s.settings.GetDecimal(ctx, settings.KeyQuotationDepositPercentage)
		if err != nil {
			return nil, err
		}
	}
	currency := params.Currency
	if currency == "" {
		currency = cl.DefaultCurrency
	}

	now := time.Now().UTC()
	q := &quotation.Quotation{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_QUOTATION),
		QuotationNumber:   types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_QUOTATION),
		ClientID:          cl.ID,
		QuotationStatus:   types.QuotationStatusDraft,
		Currency:          currency,
		Title:             params.Title,
		Notes:             params.Notes,
		DateCreated:       now,
		DateExpires:       now.AddDate(0, 0, validDays),
		DepositPercentage: depositPct,
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}

	for i, lp := range params.Lines {
		q.Lines = append(q.Lines, &quotation.Line{
			ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_QUOTATION_LINE),
			QuotationID: q.ID,
			Description: lp.Description,
			Qty:         lp.Qty,
			UnitAmount:  lp.UnitAmount,
			Amount:      types.RoundToCurrencyPrecision(lp.Qty.Mul(lp.UnitAmount), currency),
			Taxable:     lp.Taxable,
			SortOrder:   i,
		})
	}
	q.Recalculate(decimal.Zero)

	if err := q.Validate(); err != nil {
		return nil, err
	}
	if err := s.QuotationRepo.Create(ctx, q); err != nil {
		return nil, err
	}

	s.Logger.Infow("created quotation",
		"quotation_id", q.ID,
		"quotation_number", q.QuotationNumber,
		"client_id", cl.ID,
		"total", q.Total)
	return q, nil
}

func (s *quotationService) Get(ctx context.Context, id string) (*quotation.Quotation, error) {
	return s.QuotationRepo.Get(ctx, id)
}

// quotationDecidable lists the statuses an undecided quotation can be
// moved to; expired and invoiced are reached only through their own
// operations
var quotationDecidable = map[types.QuotationStatus]bool{
	types.QuotationStatusPending:  true,
	types.QuotationStatusApproved: true,
	types.QuotationStatusDead:     true,
	types.QuotationStatusLost:     true,
}

func (s *quotationService) UpdateStatus(ctx context.Context, id string, status types.QuotationStatus) (*quotation.Quotation, error) {
	if !quotationDecidable[status] {
		return nil, ierr.NewError("unsupported quotation status change").
			WithHintf("cannot move a quotation to %s directly", status).
			Mark(ierr.ErrValidation)
	}

	q, err := s.QuotationRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch q.QuotationStatus {
	case types.QuotationStatusDraft, types.QuotationStatusPending:
	default:
		return nil, ierr.NewError("quotation is already decided").
			WithHintf("quotation %s is %s", q.ID, q.QuotationStatus).
			Mark(ierr.ErrInvalidOperation)
	}

	q.QuotationStatus = status
	if err := s.QuotationRepo.Update(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *quotationService) Deliver(ctx context.Context, id string) error {
	q, err := s.QuotationRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.Notifier.Send(ctx, q.ClientID, notification.TemplateQuotationDelivery, map[string]string{
		"quotation_number": q.QuotationNumber,
		"title":            q.Title,
		"total":            q.Total.String(),
		"date_expires":     q.DateExpires.Format("2006-01-02"),
	})
}

func (s *quotationService) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	due, err := s.QuotationRepo.ListExpiring(ctx, now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, q := range due {
		if err := q.Expire(now); err != nil {
			s.Logger.Errorw("failed to expire quotation",
				"quotation_id", q.ID, "error", err)
			continue
		}
		if err := s.QuotationRepo.Update(ctx, q); err != nil {
			return expired, err
		}
		if err := s.Notifier.Send(ctx, q.ClientID, notification.TemplateQuotationExpired, map[string]string{
			"quotation_number": q.QuotationNumber,
		}); err != nil {
			s.Logger.Errorw("failed to send quotation expiry notification",
				"quotation_id", q.ID, "error", err)
		}
		expired++
	}

	return expired, nil
}
