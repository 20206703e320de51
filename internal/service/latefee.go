package service

import (
	"context"
	"time"

	"github.com/billforge/billforge/internal/domain/invoice"
	"github.com/billforge/billforge/internal/domain/settings"
	"github.com/billforge/billforge/internal/notification"
	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
)

// LateFeeService appends late fee lines to overdue invoices. An invoice
// receives at most one late fee for its lifetime.
type LateFeeService interface {
	ApplyLateFees(ctx context.Context, now time.Time) (int, error)
}

type lateFeeService struct {
	ServiceParams
	settings SettingsService
}

// NewLateFeeService creates a late fee service
func NewLateFeeService(params ServiceParams) LateFeeService {
	return &lateFeeService{
		ServiceParams: params,
		settings:      NewSettingsService(params),
	}
}

func (s *lateFeeService) ApplyLateFees(ctx context.Context, now time.Time) (int, error) {
	amount, err := s.settings.GetDecimal(ctx, settings.KeyLateFeeAmount)
	if err != nil {
		return 0, err
	}
	if !amount.IsPositive() {
		// late fees disabled
		return 0, nil
	}

	graceDays, err := s.settings.GetInt(ctx, settings.KeyLateFeeDaysAfterDue)
	if err != nil {
		return 0, err
	}
	feeType, err := s.settings.Get(ctx, settings.KeyLateFeeType)
	if err != nil {
		return 0, err
	}
	basis, err := s.settings.Get(ctx, settings.KeyLateFeeBasis)
	if err != nil {
		return 0, err
	}

	overdue, err := s.InvoiceRepo.ListOverdue(ctx, now, graceDays)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, inv := range overdue {
		if inv.LateFeeApplied {
			continue
		}
		if err := s.applyFee(ctx, inv, feeType, basis, amount); err != nil {
			s.Logger.Errorw("failed to apply late fee",
				"invoice_id", inv.ID, "error", err)
			continue
		}
		applied++
	}

	return applied, nil
}

func (s *lateFeeService) applyFee(ctx context.Context, inv *invoice.Invoice, feeType, basis string, amount decimal.Decimal) error {
	fee := amount
	if feeType == settings.LateFeeTypePercent {
		base := inv.Total
		if basis == settings.LateFeeBasisUnpaid {
			base = inv.AmountDue()
		}
		fee = base.Mul(amount).Div(decimal.NewFromInt(100))
	}
	fee = types.RoundToCurrencyPrecision(fee, inv.Currency)
	if !fee.IsPositive() {
		return nil
	}

	// the fee is appended directly: a partially paid invoice is frozen
	// for ordinary edits but still accrues its one late fee
	line := invoice.NewLineItem(
		types.LineItemTypeLateFee,
		"Late Fee",
		decimal.NewFromInt(1),
		fee,
		inv.Currency,
	)
	line.InvoiceID = inv.ID
	line.SortOrder = len(inv.Lines)
	inv.Lines = append(inv.Lines, line)

	inv.Recalculate(inv.TaxTotal)
	inv.LateFeeApplied = true

	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return err
	}

	if err := s.Notifier.Send(ctx, inv.ClientID, notification.TemplateLateFeeApplied, map[string]string{
		"invoice_number": inv.InvoiceNumber,
		"late_fee":       fee.String(),
		"amount_due":     inv.AmountDue().String(),
	}); err != nil {
		s.Logger.Errorw("failed to send late fee notification",
			"invoice_id", inv.ID, "error", err)
	}

	s.Logger.Infow("applied late fee",
		"invoice_id", inv.ID,
		"fee", fee,
		"type", feeType,
		"basis", basis,
	)
	return nil
}
