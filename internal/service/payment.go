package service

import (
	"context"
	"time"

	"github.com/billforge/billforge/internal/domain/settings"
	"github.com/billforge/billforge/internal/domain/transaction"
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/notification"
	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
)

// PaymentService records transactions and applies them to invoices,
// driving the paid-invoice side effects: closing, proforma conversion
// and optional activation of paid pending services.
type PaymentService interface {
	Record(ctx context.Context, txn *transaction.Transaction) error
	// Apply ties part of a settled transaction to an invoice
	Apply(ctx context.Context, transactionID, invoiceID string, amount decimal.Decimal) error
}

type paymentService struct {
	ServiceParams
	settings SettingsService
}

// NewPaymentService creates a payment service
func NewPaymentService(params ServiceParams) PaymentService {
	return &paymentService{
		ServiceParams: params,
		settings:      NewSettingsService(params),
	}
}

func (s *paymentService) Record(ctx context.Context, txn *transaction.Transaction) error {
	if txn.ID == "" {
		txn.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TRANSACTION)
	}
	if txn.DateReceived.IsZero() {
		txn.DateReceived = time.Now().UTC()
	}
	if err := txn.Validate(); err != nil {
		return err
	}
	return s.TransactionRepo.Create(ctx, txn)
}

func (s *paymentService) Apply(ctx context.Context, transactionID, invoiceID string, amount decimal.Decimal) error {
	txn, err := s.TransactionRepo.Get(ctx, transactionID)
	if err != nil {
		return err
	}
	inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return err
	}

	if amount.GreaterThan(inv.AmountDue()) {
		return ierr.NewError("application exceeds invoice amount due").
			WithReportableDetails(map[string]any{
				"invoice_id": inv.ID,
				"amount":     amount,
				"amount_due": inv.AmountDue(),
			}).
			Mark(ierr.ErrValidation)
	}

	now := time.Now().UTC()
	if _, err := txn.Apply(inv.ID, inv.Currency, amount, now); err != nil {
		return err
	}
	if err := inv.ApplyPayment(amount, now); err != nil {
		return err
	}

	if err := s.TransactionRepo.Update(ctx, txn); err != nil {
		return err
	}
	if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
		return err
	}

	if inv.DateClosed != nil {
		s.onInvoicePaid(ctx, inv.ClientID, inv.InvoiceNumber)
	}

	s.Logger.Infow("applied transaction to invoice",
		"transaction_id", txn.ID,
		"invoice_id", inv.ID,
		"amount", amount,
		"closed", inv.DateClosed != nil,
	)
	return nil
}

// onInvoicePaid runs the paid-in-full side effects: notify the client
// and, when configured, activate their pending services
func (s *paymentService) onInvoicePaid(ctx context.Context, clientID, invoiceNumber string) {
	if err := s.Notifier.Send(ctx, clientID, notification.TemplatePaymentReceived, map[string]string{
		"invoice_number": invoiceNumber,
	}); err != nil {
		s.Logger.Errorw("failed to send payment notification",
			"client_id", clientID, "error", err)
	}

	autoActivate, err := s.settings.GetBool(ctx, settings.KeyAutoPaidPendingServices)
	if err != nil || !autoActivate {
		return
	}

	lifecycle := NewLifecycleService(s.ServiceParams)
	if err := lifecycle.ActivatePaidPending(ctx, clientID); err != nil {
		s.Logger.Errorw("failed to activate paid pending services",
			"client_id", clientID, "error", err)
	}
}
