package service

import (
	"context"
	"strconv"
	"time"

	"github.com/billforge/billforge/internal/domain/client"
	"github.com/billforge/billforge/internal/domain/invoice"
	"github.com/billforge/billforge/internal/domain/settings"
	"github.com/billforge/billforge/internal/domain/transaction"
	"github.com/billforge/billforge/internal/gateway"
	"github.com/billforge/billforge/internal/notification"
	"github.com/billforge/billforge/internal/types"
)

// AutodebitService is the dunning manager: it charges stored payment
// accounts for invoices coming due, counts declines per client, and
// disables autodebit once the attempt ceiling is reached.
type AutodebitService interface {
	Run(ctx context.Context, now time.Time) (charged int, err error)
}

type autodebitService struct {
	ServiceParams
	payments PaymentService
	settings SettingsService
}

// NewAutodebitService creates an autodebit service
func NewAutodebitService(params ServiceParams) AutodebitService {
	return &autodebitService{
		ServiceParams: params,
		payments:      NewPaymentService(params),
		settings:      NewSettingsService(params),
	}
}

func (s *autodebitService) Run(ctx context.Context, now time.Time) (int, error) {
	leadDays, err := s.settings.GetInt(ctx, settings.KeyAutodebitDaysBeforeDue)
	if err != nil {
		return 0, err
	}
	maxAttempts, err := s.settings.GetInt(ctx, settings.KeyAutodebitAttempts)
	if err != nil {
		return 0, err
	}

	due, err := s.InvoiceRepo.ListAutodebitDue(ctx, now, leadDays)
	if err != nil {
		return 0, err
	}

	charged := 0
	for _, inv := range due {
		cl, err := s.ClientRepo.Get(ctx, inv.ClientID)
		if err != nil {
			s.Logger.Errorw("autodebit: failed to load client",
				"client_id", inv.ClientID, "error", err)
			continue
		}
		if !cl.CanAutodebit() {
			continue
		}

		ok, err := s.chargeInvoice(ctx, cl, inv, maxAttempts, now)
		if err != nil {
			// transport failures are transient; no decline is counted
			s.Logger.Errorw("autodebit: gateway error",
				"invoice_id", inv.ID, "error", err)
			continue
		}
		if ok {
			charged++
		}
	}

	return charged, nil
}

func (s *autodebitService) chargeInvoice(ctx context.Context, cl *client.Client, inv *invoice.Invoice, maxAttempts int, now time.Time) (bool, error) {
	gw, err := s.Gateways.Get(cl.PaymentAccountType)
	if err != nil {
		return false, err
	}

	result, err := gw.Charge(ctx, gateway.ChargeRequest{
		ClientID:         cl.ID,
		PaymentAccountID: cl.PaymentAccountID,
		Currency:         inv.Currency,
		Amount:           inv.AmountDue(),
		InvoiceID:        inv.ID,
	})
	if err != nil {
		return false, err
	}

	if result.Declined {
		return false, s.recordDecline(ctx, cl, inv, maxAttempts, result.DeclineReason)
	}

	txn := &transaction.Transaction{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TRANSACTION),
		ClientID:          cl.ID,
		TransactionType:   types.TransactionTypeCC,
		TransactionStatus: types.TransactionStatusApproved,
		Currency:          inv.Currency,
		Amount:            inv.AmountDue(),
		GatewayName:       gw.Name(),
		GatewayReference:  result.Reference,
		DateReceived:      now,
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}
	if err := s.payments.Record(ctx, txn); err != nil {
		return false, err
	}
	if err := s.payments.Apply(ctx, txn.ID, inv.ID, txn.Amount); err != nil {
		return false, err
	}

	// a successful charge resets the client's decline streak
	if cl.AutodebitFailures != 0 {
		cl.AutodebitFailures = 0
		if err := s.ClientRepo.Update(ctx, cl); err != nil {
			return true, err
		}
	}

	return true, nil
}

// recordDecline bumps the client's failure counter and, once the
// ceiling is reached, disables autodebit with exactly one notification.
// The payment account itself is kept.
func (s *autodebitService) recordDecline(ctx context.Context, cl *client.Client, inv *invoice.Invoice, maxAttempts int, reason string) error {
	cl.AutodebitFailures++

	s.Logger.Infow("autodebit declined",
		"client_id", cl.ID,
		"invoice_id", inv.ID,
		"failures", cl.AutodebitFailures,
		"reason", reason,
	)

	if cl.AutodebitFailures >= maxAttempts {
		cl.AutodebitEnabled = false
		if err := s.ClientRepo.Update(ctx, cl); err != nil {
			return err
		}
		return s.Notifier.Send(ctx, cl.ID, notification.TemplateAutodebitDisabled, map[string]string{
			"invoice_number": inv.InvoiceNumber,
			"failures":       strconv.Itoa(cl.AutodebitFailures),
		})
	}

	return s.ClientRepo.Update(ctx, cl)
}
