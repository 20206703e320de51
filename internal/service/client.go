package service

import (
	"context"

	"github.com/billforge/billforge/internal/domain/client"
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/types"
	"github.com/billforge/billforge/internal/validator"
	"github.com/shopspring/decimal"
)

// CreateClientParams carries the inputs for a new client
type CreateClientParams struct {
	GroupID         string
	FirstName       string `validate:"required"`
	LastName        string `validate:"required"`
	Email           string `validate:"required,email"`
	Country         string `validate:"required,len=2"`
	State           string
	DefaultCurrency string `validate:"required,len=3"`
	DeliveryMethod  types.InvoiceDeliveryMethod
	TaxExempt       bool
}

// ClientService manages client accounts. Hard deletion is guarded: a
// client with open invoices, active recurring templates or live
// services cannot be removed.
type ClientService interface {
	Create(ctx context.Context, params CreateClientParams) (*client.Client, error)
	Get(ctx context.Context, id string) (*client.Client, error)
	Update(ctx context.Context, cl *client.Client) error
	// DeleteBlockers reports what still prevents deleting the client
	DeleteBlockers(ctx context.Context, id string) (client.DeleteBlockers, error)
	Delete(ctx context.Context, id string) error
	// EnableAutodebit stores the payment account reference and resets the
	// decline counter
	EnableAutodebit(ctx context.Context, id, accountID, accountType string) error
	DisableAutodebit(ctx context.Context, id string) error
	// CreditBalance sums the client's unapplied settled payments
	CreditBalance(ctx context.Context, id string) (decimal.Decimal, error)
}

type clientService struct {
	ServiceParams
}

// NewClientService creates a client service
func NewClientService(params ServiceParams) ClientService {
	return &clientService{ServiceParams: params}
}

func (s *clientService) Create(ctx context.Context, params CreateClientParams) (*client.Client, error) {
	if err := validator.ValidateRequest(params); err != nil {
		return nil, err
	}

	delivery := params.DeliveryMethod
	if delivery == "" {
		delivery = types.InvoiceDeliveryEmail
	}

	cl := &client.Client{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CLIENT),
		GroupID:         params.GroupID,
		FirstName:       params.FirstName,
		LastName:        params.LastName,
		Email:           params.Email,
		Country:         params.Country,
		State:           params.State,
		DefaultCurrency: params.DefaultCurrency,
		DeliveryMethod:  delivery,
		TaxExempt:       params.TaxExempt,
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}
	if err := s.ClientRepo.Create(ctx, cl); err != nil {
		return nil, err
	}

	s.Logger.Infow("created client", "client_id", cl.ID, "email", cl.Email)
	return cl, nil
}

func (s *clientService) Get(ctx context.Context, id string) (*client.Client, error) {
	return s.ClientRepo.Get(ctx, id)
}

func (s *clientService) Update(ctx context.Context, cl *client.Client) error {
	return s.ClientRepo.Update(ctx, cl)
}

func (s *clientService) DeleteBlockers(ctx context.Context, id string) (client.DeleteBlockers, error) {
	var blockers client.DeleteBlockers

	openInvoices, err := s.InvoiceRepo.CountOpenByClient(ctx, id)
	if err != nil {
		return blockers, err
	}
	recurring, err := s.RecurringInvoiceRepo.CountActiveByClient(ctx, id)
	if err != nil {
		return blockers, err
	}
	liveServices, err := s.ServiceRepo.CountLiveByClient(ctx, id)
	if err != nil {
		return blockers, err
	}

	blockers.OpenInvoices = openInvoices
	blockers.RecurringInvoices = recurring
	blockers.LiveServices = liveServices
	return blockers, nil
}

func (s *clientService) Delete(ctx context.Context, id string) error {
	blockers, err := s.DeleteBlockers(ctx, id)
	if err != nil {
		return err
	}
	if !blockers.Clear() {
		return ierr.NewError("client cannot be deleted").
			WithHint("Settle open invoices and cancel services and recurring invoices first").
			WithReportableDetails(map[string]any{
				"open_invoices":      blockers.OpenInvoices,
				"recurring_invoices": blockers.RecurringInvoices,
				"live_services":      blockers.LiveServices,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	if err := s.ClientRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.Logger.Infow("deleted client", "client_id", id)
	return nil
}

func (s *clientService) EnableAutodebit(ctx context.Context, id, accountID, accountType string) error {
	if accountID == "" || accountType == "" {
		return ierr.NewError("payment account id and type are required").
			Mark(ierr.ErrValidation)
	}
	if _, err := s.Gateways.Get(accountType); err != nil {
		return err
	}

	cl, err := s.ClientRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	cl.AutodebitEnabled = true
	cl.PaymentAccountID = accountID
	cl.PaymentAccountType = accountType
	cl.AutodebitFailures = 0
	return s.ClientRepo.Update(ctx, cl)
}

func (s *clientService) DisableAutodebit(ctx context.Context, id string) error {
	cl, err := s.ClientRepo.Get(ctx, id)
	if err != nil {
		return err
	}
	cl.AutodebitEnabled = false
	return s.ClientRepo.Update(ctx, cl)
}

func (s *clientService) CreditBalance(ctx context.Context, id string) (decimal.Decimal, error) {
	txns, err := s.TransactionRepo.ListWithCredit(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	balance := decimal.Zero
	for _, txn := range txns {
		balance = balance.Add(txn.UnappliedAmount())
	}
	return balance, nil
}
