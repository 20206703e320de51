package notification

import (
	"context"

	"github.com/billforge/billforge/internal/logger"
)

// Template keys for client-facing notifications. Tags carry the
// merge-field values each template expects.
const (
	TemplateInvoiceDelivery      = "invoice_delivery"
	TemplateInvoiceDeliveryPaper = "invoice_delivery_paper"
	TemplatePaymentReceived      = "payment_received"
	TemplateAutodebitFailed      = "autodebit_failed"
	TemplateAutodebitDisabled    = "autodebit_disabled"
	TemplateLateFeeApplied       = "late_fee_applied"
	TemplateServiceSuspended     = "service_suspended"
	TemplateServiceUnsuspended   = "service_unsuspended"
	TemplateServiceCanceled      = "service_canceled"
	TemplateServiceActivated     = "service_activated"
	TemplateRenewalFailed        = "renewal_failed"
	TemplateQuotationDelivery    = "quotation_delivery"
	TemplateQuotationExpired     = "quotation_expired"
)

// Sender delivers a templated notification to a client. Implementations
// own channel selection (mail, in-app) and template rendering.
type Sender interface {
	Send(ctx context.Context, clientID, templateKey string, tags map[string]string) error
}

// LogSender writes notifications to the application log. It stands in
// where no mail backend is configured.
type LogSender struct {
	Logger *logger.Logger
}

func NewLogSender(log *logger.Logger) *LogSender {
	return &LogSender{Logger: log}
}

func (s *LogSender) Send(ctx context.Context, clientID, templateKey string, tags map[string]string) error {
	s.Logger.Infow("notification dispatched",
		"client_id", clientID,
		"template", templateKey,
		"tags", tags,
	)
	return nil
}
