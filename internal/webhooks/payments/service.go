package paymentswebhook

import (
	"context"
	"strings"

	"github.com/clipboost/clipboost-backend/pkg/db/models"
	pkgerrors "github.com/clipboost/clipboost-backend/pkg/errors"
)

type purchaseSettler interface {
	ConfirmPurchase(ctx context.Context, referenceID string) (*models.TokenTransaction, error)
	CancelPendingPurchase(ctx context.Context, referenceID string) (*models.TokenTransaction, error)
}

// PaymentEvent is the settlement callback from the payment provider. The
// reference id is the one the purchase was opened with; the provider echoes
// it back on every lifecycle event.
type PaymentEvent struct {
	EventID string           `json:"event_id"`
	Type    string           `json:"type"`
	Data    PaymentEventData `json:"data"`
}

type PaymentEventData struct {
	ReferenceID string `json:"reference_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

type Service struct {
	tokens purchaseSettler
}

func NewService(tokens purchaseSettler) (*Service, error) {
	if tokens == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tokens service required")
	}
	return &Service{tokens: tokens}, nil
}

// HandleEvent settles or voids the pending purchase named by the event.
// Unknown event types are acknowledged without action so the provider stops
// retrying them.
func (s *Service) HandleEvent(ctx context.Context, event *PaymentEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment event required")
	}

	reference := strings.TrimSpace(event.Data.ReferenceID)

	switch strings.ToLower(event.Type) {
	case "payment.succeeded":
		if reference == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "reference id missing")
		}
		_, err := s.tokens.ConfirmPurchase(ctx, reference)
		return err
	case "payment.failed", "payment.canceled":
		if reference == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "reference id missing")
		}
		_, err := s.tokens.CancelPendingPurchase(ctx, reference)
		return err
	default:
		return nil
	}
}
