package payment

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

const (
	eventSessionCompleted      = "checkout.session.completed"
	eventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

// ErrInvalidSignature is returned for webhook payloads that fail verification.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// CompletedSession extracts the checkout session id from a verified webhook
// payload. ok is false for events that do not settle a payment.
func (g *StripeGateway) CompletedSession(payload []byte, signature string) (sessionID string, ok bool, err error) {
	if g.webhookSecret == "" {
		return "", false, fmt.Errorf("webhook secret is not configured")
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	switch string(event.Type) {
	case eventSessionCompleted, eventAsyncPaymentSucceeded:
	default:
		g.logger.Debug("ignoring stripe event", zap.String("type", string(event.Type)), zap.String("id", event.ID))
		return "", false, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return "", false, fmt.Errorf("decode checkout session: %w", err)
	}
	// Completed sessions with delayed methods are still unpaid; the async
	// success event follows.
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return "", false, nil
	}
	return sess.ID, true, nil
}
