// Package payment implements the booking payment gateway on Stripe Checkout.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lenslink/models"
	"lenslink/services/booking"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

// Metadata keys attached to every checkout session and its payment intent.
const (
	MetaBookingID = "bookingId"
	MetaUserID    = "userId"
	MetaStage     = "stage"
)

// minorUnits is the number of minor currency units per unit. Booking amounts
// are whole units while Stripe charges in minor units.
const minorUnits = 100

// StripeConfig configures StripeGateway.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	Timeout       time.Duration
	// BackendURL overrides the Stripe API base URL.
	BackendURL string
}

// StripeGateway implements booking.PaymentGateway.
type StripeGateway struct {
	sc            *client.API
	webhookSecret string
	successURL    string
	cancelURL     string
	timeout       time.Duration
	logger        *zap.Logger
}

func NewStripeGateway(cfg StripeConfig, logger *zap.Logger) (*StripeGateway, error) {
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("stripe gateway: secret key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: cfg.Timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     logger.Named("stripe").Sugar(),
	}
	if cfg.BackendURL != "" {
		backendCfg.URL = stripe.String(cfg.BackendURL)
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	}

	return &StripeGateway{
		sc:            client.New(cfg.SecretKey, backends),
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		timeout:       cfg.Timeout,
		logger:        logger,
	}, nil
}

var _ booking.PaymentGateway = (*StripeGateway)(nil)

// CreateCheckoutSession opens a hosted checkout for one instalment.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutSession, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	meta := map[string]string{
		MetaBookingID: req.BookingID,
		MetaUserID:    req.UserID,
		MetaStage:     string(req.Stage),
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.successURL),
		CancelURL:         stripe.String(g.cancelURL),
		ClientReferenceID: stripe.String(req.BookingID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(req.Currency)),
				UnitAmount: stripe.Int64(req.Amount * minorUnits),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Description),
				},
			},
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: meta,
		},
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for k, v := range meta {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	// One open session per booking stage and amount.
	params.SetIdempotencyKey(fmt.Sprintf("checkout-%s-%s-%d", req.BookingID, req.Stage, req.Amount))

	sess, err := g.sc.CheckoutSessions.New(params)
	if err != nil {
		return nil, g.classify("create checkout session", err)
	}
	return &models.CheckoutSession{
		ID:        sess.ID,
		URL:       sess.URL,
		ExpiresAt: time.Unix(sess.ExpiresAt, 0).UTC(),
	}, nil
}

// RetrievePayment reads a checkout session back with its payment intent.
func (g *StripeGateway) RetrievePayment(ctx context.Context, sessionID string) (*models.PaymentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{}
	params.AddExpand("payment_intent")
	params.Context = ctx

	sess, err := g.sc.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return nil, g.classify("retrieve checkout session", err)
	}
	return resultFromSession(sess), nil
}

// Refund refunds amount of a captured payment. paymentID is a payment intent
// or charge id.
func (g *StripeGateway) Refund(ctx context.Context, paymentID string, amount int64, idempotencyKey string) (*models.Refund, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := &stripe.RefundParams{
		Amount: stripe.Int64(amount * minorUnits),
		Reason: stripe.String(string(stripe.RefundReasonRequestedByCustomer)),
	}
	if strings.HasPrefix(paymentID, "ch_") {
		params.Charge = stripe.String(paymentID)
	} else {
		params.PaymentIntent = stripe.String(paymentID)
	}
	params.Context = ctx
	if idempotencyKey != "" {
		params.SetIdempotencyKey(idempotencyKey)
	}

	r, err := g.sc.Refunds.New(params)
	if err != nil {
		return nil, g.classify("refund", err)
	}
	g.logger.Info("refund created",
		zap.String("refundId", r.ID),
		zap.String("paymentId", paymentID),
		zap.String("status", string(r.Status)),
		zap.Int64("amount", amount))

	return &models.Refund{ID: r.ID, Status: string(r.Status), Amount: r.Amount / minorUnits}, nil
}

func resultFromSession(sess *stripe.CheckoutSession) *models.PaymentResult {
	res := &models.PaymentResult{
		SessionID:  sess.ID,
		BookingID:  sess.Metadata[MetaBookingID],
		Stage:      models.PaymentStage(sess.Metadata[MetaStage]),
		AmountPaid: sess.AmountTotal / minorUnits,
		Currency:   strings.ToLower(string(sess.Currency)),
		Paid:       sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}
	if res.BookingID == "" {
		res.BookingID = sess.ClientReferenceID
	}
	if sess.PaymentIntent != nil {
		res.PaymentIntentID = sess.PaymentIntent.ID
	}
	return res
}

// classify turns a Stripe client error into a *booking.GatewayError. Network
// failures, timeouts, rate limits and 5xx responses are retryable.
func (g *StripeGateway) classify(op string, err error) error {
	gwErr := &booking.GatewayError{Err: err, Message: op + " failed"}

	var se *stripe.Error
	switch {
	case errors.As(err, &se):
		gwErr.Code = string(se.Code)
		gwErr.Type = string(se.Type)
		if se.Msg != "" {
			gwErr.Message = se.Msg
		}
		gwErr.Retryable = se.HTTPStatusCode >= 500 ||
			se.HTTPStatusCode == http.StatusTooManyRequests ||
			se.Type == stripe.ErrorTypeAPI
	case errors.Is(err, context.DeadlineExceeded):
		gwErr.Type = "timeout"
		gwErr.Retryable = true
	default:
		gwErr.Type = "network"
		gwErr.Retryable = !errors.Is(err, context.Canceled)
	}

	g.logger.Warn("stripe call failed",
		zap.String("op", op),
		zap.String("code", gwErr.Code),
		zap.String("type", gwErr.Type),
		zap.Bool("retryable", gwErr.Retryable),
		zap.Error(err))
	return gwErr
}
