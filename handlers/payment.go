package handlers

import (
	"errors"
	"io"
	"net/http"

	"lenslink/services/booking"
	"lenslink/services/payment"
	"lenslink/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBody = 64 << 10

// WebhookVerifier extracts a settled checkout session from a signed webhook.
type WebhookVerifier interface {
	CompletedSession(payload []byte, signature string) (sessionID string, ok bool, err error)
}

// PaymentHandler confirms payments reported by the gateway.
type PaymentHandler struct {
	svc     booking.BookingService
	webhook WebhookVerifier
}

func NewPaymentHandler(svc booking.BookingService, webhook WebhookVerifier) *PaymentHandler {
	return &PaymentHandler{svc: svc, webhook: webhook}
}

type confirmBody struct {
	SessionID string `json:"sessionId" binding:"required"`
}

// Confirm handles POST /api/payments/confirm after the checkout redirect.
func (h *PaymentHandler) Confirm(c *gin.Context) {
	var body confirmBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	b, err := h.svc.ConfirmCheckout(c.Request.Context(), body.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// Webhook handles POST /api/payments/webhook. Confirmation is idempotent, so
// a redelivered event settles to the same booking.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	logger := getLogger(c)
	if h.webhook == nil {
		utils.JSONError(c, http.StatusNotFound, "not_found", "webhooks are not enabled")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, err)
		return
	}
	sessionID, ok, err := h.webhook.CompletedSession(payload, c.GetHeader("Stripe-Signature"))
	if errors.Is(err, payment.ErrInvalidSignature) {
		utils.JSONError(c, http.StatusBadRequest, "invalid_signature", "webhook signature verification failed")
		return
	}
	if err != nil {
		logger.Error("webhook rejected", zap.Error(err))
		utils.JSONError(c, http.StatusBadRequest, booking.CodeInvalidInput, "unreadable webhook payload")
		return
	}
	if !ok {
		c.Status(http.StatusOK)
		return
	}

	b, err := h.svc.ConfirmCheckout(c.Request.Context(), sessionID)
	if err != nil {
		// Non-2xx makes the gateway redeliver; only transient failures deserve that.
		if booking.IsKind(err, booking.KindInternal) || isRetryable(err) || booking.CodeOf(err) == booking.CodeBusy {
			respondError(c, err)
			return
		}
		// The session is paid; anything but an unfinished payment leaves money
		// captured with no booking.
		logf := logger.Error
		if booking.CodeOf(err) == booking.CodePaymentIncomplete {
			logf = logger.Warn
		}
		logf("webhook payment not applied",
			zap.String("sessionId", sessionID),
			zap.String("code", booking.CodeOf(err)),
			zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true, "applied": false, "code": booking.CodeOf(err)})
		return
	}
	logger.Info("webhook payment applied", zap.String("sessionId", sessionID), zap.String("bookingId", b.BookingID))
	c.JSON(http.StatusOK, gin.H{"received": true, "applied": true})
}

func isRetryable(err error) bool {
	var be *booking.Error
	return errors.As(err, &be) && be.Retryable
}
