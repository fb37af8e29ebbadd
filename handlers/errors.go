package handlers

import (
	"errors"
	"net/http"

	"lenslink/services/booking"
	"lenslink/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps a booking error to its HTTP status.
func statusFor(err *booking.Error) int {
	switch err.Kind {
	case booking.KindNotFound:
		return http.StatusNotFound
	case booking.KindConflict:
		return http.StatusConflict
	case booking.KindValidationFailed:
		return http.StatusUnprocessableEntity
	case booking.KindPolicyDenied:
		return http.StatusForbidden
	case booking.KindPaymentGateway:
		switch {
		case err.Code == booking.CodeAlreadyRefunded:
			return http.StatusConflict
		case err.Retryable:
			return http.StatusServiceUnavailable
		default:
			return http.StatusBadGateway
		}
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err in the standard error envelope. Internal details
// are logged, never returned.
func respondError(c *gin.Context, err error) {
	logger := getLogger(c)

	var be *booking.Error
	if !errors.As(err, &be) || be.Kind == booking.KindInternal {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, utils.ErrorResponse{
			Message: "Something went wrong on our side. Please try again.",
			Code:    booking.CodeInternal,
		})
		return
	}

	status := statusFor(be)
	if status >= http.StatusInternalServerError {
		logger.Warn("payment gateway failure", zap.String("code", be.Code), zap.Error(be))
	} else {
		logger.Debug("request rejected", zap.String("code", be.Code), zap.String("message", be.Message))
	}
	if be.Retryable {
		c.Header("Retry-After", "5")
	}
	c.AbortWithStatusJSON(status, utils.ErrorResponse{
		Message: be.Message,
		Code:    be.Code,
		Details: be.Details,
	})
}

func badRequest(c *gin.Context, err error) {
	utils.JSONError(c, http.StatusBadRequest, booking.CodeInvalidInput, "invalid request body", err.Error())
}
