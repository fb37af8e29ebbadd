package booking

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a booking error for the API boundary.
type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindValidationFailed Kind = "validation_failed"
	KindPolicyDenied     Kind = "policy_denied"
	KindPaymentGateway   Kind = "payment_gateway_error"
	KindInternal         Kind = "internal"
)

// Stable error codes.
const (
	CodeUserNotFound       = "user_not_found"
	CodeVendorNotFound     = "vendor_not_found"
	CodePackageNotFound    = "package_not_found"
	CodeRequestNotFound    = "booking_request_not_found"
	CodeBookingNotFound    = "booking_not_found"
	CodeDuplicateRequest   = "duplicate_request"
	CodeDatesUnavailable   = "dates_unavailable"
	CodeAlreadyProcessed   = "already_processed"
	CodeConcurrentUpdate   = "concurrent_update"
	CodeInvalidInput       = "invalid_input"
	CodePriceMismatch      = "price_mismatch"
	CodeAmountMismatch     = "amount_mismatch"
	CodeLeadTime           = "insufficient_lead_time"
	CodeNotRefundable      = "not_refundable"
	CodeFinalPaymentLate   = "final_payment_overdue"
	CodeAdvanceLate        = "advance_payment_overdue"
	CodeAlreadyRefunded    = "already_refunded"
	CodeGatewayUnavailable = "gateway_unavailable"
	CodeGatewayRejected    = "gateway_rejected"
	CodePaymentIncomplete  = "payment_incomplete"
	CodeBusy               = "booking_busy"
	CodeInternal           = "internal_error"
)

// Error is the single error type returned by the booking engine.
type Error struct {
	Kind      Kind
	Code      string
	Message   string
	Details   []string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, ", ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func notFound(code, msg string) *Error { return newError(KindNotFound, code, msg) }
func conflict(code, msg string) *Error { return newError(KindConflict, code, msg) }
func invalid(code, msg string) *Error  { return newError(KindValidationFailed, code, msg) }
func denied(code, msg string) *Error   { return newError(KindPolicyDenied, code, msg) }

func internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: msg, Err: err}
}

func datesUnavailable(dates []string) *Error {
	return &Error{
		Kind:    KindConflict,
		Code:    CodeDatesUnavailable,
		Message: "the following dates are unavailable: " + strings.Join(dates, ", "),
		Details: dates,
	}
}

// GatewayError is returned by PaymentGateway implementations. Terminal errors
// such as an already refunded charge carry Retryable=false.
type GatewayError struct {
	Code      string
	Type      string
	Message   string
	Retryable bool
	Err       error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment gateway %s/%s: %s: %v", e.Type, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("payment gateway %s/%s: %s", e.Type, e.Code, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// GatewayCodeAlreadyRefunded is the code gateways report for a charge that
// has already been refunded.
const GatewayCodeAlreadyRefunded = "charge_already_refunded"

// fromGateway lifts a gateway failure into the booking taxonomy.
func fromGateway(err error) *Error {
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		return &Error{
			Kind:      KindPaymentGateway,
			Code:      CodeGatewayUnavailable,
			Message:   "payment provider unavailable, try again later",
			Retryable: true,
			Err:       err,
		}
	}
	switch {
	case gwErr.Code == GatewayCodeAlreadyRefunded:
		return &Error{
			Kind:    KindPaymentGateway,
			Code:    CodeAlreadyRefunded,
			Message: "this payment has already been refunded",
			Err:     err,
		}
	case gwErr.Retryable:
		return &Error{
			Kind:      KindPaymentGateway,
			Code:      CodeGatewayUnavailable,
			Message:   "payment provider unavailable, try again later",
			Retryable: true,
			Err:       err,
		}
	default:
		return &Error{
			Kind:    KindPaymentGateway,
			Code:    CodeGatewayRejected,
			Message: "payment provider rejected the request: " + gwErr.Message,
			Err:     err,
		}
	}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a booking error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// CodeOf returns the stable code of err, or CodeInternal.
func CodeOf(err error) string {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return CodeInternal
}
