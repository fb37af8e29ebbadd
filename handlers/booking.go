package handlers

import (
	"net/http"
	"strings"

	"lenslink/middleware"
	"lenslink/services/booking"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BookingHandler exposes the booking request and booking lifecycle.
type BookingHandler struct {
	svc booking.BookingService
}

func NewBookingHandler(svc booking.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

type createRequestBody struct {
	VendorID         string   `json:"vendorId" binding:"required"`
	Name             string   `json:"name" binding:"required"`
	Email            string   `json:"email" binding:"required"`
	Phone            string   `json:"phone"`
	Venue            string   `json:"venue" binding:"required"`
	ServiceType      string   `json:"serviceType" binding:"required"`
	PackageID        string   `json:"packageId" binding:"required"`
	CustomizationIDs []string `json:"customizationIds"`
	Message          string   `json:"message"`
	StartingDate     string   `json:"startingDate" binding:"required"`
	NumberOfDays     int      `json:"numberOfDays"`
	TotalPrice       int64    `json:"totalPrice"`
}

// CreateRequest handles POST /api/booking-requests.
func (h *BookingHandler) CreateRequest(c *gin.Context) {
	var body createRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	start, err := booking.ParseDate(body.StartingDate)
	if err != nil {
		validationFailed(c, "startingDate must be DD/MM/YYYY or YYYY-MM-DD")
		return
	}

	req, err := h.svc.CreateRequest(c.Request.Context(), booking.CreateRequestInput{
		UserID:           middleware.CallerID(c),
		VendorID:         body.VendorID,
		Name:             body.Name,
		Email:            body.Email,
		Phone:            body.Phone,
		Venue:            body.Venue,
		ServiceType:      body.ServiceType,
		PackageID:        body.PackageID,
		CustomizationIDs: body.CustomizationIDs,
		Message:          body.Message,
		StartingDate:     start,
		NumberOfDays:     body.NumberOfDays,
		TotalPrice:       body.TotalPrice,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("booking request created", zap.String("requestId", req.RequestID))
	c.JSON(http.StatusCreated, req)
}

// GetRequest handles GET /api/booking-requests/:id for either party.
func (h *BookingHandler) GetRequest(c *gin.Context) {
	req, err := h.svc.GetRequest(c.Request.Context(), c.Param("id"), caller(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// ListMyRequests handles GET /api/booking-requests.
func (h *BookingHandler) ListMyRequests(c *gin.Context) {
	reqs, err := h.svc.ListRequestsForUser(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

// ListVendorRequests handles GET /api/vendor/booking-requests.
func (h *BookingHandler) ListVendorRequests(c *gin.Context) {
	reqs, err := h.svc.ListRequestsForVendor(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

type respondBody struct {
	Action          string `json:"action" binding:"required"`
	RejectionReason string `json:"rejectionReason"`
}

// RespondToRequest handles PATCH /api/vendor/booking-requests/:id.
func (h *BookingHandler) RespondToRequest(c *gin.Context) {
	var body respondBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	action := booking.Action(strings.ToLower(strings.TrimSpace(body.Action)))
	if action != booking.ActionAccept && action != booking.ActionReject {
		validationFailed(c, "action must be accept or reject")
		return
	}

	req, err := h.svc.AcceptOrReject(c.Request.Context(), c.Param("id"), middleware.CallerID(c), action, body.RejectionReason)
	if err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("booking request processed",
		zap.String("requestId", req.RequestID),
		zap.String("state", string(req.State)))
	c.JSON(http.StatusOK, req)
}

// RevokeRequest handles DELETE /api/booking-requests/:id.
func (h *BookingHandler) RevokeRequest(c *gin.Context) {
	req, err := h.svc.Revoke(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// StartAdvanceCheckout handles POST /api/booking-requests/:id/checkout.
func (h *BookingHandler) StartAdvanceCheckout(c *gin.Context) {
	sess, err := h.svc.StartAdvanceCheckout(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// StartFinalCheckout handles POST /api/bookings/:id/checkout.
func (h *BookingHandler) StartFinalCheckout(c *gin.Context) {
	sess, err := h.svc.StartFinalCheckout(c.Request.Context(), c.Param("id"), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// GetBooking handles GET /api/bookings/:id for either party.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	b, err := h.svc.GetBooking(c.Request.Context(), c.Param("id"), caller(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ListMyBookings handles GET /api/bookings.
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	bs, err := h.svc.ListBookingsForUser(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bs})
}

// ListVendorBookings handles GET /api/vendor/bookings.
func (h *BookingHandler) ListVendorBookings(c *gin.Context) {
	bs, err := h.svc.ListBookingsForVendor(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bs})
}

type cancelBody struct {
	Reason string `json:"reason"`
}

// CancelBooking handles POST /api/bookings/:id/cancel.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	var body cancelBody
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
	}

	res, err := h.svc.Cancel(c.Request.Context(), c.Param("id"), middleware.CallerID(c), body.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("booking cancelled",
		zap.String("bookingId", res.Booking.BookingID),
		zap.Int64("userRefund", res.UserRefundAmount),
		zap.Int64("vendorFee", res.VendorFeeAmount))
	c.JSON(http.StatusOK, gin.H{
		"booking":          res.Booking,
		"refundPercentage": res.Decision.UserRefundPct,
		"refundAmount":     res.UserRefundAmount,
		"vendorFee":        res.VendorFeeAmount,
		"refundId":         res.RefundID,
		"reason":           res.Decision.Reason,
	})
}

func caller(c *gin.Context) booking.Caller {
	return booking.Caller{ID: middleware.CallerID(c), Role: middleware.CallerRole(c)}
}

func validationFailed(c *gin.Context, msg string) {
	respondError(c, &booking.Error{Kind: booking.KindValidationFailed, Code: booking.CodeInvalidInput, Message: msg})
}
