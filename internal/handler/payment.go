package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-live/internal/model"
	"github.com/iliyamo/cinema-live/internal/repository"
	"github.com/iliyamo/cinema-live/internal/service"
)

// PaymentHandler exposes the payment gateway boundary: the inbound webhook
// and the synchronous status query clients poll when they miss the room
// broadcast.
type PaymentHandler struct {
	Reconciler *service.PaymentReconciler // webhook pipeline
	Bookings   *service.BookingService    // status lookups
}

// NewPaymentHandler constructs a PaymentHandler. Both dependencies must be
// non-nil.
func NewPaymentHandler(reconciler *service.PaymentReconciler, bookings *service.BookingService) *PaymentHandler {
	if reconciler == nil || bookings == nil {
		panic("nil dependency passed to NewPaymentHandler")
	}
	return &PaymentHandler{Reconciler: reconciler, Bookings: bookings}
}

// Webhook handles POST /v1/payment/webhook. Per gateway semantics the
// response is 200 {success:true} for everything the pipeline decided to
// acknowledge — including business-rejected events — because anything else
// triggers a redelivery storm. The two exceptions: a bad signature answers
// 401 and an internal fault answers 500.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	var hook model.PaymentWebhook
	if err := c.Bind(&hook); err != nil {
		// Undecodable body cannot be signature-checked; treat as unauthenticated.
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid payload"})
	}

	res, err := h.Reconciler.Process(c.Request().Context(), hook)
	if err != nil {
		c.Logger().Errorf("payment webhook: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	switch res.Status {
	case service.StatusBadSignature:
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid signature"})
	case service.StatusApplied:
		c.Logger().Infof("payment webhook: applied to booking %s", res.Booking.ID)
	default:
		c.Logger().Infof("payment webhook: acknowledged without effect (%s)", res.Reason)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Status handles GET /v1/payment/status/:bookingId, the pull-based fallback
// for clients that never receive the room broadcast. Returns 404 for an
// unknown booking.
func (h *PaymentHandler) Status(c echo.Context) error {
	bookingID := c.Param("bookingId")
	if bookingID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing booking id"})
	}
	booking, err := h.Bookings.GetStatus(c.Request().Context(), bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	resp := echo.Map{
		"bookingId":     booking.ID,
		"paymentStatus": booking.PaymentStatus,
		"paidAmount":    nil,
		"paidAt":        nil,
		"transactionId": nil,
	}
	if booking.PaymentStatus == model.PaymentPaid {
		resp["paidAmount"] = booking.TotalPrice
		if booking.PaymentTime != nil {
			resp["paidAt"] = booking.PaymentTime.UTC().Format(time.RFC3339)
		}
		if booking.TransactionID != nil {
			resp["transactionId"] = *booking.TransactionID
		}
	}
	return c.JSON(http.StatusOK, resp)
}
