package handler

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-live/internal/model"
	"github.com/iliyamo/cinema-live/internal/realtime"
	"github.com/iliyamo/cinema-live/internal/repository"
	"github.com/iliyamo/cinema-live/internal/service"
)

// PaymentSocketHandler serves the payment-status WebSocket. A connection
// tracks zero or one booking room at a time and receives payment:status
// events as the reconciler emits them. Because delivery is at-most-once,
// joining an already-PAID booking immediately replays the stored outcome
// so a late client does not wait forever for an event that already fired.
type PaymentSocketHandler struct {
	Bookings *service.BookingService
	Hub      *realtime.Hub
}

// NewPaymentSocketHandler constructs a PaymentSocketHandler.
func NewPaymentSocketHandler(bookings *service.BookingService, hub *realtime.Hub) *PaymentSocketHandler {
	if bookings == nil || hub == nil {
		panic("nil dependency passed to NewPaymentSocketHandler")
	}
	return &PaymentSocketHandler{Bookings: bookings, Hub: hub}
}

// Serve handles GET /ws/payment.
func (h *PaymentSocketHandler) Serve(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	cl := newSocketClient(conn)
	go cl.writeLoop()

	var sub *realtime.Subscription
	defer func() {
		if sub != nil {
			sub.Close()
		}
		cl.close()
	}()

	cl.prepareRead()
	for {
		var msg inboundFrame
		if err := cl.conn.ReadJSON(&msg); err != nil {
			return nil
		}
		if msg.Type != "join-booking" || msg.BookingID == "" {
			c.Logger().Warnf("payment socket: unexpected message type %q", msg.Type)
			continue
		}
		if sub != nil {
			sub.Close()
		}
		sub = h.Hub.Subscribe(realtime.BookingRoom(msg.BookingID))
		go cl.pump(sub)
		h.replayIfPaid(c, cl, msg.BookingID)
	}
}

// replayIfPaid sends the synthetic current-status event on join when the
// booking already reached PAID before this client connected.
func (h *PaymentSocketHandler) replayIfPaid(c echo.Context, cl *socketClient, bookingID string) {
	booking, err := h.Bookings.GetStatus(c.Request().Context(), bookingID)
	if err != nil {
		if !errors.Is(err, repository.ErrBookingNotFound) {
			c.Logger().Errorf("payment socket: status of %s: %v", bookingID, err)
		}
		return
	}
	if booking.PaymentStatus != model.PaymentPaid {
		return
	}
	status := realtime.PaymentStatus{
		BookingID: booking.ID,
		Status:    "SUCCESS",
		Amount:    booking.TotalPrice,
	}
	if booking.TransactionID != nil {
		status.TransactionID = *booking.TransactionID
	}
	if booking.OrderCode != nil {
		status.OrderCode = *booking.OrderCode
	}
	if booking.PaymentTime != nil {
		status.Timestamp = booking.PaymentTime.UTC().Format(time.RFC3339)
	}
	cl.sendEvent(realtime.EventPaymentStatus, status)
}
