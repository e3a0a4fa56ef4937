// Package realtime implements the room-scoped broadcast channel that fans
// seat-state and payment-state changes out to connected clients.  Delivery
// is at-most-once and best-effort: there is no durable queue and no replay,
// a subscriber that is not connected at emission time simply misses the
// event and recovers through the pull-based snapshot/status endpoints.
package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/iliyamo/cinema-live/internal/model"
)

// Event names on the seat room.  Inbound message types reuse the same
// vocabulary (join-showtime, hold-seat, release-seat, book-seats).
const (
	EventInitialHeldSeats   = "initial-held-seats"
	EventSeatHeld           = "seat-held"
	EventHoldFailed         = "hold-failed"
	EventSeatReleased       = "seat-released"
	EventSeatsBooked        = "seats-booked"
	EventSeatsReleasedBatch = "seats-released-batch"
)

// EventPaymentStatus is the single event of a booking room.
const EventPaymentStatus = "payment:status"

// ShowtimeRoom names the room carrying seat events of one showtime.
func ShowtimeRoom(showtimeID uint64) string {
	return fmt.Sprintf("showtime:%d", showtimeID)
}

// BookingRoom names the room carrying payment events of one booking.
func BookingRoom(bookingID string) string {
	return "booking:" + bookingID
}

// InitialHeldSeats is sent to a client right after it joins a showtime room
// so it can render holds made before it connected.
type InitialHeldSeats struct {
	Seats []model.SeatHold `json:"seats"`
}

// SeatHeld announces a successful hold to the whole showtime room,
// including the holder itself.
type SeatHeld struct {
	SeatNumber string `json:"seatNumber"`
	HolderID   string `json:"holderId"`
}

// HoldFailed is sent to the requesting client only; contention is not the
// room's business.
type HoldFailed struct {
	SeatNumber string `json:"seatNumber"`
	Reason     string `json:"reason"`
}

// SeatReleased announces an explicit release.  TTL expiry is deliberately
// NOT announced: the store's TTL is the only authority on expiry and
// clients reconcile through periodic snapshot refreshes instead.
type SeatReleased struct {
	SeatNumber string `json:"seatNumber"`
}

// SeatsBooked marks a batch of seats permanently unavailable once a booking
// is finalized, regardless of any lease state a client still renders.
type SeatsBooked struct {
	SeatNumbers []string `json:"seatNumbers"`
}

// SeatsReleasedBatch carries every seat a disconnecting holder gave up, as
// one event to bound notification volume.
type SeatsReleasedBatch struct {
	SeatNumbers []string `json:"seatNumbers"`
}

// PaymentStatus reports the outcome of a reconciled payment into the
// booking's room.  Status is "SUCCESS" for an applied transition.
type PaymentStatus struct {
	BookingID     string `json:"bookingId"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	TransactionID string `json:"transactionId"`
	OrderCode     int64  `json:"orderCode"`
	Timestamp     string `json:"timestamp"`
}

// Envelope is the wire form of one room event: what every subscriber
// receives and what the cross-instance bridge relays.  Origin identifies
// the emitting server instance so the bridge can skip its own relays.
type Envelope struct {
	Room   string          `json:"room"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
	Origin string          `json:"origin,omitempty"`
}
