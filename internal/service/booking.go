package service

import (
	"context"
	"time"

	"github.com/iliyamo/cinema-live/internal/model"
)

// BookingStore is the slice of the Catalog Store this service needs: two
// lookups and the conditional PENDING → PAID update.
type BookingStore interface {
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetByOrderCode(ctx context.Context, orderCode int64) (*model.Booking, error)
	MarkPaid(ctx context.Context, id, transactionID string, orderCode int64, paidAt time.Time) (bool, error)
}

// PaymentRecord carries the gateway facts applied during a PENDING → PAID
// transition.
type PaymentRecord struct {
	TransactionID string
	OrderCode     int64
	PaidAt        time.Time
}

// PaymentOutcome reports what MarkPaid did. PriorStatus is the status before
// the call, Booking the state after it. Transitioned is true only for the
// call that actually performed the update; a redelivered notification gets
// the same successful outcome with Transitioned=false so the caller knows
// not to notify again.
type PaymentOutcome struct {
	Booking      *model.Booking
	PriorStatus  string
	Transitioned bool
}

// BookingService is the authoritative state machine for a booking's payment
// lifecycle. Creation and deadline expiry belong to external collaborators;
// the only transition applied here is PENDING → PAID, and any terminal
// state found in the store is immutable.
type BookingService struct {
	bookings BookingStore
}

// NewBookingService constructs a BookingService over the given store.
func NewBookingService(bookings BookingStore) *BookingService {
	if bookings == nil {
		panic("nil store passed to NewBookingService")
	}
	return &BookingService{bookings: bookings}
}

// MarkPaid applies the payment to the booking. If the booking is already
// PAID the call succeeds without writing: duplicate notifications must be
// no-ops, not errors. If the booking sits in another terminal state the
// call also returns without writing, reporting that state as prior. The
// write itself is a single conditional update keyed on PENDING, so two
// concurrent duplicates resolve to exactly one transition even across
// server instances.
func (s *BookingService) MarkPaid(ctx context.Context, bookingID string, rec PaymentRecord) (*PaymentOutcome, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	prior := booking.PaymentStatus
	if booking.Terminal() {
		return &PaymentOutcome{Booking: booking, PriorStatus: prior, Transitioned: false}, nil
	}
	transitioned, err := s.bookings.MarkPaid(ctx, bookingID, rec.TransactionID, rec.OrderCode, rec.PaidAt)
	if err != nil {
		return nil, err
	}
	// Reload so the outcome reflects the row a concurrent duplicate may
	// have written first.
	booking, err = s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return &PaymentOutcome{Booking: booking, PriorStatus: prior, Transitioned: transitioned}, nil
}

// GetStatus returns the booking, for the polling fallback and the booking
// room's join-time replay.
func (s *BookingService) GetStatus(ctx context.Context, bookingID string) (*model.Booking, error) {
	return s.bookings.GetByID(ctx, bookingID)
}

// GetByOrderCode resolves a booking by the gateway order code, the
// reconciler's fallback when the transfer description carries no token.
func (s *BookingService) GetByOrderCode(ctx context.Context, orderCode int64) (*model.Booking, error) {
	return s.bookings.GetByOrderCode(ctx, orderCode)
}
