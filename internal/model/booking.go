package model

import "time"

// PaymentStatus enumerates the payment lifecycle of a booking.  The only
// transition this service ever applies is PENDING → PAID.  EXPIRED and
// CANCELLED are written by the external deadline sweep; a booking found in
// either state is treated as immutable here.
const (
	PaymentPending   = "PENDING"
	PaymentPaid      = "PAID"
	PaymentExpired   = "EXPIRED"
	PaymentCancelled = "CANCELLED"
)

// Booking represents a row in the bookings table.  Rows are inserted by the
// checkout flow (an external collaborator); this service only reads them and
// flips payment_status from PENDING to PAID during reconciliation.
//
// Fields:
//  ID                – booking identifier, the "BOOK..." token embedded in
//                      the bank transfer description.
//  ShowtimeID        – showtime the seats belong to.
//  Seats             – comma separated seat labels as stored (e.g. "A1,A2").
//  SeatTotalPrice    – price of the seats alone, smallest currency unit.
//  ComboTotalPrice   – price of food combos, smallest currency unit.
//  TotalPrice        – amount the gateway is expected to notify.
//  PaymentStatus     – PENDING, PAID, EXPIRED or CANCELLED.
//  BookingTime       – when the booking was created.
//  PaymentDeadline   – when the external sweep may expire it.
//  BankAccountName   – transfer destination shown to the customer.
//  BankAccountNumber – transfer destination account number.
//  BankBIN           – bank identification number of the destination.
//  TransactionID     – gateway reference filled in on payment.
//  OrderCode         – gateway order code filled in on payment (or at
//                      creation when the checkout pre-registers the order).
//  PaymentTime       – when the payment was applied.
type Booking struct {
	ID                string     // bookings.id
	ShowtimeID        uint64     // bookings.showtime_id
	Seats             string     // bookings.seats
	SeatTotalPrice    int64      // bookings.seat_total_price
	ComboTotalPrice   int64      // bookings.combo_total_price
	TotalPrice        int64      // bookings.total_price
	PaymentStatus     string     // bookings.payment_status
	BookingTime       time.Time  // bookings.booking_time
	PaymentDeadline   time.Time  // bookings.payment_deadline
	BankAccountName   string     // bookings.bank_account_name
	BankAccountNumber string     // bookings.bank_account_number
	BankBIN           string     // bookings.bank_bin
	TransactionID     *string    // bookings.payment_transaction_id (nullable)
	OrderCode         *int64     // bookings.order_code (nullable)
	PaymentTime       *time.Time // bookings.payment_time (nullable)
}

// Terminal reports whether the booking can no longer change state.  PAID,
// EXPIRED and CANCELLED are all terminal; only PENDING accepts a transition.
func (b *Booking) Terminal() bool {
	return b.PaymentStatus != PaymentPending
}
