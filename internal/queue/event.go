// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair moving them.
package queue

// PaymentConfirmedEvent is published after a payment notification is
// reconciled and the booking transitions to PAID. It carries enough for
// downstream consumers (receipt logging, confirmation email/SMS) without
// querying the primary database.
type PaymentConfirmedEvent struct {
	BookingID     string `json:"booking_id"`
	ShowtimeID    uint64 `json:"showtime_id"`
	Seats         string `json:"seats"`
	Amount        int64  `json:"amount"`
	TransactionID string `json:"transaction_id"`
	OrderCode     int64  `json:"order_code"`
	ConfirmedAt   string `json:"confirmed_at"`
}
