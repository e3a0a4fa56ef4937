package model

// SeatHold is the live view of a seat lease as stored in Redis.  A hold
// grants its holder a temporary, renewable claim on a single seat of a
// showtime while the customer completes checkout.  Holds expire on their
// own via the key's TTL; nothing in this service polls for expirations.
//
// Fields:
//  SeatNumber – seat label within the showtime's screen (e.g. "A1").
//  HolderID   – identity of the connection/session owning the lease.
type SeatHold struct {
	SeatNumber string `json:"seatNumber"`
	HolderID   string `json:"holderId"`
}
