// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and services to distinguish between different failure
// scenarios. For example, ErrSeatTaken indicates that a seat lease is
// owned by another holder, while ErrBookingNotFound signals that a
// booking lookup matched no row.
package repository

import "errors"

// ErrSeatTaken is returned when a lease acquisition fails because a live
// lease owned by a different holder already exists. Handlers translate
// this into a hold-failed event for the requesting client only.
var ErrSeatTaken = errors.New("seat taken")

// ErrBookingNotFound is returned when a booking lookup by ID or order
// code matches no row. The payment reconciler treats this as a
// resolution failure and acknowledges the gateway without side effects.
var ErrBookingNotFound = errors.New("booking not found")
