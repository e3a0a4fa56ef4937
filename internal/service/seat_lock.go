// Package service contains the three domain components of the subsystem:
// the seat lock manager, the booking lifecycle controller and the payment
// reconciler. Each receives its collaborators at construction time; no
// component reaches for late-bound globals.
package service

import (
	"context"

	"github.com/iliyamo/cinema-live/internal/model"
	"github.com/iliyamo/cinema-live/internal/realtime"
)

// LeaseStore is the contract the seat lock manager requires from the lease
// store. Every method must be atomic with respect to concurrent callers on
// other connections and other server instances; the Redis implementation
// in internal/repository satisfies this with server-side scripts.
type LeaseStore interface {
	Acquire(ctx context.Context, showtimeID uint64, seat, holderID string) error
	Release(ctx context.Context, showtimeID uint64, seat, holderID string) (bool, error)
	Clear(ctx context.Context, showtimeID uint64, seats []string) error
	Snapshot(ctx context.Context, showtimeID uint64) ([]model.SeatHold, error)
	ReleaseAllByHolder(ctx context.Context, showtimeID uint64, holderID string) ([]string, error)
}

// Broadcaster fans an event out to every subscriber of a room. Delivery is
// at-most-once and best-effort, so the interface returns nothing a caller
// could retry on.
type Broadcaster interface {
	Publish(room, event string, payload interface{})
}

// SeatLockManager owns the hold/release/confirm protocol for seats within
// one showtime. It decides what gets broadcast and when; the lease store
// decides who wins. Contention is never broadcast: the rejected client
// learns about it through the error, the room stays quiet.
type SeatLockManager struct {
	leases LeaseStore
	rooms  Broadcaster
}

// NewSeatLockManager constructs a SeatLockManager. Both dependencies must
// be non-nil.
func NewSeatLockManager(leases LeaseStore, rooms Broadcaster) *SeatLockManager {
	if leases == nil || rooms == nil {
		panic("nil dependency passed to NewSeatLockManager")
	}
	return &SeatLockManager{leases: leases, rooms: rooms}
}

// Hold acquires the lease for one seat with the fixed TTL. Acquisition is
// one atomic check-and-set at the store; holding a seat you already hold
// succeeds again and refreshes the TTL. On success the new lease state is
// broadcast to the showtime room. On contention the store's ErrSeatTaken
// comes back unchanged and nothing is broadcast; on any other error the
// operation fails closed.
func (m *SeatLockManager) Hold(ctx context.Context, showtimeID uint64, seat, holderID string) error {
	if err := m.leases.Acquire(ctx, showtimeID, seat, holderID); err != nil {
		return err
	}
	m.rooms.Publish(realtime.ShowtimeRoom(showtimeID), realtime.EventSeatHeld,
		realtime.SeatHeld{SeatNumber: seat, HolderID: holderID})
	return nil
}

// Release removes the caller's lease on a seat. Releasing a seat held by
// another party, or not held at all, is a silent no-op: the seat stays with
// its owner and no event is emitted.
func (m *SeatLockManager) Release(ctx context.Context, showtimeID uint64, seat, holderID string) error {
	released, err := m.leases.Release(ctx, showtimeID, seat, holderID)
	if err != nil {
		return err
	}
	if released {
		m.rooms.Publish(realtime.ShowtimeRoom(showtimeID), realtime.EventSeatReleased,
			realtime.SeatReleased{SeatNumber: seat})
	}
	return nil
}

// Confirm is called once a booking is finalized. Payment has superseded the
// holds, so the leases are cleared unconditionally and the whole batch is
// announced as booked; clients render booked seats as permanently
// unavailable regardless of lease state.
func (m *SeatLockManager) Confirm(ctx context.Context, showtimeID uint64, seats []string) error {
	if len(seats) == 0 {
		return nil
	}
	if err := m.leases.Clear(ctx, showtimeID, seats); err != nil {
		return err
	}
	m.rooms.Publish(realtime.ShowtimeRoom(showtimeID), realtime.EventSeatsBooked,
		realtime.SeatsBooked{SeatNumbers: seats})
	return nil
}

// Snapshot returns the live holds of a showtime so a joining client can
// render in-progress holds made before it connected. The snapshot, not any
// missed event, is the source of truth after a join: leases that lapsed by
// TTL were never announced and only disappear from here.
func (m *SeatLockManager) Snapshot(ctx context.Context, showtimeID uint64) ([]model.SeatHold, error) {
	return m.leases.Snapshot(ctx, showtimeID)
}

// ReleaseAll releases every seat of the showtime held by holderID and
// broadcasts the result as a single batched event. Invoked when the
// holder's connection goes away; disconnect is the only cancellation
// signal in the protocol. No event is emitted when nothing was held.
func (m *SeatLockManager) ReleaseAll(ctx context.Context, showtimeID uint64, holderID string) ([]string, error) {
	released, err := m.leases.ReleaseAllByHolder(ctx, showtimeID, holderID)
	if err != nil {
		return nil, err
	}
	if len(released) > 0 {
		m.rooms.Publish(realtime.ShowtimeRoom(showtimeID), realtime.EventSeatsReleasedBatch,
			realtime.SeatsReleasedBatch{SeatNumbers: released})
	}
	return released, nil
}
