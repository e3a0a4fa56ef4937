package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/cinema-live/internal/model"
	"github.com/iliyamo/cinema-live/internal/queue"
	"github.com/iliyamo/cinema-live/internal/repository"
)

// fakeLeaseStore implements service.LeaseStore in memory with the same
// semantics the Redis scripts provide: absent-or-owned acquisition,
// owner-checked release, unconditional clear. A mutex stands in for the
// store's single-threaded script execution.
type fakeLeaseStore struct {
	mu    sync.Mutex
	holds map[string]string // "showtime/seat" -> holder
	err   error             // when set, every operation fails with it
}

func newFakeLeaseStore() *fakeLeaseStore {
	return &fakeLeaseStore{holds: make(map[string]string)}
}

func leaseKey(showtimeID uint64, seat string) string {
	return fmt.Sprintf("%d/%s", showtimeID, seat)
}

func (f *fakeLeaseStore) Acquire(_ context.Context, showtimeID uint64, seat, holderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	key := leaseKey(showtimeID, seat)
	if cur, ok := f.holds[key]; ok && cur != holderID {
		return repository.ErrSeatTaken
	}
	f.holds[key] = holderID
	return nil
}

func (f *fakeLeaseStore) Release(_ context.Context, showtimeID uint64, seat, holderID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	key := leaseKey(showtimeID, seat)
	if f.holds[key] != holderID {
		return false, nil
	}
	delete(f.holds, key)
	return true, nil
}

func (f *fakeLeaseStore) Clear(_ context.Context, showtimeID uint64, seats []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	for _, seat := range seats {
		delete(f.holds, leaseKey(showtimeID, seat))
	}
	return nil
}

func (f *fakeLeaseStore) Snapshot(_ context.Context, showtimeID uint64) ([]model.SeatHold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	prefix := fmt.Sprintf("%d/", showtimeID)
	var holds []model.SeatHold
	for key, holder := range f.holds {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			holds = append(holds, model.SeatHold{SeatNumber: key[len(prefix):], HolderID: holder})
		}
	}
	sort.Slice(holds, func(i, j int) bool { return holds[i].SeatNumber < holds[j].SeatNumber })
	return holds, nil
}

func (f *fakeLeaseStore) ReleaseAllByHolder(_ context.Context, showtimeID uint64, holderID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	prefix := fmt.Sprintf("%d/", showtimeID)
	var released []string
	for key, holder := range f.holds {
		if holder == holderID && len(key) > len(prefix) && key[:len(prefix)] == prefix {
			released = append(released, key[len(prefix):])
			delete(f.holds, key)
		}
	}
	sort.Strings(released)
	return released, nil
}

// holder reports the current owner of a seat, "" if unheld.
func (f *fakeLeaseStore) holder(showtimeID uint64, seat string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.holds[leaseKey(showtimeID, seat)]
}

// publishedEvent is one Publish call a fakeBroadcaster recorded.
type publishedEvent struct {
	Room    string
	Event   string
	Payload interface{}
}

// fakeBroadcaster records every published event in emission order.
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakeBroadcaster) Publish(room, event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{Room: room, Event: event, Payload: payload})
}

func (f *fakeBroadcaster) all() []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]publishedEvent, len(f.events))
	copy(out, f.events)
	return out
}

func (f *fakeBroadcaster) byEvent(event string) []publishedEvent {
	var out []publishedEvent
	for _, ev := range f.all() {
		if ev.Event == event {
			out = append(out, ev)
		}
	}
	return out
}

// fakeBookingStore implements service.BookingStore over a map, with the
// conditional MarkPaid the real repository performs in SQL.
type fakeBookingStore struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
}

func newFakeBookingStore(bookings ...*model.Booking) *fakeBookingStore {
	s := &fakeBookingStore{bookings: make(map[string]*model.Booking)}
	for _, b := range bookings {
		cp := *b
		s.bookings[b.ID] = &cp
	}
	return s
}

func (s *fakeBookingStore) GetByID(_ context.Context, id string) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *fakeBookingStore) GetByOrderCode(_ context.Context, orderCode int64) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.OrderCode != nil && *b.OrderCode == orderCode {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

func (s *fakeBookingStore) MarkPaid(_ context.Context, id, transactionID string, orderCode int64, paidAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.PaymentStatus != model.PaymentPending {
		return false, nil
	}
	b.PaymentStatus = model.PaymentPaid
	b.TransactionID = &transactionID
	b.OrderCode = &orderCode
	t := paidAt
	b.PaymentTime = &t
	return true, nil
}

// fakePublisher records broker events the reconciler emits.
type fakePublisher struct {
	mu     sync.Mutex
	events []queue.PaymentConfirmedEvent
	err    error
}

func (p *fakePublisher) PublishPaymentConfirmed(_ context.Context, ev queue.PaymentConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}
