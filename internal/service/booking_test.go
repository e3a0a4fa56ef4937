package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-live/internal/model"
	"github.com/iliyamo/cinema-live/internal/repository"
	"github.com/iliyamo/cinema-live/internal/service"
)

func pendingBooking(id string, total int64) *model.Booking {
	return &model.Booking{
		ID:            id,
		ShowtimeID:    42,
		Seats:         "A1,A2",
		TotalPrice:    total,
		PaymentStatus: model.PaymentPending,
	}
}

func TestMarkPaidTransitionsPending(t *testing.T) {
	store := newFakeBookingStore(pendingBooking("BOOK1734516223841", 150000))
	svc := service.NewBookingService(store)

	paidAt := time.Date(2025, 6, 18, 10, 30, 0, 0, time.UTC)
	outcome, err := svc.MarkPaid(context.Background(), "BOOK1734516223841", service.PaymentRecord{
		TransactionID: "FT25169123456789",
		OrderCode:     1734516223841,
		PaidAt:        paidAt,
	})
	require.NoError(t, err)

	assert.True(t, outcome.Transitioned)
	assert.Equal(t, model.PaymentPending, outcome.PriorStatus)
	assert.Equal(t, model.PaymentPaid, outcome.Booking.PaymentStatus)
	require.NotNil(t, outcome.Booking.TransactionID)
	assert.Equal(t, "FT25169123456789", *outcome.Booking.TransactionID)
	require.NotNil(t, outcome.Booking.OrderCode)
	assert.Equal(t, int64(1734516223841), *outcome.Booking.OrderCode)
	require.NotNil(t, outcome.Booking.PaymentTime)
	assert.Equal(t, paidAt, *outcome.Booking.PaymentTime)
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	store := newFakeBookingStore(pendingBooking("BOOK1734516223841", 150000))
	svc := service.NewBookingService(store)

	rec := service.PaymentRecord{TransactionID: "FT1", OrderCode: 1, PaidAt: time.Now().UTC()}
	first, err := svc.MarkPaid(context.Background(), "BOOK1734516223841", rec)
	require.NoError(t, err)
	require.True(t, first.Transitioned)

	// Redelivery succeeds without writing and keeps the original facts.
	second, err := svc.MarkPaid(context.Background(), "BOOK1734516223841", service.PaymentRecord{
		TransactionID: "FT2", OrderCode: 2, PaidAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.False(t, second.Transitioned)
	assert.Equal(t, model.PaymentPaid, second.PriorStatus)
	assert.Equal(t, "FT1", *second.Booking.TransactionID)
	assert.Equal(t, int64(1), *second.Booking.OrderCode)
}

func TestMarkPaidLeavesTerminalStatesUntouched(t *testing.T) {
	for _, status := range []string{model.PaymentExpired, model.PaymentCancelled} {
		t.Run(status, func(t *testing.T) {
			b := pendingBooking("BOOK1734516223841", 150000)
			b.PaymentStatus = status
			svc := service.NewBookingService(newFakeBookingStore(b))

			outcome, err := svc.MarkPaid(context.Background(), b.ID, service.PaymentRecord{
				TransactionID: "FT1", OrderCode: 1, PaidAt: time.Now().UTC(),
			})
			require.NoError(t, err)
			assert.False(t, outcome.Transitioned)
			assert.Equal(t, status, outcome.PriorStatus)
			assert.Equal(t, status, outcome.Booking.PaymentStatus)
			assert.Nil(t, outcome.Booking.TransactionID)
		})
	}
}

func TestMarkPaidUnknownBooking(t *testing.T) {
	svc := service.NewBookingService(newFakeBookingStore())

	_, err := svc.MarkPaid(context.Background(), "BOOK0000000000000", service.PaymentRecord{})
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)
}

func TestGetByOrderCode(t *testing.T) {
	b := pendingBooking("BOOK1734516223841", 150000)
	code := int64(1734516223841)
	b.OrderCode = &code
	svc := service.NewBookingService(newFakeBookingStore(b))

	got, err := svc.GetByOrderCode(context.Background(), code)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = svc.GetByOrderCode(context.Background(), 999)
	assert.ErrorIs(t, err, repository.ErrBookingNotFound)
}
