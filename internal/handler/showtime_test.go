package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-live/internal/handler"
	"github.com/iliyamo/cinema-live/internal/model"
	"github.com/iliyamo/cinema-live/internal/service"
)

// stubLeaseStore serves a canned snapshot; mutations are not exercised here.
type stubLeaseStore struct {
	snapshot []model.SeatHold
	err      error
}

func (s *stubLeaseStore) Acquire(context.Context, uint64, string, string) error { return nil }
func (s *stubLeaseStore) Release(context.Context, uint64, string, string) (bool, error) {
	return false, nil
}
func (s *stubLeaseStore) Clear(context.Context, uint64, []string) error { return nil }
func (s *stubLeaseStore) Snapshot(context.Context, uint64) ([]model.SeatHold, error) {
	return s.snapshot, s.err
}
func (s *stubLeaseStore) ReleaseAllByHolder(context.Context, uint64, string) ([]string, error) {
	return nil, nil
}

func getHeldSeats(t *testing.T, h *handler.ShowtimeHandler, id string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/showtimes/"+id+"/held-seats", nil)
	rr := httptest.NewRecorder()
	c := e.NewContext(req, rr)
	c.SetParamNames("id")
	c.SetParamValues(id)
	require.NoError(t, h.HeldSeats(c))
	return rr
}

func TestHeldSeatsReturnsSnapshot(t *testing.T) {
	store := &stubLeaseStore{snapshot: []model.SeatHold{
		{SeatNumber: "A1", HolderID: "alice"},
		{SeatNumber: "B3", HolderID: "bob"},
	}}
	h := handler.NewShowtimeHandler(service.NewSeatLockManager(store, noopBroadcaster{}))

	rr := getHeldSeats(t, h, "42")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Seats []model.SeatHold `json:"seats"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, store.snapshot, resp.Seats)
}

func TestHeldSeatsRejectsBadShowtimeID(t *testing.T) {
	h := handler.NewShowtimeHandler(service.NewSeatLockManager(&stubLeaseStore{}, noopBroadcaster{}))

	for _, id := range []string{"abc", "0", "-1", ""} {
		rr := getHeldSeats(t, h, id)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "id=%q", id)
	}
}

func TestHeldSeatsStoreFaultAnswers503(t *testing.T) {
	h := handler.NewShowtimeHandler(service.NewSeatLockManager(
		&stubLeaseStore{err: assert.AnError}, noopBroadcaster{}))

	rr := getHeldSeats(t, h, "42")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
