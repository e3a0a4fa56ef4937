package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-live/internal/service"
)

// ShowtimeHandler exposes the HTTP snapshot fallback for clients whose
// socket dropped: the same payload a joining WebSocket client receives as
// initial-held-seats. The snapshot is the source of truth after any gap —
// leases that lapsed by TTL were never announced and only disappear here.
type ShowtimeHandler struct {
	Manager *service.SeatLockManager
}

// NewShowtimeHandler constructs a ShowtimeHandler.
func NewShowtimeHandler(manager *service.SeatLockManager) *ShowtimeHandler {
	if manager == nil {
		panic("nil manager passed to NewShowtimeHandler")
	}
	return &ShowtimeHandler{Manager: manager}
}

// HeldSeats handles GET /v1/showtimes/:id/held-seats. It returns the live
// (seatNumber, holderId) pairs of the showtime.
func (h *ShowtimeHandler) HeldSeats(c echo.Context) error {
	showtimeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || showtimeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid showtime id"})
	}
	holds, err := h.Manager.Snapshot(c.Request().Context(), showtimeID)
	if err != nil {
		c.Logger().Errorf("held seats snapshot: %v", err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "lease store unavailable"})
	}
	return c.JSON(http.StatusOK, echo.Map{"seats": holds})
}
