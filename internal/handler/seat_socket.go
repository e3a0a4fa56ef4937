package handler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-live/internal/middleware"
	"github.com/iliyamo/cinema-live/internal/realtime"
	"github.com/iliyamo/cinema-live/internal/repository"
	"github.com/iliyamo/cinema-live/internal/service"
)

// SeatSocketHandler serves the seat-selection WebSocket. Each connection is
// one holder identity: it joins exactly one showtime room, negotiates seat
// holds through the lock manager, and on disconnect releases everything it
// still holds. All cross-client exclusion happens in the lease store; this
// handler keeps no shared state between connections.
type SeatSocketHandler struct {
	Manager *service.SeatLockManager
	Hub     *realtime.Hub
}

// NewSeatSocketHandler constructs a SeatSocketHandler.
func NewSeatSocketHandler(manager *service.SeatLockManager, hub *realtime.Hub) *SeatSocketHandler {
	if manager == nil || hub == nil {
		panic("nil dependency passed to NewSeatSocketHandler")
	}
	return &SeatSocketHandler{Manager: manager, Hub: hub}
}

// Serve handles GET /ws/seats. It upgrades the connection, assigns the
// holder identity, and runs the read loop until the client goes away.
func (h *SeatSocketHandler) Serve(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	cl := newSocketClient(conn)
	holder := holderIdentity(c)
	c.Logger().Infof("seat socket connected: holder=%s", holder)

	go cl.writeLoop()
	h.readLoop(c, cl, holder)
	return nil
}

// readLoop processes inbound frames for one connection. It returns when
// the connection dies, after releasing the holder's remaining seats; the
// disconnect is the protocol's only cancellation signal.
func (h *SeatSocketHandler) readLoop(c echo.Context, cl *socketClient, holder string) {
	var (
		showtimeID uint64                 // current room, 0 until the first join
		sub        *realtime.Subscription // current room subscription
	)
	defer func() {
		if sub != nil {
			sub.Close()
		}
		cl.close()
		if showtimeID != 0 {
			// The request context died with the connection; cleanup gets
			// its own deadline.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if _, err := h.Manager.ReleaseAll(ctx, showtimeID, holder); err != nil {
				c.Logger().Errorf("seat socket: release all for %s: %v", holder, err)
			}
		}
		c.Logger().Infof("seat socket disconnected: holder=%s", holder)
	}()

	cl.prepareRead()
	for {
		var msg inboundFrame
		if err := cl.conn.ReadJSON(&msg); err != nil {
			return
		}
		ctx := c.Request().Context()
		switch msg.Type {
		case "join-showtime":
			if msg.ShowtimeID == 0 {
				continue
			}
			if sub != nil {
				// One showtime room per connection: a re-join swaps rooms.
				// Holds on the previous showtime are left to their TTL.
				sub.Close()
			}
			showtimeID = msg.ShowtimeID
			sub = h.Hub.Subscribe(realtime.ShowtimeRoom(showtimeID))
			go cl.pump(sub)
			holds, err := h.Manager.Snapshot(ctx, showtimeID)
			if err != nil {
				c.Logger().Errorf("seat socket: snapshot %d: %v", showtimeID, err)
				continue
			}
			cl.sendEvent(realtime.EventInitialHeldSeats, realtime.InitialHeldSeats{Seats: holds})

		case "hold-seat":
			if msg.ShowtimeID == 0 || msg.SeatNumber == "" {
				continue
			}
			err := h.Manager.Hold(ctx, msg.ShowtimeID, msg.SeatNumber, holder)
			if errors.Is(err, repository.ErrSeatTaken) {
				// Contention is the requester's problem only; the room
				// hears nothing.
				cl.sendEvent(realtime.EventHoldFailed, realtime.HoldFailed{
					SeatNumber: msg.SeatNumber,
					Reason:     "seat taken",
				})
				continue
			}
			if err != nil {
				// Store unreachable: fail closed, never pretend the hold
				// succeeded without exclusion.
				c.Logger().Errorf("seat socket: hold %s/%s: %v", msg.SeatNumber, holder, err)
				cl.sendEvent(realtime.EventHoldFailed, realtime.HoldFailed{
					SeatNumber: msg.SeatNumber,
					Reason:     "seat service unavailable",
				})
			}

		case "release-seat":
			if msg.ShowtimeID == 0 || msg.SeatNumber == "" {
				continue
			}
			if err := h.Manager.Release(ctx, msg.ShowtimeID, msg.SeatNumber, holder); err != nil {
				c.Logger().Errorf("seat socket: release %s/%s: %v", msg.SeatNumber, holder, err)
			}

		case "book-seats":
			if msg.ShowtimeID == 0 || len(msg.SeatNumbers) == 0 {
				continue
			}
			if err := h.Manager.Confirm(ctx, msg.ShowtimeID, msg.SeatNumbers); err != nil {
				c.Logger().Errorf("seat socket: confirm %v: %v", msg.SeatNumbers, err)
			}

		default:
			c.Logger().Warnf("seat socket: unknown message type %q", msg.Type)
		}
	}
}

// holderIdentity builds the lease holder identity for one connection. The
// connection, not the user, owns holds — two tabs of the same user compete
// like strangers — but an authenticated subject is kept in the label for
// traceability.
func holderIdentity(c echo.Context) string {
	id := uuid.NewString()
	if uid := middleware.CurrentUserID(c); uid != "" && uid != "anon" {
		return "u" + uid + "-" + id[:8]
	}
	return id
}
