package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/cinema-live/internal/handler" // import the handlers that implement business logic
)

// Handlers bundles everything RegisterRoutes wires up. All fields must be
// non-nil; construction happens once in main.
type Handlers struct {
	Payment       *handler.PaymentHandler
	Showtime      *handler.ShowtimeHandler
	SeatSocket    *handler.SeatSocketHandler
	PaymentSocket *handler.PaymentSocketHandler
}

// RegisterRoutes registers the whole route surface on the provided Echo
// instance. identity runs on every route so the rate limiter can key by
// user; limiter guards the endpoints an outside party can hammer: the
// gateway-facing webhook and the two WebSocket upgrades. The webhook
// deliberately carries no authentication middleware beyond its own
// signature verification, which is the gateway's contract.
func RegisterRoutes(e *echo.Echo, h Handlers, identity, limiter echo.MiddlewareFunc) {
	e.Use(identity)

	// Health check for load balancers and monitoring.
	e.GET("/healthz", handler.Health)

	v1 := e.Group("/v1")
	// Gateway webhook and the polling fallback for clients that missed the
	// room broadcast.
	v1.POST("/payment/webhook", h.Payment.Webhook, limiter)
	v1.GET("/payment/status/:bookingId", h.Payment.Status)
	// HTTP snapshot fallback mirroring the socket's initial-held-seats.
	v1.GET("/showtimes/:id/held-seats", h.Showtime.HeldSeats)

	// Real-time channels: seat negotiation and payment status rooms.
	e.GET("/ws/seats", h.SeatSocket.Serve, limiter)
	e.GET("/ws/payment", h.PaymentSocket.Serve, limiter)
}
