package main // Entry point package

import (
	"context"
	"log" // Logging library

	"github.com/joho/godotenv"    // .env loader for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/cinema-live/internal/config"     // Internal config loader
	"github.com/iliyamo/cinema-live/internal/database"   // MySQL connection (Catalog Store)
	"github.com/iliyamo/cinema-live/internal/handler"    // HTTP and WebSocket handlers
	"github.com/iliyamo/cinema-live/internal/middleware" // identity and rate limiting
	"github.com/iliyamo/cinema-live/internal/queue"      // payment confirmation broker pipeline
	"github.com/iliyamo/cinema-live/internal/realtime"   // room fan-out and cross-instance bridge
	"github.com/iliyamo/cinema-live/internal/repository" // lease and booking repositories
	"github.com/iliyamo/cinema-live/internal/router"     // route registration
	"github.com/iliyamo/cinema-live/internal/service"    // seat lock manager, booking controller, reconciler
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("mysql: %v", err)
	}

	// The lease store is a correctness dependency: without it seat holds
	// cannot fail closed, so the server refuses to start.
	rdb, err := config.NewRedisClient()
	if err != nil {
		log.Fatalf("redis: %v", err)
	}

	hub := realtime.NewHub()
	bridge := realtime.NewBridge(hub, rdb)
	go bridge.Run(context.Background())

	bookings := service.NewBookingService(repository.NewBookingRepo(db))
	seats := service.NewSeatLockManager(repository.NewSeatLeaseRepo(rdb), bridge)
	reconciler := service.NewPaymentReconciler(bookings, bridge, queue.NewPublisher(), cfg.ChecksumKey)

	// Background consumer writing payment confirmations to logs/payment.log.
	go func() {
		if err := queue.StartPaymentConsumer(); err != nil {
			log.Printf("payment consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.RegisterRoutes(e, router.Handlers{
		Payment:       handler.NewPaymentHandler(reconciler, bookings),
		Showtime:      handler.NewShowtimeHandler(seats),
		SeatSocket:    handler.NewSeatSocketHandler(seats, hub),
		PaymentSocket: handler.NewPaymentSocketHandler(bookings, hub),
	},
		middleware.Identity(cfg.JWTSecret),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
