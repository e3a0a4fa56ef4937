package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/cinema-live/internal/model"
	"github.com/iliyamo/cinema-live/internal/queue"
	"github.com/iliyamo/cinema-live/internal/realtime"
	"github.com/iliyamo/cinema-live/internal/repository"
)

// AmountTolerance is the absolute slack, in the smallest currency unit,
// allowed between the notified amount and the booking total. Bank rounding
// stays inside it; anything larger is parked for manual review instead of
// being applied.
const AmountTolerance = 1000

// bookingTokenRe matches the booking token embedded in a transfer
// description, e.g. "CINEMA BOOK1734516223841" or "Thanh toan ve
// BOOK1734516223841".
var bookingTokenRe = regexp.MustCompile(`(?i)BOOK[_\d]{9,15}`)

// ReconcileStatus classifies what Process did with a notification. Every
// status except StatusBadSignature and an error is acknowledged with
// success to the gateway: acknowledging rejected events is what stops
// redelivery storms.
type ReconcileStatus int

const (
	// StatusApplied – the booking transitioned to PAID and the room was notified.
	StatusApplied ReconcileStatus = iota
	// StatusBadSignature – payload failed authentication; answered 401, no side effects.
	StatusBadSignature
	// StatusIgnored – acknowledged without side effects (non-success code,
	// unresolvable booking, already terminal, or parked amount mismatch).
	StatusIgnored
)

// ReconcileResult is Process's report: the classification, a short reason
// for the log line, and the booking when one was resolved.
type ReconcileResult struct {
	Status  ReconcileStatus
	Reason  string
	Booking *model.Booking
}

// EventPublisher pushes a confirmation onto the message broker for
// downstream consumers (receipt log today, email/SMS later). Failures are
// logged by the reconciler and never fail the webhook.
type EventPublisher interface {
	PublishPaymentConfirmed(ctx context.Context, ev queue.PaymentConfirmedEvent) error
}

// PaymentReconciler turns an untrusted, possibly duplicated, possibly
// malformed gateway notification into at most one booking state transition,
// then notifies only the interested room. All collaborators are injected at
// construction; in particular the broadcaster is a constructor dependency,
// not a mutable package-level handle the router pokes at after the fact.
type PaymentReconciler struct {
	bookings    *BookingService
	rooms       Broadcaster
	events      EventPublisher
	checksumKey string
	now         func() time.Time
}

// NewPaymentReconciler constructs a PaymentReconciler. checksumKey is the
// gateway secret; it must be non-empty, absence of the secret has to fail
// verification rather than silently accept. events may be nil when no
// broker is configured.
func NewPaymentReconciler(bookings *BookingService, rooms Broadcaster, events EventPublisher, checksumKey string) *PaymentReconciler {
	if bookings == nil || rooms == nil {
		panic("nil dependency passed to NewPaymentReconciler")
	}
	return &PaymentReconciler{
		bookings:    bookings,
		rooms:       rooms,
		events:      events,
		checksumKey: checksumKey,
		now:         time.Now,
	}
}

// signPayload builds the deterministic representation the gateway signs:
// the data fields as key=value pairs, sorted by key, joined with '&'.
func signPayload(d model.PaymentData) string {
	fields := map[string]string{
		"orderCode":           strconv.FormatInt(d.OrderCode, 10),
		"amount":              strconv.FormatInt(d.Amount, 10),
		"description":         d.Description,
		"reference":           d.Reference,
		"transactionDateTime": d.TransactionDateTime,
		"code":                d.Code,
		"desc":                d.Desc,
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+fields[k])
	}
	return strings.Join(pairs, "&")
}

// VerifySignature recomputes the keyed hash over the sorted payload and
// compares it to the supplied signature in constant time. A missing
// checksum key fails every verification.
func (r *PaymentReconciler) VerifySignature(d model.PaymentData, signature string) bool {
	if r.checksumKey == "" || signature == "" {
		return false
	}
	sum := sha256.Sum256([]byte(signPayload(d) + r.checksumKey))
	computed := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(computed), []byte(strings.ToLower(signature))) == 1
}

// extractBookingToken pulls the BOOK token out of a transfer description,
// or returns "" when none is embedded.
func extractBookingToken(description string) string {
	m := bookingTokenRe.FindString(description)
	if m == "" {
		return ""
	}
	return strings.ToUpper(m)
}

// Process runs the reconciliation pipeline over one webhook delivery.
// Every step's failure short-circuits to an acknowledged result without
// side effects; only a store fault surfaces as an error (the handler's
// 500). The pipeline, in order: authenticate, filter non-success, resolve
// the booking, guard idempotence, verify the amount, commit, notify.
func (r *PaymentReconciler) Process(ctx context.Context, hook model.PaymentWebhook) (ReconcileResult, error) {
	if !r.VerifySignature(hook.Data, hook.Signature) {
		return ReconcileResult{Status: StatusBadSignature, Reason: "invalid signature"}, nil
	}

	if !hook.Success || hook.Code != model.GatewaySuccessCode {
		log.Printf("payment: non-success notification ignored (code=%s desc=%q)", hook.Code, hook.Desc)
		return ReconcileResult{Status: StatusIgnored, Reason: "non-success result code"}, nil
	}

	booking, reason, err := r.resolveBooking(ctx, hook.Data)
	if err != nil {
		return ReconcileResult{}, err
	}
	if booking == nil {
		log.Printf("payment: no booking resolved (orderCode=%d description=%q)", hook.Data.OrderCode, hook.Data.Description)
		return ReconcileResult{Status: StatusIgnored, Reason: reason}, nil
	}

	if booking.PaymentStatus == model.PaymentPaid {
		return ReconcileResult{Status: StatusIgnored, Reason: "already paid", Booking: booking}, nil
	}
	if booking.Terminal() {
		log.Printf("payment: booking %s is %s, leaving untouched", booking.ID, booking.PaymentStatus)
		return ReconcileResult{Status: StatusIgnored, Reason: "booking in terminal state", Booking: booking}, nil
	}

	if diff := hook.Data.Amount - booking.TotalPrice; diff > AmountTolerance || diff < -AmountTolerance {
		log.Printf("payment: amount mismatch for %s parked for review (expected=%d received=%d)",
			booking.ID, booking.TotalPrice, hook.Data.Amount)
		return ReconcileResult{Status: StatusIgnored, Reason: "amount mismatch parked", Booking: booking}, nil
	}

	outcome, err := r.bookings.MarkPaid(ctx, booking.ID, PaymentRecord{
		TransactionID: hook.Data.Reference,
		OrderCode:     hook.Data.OrderCode,
		PaidAt:        r.paidAt(hook.Data.TransactionDateTime),
	})
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("mark paid %s: %w", booking.ID, err)
	}
	if !outcome.Transitioned {
		// A concurrent duplicate won the conditional update; it already
		// notified the room.
		return ReconcileResult{Status: StatusIgnored, Reason: "duplicate delivery", Booking: outcome.Booking}, nil
	}

	r.notify(ctx, outcome.Booking, hook.Data)
	return ReconcileResult{Status: StatusApplied, Reason: "payment applied", Booking: outcome.Booking}, nil
}

// resolveBooking finds the booking a notification refers to: first by the
// token embedded in the description, then by order code. A nil booking
// with a reason means "acknowledge and stop".
func (r *PaymentReconciler) resolveBooking(ctx context.Context, d model.PaymentData) (*model.Booking, string, error) {
	if token := extractBookingToken(d.Description); token != "" {
		booking, err := r.bookings.GetStatus(ctx, token)
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, "booking token unknown", nil
		}
		if err != nil {
			return nil, "", err
		}
		return booking, "", nil
	}
	booking, err := r.bookings.GetByOrderCode(ctx, d.OrderCode)
	if errors.Is(err, repository.ErrBookingNotFound) {
		return nil, "no booking for order code", nil
	}
	if err != nil {
		return nil, "", err
	}
	return booking, "", nil
}

// paidAt parses the gateway timestamp, falling back to the server clock
// when the gateway sends something unparseable.
func (r *PaymentReconciler) paidAt(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return r.now().UTC()
}

// notify emits the payment-status event into the booking's room and hands
// the confirmation to the broker pipeline. Broker failures are logged and
// swallowed; the transition is already durable.
func (r *PaymentReconciler) notify(ctx context.Context, booking *model.Booking, d model.PaymentData) {
	r.rooms.Publish(realtime.BookingRoom(booking.ID), realtime.EventPaymentStatus, realtime.PaymentStatus{
		BookingID:     booking.ID,
		Status:        "SUCCESS",
		Amount:        d.Amount,
		TransactionID: d.Reference,
		OrderCode:     d.OrderCode,
		Timestamp:     r.now().UTC().Format(time.RFC3339),
	})
	if r.events == nil {
		return
	}
	ev := queue.PaymentConfirmedEvent{
		BookingID:     booking.ID,
		ShowtimeID:    booking.ShowtimeID,
		Seats:         booking.Seats,
		Amount:        d.Amount,
		TransactionID: d.Reference,
		OrderCode:     d.OrderCode,
		ConfirmedAt:   r.now().UTC().Format(time.RFC3339),
	}
	if err := r.events.PublishPaymentConfirmed(ctx, ev); err != nil {
		log.Printf("payment: publish confirmation for %s failed: %v", booking.ID, err)
	}
}
