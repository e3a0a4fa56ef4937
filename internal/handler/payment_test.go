package handler_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-live/internal/handler"
	"github.com/iliyamo/cinema-live/internal/model"
	"github.com/iliyamo/cinema-live/internal/repository"
	"github.com/iliyamo/cinema-live/internal/service"
)

const testChecksumKey = "test-checksum-key"

// memBookingStore is a minimal in-memory service.BookingStore.
type memBookingStore struct {
	bookings map[string]*model.Booking
}

func newMemBookingStore(bookings ...*model.Booking) *memBookingStore {
	s := &memBookingStore{bookings: make(map[string]*model.Booking)}
	for _, b := range bookings {
		cp := *b
		s.bookings[b.ID] = &cp
	}
	return s
}

func (s *memBookingStore) GetByID(_ context.Context, id string) (*model.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *memBookingStore) GetByOrderCode(_ context.Context, orderCode int64) (*model.Booking, error) {
	for _, b := range s.bookings {
		if b.OrderCode != nil && *b.OrderCode == orderCode {
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrBookingNotFound
}

func (s *memBookingStore) MarkPaid(_ context.Context, id, transactionID string, orderCode int64, paidAt time.Time) (bool, error) {
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

type noopBroadcaster struct{}

func (noopBroadcaster) Publish(string, string, interface{}) {}

func signData(d model.PaymentData, key string) string {
	payload := fmt.Sprintf(
		"amount=%d&code=%s&desc=%s&description=%s&orderCode=%d&reference=%s&transactionDateTime=%s",
		d.Amount, d.Code, d.Desc, d.Description, d.OrderCode, d.Reference, d.TransactionDateTime)
	sum := sha256.Sum256([]byte(payload + key))
	return hex.EncodeToString(sum[:])
}

func newPaymentHandler(bookings ...*model.Booking) *handler.PaymentHandler {
	svc := service.NewBookingService(newMemBookingStore(bookings...))
	rec := service.NewPaymentReconciler(svc, noopBroadcaster{}, nil, testChecksumKey)
	return handler.NewPaymentHandler(rec, svc)
}

func postWebhook(t *testing.T, h *handler.PaymentHandler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/payment/webhook", strings.NewReader(string(raw)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rr := httptest.NewRecorder()
	require.NoError(t, h.Webhook(e.NewContext(req, rr)))
	return rr
}

func validHook(bookingID string, amount int64) model.PaymentWebhook {
	d := model.PaymentData{
		OrderCode:           1734516223841,
		Amount:              amount,
		Description:         "CINEMA " + bookingID,
		Reference:           "FT25169123456789",
		TransactionDateTime: "2025-06-18 10:30:00",
		Code:                model.GatewaySuccessCode,
		Desc:                "success",
	}
	return model.PaymentWebhook{
		Code:      model.GatewaySuccessCode,
		Desc:      "success",
		Success:   true,
		Data:      d,
		Signature: signData(d, testChecksumKey),
	}
}

func TestWebhookAppliedAnswersSuccess(t *testing.T) {
	h := newPaymentHandler(&model.Booking{
		ID: "BOOK1734516223841", ShowtimeID: 42, Seats: "A1,A2",
		TotalPrice: 150000, PaymentStatus: model.PaymentPending,
	})

	rr := postWebhook(t, h, validHook("BOOK1734516223841", 150000))

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
}

func TestWebhookTamperedSignatureAnswers401(t *testing.T) {
	h := newPaymentHandler(&model.Booking{
		ID: "BOOK1734516223841", TotalPrice: 150000, PaymentStatus: model.PaymentPending,
	})

	hook := validHook("BOOK1734516223841", 150000)
	hook.Data.Amount = 1
	rr := postWebhook(t, h, hook)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWebhookMalformedBodyAnswers401(t *testing.T) {
	h := newPaymentHandler()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/payment/webhook", strings.NewReader("{not json"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rr := httptest.NewRecorder()

	require.NoError(t, h.Webhook(e.NewContext(req, rr)))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestWebhookUnknownBookingStillAcknowledged(t *testing.T) {
	h := newPaymentHandler() // empty store

	rr := postWebhook(t, h, validHook("BOOK1734516223841", 150000))

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestStatusPendingBooking(t *testing.T) {
	h := newPaymentHandler(&model.Booking{
		ID: "BOOK1734516223841", TotalPrice: 150000, PaymentStatus: model.PaymentPending,
	})

	rr := getStatus(t, h, "BOOK1734516223841")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "BOOK1734516223841", resp["bookingId"])
	assert.Equal(t, model.PaymentPending, resp["paymentStatus"])
	assert.Nil(t, resp["paidAmount"])
	assert.Nil(t, resp["transactionId"])
}

func TestStatusPaidBooking(t *testing.T) {
	txn := "FT25169123456789"
	paidAt := time.Date(2025, 6, 18, 10, 30, 0, 0, time.UTC)
	h := newPaymentHandler(&model.Booking{
		ID: "BOOK1734516223841", TotalPrice: 150000,
		PaymentStatus: model.PaymentPaid, TransactionID: &txn, PaymentTime: &paidAt,
	})

	rr := getStatus(t, h, "BOOK1734516223841")
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, model.PaymentPaid, resp["paymentStatus"])
	assert.Equal(t, float64(150000), resp["paidAmount"])
	assert.Equal(t, txn, resp["transactionId"])
	assert.Equal(t, "2025-06-18T10:30:00Z", resp["paidAt"])
}

func TestStatusUnknownBookingAnswers404(t *testing.T) {
	h := newPaymentHandler()

	rr := getStatus(t, h, "BOOK0000000000000")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func getStatus(t *testing.T, h *handler.PaymentHandler, bookingID string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/payment/status/"+bookingID, nil)
	rr := httptest.NewRecorder()
	c := e.NewContext(req, rr)
	c.SetParamNames("bookingId")
	c.SetParamValues(bookingID)
	require.NoError(t, h.Status(c))
	return rr
}
