package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/cinema-live/internal/model"
)

// BookingRepo provides read access to the bookings table and the single
// conditional write this service performs: the PENDING → PAID transition.
// Bookings are inserted by the checkout flow and expired by an external
// sweep; neither concern lives here. All timestamps are stored in UTC.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the provided database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, showtime_id, seats, seat_total_price, combo_total_price,
       total_price, payment_status, booking_time, payment_deadline,
       bank_account_name, bank_account_number, bank_bin,
       payment_transaction_id, order_code, payment_time`

// GetByID loads a booking by its BOOK token. It returns ErrBookingNotFound
// when no row matches.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	return scanBooking(row)
}

// GetByOrderCode loads a booking by the gateway order code registered at
// checkout. Used as the fallback when the transfer description carries no
// booking token. Returns ErrBookingNotFound when no row matches.
func (r *BookingRepo) GetByOrderCode(ctx context.Context, orderCode int64) (*model.Booking, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE order_code = ?`, orderCode)
	return scanBooking(row)
}

// MarkPaid flips a booking from PENDING to PAID in a single conditional
// UPDATE keyed on the current status. The condition, not a prior read, is
// what makes concurrent duplicate webhook deliveries safe: exactly one of
// them changes a row. It returns true when this call performed the
// transition and false when the booking was not PENDING anymore (or does
// not exist; callers that care must load the booking first).
func (r *BookingRepo) MarkPaid(ctx context.Context, id, transactionID string, orderCode int64, paidAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings
		 SET payment_status = ?, payment_transaction_id = ?, order_code = ?, payment_time = ?
		 WHERE id = ? AND payment_status = ?`,
		model.PaymentPaid, transactionID, orderCode, paidAt.UTC().Format("2006-01-02 15:04:05"),
		id, model.PaymentPending,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// scanBooking maps one row onto a model.Booking, converting the nullable
// payment columns. sql.ErrNoRows becomes ErrBookingNotFound so callers do
// not depend on database/sql sentinels.
func scanBooking(row *sql.Row) (*model.Booking, error) {
	var (
		b        model.Booking
		txID     sql.NullString
		ordCode  sql.NullInt64
		paidTime sql.NullTime
	)
	err := row.Scan(
		&b.ID, &b.ShowtimeID, &b.Seats, &b.SeatTotalPrice, &b.ComboTotalPrice,
		&b.TotalPrice, &b.PaymentStatus, &b.BookingTime, &b.PaymentDeadline,
		&b.BankAccountName, &b.BankAccountNumber, &b.BankBIN,
		&txID, &ordCode, &paidTime,
	)
	if err == sql.ErrNoRows {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	if txID.Valid {
		b.TransactionID = &txID.String
	}
	if ordCode.Valid {
		b.OrderCode = &ordCode.Int64
	}
	if paidTime.Valid {
		t := paidTime.Time
		b.PaymentTime = &t
	}
	return &b, nil
}
