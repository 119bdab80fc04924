package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"termin/internal/domain"
	"termin/internal/models"

	"github.com/google/uuid"
)

const bookingColumns = `id, date, time, barber_id, barber_name,
	service_id, service_name, service_price,
	user_id, user_name, user_phone, user_email,
	status, manual_block, cancellation_reason, cancelled_at,
	created_at, last_updated, version`

func scanBooking(row interface{ Scan(...interface{}) error }) (*models.Booking, error) {
	b := &models.Booking{}
	var cancelledAt sql.NullTime
	err := row.Scan(
		&b.ID, &b.Date, &b.Time, &b.BarberID, &b.BarberName,
		&b.ServiceID, &b.ServiceName, &b.ServicePrice,
		&b.Customer.UserID, &b.Customer.Name, &b.Customer.Phone, &b.Customer.Email,
		&b.Status, &b.ManualBlock, &b.CancellationReason, &cancelledAt,
		&b.CreatedAt, &b.LastUpdated, &b.Version,
	)
	if err != nil {
		return nil, err
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		b.CancelledAt = &t
	}
	return b, nil
}

// GetBooking returns one record by id.
func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	b, err := scanBooking(db.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	return b, nil
}

// QueryBookings returns all records matching the filter, in creation
// order. Callers needing slot order sort against the catalog.
func (db *DB) QueryBookings(ctx context.Context, filter domain.QueryFilter) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings`
	var conds []string
	var args []interface{}

	if filter.Date != "" {
		conds = append(conds, "date = ?")
		args = append(args, filter.Date)
	}
	if filter.BarberID != "" {
		conds = append(conds, "barber_id = ?")
		args = append(args, filter.BarberID)
	}
	if filter.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}
	return bookings, nil
}

func validateRecord(b *models.Booking) error {
	if b.Date == "" {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	if _, err := time.Parse(models.DateLayout, b.Date); err != nil {
		return fmt.Errorf("%w: invalid date %q", ErrValidation, b.Date)
	}
	if b.Time == "" {
		return fmt.Errorf("%w: time slot is required", ErrValidation)
	}
	if !models.ValidStatus(b.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, b.Status)
	}
	return nil
}

// CreateReservation inserts a pending customer booking. The occupancy
// check runs inside the same transaction as the insert, so a race
// between two submissions for one slot resolves to exactly one winner.
// The slot is taken when any non-cancelled record holds it for the
// same barber, or a shop-wide manual block holds it for everyone.
func (db *DB) CreateReservation(ctx context.Context, booking *models.Booking) error {
	if err := validateRecord(booking); err != nil {
		return err
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reservation tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var taken int
	guard := `SELECT COUNT(*) FROM bookings
	          WHERE date = ? AND time = ? AND status != ?
	            AND (barber_id = ? OR manual_block = 1 OR barber_id = '')`
	err = tx.QueryRowContext(ctx, guard,
		booking.Date, booking.Time, models.StatusCancelled, booking.BarberID,
	).Scan(&taken)
	if err != nil {
		return fmt.Errorf("check occupancy in tx: %w", err)
	}
	if taken > 0 {
		return ErrSlotUnavailable
	}

	if err := insertBooking(ctx, tx, booking); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reservation: %w", err)
	}

	db.notifyChanged()
	return nil
}

// CreateBlock inserts an admin manual block. Admin authority overrides
// customer records holding the slot, but a slot already blocked stays
// single-blocked: stacking a second block would leave two occupying
// records for one triple and break every read of that date.
func (db *DB) CreateBlock(ctx context.Context, booking *models.Booking) error {
	booking.ManualBlock = true
	if booking.Status == "" {
		booking.Status = models.StatusBlocked
	}
	if err := validateRecord(booking); err != nil {
		return err
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin block tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var blocked int
	guard := `SELECT COUNT(*) FROM bookings
	          WHERE date = ? AND time = ? AND status = ?`
	err = tx.QueryRowContext(ctx, guard,
		booking.Date, booking.Time, models.StatusBlocked,
	).Scan(&blocked)
	if err != nil {
		return fmt.Errorf("check existing block in tx: %w", err)
	}
	if blocked > 0 {
		return ErrSlotUnavailable
	}

	if err := insertBooking(ctx, tx, booking); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit block: %w", err)
	}

	db.notifyChanged()
	return nil
}

func insertBooking(ctx context.Context, tx *sql.Tx, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now()

	query := `INSERT INTO bookings (
				id, date, time, barber_id, barber_name,
				service_id, service_name, service_price,
				user_id, user_name, user_phone, user_email,
				status, manual_block, cancellation_reason,
				created_at, last_updated, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, query,
		booking.ID,
		booking.Date,
		booking.Time,
		booking.BarberID,
		booking.BarberName,
		booking.ServiceID,
		booking.ServiceName,
		booking.ServicePrice,
		booking.Customer.UserID,
		booking.Customer.Name,
		booking.Customer.Phone,
		booking.Customer.Email,
		booking.Status,
		booking.ManualBlock,
		booking.CancellationReason,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	booking.CreatedAt = now
	booking.LastUpdated = now
	booking.Version = 1
	return nil
}

// TransitionBooking applies a moderation status change guarded by the
// expected prior status. The compare and the update are a single
// statement, giving compare-and-swap semantics without re-reading.
func (db *DB) TransitionBooking(ctx context.Context, id string, update domain.StatusUpdate) error {
	if !models.ValidStatus(update.Status) {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, update.Status)
	}
	if !models.ValidStatus(update.Expected) {
		return fmt.Errorf("%w: unknown expected status %q", ErrValidation, update.Expected)
	}

	now := time.Now()
	var result sql.Result
	var err error

	if update.Status == models.StatusCancelled {
		query := `UPDATE bookings
		          SET status = ?, cancellation_reason = ?, cancelled_at = ?,
		              last_updated = ?, version = version + 1
		          WHERE id = ? AND status = ?`
		result, err = db.db.ExecContext(ctx, query,
			update.Status, update.CancellationReason, now, now, id, update.Expected)
	} else {
		query := `UPDATE bookings
		          SET status = ?, last_updated = ?, version = version + 1
		          WHERE id = ? AND status = ?`
		result, err = db.db.ExecContext(ctx, query,
			update.Status, now, id, update.Expected)
	}
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Distinguish a vanished record from a lost race.
		if _, getErr := db.GetBooking(ctx, id); errors.Is(getErr, ErrNotFound) {
			return ErrNotFound
		}
		return ErrConcurrentModification
	}

	db.notifyChanged()
	return nil
}
