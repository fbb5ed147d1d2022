package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/booking-platform/internal/persistence"
)

// BookingRepository implements persistence.BookingRepository using SQLite
type BookingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewBookingRepository creates a new SQLite booking repository
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const bookingColumns = `id, resource_id, title, description, start_time, end_time,
	is_recurring, recurrence_rule, recurrence_parent_id, series_id,
	original_start_time, created_by, created_at, updated_at`

// CreateBooking inserts a booking row.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if !booking.StartTime.Before(booking.EndTime) {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		booking.ID,
		booking.ResourceID,
		booking.Title,
		nullString(booking.Description),
		booking.StartTime.UTC().Format(time.RFC3339),
		booking.EndTime.UTC().Format(time.RFC3339),
		boolToInt(booking.IsRecurring),
		nullString(booking.RecurrenceRule),
		nullString(booking.RecurrenceParentID),
		nullString(booking.SeriesID),
		nullTime(booking.OriginalStartTime),
		nullString(booking.CreatedBy),
		booking.CreatedAt.UTC().Format(time.RFC3339),
		booking.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// GetBooking retrieves a booking by ID.
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if id == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	booking, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Booking{}, persistence.ErrNotFound
		}
		return persistence.Booking{}, r.mapper.MapError(err)
	}
	return booking, nil
}

// ListOverlapping returns the bookings for a resource whose stored interval
// overlaps [start, end) half-open. RFC3339 UTC strings compare
// lexicographically in time order, so the comparison runs in SQL.
func (r *BookingRepository) ListOverlapping(ctx context.Context, resourceID string, start, end time.Time) ([]persistence.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE resource_id = ? AND start_time < ? AND end_time > ?
		ORDER BY start_time ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query,
		resourceID,
		end.UTC().Format(time.RFC3339),
		start.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

// ListRecurringTemplates returns every recurring template row for a resource.
func (r *BookingRepository) ListRecurringTemplates(ctx context.Context, resourceID string) ([]persistence.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE resource_id = ? AND is_recurring = 1 AND recurrence_parent_id IS NULL
		ORDER BY start_time ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query, resourceID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

// DeleteBooking removes a booking by ID. Exceptions cascade with the row.
func (r *BookingRepository) DeleteBooking(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, "DELETE FROM bookings WHERE id = ?", id)
	if err != nil {
		return r.mapper.MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// DeleteSeries removes, in one transaction, every booking whose id is
// bookingID or whose series_id is seriesID. Materialized instances are
// deleted before the template so the parent cascade never fires mid-count.
func (r *BookingRepository) DeleteSeries(ctx context.Context, bookingID, seriesID string) (int, error) {
	var deleted int
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(tx,
			"DELETE FROM bookings WHERE id != ? AND (series_id = ? OR recurrence_parent_id = ?)",
			bookingID, seriesID, bookingID)
		if err != nil {
			return r.mapper.MapError(err)
		}
		instanceRows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		result, err = r.helper.ExecTx(tx, "DELETE FROM bookings WHERE id = ?", bookingID)
		if err != nil {
			return r.mapper.MapError(err)
		}
		templateRows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}

		deleted = int(instanceRows + templateRows)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var booking persistence.Booking
	var startStr, endStr, createdAtStr, updatedAtStr string
	var isRecurring int
	var description, rule, parentID, seriesID, originalStart, createdBy sql.NullString

	err := row.Scan(
		&booking.ID,
		&booking.ResourceID,
		&booking.Title,
		&description,
		&startStr,
		&endStr,
		&isRecurring,
		&rule,
		&parentID,
		&seriesID,
		&originalStart,
		&createdBy,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Booking{}, err
	}

	booking.IsRecurring = isRecurring != 0
	booking.Description = stringPtr(description)
	booking.RecurrenceRule = stringPtr(rule)
	booking.RecurrenceParentID = stringPtr(parentID)
	booking.SeriesID = stringPtr(seriesID)
	booking.CreatedBy = stringPtr(createdBy)

	if booking.StartTime, err = time.Parse(time.RFC3339, startStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse start_time: %w", err)
	}
	if booking.EndTime, err = time.Parse(time.RFC3339, endStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse end_time: %w", err)
	}
	if booking.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if booking.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if originalStart.Valid {
		parsed, err := time.Parse(time.RFC3339, originalStart.String)
		if err != nil {
			return persistence.Booking{}, fmt.Errorf("failed to parse original_start_time: %w", err)
		}
		booking.OriginalStartTime = &parsed
	}

	return booking, nil
}

func collectBookings(rows *sql.Rows) ([]persistence.Booking, error) {
	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bookings, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func nullTime(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: value.UTC().Format(time.RFC3339), Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
