package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/booking-platform/internal/persistence"
)

// ExceptionRepository implements persistence.ExceptionRepository using SQLite
type ExceptionRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewExceptionRepository creates a new SQLite exception repository
func NewExceptionRepository(pool *ConnectionPool) *ExceptionRepository {
	return &ExceptionRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const exceptionColumns = `id, booking_id, exception_date, exception_type,
	new_start_time, new_end_time, new_title, new_description, created_at, updated_at`

// UpsertException inserts the exception or replaces the row holding its
// (booking_id, exception_date) key. The replace is a single atomic statement
// so concurrent upserts for the same date cannot produce duplicates.
func (r *ExceptionRepository) UpsertException(ctx context.Context, exc persistence.BookingException) (persistence.BookingException, error) {
	if exc.ID == "" {
		return persistence.BookingException{}, persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO booking_exceptions (` + exceptionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (booking_id, exception_date) DO UPDATE SET
			exception_type = excluded.exception_type,
			new_start_time = excluded.new_start_time,
			new_end_time = excluded.new_end_time,
			new_title = excluded.new_title,
			new_description = excluded.new_description,
			updated_at = excluded.updated_at
	`

	_, err := r.helper.Exec(ctx, query,
		exc.ID,
		exc.BookingID,
		exc.ExceptionDate.UTC().Format(time.DateOnly),
		exc.ExceptionType,
		nullTime(exc.NewStartTime),
		nullTime(exc.NewEndTime),
		nullString(exc.NewTitle),
		nullString(exc.NewDescription),
		exc.CreatedAt.UTC().Format(time.RFC3339),
		exc.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return persistence.BookingException{}, r.mapper.MapError(err)
	}

	return r.getForDate(ctx, exc.BookingID, exc.ExceptionDate)
}

// ListExceptionsForBooking returns every exception recorded for a booking,
// ordered by date.
func (r *ExceptionRepository) ListExceptionsForBooking(ctx context.Context, bookingID string) ([]persistence.BookingException, error) {
	query := `
		SELECT ` + exceptionColumns + `
		FROM booking_exceptions
		WHERE booking_id = ?
		ORDER BY exception_date ASC
	`

	rows, err := r.helper.Query(ctx, query, bookingID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var exceptions []persistence.BookingException
	for rows.Next() {
		exc, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		exceptions = append(exceptions, exc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return exceptions, nil
}

// DeleteException removes an exception by ID.
func (r *ExceptionRepository) DeleteException(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	result, err := r.helper.Exec(ctx, "DELETE FROM booking_exceptions WHERE id = ?", id)
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

func (r *ExceptionRepository) getForDate(ctx context.Context, bookingID string, date time.Time) (persistence.BookingException, error) {
	row := r.helper.QueryRow(ctx,
		`SELECT `+exceptionColumns+` FROM booking_exceptions WHERE booking_id = ? AND exception_date = ?`,
		bookingID, date.UTC().Format(time.DateOnly))

	exc, err := scanException(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.BookingException{}, persistence.ErrNotFound
		}
		return persistence.BookingException{}, r.mapper.MapError(err)
	}
	return exc, nil
}

func scanException(row rowScanner) (persistence.BookingException, error) {
	var exc persistence.BookingException
	var dateStr, createdAtStr, updatedAtStr string
	var newStart, newEnd, newTitle, newDescription sql.NullString

	err := row.Scan(
		&exc.ID,
		&exc.BookingID,
		&dateStr,
		&exc.ExceptionType,
		&newStart,
		&newEnd,
		&newTitle,
		&newDescription,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.BookingException{}, err
	}

	exc.NewTitle = stringPtr(newTitle)
	exc.NewDescription = stringPtr(newDescription)

	if exc.ExceptionDate, err = time.Parse(time.DateOnly, dateStr); err != nil {
		return persistence.BookingException{}, fmt.Errorf("failed to parse exception_date: %w", err)
	}
	if exc.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.BookingException{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if exc.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.BookingException{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if newStart.Valid {
		parsed, err := time.Parse(time.RFC3339, newStart.String)
		if err != nil {
			return persistence.BookingException{}, fmt.Errorf("failed to parse new_start_time: %w", err)
		}
		exc.NewStartTime = &parsed
	}
	if newEnd.Valid {
		parsed, err := time.Parse(time.RFC3339, newEnd.String)
		if err != nil {
			return persistence.BookingException{}, fmt.Errorf("failed to parse new_end_time: %w", err)
		}
		exc.NewEndTime = &parsed
	}

	return exc, nil
}
