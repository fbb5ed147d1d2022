package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations is the ordered schema history. Index i upgrades the database
// from user_version i to i+1. Never reorder or edit an applied entry; append
// a new one instead.
var migrations = []string{
	`
	CREATE TABLE resources (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		capacity INTEGER,
		active INTEGER NOT NULL DEFAULT 1,
		deleted INTEGER NOT NULL DEFAULT 0,
		deleted_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE bookings (
		id TEXT PRIMARY KEY,
		resource_id TEXT NOT NULL REFERENCES resources(id),
		title TEXT NOT NULL,
		description TEXT,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		is_recurring INTEGER NOT NULL DEFAULT 0,
		recurrence_rule TEXT,
		recurrence_parent_id TEXT REFERENCES bookings(id) ON DELETE CASCADE,
		series_id TEXT,
		original_start_time TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		CHECK (start_time < end_time),
		CHECK (is_recurring = (recurrence_rule IS NOT NULL))
	);

	CREATE INDEX idx_bookings_resource_time ON bookings(resource_id, start_time, end_time);
	CREATE INDEX idx_bookings_series ON bookings(series_id);
	CREATE INDEX idx_bookings_parent ON bookings(recurrence_parent_id);

	CREATE TABLE booking_exceptions (
		id TEXT PRIMARY KEY,
		booking_id TEXT NOT NULL REFERENCES bookings(id) ON DELETE CASCADE,
		exception_date TEXT NOT NULL,
		exception_type TEXT NOT NULL CHECK (exception_type IN ('cancelled', 'modified')),
		new_start_time TEXT,
		new_end_time TEXT,
		new_title TEXT,
		new_description TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (booking_id, exception_date)
	);
	`,
}

// Migrate brings the schema up to the latest version. Safe to call on every
// startup; applied versions are skipped via PRAGMA user_version.
func Migrate(ctx context.Context, pool *ConnectionPool) error {
	current, err := schemaVersion(ctx, pool.DB())
	if err != nil {
		return err
	}

	for version := current; version < len(migrations); version++ {
		statement := migrations[version]
		err := pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(statement); err != nil {
				return fmt.Errorf("apply migration %d: %w", version+1, err)
			}
			if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", version+1)); err != nil {
				return fmt.Errorf("record migration %d: %w", version+1, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}
