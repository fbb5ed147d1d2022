package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/booking-platform/internal/persistence"
)

// ResourceRepository implements persistence.ResourceRepository using SQLite
type ResourceRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewResourceRepository creates a new SQLite resource repository
func NewResourceRepository(pool *ConnectionPool) *ResourceRepository {
	return &ResourceRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const resourceColumns = `id, name, capacity, active, deleted, deleted_at, created_at, updated_at`

// CreateResource inserts a resource row.
func (r *ResourceRepository) CreateResource(ctx context.Context, resource persistence.Resource) error {
	if resource.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO resources (` + resourceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.helper.Exec(ctx, query,
		resource.ID,
		resource.Name,
		nullInt(resource.Capacity),
		boolToInt(resource.Active),
		boolToInt(resource.Deleted),
		nullTime(resource.DeletedAt),
		resource.CreatedAt.UTC().Format(time.RFC3339),
		resource.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// UpdateResource updates an existing resource row.
func (r *ResourceRepository) UpdateResource(ctx context.Context, resource persistence.Resource) error {
	query := `
		UPDATE resources
		SET name = ?, capacity = ?, active = ?, deleted = ?, deleted_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.helper.Exec(ctx, query,
		resource.Name,
		nullInt(resource.Capacity),
		boolToInt(resource.Active),
		boolToInt(resource.Deleted),
		nullTime(resource.DeletedAt),
		resource.UpdatedAt.UTC().Format(time.RFC3339),
		resource.ID,
	)
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

// GetResource retrieves a resource by ID.
func (r *ResourceRepository) GetResource(ctx context.Context, id string) (persistence.Resource, error) {
	if id == "" {
		return persistence.Resource{}, persistence.ErrNotFound
	}

	row := r.helper.QueryRow(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id = ?`, id)
	resource, err := scanResource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Resource{}, persistence.ErrNotFound
		}
		return persistence.Resource{}, r.mapper.MapError(err)
	}
	return resource, nil
}

// ListResources returns all resources ordered by name, soft-deleted rows
// excluded.
func (r *ResourceRepository) ListResources(ctx context.Context) ([]persistence.Resource, error) {
	query := `
		SELECT ` + resourceColumns + `
		FROM resources
		WHERE deleted = 0
		ORDER BY name ASC, id ASC
	`

	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var resources []persistence.Resource
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return resources, nil
}

// DeleteResource soft-deletes a resource so historical bookings keep a valid
// reference.
func (r *ResourceRepository) DeleteResource(ctx context.Context, id string, deletedAt time.Time) error {
	query := `
		UPDATE resources
		SET deleted = 1, active = 0, deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted = 0
	`

	stamp := deletedAt.UTC().Format(time.RFC3339)
	result, err := r.helper.Exec(ctx, query, stamp, stamp, id)
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

func scanResource(row rowScanner) (persistence.Resource, error) {
	var resource persistence.Resource
	var createdAtStr, updatedAtStr string
	var active, deleted int
	var capacity sql.NullInt64
	var deletedAt sql.NullString

	err := row.Scan(
		&resource.ID,
		&resource.Name,
		&capacity,
		&active,
		&deleted,
		&deletedAt,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Resource{}, err
	}

	resource.Active = active != 0
	resource.Deleted = deleted != 0
	if capacity.Valid {
		value := int(capacity.Int64)
		resource.Capacity = &value
	}

	if resource.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Resource{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if resource.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Resource{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	if deletedAt.Valid {
		parsed, err := time.Parse(time.RFC3339, deletedAt.String)
		if err != nil {
			return persistence.Resource{}, fmt.Errorf("failed to parse deleted_at: %w", err)
		}
		resource.DeletedAt = &parsed
	}

	return resource, nil
}

func nullInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}
