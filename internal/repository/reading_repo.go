package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"greenhouse/internal/models"
)

// ListFilter narrows a listing to exact device and/or sensor matches.
// Empty fields apply no filtering.
type ListFilter struct {
	DeviceID string
	Sensor   string
}

// Page selects a window of filtered rows. Range enforcement is the caller's
// responsibility; the repository applies the values as given.
type Page struct {
	Limit  int
	Offset int
}

// ReadingRepository persists sensor readings.
type ReadingRepository struct {
	db *sql.DB
}

// NewReadingRepository returns repository.
func NewReadingRepository(db *sql.DB) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// Migrate creates the readings table and its indexes.
func (r *ReadingRepository) Migrate(ctx context.Context) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS readings (
		id          BIGSERIAL PRIMARY KEY,
		device_id   TEXT NOT NULL,
		sensor      TEXT NOT NULL,
		value       DOUBLE PRECISION NOT NULL,
		unit        TEXT NOT NULL DEFAULT '',
		recorded_at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS readings_device_id_idx ON readings (device_id);
	CREATE INDEX IF NOT EXISTS readings_sensor_idx ON readings (sensor);
	CREATE INDEX IF NOT EXISTS readings_recorded_at_idx ON readings (recorded_at);
	`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// Insert stores a new reading and fills in its assigned id.
func (r *ReadingRepository) Insert(ctx context.Context, reading *models.Reading) error {
	const query = `
		INSERT INTO readings (device_id, sensor, value, unit, recorded_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		reading.DeviceID,
		reading.Sensor,
		reading.Value,
		reading.Unit,
		reading.RecordedAt,
	).Scan(&reading.ID)
}

// List returns the filtered page of readings together with the total number
// of rows matching the filter before pagination.
func (r *ReadingRepository) List(ctx context.Context, filter ListFilter, page Page) ([]models.Reading, int, error) {
	countQuery, pageQuery, args, pageArgs := listQueries(filter, page)

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, pageQuery, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	readings := make([]models.Reading, 0, page.Limit)
	for rows.Next() {
		var reading models.Reading
		if err := rows.Scan(
			&reading.ID,
			&reading.DeviceID,
			&reading.Sensor,
			&reading.Value,
			&reading.Unit,
			&reading.RecordedAt,
		); err != nil {
			return nil, 0, err
		}
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return readings, total, nil
}

// listQueries builds the count and page statements sharing one WHERE clause.
// Ordering is recorded_at descending with id descending as the tie-break, so
// repeated calls paginate without skipping or duplicating rows.
func listQueries(filter ListFilter, page Page) (countQuery, pageQuery string, countArgs, pageArgs []any) {
	var clauses []string
	var args []any

	if filter.DeviceID != "" {
		args = append(args, filter.DeviceID)
		clauses = append(clauses, fmt.Sprintf("device_id = $%d", len(args)))
	}
	if filter.Sensor != "" {
		args = append(args, filter.Sensor)
		clauses = append(clauses, fmt.Sprintf("sensor = $%d", len(args)))
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	countQuery = "SELECT COUNT(*) FROM readings" + where
	countArgs = args

	pageArgs = append(append([]any{}, args...), page.Limit, page.Offset)
	pageQuery = fmt.Sprintf(
		"SELECT id, device_id, sensor, value, unit, recorded_at FROM readings%s ORDER BY recorded_at DESC, id DESC LIMIT $%d OFFSET $%d",
		where, len(pageArgs)-1, len(pageArgs),
	)

	return countQuery, pageQuery, countArgs, pageArgs
}
