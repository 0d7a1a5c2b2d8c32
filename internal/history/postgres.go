package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresRecorder stores entries in the query_history table.
type PostgresRecorder struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresRecorder wraps an open connection. The schema is created by
// the migrations in ./migrations.
func NewPostgresRecorder(db *sql.DB) *PostgresRecorder {
	return &PostgresRecorder{db: db, now: time.Now}
}

// Record inserts an entry.
func (r *PostgresRecorder) Record(ctx context.Context, entry Entry) error {
	entry = normalize(entry, r.now())

	query := `
		INSERT INTO query_history (id, message, substance, endpoints, valid, result_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Message,
		entry.Substance,
		pq.Array(entry.Endpoints),
		entry.Valid,
		entry.ResultCount,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (r *PostgresRecorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `
		SELECT id, message, substance, endpoints, valid, result_count, created_at
		FROM query_history
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var endpoints pq.StringArray
		if err := rows.Scan(&e.ID, &e.Message, &e.Substance, &endpoints, &e.Valid, &e.ResultCount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.Endpoints = []string(endpoints)
		if e.Endpoints == nil {
			e.Endpoints = []string{}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return entries, nil
}

// Ping checks database connectivity.
func (r *PostgresRecorder) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the underlying connection.
func (r *PostgresRecorder) Close() error {
	return r.db.Close()
}
