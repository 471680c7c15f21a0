// Package repository provides the PostgreSQL persistence of the audit log.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/atinyakov/lpbridge/internal/models"
)

// PostgresOperationRepository stores audit records of account operations.
type PostgresOperationRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresOperationRepository creates a repository using the provided *sql.DB.
// db must be a valid connection to a PostgreSQL instance with the audit schema.
func NewPostgresOperationRepository(db *sql.DB) *PostgresOperationRepository {
	return &PostgresOperationRepository{DB: db}
}

// Record inserts one audit record.
//
//	ctx: context for cancellation and deadlines
//	op:  the record; op.ID must be unique
//
// Returns an error if the insert fails.
func (r *PostgresOperationRepository) Record(ctx context.Context, op models.Operation) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO operations (id, name, account_id, outcome, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, op.ID, op.Name, op.AccountID, op.Outcome, op.Duration.Milliseconds(), op.CreatedAt)
	if err != nil {
		return fmt.Errorf("Record failed: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first. When names is not
// empty only operations with one of those names are returned.
func (r *PostgresOperationRepository) Recent(ctx context.Context, limit int, names []string) ([]models.Operation, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if len(names) == 0 {
		rows, err = r.DB.QueryContext(ctx, `
			SELECT id, name, account_id, outcome, duration_ms, created_at FROM operations
			ORDER BY created_at DESC LIMIT $1
		`, limit)
	} else {
		rows, err = r.DB.QueryContext(ctx, `
			SELECT id, name, account_id, outcome, duration_ms, created_at FROM operations
			WHERE name = ANY($2)
			ORDER BY created_at DESC LIMIT $1
		`, limit, pq.Array(names))
	}
	if err != nil {
		return nil, fmt.Errorf("Recent: %w", err)
	}
	defer rows.Close()

	ops := make([]models.Operation, 0)
	for rows.Next() {
		var (
			op         models.Operation
			durationMS int64
		)
		if err := rows.Scan(&op.ID, &op.Name, &op.AccountID, &op.Outcome, &durationMS, &op.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		op.Duration = time.Duration(durationMS) * time.Millisecond
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Recent: %w", err)
	}
	return ops, nil
}
