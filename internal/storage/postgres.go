package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rowguard-labs/rowguard/internal/errors"
	"github.com/rowguard-labs/rowguard/internal/guard"
)

// PostgresRegistry implements RelationRegistry on PostgreSQL. This is the
// production implementation: relation IDs must survive restarts or the
// immutable rule would point at a different table after one.
type PostgresRegistry struct {
	db *sql.DB
}

// NewPostgresRegistry creates a registry over an open database handle.
// The caller owns the handle and runs migrations before first use.
func NewPostgresRegistry(db *sql.DB) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

// Register assigns an ID to a relation name, returning the existing ID when
// the name is already registered.
func (r *PostgresRegistry) Register(ctx context.Context, name, engine string) (guard.RelationID, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return guard.InvalidRelation, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM relations WHERE name = $1", name,
	).Scan(&id)
	switch {
	case err == nil:
		return guard.RelationID(id), nil
	case err != sql.ErrNoRows:
		return guard.InvalidRelation, fmt.Errorf("failed to check relation existence: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO relations (name, engine)
		 VALUES ($1, $2)
		 RETURNING id`,
		name, engine,
	).Scan(&id)
	if err != nil {
		return guard.InvalidRelation, fmt.Errorf("failed to insert relation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return guard.InvalidRelation, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return guard.RelationID(id), nil
}

// RegisterFixed installs a relation under a caller-chosen ID. Re-applying
// the same name is a no-op.
func (r *PostgresRegistry) RegisterFixed(ctx context.Context, id guard.RelationID, name, engine string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO relations (id, name, engine)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO NOTHING`,
		int64(id), name, engine,
	)
	if err != nil {
		return fmt.Errorf("failed to insert relation: %w", err)
	}
	return nil
}

// Resolve returns the ID for a relation name.
func (r *PostgresRegistry) Resolve(ctx context.Context, name string) (guard.RelationID, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		"SELECT id FROM relations WHERE name = $1", name,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return guard.InvalidRelation, errors.NewRelationNotFound(name)
	}
	if err != nil {
		return guard.InvalidRelation, fmt.Errorf("failed to resolve relation: %w", err)
	}
	return guard.RelationID(id), nil
}

// List returns all registered relations, ordered by ID.
func (r *PostgresRegistry) List(ctx context.Context) ([]*Relation, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, name, engine, created_at FROM relations ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list relations: %w", err)
	}
	defer rows.Close()

	out := make([]*Relation, 0)
	for rows.Next() {
		var (
			rel    Relation
			id     int64
			engine sql.NullString
		)
		if err := rows.Scan(&id, &rel.Name, &engine, &rel.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		rel.ID = guard.RelationID(id)
		rel.Engine = engine.String
		out = append(out, &rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during relation iteration: %w", err)
	}
	return out, nil
}

// CheckConnectivity verifies database connectivity.
func (r *PostgresRegistry) CheckConnectivity(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("registry connectivity check failed: %w", err)
	}
	return nil
}
