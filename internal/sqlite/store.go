package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pixelcanvas/engine/internal/domain/canvas"
	"github.com/pixelcanvas/engine/internal/domain/user"
	"github.com/pixelcanvas/engine/internal/repository"
)

// Store implements canvas.Store and user.Repository for SQLite.
type Store struct {
	db *DB
}

// NewStore creates a new Store.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// WithTx runs fn inside one immediate transaction. Lock contention and
// optimistic version misses surface as repository.ErrConflict; the caller
// decides whether to retry the whole function.
func (s *Store) WithTx(ctx context.Context, fn func(tx canvas.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		if isBusy(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("%w: begin transaction: %v", repository.ErrUnavailable, err)
	}

	if err := fn(&tx{tx: sqlTx}); err != nil {
		_ = sqlTx.Rollback()
		if isBusy(err) {
			return repository.ErrConflict
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		if isBusy(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("%w: commit: %v", repository.ErrUnavailable, err)
	}
	return nil
}

// Create inserts a new user and fills in the assigned ID.
func (s *Store) Create(ctx context.Context, u *user.User) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO users (handle, credits, lifetime_paid_placements, created_at)
		VALUES (?, ?, ?, ?)
	`, u.Handle, u.Credits, u.LifetimePaidPlacements, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrUniqueViolation
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get user id: %w", err)
	}
	u.ID = id
	return nil
}

// Get retrieves a user by ID.
func (s *Store) Get(ctx context.Context, id int64) (*user.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, handle, credits, lifetime_paid_placements, created_at
		FROM users WHERE id = ?
	`, id))
}

func scanUser(row *sql.Row) (*user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Handle, &u.Credits, &u.LifetimePaidPlacements, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}
