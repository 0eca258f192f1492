package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pixelcanvas/engine/internal/domain/canvas"
	"github.com/pixelcanvas/engine/internal/domain/user"
	"github.com/pixelcanvas/engine/internal/repository"
)

// tx implements canvas.Tx over a *sql.Tx.
type tx struct {
	tx *sql.Tx
}

func (t *tx) GetUser(ctx context.Context, id int64) (*user.User, error) {
	var u user.User
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, handle, credits, lifetime_paid_placements, created_at
		FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Handle, &u.Credits, &u.LifetimePaidPlacements, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (t *tx) ChargeUser(ctx context.Context, id int64, cost int64) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE users
		SET credits = credits - ?,
		    lifetime_paid_placements = lifetime_paid_placements + 1
		WHERE id = ? AND credits >= ?
	`, cost, id, cost)
	if err != nil {
		return fmt.Errorf("failed to charge user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		// Either the user vanished or the balance moved under us.
		return repository.ErrConflict
	}
	return nil
}

func (t *tx) GetCell(ctx context.Context, x, y int) (*canvas.Cell, error) {
	var c canvas.Cell
	var ownerID sql.NullInt64
	err := t.tx.QueryRowContext(ctx, `
		SELECT x, y, color, price_level, owner_id, is_ad, updated_at
		FROM cells WHERE x = ? AND y = ?
	`, x, y).Scan(&c.X, &c.Y, &c.Color, &c.PriceLevel, &ownerID, &c.IsAd, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cell: %w", err)
	}
	if ownerID.Valid {
		c.OwnerID = &ownerID.Int64
	}
	return &c, nil
}

func (t *tx) UpsertCell(ctx context.Context, cell *canvas.Cell) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO cells (x, y, color, price_level, owner_id, is_ad, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(x, y) DO UPDATE SET
			color = excluded.color,
			price_level = excluded.price_level,
			owner_id = excluded.owner_id,
			is_ad = excluded.is_ad,
			updated_at = excluded.updated_at
	`, cell.X, cell.Y, cell.Color, cell.PriceLevel, cell.OwnerID, cell.IsAd, cell.UpdatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to upsert cell: %w", err)
	}
	return nil
}

func (t *tx) ResetPriceLevels(ctx context.Context) error {
	if _, err := t.tx.ExecContext(ctx, `UPDATE cells SET price_level = 0`); err != nil {
		return fmt.Errorf("failed to reset price levels: %w", err)
	}
	return nil
}

func (t *tx) CountCellsAtOrAbove(ctx context.Context, level int64) (int64, error) {
	var count int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM cells WHERE price_level >= ?
	`, level).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count capped cells: %w", err)
	}
	return count, nil
}

func (t *tx) CountCells(ctx context.Context) (int64, error) {
	var count int64
	if err := t.tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM cells`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cells: %w", err)
	}
	return count, nil
}

func (t *tx) ListCells(ctx context.Context) ([]canvas.Cell, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT x, y, color, price_level, owner_id, is_ad, updated_at
		FROM cells
		ORDER BY x, y
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cells: %w", err)
	}
	defer rows.Close()

	var cells []canvas.Cell
	for rows.Next() {
		var c canvas.Cell
		var ownerID sql.NullInt64
		if err := rows.Scan(&c.X, &c.Y, &c.Color, &c.PriceLevel, &ownerID, &c.IsAd, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cell: %w", err)
		}
		if ownerID.Valid {
			c.OwnerID = &ownerID.Int64
		}
		cells = append(cells, c)
	}
	return cells, rows.Err()
}

func (t *tx) AppendPlacement(ctx context.Context, rec *canvas.PlacementRecord) error {
	result, err := t.tx.ExecContext(ctx, `
		INSERT INTO placements (user_id, x, y, color, cost, was_free, is_ad, placed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.UserID, rec.X, rec.Y, rec.Color, rec.Cost, rec.WasFree, rec.IsAd, rec.PlacedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to append placement: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get placement id: %w", err)
	}
	rec.ID = id
	return nil
}

func (t *tx) CountPlacementsSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM placements WHERE placed_at >= ?
	`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count placements: %w", err)
	}
	return count, nil
}

func (t *tx) GetEpochState(ctx context.Context) (*canvas.EpochState, error) {
	var st canvas.EpochState
	err := t.tx.QueryRowContext(ctx, `
		SELECT epoch_start, last_placement, current_cap, version
		FROM epoch_state WHERE id = 1
	`).Scan(&st.EpochStart, &st.LastPlacement, &st.CurrentCap, &st.Version)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get epoch state: %w", err)
	}
	return &st, nil
}

func (t *tx) UpdateEpochState(ctx context.Context, st *canvas.EpochState) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE epoch_state
		SET epoch_start = ?, last_placement = ?, current_cap = ?, version = version + 1
		WHERE id = 1 AND version = ?
	`, st.EpochStart, st.LastPlacement, st.CurrentCap, st.Version)
	if err != nil {
		return fmt.Errorf("failed to update epoch state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrConflict
	}
	st.Version++
	return nil
}
