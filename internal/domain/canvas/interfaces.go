package canvas

import (
	"context"
	"time"

	"github.com/pixelcanvas/engine/internal/domain/user"
)

// Store provides atomic multi-row transactions over the canvas state.
// WithTx runs fn inside one transaction with write-conflict detection:
// colliding writers surface repository.ErrConflict and the whole fn may be
// retried by the caller.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx exposes the row operations available inside a transaction. All reads
// observe the transaction's own prior writes.
type Tx interface {
	GetUser(ctx context.Context, id int64) (*user.User, error)
	// ChargeUser debits credits and increments lifetime_paid_placements.
	ChargeUser(ctx context.Context, id int64, cost int64) error

	GetCell(ctx context.Context, x, y int) (*Cell, error)
	UpsertCell(ctx context.Context, cell *Cell) error
	ResetPriceLevels(ctx context.Context) error
	CountCellsAtOrAbove(ctx context.Context, level int64) (int64, error)
	CountCells(ctx context.Context) (int64, error)
	ListCells(ctx context.Context) ([]Cell, error)

	AppendPlacement(ctx context.Context, rec *PlacementRecord) error
	CountPlacementsSince(ctx context.Context, since time.Time) (int64, error)

	GetEpochState(ctx context.Context) (*EpochState, error)
	// UpdateEpochState writes st if the stored version still matches
	// st.Version, then bumps st.Version; otherwise repository.ErrConflict.
	UpdateEpochState(ctx context.Context, st *EpochState) error
}
