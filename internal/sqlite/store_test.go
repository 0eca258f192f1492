package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pixelcanvas/engine/internal/domain/canvas"
	"github.com/pixelcanvas/engine/internal/domain/user"
	"github.com/pixelcanvas/engine/internal/repository"
)

func newTestStore(t *testing.T) (*Store, *DB) {
	t.Helper()
	db := NewTestDB(t)
	require.NoError(t, db.EnsureEpochState(context.Background(), time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), 200000))
	return NewStore(db), db
}

func TestStore_CreateAndGetUser(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	u := &user.User{Handle: "alice", Credits: 5000, CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Create(ctx, u))
	require.NotZero(t, u.ID)

	got, err := store.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Handle)
	require.Equal(t, int64(5000), got.Credits)
	require.Equal(t, int64(0), got.LifetimePaidPlacements)
}

func TestStore_DuplicateHandle(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &user.User{Handle: "bob", CreatedAt: time.Now().UTC()}))
	err := store.Create(ctx, &user.User{Handle: "bob", CreatedAt: time.Now().UTC()})
	require.ErrorIs(t, err, repository.ErrUniqueViolation)
}

func TestStore_GetUserNotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), 42)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTx_ChargeUser(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	u := &user.User{Handle: "carol", Credits: 3000, CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Create(ctx, u))

	err := store.WithTx(ctx, func(tx canvas.Tx) error {
		return tx.ChargeUser(ctx, u.ID, 1000)
	})
	require.NoError(t, err)

	got, err := store.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2000), got.Credits)
	require.Equal(t, int64(1), got.LifetimePaidPlacements)
}

func TestTx_ChargeUserInsufficientRow(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	u := &user.User{Handle: "dave", Credits: 500, CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Create(ctx, u))

	err := store.WithTx(ctx, func(tx canvas.Tx) error {
		return tx.ChargeUser(ctx, u.ID, 1000)
	})
	require.ErrorIs(t, err, repository.ErrConflict)

	// nothing changed
	got, err := store.Get(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, int64(500), got.Credits)
}

func TestTx_CellLifecycle(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	u := &user.User{Handle: "erin", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Create(ctx, u))

	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	err := store.WithTx(ctx, func(tx canvas.Tx) error {
		_, err := tx.GetCell(ctx, 3, 4)
		require.ErrorIs(t, err, repository.ErrNotFound)

		owner := u.ID
		require.NoError(t, tx.UpsertCell(ctx, &canvas.Cell{
			X: 3, Y: 4, Color: "#FF0000", PriceLevel: 1000, OwnerID: &owner, UpdatedAt: now,
		}))

		cell, err := tx.GetCell(ctx, 3, 4)
		require.NoError(t, err)
		require.Equal(t, "#FF0000", cell.Color)
		require.Equal(t, int64(1000), cell.PriceLevel)
		require.NotNil(t, cell.OwnerID)
		require.Equal(t, u.ID, *cell.OwnerID)

		// overwrite in place
		require.NoError(t, tx.UpsertCell(ctx, &canvas.Cell{
			X: 3, Y: 4, Color: "#00FF00", PriceLevel: 2000, OwnerID: &owner, IsAd: true, UpdatedAt: now,
		}))
		cell, err = tx.GetCell(ctx, 3, 4)
		require.NoError(t, err)
		require.Equal(t, "#00FF00", cell.Color)
		require.Equal(t, int64(2000), cell.PriceLevel)
		require.True(t, cell.IsAd)

		count, err := tx.CountCells(ctx)
		require.NoError(t, err)
		require.Equal(t, int64(1), count)
		return nil
	})
	require.NoError(t, err)
}

func TestTx_ResetPriceLevelsAndCounts(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	u := &user.User{Handle: "frank", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Create(ctx, u))

	now := time.Now().UTC()
	owner := u.ID
	err := store.WithTx(ctx, func(tx canvas.Tx) error {
		for i := 0; i < 3; i++ {
			require.NoError(t, tx.UpsertCell(ctx, &canvas.Cell{
				X: i, Y: 0, Color: "#112233", PriceLevel: int64(i+1) * 1000, OwnerID: &owner, UpdatedAt: now,
			}))
		}

		count, err := tx.CountCellsAtOrAbove(ctx, 2000)
		require.NoError(t, err)
		require.Equal(t, int64(2), count)

		require.NoError(t, tx.ResetPriceLevels(ctx))

		count, err = tx.CountCellsAtOrAbove(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, int64(0), count)
		return nil
	})
	require.NoError(t, err)
}

func TestTx_PlacementLog(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	u := &user.User{Handle: "grace", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Create(ctx, u))

	base := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	err := store.WithTx(ctx, func(tx canvas.Tx) error {
		for i := 0; i < 3; i++ {
			rec := &canvas.PlacementRecord{
				UserID: u.ID, X: i, Y: i, Color: "#ABCDEF",
				Cost: 1000, PlacedAt: base.Add(time.Duration(i) * time.Minute),
			}
			require.NoError(t, tx.AppendPlacement(ctx, rec))
			require.NotZero(t, rec.ID)
		}

		count, err := tx.CountPlacementsSince(ctx, base.Add(time.Minute))
		require.NoError(t, err)
		require.Equal(t, int64(2), count)
		return nil
	})
	require.NoError(t, err)
}

func TestTx_EpochStateVersioning(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx canvas.Tx) error {
		st, err := tx.GetEpochState(ctx)
		require.NoError(t, err)
		require.Equal(t, int64(0), st.Version)

		st.CurrentCap = 150000
		require.NoError(t, tx.UpdateEpochState(ctx, st))
		require.Equal(t, int64(1), st.Version)

		// A writer holding the old version must be rejected.
		stale := *st
		stale.Version = 0
		err = tx.UpdateEpochState(ctx, &stale)
		require.ErrorIs(t, err, repository.ErrConflict)
		return nil
	})
	require.NoError(t, err)
}
