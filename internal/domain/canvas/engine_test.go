package canvas_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pixelcanvas/engine/internal/config"
	"github.com/pixelcanvas/engine/internal/domain/canvas"
	"github.com/pixelcanvas/engine/internal/domain/user"
	"github.com/pixelcanvas/engine/internal/ratelimit"
	"github.com/pixelcanvas/engine/internal/sqlite"
)

var epochStart = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testTunables() config.Tunables {
	cfg := config.DefaultTunables()
	cfg.BoardSize = 16
	cfg.InitialCap = 5000
	cfg.LoweredCap = 3000
	cfg.CapTriggerCount = 2
	return cfg
}

type engine struct {
	svc   *canvas.Service
	store *sqlite.Store
	clock *fakeClock
	cfg   config.Tunables
}

func newTestEngine(t *testing.T, cfg config.Tunables) *engine {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.RunMigrations())

	clock := newFakeClock(epochStart)
	require.NoError(t, db.EnsureEpochState(context.Background(), clock.Now(), cfg.InitialCap))

	store := sqlite.NewStore(db)
	limiter := ratelimit.New(cfg.RateLimitInterval.Std())
	svc := canvas.NewService(cfg, store, limiter, nil, canvas.WithClock(clock.Now))

	return &engine{svc: svc, store: store, clock: clock, cfg: cfg}
}

func (e *engine) newUser(t *testing.T, handle string, credits int64) *user.User {
	t.Helper()
	u := &user.User{Handle: handle, Credits: credits, CreatedAt: e.clock.Now()}
	require.NoError(t, e.store.Create(context.Background(), u))
	return u
}

// place advances the clock past the rate-limit interval first, so back-to-back
// placements in tests are never rejected for pacing.
func (e *engine) place(t *testing.T, userID int64, x, y int) (*canvas.PlaceResult, error) {
	t.Helper()
	e.clock.Advance(e.cfg.RateLimitInterval.Std() + time.Second)
	return e.svc.Place(context.Background(), canvas.PlaceRequest{
		UserID: userID, X: x, Y: y, Color: "#336699",
	})
}

func (e *engine) cellLevel(t *testing.T, x, y int) int64 {
	t.Helper()
	var level int64 = -1
	err := e.store.WithTx(context.Background(), func(tx canvas.Tx) error {
		cell, err := tx.GetCell(context.Background(), x, y)
		if err != nil {
			return err
		}
		level = cell.PriceLevel
		return nil
	})
	require.NoError(t, err)
	return level
}

func (e *engine) epochState(t *testing.T) *canvas.EpochState {
	t.Helper()
	var st *canvas.EpochState
	err := e.store.WithTx(context.Background(), func(tx canvas.Tx) error {
		var err error
		st, err = tx.GetEpochState(context.Background())
		return err
	})
	require.NoError(t, err)
	return st
}
