package canvas

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pixelcanvas/engine/internal/config"
	"github.com/pixelcanvas/engine/internal/metrics"
)

// EpochManager tracks the weekly pricing epoch. Rollover is lazy: there is no
// background timer, the check runs at the start of every transaction, so an
// epoch that expires while the engine is idle only becomes visible on the
// next read or write.
type EpochManager struct {
	cfg    config.Tunables
	logger *slog.Logger
}

func NewEpochManager(cfg config.Tunables, logger *slog.Logger) *EpochManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &EpochManager{cfg: cfg, logger: logger}
}

// Reconcile loads the epoch state and, if the epoch has expired, resets every
// cell's price level to zero, restarts the epoch at now and restores the
// initial cap. It returns the current (possibly reset) state. Rollover is
// idempotent: a second call with the same clock is a no-op because the fresh
// epoch_start no longer satisfies the age check.
func (m *EpochManager) Reconcile(ctx context.Context, tx Tx, now time.Time) (*EpochState, bool, error) {
	st, err := tx.GetEpochState(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("loading epoch state: %w", err)
	}

	if now.Sub(st.EpochStart) < m.cfg.EpochLength.Std() {
		return st, false, nil
	}

	if err := tx.ResetPriceLevels(ctx); err != nil {
		return nil, false, fmt.Errorf("resetting price levels: %w", err)
	}

	st.EpochStart = now
	st.CurrentCap = m.cfg.InitialCap
	if err := tx.UpdateEpochState(ctx, st); err != nil {
		return nil, false, fmt.Errorf("writing epoch state: %w", err)
	}

	metrics.EpochRolloversTotal.Inc()
	metrics.CurrentCap.Set(float64(st.CurrentCap))
	m.logger.Info("epoch rolled over", "epoch_start", st.EpochStart, "cap", st.CurrentCap)
	return st, true, nil
}
