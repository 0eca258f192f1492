package canvas

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pixelcanvas/engine/internal/config"
	"github.com/pixelcanvas/engine/internal/metrics"
)

// CapAdjuster lowers the global price cap once enough cells have priced up to
// it. It runs after each committed placement in its own small transaction, so
// the count reflects the just-written state. The cap only moves one way
// within an epoch; re-applying the lowered value is harmless, which is why
// concurrent adjusters are allowed to race.
type CapAdjuster struct {
	cfg    config.Tunables
	store  Store
	logger *slog.Logger
}

func NewCapAdjuster(cfg config.Tunables, store Store, logger *slog.Logger) *CapAdjuster {
	if logger == nil {
		logger = slog.Default()
	}
	return &CapAdjuster{cfg: cfg, store: store, logger: logger}
}

// MaybeLower checks the trigger condition and lowers the cap if met. Only
// meaningful while the cap is still at its initial value.
func (a *CapAdjuster) MaybeLower(ctx context.Context) error {
	return a.store.WithTx(ctx, func(tx Tx) error {
		st, err := tx.GetEpochState(ctx)
		if err != nil {
			return fmt.Errorf("loading epoch state: %w", err)
		}
		if st.CurrentCap != a.cfg.InitialCap {
			return nil
		}

		// A cell counts as "at cap" once its level reaches
		// cap / increment * 1000, the level at which the clamp engages.
		threshold := st.CurrentCap / a.cfg.CostIncrement * 1000
		count, err := tx.CountCellsAtOrAbove(ctx, threshold)
		if err != nil {
			return fmt.Errorf("counting capped cells: %w", err)
		}
		if count < a.cfg.CapTriggerCount {
			return nil
		}

		st.CurrentCap = a.cfg.LoweredCap
		if err := tx.UpdateEpochState(ctx, st); err != nil {
			return fmt.Errorf("lowering cap: %w", err)
		}

		metrics.CapLoweredTotal.Inc()
		metrics.CurrentCap.Set(float64(st.CurrentCap))
		a.logger.Info("price cap lowered", "cap", st.CurrentCap, "capped_cells", count)
		return nil
	})
}
