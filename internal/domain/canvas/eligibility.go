package canvas

import (
	"time"

	"github.com/pixelcanvas/engine/internal/config"
	"github.com/pixelcanvas/engine/internal/domain/user"
)

// FreeEligibilityEvaluator decides whether a placement is exempt from charge.
//
// The end-of-epoch rule is a deliberate approximation: the intended policy is
// "the last N placements of the epoch are free", but the engine substitutes a
// time-remaining proxy (a fixed window before the epoch boundary) for the
// placement-count proxy. The substitution is kept as-is; do not replace it
// with a count over the placement log.
type FreeEligibilityEvaluator struct {
	cfg config.Tunables
}

func NewFreeEligibilityEvaluator(cfg config.Tunables) *FreeEligibilityEvaluator {
	return &FreeEligibilityEvaluator{cfg: cfg}
}

// Evaluate returns (true, reason) when the placement is free. Rules are
// checked in order, first match wins; both are gated on the user's lifetime
// paid-placement count.
func (e *FreeEligibilityEvaluator) Evaluate(u *user.User, st *EpochState, now time.Time) (bool, FreeReason) {
	if u.LifetimePaidPlacements > e.cfg.FreeEligibilityMaxPaid {
		return false, ""
	}

	if now.Sub(st.LastPlacement) >= e.cfg.InactivityThreshold.Std() {
		return true, FreeReasonInactivity
	}

	epochEnd := st.EpochStart.Add(e.cfg.EpochLength.Std())
	if epochEnd.Sub(now) < e.cfg.EndOfEpochFreeWindow.Std() {
		return true, FreeReasonEndOfEpoch
	}

	return false, ""
}
