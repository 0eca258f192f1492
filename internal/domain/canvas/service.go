package canvas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pixelcanvas/engine/internal/config"
	"github.com/pixelcanvas/engine/internal/domain/user"
	"github.com/pixelcanvas/engine/internal/metrics"
	"github.com/pixelcanvas/engine/internal/ratelimit"
	"github.com/pixelcanvas/engine/internal/repository"
	"github.com/pixelcanvas/engine/internal/retry"
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Service coordinates one placement end-to-end: validation, rate limiting,
// epoch reconciliation, pricing, eligibility, the atomic commit, and the
// best-effort cap adjustment that follows it.
type Service struct {
	cfg     config.Tunables
	store   Store
	limiter *ratelimit.Limiter
	epochs  *EpochManager
	pricer  *CostCalculator
	elig    *FreeEligibilityEvaluator
	caps    *CapAdjuster
	logger  *slog.Logger

	clock     func() time.Time
	retryOpts retry.Options
}

// NewService creates the placement coordinator.
func NewService(cfg config.Tunables, store Store, limiter *ratelimit.Limiter, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	retryOpts := retry.DefaultOptions()
	retryOpts.Classifier = func(err error) bool {
		return errors.Is(err, repository.ErrConflict)
	}
	s := &Service{
		cfg:       cfg,
		store:     store,
		limiter:   limiter,
		epochs:    NewEpochManager(cfg, logger),
		pricer:    NewCostCalculator(cfg),
		elig:      NewFreeEligibilityEvaluator(cfg),
		caps:      NewCapAdjuster(cfg, store, logger),
		logger:    logger,
		// all stored timestamps are UTC so SQL range comparisons on the
		// placement log stay well ordered
		clock:     func() time.Time { return time.Now().UTC() },
		retryOpts: retryOpts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Place applies one placement request. The rate check runs before the
// transaction and is never rolled back; everything else commits atomically or
// not at all. Write conflicts are retried a bounded number of times.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (*PlaceResult, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	if !s.limiter.Allow(req.UserID, s.clock()) {
		metrics.RateLimitedTotal.Inc()
		return nil, fmt.Errorf("%w: wait %s between placements", ErrRateLimited, s.cfg.RateLimitInterval.Std())
	}

	timer := prometheus.NewTimer(metrics.PlacementLatency)
	defer timer.ObserveDuration()

	var res *PlaceResult
	attempt := 0
	err := retry.Do(ctx, func() error {
		attempt++
		if attempt > 1 {
			metrics.ConflictRetriesTotal.Inc()
		}
		return s.store.WithTx(ctx, func(tx Tx) error {
			r, err := s.placeTx(ctx, tx, req, s.clock())
			if err != nil {
				return err
			}
			res = r
			return nil
		})
	}, s.retryOpts)
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			metrics.InsufficientFundsTotal.Inc()
		}
		return nil, err
	}

	metrics.PlacementsTotal.Inc()
	if res.WasFree {
		metrics.FreePlacementsTotal.Inc()
	}
	s.logger.Debug("placement committed",
		"user_id", req.UserID, "x", req.X, "y", req.Y,
		"cost", res.Cost, "free", res.WasFree)

	// The placement is already the user-facing contract; a failed cap check
	// is logged and dropped, never rolled back into the commit above.
	if err := s.caps.MaybeLower(ctx); err != nil {
		s.logger.Warn("cap adjustment failed", "error", err)
	}

	return res, nil
}

func (s *Service) placeTx(ctx context.Context, tx Tx, req PlaceRequest, now time.Time) (*PlaceResult, error) {
	u, err := tx.GetUser(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("loading user: %w", err)
	}

	// Pricing must see the correct epoch, so reconcile before anything else
	// reads levels or the cap.
	st, _, err := s.epochs.Reconcile(ctx, tx, now)
	if err != nil {
		return nil, err
	}

	var level int64
	cell, err := tx.GetCell(ctx, req.X, req.Y)
	switch {
	case err == nil:
		level = cell.PriceLevel
	case errors.Is(err, repository.ErrNotFound):
		// virgin cell, level stays zero
	default:
		return nil, fmt.Errorf("loading cell: %w", err)
	}

	free, reason := s.elig.Evaluate(u, st, now)

	var cost int64
	newBalance := u.Credits
	if !free {
		cost = s.pricer.Price(level, st.CurrentCap)
		if u.Credits < cost {
			return nil, fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, cost, u.Credits)
		}
		if err := tx.ChargeUser(ctx, u.ID, cost); err != nil {
			return nil, fmt.Errorf("charging user: %w", err)
		}
		newBalance = u.Credits - cost
	}

	// The level advances on every placement, free or paid: it tracks
	// scarcity of the cell, not who paid for it.
	owner := u.ID
	if err := tx.UpsertCell(ctx, &Cell{
		X:          req.X,
		Y:          req.Y,
		Color:      req.Color,
		PriceLevel: level + s.cfg.CostIncrement,
		OwnerID:    &owner,
		IsAd:       req.IsAd,
		UpdatedAt:  now,
	}); err != nil {
		return nil, fmt.Errorf("writing cell: %w", err)
	}

	if err := tx.AppendPlacement(ctx, &PlacementRecord{
		UserID:   u.ID,
		X:        req.X,
		Y:        req.Y,
		Color:    req.Color,
		Cost:     cost,
		WasFree:  free,
		IsAd:     req.IsAd,
		PlacedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("appending placement record: %w", err)
	}

	st.LastPlacement = now
	if err := tx.UpdateEpochState(ctx, st); err != nil {
		return nil, fmt.Errorf("updating last placement time: %w", err)
	}

	message := "pixel placed"
	if free {
		message = fmt.Sprintf("pixel placed (free: %s)", reason)
	}

	return &PlaceResult{
		Success:    true,
		Cost:       cost,
		WasFree:    free,
		FreeReason: reason,
		NewBalance: newBalance,
		Message:    message,
	}, nil
}

func (s *Service) validate(req PlaceRequest) error {
	if req.X < 0 || req.X >= s.cfg.BoardSize || req.Y < 0 || req.Y >= s.cfg.BoardSize {
		return fmt.Errorf("%w: coordinates (%d,%d) out of range [0,%d)", ErrInvalidInput, req.X, req.Y, s.cfg.BoardSize)
	}
	if !colorPattern.MatchString(req.Color) {
		return fmt.Errorf("%w: color must match #RRGGBB", ErrInvalidInput)
	}
	return nil
}

// Board returns a snapshot of all placed cells. It reconciles the epoch
// first so a boundary that passed silently never shows stale price levels.
func (s *Service) Board(ctx context.Context) (*BoardSnapshot, error) {
	now := s.clock()
	var snap *BoardSnapshot
	err := s.store.WithTx(ctx, func(tx Tx) error {
		if _, _, err := s.epochs.Reconcile(ctx, tx, now); err != nil {
			return err
		}
		cells, err := tx.ListCells(ctx)
		if err != nil {
			return fmt.Errorf("listing cells: %w", err)
		}
		snap = &BoardSnapshot{
			Width:  s.cfg.BoardSize,
			Height: s.cfg.BoardSize,
			Cells:  cells,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Stats returns aggregate counters derived from the epoch state and the
// placement log. Read-only.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	var stats *Stats
	err := s.store.WithTx(ctx, func(tx Tx) error {
		st, err := tx.GetEpochState(ctx)
		if err != nil {
			return fmt.Errorf("loading epoch state: %w", err)
		}
		total, err := tx.CountCells(ctx)
		if err != nil {
			return fmt.Errorf("counting cells: %w", err)
		}
		epochPlacements, err := tx.CountPlacementsSince(ctx, st.EpochStart)
		if err != nil {
			return fmt.Errorf("counting epoch placements: %w", err)
		}
		stats = &Stats{
			BoardSize:        s.cfg.BoardSize,
			TotalCellsPlaced: total,
			EpochPlacements:  epochPlacements,
			EpochStart:       st.EpochStart,
			LastPlacement:    st.LastPlacement,
			CurrentCap:       st.CurrentCap,
			CurrentCapUSD:    float64(st.CurrentCap) / 100000,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
