package canvas

import "time"

// Cell is one grid position. PriceLevel is a scarcity counter: it advances by
// the configured cost increment on every placement, paid or free, and resets
// to zero at each epoch rollover.
type Cell struct {
	X          int       `json:"x"`
	Y          int       `json:"y"`
	Color      string    `json:"color"`
	PriceLevel int64     `json:"price_level"`
	OwnerID    *int64    `json:"owner_id,omitempty"`
	IsAd       bool      `json:"is_ad"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PlacementRecord is an append-only audit entry, one per successful placement.
// Ordering by PlacedAt with ID as tie-break is load-bearing: epoch counts and
// idle-time checks derive from it.
type PlacementRecord struct {
	ID       int64     `json:"id"`
	UserID   int64     `json:"user_id"`
	X        int       `json:"x"`
	Y        int       `json:"y"`
	Color    string    `json:"color"`
	Cost     int64     `json:"cost"`
	WasFree  bool      `json:"was_free"`
	IsAd     bool      `json:"is_ad"`
	PlacedAt time.Time `json:"placed_at"`
}

// EpochState is the singleton row of global mutable pricing state. It is
// read-modify-written inside every placement transaction, never cached across
// requests; Version backs the optimistic concurrency check on updates.
type EpochState struct {
	EpochStart    time.Time `json:"epoch_start"`
	LastPlacement time.Time `json:"last_placement_time"`
	CurrentCap    int64     `json:"current_cap"`
	Version       int64     `json:"-"`
}

// PlaceRequest describes one placement attempt.
type PlaceRequest struct {
	UserID int64  `json:"user_id"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Color  string `json:"color"`
	IsAd   bool   `json:"is_ad"`
}

// FreeReason explains why a placement was exempt from charge.
type FreeReason string

const (
	FreeReasonInactivity FreeReason = "inactivity"
	FreeReasonEndOfEpoch FreeReason = "end_of_epoch"
)

// PlaceResult is the outcome of a successful placement.
type PlaceResult struct {
	Success    bool       `json:"success"`
	Cost       int64      `json:"cost"`
	WasFree    bool       `json:"was_free"`
	FreeReason FreeReason `json:"free_reason,omitempty"`
	NewBalance int64      `json:"new_balance"`
	Message    string     `json:"message"`
}

// BoardSnapshot is the read-only view of all placed cells.
type BoardSnapshot struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Cells  []Cell `json:"cells"`
}

// Stats aggregates global counters for the stats query.
type Stats struct {
	BoardSize        int       `json:"board_size"`
	TotalCellsPlaced int64     `json:"total_cells_placed"`
	EpochPlacements  int64     `json:"epoch_placements"`
	EpochStart       time.Time `json:"epoch_start"`
	LastPlacement    time.Time `json:"last_placement_time"`
	CurrentCap       int64     `json:"current_cap_credits"`
	CurrentCapUSD    float64   `json:"current_cap_dollars"`
}
