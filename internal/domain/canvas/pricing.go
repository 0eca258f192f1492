package canvas

import "github.com/pixelcanvas/engine/internal/config"

// CostCalculator turns a cell's price level into a credit cost.
type CostCalculator struct {
	cfg config.Tunables
}

func NewCostCalculator(cfg config.Tunables) *CostCalculator {
	return &CostCalculator{cfg: cfg}
}

// Price computes base_cost + level * (cost_increment / 1000), clamped to cap.
// The level is expressed in the same units as the cost increment, so each
// placement raises the cost by cost_increment/1000 credits. The /1000 scaling
// is a fixed design ratio between level units and credit units; it is not
// redundant even when increment == 1000.
func (c *CostCalculator) Price(level int64, cap int64) int64 {
	cost := c.cfg.BaseCost + level*c.cfg.CostIncrement/1000
	if cost > cap {
		cost = cap
	}
	return cost
}
