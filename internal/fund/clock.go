package fund

import (
	"sync"
	"time"

	"github.com/fund-engine/internal/types"
)

// Clock supplies the host ledger's height, a monotonically increasing
// logical counter. The engine never advances it.
type Clock interface {
	Height() types.Height
}

// IntervalClock derives height from wall time at a fixed block cadence,
// counting from a genesis instant. Heights before genesis are 0.
type IntervalClock struct {
	genesis  time.Time
	interval time.Duration
}

// NewIntervalClock creates a clock ticking one height per interval since genesis
func NewIntervalClock(genesis time.Time, interval time.Duration) *IntervalClock {
	if interval <= 0 {
		interval = time.Minute
	}
	return &IntervalClock{genesis: genesis, interval: interval}
}

// Height returns the current derived height
func (c *IntervalClock) Height() types.Height {
	elapsed := time.Since(c.genesis)
	if elapsed < 0 {
		return 0
	}
	return types.Height(elapsed / c.interval)
}

// ManualClock is a test clock advanced explicitly.
type ManualClock struct {
	mu sync.Mutex
	h  types.Height
}

// NewManualClock creates a manual clock at the given height
func NewManualClock(h types.Height) *ManualClock {
	return &ManualClock{h: h}
}

// Height returns the current height
func (c *ManualClock) Height() types.Height {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.h
}

// Advance moves the clock forward by delta heights
func (c *ManualClock) Advance(delta types.Height) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.h += delta
}

// SetHeight sets the clock to an absolute height
func (c *ManualClock) SetHeight(h types.Height) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.h = h
}
