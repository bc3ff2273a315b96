package infrastructure

import (
	"context"
	"fmt"
	"time"
)

// BlockTicker derives a monotonic block counter from wall-clock time:
// one block per interval since the ticker's epoch. It backs the
// lock and cooldown windows when no external chain supplies a counter.
type BlockTicker struct {
	epoch    time.Time
	interval time.Duration
	now      func() time.Time
}

// NewBlockTicker creates a ticker starting at block 0 now.
func NewBlockTicker(interval time.Duration) (*BlockTicker, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("block interval must be positive, got %s", interval)
	}
	return &BlockTicker{
		epoch:    time.Now(),
		interval: interval,
		now:      time.Now,
	}, nil
}

// CurrentBlock returns the number of whole intervals elapsed since the
// epoch.
func (t *BlockTicker) CurrentBlock(ctx context.Context) (int64, error) {
	return int64(t.now().Sub(t.epoch) / t.interval), nil
}
