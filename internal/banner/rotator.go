// Package banner rotates the dashboard promotions while a screen is open.
package banner

import (
	"context"
	"time"
)

// DefaultInterval is how long each banner stays visible.
const DefaultInterval = 4 * time.Second

// Rotator cycles through banner indexes on a fixed interval.
type Rotator struct {
	interval time.Duration
}

// NewRotator returns a rotator; a non-positive interval falls back to DefaultInterval.
func NewRotator(interval time.Duration) *Rotator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Rotator{interval: interval}
}

// Interval reports the rotation period.
func (r *Rotator) Interval() time.Duration { return r.interval }

// Run calls fn with the next index every interval, wrapping after count-1.
// It returns immediately when there is nothing to rotate, and otherwise runs
// until ctx is cancelled or fn fails. The ticker is always released.
func (r *Rotator) Run(ctx context.Context, count int, fn func(index int) error) error {
	if count <= 1 {
		return nil
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	index := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			index = (index + 1) % count
			if err := fn(index); err != nil {
				return err
			}
		}
	}
}
