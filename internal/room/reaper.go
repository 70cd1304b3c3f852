package room

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const DefaultReapInterval = time.Hour

// Reap removes every room that has no players and has been idle longer than
// the inactivity timeout. It returns how many rooms it removed.
func (reg *Registry) Reap(now time.Time) int {
	removed := 0
	for _, r := range reg.snapshot() {
		if r.expireIfIdle(now, reg.opts.InactivityTimeout) && reg.detach(r) {
			removed++
		}
	}
	if removed > 0 {
		reg.log.Info("reaped inactive rooms", zap.Int("removed", removed), zap.Int("remaining", reg.Len()))
	}
	return removed
}

// RunReaper calls Reap every interval until ctx is done.
func (reg *Registry) RunReaper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultReapInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			reg.Reap(reg.opts.Now())
		}
	}
}
