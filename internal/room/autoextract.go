package room

import (
	"errors"
	"time"

	"github.com/mossy-p/tombola/internal/game"
	"go.uber.org/zap"
)

// autoTask is one armed auto-extract loop. A room holds at most one; the
// loop exits as soon as stop is closed or the room points at another task.
type autoTask struct {
	stop     chan struct{}
	interval time.Duration
}

// armLocked replaces any running task with a fresh one on the current
// interval.
func (r *Room) armLocked() {
	r.disarmLocked()
	task := &autoTask{stop: make(chan struct{}), interval: r.settings.AutoExtractInterval}
	r.auto = task
	go r.runAuto(task)
	r.log.Debug("auto-extract armed", zap.Duration("interval", task.interval))
}

func (r *Room) disarmLocked() {
	if r.auto == nil {
		return
	}
	close(r.auto.stop)
	r.auto = nil
	r.log.Debug("auto-extract disarmed")
}

func (r *Room) runAuto(task *autoTask) {
	ticker := time.NewTicker(task.interval)
	defer ticker.Stop()

	for {
		select {
		case <-task.stop:
			return
		case <-ticker.C:
			if !r.autoTick(task) {
				return
			}
		}
	}
}

// autoTick performs one extraction if task is still the armed one. It
// reports whether the loop should keep running.
func (r *Room) autoTick(task *autoTask) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.auto != task || r.closed || !r.gameActive || !r.autoExtract {
		return false
	}
	if _, err := r.extractLocked(); err != nil {
		if !errors.Is(err, game.ErrExhausted) {
			r.log.Warn("auto-extract failed", zap.Error(err))
		}
		r.autoExtract = false
		r.disarmLocked()
		r.broadcastAutoLocked()
		return false
	}
	if r.auto != task {
		// The draw finished the game and disarmed us.
		r.broadcastAutoLocked()
		return false
	}
	return true
}
