// Package timesync watches wall-clock synchronization. A clock that never
// settles is one of the two deliberately fatal conditions: after a bounded
// number of failed checks the watcher restarts the whole appliance instead
// of serving a wrong clock forever.
package timesync

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/dpp/homer/internal/pkg/readiness"
)

type Status int

const (
	StatusCompleted Status = iota
	StatusInProgress
	StatusReset
)

// Checker reports the state of the underlying sync transport.
type Checker interface {
	Status() Status
}

// SystemClock treats the wall clock as synced once it has advanced past a
// known floor. Appliances boot near the epoch until sync completes, so a
// plausible date is the completion signal.
type SystemClock struct {
	Floor time.Time
}

func (c SystemClock) Status() Status {
	floor := c.Floor
	if floor.IsZero() {
		floor = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if time.Now().After(floor) {
		return StatusCompleted
	}
	return StatusReset
}

const (
	checkInterval = 7 * time.Second
	// maxResets bounds the wait to roughly 700 seconds before the restart.
	maxResets = 100
)

// Restart is the deliberate full-device restart, overridable in tests. The
// process supervisor is expected to bring the appliance back up.
var Restart = func() {
	os.Exit(1)
}

type Watcher struct {
	checker  Checker
	flags    *readiness.Flags
	logger   *zap.Logger
	interval time.Duration
	restart  func()
}

func New(checker Checker, flags *readiness.Flags) *Watcher {
	return &Watcher{
		checker:  checker,
		flags:    flags,
		logger:   zap.L(),
		interval: checkInterval,
		restart:  func() { Restart() },
	}
}

// Run polls the checker until sync completes, then sets the time-synced
// flag exactly once and returns.
func (w *Watcher) Run(ctx context.Context) error {
	resets := 0
	for {
		select {
		case <-time.After(w.interval):
		case <-ctx.Done():
			return ctx.Err()
		}
		switch w.checker.Status() {
		case StatusCompleted:
			w.flags.SetTimeSynced()
			w.logger.Info("clock synchronized")
			return nil
		case StatusInProgress:
			w.logger.Info("clock sync in progress")
		case StatusReset:
			resets++
			w.logger.Warn("clock sync reset", zap.Int("resets", resets))
			if resets > maxResets {
				w.logger.Error("clock sync failed for too long, restarting")
				w.restart()
				return nil
			}
		}
	}
}
