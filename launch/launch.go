// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package launch starts overlay applications once the base session holds
// focus. Overlays created earlier would only sit in IDLE.
package launch

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gogpu/xroverlay/internal/xlog"
)

// DefaultInterval is the focus polling interval.
const DefaultInterval = time.Second

// FocusReporter reports whether a session holds input focus.
type FocusReporter interface {
	IsFocused() bool
}

// Target is one application the launcher starts.
type Target struct {
	Name string
	// Run blocks until the application exits or ctx is done.
	Run func(ctx context.Context) error
}

// Launcher polls Focus and starts every target exactly once, the first
// time Focus reports focus.
type Launcher struct {
	Focus    FocusReporter
	Interval time.Duration
	Targets  []Target

	started atomic.Int32
}

// Started returns how many targets have been started.
func (l *Launcher) Started() int { return int(l.started.Load()) }

// Run polls until every target is started, then waits for them. It returns
// the first target error; targets share a context that is cancelled when
// any of them fails or ctx is done. A cancelled ctx is not an error.
func (l *Launcher) Run(ctx context.Context) error {
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	log := xlog.Logger()
	g, gctx := errgroup.WithContext(ctx)

	pending := l.Targets
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for len(pending) > 0 {
		if l.Focus.IsFocused() {
			for _, t := range pending {
				log.Info("launch: starting", "target", t.Name)
				g.Go(func() error {
					if err := t.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
						log.Error("launch: target failed", "target", t.Name, "error", err)
						return err
					}
					log.Info("launch: target exited", "target", t.Name)
					return nil
				})
				l.started.Add(1)
			}
			pending = nil
			break
		}
		select {
		case <-gctx.Done():
			pending = nil
		case <-ticker.C:
		}
	}
	return g.Wait()
}
