// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package event

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrQueueFull is returned by Post when the command queue is at capacity.
var ErrQueueFull = errors.New("event: command queue full")

// DefaultCapacity is the command queue size used when none is given.
const DefaultCapacity = 16

// Command is a host lifecycle notification.
type Command int

// Host commands.
const (
	// Resume re-enables frame scheduling after Pause.
	Resume Command = iota + 1
	// Pause suspends frame scheduling; events are still drained.
	Pause
	// TermWindow reports that the host surface is gone. The loop stops
	// after the current iteration.
	TermWindow
	// Destroy ends the loop after the current iteration and tears down.
	Destroy
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case Resume:
		return "resume"
	case Pause:
		return "pause"
	case TermWindow:
		return "term-window"
	case Destroy:
		return "destroy"
	default:
		return fmt.Sprintf("Command(%d)", int(c))
	}
}

// Terminal reports whether c ends the loop.
func (c Command) Terminal() bool { return c == TermWindow || c == Destroy }

// Commands is a bounded queue of host commands. Post may be called from any
// goroutine; the loop consumes commands once per iteration. Each command is
// delivered to exactly one consumer, so a queue serves a single loop.
type Commands struct {
	ch chan Command
}

// NewCommands creates a queue holding up to capacity commands. A
// non-positive capacity selects DefaultCapacity.
func NewCommands(capacity int) *Commands {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Commands{ch: make(chan Command, capacity)}
}

// Post enqueues c without blocking.
func (q *Commands) Post(c Command) error {
	select {
	case q.ch <- c:
		return nil
	default:
		return fmt.Errorf("%w: dropping %v", ErrQueueFull, c)
	}
}

// Next dequeues a command without blocking.
func (q *Commands) Next() (Command, bool) {
	select {
	case c := <-q.ch:
		return c, true
	default:
		return 0, false
	}
}

// Wait dequeues a command, blocking for at most timeout or until ctx is
// done.
func (q *Commands) Wait(ctx context.Context, timeout time.Duration) (Command, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case c := <-q.ch:
		return c, true
	case <-timer.C:
		return 0, false
	case <-ctx.Done():
		return 0, false
	}
}

// Len returns the number of queued commands.
func (q *Commands) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *Commands) Cap() int { return cap(q.ch) }
