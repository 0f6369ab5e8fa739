// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package event drains runtime events into the session state machine and
// carries host lifecycle commands into the frame loop.
package event

import (
	"fmt"

	"github.com/gogpu/xroverlay/internal/xlog"
	"github.com/gogpu/xroverlay/xr"
)

// Target receives the state changes of one session.
type Target interface {
	Instance() xr.Instance
	Session() xr.Session
	OnStateChanged(state xr.SessionState)
}

// Summary describes one Drain call.
type Summary struct {
	// Events is the number of events drained.
	Events int
	// Transitions is the number of state changes applied to the target.
	Transitions int
	// LossPending is set once the runtime has announced instance loss.
	LossPending bool
}

// Pump drains one instance's event queue.
type Pump struct {
	rt       xr.EventAPI
	target   Target
	loss     bool
	lossTime xr.Time
}

// NewPump creates a pump feeding target.
func NewPump(rt xr.EventAPI, target Target) *Pump {
	return &Pump{rt: rt, target: target}
}

// Drain polls until the runtime reports an empty queue. State changes for
// the target's session are applied in arrival order; events for other
// sessions and event types the core does not interpret are discarded.
//
// On a poll failure Drain returns what it applied so far with the error.
func (p *Pump) Drain() (Summary, error) {
	log := xlog.Logger()
	var sum Summary
	for {
		ev, ok, err := p.rt.PollEvent(p.target.Instance())
		if err != nil {
			log.Warn("event: poll failed", "op", "PollEvent", "result", xr.ResultOf(err))
			sum.LossPending = p.loss
			return sum, fmt.Errorf("event: poll: %w", err)
		}
		if !ok {
			break
		}
		sum.Events++

		switch e := ev.(type) {
		case *xr.SessionStateChanged:
			if e.Session != p.target.Session() {
				log.Debug("event: state change for another session", "session", e.Session, "state", e.State)
				continue
			}
			p.target.OnStateChanged(e.State)
			sum.Transitions++
		case *xr.InstanceLossPending:
			if !p.loss {
				log.Warn("event: instance loss pending", "lossTime", e.LossTime)
			}
			p.loss = true
			p.lossTime = e.LossTime
		default:
			log.Debug("event: discarded", "type", ev.Type())
		}
	}
	sum.LossPending = p.loss
	return sum, nil
}

// LossPending reports whether the runtime has announced instance loss.
// Frames must not be scheduled once it is set.
func (p *Pump) LossPending() bool { return p.loss }

// LossTime returns the announced loss time.
func (p *Pump) LossTime() xr.Time { return p.lossTime }
