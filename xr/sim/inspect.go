// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package sim

import (
	"slices"

	"github.com/gogpu/xroverlay/xr"
)

// Call is one entry of the compositor's call log.
type Call struct {
	Op     string
	Handle uint64
	Result xr.Result
}

// Fault makes matching runtime calls fail.
type Fault struct {
	// Op is the method name, e.g. "AcquireSwapchainImage".
	Op string

	// Handle restricts the fault to calls on one handle. Zero matches any.
	Handle uint64

	// Result is returned instead of performing the call.
	Result xr.Result

	// Times is how many calls fail before the fault clears. Zero means the
	// fault never clears.
	Times int
}

type fault struct {
	Fault
	remaining int
}

// Inject installs a fault. Faults are checked in installation order.
func (c *Compositor) Inject(f Fault) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faults = append(c.faults, &fault{Fault: f, remaining: f.Times})
}

// ClearFaults removes every installed fault.
func (c *Compositor) ClearFaults() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faults = nil
}

// fault must be called with the lock held.
func (c *Compositor) fault(op string, handle uint64) error {
	for i, f := range c.faults {
		if f.Op != op || (f.Handle != 0 && f.Handle != handle) {
			continue
		}
		if f.Times > 0 {
			f.remaining--
			if f.remaining == 0 {
				c.faults = slices.Delete(c.faults, i, i+1)
			}
		}
		return f.Result
	}
	return nil
}

// record must be called with the lock held.
func (c *Compositor) record(op string, handle uint64, err error) {
	if limit := c.cfg.callLogLimit; limit > 0 && len(c.calls) >= limit {
		c.calls = append(c.calls[:0], c.calls[len(c.calls)/2:]...)
	}
	c.calls = append(c.calls, Call{Op: op, Handle: handle, Result: xr.ResultOf(err)})
}

// Calls returns a copy of the call log.
func (c *Compositor) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.calls)
}

// Count returns how many times op was called.
func (c *Compositor) Count(op string) int {
	return c.count(op, func(Call) bool { return true })
}

// Succeeded returns how many calls to op did not fail.
func (c *Compositor) Succeeded(op string) int {
	return c.count(op, func(call Call) bool { return !call.Result.Failed() })
}

func (c *Compositor) count(op string, match func(Call) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call.Op == op && match(call) {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (c *Compositor) ResetCalls() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
}

// State returns a session's current state.
func (c *Compositor) State(h xr.Session) (xr.SessionState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[h]
	if !ok {
		return xr.SessionStateUnknown, false
	}
	return s.state, true
}

// Frames returns how many frames a session has ended.
func (c *Compositor) Frames(h xr.Session) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[h]; ok {
		return s.frames
	}
	return 0
}

// LastFrame returns the last FrameEndInfo a session submitted.
func (c *Compositor) LastFrame(h xr.Session) (xr.FrameEndInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[h]
	if !ok || s.frames == 0 {
		return xr.FrameEndInfo{}, false
	}
	return s.lastEnd, true
}

// Outstanding returns how many swapchains hold an acquired, unreleased
// image.
func (c *Compositor) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, chain := range c.swapchains {
		if chain.acquired >= 0 {
			n++
		}
	}
	return n
}

// Live reports how many instances, sessions, spaces and swapchains exist.
func (c *Compositor) Live() (instances, sessions, spaces, swapchains int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.instances), len(c.sessions), len(c.spaces), len(c.swapchains)
}
