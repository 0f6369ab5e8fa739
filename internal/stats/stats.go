// Package stats counts submitted frames and reports a rolling frame rate.
package stats

import (
	"sync"
	"time"
)

// Window is the interval over which the frame rate is measured.
const Window = time.Second

// Counter is a frame counter. Frame is called by the loop goroutine;
// the getters are safe from any goroutine.
type Counter struct {
	mu     sync.Mutex
	now    func() time.Time
	start  time.Time
	frames int
	total  uint64
	fps    float64
}

// New creates a counter reading time from now. Nil uses time.Now.
func New(now func() time.Time) *Counter {
	if now == nil {
		now = time.Now
	}
	return &Counter{now: now}
}

// Frame counts one frame. When a full window has elapsed it updates the
// frame rate and returns it with rolled set.
func (c *Counter) Frame() (fps float64, rolled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now()
	c.total++
	if c.start.IsZero() {
		c.start = t
		return c.fps, false
	}
	c.frames++
	elapsed := t.Sub(c.start)
	if elapsed < Window {
		return c.fps, false
	}
	c.fps = float64(c.frames) / elapsed.Seconds()
	c.frames = 0
	c.start = t
	return c.fps, true
}

// FPS returns the frame rate of the last completed window.
func (c *Counter) FPS() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// Total returns the number of frames counted.
func (c *Counter) Total() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}
