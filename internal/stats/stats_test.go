package stats

import (
	"math"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestCounter(t *testing.T) {
	clk := &fakeClock{t: time.Unix(100, 0)}
	c := New(clk.now)

	if _, rolled := c.Frame(); rolled {
		t.Fatal("first frame should not roll")
	}
	for i := 0; i < 89; i++ {
		clk.t = clk.t.Add(10 * time.Millisecond)
		if _, rolled := c.Frame(); rolled {
			t.Fatalf("rolled early at frame %d", i)
		}
	}
	clk.t = clk.t.Add(110 * time.Millisecond)
	fps, rolled := c.Frame()
	if !rolled {
		t.Fatal("window did not roll after one second")
	}
	if math.Abs(fps-90) > 1e-9 {
		t.Errorf("fps = %v, want 90", fps)
	}
	if c.FPS() != fps {
		t.Errorf("FPS() = %v, want %v", c.FPS(), fps)
	}
	if c.Total() != 91 {
		t.Errorf("Total() = %d, want 91", c.Total())
	}

	clk.t = clk.t.Add(10 * time.Millisecond)
	if got, rolled := c.Frame(); rolled || got != fps {
		t.Errorf("Frame() after roll = %v, %v", got, rolled)
	}
}

func TestCounterDefaultClock(t *testing.T) {
	c := New(nil)
	c.Frame()
	if c.Total() != 1 || c.FPS() != 0 {
		t.Errorf("Total() = %d, FPS() = %v", c.Total(), c.FPS())
	}
}
