package xroverlay

import (
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/gogpu/xroverlay/event"
)

// Option configures an App during creation.
//
// Example:
//
//	// Keep the queue so the host can post to this app directly
//	cmds := event.NewCommands(0)
//	app, err := xroverlay.New(rt, gfx, scene, cfg, xroverlay.WithCommandQueue(cmds))
//	cmds.Post(event.Pause)
type Option func(*options)

// options holds optional configuration for App creation.
type options struct {
	tracer   trace.Tracer
	now      func() time.Time
	commands *event.Commands
}

// defaultOptions returns the default app options.
func defaultOptions() options {
	return options{
		tracer:   nil, // frame.Scheduler falls back to the global provider
		now:      time.Now,
		commands: nil, // created with event.DefaultCapacity
	}
}

// WithTracer sets the tracer recording a span per frame and per view.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithClock sets the clock used for frame-rate statistics.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithCommandQueue sets the queue the host posts lifecycle commands to.
// A queue belongs to one App: every command is consumed once, so apps
// sharing a queue would each see only part of the commands.
func WithCommandQueue(q *event.Commands) Option {
	return func(o *options) {
		o.commands = q
	}
}
