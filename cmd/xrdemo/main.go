// Command xrdemo runs a base application and its overlays against the
// simulated compositor and writes the composed display image as a PNG.
//
// Usage:
//
//	xrdemo [--profile demo.yaml] [--duration 5s] [--snapshot out.png]
//
// Without a profile it starts a base session clearing to dark grey, a
// rotating cube overlay and a quad panel overlay. Overlays are launched once
// the base session is focused, the way a shell would launch them.
package main

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/xroverlay"
	"github.com/gogpu/xroverlay/internal/profile"
	"github.com/gogpu/xroverlay/internal/telemetry"
	"github.com/gogpu/xroverlay/launch"
	"github.com/gogpu/xroverlay/render"
	"github.com/gogpu/xroverlay/xr"
	"github.com/gogpu/xroverlay/xr/sim"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "xrdemo: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	var (
		profilePath string
		backend     string
		duration    time.Duration
		snapshot    string
		logLevel    string
		otlp        string
		version     bool
	)
	fs := pflag.NewFlagSet("xrdemo", pflag.ContinueOnError)
	fs.StringVarP(&profilePath, "profile", "p", "", "YAML run profile (default: built-in three-app setup)")
	fs.StringVar(&backend, "backend", "sim", "runtime backend")
	fs.DurationVarP(&duration, "duration", "d", 0, "stop after this long (overrides the profile)")
	fs.StringVarP(&snapshot, "snapshot", "o", "", "write the composed display image to this PNG")
	fs.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	fs.StringVar(&otlp, "otlp-endpoint", "", "export frame traces to this OTLP HTTP endpoint")
	fs.BoolVar(&version, "version", false, "print the version and exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if version {
		fmt.Fprintf(stdout, "xrdemo %s\n", xroverlay.Version)
		return nil
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	p, err := profile.LoadFile(profilePath)
	if err != nil {
		return err
	}
	if fs.Changed("duration") {
		p.Duration = duration
	}
	if snapshot != "" {
		p.Snapshot = snapshot
	}
	if logLevel != "" {
		p.LogLevel = logLevel
	}
	if otlp != "" {
		p.OTLPEndpoint = otlp
	}

	level := slog.LevelInfo
	if p.LogLevel != "" {
		if err := level.UnmarshalText([]byte(p.LogLevel)); err != nil {
			return fmt.Errorf("log level: %w", err)
		}
	}
	xroverlay.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if p.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Duration)
		defer cancel()
	}

	shutdown, err := telemetry.Setup(ctx, "xrdemo", p.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			xroverlay.Logger().Warn("xrdemo: trace shutdown", "error", err)
		}
	}()

	c := sim.New(simOptions(p.Runtime)...)
	xr.Register("sim", 0, c.Factory(), nil)
	rt, err := xr.ConnectByName(backend)
	if err != nil {
		return err
	}

	apps, err := newApps(rt, p.Apps)
	if err != nil {
		return err
	}
	if err := supervise(ctx, apps, p.LaunchInterval); err != nil {
		return err
	}

	if p.Snapshot != "" {
		if err := writePNG(p.Snapshot, c); err != nil {
			return err
		}
	}
	report(stdout, apps)
	return nil
}

func newApps(rt xr.Runtime, entries []profile.App) ([]*xroverlay.App, error) {
	apps := make([]*xroverlay.App, 0, len(entries))
	for _, e := range entries {
		cfg, scene, err := appConfig(e)
		if err != nil {
			return nil, err
		}
		app, err := xroverlay.New(rt, &render.HeadlessContext{}, scene, cfg)
		if err != nil {
			return nil, fmt.Errorf("app %q: %w", e.Name, err)
		}
		apps = append(apps, app)
	}
	return apps, nil
}

// supervise runs the first app as the base session and launches the rest
// once it is focused. Everything stops when the base app ends or ctx is done.
func supervise(ctx context.Context, apps []*xroverlay.App, interval time.Duration) error {
	base := apps[0]
	l := &launch.Launcher{Focus: base, Interval: interval}
	for _, app := range apps[1:] {
		l.Targets = append(l.Targets, launch.Target{Name: app.Name(), Run: app.Run})
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gctx)
	defer cancel()
	g.Go(func() error {
		defer cancel()
		return base.Run(runCtx)
	})
	g.Go(func() error { return l.Run(runCtx) })
	return g.Wait()
}

func writePNG(path string, c *sim.Compositor) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return png.Encode(f, c.Snapshot())
}

func report(w io.Writer, apps []*xroverlay.App) {
	p := message.NewPrinter(language.English)
	for _, app := range apps {
		st := app.Stats()
		p.Fprintf(w, "%-8s %8d frames %7.1f fps  %v\n", app.Name(), st.Frames, st.FPS, st.State)
	}
}
