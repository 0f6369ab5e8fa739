// Package profile loads the demo's run profile: which apps to start against
// the simulated runtime and how. A YAML file is decoded over the defaults and
// XROVERLAY_* environment variables override single settings.
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Runtime configures the simulated compositor.
type Runtime struct {
	FramePeriod time.Duration `yaml:"frame_period" env:"XROVERLAY_FRAME_PERIOD"`
	ViewWidth   uint32        `yaml:"view_width"   env:"XROVERLAY_VIEW_WIDTH"`
	ViewHeight  uint32        `yaml:"view_height"  env:"XROVERLAY_VIEW_HEIGHT"`
	Mono        bool          `yaml:"mono"         env:"XROVERLAY_MONO"`
	// NoOverlay hides the overlay extension, as on runtimes without it.
	NoOverlay   bool `yaml:"no_overlay"   env:"XROVERLAY_NO_OVERLAY"`
	PreviewSize int  `yaml:"preview_size" env:"XROVERLAY_PREVIEW_SIZE"`
}

// App describes one application session.
type App struct {
	Name      string   `yaml:"name"`
	Role      string   `yaml:"role"`  // base or overlay
	Layer     string   `yaml:"layer"` // projection or quad
	Scene     string   `yaml:"scene"` // clear, panel or cube
	Color     string   `yaml:"color"` // #RRGGBB or #RRGGBBAA
	Width     uint32   `yaml:"width"`
	Height    uint32   `yaml:"height"`
	Placement uint32   `yaml:"placement"`
	Blend     []string `yaml:"blend"`
	Depth     bool     `yaml:"depth"`
}

// Profile is a complete demo run.
type Profile struct {
	Runtime Runtime `yaml:"runtime"`

	// Duration bounds the run. Zero runs until interrupted.
	Duration       time.Duration `yaml:"duration"        env:"XROVERLAY_DURATION"`
	LaunchInterval time.Duration `yaml:"launch_interval" env:"XROVERLAY_LAUNCH_INTERVAL"`
	LogLevel       string        `yaml:"log_level"       env:"XROVERLAY_LOG_LEVEL"`
	Snapshot       string        `yaml:"snapshot"        env:"XROVERLAY_SNAPSHOT"`
	OTLPEndpoint   string        `yaml:"otlp_endpoint"   env:"XROVERLAY_OTLP_ENDPOINT"`

	Apps []App `yaml:"apps"`
}

// Default returns the classic three-app setup: a base session clearing to
// dark grey, a rotating cube overlay and a green quad panel.
func Default() Profile {
	return Profile{
		Runtime: Runtime{
			FramePeriod: time.Second / 90,
			ViewWidth:   1440,
			ViewHeight:  1584,
			PreviewSize: 512,
		},
		Duration:       3 * time.Second,
		LaunchInterval: 100 * time.Millisecond,
		LogLevel:       "info",
		Apps: []App{
			{Name: "base", Role: "base", Layer: "projection", Scene: "clear", Color: "#333333ff"},
			{Name: "cube", Role: "overlay", Layer: "projection", Scene: "cube", Placement: 1, Depth: true},
			{Name: "panel", Role: "overlay", Layer: "quad", Scene: "panel", Width: 512, Height: 512, Placement: 2},
		},
	}
}

// LoadFile decodes path over Default and applies environment overrides.
// An apps list in the file replaces the default apps. An empty path loads
// the defaults.
func LoadFile(path string) (Profile, error) {
	p := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Profile{}, fmt.Errorf("profile: %w", err)
		}
		if err := Parse(data, &p); err != nil {
			return Profile{}, err
		}
	}
	if err := env.Parse(&p); err != nil {
		return Profile{}, fmt.Errorf("profile: parse env: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Parse decodes YAML into p. Unknown keys are rejected.
func Parse(data []byte, p *Profile) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil {
		return fmt.Errorf("profile: decode: %w", err)
	}
	return nil
}

// Validate checks the profile for settings the demo cannot run.
func (p Profile) Validate() error {
	var errs []error
	if len(p.Apps) == 0 {
		errs = append(errs, errors.New("profile: no apps"))
	} else if p.Apps[0].Role != "base" {
		errs = append(errs, errors.New("profile: the first app must be the base session"))
	}
	names := make(map[string]bool, len(p.Apps))
	for i, a := range p.Apps {
		if a.Name == "" {
			errs = append(errs, fmt.Errorf("profile: app %d has no name", i))
		} else if names[a.Name] {
			errs = append(errs, fmt.Errorf("profile: duplicate app %q", a.Name))
		}
		names[a.Name] = true
		if a.Role != "base" && a.Role != "overlay" {
			errs = append(errs, fmt.Errorf("profile: app %q: role %q", a.Name, a.Role))
		}
		if a.Layer != "" && a.Layer != "projection" && a.Layer != "quad" {
			errs = append(errs, fmt.Errorf("profile: app %q: layer %q", a.Name, a.Layer))
		}
		switch a.Scene {
		case "", "clear", "panel", "cube":
		default:
			errs = append(errs, fmt.Errorf("profile: app %q: scene %q", a.Name, a.Scene))
		}
		if a.Color != "" {
			if _, err := ParseColor(a.Color); err != nil {
				errs = append(errs, fmt.Errorf("profile: app %q: %w", a.Name, err))
			}
		}
	}
	if p.Runtime.FramePeriod < 0 {
		errs = append(errs, errors.New("profile: negative frame period"))
	}
	return errors.Join(errs...)
}

// ParseColor parses #RRGGBB or #RRGGBBAA.
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("color %q: want #RRGGBB or #RRGGBBAA", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil //nolint:gosec // G115: byte extraction
}
