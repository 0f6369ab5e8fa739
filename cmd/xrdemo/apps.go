package main

import (
	"fmt"
	"strings"

	"github.com/gogpu/xroverlay"
	"github.com/gogpu/xroverlay/internal/profile"
	"github.com/gogpu/xroverlay/render"
	"github.com/gogpu/xroverlay/xr"
	"github.com/gogpu/xroverlay/xr/sim"
)

// callLogLimit keeps the simulated runtime's call log bounded on long runs.
const callLogLimit = 4096

// simOptions maps the profile's runtime section onto compositor options.
func simOptions(rt profile.Runtime) []sim.Option {
	opts := []sim.Option{sim.WithFramePeriod(rt.FramePeriod), sim.WithCallLogLimit(callLogLimit)}
	if rt.ViewWidth != 0 && rt.ViewHeight != 0 {
		opts = append(opts, sim.WithViewSize(rt.ViewWidth, rt.ViewHeight))
	}
	if rt.Mono {
		opts = append(opts, sim.WithViewConfiguration(xr.ViewConfigurationPrimaryMono))
	}
	if rt.NoOverlay {
		opts = append(opts, sim.WithExtensions(xr.ExtensionAndroidCreateInstance, xr.ExtensionOpenGLESEnable))
	}
	if rt.PreviewSize > 0 {
		opts = append(opts, sim.WithPreviewSize(rt.PreviewSize))
	}
	return opts
}

// appConfig translates one profile entry into an App configuration and the
// scene it renders.
func appConfig(a profile.App) (xroverlay.Config, render.Scene, error) {
	cfg := xroverlay.Config{
		Name:      a.Name,
		Width:     a.Width,
		Height:    a.Height,
		Placement: a.Placement,
		Depth:     a.Depth,
	}
	if a.Role == "overlay" {
		cfg.Role = xroverlay.Overlay
	}
	if a.Layer == "quad" {
		cfg.Layer = xroverlay.LayerQuad
	}
	for _, s := range a.Blend {
		m, err := parseBlendMode(s)
		if err != nil {
			return xroverlay.Config{}, nil, fmt.Errorf("app %q: %w", a.Name, err)
		}
		cfg.BlendModes = append(cfg.BlendModes, m)
	}

	scene, err := newScene(a)
	if err != nil {
		return xroverlay.Config{}, nil, fmt.Errorf("app %q: %w", a.Name, err)
	}
	return cfg, scene, cfg.Validate()
}

func newScene(a profile.App) (render.Scene, error) {
	var bg *render.ClearScene
	if a.Color != "" {
		c, err := profile.ParseColor(a.Color)
		if err != nil {
			return nil, err
		}
		bg = &render.ClearScene{Color: c}
	}
	switch a.Scene {
	case "panel":
		s := render.NewPanelScene()
		if bg != nil {
			s.Background = bg.Color
		}
		return s, nil
	case "cube":
		s := &render.CubeScene{}
		if bg != nil {
			s.Background = bg.Color
		}
		return s, nil
	default:
		if bg == nil {
			bg = &render.ClearScene{}
		}
		return bg, nil
	}
}

func parseBlendMode(s string) (xr.EnvironmentBlendMode, error) {
	name := strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
	for _, m := range []xr.EnvironmentBlendMode{xr.BlendModeOpaque, xr.BlendModeAdditive, xr.BlendModeAlphaBlend} {
		if m.String() == name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown blend mode %q", s)
}
