// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package sim

import (
	"context"
	"image"
	"slices"
	"sync"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/xroverlay/internal/xlog"
	"github.com/gogpu/xroverlay/xr"
)

// Compositor is an in-process compositor runtime. Every application that
// connects shares it, the way Android apps share one system compositor:
// a base session owns focus and overlay sessions ride on top of it.
//
// Compositor is safe for concurrent use.
type Compositor struct {
	cfg   config
	start time.Time

	mu         sync.Mutex
	next       uint64
	imageName  uint32
	baseFocus  bool
	instances  map[xr.Instance]*instance
	sessions   map[xr.Session]*session
	spaces     map[xr.Space]*space
	swapchains map[xr.Swapchain]*swapchain
	faults     []*fault
	calls      []Call
}

type instance struct {
	handle     xr.Instance
	extensions []string
	events     []xr.Event
	lost       bool
}

type session struct {
	handle        xr.Session
	inst          *instance
	overlay       bool
	placement     uint32
	state         xr.SessionState
	running       bool
	exitRequested bool
	waited        bool
	inFrame       bool
	lastWait      time.Time
	lastDisplay   xr.Time
	frames        int
	lastEnd       xr.FrameEndInfo
	submitted     []submittedLayer
}

type space struct {
	handle xr.Space
	sess   *session
	kind   xr.ReferenceSpaceType
	pose   xr.Pose
}

type swapchain struct {
	handle       xr.Swapchain
	sess         *session
	info         xr.SwapchainCreateInfo
	images       []xr.SwapchainImage
	next         int
	acquired     int
	waited       bool
	lastReleased int
}

// New creates a compositor. Base sessions start out focused.
func New(opts ...Option) *Compositor {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Compositor{
		cfg:        cfg,
		start:      time.Now(),
		baseFocus:  true,
		instances:  make(map[xr.Instance]*instance),
		sessions:   make(map[xr.Session]*session),
		spaces:     make(map[xr.Space]*space),
		swapchains: make(map[xr.Swapchain]*swapchain),
	}
}

// Factory returns a registry factory connecting to c.
//
//	xr.Register("sim", 10, c.Factory(), nil)
func (c *Compositor) Factory() xr.RuntimeFactory {
	return func() (xr.Runtime, error) { return c, nil }
}

func (c *Compositor) handle() uint64 {
	c.next++
	return c.next
}

func (c *Compositor) now() xr.Time {
	return xr.Time(time.Since(c.start))
}

// Instances

// EnumerateInstanceExtensions lists the advertised extensions.
func (c *Compositor) EnumerateInstanceExtensions() (exts []string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("EnumerateInstanceExtensions", 0, err) }()
	if err := c.fault("EnumerateInstanceExtensions", 0); err != nil {
		return nil, err
	}
	return slices.Clone(c.cfg.extensions), nil
}

// CreateInstance creates an instance with the requested extensions enabled.
func (c *Compositor) CreateInstance(info xr.InstanceCreateInfo) (h xr.Instance, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("CreateInstance", uint64(h), err) }()
	if err := c.fault("CreateInstance", 0); err != nil {
		return 0, err
	}
	for _, ext := range info.Extensions {
		if !slices.Contains(c.cfg.extensions, ext) {
			return 0, xr.ErrorExtensionNotPresent
		}
	}
	inst := &instance{
		handle:     xr.Instance(c.handle()),
		extensions: slices.Clone(info.Extensions),
	}
	c.instances[inst.handle] = inst
	xlog.Logger().Debug("sim: instance created", "instance", inst.handle, "app", info.Application.ApplicationName)
	return inst.handle, nil
}

// DestroyInstance destroys an instance and every session created from it.
func (c *Compositor) DestroyInstance(h xr.Instance) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("DestroyInstance", uint64(h), err) }()
	if err := c.fault("DestroyInstance", uint64(h)); err != nil {
		return err
	}
	inst, ok := c.instances[h]
	if !ok {
		return xr.ErrorHandleInvalid
	}
	for _, s := range c.sessions {
		if s.inst == inst {
			c.destroySession(s)
		}
	}
	delete(c.instances, h)
	return nil
}

// GetSystem returns the head-mounted display system.
func (c *Compositor) GetSystem(h xr.Instance, formFactor xr.FormFactor) (id xr.SystemID, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("GetSystem", uint64(h), err) }()
	if err := c.fault("GetSystem", uint64(h)); err != nil {
		return 0, err
	}
	if _, err := c.liveInstance(h); err != nil {
		return 0, err
	}
	if formFactor != xr.FormFactorHeadMountedDisplay {
		return 0, xr.ErrorFormFactorUnsupported
	}
	return 1, nil
}

// EnumerateViewConfigurations lists the single supported configuration.
func (c *Compositor) EnumerateViewConfigurations(h xr.Instance, _ xr.SystemID) (v []xr.ViewConfigurationType, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("EnumerateViewConfigurations", uint64(h), err) }()
	if err := c.fault("EnumerateViewConfigurations", uint64(h)); err != nil {
		return nil, err
	}
	if _, err := c.liveInstance(h); err != nil {
		return nil, err
	}
	return []xr.ViewConfigurationType{c.cfg.viewConfig}, nil
}

// EnumerateViewConfigurationViews returns one entry per view.
func (c *Compositor) EnumerateViewConfigurationViews(h xr.Instance, _ xr.SystemID, vc xr.ViewConfigurationType) (views []xr.ViewConfigurationView, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("EnumerateViewConfigurationViews", uint64(h), err) }()
	if err := c.fault("EnumerateViewConfigurationViews", uint64(h)); err != nil {
		return nil, err
	}
	if _, err := c.liveInstance(h); err != nil {
		return nil, err
	}
	if vc != c.cfg.viewConfig {
		return nil, xr.ErrorViewConfigurationTypeUnsupported
	}
	views = make([]xr.ViewConfigurationView, c.viewCount())
	for i := range views {
		views[i] = xr.ViewConfigurationView{
			RecommendedWidth:       c.cfg.viewWidth,
			RecommendedHeight:      c.cfg.viewHeight,
			MaxWidth:               c.cfg.maxSize,
			MaxHeight:              c.cfg.maxSize,
			RecommendedSampleCount: 1,
			MaxSampleCount:         4,
		}
	}
	return views, nil
}

// EnumerateEnvironmentBlendModes lists the configured blend modes.
func (c *Compositor) EnumerateEnvironmentBlendModes(h xr.Instance, _ xr.SystemID, vc xr.ViewConfigurationType) (modes []xr.EnvironmentBlendMode, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("EnumerateEnvironmentBlendModes", uint64(h), err) }()
	if err := c.fault("EnumerateEnvironmentBlendModes", uint64(h)); err != nil {
		return nil, err
	}
	if _, err := c.liveInstance(h); err != nil {
		return nil, err
	}
	if vc != c.cfg.viewConfig {
		return nil, xr.ErrorViewConfigurationTypeUnsupported
	}
	return slices.Clone(c.cfg.blendModes), nil
}

func (c *Compositor) liveInstance(h xr.Instance) (*instance, error) {
	inst, ok := c.instances[h]
	if !ok {
		return nil, xr.ErrorHandleInvalid
	}
	if inst.lost {
		return nil, xr.ErrorInstanceLost
	}
	return inst, nil
}

func (c *Compositor) viewCount() int {
	if c.cfg.viewConfig == xr.ViewConfigurationPrimaryMono {
		return 1
	}
	return 2
}

// Swapchains

// EnumerateSwapchainFormats lists the formats swapchains may use.
func (c *Compositor) EnumerateSwapchainFormats(h xr.Session) (formats []gputypes.TextureFormat, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("EnumerateSwapchainFormats", uint64(h), err) }()
	if err := c.fault("EnumerateSwapchainFormats", uint64(h)); err != nil {
		return nil, err
	}
	if _, ok := c.sessions[h]; !ok {
		return nil, xr.ErrorHandleInvalid
	}
	return slices.Clone(c.cfg.formats), nil
}

// CreateSwapchain allocates a ring of CPU-backed images.
func (c *Compositor) CreateSwapchain(h xr.Session, info xr.SwapchainCreateInfo) (sc xr.Swapchain, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("CreateSwapchain", uint64(sc), err) }()
	if err := c.fault("CreateSwapchain", uint64(h)); err != nil {
		return 0, err
	}
	s, ok := c.sessions[h]
	if !ok {
		return 0, xr.ErrorHandleInvalid
	}
	if !slices.Contains(c.cfg.formats, info.Format) {
		return 0, xr.ErrorSwapchainFormatUnsupported
	}
	if !info.Usage.Contains(gputypes.TextureUsageRenderAttachment) {
		return 0, xr.ErrorFeatureUnsupported
	}
	if info.Width == 0 || info.Height == 0 || info.Width > c.cfg.maxSize || info.Height > c.cfg.maxSize {
		return 0, xr.ErrorValidationFailure
	}
	if info.SampleCount > 4 || info.FaceCount > 1 || info.ArraySize > 1 {
		return 0, xr.ErrorFeatureUnsupported
	}

	chain := &swapchain{
		handle:       xr.Swapchain(c.handle()),
		sess:         s,
		info:         info,
		acquired:     -1,
		lastReleased: -1,
	}
	chain.images = make([]xr.SwapchainImage, c.cfg.imageCount)
	for i := range chain.images {
		c.imageName++
		chain.images[i] = xr.SwapchainImage{
			Name:   c.imageName,
			Pixels: image.NewRGBA(image.Rect(0, 0, int(info.Width), int(info.Height))),
		}
	}
	c.swapchains[chain.handle] = chain
	return chain.handle, nil
}

// DestroySwapchain frees a swapchain.
func (c *Compositor) DestroySwapchain(sc xr.Swapchain) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("DestroySwapchain", uint64(sc), err) }()
	if err := c.fault("DestroySwapchain", uint64(sc)); err != nil {
		return err
	}
	if _, ok := c.swapchains[sc]; !ok {
		return xr.ErrorHandleInvalid
	}
	delete(c.swapchains, sc)
	return nil
}

// EnumerateSwapchainImages returns the ring's images.
func (c *Compositor) EnumerateSwapchainImages(sc xr.Swapchain) (images []xr.SwapchainImage, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("EnumerateSwapchainImages", uint64(sc), err) }()
	if err := c.fault("EnumerateSwapchainImages", uint64(sc)); err != nil {
		return nil, err
	}
	chain, ok := c.swapchains[sc]
	if !ok {
		return nil, xr.ErrorHandleInvalid
	}
	return slices.Clone(chain.images), nil
}

// AcquireSwapchainImage hands out the next image of the ring. Only one image
// may be acquired at a time.
func (c *Compositor) AcquireSwapchainImage(sc xr.Swapchain) (index uint32, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("AcquireSwapchainImage", uint64(sc), err) }()
	if err := c.fault("AcquireSwapchainImage", uint64(sc)); err != nil {
		return 0, err
	}
	chain, ok := c.swapchains[sc]
	if !ok {
		return 0, xr.ErrorHandleInvalid
	}
	if chain.acquired >= 0 {
		return 0, xr.ErrorCallOrderInvalid
	}
	chain.acquired = chain.next
	chain.waited = false
	chain.next = (chain.next + 1) % len(chain.images)
	return uint32(chain.acquired), nil //nolint:gosec // G115: ring is small
}

// WaitSwapchainImage returns once the acquired image is writable. Images are
// writable immediately unless a fault says otherwise.
func (c *Compositor) WaitSwapchainImage(ctx context.Context, sc xr.Swapchain, timeout time.Duration) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("WaitSwapchainImage", uint64(sc), err) }()
	if err := c.fault("WaitSwapchainImage", uint64(sc)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout <= 0 {
		return xr.TimeoutExpired
	}
	chain, ok := c.swapchains[sc]
	if !ok {
		return xr.ErrorHandleInvalid
	}
	if chain.acquired < 0 || chain.waited {
		return xr.ErrorCallOrderInvalid
	}
	chain.waited = true
	return nil
}

// ReleaseSwapchainImage returns the acquired image to the compositor. An
// image may be released after a timed-out wait.
func (c *Compositor) ReleaseSwapchainImage(sc xr.Swapchain) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("ReleaseSwapchainImage", uint64(sc), err) }()
	if err := c.fault("ReleaseSwapchainImage", uint64(sc)); err != nil {
		return err
	}
	chain, ok := c.swapchains[sc]
	if !ok {
		return xr.ErrorHandleInvalid
	}
	if chain.acquired < 0 {
		return xr.ErrorCallOrderInvalid
	}
	chain.lastReleased = chain.acquired
	chain.acquired = -1
	chain.waited = false
	return nil
}

// Events

// PollEvent pops the oldest event queued for the instance.
func (c *Compositor) PollEvent(h xr.Instance) (ev xr.Event, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.record("PollEvent", uint64(h), err) }()
	if err := c.fault("PollEvent", uint64(h)); err != nil {
		return nil, false, err
	}
	inst, found := c.instances[h]
	if !found {
		return nil, false, xr.ErrorHandleInvalid
	}
	if len(inst.events) == 0 {
		return nil, false, nil
	}
	ev = inst.events[0]
	inst.events = inst.events[1:]
	return ev, true, nil
}

var _ xr.Runtime = (*Compositor)(nil)
