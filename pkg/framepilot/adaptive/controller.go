// Package adaptive holds frame rate near a target by nudging render distance
// once per sampling window.
package adaptive

import (
	"time"

	"github.com/jamesainslie/framepilot/pkg/framepilot/logging"
	"github.com/jamesainslie/framepilot/pkg/framepilot/metrics"
)

// Controller defaults.
const (
	DefaultTargetFPS = 60
	DefaultDeadBand  = 10
	DefaultWindow    = time.Second
)

// Config tunes the controller. Zero fields take the defaults.
type Config struct {
	TargetFPS int
	DeadBand  int
	Window    time.Duration
}

func (c Config) withDefaults() Config {
	if c.TargetFPS <= 0 {
		c.TargetFPS = DefaultTargetFPS
	}
	if c.DeadBand <= 0 {
		c.DeadBand = DefaultDeadBand
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	return c
}

// Sample is the running frame count of the open window.
type Sample struct {
	Frames      int
	WindowStart time.Time
}

// Window describes the outcome of one Tick.
type Window struct {
	// Closed is true when this tick ended a sampling window.
	Closed bool `json:"closed"`
	// FPS is the frame rate measured over the closed window.
	FPS int `json:"fps"`
	// Before and After are the render distance around the adjustment.
	Before int `json:"before"`
	After  int `json:"after"`
}

// Changed reports whether the tick moved the render distance.
func (w Window) Changed() bool {
	return w.Before != w.After
}

// Controller is the frame-rate control loop. Tick must be called from the
// driving thread only.
type Controller struct {
	cfg      Config
	distance *Distance
	now      func() time.Time
	sample   Sample
	last     Window

	metrics *metrics.Metrics
	logger  *logging.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithMetrics records closed windows to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// New returns a controller whose first window opens now.
func New(distance *Distance, cfg Config, opts ...Option) *Controller {
	c := &Controller{
		cfg:      cfg.withDefaults(),
		distance: distance,
		now:      time.Now,
		logger:   logging.Get("adaptive"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.sample.WindowStart = c.now()
	d := distance.Get()
	c.last = Window{Before: d, After: d}
	c.metrics.SetRenderDistance(d)
	return c
}

// Tick counts one frame. When the window has run its full length it
// estimates the frame rate, resets the window and moves the render distance
// by at most one step.
func (c *Controller) Tick() Window {
	c.sample.Frames++

	now := c.now()
	elapsed := now.Sub(c.sample.WindowStart)
	d := c.distance.Get()
	if elapsed < c.cfg.Window {
		return Window{Before: d, After: d}
	}

	fps := c.sample.Frames * int(time.Second) / int(c.cfg.Window)
	c.sample = Sample{WindowStart: now}

	w := Window{Closed: true, FPS: fps, Before: d, After: d}
	switch {
	case fps < c.cfg.TargetFPS-c.cfg.DeadBand && d > MinDistance:
		w.After = c.distance.Step(-1)
	case fps > c.cfg.TargetFPS+c.cfg.DeadBand && d < MaxDistance:
		w.After = c.distance.Step(+1)
	}

	c.metrics.RecordWindow(w.FPS, w.Before, w.After)
	if w.Changed() {
		c.logger.Info("render distance adjusted", "fps", fps, "from", w.Before, "to", w.After)
	} else {
		c.logger.Debug("window closed", "fps", fps, "distance", d)
	}

	c.last = w
	return w
}

// Sample returns the open window's state.
func (c *Controller) Sample() Sample {
	return c.sample
}

// Last returns the most recently closed window.
func (c *Controller) Last() Window {
	return c.last
}

// Config returns the effective configuration.
func (c *Controller) Config() Config {
	return c.cfg
}
