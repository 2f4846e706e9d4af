// Package controller - Fixed-cadence capture and detection loop.
package controller

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/nvr-ai/go-thermal/detector"
	"github.com/pkg/errors"
)

// DefaultInterval is the time between detection cycles.
const DefaultInterval = detector.DefaultPollInterval

var (
	// ErrNoFrame is returned by a FrameSource that has no new frame yet.
	// The cycle is skipped.
	ErrNoFrame = errors.New("no frame available")
	// ErrSourceClosed is returned by a FrameSource that will produce no
	// more frames. Run returns nil when it sees it.
	ErrSourceClosed = errors.New("frame source closed")
)

// Frame is a single frame of video.
type Frame struct {
	ID        int
	Image     image.Image
	Timestamp time.Time
}

// FrameSource yields the most recent frame on demand.
type FrameSource interface {
	Next(ctx context.Context) (Frame, error)
}

// Detector runs detection on a single image.
type Detector interface {
	Detect(img image.Image) []detector.Detection
}

// Sink receives the detections for each processed frame.
type Sink func(frame Frame, detections []detector.Detection)

// Config holds the collaborators of a Controller.
type Config struct {
	Source   FrameSource
	Detector Detector
	Sink     Sink
	Log      logs.Log
	// Interval is the cycle cadence. Defaults to DefaultInterval.
	Interval time.Duration
}

// Stats counts controller activity.
type Stats struct {
	// Cycles is the number of frames run through the detector.
	Cycles int64 `json:"cycles"`
	// Skipped is the number of ticks without a frame or dropped while busy.
	Skipped int64 `json:"skipped"`
	// Failures is the number of frame source errors.
	Failures int64 `json:"failures"`
	// Detections is the total number of detections published.
	Detections int64 `json:"detections"`
}

// Controller polls a FrameSource at a fixed cadence and runs one
// capture, detect and publish cycle per tick. Cycles never overlap.
type Controller struct {
	source   FrameSource
	detector Detector
	sink     Sink
	log      logs.Log
	interval time.Duration

	runMu sync.Mutex
	mu    sync.Mutex
	stats Stats
}

// New creates a Controller.
//
// Arguments:
//   - cfg: The controller configuration. Source, Detector and Log are required.
//
// Returns:
//   - *Controller: The controller.
//   - error: An error if a required collaborator is missing.
func New(cfg Config) (*Controller, error) {
	if cfg.Source == nil {
		return nil, errors.New("frame source is required")
	}
	if cfg.Detector == nil {
		return nil, errors.New("detector is required")
	}
	if cfg.Log == nil {
		return nil, errors.New("log is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	return &Controller{
		source:   cfg.Source,
		detector: cfg.Detector,
		sink:     cfg.Sink,
		log:      cfg.Log,
		interval: cfg.Interval,
	}, nil
}

// Run executes cycles until ctx is done or the source closes.
//
// The first cycle runs immediately. Ticks that arrive while a cycle is
// still running are dropped and counted as skipped.
//
// Returns:
//   - error: ctx.Err() on cancellation, nil when the source closes.
func (c *Controller) Run(ctx context.Context) error {
	if !c.runMu.TryLock() {
		return errors.New("controller is already running")
	}
	defer c.runMu.Unlock()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		start := time.Now()
		if err := c.Cycle(ctx); err != nil {
			if errors.Is(err, ErrSourceClosed) {
				c.log.Infof("frame source closed, stopping")
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		if over := time.Since(start); over > c.interval {
			c.addSkipped(int64(over / c.interval))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Cycle runs one capture, detect and publish step.
//
// Returns:
//   - error: The frame source error, if any. ErrNoFrame is counted as a skip.
func (c *Controller) Cycle(ctx context.Context) error {
	frame, err := c.source.Next(ctx)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoFrame):
			c.addSkipped(1)
		case errors.Is(err, ErrSourceClosed):
		default:
			c.mu.Lock()
			c.stats.Failures++
			c.mu.Unlock()
			c.log.Warnf("reading frame: %v", err)
		}
		return err
	}

	detections := c.detector.Detect(frame.Image)

	c.mu.Lock()
	c.stats.Cycles++
	c.stats.Detections += int64(len(detections))
	c.mu.Unlock()

	if len(detections) > 0 {
		c.log.Debugf("frame %d: %d detections", frame.ID, len(detections))
	}
	if c.sink != nil {
		c.sink(frame, detections)
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *Controller) addSkipped(n int64) {
	c.mu.Lock()
	c.stats.Skipped += n
	c.mu.Unlock()
}
