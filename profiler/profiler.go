// Package profiler - Per-stage timing for the detection pipeline.
package profiler

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cyclopcam/logs"
)

// Pipeline stage names recorded by the detector.
const (
	StagePreprocess  = "preprocess"
	StageInference   = "inference"
	StagePostprocess = "postprocess"
)

// DefaultMaxSamples is the number of recent durations kept per stage.
const DefaultMaxSamples = 600

// TimeTracker tracks operation timing statistics over a sliding window.
type TimeTracker struct {
	name      string
	durations []time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// StageStats is a snapshot of one TimeTracker.
type StageStats struct {
	Name    string        `json:"name"`
	Count   int64         `json:"count"`
	Samples int           `json:"samples"`
	Avg     time.Duration `json:"avg"`
	Min     time.Duration `json:"min"`
	Max     time.Duration `json:"max"`
}

func (s StageStats) String() string {
	return fmt.Sprintf("%s: avg=%v, min=%v, max=%v, count=%d",
		s.Name,
		s.Avg.Truncate(time.Microsecond),
		s.Min.Truncate(time.Microsecond),
		s.Max.Truncate(time.Microsecond),
		s.Count)
}

// Profiler records durations per named stage. It is safe for concurrent use.
type Profiler struct {
	mu         sync.Mutex
	maxSamples int
	stages     map[string]*TimeTracker
}

// New creates a Profiler keeping at most maxSamples durations per stage.
// A non-positive maxSamples selects DefaultMaxSamples.
func New(maxSamples int) *Profiler {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Profiler{
		maxSamples: maxSamples,
		stages:     make(map[string]*TimeTracker),
	}
}

// StartOperation begins timing a stage.
//
// Arguments:
//   - name: The name of the stage to track.
//
// Returns:
//   - func(): A function to call when the stage completes.
//
// @example
// done := p.StartOperation(profiler.StageInference)
// out, err := engine.Run(input)
// done()
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		p.Record(name, time.Since(start))
	}
}

// Record adds one duration for the named stage.
func (p *Profiler) Record(name string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.stages[name]
	if !exists {
		tracker = &TimeTracker{
			name:    name,
			minTime: d,
			maxTime: d,
		}
		p.stages[name] = tracker
	}

	tracker.durations = append(tracker.durations, d)
	if len(tracker.durations) > p.maxSamples {
		// Remove oldest sample
		tracker.totalTime -= tracker.durations[0]
		tracker.durations = tracker.durations[1:]
	}

	tracker.totalTime += d
	tracker.count++

	if d < tracker.minTime {
		tracker.minTime = d
	}
	if d > tracker.maxTime {
		tracker.maxTime = d
	}
}

// Snapshot returns the statistics of every stage, sorted by name.
func (p *Profiler) Snapshot() []StageStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]StageStats, 0, len(p.stages))
	for _, t := range p.stages {
		s := StageStats{
			Name:    t.name,
			Count:   t.count,
			Samples: len(t.durations),
			Min:     t.minTime,
			Max:     t.maxTime,
		}
		if len(t.durations) > 0 {
			s.Avg = t.totalTime / time.Duration(len(t.durations))
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Report writes a one-line summary of all stages to log at debug level.
func (p *Profiler) Report(log logs.Log) {
	stats := p.Snapshot()
	if len(stats) == 0 {
		return
	}
	parts := make([]string, len(stats))
	for i, s := range stats {
		parts[i] = s.String()
	}
	log.Debugf("stage timings: %s", strings.Join(parts, "; "))
}
