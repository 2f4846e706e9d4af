// Package detector - Thermal object detection: model lifecycle and the per-frame pipeline.
package detector

import (
	"image"
	"io"
	"sync"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/nvr-ai/go-thermal/inference"
	"github.com/nvr-ai/go-thermal/models"
	"github.com/nvr-ai/go-thermal/models/postprocess"
	"github.com/nvr-ai/go-thermal/profiler"
	"github.com/nvr-ai/go-thermal/util"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

var newLog = logs.NewLog

// NewDetectorArgs holds the collaborators of a Detector.
type NewDetectorArgs struct {
	// Assets provides the model and label files. Defaults to Config.ModelDir on disk.
	Assets util.AssetSource
	// Config is merged over DefaultConfig for any zero fields.
	Config Config
	// Log receives load and failure messages. Defaults to logs.NewLog(),
	// or a discarding logger if that fails.
	Log logs.Log
	// LoadEngine builds the inference engine. Defaults to inference.LoadSession.
	LoadEngine inference.Loader
	// Profiler records stage timings. Defaults to a new profiler.
	Profiler *profiler.Profiler
}

// Detector runs the thermal detection pipeline on single frames.
//
// A Detector is either Ready (model loaded) or Disabled. Disabled detectors
// return empty results. Calls on one instance are serialized.
type Detector struct {
	mu     sync.Mutex
	log    logs.Log
	engine inference.Engine
	labels models.LabelTable
	nms    postprocess.NMSConfig
	input  *tensor.Dense
	prof   *profiler.Profiler
}

// NewDetector loads the model and labels and returns a detector.
//
// It never fails: a missing or unloadable model yields a Disabled detector,
// and a missing or empty label file falls back to models.DefaultLabels.
//
// Arguments:
//   - args: The detector collaborators.
//
// Returns:
//   - *Detector: The detector, Ready or Disabled.
//
// @example
// det := detector.NewDetector(detector.NewDetectorArgs{Assets: util.NewDirSource("./assets"), Log: logger})
// defer det.Close()
// detections := det.Detect(frame)
func NewDetector(args NewDetectorArgs) *Detector {
	cfg := args.Config.withDefaults()

	d := &Detector{
		log:    args.Log,
		labels: models.DefaultLabelTable(),
		nms:    postprocess.DefaultNMSConfig(),
		prof:   args.Profiler,
	}
	if d.prof == nil {
		d.prof = profiler.New(0)
	}
	if d.log == nil {
		l, err := newLog()
		if err != nil {
			l = &logs.Logger{Output: io.Discard}
		}
		d.log = l
	}

	assets := args.Assets
	if assets == nil {
		dir := cfg.ModelDir
		if dir == "" {
			dir = "."
		}
		assets = util.NewDirSource(dir)
	}
	load := args.LoadEngine
	if load == nil {
		load = inference.LoadSession
	}

	if err := d.init(assets, cfg, load); err != nil {
		d.log.Warnf("thermal detector disabled: %v", err)
	}
	return d
}

func (d *Detector) init(assets util.AssetSource, cfg Config, load inference.Loader) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.engine = nil
			err = errors.Errorf("loading model panicked: %v", r)
		}
	}()

	model, err := util.ReadAsset(assets, cfg.ModelFile)
	if err != nil {
		return errors.Wrap(err, "reading model")
	}

	d.labels = d.loadLabels(assets, cfg.LabelFile)

	sc := cfg.Session
	if sc.NumClasses <= 0 {
		sc.NumClasses = d.labels.Len()
	}
	engine, err := load(model, sc)
	if err != nil {
		if engine != nil {
			engine.Close()
		}
		return errors.Wrap(err, "loading engine")
	}
	if engine == nil {
		return errors.New("loader returned no engine")
	}

	if c, ok := engine.(classCounter); ok && c.NumClasses() != d.labels.Len() {
		d.log.Warnf("model emits %d classes but %d labels are loaded, extra indices are reported as unknown_<idx>", c.NumClasses(), d.labels.Len())
	}

	d.engine = engine
	d.input = inference.NewInputTensor()
	d.log.Infof("thermal detector ready: model %s (%d bytes), %d labels", cfg.ModelFile, len(model), d.labels.Len())
	return nil
}

// classCounter is implemented by engines that know their output class count.
type classCounter interface {
	NumClasses() int
}

// runCounter is implemented by engines that track completed runs.
type runCounter interface {
	Stats() (count int64, avg time.Duration)
}

func (d *Detector) loadLabels(assets util.AssetSource, name string) models.LabelTable {
	rc, err := assets.Open(name)
	if err != nil {
		d.log.Warnf("using default labels: %v", err)
		return models.DefaultLabelTable()
	}
	defer rc.Close()

	table, err := models.ReadLabels(rc)
	if err != nil {
		d.log.Warnf("using default labels: %v", err)
		return models.DefaultLabelTable()
	}
	return table
}

// Ready reports whether a model is loaded.
func (d *Detector) Ready() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.engine != nil
}

// Labels returns a copy of the label table in class index order.
func (d *Detector) Labels() []string {
	return d.labels.Labels()
}

// Profiler returns the stage timing recorder.
func (d *Detector) Profiler() *profiler.Profiler {
	return d.prof
}

// Detect runs the pipeline on one frame and returns at most five
// detections in descending confidence order.
//
// The result is never nil. Any failure is logged and yields an empty
// result for this call only.
func (d *Detector) Detect(img image.Image) (detections []Detection) {
	detections = []Detection{}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.engine == nil {
		return detections
	}

	defer func() {
		if r := recover(); r != nil {
			d.log.Errorf("thermal detection panicked: %v", r)
			detections = []Detection{}
		}
	}()

	out, err := d.detect(img)
	if err != nil {
		d.log.Errorf("thermal detection failed: %v", err)
		return detections
	}
	return out
}

func (d *Detector) detect(img image.Image) ([]Detection, error) {
	if img == nil {
		return nil, errors.New("image is nil")
	}
	b := img.Bounds()

	done := d.prof.StartOperation(profiler.StagePreprocess)
	err := inference.Preprocess(img, d.input)
	done()
	if err != nil {
		return nil, errors.Wrap(err, "preprocessing")
	}

	done = d.prof.StartOperation(profiler.StageInference)
	out, err := d.engine.Run(d.input)
	done()
	if err != nil {
		return nil, errors.Wrap(err, "inference")
	}

	done = d.prof.StartOperation(profiler.StagePostprocess)
	defer done()

	candidates, err := postprocess.Decode(out, d.labels, b.Dx(), b.Dy())
	if err != nil {
		return nil, errors.Wrap(err, "decoding output")
	}
	kept := postprocess.ApplyGreedyNMS(candidates, d.nms)
	top := postprocess.TopK(kept, postprocess.DefaultMaxResults)

	detections := make([]Detection, len(top))
	for i, r := range top {
		detections[i] = Detection{
			DisplayLabel:   r.DisplayLabel,
			Confidence:     r.Score,
			Box:            r.Box,
			DistanceMeters: EstimateDistance(r.Label, r.Box.Height()),
		}
	}
	d.log.Debugf("thermal detection: %d candidates, %d after nms, %d returned", len(candidates), len(kept), len(detections))
	return detections, nil
}

// Close releases the engine and disables the detector. Release errors are
// logged, not returned. Calling Close more than once is safe.
func (d *Detector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.engine == nil {
		return
	}
	engine := d.engine
	d.engine = nil
	d.input = nil

	defer func() {
		if r := recover(); r != nil {
			d.log.Warnf("releasing engine panicked: %v", r)
		}
	}()
	if rc, ok := engine.(runCounter); ok {
		if n, avg := rc.Stats(); n > 0 {
			d.log.Infof("thermal detector closing after %d inferences, %v average", n, avg)
		}
	}
	if err := engine.Close(); err != nil {
		d.log.Warnf("releasing engine: %v", err)
	}
}
