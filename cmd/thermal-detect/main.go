// Command thermal-detect runs the thermal object detector on an image or a
// video source and prints detections as JSON lines.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/disintegration/imaging"
	"github.com/nvr-ai/go-thermal/controller"
	"github.com/nvr-ai/go-thermal/detector"
	"github.com/nvr-ai/go-thermal/util"
)

// record is one line of output.
type record struct {
	Frame      int                  `json:"frame"`
	Time       time.Time            `json:"time"`
	Detections []detector.Detection `json:"detections"`
}

func main() {
	os.Exit(run())
}

// run executes the command and returns the process exit code. Deferred
// cleanup runs before main exits.
func run() int {
	var (
		configPath string
		modelDir   string
		imagePath  string
		source     string
		interval   time.Duration
		showStats  bool
	)
	flag.StringVar(&configPath, "config", "", "Path to YAML config file")
	flag.StringVar(&modelDir, "model-dir", "", "Directory holding the model and labels (overrides config)")
	flag.StringVar(&imagePath, "image", "", "Path to a single image file")
	flag.StringVar(&source, "source", "", "Video source: device index, file path or stream URL")
	flag.DurationVar(&interval, "interval", 0, "Detection interval (overrides config)")
	flag.BoolVar(&showStats, "stats", false, "Log stage timings on exit")
	flag.Parse()

	if (imagePath == "") == (source == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -image or -source is required")
		flag.Usage()
		return 2
	}

	logger, err := logs.NewLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating log: %v\n", err)
		return 1
	}
	defer logger.Close()

	cfg := detector.DefaultConfig()
	if configPath != "" {
		if cfg, err = detector.LoadConfig(configPath); err != nil {
			logger.Errorf("%v", err)
			return 1
		}
	}
	if modelDir != "" {
		cfg.ModelDir = modelDir
	}
	if interval > 0 {
		cfg.PollInterval = interval
	}

	det := detector.NewDetector(detector.NewDetectorArgs{
		Assets: util.NewDirSource(cfg.ModelDir),
		Config: cfg,
		Log:    logger,
	})
	defer det.Close()

	if !det.Ready() {
		logger.Warnf("model not loaded from %s, all frames will report no detections", cfg.ModelDir)
	}
	if showStats {
		defer det.Profiler().Report(logger)
	}

	enc := json.NewEncoder(os.Stdout)

	if imagePath != "" {
		img, err := imaging.Open(imagePath, imaging.AutoOrientation(true))
		if err != nil {
			logger.Errorf("loading image: %v", err)
			return 1
		}
		if err := enc.Encode(record{Frame: 1, Time: time.Now(), Detections: det.Detect(img)}); err != nil {
			logger.Errorf("writing output: %v", err)
			return 1
		}
		return 0
	}

	capture, err := openCapture(source)
	if err != nil {
		logger.Errorf("%v", err)
		return 1
	}
	defer capture.Close()

	ctrl, err := controller.New(controller.Config{
		Source:   capture,
		Detector: det,
		Log:      logger,
		Interval: cfg.PollInterval,
		Sink: func(f controller.Frame, d []detector.Detection) {
			if err := enc.Encode(record{Frame: f.ID, Time: f.Timestamp, Detections: d}); err != nil {
				logger.Errorf("writing output: %v", err)
			}
		},
	})
	if err != nil {
		logger.Errorf("%v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("polling %s every %v", source, cfg.PollInterval)
	code := 0
	if err := ctrl.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Errorf("controller stopped: %v", err)
		code = 1
	}

	s := ctrl.Stats()
	logger.Infof("processed %d frames, %d skipped, %d failures, %d detections", s.Cycles, s.Skipped, s.Failures, s.Detections)
	return code
}
