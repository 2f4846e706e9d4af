package detector

import (
	"os"
	"time"

	"github.com/nvr-ai/go-thermal/inference"
	"github.com/nvr-ai/go-thermal/models"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config represents the configuration for the detector.
type Config struct {
	// ModelDir is the directory holding the model and label assets.
	ModelDir string `json:"model_dir" yaml:"model_dir"`
	// ModelFile is the model asset name.
	ModelFile string `json:"model_file" yaml:"model_file"`
	// LabelFile is the label asset name.
	LabelFile string `json:"label_file" yaml:"label_file"`
	// Session configures the inference engine. NumClasses is derived from
	// the label table and ignored here.
	Session inference.SessionConfig `json:"session" yaml:"session"`
	// PollInterval is the cadence of the capture/detect loop.
	PollInterval time.Duration `json:"poll_interval" yaml:"poll_interval"`
}

// DefaultPollInterval is the time between detection cycles.
const DefaultPollInterval = 1500 * time.Millisecond

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		ModelDir:     ".",
		ModelFile:    models.DefaultModelFile,
		LabelFile:    models.DefaultLabelFile,
		Session:      inference.DefaultSessionConfig(),
		PollInterval: DefaultPollInterval,
	}
}

// LoadConfig reads a YAML file over DefaultConfig. Keys absent from the
// file keep their defaults.
//
// Arguments:
//   - path: The YAML file path.
//
// Returns:
//   - Config: The merged configuration.
//   - error: An error if the file cannot be read or parsed.
//
// @example
// cfg, err := detector.LoadConfig("thermal.yaml")
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg.withDefaults(), nil
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ModelFile == "" {
		c.ModelFile = d.ModelFile
	}
	if c.LabelFile == "" {
		c.LabelFile = d.LabelFile
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.Session.InputName == "" {
		c.Session.InputName = d.Session.InputName
	}
	if c.Session.OutputName == "" {
		c.Session.OutputName = d.Session.OutputName
	}
	if c.Session.NumThreads <= 0 {
		c.Session.NumThreads = d.Session.NumThreads
	}
	return c
}
