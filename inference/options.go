package inference

import (
	"runtime"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	// DefaultInputName is the model's input tensor name.
	DefaultInputName = "images"
	// DefaultOutputName is the model's output tensor name.
	DefaultOutputName = "output0"
	// DefaultNumThreads is the intra-op thread count.
	DefaultNumThreads = 4
)

// SessionConfig controls how an Engine is built.
type SessionConfig struct {
	// SharedLibraryPath overrides the onnxruntime shared library location.
	SharedLibraryPath string `json:"shared_library_path" yaml:"shared_library_path"`
	// InputName is the name of the model input tensor.
	InputName string `json:"input_name" yaml:"input_name"`
	// OutputName is the name of the model output tensor.
	OutputName string `json:"output_name" yaml:"output_name"`
	// NumThreads is the number of intra-op threads.
	NumThreads int `json:"num_threads" yaml:"num_threads"`
	// NumClasses is the number of class score channels the model emits.
	// It is used only when the model metadata leaves the count dynamic.
	NumClasses int `json:"num_classes" yaml:"num_classes"`
}

// DefaultSessionConfig returns the configuration for the stock thermal model.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		InputName:  DefaultInputName,
		OutputName: DefaultOutputName,
		NumThreads: DefaultNumThreads,
	}
}

// withDefaults fills zero fields from DefaultSessionConfig.
func (c SessionConfig) withDefaults() SessionConfig {
	d := DefaultSessionConfig()
	if c.InputName == "" {
		c.InputName = d.InputName
	}
	if c.OutputName == "" {
		c.OutputName = d.OutputName
	}
	if c.NumThreads <= 0 {
		c.NumThreads = d.NumThreads
	}
	return c
}

// SharedLibPath returns the platform default path to the onnxruntime
// shared library, or "" to let onnxruntime_go use its own default.
func SharedLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "./third_party/onnxruntime.dll"
	case "darwin":
		return "./third_party/libonnxruntime.dylib"
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "./third_party/onnxruntime_arm64.so"
		}
		return "./third_party/onnxruntime.so"
	}
	return ""
}

var envMu sync.Mutex

// initEnvironment initializes the process-wide onnxruntime environment once.
func initEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath == "" {
		libPath = SharedLibPath()
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrapf(err, "initializing onnxruntime environment (library %q)", libPath)
	}
	return nil
}

// newSessionOptions builds CPU session options with extended graph optimization.
func newSessionOptions(cfg SessionConfig) (*ort.SessionOptions, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, errors.Wrap(err, "creating session options")
	}
	if err := options.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "setting intra-op threads")
	}
	if err := options.SetInterOpNumThreads(1); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "setting inter-op threads")
	}
	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableExtended); err != nil {
		options.Destroy()
		return nil, errors.Wrap(err, "setting graph optimization level")
	}
	return options, nil
}
