package inference

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"
)

// Session is an Engine backed by an onnxruntime AdvancedSession with
// preallocated input and output tensors.
type Session struct {
	mu         sync.Mutex
	session    *ort.AdvancedSession
	input      *ort.Tensor[float32]
	output     *ort.Tensor[float32]
	numClasses int

	inferenceCount int64
	totalTime      time.Duration
}

// NewSession builds an onnxruntime session from serialized model bytes.
//
// Arguments:
//   - model: The ONNX model contents.
//   - cfg: Session settings. The class count is read from the model's
//     output metadata; cfg.NumClasses is used when the metadata is dynamic.
//
// Returns:
//   - *Session: The ready session.
//   - error: An error if the runtime or the model cannot be loaded.
//
// @example
// sess, err := inference.NewSession(data, inference.SessionConfig{NumClasses: 4})
//
//	if err != nil {
//	    return err
//	}
//
// defer sess.Close()
func NewSession(model []byte, cfg SessionConfig) (*Session, error) {
	if len(model) == 0 {
		return nil, errors.New("model data is empty")
	}
	cfg = cfg.withDefaults()

	if err := initEnvironment(cfg.SharedLibraryPath); err != nil {
		return nil, err
	}

	if n, err := modelNumClasses(model, cfg.OutputName); err != nil {
		return nil, err
	} else if n > 0 {
		cfg.NumClasses = n
	}
	if cfg.NumClasses <= 0 {
		return nil, errors.Errorf("invalid class count %d", cfg.NumClasses)
	}

	s := &Session{numClasses: cfg.NumClasses}

	var err error
	s.input, err = ort.NewEmptyTensor[float32](shapeOf(InputShape()))
	if err != nil {
		return nil, errors.Wrap(err, "creating input tensor")
	}
	s.output, err = ort.NewEmptyTensor[float32](shapeOf(OutputShape(cfg.NumClasses)))
	if err != nil {
		s.Close()
		return nil, errors.Wrap(err, "creating output tensor")
	}

	options, err := newSessionOptions(cfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	defer options.Destroy()

	s.session, err = ort.NewAdvancedSessionWithONNXData(
		model,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.Value{s.input},
		[]ort.Value{s.output},
		options,
	)
	if err != nil {
		s.Close()
		return nil, errors.Wrap(err, "creating onnx session")
	}

	return s, nil
}

// LoadSession is the Loader for onnxruntime sessions.
func LoadSession(model []byte, cfg SessionConfig) (Engine, error) {
	s, err := NewSession(model, cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Run copies input into the session, executes the model and returns a
// copy of the output.
func (s *Session) Run(input *tensor.Dense) (*tensor.Dense, error) {
	if err := CheckShape(input, InputShape()); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, errors.New("session is closed")
	}

	copy(s.input.GetData(), input.Data().([]float32))

	start := time.Now()
	if err := s.session.Run(); err != nil {
		return nil, errors.Wrap(err, "running onnx session")
	}
	s.inferenceCount++
	s.totalTime += time.Since(start)

	raw := s.output.GetData()
	out := make([]float32, len(raw))
	copy(out, raw)

	return tensor.New(tensor.WithShape(OutputShape(s.numClasses)...), tensor.WithBacking(out)), nil
}

// NumClasses returns the number of class score channels in the output.
func (s *Session) NumClasses() int {
	return s.numClasses
}

// Stats returns the number of completed runs and their average duration.
func (s *Session) Stats() (count int64, avg time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inferenceCount == 0 {
		return 0, 0
	}
	return s.inferenceCount, s.totalTime / time.Duration(s.inferenceCount)
}

// Close releases the session and its tensors. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var first error
	if s.session != nil {
		first = s.session.Destroy()
		s.session = nil
	}
	if s.input != nil {
		if err := s.input.Destroy(); err != nil && first == nil {
			first = err
		}
		s.input = nil
	}
	if s.output != nil {
		if err := s.output.Destroy(); err != nil && first == nil {
			first = err
		}
		s.output = nil
	}
	return first
}

func shapeOf(s tensor.Shape) ort.Shape {
	dims := make([]int64, len(s))
	for i, d := range s {
		dims[i] = int64(d)
	}
	return ort.NewShape(dims...)
}

// modelNumClasses looks up the named output in the model metadata and
// returns its class count, or 0 if the class dimension is dynamic.
func modelNumClasses(model []byte, outputName string) (int, error) {
	_, outputs, err := ort.GetInputOutputInfoWithONNXData(model)
	if err != nil {
		return 0, errors.Wrap(err, "reading model metadata")
	}
	for _, o := range outputs {
		if o.Name == outputName {
			return ClassesFromDims(o.Dimensions), nil
		}
	}
	return 0, errors.Errorf("model has no output named %q", outputName)
}
