// Package inference - Inference engine interface, tensor packing and the ONNX Runtime session.
package inference

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

const (
	// InputSize is the square model input edge in pixels.
	InputSize = 640
	// InputChannels is the number of interleaved color channels (R, G, B).
	InputChannels = 3
	// NumAnchors is the fixed number of candidate positions in the output.
	NumAnchors = 8400
	// BoxChannels is the number of box geometry values per anchor (cx, cy, w, h).
	BoxChannels = 4
)

// ErrShapeMismatch is returned when a tensor does not have the expected shape.
var ErrShapeMismatch = errors.New("tensor shape mismatch")

// Engine is an opaque inference runtime with fixed input and output shapes.
//
// Run takes a float32 tensor shaped InputShape() and returns a float32
// tensor shaped OutputShape(numClasses). Implementations are not required
// to be safe for concurrent use.
type Engine interface {
	Run(input *tensor.Dense) (*tensor.Dense, error)
	Close() error
}

// Loader builds an Engine from serialized model bytes.
type Loader func(model []byte, cfg SessionConfig) (Engine, error)

// InputShape returns [1, 640, 640, 3].
func InputShape() tensor.Shape {
	return tensor.Shape{1, InputSize, InputSize, InputChannels}
}

// OutputShape returns [1, 4+numClasses, 8400].
func OutputShape(numClasses int) tensor.Shape {
	return tensor.Shape{1, BoxChannels + numClasses, NumAnchors}
}

// CheckShape verifies that t is a float32 tensor with the given shape.
//
// Arguments:
//   - t: The tensor to check.
//   - want: The expected shape.
//
// Returns:
//   - error: An error wrapping ErrShapeMismatch if t does not conform.
func CheckShape(t *tensor.Dense, want tensor.Shape) error {
	if t == nil {
		return errors.Wrap(ErrShapeMismatch, "tensor is nil")
	}
	if t.Dtype() != tensor.Float32 {
		return errors.Wrapf(ErrShapeMismatch, "dtype %v, want float32", t.Dtype())
	}
	if !t.Shape().Eq(want) {
		return errors.Wrapf(ErrShapeMismatch, "shape %v, want %v", t.Shape(), want)
	}
	return nil
}

// NumClasses derives the class count from a [1, 4+N, 8400] output tensor.
//
// Returns:
//   - int: N, at least 1.
//   - error: An error wrapping ErrShapeMismatch for any other layout.
func NumClasses(out *tensor.Dense) (int, error) {
	if out == nil {
		return 0, errors.Wrap(ErrShapeMismatch, "output is nil")
	}
	s := out.Shape()
	if len(s) != 3 || s[0] != 1 || s[2] != NumAnchors || s[1] <= BoxChannels {
		return 0, errors.Wrapf(ErrShapeMismatch, "output shape %v, want [1 4+N %d]", s, NumAnchors)
	}
	n := s[1] - BoxChannels
	if err := CheckShape(out, OutputShape(n)); err != nil {
		return 0, err
	}
	return n, nil
}

// ClassesFromDims returns N for a [1, 4+N, 8400] output shape as reported
// by model metadata, where a dimension of -1 is dynamic.
//
// Returns:
//   - int: N, or 0 when the shape does not fix the class count.
func ClassesFromDims(dims []int64) int {
	if len(dims) != 3 || dims[1] <= BoxChannels {
		return 0
	}
	if dims[2] > 0 && dims[2] != NumAnchors {
		return 0
	}
	return int(dims[1]) - BoxChannels
}
