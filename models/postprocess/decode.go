package postprocess

import (
	"github.com/nvr-ai/go-thermal/images"
	"github.com/nvr-ai/go-thermal/inference"
	"github.com/nvr-ai/go-thermal/models"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// MinBoxSize is the size floor in original-image pixels. Boxes must be
// strictly larger in both dimensions.
const MinBoxSize = 50

// Decode turns a [1, 4+N, 8400] output tensor into gated candidates.
//
// Each anchor is reduced to its highest scoring class, mapped to a class
// group, rejected below the group's minimum confidence, scaled from the
// 640x640 input space to origW x origH and rejected unless both sides
// exceed MinBoxSize. Candidates are returned in anchor order.
//
// Arguments:
//   - out: The model output tensor.
//   - labels: The label table aligned with the output class channels.
//   - origW: The width of the original frame.
//   - origH: The height of the original frame.
//
// Returns:
//   - []Result: The surviving candidates.
//   - error: An error if the tensor shape is invalid.
//
// @example
// candidates, err := postprocess.Decode(out, labels, frame.Bounds().Dx(), frame.Bounds().Dy())
func Decode(out *tensor.Dense, labels models.LabelTable, origW, origH int) ([]Result, error) {
	numClasses, err := inference.NumClasses(out)
	if err != nil {
		return nil, err
	}
	if origW <= 0 || origH <= 0 {
		return nil, errors.Errorf("invalid original dimensions: %dx%d", origW, origH)
	}

	data := out.Data().([]float32)
	const n = inference.NumAnchors

	var results []Result
	for a := 0; a < n; a++ {
		best := float32(0)
		class := -1
		for c := 0; c < numClasses; c++ {
			if s := data[(inference.BoxChannels+c)*n+a]; s > best {
				best = s
				class = c
			}
		}
		if class < 0 {
			continue
		}

		label := labels.Name(class)
		group := models.ClassGroupFor(label)
		if best < group.MinConfidence {
			continue
		}

		cx, cy := data[a], data[n+a]
		w, h := data[2*n+a], data[3*n+a]
		box := images.Rect{
			X1: (cx - w/2) / inference.InputSize * float32(origW),
			Y1: (cy - h/2) / inference.InputSize * float32(origH),
			X2: (cx + w/2) / inference.InputSize * float32(origW),
			Y2: (cy + h/2) / inference.InputSize * float32(origH),
		}
		if !(box.Width() > MinBoxSize && box.Height() > MinBoxSize) {
			continue
		}

		results = append(results, Result{
			Box:          box,
			Score:        best,
			Class:        class,
			Label:        label,
			DisplayLabel: group.DisplayLabel,
		})
	}
	return results, nil
}
