// Package postprocess - Decoding, suppression and ranking of raw detector output.
package postprocess

import (
	"fmt"

	"github.com/nvr-ai/go-thermal/images"
)

// Result represents a single candidate detection.
type Result struct {
	// The bounding box in original-image pixels.
	Box images.Rect
	// The winning class score.
	Score float32
	// The winning class index in the output tensor.
	Class int
	// The raw label for Class.
	Label string
	// The grouped label shown to users.
	DisplayLabel string
}

func (r Result) String() string {
	return fmt.Sprintf("%s (%s) %.3f %v", r.DisplayLabel, r.Label, r.Score, r.Box)
}
