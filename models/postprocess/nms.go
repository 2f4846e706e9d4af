package postprocess

import (
	"math"
	"sort"

	flatbush "github.com/bmharper/flatbush-go"
	"github.com/chewxy/math32"
	"github.com/nvr-ai/go-thermal/images"
)

const (
	// DefaultIoUThreshold is the overlap above which the weaker box is suppressed.
	DefaultIoUThreshold = 0.45
	// DefaultMaxResults is the number of detections returned per frame.
	DefaultMaxResults = 5
)

// NMSConfig defines parameters for Non-Maximum Suppression.
type NMSConfig struct {
	IoUThreshold float32 // Overlap threshold for suppression.
	ClassAware   bool    // If true, suppress only within same class.
}

// DefaultNMSConfig returns class-agnostic suppression at IoU 0.45.
func DefaultNMSConfig() NMSConfig {
	return NMSConfig{IoUThreshold: DefaultIoUThreshold}
}

// SortByScore stably orders detections by descending score.
func SortByScore(detections []Result) {
	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Score > detections[j].Score
	})
}

// ApplyGreedyNMS performs standard greedy Non-Maximum Suppression.
//
// Candidates are walked in descending score order. Each candidate that
// has not been suppressed is kept and suppresses every later candidate
// whose IoU with it exceeds config.IoUThreshold. A flatbush index limits
// the IoU checks to boxes whose bounds overlap.
//
// Arguments:
//   - detections: Candidates in any order. The slice is not modified.
//   - config: NMS configuration. With ClassAware false a box of one class
//     can suppress a box of another.
//
// Returns:
//   - []Result: The kept detections in descending score order.
func ApplyGreedyNMS(detections []Result, config NMSConfig) []Result {
	n := len(detections)
	if n == 0 {
		return []Result{}
	}

	sorted := make([]Result, n)
	copy(sorted, detections)
	SortByScore(sorted)

	index := flatbush.NewFlatbush[int32]()
	index.Reserve(n)
	for _, d := range sorted {
		minX, minY, maxX, maxY := indexBounds(d.Box)
		index.Add(minX, minY, maxX, maxY)
	}
	index.Finish()

	kept := make([]Result, 0, n)
	suppressed := make([]bool, n)

	for i, anchor := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, anchor)

		minX, minY, maxX, maxY := indexBounds(anchor.Box)
		for _, j := range index.Search(minX, minY, maxX, maxY) {
			if j <= i || suppressed[j] {
				continue
			}
			if config.ClassAware && sorted[j].Class != anchor.Class {
				continue
			}
			if images.CalculateIoU(anchor.Box, sorted[j].Box) > config.IoUThreshold {
				suppressed[j] = true
			}
		}
	}

	return kept
}

// TopK sorts detections by descending score and returns at most k of them.
func TopK(detections []Result, k int) []Result {
	out := make([]Result, len(detections))
	copy(out, detections)
	SortByScore(out)
	if k >= 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// indexBounds widens a box to integer bounds so the index never misses an overlap.
func indexBounds(r images.Rect) (minX, minY, maxX, maxY int32) {
	return toInt32(math32.Floor(math32.Min(r.X1, r.X2))),
		toInt32(math32.Floor(math32.Min(r.Y1, r.Y2))),
		toInt32(math32.Ceil(math32.Max(r.X1, r.X2))),
		toInt32(math32.Ceil(math32.Max(r.Y1, r.Y2)))
}

func toInt32(v float32) int32 {
	switch {
	case v != v:
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}
