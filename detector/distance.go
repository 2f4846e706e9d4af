package detector

import "github.com/nvr-ai/go-thermal/models"

const (
	// focalLengthPixels is the calibrated focal length of the thermal optics.
	focalLengthPixels = 3350
	// minMeasurableHeight is the smallest box height, in pixels, used for ranging.
	minMeasurableHeight = 10
	minDistanceMeters   = 1
	maxDistanceMeters   = 100
)

// EstimateDistance returns the monocular distance in meters to an object of
// the given raw label whose box is heightPixels tall in the original frame.
//
// The result is nil when the label has no reference height, the box is
// shorter than 10 px, or the estimate falls outside [1, 100] m.
//
// Arguments:
//   - label: The raw class label.
//   - heightPixels: The box height in original-image pixels.
//
// Returns:
//   - *float32: The distance, or nil if unavailable.
//
// @example
// d := detector.EstimateDistance("Person", 200) // 28.475
func EstimateDistance(label string, heightPixels float32) *float32 {
	ref, ok := models.ReferenceHeight(label)
	if !ok {
		return nil
	}
	if !(heightPixels >= minMeasurableHeight) {
		return nil
	}
	d := ref * focalLengthPixels / heightPixels
	if d < minDistanceMeters || d > maxDistanceMeters {
		return nil
	}
	return &d
}
