package detector

import (
	"fmt"

	"github.com/nvr-ai/go-thermal/images"
)

// Detection is one recognized object in a frame.
type Detection struct {
	// DisplayLabel is the grouped label, e.g. "Vehicle" for a raw "truck".
	DisplayLabel string `json:"label"`
	// Confidence is the winning class score in [0, 1].
	Confidence float32 `json:"confidence"`
	// Box is in original-image pixel coordinates.
	Box images.Rect `json:"box"`
	// DistanceMeters is nil when no estimate is available.
	DistanceMeters *float32 `json:"distance_m,omitempty"`
}

func (d Detection) String() string {
	if d.DistanceMeters == nil {
		return fmt.Sprintf("%s %.0f%% %v", d.DisplayLabel, d.Confidence*100, d.Box)
	}
	return fmt.Sprintf("%s %.0f%% %v %.1fm", d.DisplayLabel, d.Confidence*100, d.Box, *d.DistanceMeters)
}
