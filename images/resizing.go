package images

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// Resize scales img to exactly width x height with bilinear filtering.
//
// The aspect ratio is not preserved; the model input is a fixed square and
// boxes are mapped back to the source dimensions per axis.
//
// Arguments:
//   - img: The image to resize.
//   - width: The target width in pixels.
//   - height: The target height in pixels.
//
// Returns:
//   - image.Image: The resized image with bounds (0, 0)-(width, height).
//   - error: An error if the source or target dimensions are empty.
//
// @example
// resized, err := images.Resize(frame, 640, 640)
//
//	if err != nil {
//	    return err
//	}
func Resize(img image.Image, width, height int) (image.Image, error) {
	if img == nil {
		return nil, errors.New("image is nil")
	}
	if img.Bounds().Empty() {
		return nil, errors.Errorf("invalid image dimensions: %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid target dimensions: width=%d, height=%d", width, height)
	}

	return resize.Resize(uint(width), uint(height), img, resize.Bilinear), nil
}
