package inference

import (
	"image"

	"github.com/nvr-ai/go-thermal/images"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// NewInputTensor allocates a zeroed [1, 640, 640, 3] float32 tensor.
func NewInputTensor() *tensor.Dense {
	return tensor.New(tensor.WithShape(InputShape()...), tensor.Of(tensor.Float32))
}

// Preprocess runs the full frame preparation: contrast/saturation
// enhancement, a 640x640 resize, and packing into dst.
//
// Arguments:
//   - img: The original frame of any size.
//   - dst: A tensor shaped InputShape().
//
// Returns:
//   - error: An error if the frame is empty or dst has the wrong shape.
//
// @example
// input := inference.NewInputTensor()
//
//	if err := inference.Preprocess(frame, input); err != nil {
//	    return err
//	}
func Preprocess(img image.Image, dst *tensor.Dense) error {
	if img == nil {
		return errors.New("image is nil")
	}
	if img.Bounds().Empty() {
		return errors.Errorf("invalid image dimensions: %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}

	enhanced := images.Enhance(img)

	resized, err := images.Resize(enhanced, InputSize, InputSize)
	if err != nil {
		return errors.Wrap(err, "resizing frame")
	}

	return PackInput(resized, dst)
}

// PackInput fills dst with img in row-major, channel-interleaved R, G, B
// order, each channel scaled from 8 bits to [0, 1]. Alpha is discarded.
//
// Arguments:
//   - img: A 640x640 image.
//   - dst: A tensor shaped InputShape().
//
// Returns:
//   - error: An error if the image size or tensor shape does not match.
func PackInput(img image.Image, dst *tensor.Dense) error {
	if err := CheckShape(dst, InputShape()); err != nil {
		return err
	}
	b := img.Bounds()
	if b.Dx() != InputSize || b.Dy() != InputSize {
		return errors.Errorf("image is %dx%d, want %dx%d", b.Dx(), b.Dy(), InputSize, InputSize)
	}

	data := dst.Data().([]float32)

	switch src := img.(type) {
	case *image.NRGBA:
		packPix(data, src.Pix, src.Stride, src.PixOffset(b.Min.X, b.Min.Y))
	case *image.RGBA:
		packPix(data, src.Pix, src.Stride, src.PixOffset(b.Min.X, b.Min.Y))
	default:
		i := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				r, g, bl, _ := img.At(x, y).RGBA()
				data[i] = float32(r>>8) / 255.0
				data[i+1] = float32(g>>8) / 255.0
				data[i+2] = float32(bl>>8) / 255.0
				i += InputChannels
			}
		}
	}
	return nil
}

// packPix copies 4-byte-per-pixel rows into the tensor, dropping alpha.
func packPix(data []float32, pix []uint8, stride, offset int) {
	i := 0
	for y := 0; y < InputSize; y++ {
		row := pix[offset+y*stride : offset+y*stride+InputSize*4]
		for x := 0; x < InputSize*4; x += 4 {
			data[i] = float32(row[x]) / 255.0
			data[i+1] = float32(row[x+1]) / 255.0
			data[i+2] = float32(row[x+2]) / 255.0
			i += InputChannels
		}
	}
}
