package images

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/disintegration/imaging"
)

const (
	// contrastGain scales every channel around the 128 midpoint.
	contrastGain float32 = 1.3
	// contrastBias keeps the midpoint fixed: 128 * (1 - gain).
	contrastBias float32 = 128 * (1 - contrastGain)
	// saturationGain pushes channels away from the pixel luminance.
	saturationGain float32 = 1.2

	// Luminance weights used for the saturation transform.
	lumR float32 = 0.213
	lumG float32 = 0.715
	lumB float32 = 0.072
)

// Enhance applies the fixed thermal contrast and saturation boost to every
// pixel of img.
//
// Each channel first goes through the linear contrast transform
// v' = 1.3*v - 38.4, then the result is pushed 1.2x away from its
// luminance. The combined value is clamped to [0, 255] once and rounded to
// the nearest integer. Alpha is preserved.
//
// Arguments:
//   - img: The source frame. It is not modified.
//
// Returns:
//   - *image.NRGBA: A new image with the same bounds size, origin at (0, 0).
//
// @example
// frame := loadFrame()
// enhanced := images.Enhance(frame)
func Enhance(img image.Image) *image.NRGBA {
	return imaging.AdjustFunc(img, EnhancePixel)
}

// EnhancePixel is the per-pixel transform used by Enhance.
func EnhancePixel(c color.NRGBA) color.NRGBA {
	r := contrastGain*float32(c.R) + contrastBias
	g := contrastGain*float32(c.G) + contrastBias
	b := contrastGain*float32(c.B) + contrastBias

	lum := lumR*r + lumG*g + lumB*b

	return color.NRGBA{
		R: clampChannel(lum + saturationGain*(r-lum)),
		G: clampChannel(lum + saturationGain*(g-lum)),
		B: clampChannel(lum + saturationGain*(b-lum)),
		A: c.A,
	}
}

func clampChannel(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(math32.Round(v))
}
