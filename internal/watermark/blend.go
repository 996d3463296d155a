package watermark

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

const maxAlpha = 255.0

// Blend returns a new image with logo composited onto base at the given
// opacity. The result has the bounds of base translated to the origin and
// shares no pixel memory with either input.
func Blend(base, logo image.Image, opacity float64) (*image.NRGBA, error) {
	if err := ValidateOpacity(opacity); err != nil {
		return nil, err
	}

	dst := imaging.Clone(base)
	mark := fitLogo(logo, dst.Bounds().Size())

	region := Placement(dst.Bounds(), mark.Bounds().Size())
	blendRegion(dst, mark, region, opacity)

	return dst, nil
}

// ValidateOpacity rejects opacities outside [0, 1], including NaN.
func ValidateOpacity(opacity float64) error {
	if math.IsNaN(opacity) || opacity < 0 || opacity > 1 {
		return &InvalidParameterError{Name: "opacity", Value: opacity}
	}
	return nil
}

// Placement returns the area of bounds covered by a logo of the given size
// anchored at the top-left corner.
func Placement(bounds image.Rectangle, logo image.Point) image.Rectangle {
	rect := image.Rectangle{Min: bounds.Min, Max: bounds.Min.Add(logo)}
	return rect.Intersect(bounds)
}

// fitLogo normalizes the logo to NRGBA at the origin, scaling it down to fit
// within size when it is larger in either dimension.
func fitLogo(logo image.Image, size image.Point) *image.NRGBA {
	b := logo.Bounds()
	if b.Dx() > size.X || b.Dy() > size.Y {
		return imaging.Fit(logo, size.X, size.Y, imaging.Lanczos)
	}
	return imaging.Clone(logo)
}

// blendRegion mixes mark into dst over region. mark is read from its origin.
func blendRegion(dst, mark *image.NRGBA, region image.Rectangle, opacity float64) {
	if region.Empty() || opacity == 0 {
		return
	}

	for row := 0; row < region.Dy(); row++ {
		for col := 0; col < region.Dx(); col++ {
			s := mark.PixOffset(mark.Rect.Min.X+col, mark.Rect.Min.Y+row)
			alpha := float64(mark.Pix[s+3]) / maxAlpha * opacity
			if alpha == 0 {
				continue
			}

			d := dst.PixOffset(region.Min.X+col, region.Min.Y+row)
			for c := 0; c < 3; c++ {
				v := float64(dst.Pix[d+c])*(1-alpha) + float64(mark.Pix[s+c])*alpha
				dst.Pix[d+c] = clampU8(v)
			}

			a := float64(dst.Pix[d+3])
			dst.Pix[d+3] = clampU8(a + alpha*(maxAlpha-a))
		}
	}
}

func clampU8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > maxAlpha {
		return 255
	}
	return uint8(math.Round(v))
}
