// Package render implements the raster surface the compositing stages draw
// on.  Vector shapes (rounded rectangles, shadows, gradients) are rasterized
// with gogpu/gg; composition and resampling use image/draw and x/image/draw;
// Gaussian blur uses disintegration/imaging.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/gogpu/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/glintlab/screenshot-finisher/core"
	apperrors "github.com/glintlab/screenshot-finisher/errors"
)

// DefaultMaxPixels bounds surface allocations (64 MPix ≈ 256 MB RGBA).
const DefaultMaxPixels int64 = 64 * 1024 * 1024

// Surface is the default core.Surface implementation backed by a plain NRGBA
// pixel buffer.
type Surface struct {
	canvas *image.NRGBA
}

var _ core.Surface = (*Surface)(nil)

// New allocates a transparent surface of the given dimensions.
func New(w, h int) (*Surface, error) {
	return NewWithLimit(w, h, DefaultMaxPixels)
}

// NewWithLimit allocates a surface, failing with a surface error when the
// dimensions are invalid or exceed the pixel budget.
func NewWithLimit(w, h int, maxPixels int64) (*Surface, error) {
	if w <= 0 || h <= 0 {
		return nil, apperrors.New(apperrors.CategorySurface, "surface.new",
			fmt.Errorf("%w: %dx%d", apperrors.ErrInvalidDimensions, w, h))
	}
	if maxPixels > 0 && int64(w)*int64(h) > maxPixels {
		return nil, apperrors.New(apperrors.CategorySurface, "surface.new",
			fmt.Errorf("surface %dx%d exceeds pixel budget %d", w, h, maxPixels))
	}
	return &Surface{canvas: image.NewNRGBA(image.Rect(0, 0, w, h))}, nil
}

func (s *Surface) Width() int  { return s.canvas.Rect.Dx() }
func (s *Surface) Height() int { return s.canvas.Rect.Dy() }

// Fill covers the entire surface with a flat color.
func (s *Surface) Fill(c color.Color) {
	draw.Draw(s.canvas, s.canvas.Rect, image.NewUniform(c), image.Point{}, draw.Src)
}

// StretchBitmap draws src stretched to exactly cover the surface.  No aspect
// preservation: backgrounds are pre-authored at arbitrary aspect and are
// expected to stretch.
func (s *Surface) StretchBitmap(src image.Image) {
	sb := src.Bounds()
	if sb.Dx() == s.Width() && sb.Dy() == s.Height() {
		draw.Draw(s.canvas, s.canvas.Rect, src, sb.Min, draw.Src)
		return
	}
	xdraw.CatmullRom.Scale(s.canvas, s.canvas.Rect, src, sb, xdraw.Src, nil)
}

// Shadow renders a blurred rounded-rectangle shadow congruent to rect,
// displaced by (offsetX, offsetY), at the given opacity (0-1).  It is drawn
// before the foreground image so it appears to emanate from behind it.
func (s *Surface) Shadow(rect image.Rectangle, cornerRadius float64, blur, offsetX, offsetY int, opacity float64) {
	if opacity <= 0 {
		return
	}
	if opacity > 1 {
		opacity = 1
	}
	if blur < 0 {
		blur = 0
	}

	// Rasterize the shadow shape on its own layer with enough margin for the
	// blur kernel to fall off.
	margin := blur * 2
	w := rect.Dx() + 2*margin
	h := rect.Dy() + 2*margin
	dc := gg.NewContext(w, h)
	dc.SetRGBA(0, 0, 0, opacity)
	r := clampRadius(cornerRadius, rect.Dx(), rect.Dy())
	if r > 0 {
		dc.DrawRoundedRectangle(float64(margin), float64(margin), float64(rect.Dx()), float64(rect.Dy()), r)
	} else {
		dc.DrawRectangle(float64(margin), float64(margin), float64(rect.Dx()), float64(rect.Dy()))
	}
	if err := dc.Fill(); err != nil {
		return // shadow is decorative; a rasterizer failure must not abort the composite
	}

	var layer image.Image = dc.Image()
	if blur > 0 {
		// CSS-style blur radius maps to roughly 2 sigma.
		layer = imaging.Blur(layer, float64(blur)/2)
	}

	dst := image.Rect(
		rect.Min.X-margin+offsetX,
		rect.Min.Y-margin+offsetY,
		rect.Min.X-margin+offsetX+w,
		rect.Min.Y-margin+offsetY+h,
	)
	draw.Draw(s.canvas, dst, layer, layer.Bounds().Min, draw.Over)
}

// ClippedBitmap draws src into rect at 1:1 scale through a rounded-rectangle
// clip.  Pixels outside the rounded outline are not written.  A radius of at
// least half the shorter side degenerates to a stadium; that is intentional.
func (s *Surface) ClippedBitmap(src image.Image, rect image.Rectangle, cornerRadius float64) {
	r := clampRadius(cornerRadius, rect.Dx(), rect.Dy())
	if r <= 0 {
		draw.Draw(s.canvas, rect, src, src.Bounds().Min, draw.Over)
		return
	}
	mask := roundedMask(rect.Dx(), rect.Dy(), r)
	if mask == nil {
		draw.Draw(s.canvas, rect, src, src.Bounds().Min, draw.Over)
		return
	}
	draw.DrawMask(s.canvas, rect, src, src.Bounds().Min, mask, image.Point{}, draw.Over)
}

// Snapshot flattens the surface to a pixel buffer the caller owns.
func (s *Surface) Snapshot() *image.NRGBA {
	out := image.NewNRGBA(s.canvas.Rect)
	copy(out.Pix, s.canvas.Pix)
	return out
}

// clampRadius bounds the corner radius to half the shorter side.
func clampRadius(r float64, w, h int) float64 {
	if r < 0 {
		return 0
	}
	short := w
	if h < short {
		short = h
	}
	if max := float64(short) / 2; r > max {
		return max
	}
	return r
}

// roundedMask rasterizes an anti-aliased rounded-rectangle coverage mask.
func roundedMask(w, h int, r float64) *image.Alpha {
	dc := gg.NewContext(w, h)
	dc.SetRGBA(1, 1, 1, 1)
	dc.DrawRoundedRectangle(0, 0, float64(w), float64(h), r)
	if err := dc.Fill(); err != nil {
		return nil
	}
	shape := dc.Image().(*image.RGBA)

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		si := shape.PixOffset(0, y)
		mi := mask.PixOffset(0, y)
		for x := 0; x < w; x++ {
			mask.Pix[mi+x] = shape.Pix[si+x*4+3]
		}
	}
	return mask
}
