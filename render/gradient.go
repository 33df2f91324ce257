package render

import (
	"image"

	"github.com/gogpu/gg"
)

// Builtin gradient endpoints: the stock purple wash shipped as the default
// background (#667eea → #764ba2).
var (
	gradientStart = gg.Hex("#667eea")
	gradientEnd   = gg.Hex("#764ba2")
)

// BuiltinGradient renders the built-in default background: a diagonal linear
// gradient.  It is generated procedurally so the module ships no binary
// assets; the renderer stretches it to the output surface anyway.
func BuiltinGradient(w, h int) image.Image {
	dc := gg.NewContext(w, h)
	brush := gg.NewLinearGradientBrush(0, 0, float64(w), float64(h)).
		AddColorStop(0, gradientStart).
		AddColorStop(1, gradientEnd)
	dc.SetFillBrush(brush)
	dc.DrawRectangle(0, 0, float64(w), float64(h))
	if err := dc.Fill(); err != nil {
		// Degenerate fallback: flat start color.
		dc.SetRGBA(0x66/255.0, 0x7e/255.0, 0xea/255.0, 1)
		dc.DrawRectangle(0, 0, float64(w), float64(h))
		_ = dc.Fill()
	}
	return dc.Image()
}
