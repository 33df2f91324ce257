package render

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// footerFace is the monospaced face used for the forensic footer.  The fixed
// 7x13 face keeps the module free of bundled font files; the footer layout
// constants leave it comfortable headroom in the 18 px line boxes.
var footerFace font.Face = basicfont.Face7x13

// DrawText draws s onto dst with its top-left corner at (x, y).
func DrawText(dst *image.NRGBA, s string, x, y int, c color.Color) {
	metrics := footerFace.Metrics()
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: footerFace,
		Dot:  fixed.P(x, y+metrics.Ascent.Ceil()),
	}
	d.DrawString(s)
}
