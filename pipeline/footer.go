package pipeline

import (
	"context"
	"image"
	"image/color"
	"image/draw"

	"github.com/glintlab/screenshot-finisher/core"
	apperrors "github.com/glintlab/screenshot-finisher/errors"
	"github.com/glintlab/screenshot-finisher/render"
)

// Footer layout constants (px).  FooterHeight = 2·paddingY + 2·lineHeight +
// lineGap = 64.
const (
	footerPaddingX = 24
	footerPaddingY = 12
	footerLineGap  = 4
	footerFontSize = 14
	footerLineH    = 18

	// FooterHeight is the exact growth applied to the canvas when the
	// forensic footer is enabled.
	FooterHeight = 2*footerPaddingY + 2*footerLineH + footerLineGap
)

var (
	footerBandColor = color.NRGBA{R: 0xF8, G: 0xFA, B: 0xFC, A: 0xFF} // #f8fafc
	footerSeamColor = color.NRGBA{R: 0xE2, G: 0xE8, B: 0xF0, A: 0xFF} // #e2e8f0
	footerTextColor = color.NRGBA{R: 0x0F, G: 0x17, B: 0x2A, A: 0xFF} // #0f172a
)

// FooterStep grows the canvas downward and stamps the forensic metadata
// footer: a light band, a 1 px seam, and two lines of monospaced text.  It is
// always the last transform before encoding.
type FooterStep struct{}

func (s *FooterStep) Name() string { return "footer" }

func (s *FooterStep) Execute(ctx context.Context, fr *core.Frame) (*core.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryPipeline, s.Name(), err)
	}
	meta := fr.Spec.Forensic
	if meta == nil {
		return fr, nil
	}
	if fr.Canvas == nil {
		return nil, apperrors.New(apperrors.CategoryPipeline, s.Name(), apperrors.ErrEmptyInput)
	}

	srcB := fr.Canvas.Bounds()
	w, origH := srcB.Dx(), srcB.Dy()

	grown := image.NewNRGBA(image.Rect(0, 0, w, origH+FooterHeight))
	draw.Draw(grown, image.Rect(0, 0, w, origH), fr.Canvas, srcB.Min, draw.Src)

	band := image.Rect(0, origH, w, origH+FooterHeight)
	draw.Draw(grown, band, image.NewUniform(footerBandColor), image.Point{}, draw.Src)

	seam := image.Rect(0, origH, w, origH+1)
	draw.Draw(grown, seam, image.NewUniform(footerSeamColor), image.Point{}, draw.Src)

	render.DrawText(grown, "UTC: "+meta.TimestampUTC,
		footerPaddingX, origH+footerPaddingY, footerTextColor)
	render.DrawText(grown, "User: "+meta.Label(),
		footerPaddingX, origH+footerPaddingY+footerLineH+footerLineGap, footerTextColor)

	out := *fr
	out.Canvas = grown
	out.Meta.Height = origH + FooterHeight
	return &out, nil
}
