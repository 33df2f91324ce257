package decoder

import (
	"context"
	"image/png"
	"io"

	"github.com/glintlab/screenshot-finisher/core"
	apperrors "github.com/glintlab/screenshot-finisher/errors"
)

// PNG decodes PNG screenshots using the standard library.
type PNG struct{}

func NewPNG() *PNG { return &PNG{} }

func (p *PNG) CanDecode(format core.Format) bool {
	return format == core.FormatPNG
}

func (p *PNG) Decode(ctx context.Context, r io.Reader) (*core.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "png.decode", err)
	}

	img, err := png.Decode(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "png.decode", err)
	}

	return frameFor(img, core.FormatPNG), nil
}
