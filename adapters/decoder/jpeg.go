// Package decoder provides format-specific screenshot decoders.
package decoder

import (
	"context"
	"image"
	"image/jpeg"
	"io"

	"github.com/glintlab/screenshot-finisher/core"
	apperrors "github.com/glintlab/screenshot-finisher/errors"
)

// JPEG decodes JPEG screenshots using the standard library.
type JPEG struct{}

// NewJPEG returns an initialised JPEG decoder.
func NewJPEG() *JPEG { return &JPEG{} }

func (j *JPEG) CanDecode(format core.Format) bool {
	return format == core.FormatJPEG || format == core.FormatUnknown
}

func (j *JPEG) Decode(ctx context.Context, r io.Reader) (*core.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "jpeg.decode", err)
	}

	img, err := jpeg.Decode(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "jpeg.decode", err)
	}

	return frameFor(img, core.FormatJPEG), nil
}

// frameFor wraps a decoded bitmap in a Frame with metadata populated.
func frameFor(img image.Image, format core.Format) *core.Frame {
	bounds := img.Bounds()
	return &core.Frame{
		Source: img,
		Format: format,
		Meta: core.Metadata{
			Width:    bounds.Dx(),
			Height:   bounds.Dy(),
			Format:   format,
			HasAlpha: hasAlpha(img),
		},
	}
}

func hasAlpha(img image.Image) bool {
	switch img.(type) {
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64:
		return true
	}
	return false
}
