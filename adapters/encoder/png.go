// Package encoder provides output artifact encoders.
package encoder

import (
	"bytes"
	"context"
	"image"
	"image/png"

	"github.com/glintlab/screenshot-finisher/core"
	apperrors "github.com/glintlab/screenshot-finisher/errors"
)

// PNG encodes the finished canvas to lossless PNG, the pipeline's output
// contract.
type PNG struct{}

func NewPNG() *PNG { return &PNG{} }

func (p *PNG) CanEncode(format core.Format) bool { return format == core.FormatPNG }

func (p *PNG) Encode(ctx context.Context, fr *core.Frame, opts core.EncodeOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "png.encode", err)
	}

	var src image.Image = fr.Canvas
	if fr.Canvas == nil {
		src = fr.Source
	}
	if src == nil {
		return nil, apperrors.New(apperrors.CategoryEncode, "png.encode", apperrors.ErrEmptyInput)
	}

	enc := &png.Encoder{CompressionLevel: png.DefaultCompression}
	if opts.Lossless {
		// PNG is always lossless; the flag selects the stronger compressor.
		enc.CompressionLevel = png.BestCompression
	}

	var buf bytes.Buffer
	if err := enc.Encode(&buf, src); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "png.encode", err)
	}
	return buf.Bytes(), nil
}
