package decoder

import (
	"context"
	"io"

	"golang.org/x/image/webp"

	"github.com/glintlab/screenshot-finisher/core"
	apperrors "github.com/glintlab/screenshot-finisher/errors"
	"github.com/glintlab/screenshot-finisher/utils"
)

// WebP decodes WebP screenshots using golang.org/x/image/webp.
// NOTE: golang.org/x/image/webp only supports lossy WebP decoding.
// For lossless or animated WebP, register the vips backend instead.
type WebP struct{}

func NewWebP() *WebP { return &WebP{} }

func (w *WebP) CanDecode(format core.Format) bool {
	return format == core.FormatWebP
}

func (w *WebP) Decode(ctx context.Context, r io.Reader) (*core.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "webp.decode", err)
	}

	// Buffer the reader so we can both decode and retain the original bytes.
	buf, err := utils.DrainReader(ctx, r, 32*1024)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "webp.drain", err)
	}
	defer utils.ReleaseBuffer(buf)

	img, err := webp.Decode(utils.BytesReader(buf.Bytes()))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "webp.decode", err)
	}

	return frameFor(img, core.FormatWebP), nil
}
