// Package pipeline provides the built-in finishing steps and the extensible
// Step API.
package pipeline

import (
	"context"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/glintlab/screenshot-finisher/core"
	apperrors "github.com/glintlab/screenshot-finisher/errors"
	"github.com/glintlab/screenshot-finisher/utils"
)

// ── Decode ────────────────────────────────────────────────────────────────────

// DecodeStep decodes raw bytes in fr.Data into the source bitmap.
type DecodeStep struct {
	Registry core.Registry
}

func (s *DecodeStep) Name() string { return "decode" }

func (s *DecodeStep) Execute(ctx context.Context, fr *core.Frame) (*core.Frame, error) {
	if fr.Source != nil {
		return fr, nil // already decoded
	}
	if len(fr.Data) == 0 {
		return nil, apperrors.New(apperrors.CategoryDecode, s.Name(), apperrors.ErrEmptyInput)
	}
	dec, ok := s.Registry.DecoderFor(fr.Format)
	if !ok {
		return nil, apperrors.New(apperrors.CategoryDecode, s.Name(),
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, fr.Format))
	}

	decoded, err := dec.Decode(ctx, utils.BytesReader(fr.Data))
	if err != nil {
		return nil, err
	}

	// Preserve the request state alongside the decoded representation.
	decoded.Data = fr.Data
	decoded.OriginalSize = fr.OriginalSize
	decoded.Spec = fr.Spec
	decoded.Background = fr.Background
	return decoded, nil
}

// ── Pre-blur ──────────────────────────────────────────────────────────────────

// PreBlurStep applies the optional Gaussian pre-blur to the source bitmap
// before compositing.  A BlurAmount of 0 is a no-op.
type PreBlurStep struct{}

func (s *PreBlurStep) Name() string { return "preblur" }

func (s *PreBlurStep) Execute(ctx context.Context, fr *core.Frame) (*core.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryPipeline, s.Name(), err)
	}
	amount := fr.Spec.Composition.BlurAmount
	if amount <= 0 {
		return fr, nil
	}
	if fr.Source == nil {
		return nil, apperrors.New(apperrors.CategoryPipeline, s.Name(), apperrors.ErrEmptyInput)
	}

	out := *fr
	out.Source = imaging.Blur(fr.Source, float64(amount)/10)
	return &out, nil
}

// ── Encode ────────────────────────────────────────────────────────────────────

// EncodeStep serialises the finished canvas into the output artifact.  The
// finishing pipeline always targets lossless PNG.
type EncodeStep struct {
	Registry    core.Registry
	Format      core.Format // defaults to PNG
	BaseOptions core.EncodeOptions
}

func (s *EncodeStep) Name() string { return "encode" }

func (s *EncodeStep) Execute(ctx context.Context, fr *core.Frame) (*core.Frame, error) {
	format := s.Format
	if format == "" {
		format = core.FormatPNG
	}
	enc, ok := s.Registry.EncoderFor(format)
	if !ok {
		return nil, apperrors.New(apperrors.CategoryEncode, s.Name(),
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, format))
	}

	opts := s.BaseOptions
	opts.Lossless = true

	data, err := enc.Encode(ctx, fr, opts)
	if err != nil {
		return nil, err
	}

	out := *fr
	out.Artifact = data
	out.Format = format
	out.Meta.Format = format
	out.Meta.SizeBytes = int64(len(data))
	return &out, nil
}
