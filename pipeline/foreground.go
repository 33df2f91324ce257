package pipeline

import (
	"context"
	"image"

	"github.com/glintlab/screenshot-finisher/core"
	apperrors "github.com/glintlab/screenshot-finisher/errors"
)

// ForegroundStep places the source bitmap centered within the padded surface:
// shadow first, then the source drawn 1:1 through a rounded-rectangle clip.
// It flattens the surface into fr.Canvas for the remaining stages.
type ForegroundStep struct{}

func (s *ForegroundStep) Name() string { return "foreground" }

func (s *ForegroundStep) Execute(ctx context.Context, fr *core.Frame) (*core.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryPipeline, s.Name(), err)
	}
	if fr.Source == nil || fr.Surface == nil {
		return nil, apperrors.New(apperrors.CategoryPipeline, s.Name(), apperrors.ErrEmptyInput)
	}

	comp := fr.Spec.Composition
	srcB := fr.Source.Bounds()

	// Placement rectangle: uniform padding on all sides.
	placement := image.Rect(
		comp.Padding,
		comp.Padding,
		comp.Padding+srcB.Dx(),
		comp.Padding+srcB.Dy(),
	)
	radius := float64(comp.BorderRadius)

	if comp.Shadow.OpacityPercent > 0 {
		fr.Surface.Shadow(placement, radius,
			comp.Shadow.BlurRadius, comp.Shadow.OffsetX, comp.Shadow.OffsetY,
			float64(comp.Shadow.OpacityPercent)/100)
	}

	fr.Surface.ClippedBitmap(fr.Source, placement, radius)

	out := *fr
	out.Canvas = fr.Surface.Snapshot()
	return &out, nil
}
