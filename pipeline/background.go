package pipeline

import (
	"context"

	"github.com/glintlab/screenshot-finisher/core"
	apperrors "github.com/glintlab/screenshot-finisher/errors"
	"github.com/glintlab/screenshot-finisher/render"
)

// BackgroundStep resolves the configured background and paints it onto a
// fresh output surface sized (sourceWidth + 2·padding, sourceHeight +
// 2·padding).  A transparent background keeps the surface fully uncovered and
// forces zero padding.
type BackgroundStep struct {
	// Resolver resolves fr.Spec.Background when Resolved is nil.  The sync
	// Finish path pre-resolves in parallel with the source decode and sets
	// Resolved; async jobs resolve here.
	Resolver core.BackgroundResolver
	Resolved *core.ResolvedBackground

	// NewSurface allocates the working surface.  Defaults to render.New.
	NewSurface func(w, h int) (core.Surface, error)
}

func (s *BackgroundStep) Name() string { return "background" }

func (s *BackgroundStep) Execute(ctx context.Context, fr *core.Frame) (*core.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryPipeline, s.Name(), err)
	}
	if fr.Source == nil {
		return nil, apperrors.New(apperrors.CategoryPipeline, s.Name(), apperrors.ErrEmptyInput)
	}

	bg, err := s.resolved(ctx, fr)
	if err != nil {
		return nil, err
	}

	comp := fr.Spec.Composition.ForBackground(bg.Kind)
	srcB := fr.Source.Bounds()
	w := srcB.Dx() + 2*comp.Padding
	h := srcB.Dy() + 2*comp.Padding

	alloc := s.NewSurface
	if alloc == nil {
		alloc = func(w, h int) (core.Surface, error) { return render.New(w, h) }
	}
	surface, err := alloc(w, h)
	if err != nil {
		return nil, err
	}

	switch bg.Kind {
	case core.BackgroundTransparent:
		// The surface stays at alpha 0; the host UI's checkerboard preview is
		// cosmetic and never baked into the artifact.
	case core.BackgroundSolid, core.BackgroundCustomColor:
		surface.Fill(bg.Fill)
	case core.BackgroundImage, core.BackgroundGradient:
		surface.StretchBitmap(bg.Bitmap)
	}

	out := *fr
	out.Background = bg
	out.Surface = surface
	out.Spec.Composition = comp
	out.Meta.Width = w
	out.Meta.Height = h
	return &out, nil
}

func (s *BackgroundStep) resolved(ctx context.Context, fr *core.Frame) (core.ResolvedBackground, error) {
	if s.Resolved != nil {
		return *s.Resolved, nil
	}
	if s.Resolver == nil {
		return core.ResolvedBackground{}, apperrors.New(apperrors.CategoryPipeline, s.Name(),
			apperrors.ErrNoDefaultBackground)
	}
	return s.Resolver.Resolve(ctx, fr.Spec.Background)
}
