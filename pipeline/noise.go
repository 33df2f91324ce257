package pipeline

import (
	"context"
	"image"
	"math/rand"
	"time"

	"github.com/glintlab/screenshot-finisher/core"
	apperrors "github.com/glintlab/screenshot-finisher/errors"
)

// noiseMaxDelta is the per-channel perturbation at noiseAmount = 100.
const noiseMaxDelta = 32.0

// NoiseStep blends a procedural per-pixel grain over the entire composite at
// low opacity.  Each pixel gets an independent luminance delta added to its
// RGB channels; alpha is untouched.  Determinism between runs is not a goal,
// but the random source is injectable so tests can fix a seed and assert on
// summary statistics.
type NoiseStep struct {
	// Rand supplies the grain.  When nil, a time-seeded source is used.
	Rand *rand.Rand
}

func (s *NoiseStep) Name() string { return "noise" }

func (s *NoiseStep) Execute(ctx context.Context, fr *core.Frame) (*core.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryPipeline, s.Name(), err)
	}
	amount := fr.Spec.Composition.NoiseAmount
	if amount <= 0 {
		return fr, nil
	}
	if fr.Canvas == nil {
		return nil, apperrors.New(apperrors.CategoryPipeline, s.Name(), apperrors.ErrEmptyInput)
	}

	rng := s.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	magnitude := float64(amount) / 100 * noiseMaxDelta

	out := *fr
	out.Canvas = grain(fr.Canvas, rng, magnitude)
	return &out, nil
}

// grain returns a copy of src with an additive luminance perturbation in
// [-magnitude, +magnitude] applied per pixel.
func grain(src *image.NRGBA, rng *rand.Rand, magnitude float64) *image.NRGBA {
	dst := image.NewNRGBA(src.Rect)
	copy(dst.Pix, src.Pix)
	for i := 0; i < len(dst.Pix); i += 4 {
		delta := (rng.Float64()*2 - 1) * magnitude
		dst.Pix[i+0] = clampByte(float64(dst.Pix[i+0]) + delta)
		dst.Pix[i+1] = clampByte(float64(dst.Pix[i+1]) + delta)
		dst.Pix[i+2] = clampByte(float64(dst.Pix[i+2]) + delta)
		// Pix[i+3] (alpha) is left untouched.
	}
	return dst
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
