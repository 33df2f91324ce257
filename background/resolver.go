// Package background resolves a BackgroundSpec into a concrete renderable
// background: a flat fill color, a decoded bitmap, or the transparent marker.
package background

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"os"
	"strings"

	// Background resources may arrive in any of the capture formats.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/glintlab/screenshot-finisher/assets"
	"github.com/glintlab/screenshot-finisher/core"
	apperrors "github.com/glintlab/screenshot-finisher/errors"
	"github.com/glintlab/screenshot-finisher/render"
	"github.com/glintlab/screenshot-finisher/utils"
)

// Dimensions of the procedurally generated built-in gradient.  The renderer
// stretches the bitmap to the output surface, so only the aspect matters.
const (
	builtinGradientWidth  = 1024
	builtinGradientHeight = 768
)

// Resolver is the canonical core.BackgroundResolver implementation.
type Resolver struct {
	registry core.AssetRegistry
	logger   core.Logger
}

var _ core.BackgroundResolver = (*Resolver)(nil)

// New creates a Resolver backed by the given asset registry.  logger may be
// nil.
func New(registry core.AssetRegistry, logger core.Logger) *Resolver {
	return &Resolver{registry: registry, logger: logger}
}

// Resolve turns spec into a renderable background.  Image and gradient
// references that fail to resolve fall back once, silently, to the registry's
// default background before decoding; a decode failure after the fallback is
// a terminal background error.
func (r *Resolver) Resolve(ctx context.Context, spec core.BackgroundSpec) (core.ResolvedBackground, error) {
	switch spec.Kind {
	case core.BackgroundTransparent:
		return core.ResolvedBackground{Kind: core.BackgroundTransparent}, nil

	case core.BackgroundSolid:
		fill, ok := core.SolidColor(spec.ColorID)
		if !ok {
			return core.ResolvedBackground{}, apperrors.New(apperrors.CategoryConfig, "background.resolve",
				fmt.Errorf("unknown solid color id %q", spec.ColorID))
		}
		return core.ResolvedBackground{Kind: core.BackgroundSolid, Fill: fill}, nil

	case core.BackgroundCustomColor:
		fill, err := utils.ParseHexColor(spec.Hex)
		if err != nil {
			return core.ResolvedBackground{}, apperrors.Wrap(apperrors.CategoryConfig, "background.resolve", err)
		}
		return core.ResolvedBackground{Kind: core.BackgroundCustomColor, Fill: fill}, nil

	case core.BackgroundImage, core.BackgroundGradient:
		bmp, err := r.resolveBitmap(ctx, spec.Ref)
		if err != nil {
			return core.ResolvedBackground{}, err
		}
		return core.ResolvedBackground{Kind: spec.Kind, Bitmap: bmp}, nil
	}

	return core.ResolvedBackground{}, apperrors.New(apperrors.CategoryConfig, "background.resolve",
		fmt.Errorf("unhandled background kind %d", spec.Kind))
}

// resolveBitmap maps ref to a loadable location and decodes it, falling back
// to the default background when the reference is stale or undecodable.
func (r *Resolver) resolveBitmap(ctx context.Context, ref string) (image.Image, error) {
	defaultLoc := r.registry.DefaultBackgroundPath()

	loc, err := r.registry.ResolveBackgroundPath(ref)
	if err != nil {
		// Stale reference: substitute the default before attempting decode.
		if r.logger != nil {
			r.logger.Debug("background reference unresolvable, using default", "ref", ref)
		}
		loc = defaultLoc
	}

	bmp, decErr := r.decodeLocation(ctx, loc)
	if decErr == nil {
		return bmp, nil
	}
	if ctx.Err() != nil {
		return nil, apperrors.Wrap(apperrors.CategoryBackground, "background.decode", ctx.Err())
	}
	if loc != defaultLoc {
		if r.logger != nil {
			r.logger.Debug("background decode failed, trying default", "location", loc, "error", decErr)
		}
		if bmp, err2 := r.decodeLocation(ctx, defaultLoc); err2 == nil {
			return bmp, nil
		}
	}
	return nil, apperrors.Wrap(apperrors.CategoryBackground, "background.decode", decErr)
}

// decodeLocation loads and decodes one background location.  The decode runs
// on its own goroutine so the wait is cancellable; a superseded request does
// not block on a slow decode.
func (r *Resolver) decodeLocation(ctx context.Context, loc string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if loc == assets.BuiltinGradientRef {
		return render.BuiltinGradient(builtinGradientWidth, builtinGradientHeight), nil
	}

	var raw []byte
	switch {
	case strings.HasPrefix(loc, assets.DataURLPrefix):
		b, err := decodeDataURL(loc)
		if err != nil {
			return nil, err
		}
		raw = b
	default:
		b, err := os.ReadFile(loc)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	type result struct {
		img image.Image
		err error
	}
	ch := make(chan result, 1)
	go func() {
		img, _, err := image.Decode(bytes.NewReader(raw))
		ch <- result{img: img, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.img, res.err
	}
}

// decodeDataURL extracts the payload of a base64 data URL.
func decodeDataURL(u string) ([]byte, error) {
	comma := strings.IndexByte(u, ',')
	if comma < 0 {
		return nil, fmt.Errorf("malformed data URL")
	}
	header, payload := u[:comma], u[comma+1:]
	if !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("unsupported data URL encoding in %q", header)
	}
	return base64.StdEncoding.DecodeString(payload)
}
