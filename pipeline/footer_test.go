package pipeline

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/glintlab/screenshot-finisher/core"
)

func TestFooterStep_NilMetadataIsNoop(t *testing.T) {
	fr := &core.Frame{Canvas: grayCanvas(20, 20)}
	step := &FooterStep{}

	out, err := step.Execute(context.Background(), fr)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out != fr {
		t.Error("nil forensic metadata should pass the frame through")
	}
}

func TestFooterStep_GrowsCanvasByExactHeight(t *testing.T) {
	fr := &core.Frame{Canvas: grayCanvas(300, 120)}
	fr.Meta.Width = 300
	fr.Meta.Height = 120
	fr.Spec.Forensic = &core.ForensicMetadata{
		TimestampUTC: "2024-01-01T00:00:00Z",
		TeamLabel:    "security",
		UserLabel:    "analyst",
	}
	step := &FooterStep{}

	out, err := step.Execute(context.Background(), fr)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if FooterHeight != 64 {
		t.Fatalf("FooterHeight = %d, want 64", FooterHeight)
	}
	b := out.Canvas.Bounds()
	if b.Dx() != 300 || b.Dy() != 120+FooterHeight {
		t.Errorf("canvas: got %dx%d, want 300x%d", b.Dx(), b.Dy(), 120+FooterHeight)
	}
	if out.Meta.Height != 120+FooterHeight {
		t.Errorf("meta height: got %d, want %d", out.Meta.Height, 120+FooterHeight)
	}

	// Composite above the band is preserved.
	if got := out.Canvas.NRGBAAt(150, 60); got != (color.NRGBA{R: 128, G: 128, B: 128, A: 200}) {
		t.Errorf("composite pixel altered: %v", got)
	}
	// Seam row directly below the composite.
	if got := out.Canvas.NRGBAAt(150, 120); got != footerSeamColor {
		t.Errorf("seam pixel: got %v, want %v", got, footerSeamColor)
	}
	// Band fill at the far right, clear of the text block.
	if got := out.Canvas.NRGBAAt(295, 150); got != footerBandColor {
		t.Errorf("band pixel: got %v, want %v", got, footerBandColor)
	}

	// Both text lines render dark pixels within their line boxes.
	for _, line := range []struct{ y0, y1 int }{
		{120 + footerPaddingY, 120 + footerPaddingY + footerLineH},
		{120 + footerPaddingY + footerLineH + footerLineGap, 120 + FooterHeight - footerPaddingY},
	} {
		found := false
		for y := line.y0; y < line.y1 && !found; y++ {
			for x := footerPaddingX; x < 300; x++ {
				if out.Canvas.NRGBAAt(x, y) == footerTextColor {
					found = true
					break
				}
			}
		}
		if !found {
			t.Errorf("no text pixels in line box [%d,%d)", line.y0, line.y1)
		}
	}
}

func TestFooterStep_MissingCanvas(t *testing.T) {
	fr := &core.Frame{}
	fr.Spec.Forensic = &core.ForensicMetadata{TimestampUTC: "2024-01-01T00:00:00Z"}
	step := &FooterStep{}

	if _, err := step.Execute(context.Background(), fr); err == nil {
		t.Fatal("expected error for footer without canvas")
	}
}

func TestForegroundStep_PlacesSourceWithPadding(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 40, 30))
	for y := 0; y < 30; y++ {
		for x := 0; x < 40; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
		}
	}

	bgStep := &BackgroundStep{Resolved: &core.ResolvedBackground{
		Kind: core.BackgroundCustomColor,
		Fill: color.NRGBA{B: 255, A: 255},
	}}
	fr := &core.Frame{Source: src}
	fr.Spec.Background = core.BackgroundSpec{Kind: core.BackgroundCustomColor}
	fr.Spec.Composition.Padding = 10

	withBG, err := bgStep.Execute(context.Background(), fr)
	if err != nil {
		t.Fatalf("background: %v", err)
	}
	if withBG.Surface.Width() != 60 || withBG.Surface.Height() != 50 {
		t.Fatalf("surface: got %dx%d, want 60x50", withBG.Surface.Width(), withBG.Surface.Height())
	}

	out, err := (&ForegroundStep{}).Execute(context.Background(), withBG)
	if err != nil {
		t.Fatalf("foreground: %v", err)
	}

	// Padding region is background, placement region is the source.
	if got := out.Canvas.NRGBAAt(5, 5); got != (color.NRGBA{B: 255, A: 255}) {
		t.Errorf("padding pixel: got %v, want blue background", got)
	}
	if got := out.Canvas.NRGBAAt(30, 25); got != (color.NRGBA{R: 255, A: 255}) {
		t.Errorf("placement pixel: got %v, want red source", got)
	}
}
