package finisher_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	finisher "github.com/glintlab/screenshot-finisher"
	"github.com/glintlab/screenshot-finisher/config"
	"github.com/glintlab/screenshot-finisher/core"
	"github.com/glintlab/screenshot-finisher/hooks"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

func newWhitePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func newFin(t *testing.T) *finisher.Finisher {
	t.Helper()
	cfg := finisher.DefaultConfig()
	cfg.WorkerCount = 2
	cfg.QueueSize = 16
	f := finisher.New(cfg)
	f.Start()
	t.Cleanup(f.Stop)
	return f
}

func decodeArtifact(t *testing.T, artifact []byte) *image.NRGBA {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(artifact))
	if err != nil {
		t.Fatalf("decode artifact: %v", err)
	}
	out := image.NewNRGBA(img.Bounds())
	for y := out.Rect.Min.Y; y < out.Rect.Max.Y; y++ {
		for x := out.Rect.Min.X; x < out.Rect.Max.X; x++ {
			out.Set(x, y, img.At(x, y))
		}
	}
	return out
}

// ── Unit tests ────────────────────────────────────────────────────────────────

func TestFinish_CustomColorBackground(t *testing.T) {
	fin := newFin(t)
	raw := newWhitePNG(t, 800, 600)

	spec := core.FinishSpec{
		Background: core.BackgroundSpec{Kind: core.BackgroundCustomColor, Hex: "#667eea"},
		Composition: core.CompositionConfig{
			Padding:      100,
			BorderRadius: 18,
			Shadow:       core.ShadowConfig{BlurRadius: 33, OffsetX: 18, OffsetY: 23, OpacityPercent: 39},
		},
	}

	result, err := fin.Finish(context.Background(), finisher.FromReader(bytes.NewReader(raw)), spec)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	// 800x600 source + 100 px padding on every side.
	if result.Width != 1000 || result.Height != 800 {
		t.Errorf("dimensions: got %dx%d, want 1000x800", result.Width, result.Height)
	}

	out := decodeArtifact(t, result.Artifact)
	if got := out.Bounds(); got.Dx() != 1000 || got.Dy() != 800 {
		t.Fatalf("artifact bounds: got %v", got)
	}

	// The outer corner is pure background: outside the screenshot, outside any
	// plausible shadow reach.
	want := color.NRGBA{R: 0x66, G: 0x7E, B: 0xEA, A: 0xFF}
	if got := out.NRGBAAt(0, 0); got != want {
		t.Errorf("corner pixel: got %v, want %v", got, want)
	}

	// The center is the white screenshot, fully opaque.
	if got := out.NRGBAAt(500, 400); got != (color.NRGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("center pixel: got %v, want opaque white", got)
	}
}

func TestFinish_TransparentBackground_SuppressesPaddingAndShadow(t *testing.T) {
	fin := newFin(t)
	raw := newWhitePNG(t, 800, 600)

	spec := core.FinishSpec{
		Background: core.BackgroundSpec{Kind: core.BackgroundTransparent},
		Composition: core.CompositionConfig{
			Padding:      100,
			BorderRadius: 18,
			Shadow:       core.ShadowConfig{BlurRadius: 33, OffsetX: 18, OffsetY: 23, OpacityPercent: 39},
		},
	}

	result, err := fin.Finish(context.Background(), finisher.FromReader(bytes.NewReader(raw)), spec)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	// Padding and shadow are forced off: output matches the source size.
	if result.Width != 800 || result.Height != 600 {
		t.Errorf("dimensions: got %dx%d, want 800x600", result.Width, result.Height)
	}

	out := decodeArtifact(t, result.Artifact)
	// Rounded corner clipped against nothing: fully transparent.
	if got := out.NRGBAAt(0, 0); got.A != 0 {
		t.Errorf("corner alpha: got %d, want 0", got.A)
	}
	// Center remains the opaque screenshot.
	if got := out.NRGBAAt(400, 300); got.A != 255 {
		t.Errorf("center alpha: got %d, want 255", got.A)
	}
}

func TestFinish_ForensicFooter(t *testing.T) {
	fin := newFin(t)
	raw := newWhitePNG(t, 800, 600)

	spec := core.FinishSpec{
		Background: core.BackgroundSpec{Kind: core.BackgroundCustomColor, Hex: "#667eea"},
		Composition: core.CompositionConfig{
			Padding: 100,
		},
		Forensic: &core.ForensicMetadata{
			TimestampUTC: "2024-01-01T00:00:00Z",
			TeamLabel:    "security",
		},
	}

	result, err := fin.Finish(context.Background(), finisher.FromReader(bytes.NewReader(raw)), spec)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	// 600 + 2*100 padding + 64 footer band.
	if result.Width != 1000 || result.Height != 864 {
		t.Errorf("dimensions: got %dx%d, want 1000x864", result.Width, result.Height)
	}

	out := decodeArtifact(t, result.Artifact)
	// Footer band background at the bottom edge, away from the text block.
	want := color.NRGBA{R: 0xF8, G: 0xFA, B: 0xFC, A: 0xFF}
	if got := out.NRGBAAt(990, 860); got != want {
		t.Errorf("footer band pixel: got %v, want %v", got, want)
	}
	// The 1 px seam at the top of the band.
	seam := color.NRGBA{R: 0xE2, G: 0xE8, B: 0xF0, A: 0xFF}
	if got := out.NRGBAAt(990, 800); got != seam {
		t.Errorf("footer seam pixel: got %v, want %v", got, seam)
	}
}

func TestFinish_ForensicLabelDefaults(t *testing.T) {
	m := core.ForensicMetadata{TeamLabel: "security", UserLabel: "  "}
	if got := m.Label(); got != "security/unknown" {
		t.Errorf("label: got %q, want %q", got, "security/unknown")
	}
	if got := (core.ForensicMetadata{}).Label(); got != "unknown/unknown" {
		t.Errorf("empty label: got %q, want %q", got, "unknown/unknown")
	}
}

func TestFinish_UnresolvableBackgroundFallsBack(t *testing.T) {
	fin := newFin(t)
	raw := newWhitePNG(t, 64, 64)

	spec := core.FinishSpec{
		Background:  core.BackgroundSpec{Kind: core.BackgroundImage, Ref: "no-such-asset"},
		Composition: core.CompositionConfig{Padding: 16},
	}

	// The stale reference silently substitutes the default background (the
	// built-in gradient) rather than failing the request.
	result, err := fin.Finish(context.Background(), finisher.FromReader(bytes.NewReader(raw)), spec)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if result.Width != 96 || result.Height != 96 {
		t.Errorf("dimensions: got %dx%d, want 96x96", result.Width, result.Height)
	}
	out := decodeArtifact(t, result.Artifact)
	if got := out.NRGBAAt(0, 0); got.A != 255 {
		t.Errorf("gradient corner alpha: got %d, want 255", got.A)
	}
}

func TestFinish_NoiseKeepsAlphaAndDimensions(t *testing.T) {
	fin := newFin(t)
	raw := newWhitePNG(t, 100, 100)

	spec := core.FinishSpec{
		Background:  core.BackgroundSpec{Kind: core.BackgroundTransparent},
		Composition: core.CompositionConfig{NoiseAmount: 50},
	}

	result, err := fin.Finish(context.Background(), finisher.FromReader(bytes.NewReader(raw)), spec)
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	out := decodeArtifact(t, result.Artifact)
	if got := out.Bounds(); got.Dx() != 100 || got.Dy() != 100 {
		t.Fatalf("bounds: got %v", got)
	}
	if got := out.NRGBAAt(50, 50); got.A != 255 {
		t.Errorf("center alpha after grain: got %d, want 255", got.A)
	}
}

func TestFinish_UndecodableSource(t *testing.T) {
	fin := newFin(t)

	_, err := fin.Finish(context.Background(),
		finisher.FromReader(bytes.NewReader([]byte("definitely not an image"))),
		core.FinishSpec{Background: core.BackgroundSpec{Kind: core.BackgroundTransparent}},
	)
	if err == nil {
		t.Fatal("expected decode error for garbage input")
	}
}

func TestFinish_ContextCanceled(t *testing.T) {
	fin := newFin(t)
	raw := newWhitePNG(t, 64, 64)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := fin.Finish(ctx, finisher.FromReader(bytes.NewReader(raw)), core.FinishSpec{
		Background: core.BackgroundSpec{Kind: core.BackgroundTransparent},
	})
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestFinishSettings_DefaultsAfterBadBackground(t *testing.T) {
	fin := newFin(t)
	raw := newWhitePNG(t, 64, 64)

	s := config.DefaultSettings()
	s.DefaultBackgroundType = "plaid" // not a background type
	s.Padding = 8

	// An invalid selection recovers to the default background rather than
	// failing the request.
	result, err := fin.FinishSettings(context.Background(), finisher.FromReader(bytes.NewReader(raw)), s)
	if err != nil {
		t.Fatalf("FinishSettings: %v", err)
	}
	if result.Width != 80 || result.Height != 80 {
		t.Errorf("dimensions: got %dx%d, want 80x80", result.Width, result.Height)
	}
}

func TestSubmit_AsyncJob(t *testing.T) {
	fin := newFin(t)
	raw := newWhitePNG(t, 120, 90)

	spec := core.FinishSpec{
		Background:  core.BackgroundSpec{Kind: core.BackgroundCustomColor, Hex: "#fff"},
		Composition: core.CompositionConfig{Padding: 10},
	}

	resultCh := make(chan core.JobResult, 1)
	if err := fin.Submit(context.Background(), finisher.FromReader(bytes.NewReader(raw)), spec, resultCh); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case jr := <-resultCh:
		if jr.Err != nil {
			t.Fatalf("job error: %v", jr.Err)
		}
		if jr.Result.Width != 140 || jr.Result.Height != 110 {
			t.Errorf("dimensions: got %dx%d, want 140x110", jr.Result.Width, jr.Result.Height)
		}
		if jr.JobID == "" {
			t.Error("job ID not assigned")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for async result")
	}
}

func TestBatch_Concurrent(t *testing.T) {
	fin := newFin(t)
	spec := core.FinishSpec{
		Background:  core.BackgroundSpec{Kind: core.BackgroundSolid, ColorID: "white"},
		Composition: core.CompositionConfig{Padding: 4},
	}

	const n = 8
	sources := make([]core.Source, n)
	for i := range sources {
		sources[i] = finisher.FromReader(bytes.NewReader(newWhitePNG(t, 50, 50)))
	}

	results, errs := fin.Batch(context.Background(), sources, spec)
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("batch[%d]: %v", i, errs[i])
		}
		if results[i].Width != 58 || results[i].Height != 58 {
			t.Errorf("batch[%d] dimensions: got %dx%d, want 58x58", i, results[i].Width, results[i].Height)
		}
	}
}

func TestFinish_ConcurrentCallers(t *testing.T) {
	fin := newFin(t)
	spec := core.FinishSpec{
		Background:  core.BackgroundSpec{Kind: core.BackgroundSolid, ColorID: "black"},
		Composition: core.CompositionConfig{Padding: 2},
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			raw := newWhitePNG(t, 40, 40)
			if _, err := fin.Finish(context.Background(), finisher.FromReader(bytes.NewReader(raw)), spec); err != nil {
				t.Errorf("concurrent Finish: %v", err)
			}
		}()
	}
	wg.Wait()
}

func BenchmarkFinish(b *testing.B) {
	cfg := finisher.DefaultConfig()
	fin := finisher.New(cfg)

	img := image.NewNRGBA(image.Rect(0, 0, 800, 600))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		b.Fatal(err)
	}
	raw := buf.Bytes()

	spec := core.FinishSpec{
		Background: core.BackgroundSpec{Kind: core.BackgroundCustomColor, Hex: "#667eea"},
		Composition: core.CompositionConfig{
			Padding:      100,
			BorderRadius: 18,
			Shadow:       core.ShadowConfig{BlurRadius: 24, OffsetY: 12, OpacityPercent: 35},
		},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := fin.Finish(context.Background(), finisher.FromReader(bytes.NewReader(raw)), spec); err != nil {
			b.Fatal(err)
		}
	}
}

func TestMetricsHook_CountsSteps(t *testing.T) {
	fin := newFin(t)
	metrics := hooks.NewInMemoryMetrics()
	fin.AddHook(hooks.NewMetricsHook(metrics))

	raw := newWhitePNG(t, 32, 32)
	_, err := fin.Finish(context.Background(), finisher.FromReader(bytes.NewReader(raw)), core.FinishSpec{
		Background: core.BackgroundSpec{Kind: core.BackgroundSolid, ColorID: "gray"},
	})
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}

	snap := metrics.Snapshot()
	for _, step := range []string{"background", "foreground", "encode"} {
		if snap.StepCalls[step] == 0 {
			t.Errorf("no metrics recorded for step %q", step)
		}
	}

	finished, errors := fin.Stats()
	if finished == 0 {
		t.Error("finished count not incremented")
	}
	if errors != 0 {
		t.Errorf("unexpected error count %d", errors)
	}
}
