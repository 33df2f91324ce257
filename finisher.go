// Package finisher turns raw screenshot captures into presentation-ready PNG
// artifacts: padded onto a configurable background, rounded, shadowed, and
// optionally grained and stamped with a forensic footer.
package finisher

import (
	"context"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/glintlab/screenshot-finisher/adapters/decoder"
	"github.com/glintlab/screenshot-finisher/adapters/encoder"
	"github.com/glintlab/screenshot-finisher/assets"
	"github.com/glintlab/screenshot-finisher/background"
	"github.com/glintlab/screenshot-finisher/config"
	"github.com/glintlab/screenshot-finisher/core"
	"github.com/glintlab/screenshot-finisher/pipeline"
)

// Re-export Format constants for convenience.
const (
	JPEG = core.FormatJPEG
	PNG  = core.FormatPNG
	WebP = core.FormatWebP
)

// DefaultConfig returns a sensible production configuration.
func DefaultConfig() config.Config { return config.Default() }

// Finisher is the primary entry point.
type Finisher struct {
	inner    *core.Processor
	reg      *core.DefaultRegistry
	assets   core.AssetRegistry
	resolver core.BackgroundResolver
}

// New creates a fully wired Finisher: PNG, JPEG, and WebP input decoders, the
// lossless PNG output encoder, and a background resolver backed by the asset
// directory configured in cfg (empty dir means only the built-in gradient is
// available).
func New(cfg config.Config) *Finisher {
	reg := core.NewRegistry()
	reg.RegisterDecoder(core.FormatPNG, decoder.NewPNG())
	reg.RegisterDecoder(core.FormatJPEG, decoder.NewJPEG())
	reg.RegisterDecoder(core.FormatWebP, decoder.NewWebP())
	// Captures whose header did not sniff fall back to the JPEG decoder,
	// matching its CanDecode contract.
	reg.RegisterDecoder(core.FormatUnknown, decoder.NewJPEG())
	reg.RegisterEncoder(core.FormatPNG, encoder.NewPNG())

	registry := assets.NewDirRegistry(cfg.Local.AssetsDir)
	inner := core.New(cfg, reg)

	return &Finisher{
		inner:    inner,
		reg:      reg,
		assets:   registry,
		resolver: background.New(registry, nil),
	}
}

// SetLogger attaches a structured logger; the background resolver shares it.
func (f *Finisher) SetLogger(l core.Logger) {
	f.inner.SetLogger(l)
	f.resolver = background.New(f.assets, l)
}

// Assets exposes the background asset registry for host UI code.
func (f *Finisher) Assets() core.AssetRegistry { return f.assets }

// SetMetrics attaches a metrics collector.
func (f *Finisher) SetMetrics(m core.MetricsCollector) { f.inner.SetMetrics(m) }

// AddHook registers an observer for pipeline step events.
func (f *Finisher) AddHook(h core.Hook) { f.inner.AddHook(h) }

// SetResolver swaps the background resolver (e.g. one with a custom asset
// registry or logger).
func (f *Finisher) SetResolver(r core.BackgroundResolver) { f.resolver = r }

// RegisterDecoder registers a custom decoder for the given format.
func (f *Finisher) RegisterDecoder(fm core.Format, d core.Decoder) { f.reg.RegisterDecoder(fm, d) }

// RegisterEncoder registers a custom encoder for the given format.
func (f *Finisher) RegisterEncoder(fm core.Format, e core.Encoder) { f.reg.RegisterEncoder(fm, e) }

// Registry exposes the codec registry, e.g. for wiring alternate backends.
func (f *Finisher) Registry() core.Registry { return f.reg }

// Start starts the background worker pool.
func (f *Finisher) Start() { f.inner.Start() }

// Stop drains and shuts down the worker pool.
func (f *Finisher) Stop() { f.inner.Stop() }

// Finish runs the full finishing pipeline synchronously.  The source decode
// and the background resolution are independent, so they run concurrently;
// the composite stages then consume both.
func (f *Finisher) Finish(ctx context.Context, src core.Source, spec core.FinishSpec) (*core.FinishResult, error) {
	var (
		frame    *core.Frame
		resolved core.ResolvedBackground
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fr, err := f.inner.DecodeSource(gctx, src)
		if err != nil {
			return err
		}
		frame = fr
		return nil
	})
	g.Go(func() error {
		bg, err := f.resolver.Resolve(gctx, spec.Background)
		if err != nil {
			return err
		}
		resolved = bg
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	frame.Spec = spec
	steps := f.compositeSteps(spec, &resolved)
	return f.inner.RunSteps(ctx, frame, steps...)
}

// FinishSettings is the convenience path: derive the FinishSpec from persisted
// settings stamped at the current time, then Finish.
func (f *Finisher) FinishSettings(ctx context.Context, src core.Source, s config.Settings) (*core.FinishResult, error) {
	spec, _ := core.SpecFromSettings(s, time.Now())
	return f.Finish(ctx, src, spec)
}

// FinishSteps returns the canonical step sequence for spec, decoding and
// resolving in-pipeline.  Used for async jobs and batches, where nothing is
// pre-resolved.
func (f *Finisher) FinishSteps(spec core.FinishSpec) []core.Step {
	steps := []core.Step{&pipeline.DecodeStep{Registry: f.reg}}
	return append(steps, f.compositeSteps(spec, nil)...)
}

// compositeSteps builds the post-decode stages.  resolved is non-nil on the
// sync path, where the background was resolved concurrently with the decode.
func (f *Finisher) compositeSteps(spec core.FinishSpec, resolved *core.ResolvedBackground) []core.Step {
	steps := make([]core.Step, 0, 6)
	if spec.Composition.BlurAmount > 0 {
		steps = append(steps, &pipeline.PreBlurStep{})
	}
	steps = append(steps,
		&pipeline.BackgroundStep{Resolver: f.resolver, Resolved: resolved},
		&pipeline.ForegroundStep{},
	)
	if spec.Composition.NoiseAmount > 0 {
		steps = append(steps, &pipeline.NoiseStep{})
	}
	if spec.Forensic != nil {
		steps = append(steps, &pipeline.FooterStep{})
	}
	return append(steps, &pipeline.EncodeStep{Registry: f.reg})
}

// Submit enqueues an async finishing job for the worker pool.  The job's spec
// is carried on the steps built by FinishSteps.
func (f *Finisher) Submit(ctx context.Context, src core.Source, spec core.FinishSpec, resultCh chan<- core.JobResult) error {
	return f.inner.Submit(core.Job{
		Ctx:      ctx,
		Source:   src,
		Steps:    withSpec(spec, f.FinishSteps(spec)),
		ResultCh: resultCh,
	})
}

// Batch finishes multiple screenshots concurrently with a shared spec.
func (f *Finisher) Batch(ctx context.Context, sources []core.Source, spec core.FinishSpec) ([]*core.FinishResult, []error) {
	return f.inner.Batch(ctx, sources, withSpec(spec, f.FinishSteps(spec))...)
}

// Process executes arbitrary steps synchronously; the escape hatch for custom
// pipelines.
func (f *Finisher) Process(ctx context.Context, src core.Source, steps ...core.Step) (*core.FinishResult, error) {
	return f.inner.Process(ctx, src, steps...)
}

// NewPipeline creates a reusable, standalone pipeline.
func (f *Finisher) NewPipeline(steps ...core.Step) *pipeline.Pipeline {
	pl := pipeline.New()
	pl.Use(steps...)
	return pl
}

// Stats returns lightweight processing statistics.
func (f *Finisher) Stats() (finished, errors int64) {
	return f.inner.FinishedCount(), f.inner.ErrorCount()
}

// FromReader wraps an io.Reader as a Source with unknown size.
func FromReader(r io.Reader) core.Source {
	return core.Source{Reader: r, Size: -1}
}

// FromReaderWithMeta wraps an io.Reader with a content-type hint and name.
func FromReaderWithMeta(r io.Reader, contentType, name string) core.Source {
	return core.Source{Reader: r, ContentType: contentType, Name: name, Size: -1}
}

// withSpec prepends a step that stamps the FinishSpec onto the frame; async
// frames are drained fresh and carry no configuration of their own.
func withSpec(spec core.FinishSpec, steps []core.Step) []core.Step {
	return append([]core.Step{&configureStep{spec: spec}}, steps...)
}

type configureStep struct {
	spec core.FinishSpec
}

func (s *configureStep) Name() string { return "configure" }

func (s *configureStep) Execute(_ context.Context, fr *core.Frame) (*core.Frame, error) {
	out := *fr
	out.Spec = s.spec
	return &out, nil
}
