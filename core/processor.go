package core

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/glintlab/screenshot-finisher/config"
	apperrors "github.com/glintlab/screenshot-finisher/errors"
	"github.com/glintlab/screenshot-finisher/utils"
)

// Processor is the central orchestrator.  It is safe for concurrent use: each
// finishing request owns its Frame exclusively from decode to encode.
type Processor struct {
	cfg      config.Config
	registry Registry
	hooks    []Hook
	logger   Logger
	metrics  MetricsCollector

	// Worker pool.
	jobQueue chan Job
	wg       sync.WaitGroup
	once     sync.Once
	shutdown chan struct{}

	// Atomic counters for lightweight internal metrics.
	finishedCount int64
	errorCount    int64
}

// New creates a Processor with the given config.  Call Start() before
// submitting async jobs; call Stop() when done.
func New(cfg config.Config, reg Registry) *Processor {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Processor{
		cfg:      cfg,
		registry: reg,
		jobQueue: make(chan Job, queueSize),
		shutdown: make(chan struct{}),
	}
}

// SetLogger attaches a structured logger.
func (p *Processor) SetLogger(l Logger) { p.logger = l }

// SetMetrics attaches a metrics collector.
func (p *Processor) SetMetrics(m MetricsCollector) { p.metrics = m }

// AddHook registers a pipeline hook.
func (p *Processor) AddHook(h Hook) { p.hooks = append(p.hooks, h) }

// Registry returns the underlying registry so callers can register
// encoders/decoders after construction.
func (p *Processor) Registry() Registry { return p.registry }

// Start launches the worker pool.  It is idempotent.
func (p *Processor) Start() {
	p.once.Do(func() {
		workerCount := p.cfg.WorkerCount
		if workerCount <= 0 {
			workerCount = runtime.NumCPU()
		}
		for i := 0; i < workerCount; i++ {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

// Stop drains the queue and shuts down all workers.
func (p *Processor) Stop() {
	close(p.shutdown)
	p.wg.Wait()
}

// DecodeSource drains src into memory, sniffs the format, and decodes the
// screenshot bitmap.  Any failure is a terminal decode error for the request.
func (p *Processor) DecodeSource(ctx context.Context, src Source) (*Frame, error) {
	frame, err := p.drain(ctx, src)
	if err != nil {
		return nil, err
	}

	dec, ok := p.registry.DecoderFor(frame.Format)
	if !ok {
		return nil, apperrors.New(apperrors.CategoryDecode, "decode.source",
			fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, frame.Format))
	}
	decoded, err := dec.Decode(ctx, utils.BytesReader(frame.Data))
	if err != nil {
		return nil, err
	}
	decoded.Data = frame.Data
	decoded.OriginalSize = frame.OriginalSize
	return decoded, nil
}

// Process is the generic synchronous API: it drains src and runs the given
// steps.  The Finish entry point in the root package builds the canonical
// finishing step sequence; Process is also what the worker pool executes.
func (p *Processor) Process(ctx context.Context, src Source, steps ...Step) (*FinishResult, error) {
	if len(steps) == 0 {
		return nil, apperrors.New(apperrors.CategoryPipeline, "process", apperrors.ErrEmptyInput)
	}
	frame, err := p.drain(ctx, src)
	if err != nil {
		atomic.AddInt64(&p.errorCount, 1)
		return nil, err
	}
	return p.RunSteps(ctx, frame, steps...)
}

// RunSteps executes steps over frame with hook notifications and per-step
// timing.  Any stage failure is terminal for the invocation.
func (p *Processor) RunSteps(ctx context.Context, frame *Frame, steps ...Step) (*FinishResult, error) {
	start := time.Now()
	timings := make(map[string]time.Duration, len(steps))
	current := frame

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			atomic.AddInt64(&p.errorCount, 1)
			return nil, apperrors.Wrap(apperrors.CategoryPipeline, step.Name(), err)
		}
		p.notifyBefore(ctx, step.Name(), current)
		t := time.Now()
		next, stepErr := p.runWithRetry(ctx, step, current)
		elapsed := time.Since(t)
		timings[step.Name()] = elapsed
		p.notifyAfter(ctx, step.Name(), next, elapsed, stepErr)
		if stepErr != nil {
			atomic.AddInt64(&p.errorCount, 1)
			return nil, stepErr
		}
		current = next
	}

	atomic.AddInt64(&p.finishedCount, 1)
	return &FinishResult{
		Artifact:       current.Artifact,
		Width:          current.Meta.Width,
		Height:         current.Meta.Height,
		ProcessingTime: time.Since(start),
		StepTimings:    timings,
	}, nil
}

// Submit enqueues an async job.  Returns ErrWorkerPoolFull if the queue is
// full.  A blank job ID is assigned a fresh UUID.
func (p *Processor) Submit(job Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	select {
	case p.jobQueue <- job:
		return nil
	default:
		return apperrors.New(apperrors.CategoryPipeline, "submit", apperrors.ErrWorkerPoolFull)
	}
}

// Batch finishes multiple screenshots concurrently (fan-out / fan-in).
func (p *Processor) Batch(ctx context.Context, sources []Source, steps ...Step) ([]*FinishResult, []error) {
	results := make([]*FinishResult, len(sources))
	errs := make([]error, len(sources))
	var wg sync.WaitGroup

	for i, src := range sources {
		wg.Add(1)
		go func(idx int, s Source) {
			defer wg.Done()
			r, e := p.Process(ctx, s, steps...)
			results[idx] = r
			errs[idx] = e
		}(i, src)
	}
	wg.Wait()
	return results, errs
}

// ── worker pool internals ──────────────────────────────────────────────────────

func (p *Processor) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.shutdown:
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.processJob(job)
		}
	}
}

func (p *Processor) processJob(job Job) {
	ctx := job.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := p.cfg.JobTimeout
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := p.Process(ctx, job.Source, job.Steps...)
	if job.ResultCh != nil {
		job.ResultCh <- JobResult{JobID: job.ID, Result: result, Err: err}
	}
}

// drain reads the source bytes into memory (respecting the max size limit)
// and sniffs the image format.
func (p *Processor) drain(ctx context.Context, src Source) (*Frame, error) {
	var limitedR io.Reader = src.Reader
	if p.cfg.MaxImageBytes > 0 {
		limitedR = &utils.LimitedReader{R: src.Reader, Max: p.cfg.MaxImageBytes}
	}

	buf, err := utils.DrainReader(ctx, limitedR, p.cfg.ChunkSize)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "process.drain", err)
	}
	rawBytes := utils.CloneBytes(buf.Bytes())
	utils.ReleaseBuffer(buf)

	format := Format(utils.DetectFormat(rawBytes))
	if src.ContentType != "" {
		format = contentTypeToFormat(src.ContentType)
	}

	return &Frame{
		Data:         rawBytes,
		Format:       format,
		OriginalSize: int64(len(rawBytes)),
	}, nil
}

func (p *Processor) runWithRetry(ctx context.Context, step Step, frame *Frame) (*Frame, error) {
	maxRetries := p.cfg.MaxRetries
	delay := p.cfg.RetryDelay

	var (
		result *Frame
		err    error
	)
	for i := 0; i <= maxRetries; i++ {
		result, err = step.Execute(ctx, frame)
		if err == nil || !apperrors.IsRetryable(err) {
			return result, err
		}
		if i < maxRetries {
			select {
			case <-ctx.Done():
				return nil, apperrors.Wrap(apperrors.CategoryPipeline, step.Name(), ctx.Err())
			case <-time.After(delay):
			}
		}
	}
	return result, err
}

func (p *Processor) notifyBefore(ctx context.Context, name string, fr *Frame) {
	for _, h := range p.hooks {
		h.BeforeStep(ctx, name, fr)
	}
}

func (p *Processor) notifyAfter(ctx context.Context, name string, fr *Frame, d time.Duration, err error) {
	for _, h := range p.hooks {
		h.AfterStep(ctx, name, fr, d, err)
	}
}

// contentTypeToFormat maps MIME types to Format values.
func contentTypeToFormat(ct string) Format {
	switch ct {
	case "image/jpeg", "image/jpg":
		return FormatJPEG
	case "image/png":
		return FormatPNG
	case "image/webp":
		return FormatWebP
	}
	return FormatUnknown
}

// FinishedCount returns the total number of successfully finished screenshots.
func (p *Processor) FinishedCount() int64 { return atomic.LoadInt64(&p.finishedCount) }

// ErrorCount returns the total number of pipeline errors.
func (p *Processor) ErrorCount() int64 { return atomic.LoadInt64(&p.errorCount) }
