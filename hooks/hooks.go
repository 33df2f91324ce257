// Package hooks provides production-ready Hook and Logger implementations.
package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glintlab/screenshot-finisher/core"
)

// ── Structured logger adapter ─────────────────────────────────────────────────

// SlogLogger wraps the standard library slog.Logger to satisfy core.Logger.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a logger backed by slog.
func NewSlogLogger(l *slog.Logger) *SlogLogger { return &SlogLogger{log: l} }

func (s *SlogLogger) Debug(msg string, fields ...interface{}) {
	s.log.Debug(msg, fields...)
}
func (s *SlogLogger) Info(msg string, fields ...interface{}) {
	s.log.Info(msg, fields...)
}
func (s *SlogLogger) Warn(msg string, fields ...interface{}) {
	s.log.Warn(msg, fields...)
}
func (s *SlogLogger) Error(msg string, fields ...interface{}) {
	s.log.Error(msg, fields...)
}

// ── Logging hook ──────────────────────────────────────────────────────────────

// LoggingHook logs before/after each finishing step.
type LoggingHook struct {
	logger core.Logger
}

// NewLoggingHook creates a LoggingHook.
func NewLoggingHook(l core.Logger) *LoggingHook { return &LoggingHook{logger: l} }

func (h *LoggingHook) BeforeStep(_ context.Context, stepName string, fr *core.Frame) {
	h.logger.Debug("finish.step.start",
		"step", stepName,
		"format", fr.Format,
		"width", fr.Meta.Width,
		"height", fr.Meta.Height,
		"background", fr.Background.Kind.String(),
	)
}

func (h *LoggingHook) AfterStep(_ context.Context, stepName string, fr *core.Frame, d time.Duration, err error) {
	if err != nil {
		h.logger.Error("finish.step.error",
			"step", stepName,
			"duration_ms", d.Milliseconds(),
			"error", err.Error(),
		)
		return
	}
	out := "nil"
	if fr != nil {
		out = fmt.Sprintf("%dx%d %s %dB", fr.Meta.Width, fr.Meta.Height, fr.Format, fr.Meta.SizeBytes)
	}
	h.logger.Debug("finish.step.done",
		"step", stepName,
		"duration_ms", d.Milliseconds(),
		"output", out,
	)
}

// ── In-memory metrics collector ───────────────────────────────────────────────

// InMemoryMetrics accumulates metrics atomically; safe for concurrent use.
type InMemoryMetrics struct {
	mu sync.RWMutex

	stepDurationsMs map[string]int64 // cumulative ms per step
	stepCalls       map[string]int64 // call count per step
	stepErrors      map[string]int64

	totalThroughputB int64
}

// NewInMemoryMetrics creates an empty metrics store.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		stepDurationsMs: make(map[string]int64),
		stepCalls:       make(map[string]int64),
		stepErrors:      make(map[string]int64),
	}
}

func (m *InMemoryMetrics) RecordProcessingTime(stepName string, d interface{ Seconds() float64 }) {
	ms := int64(d.Seconds() * 1000)
	m.mu.Lock()
	m.stepDurationsMs[stepName] += ms
	m.stepCalls[stepName]++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordThroughput(bytes int64) {
	atomic.AddInt64(&m.totalThroughputB, bytes)
}

func (m *InMemoryMetrics) RecordError(stepName string, _ string) {
	m.mu.Lock()
	m.stepErrors[stepName]++
	m.mu.Unlock()
}

// Snapshot is a point-in-time copy of the accumulated metrics.
type Snapshot struct {
	StepDurationsMs map[string]int64
	StepCalls       map[string]int64
	StepErrors      map[string]int64
	ThroughputBytes int64
}

// Snapshot returns a consistent copy of all counters.
func (m *InMemoryMetrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{
		StepDurationsMs: make(map[string]int64, len(m.stepDurationsMs)),
		StepCalls:       make(map[string]int64, len(m.stepCalls)),
		StepErrors:      make(map[string]int64, len(m.stepErrors)),
		ThroughputBytes: atomic.LoadInt64(&m.totalThroughputB),
	}
	for k, v := range m.stepDurationsMs {
		s.StepDurationsMs[k] = v
	}
	for k, v := range m.stepCalls {
		s.StepCalls[k] = v
	}
	for k, v := range m.stepErrors {
		s.StepErrors[k] = v
	}
	return s
}

// ── Metrics hook ──────────────────────────────────────────────────────────────

// MetricsHook feeds step observations into a MetricsCollector.
type MetricsHook struct {
	metrics core.MetricsCollector
}

// NewMetricsHook creates a MetricsHook.
func NewMetricsHook(m core.MetricsCollector) *MetricsHook { return &MetricsHook{metrics: m} }

func (h *MetricsHook) BeforeStep(context.Context, string, *core.Frame) {}

func (h *MetricsHook) AfterStep(_ context.Context, stepName string, fr *core.Frame, d time.Duration, err error) {
	h.metrics.RecordProcessingTime(stepName, d)
	if err != nil {
		h.metrics.RecordError(stepName, "step")
		return
	}
	if fr != nil && fr.Meta.SizeBytes > 0 {
		h.metrics.RecordThroughput(fr.Meta.SizeBytes)
	}
}
