// Package config holds the pipeline configuration and the persisted settings
// surface consumed from the host application's settings store.
package config

import (
	"errors"
	"time"
)

// StorageBackend selects the storage adapter.
type StorageBackend string

const (
	StorageLocal StorageBackend = "local"
)

// Config is the top-level pipeline configuration.  All fields have safe
// defaults so callers can start with Config{} and override only what they need.
type Config struct {
	// Worker pool controls.
	WorkerCount int // default: runtime.NumCPU()
	QueueSize   int // max queued jobs before backpressure; default: 64
	JobTimeout  time.Duration

	// Retry (transient failures only; stage failures are terminal).
	MaxRetries int
	RetryDelay time.Duration

	// Streaming / memory limits.
	MaxImageBytes int64 // 0 = no limit
	ChunkSize     int   // streaming chunk size in bytes; default 32 KiB

	// Surface guard: maximum pixel count for an output surface.
	MaxSurfacePixels int64 // default 64 MPix

	// Storage.
	Storage StorageBackend
	Local   LocalConfig

	// Logging.
	LogLevel string // "debug", "info", "warn", "error"
}

// LocalConfig configures the local filesystem layout: where finished
// artifacts land and where background assets are catalogued from.
type LocalConfig struct {
	RootDir     string
	AssetsDir   string
	Permissions uint32 // default 0644
}

// Default returns a Config populated with sensible production defaults.
func Default() Config {
	return Config{
		WorkerCount:      0, // resolved at runtime to NumCPU
		QueueSize:        64,
		JobTimeout:       30 * time.Second,
		MaxRetries:       0,
		RetryDelay:       200 * time.Millisecond,
		ChunkSize:        32 * 1024,
		MaxSurfacePixels: 64 * 1024 * 1024,
		Storage:          StorageLocal,
		LogLevel:         "info",
	}
}

// Validate returns an error if the configuration is inconsistent.
func Validate(c Config) error {
	if c.ChunkSize <= 0 {
		return errors.New("config: ChunkSize must be positive")
	}
	if c.MaxSurfacePixels <= 0 {
		return errors.New("config: MaxSurfacePixels must be positive")
	}
	if c.QueueSize < 0 {
		return errors.New("config: QueueSize must not be negative")
	}
	return nil
}
