package core

import (
	"context"
	"image"
	"image/color"
	"io"
)

// Decoder converts raw bytes / a reader into an in-memory Frame.
// Implementations live in adapters/decoder/.
type Decoder interface {
	// Decode reads from r and returns a Frame with Source populated.
	Decode(ctx context.Context, r io.Reader) (*Frame, error)
	// CanDecode reports whether this decoder handles the given format hint.
	CanDecode(format Format) bool
}

// Encoder serialises a Frame's canvas to bytes in a target format.
// Implementations live in adapters/encoder/.
type Encoder interface {
	Encode(ctx context.Context, fr *Frame, opts EncodeOptions) ([]byte, error)
	CanEncode(format Format) bool
}

// EncodeOptions carries format-specific encoding parameters.  The finishing
// pipeline always encodes losslessly; the knobs exist for alternate backends.
type EncodeOptions struct {
	Quality    int  // 1-100; 0 = use encoder default
	Lossless   bool // force lossless output
	Interlaced bool
}

// Surface is the minimal raster abstraction the compositing stages draw on.
// Any 2D rasterization backend can satisfy it; the default implementation
// lives in the render package.
type Surface interface {
	Width() int
	Height() int
	// Fill covers the entire surface with a flat color.
	Fill(c color.Color)
	// StretchBitmap draws src stretched to exactly cover the surface.
	StretchBitmap(src image.Image)
	// Shadow renders a blurred rounded-rectangle shadow congruent to rect,
	// displaced by (offsetX, offsetY), at the given opacity (0-1).
	Shadow(rect image.Rectangle, cornerRadius float64, blur, offsetX, offsetY int, opacity float64)
	// ClippedBitmap draws src into rect at 1:1 scale through a rounded-
	// rectangle clip with the given corner radius.
	ClippedBitmap(src image.Image, rect image.Rectangle, cornerRadius float64)
	// Snapshot flattens the surface to a pixel buffer the caller owns.
	Snapshot() *image.NRGBA
}

// AssetRegistry resolves background references to loadable locations.  It is
// an external collaborator: the host application owns the asset catalogue.
type AssetRegistry interface {
	// ResolveBackgroundPath maps an asset id or raw reference to a concrete
	// loadable location.  Fails when the reference is stale or unknown.
	ResolveBackgroundPath(ref string) (string, error)
	// DefaultBackgroundPath returns the built-in fallback background.
	DefaultBackgroundPath() string
	// AssetID is the inverse mapping, used by host UI code.
	AssetID(path string) (string, bool)
}

// BackgroundResolver turns a BackgroundSpec into a renderable background.
// The canonical implementation lives in the background package.
type BackgroundResolver interface {
	Resolve(ctx context.Context, spec BackgroundSpec) (ResolvedBackground, error)
}

// StorageAdapter persists finished artifacts and retrieves them later.
// Implementations live in adapters/storage/.
type StorageAdapter interface {
	Put(ctx context.Context, key StorageKey, r io.Reader, meta map[string]string) error
	Get(ctx context.Context, key StorageKey) (io.ReadCloser, error)
	Delete(ctx context.Context, key StorageKey) error
	Exists(ctx context.Context, key StorageKey) (bool, error)
}

// MetricsCollector receives performance observations from the pipeline.
type MetricsCollector interface {
	RecordProcessingTime(stepName string, d interface{ Seconds() float64 })
	RecordThroughput(bytes int64)
	RecordError(stepName string, category string)
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Registry maps Format values to Decoder/Encoder implementations.
type Registry interface {
	DecoderFor(format Format) (Decoder, bool)
	EncoderFor(format Format) (Encoder, bool)
	RegisterDecoder(format Format, d Decoder)
	RegisterEncoder(format Format, e Encoder)
}
