package core

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"io"
	"strings"
	"time"

	"github.com/glintlab/screenshot-finisher/config"
	"github.com/glintlab/screenshot-finisher/utils"
)

// Format identifies an image codec.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatWebP    Format = "webp"
	FormatUnknown Format = "unknown"
)

// ── Background specification ──────────────────────────────────────────────────

// BackgroundKind discriminates the closed set of background variants.  Using a
// typed enum instead of the raw settings string means every consumer switch is
// exhaustively checkable.
type BackgroundKind uint8

const (
	BackgroundTransparent BackgroundKind = iota
	BackgroundSolid
	BackgroundCustomColor
	BackgroundImage
	BackgroundGradient
)

func (k BackgroundKind) String() string {
	switch k {
	case BackgroundTransparent:
		return "transparent"
	case BackgroundSolid:
		return "solid"
	case BackgroundCustomColor:
		return "custom"
	case BackgroundImage:
		return "image"
	case BackgroundGradient:
		return "gradient"
	}
	return "unknown"
}

// BackgroundSpec is the tagged-variant background selection.  Exactly one
// payload field is meaningful for a given Kind.
type BackgroundSpec struct {
	Kind    BackgroundKind
	ColorID string // Kind == BackgroundSolid: "white" | "black" | "gray"
	Hex     string // Kind == BackgroundCustomColor
	Ref     string // Kind == BackgroundImage | BackgroundGradient: asset id, path, or data URL
}

// SolidColor maps a solid color id to its fill color.
func SolidColor(id string) (color.NRGBA, bool) {
	switch id {
	case "white":
		return color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}, true
	case "black":
		return color.NRGBA{A: 0xFF}, true
	case "gray":
		return color.NRGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}, true
	}
	return color.NRGBA{}, false
}

// ParseBackgroundSpec converts the stringly-typed settings values into a
// BackgroundSpec.  Unknown type strings are an error; callers recover by
// falling back to the default settings.
func ParseBackgroundSpec(s config.Settings) (BackgroundSpec, error) {
	switch strings.TrimSpace(s.DefaultBackgroundType) {
	case "transparent":
		return BackgroundSpec{Kind: BackgroundTransparent}, nil
	case "white", "black", "gray":
		return BackgroundSpec{Kind: BackgroundSolid, ColorID: s.DefaultBackgroundType}, nil
	case "custom":
		if _, err := utils.ParseHexColor(s.DefaultCustomColor); err != nil {
			return BackgroundSpec{}, err
		}
		return BackgroundSpec{Kind: BackgroundCustomColor, Hex: s.DefaultCustomColor}, nil
	case "image":
		return BackgroundSpec{Kind: BackgroundImage, Ref: s.DefaultBackgroundImage}, nil
	case "gradient":
		return BackgroundSpec{Kind: BackgroundGradient, Ref: s.DefaultBackgroundImage}, nil
	}
	return BackgroundSpec{}, fmt.Errorf("unknown background type %q", s.DefaultBackgroundType)
}

// ResolvedBackground is the renderable form of a BackgroundSpec: either a flat
// fill color, a decoded bitmap, or the transparent marker.
type ResolvedBackground struct {
	Kind   BackgroundKind
	Fill   color.NRGBA // valid when Kind is BackgroundSolid or BackgroundCustomColor
	Bitmap image.Image // valid when Kind is BackgroundImage or BackgroundGradient
}

// ── Composition configuration ─────────────────────────────────────────────────

// ShadowConfig describes the drop shadow rendered beneath the screenshot.
type ShadowConfig struct {
	BlurRadius     int
	OffsetX        int
	OffsetY        int
	OpacityPercent int // 0-100; 0 disables the shadow entirely
}

// CompositionConfig holds the geometric finishing parameters.
type CompositionConfig struct {
	Padding      int // uniform padding in px, >= 0
	BorderRadius int // corner radius in px, >= 0
	Shadow       ShadowConfig
	NoiseAmount  int // 0-100, 0 disables the grain overlay
	BlurAmount   int // 0 disables the Gaussian pre-blur of the source
}

// ForBackground applies the background-dependent invariants: a transparent
// background forces zero padding and suppresses the shadow.
func (c CompositionConfig) ForBackground(kind BackgroundKind) CompositionConfig {
	if kind == BackgroundTransparent {
		c.Padding = 0
		c.Shadow.OpacityPercent = 0
	}
	return c
}

// ── Forensic metadata ─────────────────────────────────────────────────────────

// ForensicMetadata describes the optional footer stamped below the composite.
// A nil *ForensicMetadata means no footer is appended.
type ForensicMetadata struct {
	TimestampUTC string // ISO-8601
	TeamLabel    string
	UserLabel    string
}

// Label returns the rendered "{team}/{user}" footer label.  Blank components
// default to "unknown" after trimming.
func (m ForensicMetadata) Label() string {
	team := strings.TrimSpace(m.TeamLabel)
	if team == "" {
		team = "unknown"
	}
	user := strings.TrimSpace(m.UserLabel)
	if user == "" {
		user = "unknown"
	}
	return team + "/" + user
}

// ── Per-invocation spec ───────────────────────────────────────────────────────

// FinishSpec is the fully resolved configuration for one finishing request.
// The pipeline is a pure function of (source, FinishSpec).
type FinishSpec struct {
	Background  BackgroundSpec
	Composition CompositionConfig
	Forensic    *ForensicMetadata
}

// SpecFromSettings builds a FinishSpec from persisted settings.  An invalid
// background selection is recovered by substituting the documented defaults;
// the returned error reports what was wrong so callers can log it.
func SpecFromSettings(s config.Settings, now time.Time) (FinishSpec, error) {
	bg, err := ParseBackgroundSpec(s)
	if err != nil {
		def := config.DefaultSettings()
		bg, _ = ParseBackgroundSpec(def)
	}

	spec := FinishSpec{
		Background: bg,
		Composition: CompositionConfig{
			Padding:      s.Padding,
			BorderRadius: s.BorderRadius,
			Shadow: ShadowConfig{
				BlurRadius:     s.Shadow.BlurRadius,
				OffsetX:        s.Shadow.OffsetX,
				OffsetY:        s.Shadow.OffsetY,
				OpacityPercent: s.Shadow.OpacityPercent,
			},
			NoiseAmount: s.NoiseAmount,
			BlurAmount:  s.BlurAmount,
		}.ForBackground(bg.Kind),
	}
	if s.ForensicMetadataEnabled {
		spec.Forensic = &ForensicMetadata{
			TimestampUTC: now.UTC().Format(time.RFC3339),
			TeamLabel:    s.ForensicTeam,
			UserLabel:    s.ForensicUser,
		}
	}
	return spec, err
}

// ── Pipeline payload ──────────────────────────────────────────────────────────

// Metadata holds lightweight image information carried through the pipeline.
type Metadata struct {
	Width     int
	Height    int
	Format    Format
	HasAlpha  bool
	SizeBytes int64
}

// Frame is the in-memory state passed through the finishing pipeline.  Stages
// populate it progressively: Data → Source → Surface → Canvas → Artifact.
type Frame struct {
	// Encoded source bytes as captured.
	Data   []byte
	Format Format

	// Decoded screenshot bitmap.  Never mutated; only read and re-drawn.
	Source image.Image

	// Resolved background description (set before the background stage runs).
	Background ResolvedBackground

	// Working surface during the composite stages.
	Surface Surface

	// Flattened composite after the foreground stage; noise and footer stages
	// operate on this directly.
	Canvas *image.NRGBA

	// Per-invocation configuration.
	Spec FinishSpec

	// Encoded output artifact (PNG).
	Artifact []byte

	Meta         Metadata
	OriginalSize int64
}

// FinishResult is returned to the caller after the full pipeline completes.
type FinishResult struct {
	// Artifact is the encoded PNG.  The caller owns it.
	Artifact []byte
	Width    int
	Height   int

	// Observability.
	ProcessingTime time.Duration
	StepTimings    map[string]time.Duration
}

// Source abstracts where the raw screenshot bytes come from.
type Source struct {
	Reader      io.Reader
	ContentType string // optional hint
	Name        string // optional logical name / filename
	Size        int64  // -1 if unknown
}

// ── Async jobs ────────────────────────────────────────────────────────────────

// Job encapsulates a single finishing request for the worker pool.
type Job struct {
	ID     string
	Ctx    context.Context //nolint:containedctx // intentional for async jobs
	Source Source
	Steps  []Step
	// Result channel; nil for fire-and-forget.
	ResultCh chan<- JobResult
}

// JobResult wraps the outcome of an async job.
type JobResult struct {
	JobID  string
	Result *FinishResult
	Err    error
}

// Step is the fundamental pipeline building block.  Each Step transforms a
// *Frame value and must be safe for concurrent use across goroutines.
type Step interface {
	Name() string
	Execute(ctx context.Context, fr *Frame) (*Frame, error)
}

// Hook is an optional observer invoked around pipeline steps.
type Hook interface {
	BeforeStep(ctx context.Context, stepName string, fr *Frame)
	AfterStep(ctx context.Context, stepName string, fr *Frame, d time.Duration, err error)
}

// StorageKey uniquely identifies a stored artifact.
type StorageKey struct {
	Bucket string
	Path   string
}
