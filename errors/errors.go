package errors

import (
	"errors"
	"fmt"
)

// Category classifies error types for targeted handling and monitoring.
type Category string

const (
	CategoryDecode     Category = "decode"     // source screenshot could not be decoded
	CategoryBackground Category = "background" // background resource could not be loaded
	CategorySurface    Category = "surface"    // rendering surface could not be allocated
	CategoryEncode     Category = "encode"     // final artifact could not be serialised
	CategoryPipeline   Category = "pipeline"
	CategoryStorage    Category = "storage"
	CategoryConfig     Category = "config"
	CategoryTransient  Category = "transient"
	CategoryInput      Category = "input"
)

// FinishError is the structured error type used throughout the module.
type FinishError struct {
	Category  Category
	Op        string // operation name
	Err       error
	Retryable bool
}

func (e *FinishError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Op, e.Err)
}

func (e *FinishError) Unwrap() error { return e.Err }

// New creates a non-retryable FinishError.
func New(category Category, op string, err error) *FinishError {
	return &FinishError{Category: category, Op: op, Err: err}
}

// Transient creates a retryable FinishError.
func Transient(op string, err error) *FinishError {
	return &FinishError{Category: CategoryTransient, Op: op, Err: err, Retryable: true}
}

// Wrap wraps an existing error with context.
func Wrap(category Category, op string, err error) error {
	if err == nil {
		return nil
	}
	return New(category, op, err)
}

// IsRetryable reports whether err represents a transient failure.
func IsRetryable(err error) bool {
	var fe *FinishError
	if errors.As(err, &fe) {
		return fe.Retryable
	}
	return false
}

// IsCategory reports whether err belongs to the given category.
func IsCategory(err error, cat Category) bool {
	var fe *FinishError
	if errors.As(err, &fe) {
		return fe.Category == cat
	}
	return false
}

// Sentinel errors for common failure modes.
var (
	ErrUnsupportedFormat   = errors.New("unsupported image format")
	ErrInvalidDimensions   = errors.New("invalid dimensions")
	ErrEmptyInput          = errors.New("empty input")
	ErrUnknownAsset        = errors.New("unknown background asset")
	ErrNoDefaultBackground = errors.New("no default background available")
	ErrContextCanceled     = errors.New("context canceled")
	ErrWorkerPoolFull      = errors.New("worker pool queue full")
	ErrStorageUnavailable  = errors.New("storage unavailable")
)
