package errors

import (
	stderrors "errors"
	"testing"
)

func TestWrap_NilPassthrough(t *testing.T) {
	if Wrap(CategoryDecode, "op", nil) != nil {
		t.Fatal("wrapping nil should return nil")
	}
}

func TestIsCategory(t *testing.T) {
	err := New(CategoryBackground, "background.decode", ErrUnknownAsset)
	if !IsCategory(err, CategoryBackground) {
		t.Error("category not detected")
	}
	if IsCategory(err, CategoryDecode) {
		t.Error("wrong category matched")
	}
	if IsCategory(stderrors.New("plain"), CategoryDecode) {
		t.Error("plain error matched a category")
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(New(CategoryEncode, "op", ErrEmptyInput)) {
		t.Error("non-transient error marked retryable")
	}
	if !IsRetryable(Transient("op", ErrStorageUnavailable)) {
		t.Error("transient error not retryable")
	}
}

func TestUnwrap_PreservesSentinel(t *testing.T) {
	err := New(CategoryDecode, "decode.source", ErrUnsupportedFormat)
	if !stderrors.Is(err, ErrUnsupportedFormat) {
		t.Error("sentinel lost through wrapping")
	}
}
