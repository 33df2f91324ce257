package utils

import (
	"context"
	"image/color"
	"strings"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "png"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "webp"},
		{"short", []byte{0x89}, "unknown"},
		{"text", []byte("hello, not an image at all"), "unknown"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := DetectFormat(tc.data); got != tc.want {
				t.Errorf("DetectFormat: got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#667eea", color.NRGBA{R: 0x66, G: 0x7E, B: 0xEA, A: 0xFF}, false},
		{"667eea", color.NRGBA{R: 0x66, G: 0x7E, B: 0xEA, A: 0xFF}, false},
		{"#fff", color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}, false},
		{"#11223344", color.NRGBA{R: 0x11, G: 0x22, B: 0x33, A: 0x44}, false},
		{" #000000 ", color.NRGBA{A: 0xFF}, false},
		{"#12345", color.NRGBA{}, true},
		{"#zzzzzz", color.NRGBA{}, true},
		{"", color.NRGBA{}, true},
	}
	for _, tc := range tests {
		got, err := ParseHexColor(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseHexColor(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseHexColor(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseHexColor(%q): got %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDrainReader(t *testing.T) {
	payload := strings.Repeat("x", 100*1024)
	buf, err := DrainReader(context.Background(), strings.NewReader(payload), 4096)
	if err != nil {
		t.Fatalf("DrainReader: %v", err)
	}
	defer ReleaseBuffer(buf)

	if buf.Len() != len(payload) {
		t.Errorf("length: got %d, want %d", buf.Len(), len(payload))
	}
}

func TestDrainReader_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DrainReader(ctx, strings.NewReader(strings.Repeat("x", 1<<20)), 1024)
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestLimitedReader(t *testing.T) {
	lr := &LimitedReader{R: strings.NewReader("0123456789"), Max: 5}
	buf := make([]byte, 16)
	n, err := lr.Read(buf)
	if err != nil || n != 5 {
		t.Fatalf("first read: n=%d err=%v, want 5 bytes", n, err)
	}
	if _, err := lr.Read(buf); err == nil {
		t.Fatal("expected error once the byte limit is reached")
	}
}

func TestClampInt(t *testing.T) {
	if got := ClampInt(-3, 0, 10); got != 0 {
		t.Errorf("below: got %d", got)
	}
	if got := ClampInt(42, 0, 10); got != 10 {
		t.Errorf("above: got %d", got)
	}
	if got := ClampInt(7, 0, 10); got != 7 {
		t.Errorf("inside: got %d", got)
	}
}

func TestCloneBytes(t *testing.T) {
	src := []byte{1, 2, 3}
	dup := CloneBytes(src)
	src[0] = 99
	if dup[0] != 1 {
		t.Error("clone shares backing array with source")
	}
}
