package utils

import (
	"bytes"
	"fmt"
	"image/color"
	"net/http"
	"strings"
)

const (
	formatJPEG    = "jpeg"
	formatPNG     = "png"
	formatWebP    = "webp"
	formatUnknown = "unknown"
)

// DetectFormat sniffs the leading bytes of data and returns the image format.
func DetectFormat(data []byte) string {
	if len(data) < 4 {
		return formatUnknown
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return formatJPEG
	}
	// PNG: 89 50 4E 47
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return formatPNG
	}
	// WebP: RIFF....WEBP
	if len(data) >= 12 &&
		data[0] == 'R' && data[1] == 'I' && data[2] == 'F' && data[3] == 'F' &&
		data[8] == 'W' && data[9] == 'E' && data[10] == 'B' && data[11] == 'P' {
		return formatWebP
	}
	// Fallback to net/http sniffing.
	ct := http.DetectContentType(data)
	switch ct {
	case "image/jpeg":
		return formatJPEG
	case "image/png":
		return formatPNG
	case "image/webp":
		return formatWebP
	}
	return formatUnknown
}

// ParseHexColor parses "#rgb", "#rrggbb", or "#rrggbbaa" into an NRGBA color.
func ParseHexColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	c := color.NRGBA{A: 0xFF}
	var err error
	switch len(s) {
	case 3:
		_, err = fmt.Sscanf(s, "%1x%1x%1x", &c.R, &c.G, &c.B)
		c.R *= 17
		c.G *= 17
		c.B *= 17
	case 6:
		_, err = fmt.Sscanf(s, "%02x%02x%02x", &c.R, &c.G, &c.B)
	case 8:
		_, err = fmt.Sscanf(s, "%02x%02x%02x%02x", &c.R, &c.G, &c.B, &c.A)
	default:
		return c, fmt.Errorf("invalid hex color %q", s)
	}
	if err != nil {
		return c, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return c, nil
}

// ClampInt bounds v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CloneBytes returns a copy of b (safe for use after the source buffer is released).
func CloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// BytesReader creates an io.Reader backed by b without allocation.
func BytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}
