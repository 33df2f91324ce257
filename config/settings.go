package config

import (
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings is the persisted configuration surface consumed from the host
// application's settings store.  The yaml keys are the stable contract; the
// pipeline itself never writes them.
type Settings struct {
	DefaultBackgroundType  string `yaml:"defaultBackgroundType"`  // transparent|white|black|gray|custom|image|gradient
	DefaultCustomColor     string `yaml:"defaultCustomColor"`     // hex, used when type = custom
	DefaultBackgroundImage string `yaml:"defaultBackgroundImage"` // asset id, path, or data URL

	Padding      int            `yaml:"padding"`
	BorderRadius int            `yaml:"borderRadius"`
	Shadow       ShadowSettings `yaml:"shadow"`
	NoiseAmount  int            `yaml:"noiseAmount"` // 0-100, 0 disables
	BlurAmount   int            `yaml:"blurAmount"`  // 0 disables source pre-blur

	ForensicMetadataEnabled bool   `yaml:"forensicMetadataEnabled"`
	ForensicTeam            string `yaml:"forensicTeam"`
	ForensicUser            string `yaml:"forensicUser"`
}

// ShadowSettings describes the drop shadow under the placed screenshot.
type ShadowSettings struct {
	BlurRadius     int `yaml:"blurRadius"`
	OffsetX        int `yaml:"offsetX"`
	OffsetY        int `yaml:"offsetY"`
	OpacityPercent int `yaml:"opacityPercent"` // 0-100
}

// DefaultSettings returns the documented fallback settings used when the
// settings store is missing or corrupt: image background, #667eea custom
// color, forensics disabled.
func DefaultSettings() Settings {
	return Settings{
		DefaultBackgroundType:  "image",
		DefaultCustomColor:     "#667eea",
		DefaultBackgroundImage: "",
		Padding:                64,
		BorderRadius:           12,
		Shadow: ShadowSettings{
			BlurRadius:     24,
			OffsetX:        0,
			OffsetY:        12,
			OpacityPercent: 35,
		},
	}
}

// LoadSettings reads the settings file at path.  Load failures are not fatal:
// the documented defaults are returned and a warning is logged, per the
// recovery policy for the settings collaborator.
func LoadSettings(path string, logger *slog.Logger) Settings {
	if logger == nil {
		logger = slog.Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("settings unreadable, using defaults", "path", path, "error", err)
		return DefaultSettings()
	}
	var s Settings
	if err := yaml.Unmarshal(raw, &s); err != nil {
		logger.Warn("settings corrupt, using defaults", "path", path, "error", err)
		return DefaultSettings()
	}
	return s.normalized()
}

// normalized clamps numeric ranges and fills blank enum values so downstream
// stages never see out-of-range inputs.
func (s Settings) normalized() Settings {
	if strings.TrimSpace(s.DefaultBackgroundType) == "" {
		s.DefaultBackgroundType = DefaultSettings().DefaultBackgroundType
	}
	if strings.TrimSpace(s.DefaultCustomColor) == "" {
		s.DefaultCustomColor = DefaultSettings().DefaultCustomColor
	}
	s.Padding = clamp(s.Padding, 0, 4096)
	s.BorderRadius = clamp(s.BorderRadius, 0, 4096)
	s.Shadow.BlurRadius = clamp(s.Shadow.BlurRadius, 0, 512)
	s.Shadow.OpacityPercent = clamp(s.Shadow.OpacityPercent, 0, 100)
	s.NoiseAmount = clamp(s.NoiseAmount, 0, 100)
	s.BlurAmount = clamp(s.BlurAmount, 0, 100)
	return s
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
