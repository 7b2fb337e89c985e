// SPDX-License-Identifier: MIT

// Package config loads and validates the reelsmith configuration: defaults,
// then the optional YAML file, then environment overrides. The resulting
// FileConfig is read-only after job start; no component reads ambient state.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/reelsmith/reelsmith/internal/validate"
)

// Defaults returns the baseline configuration. Policy constants that the
// original system hard-coded (ducking gain, drift threshold) live here so
// they stay overridable.
func Defaults() FileConfig {
	return FileConfig{
		DataDir:   "data",
		AssetsDir: "assets",
		LogLevel:  "info",
		Render: RenderSettings{
			Width:             1080,
			Height:            1920,
			FPS:               24,
			CrossfadeSeconds:  0,
			MinClipSeconds:    1.5,
			Bitrate:           "5000k",
			VideoCodec:        "libx264",
			AudioCodec:        "aac",
			Preset:            "medium",
			WatermarkPosition: "bottom-right",
			DriftThreshold:    0.10,
		},
		Audio: AudioSettings{
			MusicGain:          0.10,
			FullGain:           1.0,
			SilenceThresholdDB: -40,
		},
		Captions: CaptionSettings{
			Mode:           "karaoke",
			BaseSize:       85,
			HighlightScale: 1.35,
			HighlightColor: "#FFD700",
			WordsPerLine:   5,
		},
		FFmpeg: FFmpegSettings{
			FFmpegPath:  "ffmpeg",
			FFprobePath: "ffprobe",
		},
		Server: ServerSettings{
			Listen: "127.0.0.1:8090",
		},
	}
}

// Load builds the effective configuration from the optional file at path
// plus environment overrides, then validates it.
func Load(path string) (FileConfig, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration with an accumulating validator so the
// operator sees every problem at once.
func Validate(cfg FileConfig) error {
	v := validate.New()

	v.Positive("render.width", cfg.Render.Width)
	v.Positive("render.height", cfg.Render.Height)
	v.Positive("render.fps", cfg.Render.FPS)
	v.NonNegative("render.crossfadeSeconds", cfg.Render.CrossfadeSeconds)
	v.Fraction("render.driftThreshold", cfg.Render.DriftThreshold)
	v.OneOf("render.watermarkPosition", cfg.Render.WatermarkPosition,
		[]string{"bottom-right", "bottom-left", "top-right", "top-left", "top-center"})

	v.Fraction("audio.musicGain", cfg.Audio.MusicGain)
	v.Fraction("audio.fullGain", cfg.Audio.FullGain)

	v.OneOf("captions.mode", cfg.Captions.Mode, []string{"karaoke", "static"})
	v.Positive("captions.baseSize", cfg.Captions.BaseSize)
	v.Positive("captions.wordsPerLine", cfg.Captions.WordsPerLine)
	if cfg.Captions.WordsPerLine > 5 {
		v.AddError("captions.wordsPerLine", "must not exceed 5", cfg.Captions.WordsPerLine)
	}
	if cfg.Captions.HighlightScale < 1.0 {
		v.AddError("captions.highlightScale", "must not shrink the active word", cfg.Captions.HighlightScale)
	}

	return v.Err()
}
