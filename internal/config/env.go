// SPDX-License-Identifier: MIT

package config

import (
	"os"
	"strconv"
)

// Environment variables override file values. Only operational knobs are
// exposed; render policy stays in the file so a job's config is one artifact.
const (
	envDataDir   = "REELSMITH_DATA_DIR"
	envAssetsDir = "REELSMITH_ASSETS_DIR"
	envLogLevel  = "REELSMITH_LOG_LEVEL"
	envListen    = "REELSMITH_LISTEN"
	envFFmpeg    = "REELSMITH_FFMPEG"
	envFFprobe   = "REELSMITH_FFPROBE"
	envThreads   = "REELSMITH_THREADS"
)

func applyEnv(cfg *FileConfig) {
	if v := os.Getenv(envDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(envAssetsDir); v != "" {
		cfg.AssetsDir = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(envListen); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv(envFFmpeg); v != "" {
		cfg.FFmpeg.FFmpegPath = v
	}
	if v := os.Getenv(envFFprobe); v != "" {
		cfg.FFmpeg.FFprobePath = v
	}
	if v := os.Getenv(envThreads); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.FFmpeg.Threads = n
		}
	}
}
