// SPDX-License-Identifier: MIT

package ffmpeg

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SilenceSegment is one silent span reported by silencedetect.
type SilenceSegment struct {
	Start time.Duration
	End   time.Duration
}

// DetectSilence runs the silencedetect filter over a file and returns the
// silent spans. Used to trim dead air from narration clips.
func (e *Executor) DetectSilence(ctx context.Context, input string, noiseDB float64, minDuration time.Duration) ([]SilenceSegment, error) {
	e.logger.Debug().
		Str("input", input).
		Float64("noise_db", noiseDB).
		Str("event", "ffmpeg.silencedetect").
		Msg("detecting silence")

	args := []string{
		"-i", input,
		"-af", fmt.Sprintf("silencedetect=noise=%.2fdB:d=%.3f", noiseDB, minDuration.Seconds()),
		"-f", "null", "-",
	}
	output, err := e.RunCapture(ctx, args)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// silencedetect writes to stderr even when the null muxer grumbles;
		// only fail when there is nothing to parse.
		if output == "" {
			return nil, fmt.Errorf("silence detection: %w", err)
		}
	}
	return parseSilence(output), nil
}

func parseSilence(output string) []SilenceSegment {
	var segments []SilenceSegment
	var start time.Duration
	haveStart := false

	for _, line := range strings.Split(output, "\n") {
		if _, after, ok := strings.Cut(line, "silence_start:"); ok {
			if secs, err := strconv.ParseFloat(strings.TrimSpace(after), 64); err == nil {
				start = time.Duration(secs * float64(time.Second))
				haveStart = true
			}
			continue
		}
		if _, after, ok := strings.Cut(line, "silence_end:"); ok && haveStart {
			fields := strings.Fields(strings.TrimSpace(after))
			if len(fields) == 0 {
				continue
			}
			if secs, err := strconv.ParseFloat(fields[0], 64); err == nil {
				segments = append(segments, SilenceSegment{Start: start, End: time.Duration(secs * float64(time.Second))})
				haveStart = false
			}
		}
	}
	return segments
}

// VolumeStats holds the volumedetect filter's summary.
type VolumeStats struct {
	MeanDB float64
	MaxDB  float64
}

// AnalyzeVolume reports mean and peak volume for a file.
func (e *Executor) AnalyzeVolume(ctx context.Context, input string) (VolumeStats, error) {
	args := []string{
		"-i", input,
		"-af", "volumedetect",
		"-f", "null", "-",
	}
	output, err := e.RunCapture(ctx, args)
	if err != nil {
		if ctx.Err() != nil {
			return VolumeStats{}, ctx.Err()
		}
		if output == "" {
			return VolumeStats{}, fmt.Errorf("volume analysis: %w", err)
		}
	}

	var stats VolumeStats
	for _, line := range strings.Split(output, "\n") {
		if _, after, ok := strings.Cut(line, "mean_volume:"); ok {
			stats.MeanDB = parseLeadingFloat(after)
		} else if _, after, ok := strings.Cut(line, "max_volume:"); ok {
			stats.MaxDB = parseLeadingFloat(after)
		}
	}
	return stats, nil
}

func parseLeadingFloat(s string) float64 {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return 0
	}
	f, _ := strconv.ParseFloat(fields[0], 64)
	return f
}
