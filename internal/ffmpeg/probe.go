// SPDX-License-Identifier: MIT

package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Info holds probed media metadata. Duration comes from the container
// format and is the authoritative clip length for scheduling.
type Info struct {
	Path     string
	Duration time.Duration
	Width    int
	Height   int
	FPS      float64
	HasVideo bool
	HasAudio bool
	Codec    string
}

// Probe inspects a media file with ffprobe.
func (e *Executor) Probe(ctx context.Context, path string) (Info, error) {
	if path == "" {
		return Info{}, fmt.Errorf("probe: empty path")
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
	out, err := e.runner.Output(ctx, e.ffprobePath, args)
	if err != nil {
		return Info{}, fmt.Errorf("probe %s: %w", path, err)
	}

	var raw probeResult
	if err := json.Unmarshal(out, &raw); err != nil {
		return Info{}, fmt.Errorf("probe %s: parse: %w", path, err)
	}

	info := Info{Path: path}
	if secs, err := strconv.ParseFloat(raw.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(secs * float64(time.Second))
	}
	for _, s := range raw.Streams {
		switch s.CodecType {
		case "video":
			info.HasVideo = true
			info.Width = s.Width
			info.Height = s.Height
			info.Codec = s.CodecName
			info.FPS = parseFrameRate(s.RFrameRate)
		case "audio":
			info.HasAudio = true
			if info.Codec == "" {
				info.Codec = s.CodecName
			}
		}
	}
	return info, nil
}

type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

// parseFrameRate converts ffprobe's rational frame rate ("30000/1001")
// to a float. Malformed input yields zero.
func parseFrameRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		f, _ := strconv.ParseFloat(s, 64)
		return f
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
