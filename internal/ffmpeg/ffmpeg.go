// SPDX-License-Identifier: MIT

// Package ffmpeg wraps the ffmpeg and ffprobe binaries behind a small
// executor. All invocations go through a Runner so the pipeline can be
// exercised in tests without the binaries installed.
package ffmpeg

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelsmith/reelsmith/internal/procgroup"
)

// Runner executes an external command. The stderr callback receives the
// command's combined diagnostic output line by line.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stderr func(line string)) error
	Output(ctx context.Context, name string, args []string) ([]byte, error)
}

// execRunner is the production Runner backed by os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args []string, stderrFn func(string)) error {
	cmd := exec.CommandContext(ctx, name, args...)
	procgroup.Set(cmd)
	cmd.Cancel = func() error { return procgroup.Kill(cmd) }
	cmd.WaitDelay = 3 * time.Second

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", name, err)
	}

	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if stderrFn != nil {
			stderrFn(scanner.Text())
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (execRunner) Output(ctx context.Context, name string, args []string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// Options configures executor binary paths and encoding parallelism.
type Options struct {
	FFmpegPath  string
	FFprobePath string
	Threads     int
}

// Executor issues ffmpeg and ffprobe commands.
type Executor struct {
	runner      Runner
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	threads     int
}

// New builds an executor using the real binaries. Paths default to a PATH
// lookup when unset; missing binaries fail here rather than mid-render.
func New(logger zerolog.Logger, opts Options) (*Executor, error) {
	ffmpegPath := opts.FFmpegPath
	if ffmpegPath == "" || !strings.Contains(ffmpegPath, "/") {
		resolved, err := exec.LookPath(valueOr(ffmpegPath, "ffmpeg"))
		if err != nil {
			return nil, fmt.Errorf("ffmpeg not found: %w", err)
		}
		ffmpegPath = resolved
	}
	ffprobePath := opts.FFprobePath
	if ffprobePath == "" || !strings.Contains(ffprobePath, "/") {
		resolved, err := exec.LookPath(valueOr(ffprobePath, "ffprobe"))
		if err != nil {
			return nil, fmt.Errorf("ffprobe not found: %w", err)
		}
		ffprobePath = resolved
	}

	return &Executor{
		runner:      execRunner{},
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     opts.Threads,
	}, nil
}

// NewWithRunner builds an executor on a caller-supplied Runner.
func NewWithRunner(logger zerolog.Logger, runner Runner, opts Options) *Executor {
	return &Executor{
		runner:      runner,
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  valueOr(opts.FFmpegPath, "ffmpeg"),
		ffprobePath: valueOr(opts.FFprobePath, "ffprobe"),
		threads:     opts.Threads,
	}
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// Progress is one parsed ffmpeg progress report.
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	Time    string
	Speed   string
}

// ProgressFunc receives progress reports during an encode.
type ProgressFunc func(Progress)

// Run invokes ffmpeg with the given arguments. Progress blocks parsed from
// stderr are delivered to onProgress; all stderr lines go to the debug log.
func (e *Executor) Run(ctx context.Context, args []string, onProgress ProgressFunc) error {
	if len(args) == 0 {
		return fmt.Errorf("no ffmpeg arguments")
	}

	base := []string{"-y", "-hide_banner", "-loglevel", "info"}
	if e.threads > 0 {
		base = append(base, "-threads", fmt.Sprintf("%d", e.threads))
	}
	base = append(base, "-progress", "pipe:2")
	full := append(base, args...)

	e.logger.Debug().Strs("args", full).Str("event", "ffmpeg.run").Msg("executing ffmpeg")

	current := Progress{}
	err := e.runner.Run(ctx, e.ffmpegPath, full, func(line string) {
		e.logger.Trace().Str("line", line).Msg("ffmpeg output")
		if done := parseProgressLine(line, &current); done {
			if onProgress != nil && current.Frame > 0 {
				onProgress(current)
			}
			current = Progress{}
		}
	})
	if err != nil {
		return err
	}

	e.logger.Debug().Str("event", "ffmpeg.done").Msg("ffmpeg completed")
	return nil
}

// RunCapture invokes ffmpeg and returns its full stderr, for analysis
// filters that report through the log rather than an output file.
func (e *Executor) RunCapture(ctx context.Context, args []string) (string, error) {
	var b strings.Builder
	err := e.runner.Run(ctx, e.ffmpegPath, args, func(line string) {
		b.WriteString(line)
		b.WriteByte('\n')
	})
	return b.String(), err
}

// parseProgressLine folds one stderr line into p. It reports true at the
// end of a progress block.
func parseProgressLine(line string, p *Progress) bool {
	switch {
	case strings.HasPrefix(line, "frame="):
		fmt.Sscanf(line, "frame=%d", &p.Frame)
	case strings.HasPrefix(line, "fps="):
		fmt.Sscanf(line, "fps=%f", &p.FPS)
	case strings.HasPrefix(line, "bitrate="):
		p.Bitrate = strings.TrimSpace(strings.TrimPrefix(line, "bitrate="))
	case strings.HasPrefix(line, "out_time="):
		p.Time = strings.TrimSpace(strings.TrimPrefix(line, "out_time="))
	case strings.HasPrefix(line, "time="):
		p.Time = strings.TrimSpace(strings.TrimPrefix(line, "time="))
	case strings.HasPrefix(line, "speed="):
		p.Speed = strings.TrimSpace(strings.TrimPrefix(line, "speed="))
	case strings.HasPrefix(line, "progress="):
		return true
	}
	return false
}
