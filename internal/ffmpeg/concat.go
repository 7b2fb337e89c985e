// SPDX-License-Identifier: MIT

package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Concat joins input files into one output using the concat demuxer.
// With Reencode unset the streams are copied, which requires uniform
// codecs and dimensions across inputs.
type ConcatOptions struct {
	Inputs     []string
	Output     string
	Reencode   bool
	VideoCodec string
	AudioCodec string
	OnProgress ProgressFunc
}

func (e *Executor) Concat(ctx context.Context, opts ConcatOptions) error {
	if len(opts.Inputs) == 0 {
		return fmt.Errorf("concat: no inputs")
	}
	if opts.Output == "" {
		return fmt.Errorf("concat: empty output path")
	}

	e.logger.Info().
		Int("inputs", len(opts.Inputs)).
		Str("output", opts.Output).
		Str("event", "ffmpeg.concat").
		Msg("concatenating clips")

	listFile, err := writeConcatList(opts.Inputs)
	if err != nil {
		return fmt.Errorf("concat list: %w", err)
	}
	defer os.Remove(listFile)

	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
	}
	if opts.Reencode {
		args = append(args,
			"-c:v", valueOr(opts.VideoCodec, "libx264"),
			"-c:a", valueOr(opts.AudioCodec, "aac"),
		)
	} else {
		args = append(args, "-c", "copy")
	}
	args = append(args, opts.Output)

	return e.Run(ctx, args, opts.OnProgress)
}

// writeConcatList produces the demuxer's file-list format. Single quotes
// in paths are escaped per the demuxer's quoting rules.
func writeConcatList(inputs []string) (string, error) {
	tmp, err := os.CreateTemp("", "reelsmith-concat-*.txt")
	if err != nil {
		return "", err
	}
	defer tmp.Close()

	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			os.Remove(tmp.Name())
			return "", err
		}
		escaped := strings.ReplaceAll(abs, "'", `'\''`)
		if _, err := fmt.Fprintf(tmp, "file '%s'\n", escaped); err != nil {
			os.Remove(tmp.Name())
			return "", err
		}
	}
	return tmp.Name(), nil
}
