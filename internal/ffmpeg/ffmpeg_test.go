// SPDX-License-Identifier: MIT

package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records invocations and replays canned stderr/stdout.
type fakeRunner struct {
	runs     [][]string
	stderr   []string
	output   []byte
	runErr   error
	probeErr error
}

func (f *fakeRunner) Run(_ context.Context, name string, args []string, stderrFn func(string)) error {
	f.runs = append(f.runs, append([]string{name}, args...))
	for _, line := range f.stderr {
		if stderrFn != nil {
			stderrFn(line)
		}
	}
	return f.runErr
}

func (f *fakeRunner) Output(_ context.Context, name string, args []string) ([]byte, error) {
	f.runs = append(f.runs, append([]string{name}, args...))
	return f.output, f.probeErr
}

func testExec(r Runner) *Executor {
	return NewWithRunner(zerolog.Nop(), r, Options{Threads: 2})
}

func TestRunBuildsBaseArgsAndParsesProgress(t *testing.T) {
	fake := &fakeRunner{stderr: []string{
		"frame=24",
		"fps=23.9",
		"bitrate=4800.2kbits/s",
		"out_time=00:00:01.000000",
		"speed=1.2x",
		"progress=continue",
		"frame=48",
		"progress=end",
	}}
	exec := testExec(fake)

	var reports []Progress
	err := exec.Run(context.Background(), []string{"-i", "in.mp4", "out.mp4"}, func(p Progress) {
		reports = append(reports, p)
	})
	require.NoError(t, err)

	require.Len(t, fake.runs, 1)
	got := strings.Join(fake.runs[0], " ")
	assert.Contains(t, got, "-y -hide_banner")
	assert.Contains(t, got, "-threads 2")
	assert.Contains(t, got, "-progress pipe:2")
	assert.True(t, strings.HasSuffix(got, "-i in.mp4 out.mp4"))

	require.Len(t, reports, 2)
	assert.Equal(t, 24, reports[0].Frame)
	assert.InDelta(t, 23.9, reports[0].FPS, 0.001)
	assert.Equal(t, "00:00:01.000000", reports[0].Time)
	assert.Equal(t, "1.2x", reports[0].Speed)
	assert.Equal(t, 48, reports[1].Frame)
}

func TestRunRejectsEmptyArgs(t *testing.T) {
	err := testExec(&fakeRunner{}).Run(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestProbeParsesStreams(t *testing.T) {
	fake := &fakeRunner{output: []byte(`{
		"format": {"duration": "12.480000"},
		"streams": [
			{"codec_type": "video", "codec_name": "h264", "width": 1080, "height": 1920, "r_frame_rate": "24000/1001"},
			{"codec_type": "audio", "codec_name": "aac"}
		]
	}`)}
	exec := testExec(fake)

	info, err := exec.Probe(context.Background(), "scene.mp4")
	require.NoError(t, err)
	assert.Equal(t, 12480*time.Millisecond, info.Duration)
	assert.Equal(t, 1080, info.Width)
	assert.Equal(t, 1920, info.Height)
	assert.True(t, info.HasVideo)
	assert.True(t, info.HasAudio)
	assert.Equal(t, "h264", info.Codec)
	assert.InDelta(t, 23.976, info.FPS, 0.001)

	require.Len(t, fake.runs, 1)
	assert.Equal(t, "ffprobe", fake.runs[0][0])
	assert.Contains(t, fake.runs[0], "-show_streams")
}

func TestProbeFailures(t *testing.T) {
	if _, err := testExec(&fakeRunner{}).Probe(context.Background(), ""); err == nil {
		t.Error("empty path accepted")
	}
	fake := &fakeRunner{probeErr: fmt.Errorf("exit status 1")}
	if _, err := testExec(fake).Probe(context.Background(), "x.mp4"); err == nil {
		t.Error("runner failure not propagated")
	}
	bad := &fakeRunner{output: []byte("not json")}
	if _, err := testExec(bad).Probe(context.Background(), "x.mp4"); err == nil {
		t.Error("malformed JSON accepted")
	}
}

func TestParseFrameRate(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"24000/1001", 23.976023976023978},
		{"25", 25},
		{"0/0", 0},
		{"garbage", 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, parseFrameRate(tt.in), 1e-9, tt.in)
	}
}

func TestWriteConcatListEscapesQuotes(t *testing.T) {
	list, err := writeConcatList([]string{"a.mp4", "it's here.mp4"})
	require.NoError(t, err)
	defer os.Remove(list)

	data, err := os.ReadFile(list)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "file '"))
	assert.Contains(t, lines[1], `'\''`)
}

func TestConcatCopiesStreamsByDefault(t *testing.T) {
	fake := &fakeRunner{stderr: []string{"progress=end"}}
	exec := testExec(fake)

	err := exec.Concat(context.Background(), ConcatOptions{
		Inputs: []string{"a.mp4", "b.mp4"},
		Output: "out.mp4",
	})
	require.NoError(t, err)
	got := strings.Join(fake.runs[0], " ")
	assert.Contains(t, got, "-f concat -safe 0")
	assert.Contains(t, got, "-c copy")
	assert.NotContains(t, got, "-c:v")
}

func TestConcatReencode(t *testing.T) {
	fake := &fakeRunner{}
	exec := testExec(fake)

	err := exec.Concat(context.Background(), ConcatOptions{
		Inputs:   []string{"a.mp4"},
		Output:   "out.mp4",
		Reencode: true,
	})
	require.NoError(t, err)
	got := strings.Join(fake.runs[0], " ")
	assert.Contains(t, got, "-c:v libx264")
	assert.Contains(t, got, "-c:a aac")
}

func TestConcatValidation(t *testing.T) {
	exec := testExec(&fakeRunner{})
	assert.Error(t, exec.Concat(context.Background(), ConcatOptions{Output: "o.mp4"}))
	assert.Error(t, exec.Concat(context.Background(), ConcatOptions{Inputs: []string{"a.mp4"}}))
}

func TestParseSilence(t *testing.T) {
	output := strings.Join([]string{
		"[silencedetect @ 0x1] silence_start: 1.5",
		"[silencedetect @ 0x1] silence_end: 2.25 | silence_duration: 0.75",
		"[silencedetect @ 0x1] silence_start: 9.0",
		"[silencedetect @ 0x1] silence_end: 10.5 | silence_duration: 1.5",
	}, "\n")

	segments := parseSilence(output)
	require.Len(t, segments, 2)
	assert.Equal(t, 1500*time.Millisecond, segments[0].Start)
	assert.Equal(t, 2250*time.Millisecond, segments[0].End)
	assert.Equal(t, 9*time.Second, segments[1].Start)
}

func TestParseSilenceIgnoresDanglingEnd(t *testing.T) {
	segments := parseSilence("[silencedetect @ 0x1] silence_end: 2.0")
	assert.Empty(t, segments)
}

func TestAnalyzeVolume(t *testing.T) {
	fake := &fakeRunner{stderr: []string{
		"[Parsed_volumedetect_0 @ 0x1] mean_volume: -23.4 dB",
		"[Parsed_volumedetect_0 @ 0x1] max_volume: -4.1 dB",
	}}
	exec := testExec(fake)

	stats, err := exec.AnalyzeVolume(context.Background(), "narration.wav")
	require.NoError(t, err)
	assert.InDelta(t, -23.4, stats.MeanDB, 1e-9)
	assert.InDelta(t, -4.1, stats.MaxDB, 1e-9)
}

func TestDetectSilenceToleratesNullMuxerError(t *testing.T) {
	fake := &fakeRunner{
		stderr: []string{"[silencedetect @ 0x1] silence_start: 0.5", "[silencedetect @ 0x1] silence_end: 1.0"},
		runErr: fmt.Errorf("Output file is empty"),
	}
	exec := testExec(fake)

	segments, err := exec.DetectSilence(context.Background(), "a.wav", -40, 500*time.Millisecond)
	require.NoError(t, err)
	require.Len(t, segments, 1)
}
