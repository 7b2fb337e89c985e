// SPDX-License-Identifier: MIT

package audiomix

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelsmith/reelsmith/internal/ffmpeg"
)

func TestMasterClockSumsNarration(t *testing.T) {
	got := MasterClock([]time.Duration{4 * time.Second, 5 * time.Second, 3 * time.Second})
	assert.Equal(t, 12*time.Second, got)
	assert.Equal(t, time.Duration(0), MasterClock(nil))
}

func TestPlanMusicLoopCount(t *testing.T) {
	tests := []struct {
		name          string
		track, master time.Duration
		wantLoops     int
	}{
		{"track longer than master", 60 * time.Second, 45 * time.Second, 0},
		{"track equals master", 45 * time.Second, 45 * time.Second, 0},
		{"track covers half", 30 * time.Second, 45 * time.Second, 1},
		{"short track loops many times", 10 * time.Second, 45 * time.Second, 4},
		{"exact multiple", 15 * time.Second, 45 * time.Second, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := PlanMusic("m.mp3", tt.track, tt.master, 0.10)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLoops, p.ExtraLoops)
		})
	}
}

func TestPlanMusicRejectsZeroDurations(t *testing.T) {
	_, err := PlanMusic("m.mp3", 0, 30*time.Second, 0.1)
	assert.Error(t, err)
	_, err = PlanMusic("m.mp3", 30*time.Second, 0, 0.1)
	assert.Error(t, err)
}

func TestMusicPlanArgsAndFilter(t *testing.T) {
	p, err := PlanMusic("m.mp3", 20*time.Second, 45*time.Second, 0.10)
	require.NoError(t, err)

	assert.Equal(t, []string{"-stream_loop", "2", "-i", "m.mp3"}, p.InputArgs())
	f := p.Filter()
	assert.Contains(t, f, "atrim=0:45.000")
	assert.Contains(t, f, "volume=0.100")

	// No loop flag when the track already covers the master clock.
	long, err := PlanMusic("m.mp3", 60*time.Second, 45*time.Second, 0.10)
	require.NoError(t, err)
	assert.Equal(t, []string{"-i", "m.mp3"}, long.InputArgs())
}

func TestPlanStingersSkipsTail(t *testing.T) {
	boundaries := []time.Duration{4 * time.Second, 9 * time.Second, 11500 * time.Millisecond}
	master := 12 * time.Second

	got := PlanStingers(boundaries, master, time.Second)
	assert.Equal(t, []time.Duration{4 * time.Second, 9 * time.Second}, got)
}

func TestPlanStingersDropsOutOfRange(t *testing.T) {
	got := PlanStingers([]time.Duration{0, 12 * time.Second, 15 * time.Second, 6 * time.Second}, 12*time.Second, time.Second)
	assert.Equal(t, []time.Duration{6 * time.Second}, got)
}

func TestGraphNarrationOnly(t *testing.T) {
	g := Graph{}
	assert.Equal(t, "[0:a]acopy[aout]", g.FilterComplex())
}

func TestGraphWithMusic(t *testing.T) {
	p, err := PlanMusic("m.mp3", 20*time.Second, 45*time.Second, 0.10)
	require.NoError(t, err)

	f := Graph{Music: &p}.FilterComplex()
	assert.Contains(t, f, "[1:a]atrim=0:45.000")
	assert.Contains(t, f, "[music]")
	assert.Contains(t, f, "amix=inputs=2:duration=first")
	assert.True(t, strings.HasSuffix(f, "[aout]"))
}

func TestGraphWithMusicAndStingers(t *testing.T) {
	p, err := PlanMusic("m.mp3", 20*time.Second, 45*time.Second, 0.10)
	require.NoError(t, err)

	g := Graph{
		Music:       &p,
		StingerGain: 0.5,
		Stingers:    []time.Duration{4 * time.Second, 9 * time.Second},
	}
	f := g.FilterComplex()
	assert.Contains(t, f, "[2:a]adelay=4000|4000")
	assert.Contains(t, f, "[3:a]adelay=9000|9000")
	assert.Contains(t, f, "amix=inputs=4:duration=first")
}

func TestGraphOffsetShiftsInputs(t *testing.T) {
	p, err := PlanMusic("m.mp3", 20*time.Second, 45*time.Second, 0.10)
	require.NoError(t, err)

	g := Graph{Offset: 1, Music: &p, StingerGain: 0.5, Stingers: []time.Duration{4 * time.Second}}
	f := g.FilterComplex()
	assert.Contains(t, f, "[1:a]")
	assert.Contains(t, f, "[2:a]atrim")
	assert.Contains(t, f, "[3:a]adelay")

	assert.Equal(t, "[1:a]acopy[aout]", Graph{Offset: 1}.FilterComplex())
}

func TestGraphStingersWithoutMusic(t *testing.T) {
	g := Graph{StingerGain: 0.5, Stingers: []time.Duration{2 * time.Second}}
	f := g.FilterComplex()
	assert.Contains(t, f, "[1:a]adelay=2000|2000")
	assert.Contains(t, f, "amix=inputs=2")
}

func TestTrimBounds(t *testing.T) {
	clip := 10 * time.Second
	pad := 100 * time.Millisecond

	t.Run("leading and trailing silence", func(t *testing.T) {
		silences := []ffmpeg.SilenceSegment{
			{Start: 0, End: time.Second},
			{Start: 9 * time.Second, End: 10 * time.Second},
		}
		start, end := TrimBounds(clip, silences, pad)
		assert.Equal(t, 900*time.Millisecond, start)
		assert.Equal(t, 9100*time.Millisecond, end)
	})

	t.Run("interior silence kept", func(t *testing.T) {
		start, end := TrimBounds(clip, []ffmpeg.SilenceSegment{{Start: 4 * time.Second, End: 5 * time.Second}}, pad)
		assert.Equal(t, time.Duration(0), start)
		assert.Equal(t, clip, end)
	})

	t.Run("all silence keeps clip whole", func(t *testing.T) {
		start, end := TrimBounds(clip, []ffmpeg.SilenceSegment{{Start: 0, End: clip}}, pad)
		assert.Equal(t, time.Duration(0), start)
		assert.Equal(t, clip, end)
	})

	t.Run("no silences", func(t *testing.T) {
		start, end := TrimBounds(clip, nil, pad)
		assert.Equal(t, time.Duration(0), start)
		assert.Equal(t, clip, end)
	})
}
