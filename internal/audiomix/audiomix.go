// SPDX-License-Identifier: MIT

// Package audiomix plans the master audio track. The concatenated narration
// defines the master clock; background music is looped out to that length,
// trimmed, and ducked so narration stays intelligible. Planning is pure and
// compiles to ffmpeg filter graphs executed by the renderer.
package audiomix

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/reelsmith/reelsmith/internal/ffmpeg"
)

// MasterClock is the duration of the concatenated narration, the single
// authority for the final video length.
func MasterClock(narration []time.Duration) time.Duration {
	var total time.Duration
	for _, d := range narration {
		total += d
	}
	return total
}

// MusicPlan describes how one background track is stretched to the master
// clock: repeat the whole track enough times to cover it, trim the excess,
// then apply the ducking gain.
type MusicPlan struct {
	Source     string
	Track      time.Duration
	Master     time.Duration
	Gain       float64
	ExtraLoops int
}

// PlanMusic computes the loop count for a track against the master clock.
// A zero-length track or master clock yields an error; too-short tracks are
// never an error, they just loop more.
func PlanMusic(source string, track, master time.Duration, gain float64) (MusicPlan, error) {
	if track <= 0 {
		return MusicPlan{}, fmt.Errorf("music track duration %v", track)
	}
	if master <= 0 {
		return MusicPlan{}, fmt.Errorf("master clock %v", master)
	}
	repeats := int(math.Ceil(master.Seconds() / track.Seconds()))
	if repeats < 1 {
		repeats = 1
	}
	return MusicPlan{
		Source:     source,
		Track:      track,
		Master:     master,
		Gain:       gain,
		ExtraLoops: repeats - 1,
	}, nil
}

// InputArgs returns the ffmpeg input arguments for the music file, looping
// the whole file as many extra times as the plan requires.
func (p MusicPlan) InputArgs() []string {
	args := []string{}
	if p.ExtraLoops > 0 {
		args = append(args, "-stream_loop", fmt.Sprintf("%d", p.ExtraLoops))
	}
	return append(args, "-i", p.Source)
}

// Filter trims the looped stream to the master clock and applies the gain.
func (p MusicPlan) Filter() string {
	return fmt.Sprintf("atrim=0:%.3f,asetpts=PTS-STARTPTS,volume=%.3f", p.Master.Seconds(), p.Gain)
}

// PlanStingers places a transition sound at each scene handover. Stingers
// landing within tail of the master clock's end are dropped so the outro is
// not clipped mid-sound.
func PlanStingers(boundaries []time.Duration, master, tail time.Duration) []time.Duration {
	var placed []time.Duration
	for _, b := range boundaries {
		if b <= 0 || b >= master {
			continue
		}
		if master-b < tail {
			continue
		}
		placed = append(placed, b)
	}
	return placed
}

// Graph compiles the complete mixing filter graph. Input stream indices
// start at Offset: narration first, music (when present) next, stingers
// after that. The output label is [aout].
type Graph struct {
	Offset      int
	Music       *MusicPlan
	StingerGain float64
	Stingers    []time.Duration
}

func (g Graph) FilterComplex() string {
	var parts []string
	labels := []string{fmt.Sprintf("[%d:a]", g.Offset)}

	input := g.Offset + 1
	if g.Music != nil {
		parts = append(parts, fmt.Sprintf("[%d:a]%s[music]", input, g.Music.Filter()))
		labels = append(labels, "[music]")
		input++
	}
	for i, at := range g.Stingers {
		ms := at.Milliseconds()
		label := fmt.Sprintf("[sting%d]", i)
		parts = append(parts, fmt.Sprintf("[%d:a]adelay=%d|%d,volume=%.3f%s", input, ms, ms, g.StingerGain, label))
		labels = append(labels, label)
		input++
	}

	if len(labels) == 1 {
		parts = append(parts, fmt.Sprintf("[%d:a]acopy[aout]", g.Offset))
	} else {
		parts = append(parts, fmt.Sprintf(
			"%samix=inputs=%d:duration=first:normalize=0[aout]",
			strings.Join(labels, ""), len(labels),
		))
	}
	return strings.Join(parts, ";")
}

// TrimBounds computes the keep range for a narration clip after stripping
// leading and trailing silence, padded so speech onsets are not clipped.
// Interior silence is kept. A clip that is all silence keeps itself whole.
func TrimBounds(clip time.Duration, silences []ffmpeg.SilenceSegment, pad time.Duration) (start, end time.Duration) {
	start, end = 0, clip
	for _, s := range silences {
		if s.Start <= 0 && s.End > start {
			start = s.End - pad
		}
		if s.End >= clip && s.Start < end {
			end = s.Start + pad
		}
	}
	if start < 0 {
		start = 0
	}
	if end > clip {
		end = clip
	}
	if start >= end {
		return 0, clip
	}
	return start, end
}
