// SPDX-License-Identifier: MIT

package render

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// VisualSchedule reconciles the visual sequence against the narration
// master clock: the whole sequence repeats until it covers the clock, then
// the excess is trimmed. Differences within one frame are left alone.
type VisualSchedule struct {
	Sequence time.Duration
	Master   time.Duration

	// Epsilon is one frame at the output rate; differences below it are
	// treated as equal.
	Epsilon time.Duration

	// ExtraLoops is how many additional times the whole sequence repeats.
	ExtraLoops int

	// Trim marks that the (possibly looped) sequence overshoots the master
	// clock and must be cut at Master.
	Trim bool

	// Drift is |sequence-master| / master before reconciliation.
	Drift float64
}

func PlanVisuals(sequence, master time.Duration, fps int) (VisualSchedule, error) {
	if sequence <= 0 {
		return VisualSchedule{}, fmt.Errorf("visual sequence duration %v", sequence)
	}
	if master <= 0 {
		return VisualSchedule{}, fmt.Errorf("master clock %v", master)
	}
	if fps <= 0 {
		return VisualSchedule{}, fmt.Errorf("fps %d", fps)
	}

	s := VisualSchedule{
		Sequence: sequence,
		Master:   master,
		Epsilon:  time.Second / time.Duration(fps),
		Drift:    math.Abs(sequence.Seconds()-master.Seconds()) / master.Seconds(),
	}

	diff := sequence - master
	if diff < 0 {
		diff = -diff
	}
	if diff <= s.Epsilon {
		return s, nil
	}

	if sequence < master {
		s.ExtraLoops = int(math.Ceil(master.Seconds()/sequence.Seconds())) - 1
	}
	s.Trim = true
	return s, nil
}

// Covered is the looped sequence length before trimming.
func (s VisualSchedule) Covered() time.Duration {
	return s.Sequence * time.Duration(s.ExtraLoops+1)
}

// PlanCrossfade decides the transition length between clips. Crossfades are
// clamped to 40% of the shortest clip, need at least two clips, and are
// skipped entirely when any clip is below the configured minimum.
func PlanCrossfade(clips []time.Duration, want time.Duration, minClip time.Duration) (time.Duration, bool) {
	if want <= 0 || len(clips) < 2 {
		return 0, false
	}
	shortest := clips[0]
	for _, c := range clips[1:] {
		if c < shortest {
			shortest = c
		}
	}
	if shortest < minClip {
		return 0, false
	}
	limit := shortest * 2 / 5
	if want > limit {
		want = limit
	}
	if want <= 0 {
		return 0, false
	}
	return want, true
}

// gradeFilter is the subtle saturation lift applied when color grading is
// enabled.
const gradeFilter = "eq=saturation=1.08:brightness=0.01"

// escapeDrawtext escapes the characters the drawtext filter treats
// specially inside a text value.
func escapeDrawtext(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
		`%`, `\%`,
	)
	return r.Replace(s)
}

// watermarkExpr returns the drawtext x/y expressions for a named corner,
// using the filter's runtime text dimensions so the mark always lands fully
// in frame.
func watermarkExpr(pos string, margin int) (x, y string) {
	m := fmt.Sprintf("%d", margin)
	switch pos {
	case "top-left":
		return m, m
	case "top-right":
		return "w-tw-" + m, m
	case "top-center":
		return "(w-tw)/2", m
	case "bottom-left":
		return m, "h-th-" + m
	default: // bottom-right
		return "w-tw-" + m, "h-th-" + m
	}
}

// drawtextFilter builds the watermark filter for a short branding text.
func drawtextFilter(text, fontFile string, fontSize int, pos string, margin int) string {
	x, y := watermarkExpr(pos, margin)
	var b strings.Builder
	fmt.Fprintf(&b, "drawtext=text='%s'", escapeDrawtext(text))
	if fontFile != "" {
		fmt.Fprintf(&b, ":fontfile='%s'", fontFile)
	}
	fmt.Fprintf(&b, ":fontsize=%d:fontcolor=white@0.6:x=%s:y=%s", fontSize, x, y)
	return b.String()
}
