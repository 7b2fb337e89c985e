// SPDX-License-Identifier: MIT

// Package captions turns word-level alignment timestamps into positioned,
// timed text overlays. Captions are cosmetic: every failure path degrades to
// fewer overlays, never to a failed scene.
package captions

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelsmith/reelsmith/internal/config"
	"github.com/reelsmith/reelsmith/internal/log"
	"github.com/reelsmith/reelsmith/internal/media"
)

// Word is one aligned narration word as delivered by the speech-alignment
// collaborator.
type Word struct {
	Text  string
	Start time.Duration
	End   time.Duration
}

// Canvas is the target frame size overlays are positioned on.
type Canvas struct {
	Width  int
	Height int
}

// Engine lays out caption overlays according to the configured style.
type Engine struct {
	cfg    config.CaptionSettings
	logger zerolog.Logger
}

// NewEngine builds a caption engine from settings.
func NewEngine(cfg config.CaptionSettings) *Engine {
	return &Engine{cfg: cfg, logger: log.WithComponent("captions")}
}

// anchorFraction places captions at 75% of canvas height, clear of
// platform UI chrome at the bottom edge.
const anchorFraction = 0.75

// Layout produces the overlay set for one scene. Mode "karaoke" highlights
// the currently-spoken word; if the word list yields nothing, it falls back
// to a single static overlay built from the scene text, and failing that to
// no captions at all.
func (e *Engine) Layout(words []Word, sceneText string, sceneDur time.Duration, canvas Canvas) []*media.Node {
	mode := e.cfg.Mode
	if mode == "karaoke" {
		if overlays := e.Karaoke(words, canvas); len(overlays) > 0 {
			return overlays
		}
		e.logger.Warn().
			Str("event", "captions.karaoke_empty").
			Int("words", len(words)).
			Msg("karaoke layout produced no overlays, falling back to static")
	}
	if overlay := e.Static(sceneText, sceneDur, canvas); overlay != nil {
		return []*media.Node{overlay}
	}
	return nil
}

// Karaoke renders each line of up to WordsPerLine words for the span of every
// word in it, drawing the speaking word enlarged in the highlight color and
// its siblings in the base style. Each overlay covers exactly one word's
// [start, end) interval.
func (e *Engine) Karaoke(words []Word, canvas Canvas) []*media.Node {
	clean := sanitizeWords(words, e.logger)
	if len(clean) == 0 {
		return nil
	}

	baseStyle := media.TextStyle{
		FontFile:     e.cfg.FontFile,
		FontSize:     e.cfg.BaseSize,
		Color:        "white",
		OutlineColor: "black",
		OutlineWidth: 5,
	}
	hiStyle := media.TextStyle{
		FontFile:     e.cfg.FontFile,
		FontSize:     int(float64(e.cfg.BaseSize) * e.cfg.HighlightScale),
		Color:        e.cfg.HighlightColor,
		OutlineColor: "black",
		OutlineWidth: 6,
	}

	y := int(float64(canvas.Height) * anchorFraction)
	charW := estimateCharWidth(e.cfg.BaseSize)

	var overlays []*media.Node
	for _, line := range groupLines(clean, e.cfg.WordsPerLine) {
		xs := lineOffsets(line, canvas.Width, charW)
		for active, w := range line {
			span := w.End - w.Start
			for j, sibling := range line {
				style := baseStyle
				if j == active {
					style = hiStyle
				}
				node := media.NewText(sibling.Text, xs[j], y, w.Start, span, style)
				if media.Valid(node) {
					overlays = append(overlays, node)
				}
			}
		}
	}
	return overlays
}

// Static renders the whole scene text as one overlay for the full duration,
// wrapped to at most 90% of the canvas width.
func (e *Engine) Static(text string, d time.Duration, canvas Canvas) *media.Node {
	text = strings.TrimSpace(text)
	if text == "" || d <= 0 {
		return nil
	}

	maxWidth := int(float64(canvas.Width) * 0.9)
	charW := estimateCharWidth(e.cfg.BaseSize)
	wrapped := wrap(text, maxWidth/charW)

	style := media.TextStyle{
		FontFile:     e.cfg.FontFile,
		FontSize:     e.cfg.BaseSize,
		Color:        "white",
		OutlineColor: "black",
		OutlineWidth: 4,
	}
	node := media.NewText(wrapped, canvas.Width/2, int(float64(canvas.Height)*anchorFraction), 0, d, style)
	if !media.Valid(node) {
		return nil
	}
	return node
}

// sanitizeWords drops words violating the alignment contract (empty text,
// end <= start, start earlier than a predecessor) rather than failing the
// whole caption pass, then clamps each word's end to its successor's start
// so highlight windows never overlap.
func sanitizeWords(words []Word, logger zerolog.Logger) []Word {
	out := make([]Word, 0, len(words))
	var lastStart time.Duration
	for _, w := range words {
		w.Text = strings.TrimSpace(w.Text)
		if w.Text == "" || w.End <= w.Start || w.Start < lastStart {
			logger.Debug().
				Str("event", "captions.word_dropped").
				Str("word", w.Text).
				Dur("start", w.Start).
				Dur("end", w.End).
				Msg("dropping invalid alignment word")
			continue
		}
		lastStart = w.Start
		out = append(out, w)
	}

	clamped := out[:0]
	for i, w := range out {
		if i+1 < len(out) && w.End > out[i+1].Start {
			w.End = out[i+1].Start
		}
		if w.End <= w.Start {
			logger.Debug().
				Str("event", "captions.word_dropped").
				Str("word", w.Text).
				Dur("start", w.Start).
				Dur("end", w.End).
				Msg("dropping word emptied by overlap clamp")
			continue
		}
		clamped = append(clamped, w)
	}
	return clamped
}

func groupLines(words []Word, perLine int) [][]Word {
	if perLine <= 0 {
		perLine = 5
	}
	var lines [][]Word
	for len(words) > 0 {
		n := perLine
		if len(words) < n {
			n = len(words)
		}
		lines = append(lines, words[:n])
		words = words[n:]
	}
	return lines
}

// lineOffsets computes each word's x position: the line is centered on the
// canvas and words sit left-to-right by cumulative estimated width, clamped
// to the frame.
func lineOffsets(line []Word, canvasWidth, charW int) []int {
	total := 0
	for _, w := range line {
		total += (len(w.Text) + 1) * charW
	}
	x := (canvasWidth - total) / 2
	if x < 0 {
		x = 0
	}
	xs := make([]int, len(line))
	for i, w := range line {
		xs[i] = x
		x += (len(w.Text) + 1) * charW
	}
	return xs
}

func estimateCharWidth(fontSize int) int {
	w := int(float64(fontSize) * 0.6)
	if w < 1 {
		w = 1
	}
	return w
}

// wrap breaks text into lines of at most maxChars characters, breaking on
// spaces only.
func wrap(text string, maxChars int) string {
	if maxChars < 1 {
		return text
	}
	var b strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(text) {
		if i > 0 {
			if lineLen+1+len(word) > maxChars {
				b.WriteByte('\n')
				lineLen = 0
			} else {
				b.WriteByte(' ')
				lineLen++
			}
		}
		b.WriteString(word)
		lineLen += len(word)
	}
	return b.String()
}
