// SPDX-License-Identifier: MIT

// Package media models the clip tree handed to the native encode backend.
//
// A Node is a tagged union over raw file clips, generated fallbacks (silence,
// black frames), text overlays and composites. Composites can only be built
// through NewSequence/NewOverlay, which sanitize their children at insertion:
// an invalid child never becomes part of a tree, so downstream stages never
// re-check for nil.
package media

import (
	"time"
)

// Track identifies which output track a node contributes to.
type Track int

const (
	TrackVisual Track = iota
	TrackAudio
)

func (t Track) String() string {
	if t == TrackAudio {
		return "audio"
	}
	return "visual"
}

// Kind discriminates the node union.
type Kind int

const (
	KindRaw Kind = iota
	KindSequence
	KindOverlay
	KindSilence
	KindBlackFrame
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindSequence:
		return "sequence"
	case KindOverlay:
		return "overlay"
	case KindSilence:
		return "silence"
	case KindBlackFrame:
		return "blackframe"
	case KindText:
		return "text"
	}
	return "unknown"
}

// TextStyle describes how a text overlay is drawn.
type TextStyle struct {
	FontFile     string
	FontSize     int
	Color        string // e.g. "white", "#FFD700"
	OutlineColor string
	OutlineWidth int
}

// Node is one element of the clip tree. All fields are set at construction
// and never mutated afterwards.
type Node struct {
	Kind     Kind
	Track    Track
	Duration time.Duration

	// Start is the node's offset within its parent overlay; zero for
	// sequence children, which abut each other.
	Start time.Duration

	// Source is the media file path for KindRaw.
	Source string

	// Gain scales audio volume; 1.0 (or 0, meaning unset) is unity.
	Gain float64

	// Width/Height apply to visual nodes that carry intrinsic dimensions
	// (black frames, raw stills).
	Width  int
	Height int

	// Text/X/Y/Style apply to KindText.
	Text  string
	X     int
	Y     int
	Style TextStyle

	children []*Node
}

// Children returns the node's sanitized children. The returned slice must not
// be modified.
func (n *Node) Children() []*Node { return n.children }

// Valid reports whether a node satisfies the non-nil, positive-duration
// invariant for its kind. It does not recurse: composite children are
// guaranteed valid by construction.
func Valid(n *Node) bool {
	if n == nil || n.Duration <= 0 {
		return false
	}
	switch n.Kind {
	case KindRaw:
		return n.Source != ""
	case KindSequence, KindOverlay:
		return len(n.children) > 0
	case KindText:
		return n.Text != ""
	case KindSilence:
		return n.Track == TrackAudio
	case KindBlackFrame:
		return n.Track == TrackVisual && n.Width > 0 && n.Height > 0
	}
	return false
}

// NewRaw builds a leaf node backed by a media file.
func NewRaw(track Track, source string, d time.Duration) *Node {
	return &Node{Kind: KindRaw, Track: track, Source: source, Duration: d, Gain: 1.0}
}

// Silence builds the audio fallback node: d of silence.
func Silence(d time.Duration) *Node {
	return &Node{Kind: KindSilence, Track: TrackAudio, Duration: d}
}

// BlackFrame builds the visual fallback node: a solid frame of the given size.
func BlackFrame(w, h int, d time.Duration) *Node {
	return &Node{Kind: KindBlackFrame, Track: TrackVisual, Duration: d, Width: w, Height: h}
}

// NewText builds a timed text overlay positioned at (x, y) on the canvas.
func NewText(text string, x, y int, start, d time.Duration, style TextStyle) *Node {
	return &Node{
		Kind: KindText, Track: TrackVisual,
		Text: text, X: x, Y: y,
		Start: start, Duration: d,
		Style: style,
	}
}

// fallbackFor returns the 1-second emergency node for a track, sized for
// visual fallbacks from the first child that carries dimensions.
func fallbackFor(track Track, children []*Node) *Node {
	if track == TrackAudio {
		return Silence(time.Second)
	}
	w, h := 1080, 1920
	for _, c := range children {
		if c != nil && c.Width > 0 && c.Height > 0 {
			w, h = c.Width, c.Height
			break
		}
	}
	return BlackFrame(w, h, time.Second)
}
