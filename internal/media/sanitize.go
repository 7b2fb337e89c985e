// SPDX-License-Identifier: MIT

package media

import (
	"fmt"
	"time"
)

// NewSequence builds a composite whose children play back to back. Invalid
// children are dropped; if none survive, ErrInvalidMedia is returned (a
// sequence with nothing to play cannot be repaired by a fallback without
// inventing content, mirroring how concatenation has no safe default).
func NewSequence(track Track, children ...*Node) (*Node, error) {
	valid := filterValid(track, children)
	if len(valid) == 0 {
		return nil, fmt.Errorf("sequence on %s track: %w", track, ErrInvalidMedia)
	}
	var total time.Duration
	for _, c := range valid {
		total += c.Duration
	}
	return &Node{Kind: KindSequence, Track: track, Duration: total, children: valid}, nil
}

// NewOverlay builds a composite whose children are stacked: the first child
// is the base layer, later children render on top at their Start offsets.
// Invalid children are dropped while at least one valid sibling remains; an
// entirely invalid child set is replaced by the track's fallback (one second
// of silence, or a black frame) so an overlay boundary never yields nil.
func NewOverlay(track Track, d time.Duration, children ...*Node) (*Node, error) {
	if d <= 0 {
		return nil, fmt.Errorf("overlay duration %v: %w", d, ErrInvalidMedia)
	}
	valid := filterValid(track, children)
	if len(valid) == 0 {
		valid = []*Node{fallbackFor(track, children)}
	}
	return &Node{Kind: KindOverlay, Track: track, Duration: d, children: valid}, nil
}

func filterValid(track Track, children []*Node) []*Node {
	valid := make([]*Node, 0, len(children))
	for _, c := range children {
		if Valid(c) && c.Track == track {
			valid = append(valid, c)
		}
	}
	return valid
}

// Sanitize re-validates a whole tree. Construction already enforces the
// no-invalid-child invariant, so this is the belt-and-braces pass the
// renderer runs once before handing the tree to the encode backend.
func Sanitize(n *Node) (*Node, error) {
	if !Valid(n) {
		return nil, ErrInvalidMedia
	}
	for _, c := range n.children {
		if _, err := Sanitize(c); err != nil {
			return nil, fmt.Errorf("child of %s %s node: %w", n.Track, n.Kind, err)
		}
	}
	return n, nil
}

// Boundaries returns the cumulative start timestamps of a sequence's
// children: the points where one clip hands over to the next. Used for
// stinger and transition alignment.
func Boundaries(n *Node) []time.Duration {
	if n == nil || n.Kind != KindSequence || len(n.children) < 2 {
		return nil
	}
	out := make([]time.Duration, 0, len(n.children)-1)
	var at time.Duration
	for _, c := range n.children[:len(n.children)-1] {
		at += c.Duration
		out = append(out, at)
	}
	return out
}
