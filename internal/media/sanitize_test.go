// SPDX-License-Identifier: MIT

package media

import (
	"errors"
	"testing"
	"time"
)

func TestNewSequenceFiltersInvalidChildren(t *testing.T) {
	a := NewRaw(TrackVisual, "a.mp4", 2*time.Second)
	bad := NewRaw(TrackVisual, "b.mp4", 0) // zero duration
	c := NewRaw(TrackVisual, "c.mp4", 3*time.Second)

	seq, err := NewSequence(TrackVisual, a, nil, bad, c)
	if err != nil {
		t.Fatalf("NewSequence: %v", err)
	}
	if got := len(seq.Children()); got != 2 {
		t.Fatalf("children = %d, want 2", got)
	}
	if seq.Duration != 5*time.Second {
		t.Errorf("duration = %v, want 5s", seq.Duration)
	}
}

func TestNewSequenceAllInvalid(t *testing.T) {
	_, err := NewSequence(TrackVisual, nil, NewRaw(TrackVisual, "", time.Second))
	if !errors.Is(err, ErrInvalidMedia) {
		t.Fatalf("err = %v, want ErrInvalidMedia", err)
	}
}

func TestNewSequenceRejectsWrongTrack(t *testing.T) {
	audio := NewRaw(TrackAudio, "a.mp3", time.Second)
	_, err := NewSequence(TrackVisual, audio)
	if !errors.Is(err, ErrInvalidMedia) {
		t.Fatalf("audio child on visual sequence accepted: %v", err)
	}
}

func TestNewOverlayFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		track    Track
		wantKind Kind
	}{
		{"visual overlay degrades to black frame", TrackVisual, KindBlackFrame},
		{"audio overlay degrades to silence", TrackAudio, KindSilence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ov, err := NewOverlay(tt.track, 2*time.Second, nil, nil)
			if err != nil {
				t.Fatalf("NewOverlay: %v", err)
			}
			kids := ov.Children()
			if len(kids) != 1 {
				t.Fatalf("children = %d, want 1 fallback", len(kids))
			}
			if kids[0].Kind != tt.wantKind {
				t.Errorf("fallback kind = %s, want %s", kids[0].Kind, tt.wantKind)
			}
			if kids[0].Duration != time.Second {
				t.Errorf("fallback duration = %v, want 1s", kids[0].Duration)
			}
		})
	}
}

func TestNewOverlayKeepsValidChildren(t *testing.T) {
	base := NewRaw(TrackVisual, "base.mp4", 4*time.Second)
	text := NewText("hi", 10, 10, time.Second, time.Second, TextStyle{FontSize: 80})
	ov, err := NewOverlay(TrackVisual, 4*time.Second, base, nil, text)
	if err != nil {
		t.Fatalf("NewOverlay: %v", err)
	}
	if len(ov.Children()) != 2 {
		t.Fatalf("children = %d, want 2", len(ov.Children()))
	}
	if ov.Duration != 4*time.Second {
		t.Errorf("duration = %v, want 4s", ov.Duration)
	}
}

func TestSanitizeAcceptsConstructedTrees(t *testing.T) {
	base := NewRaw(TrackVisual, "base.mp4", 4*time.Second)
	ov, err := NewOverlay(TrackVisual, 4*time.Second, base)
	if err != nil {
		t.Fatalf("NewOverlay: %v", err)
	}
	seq, err := NewSequence(TrackVisual, ov, NewRaw(TrackVisual, "b.mp4", time.Second))
	if err != nil {
		t.Fatalf("NewSequence: %v", err)
	}
	if _, err := Sanitize(seq); err != nil {
		t.Fatalf("Sanitize rejected a constructed tree: %v", err)
	}
}

func TestSanitizeRejectsNil(t *testing.T) {
	if _, err := Sanitize(nil); !errors.Is(err, ErrInvalidMedia) {
		t.Fatalf("err = %v, want ErrInvalidMedia", err)
	}
}

func TestBoundaries(t *testing.T) {
	seq, err := NewSequence(TrackVisual,
		NewRaw(TrackVisual, "a.mp4", 4*time.Second),
		NewRaw(TrackVisual, "b.mp4", 5*time.Second),
		NewRaw(TrackVisual, "c.mp4", 3*time.Second),
	)
	if err != nil {
		t.Fatalf("NewSequence: %v", err)
	}
	got := Boundaries(seq)
	want := []time.Duration{4 * time.Second, 9 * time.Second}
	if len(got) != len(want) {
		t.Fatalf("boundaries = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("boundary[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSceneErrorUnwrap(t *testing.T) {
	err := &SceneError{Index: 1, Err: ErrMissingAsset}
	if !errors.Is(err, ErrMissingAsset) {
		t.Fatal("SceneError should unwrap to its cause")
	}
	if err.Error() != "scene 1 failed: missing asset" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}
