// SPDX-License-Identifier: MIT

package overlayimg

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestNormalizeShrinksOversizedOverlay(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "logo.png")
	writeTestPNG(t, src, 800, 400)

	res, err := Normalize(src, 1080, 0.2, dir)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.Width != 216 {
		t.Errorf("width = %d, want 216 (20%% of 1080)", res.Width)
	}
	if res.Height != 108 {
		t.Errorf("height = %d, want 108 (aspect preserved)", res.Height)
	}
	if filepath.Ext(res.Path) != ".png" {
		t.Errorf("output not png: %s", res.Path)
	}
	if _, err := os.Stat(res.Path); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestNormalizeKeepsSmallOverlay(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "small.png")
	writeTestPNG(t, src, 100, 50)

	res, err := Normalize(src, 1080, 0.2, dir)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.Width != 100 || res.Height != 50 {
		t.Errorf("got %dx%d, want original 100x50", res.Width, res.Height)
	}
}

func TestNormalizeRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "junk.png")
	if err := os.WriteFile(src, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Normalize(src, 1080, 0.2, dir); err == nil {
		t.Error("garbage image accepted")
	}
	if _, err := Normalize(filepath.Join(dir, "absent.png"), 1080, 0.2, dir); err == nil {
		t.Error("missing file accepted")
	}
	if _, err := Normalize(src, 1080, 0, dir); err == nil {
		t.Error("zero fraction accepted")
	}
}

func TestPosition(t *testing.T) {
	const cw, ch, w, h, m = 1080, 1920, 200, 100, 24

	tests := []struct {
		pos          string
		wantX, wantY int
	}{
		{"bottom-right", 1080 - 200 - 24, 1920 - 100 - 24},
		{"bottom-left", 24, 1920 - 100 - 24},
		{"top-right", 1080 - 200 - 24, 24},
		{"top-left", 24, 24},
		{"top-center", (1080 - 200) / 2, 24},
		{"nonsense", 1080 - 200 - 24, 1920 - 100 - 24},
	}
	for _, tt := range tests {
		t.Run(tt.pos, func(t *testing.T) {
			x, y := Position(tt.pos, cw, ch, w, h, m)
			if x != tt.wantX || y != tt.wantY {
				t.Errorf("Position = (%d,%d), want (%d,%d)", x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestPositionClampsInFrame(t *testing.T) {
	// Overlay wider than the canvas still yields in-frame coordinates.
	x, y := Position("bottom-right", 100, 100, 300, 50, 24)
	if x < 0 || y < 0 {
		t.Errorf("coordinates out of frame: (%d,%d)", x, y)
	}
}
