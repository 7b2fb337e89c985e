// SPDX-License-Identifier: MIT

// Package overlayimg prepares branding images for compositing. Oversized
// logos are scaled down against the canvas and re-encoded as PNG so the
// overlay filter always receives alpha-capable input of a sane size.
package overlayimg

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
)

// Result describes the normalized overlay written to disk.
type Result struct {
	Path   string
	Width  int
	Height int
}

// Normalize loads a branding image and scales it so its width is at most
// maxFrac of the canvas width, preserving aspect ratio. The result is
// written as PNG into destDir. Undecodable images are an error; callers
// skip branding rather than fail the render.
func Normalize(src string, canvasW int, maxFrac float64, destDir string) (Result, error) {
	if maxFrac <= 0 || maxFrac > 1 {
		return Result{}, fmt.Errorf("overlay width fraction %f", maxFrac)
	}

	f, err := os.Open(src)
	if err != nil {
		return Result{}, fmt.Errorf("open overlay: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return Result{}, fmt.Errorf("decode overlay %s: %w", src, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return Result{}, fmt.Errorf("overlay %s has empty bounds", src)
	}

	maxW := int(float64(canvasW) * maxFrac)
	if maxW < 1 {
		maxW = 1
	}
	if w > maxW {
		img = resize.Resize(uint(maxW), 0, img, resize.Lanczos3)
		bounds = img.Bounds()
		w, h = bounds.Dx(), bounds.Dy()
	}

	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	outPath := filepath.Join(destDir, base+"_overlay.png")
	out, err := os.Create(outPath)
	if err != nil {
		return Result{}, fmt.Errorf("write overlay: %w", err)
	}
	defer out.Close()

	if err := png.Encode(out, img); err != nil {
		os.Remove(outPath)
		return Result{}, fmt.Errorf("encode overlay: %w", err)
	}
	return Result{Path: outPath, Width: w, Height: h}, nil
}

// Position computes the top-left coordinate for an overlay of size w x h on
// the canvas, with a margin from the nearest edges. Unknown position names
// fall back to bottom-right. Coordinates are clamped in-frame.
func Position(pos string, canvasW, canvasH, w, h, margin int) (x, y int) {
	switch pos {
	case "top-left":
		x, y = margin, margin
	case "top-right":
		x, y = canvasW-w-margin, margin
	case "top-center":
		x, y = (canvasW-w)/2, margin
	case "bottom-left":
		x, y = margin, canvasH-h-margin
	default: // bottom-right
		x, y = canvasW-w-margin, canvasH-h-margin
	}
	if x < 0 {
		x = 0
	} else if x > canvasW-w {
		x = max(0, canvasW-w)
	}
	if y < 0 {
		y = 0
	} else if y > canvasH-h {
		y = max(0, canvasH-h)
	}
	return x, y
}
