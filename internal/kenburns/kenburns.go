// SPDX-License-Identifier: MIT

// Package kenburns synthesizes camera motion for still images: a slow
// ease-in-out zoom, plus a horizontal pan for markedly landscape sources.
// Planning is pure computation; the plan compiles to an ffmpeg filter chain
// that the renderer attaches to the scene's image input.
package kenburns

import (
	"fmt"
	"math"
	"time"
)

// Direction selects whether the zoom moves toward or away from the subject.
type Direction string

const (
	ZoomIn  Direction = "in"
	ZoomOut Direction = "out"
)

const (
	zoomNear = 1.10
	zoomFar  = 1.00

	// panAspect is the image aspect ratio above which a horizontal pan is
	// added alongside the zoom.
	panAspect = 1.3
)

// Plan holds the resolved geometry for animating one still image.
type Plan struct {
	ImageW, ImageH   int
	CanvasW, CanvasH int
	Duration         time.Duration
	Direction        Direction

	// ScaledW/ScaledH are the image dimensions after cover-scaling: the
	// shorter dimension exactly covers the canvas, the longer may crop.
	ScaledW, ScaledH   int
	ZoomStart, ZoomEnd float64
	PanEnabled         bool
}

// Window is the source-pixel region visible at one instant, in scaled-image
// coordinates. It always lies inside the scaled image bounds.
type Window struct {
	X, Y, W, H int
}

// NewPlan resolves the animation geometry. It fails only on degenerate
// inputs; callers fall back to a static crop-to-fill clip.
func NewPlan(imageW, imageH, canvasW, canvasH int, d time.Duration, dir Direction) (Plan, error) {
	if imageW <= 0 || imageH <= 0 {
		return Plan{}, fmt.Errorf("image dimensions %dx%d", imageW, imageH)
	}
	if canvasW <= 0 || canvasH <= 0 {
		return Plan{}, fmt.Errorf("canvas dimensions %dx%d", canvasW, canvasH)
	}
	if d <= 0 {
		return Plan{}, fmt.Errorf("duration %v", d)
	}

	imgAspect := float64(imageW) / float64(imageH)
	canvasAspect := float64(canvasW) / float64(canvasH)

	var scaledW, scaledH int
	if imgAspect > canvasAspect {
		// Wider than canvas: match height, crop width.
		scaledH = canvasH
		scaledW = int(math.Round(float64(imageW) * float64(canvasH) / float64(imageH)))
	} else {
		scaledW = canvasW
		scaledH = int(math.Round(float64(imageH) * float64(canvasW) / float64(imageW)))
	}

	p := Plan{
		ImageW: imageW, ImageH: imageH,
		CanvasW: canvasW, CanvasH: canvasH,
		Duration: d, Direction: dir,
		ScaledW: scaledW, ScaledH: scaledH,
		ZoomStart: zoomFar, ZoomEnd: zoomNear,
		PanEnabled: imgAspect > panAspect,
	}
	if dir == ZoomOut {
		p.ZoomStart, p.ZoomEnd = zoomNear, zoomFar
	}
	return p, nil
}

// ease maps linear progress to a smooth start/stop curve.
func ease(progress float64) float64 {
	if progress <= 0 {
		return 0
	}
	if progress >= 1 {
		return 1
	}
	return 0.5 * (1 - math.Cos(math.Pi*progress))
}

// ZoomAt returns the zoom factor at elapsed seconds.
func (p Plan) ZoomAt(elapsed float64) float64 {
	progress := elapsed / p.Duration.Seconds()
	return p.ZoomStart + (p.ZoomEnd-p.ZoomStart)*ease(progress)
}

// WindowAt returns the visible crop window at elapsed seconds. The window is
// the canvas divided by the current zoom, panned horizontally in sync with
// the ease curve when enabled, and clamped so it never exceeds the zoomed
// image bounds.
func (p Plan) WindowAt(elapsed float64) Window {
	z := p.ZoomAt(elapsed)
	w := int(math.Round(float64(p.CanvasW) / z))
	h := int(math.Round(float64(p.CanvasH) / z))
	if w > p.ScaledW {
		w = p.ScaledW
	}
	if h > p.ScaledH {
		h = p.ScaledH
	}

	maxX := p.ScaledW - w
	maxY := p.ScaledH - h

	var x int
	if p.PanEnabled {
		progress := ease(elapsed / p.Duration.Seconds())
		x = int(math.Round(float64(maxX) * progress))
	} else {
		x = maxX / 2
	}
	y := maxY / 2

	if x < 0 {
		x = 0
	} else if x > maxX {
		x = maxX
	}
	if y < 0 {
		y = 0
	}
	return Window{X: x, Y: y, W: w, H: h}
}

// Filter compiles the plan into an ffmpeg filter chain for a looped still
// input: cover-scale, zoompan with the eased zoom/pan expressions, then the
// exact output size and frame rate.
func (p Plan) Filter(fps int) string {
	frames := int(math.Round(p.Duration.Seconds() * float64(fps)))
	if frames < 1 {
		frames = 1
	}
	progress := fmt.Sprintf("(0.5*(1-cos(PI*on/%d)))", frames)
	zoom := fmt.Sprintf("%.4f+(%.4f)*%s", p.ZoomStart, p.ZoomEnd-p.ZoomStart, progress)

	x := "(iw-iw/zoom)/2"
	if p.PanEnabled {
		x = fmt.Sprintf("(iw-iw/zoom)*%s", progress)
	}

	return fmt.Sprintf(
		"scale=%d:%d,zoompan=z='%s':x='%s':y='(ih-ih/zoom)/2':d=%d:s=%dx%d:fps=%d",
		p.ScaledW, p.ScaledH, zoom, x, frames, p.CanvasW, p.CanvasH, fps,
	)
}

// StaticCoverFilter is the non-animated fallback: cover-scale and
// center-crop to the exact canvas size.
func StaticCoverFilter(canvasW, canvasH, fps int) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,fps=%d",
		canvasW, canvasH, canvasW, canvasH, fps,
	)
}
