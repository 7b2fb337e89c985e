// SPDX-License-Identifier: MIT

// Package scene turns script scenes into composable clip plans. The probed
// narration length is the scene's authoritative duration: stills are
// animated across exactly that window, videos are trimmed to at most it,
// and captions are laid out against it. A scene missing its narration or
// its visual is dropped with a warning; the job only fails when no scene
// survives.
package scene

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/reelsmith/reelsmith/internal/audiomix"
	"github.com/reelsmith/reelsmith/internal/captions"
	"github.com/reelsmith/reelsmith/internal/config"
	"github.com/reelsmith/reelsmith/internal/ffmpeg"
	"github.com/reelsmith/reelsmith/internal/kenburns"
	"github.com/reelsmith/reelsmith/internal/log"
	"github.com/reelsmith/reelsmith/internal/media"
)

// Input is one scene from the script: a narration clip, an optional visual
// (still image or video) and the caption material.
type Input struct {
	Narration string
	Visual    string
	Text      string
	Words     []captions.Word

	// Tag labels the scene's narrative role (hook, body, twist). It is
	// carried for logging and has no effect on assembly.
	Tag string
}

// VisualKind discriminates how a scene's visual window is filled.
type VisualKind int

const (
	VisualVideo VisualKind = iota
	VisualImage
)

func (k VisualKind) String() string {
	if k == VisualImage {
		return "image"
	}
	return "video"
}

// VisualPlan describes the visual fill for one scene window.
type VisualPlan struct {
	Kind   VisualKind
	Source string

	// Filter is the compiled ffmpeg video filter chain for this input.
	Filter string

	// Trim is how much of the source is used: the full scene window for
	// stills, min(window, source length) for videos. A video shorter than
	// its window contributes only its own length; covering the shortfall
	// is the master renderer's sequence-loop concern, never per-clip.
	Trim time.Duration

	KenBurns *kenburns.Plan
}

// Assembly is one assembled scene: the duration window, the visual plan and
// the sanitized clip nodes for both tracks.
type Assembly struct {
	Index    int
	Duration time.Duration
	Visual   VisualPlan

	// Audio is the narration leaf.
	Audio *media.Node

	// AudioOffset is where playback starts inside the narration file after
	// silence trimming; zero when trimming is off or found nothing.
	AudioOffset time.Duration

	// Node is the visual composite (base layer plus caption overlays).
	// Its duration is the visual contribution (Visual.Trim), which for a
	// short video source is less than the narration window.
	Node *media.Node
}

// Prober abstracts media inspection so assembly is testable without ffprobe.
type Prober interface {
	Probe(ctx context.Context, path string) (ffmpeg.Info, error)
}

// SilenceDetector is optionally implemented by probers that can locate
// silent spans in an audio file.
type SilenceDetector interface {
	DetectSilence(ctx context.Context, path string, noiseDB float64, minDuration time.Duration) ([]ffmpeg.SilenceSegment, error)
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".bmp": true,
}

func isImage(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// Assembler assembles scenes concurrently against a shared prober.
type Assembler struct {
	render   config.RenderSettings
	captions *captions.Engine
	prober   Prober
	logger   zerolog.Logger
	workers  int
	audio    *config.AudioSettings
}

// EnableSilenceTrim trims leading and trailing dead air from narration
// clips before their length becomes the scene window. Requires the prober
// to implement SilenceDetector; detection failures leave clips untouched.
func (a *Assembler) EnableSilenceTrim(cfg config.AudioSettings) {
	a.audio = &cfg
}

func NewAssembler(render config.RenderSettings, capCfg config.CaptionSettings, prober Prober, workers int) *Assembler {
	if workers < 1 {
		workers = 4
	}
	return &Assembler{
		render:   render,
		captions: captions.NewEngine(capCfg),
		prober:   prober,
		logger:   log.WithComponent("scene"),
		workers:  workers,
	}
}

// Assemble processes all scenes with bounded concurrency and returns the
// survivors in script order. Dropped scenes are reported as *media.SceneError
// warnings; only an empty result fails, with media.ErrNoValidScenes.
func (a *Assembler) Assemble(ctx context.Context, scenes []Input) ([]Assembly, []error, error) {
	if len(scenes) == 0 {
		return nil, nil, media.ErrNoValidScenes
	}

	slots := make([]*Assembly, len(scenes))
	errs := make([]error, len(scenes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, in := range scenes {
		i, in := i, in
		g.Go(func() error {
			asm, err := a.assembleOne(gctx, i, in)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				errs[i] = &media.SceneError{Index: i, Err: err}
				return nil
			}
			slots[i] = &asm
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var out []Assembly
	var warnings []error
	for i := range slots {
		if errs[i] != nil {
			a.logger.Warn().Err(errs[i]).Int("scene", i).Str("event", "scene.dropped").Msg("scene dropped")
			warnings = append(warnings, errs[i])
			continue
		}
		out = append(out, *slots[i])
	}
	if len(out) == 0 {
		return nil, warnings, fmt.Errorf("%d scenes: %w", len(scenes), media.ErrNoValidScenes)
	}
	return out, warnings, nil
}

// assembleOne builds one scene. Missing or unreadable narration and visual
// assets are unrecoverable here: the scene is dropped and the job carries on
// with the survivors. Repairing individual composite children is the
// sanitizer's job, not swapping in whole-scene stand-ins.
func (a *Assembler) assembleOne(ctx context.Context, index int, in Input) (Assembly, error) {
	asm := Assembly{Index: index}
	logger := log.WithContext(ctx, a.logger)

	// Narration first: its probed length is the scene window and its
	// absence removes the scene's slice of the master clock entirely.
	if in.Narration == "" {
		return Assembly{}, fmt.Errorf("no narration: %w", media.ErrMissingAsset)
	}
	info, err := a.prober.Probe(ctx, in.Narration)
	if err != nil {
		return Assembly{}, fmt.Errorf("probe narration: %w", err)
	}
	if info.Duration <= 0 || !info.HasAudio {
		return Assembly{}, fmt.Errorf("narration %s has no audio: %w", in.Narration, media.ErrInvalidMedia)
	}
	window, offset := a.trimSilence(ctx, in.Narration, info.Duration)
	asm.Duration = window
	asm.AudioOffset = offset
	asm.Audio = media.NewRaw(media.TrackAudio, in.Narration, window)

	base, plan, err := a.planVisual(ctx, index, in.Visual, window)
	if err != nil {
		return Assembly{}, err
	}
	asm.Visual = plan

	canvas := captions.Canvas{Width: a.render.Width, Height: a.render.Height}
	layers := append([]*media.Node{base}, a.captions.Layout(in.Words, in.Text, window, canvas)...)

	node, err := media.NewOverlay(media.TrackVisual, base.Duration, layers...)
	if err != nil {
		return Assembly{}, err
	}
	asm.Node = node

	logger.Debug().
		Int("scene", index).
		Str("tag", in.Tag).
		Dur("duration", asm.Duration).
		Dur("visual_duration", node.Duration).
		Str("visual", plan.Kind.String()).
		Int("captions", len(layers)-1).
		Str("event", "scene.assembled").
		Msg("scene assembled")
	return asm, nil
}

// trimSilence shrinks the scene window to the narration's voiced span.
// Interior pauses are preserved; only the clip edges move.
func (a *Assembler) trimSilence(ctx context.Context, path string, clip time.Duration) (window, offset time.Duration) {
	if a.audio == nil || !a.audio.TrimSilence {
		return clip, 0
	}
	det, ok := a.prober.(SilenceDetector)
	if !ok {
		return clip, 0
	}
	segs, err := det.DetectSilence(ctx, path, a.audio.SilenceThresholdDB, 300*time.Millisecond)
	if err != nil {
		logger := log.WithContext(ctx, a.logger)
		logger.Debug().Err(err).Str("path", path).Msg("silence detection failed, keeping full clip")
		return clip, 0
	}
	start, end := audiomix.TrimBounds(clip, segs, 100*time.Millisecond)
	if start == 0 && end == clip {
		return clip, 0
	}
	a.logger.Debug().
		Str("path", path).
		Dur("trimmed_start", start).
		Dur("trimmed_end", clip-end).
		Msg("narration silence trimmed")
	return end - start, start
}

// planVisual resolves the scene's visual source into a fill plan and the
// base clip node.
func (a *Assembler) planVisual(ctx context.Context, index int, source string, window time.Duration) (*media.Node, VisualPlan, error) {
	if source == "" {
		return nil, VisualPlan{}, fmt.Errorf("no visual: %w", media.ErrMissingAsset)
	}

	info, err := a.prober.Probe(ctx, source)
	if err != nil {
		return nil, VisualPlan{}, fmt.Errorf("probe visual: %w", err)
	}

	if isImage(source) {
		return a.planImage(index, source, info, window)
	}

	if !info.HasVideo || info.Duration <= 0 {
		return nil, VisualPlan{}, fmt.Errorf("visual %s has no video stream: %w", source, media.ErrInvalidMedia)
	}
	// Never stretch or slow a short source; its full length plays and the
	// master renderer loops the whole sequence over any remaining gap.
	trim := info.Duration
	if trim > window {
		trim = window
	}
	node := media.NewRaw(media.TrackVisual, source, trim)
	node.Width, node.Height = info.Width, info.Height
	plan := VisualPlan{
		Kind:   VisualVideo,
		Source: source,
		Filter: kenburns.StaticCoverFilter(a.render.Width, a.render.Height, a.render.FPS),
		Trim:   trim,
	}
	return node, plan, nil
}

func (a *Assembler) planImage(index int, source string, info ffmpeg.Info, window time.Duration) (*media.Node, VisualPlan, error) {
	plan := VisualPlan{Kind: VisualImage, Source: source, Trim: window}

	// Alternate zoom direction across scenes so consecutive stills don't
	// move identically.
	dir := kenburns.ZoomIn
	if index%2 == 1 {
		dir = kenburns.ZoomOut
	}

	kb, err := kenburns.NewPlan(info.Width, info.Height, a.render.Width, a.render.Height, window, dir)
	if err != nil {
		// Unprobeable dimensions: show the still without motion.
		plan.Filter = kenburns.StaticCoverFilter(a.render.Width, a.render.Height, a.render.FPS)
	} else {
		plan.KenBurns = &kb
		plan.Filter = kb.Filter(a.render.FPS)
	}

	node := media.NewRaw(media.TrackVisual, source, window)
	node.Width, node.Height = info.Width, info.Height
	return node, plan, nil
}
