// SPDX-License-Identifier: MIT

// Package render drives a whole job: scenes are assembled into clip plans,
// the narration track is concatenated into the master clock, visuals are
// looped and trimmed to that clock, music and stingers are mixed in, and
// the result is encoded in a single final pass.
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/reelsmith/reelsmith/internal/assets"
	"github.com/reelsmith/reelsmith/internal/audiomix"
	"github.com/reelsmith/reelsmith/internal/config"
	"github.com/reelsmith/reelsmith/internal/ffmpeg"
	"github.com/reelsmith/reelsmith/internal/log"
	"github.com/reelsmith/reelsmith/internal/media"
	"github.com/reelsmith/reelsmith/internal/overlayimg"
	"github.com/reelsmith/reelsmith/internal/scene"
)

// Backend is the slice of the media executor the renderer needs. The
// production implementation is *ffmpeg.Executor.
type Backend interface {
	Probe(ctx context.Context, path string) (ffmpeg.Info, error)
	Run(ctx context.Context, args []string, onProgress ffmpeg.ProgressFunc) error
	Concat(ctx context.Context, opts ffmpeg.ConcatOptions) error
	DetectSilence(ctx context.Context, path string, noiseDB float64, minDuration time.Duration) ([]ffmpeg.SilenceSegment, error)
}

// Job is one render request.
type Job struct {
	ID     string
	Style  string
	Scenes []scene.Input

	// MusicPath overrides style-based music selection when set.
	MusicPath string

	OutputPath string
}

// Artifact describes the finished master file.
type Artifact struct {
	Path     string
	Duration time.Duration
	Width    int
	Height   int
	Warnings []string
}

// Renderer renders jobs sequentially. It is safe for concurrent use as long
// as jobs use distinct IDs, which namespace the scratch directory.
type Renderer struct {
	cfg       config.FileConfig
	backend   Backend
	assembler *scene.Assembler
	library   *assets.Library
	workDir   string
	logger    zerolog.Logger

	// OnState, when set, observes every job state transition.
	OnState func(jobID string, s State)
}

func New(cfg config.FileConfig, backend Backend, library *assets.Library, workDir string) *Renderer {
	assembler := scene.NewAssembler(cfg.Render, cfg.Captions, backend, cfg.FFmpeg.Threads)
	if cfg.Audio.TrimSilence {
		assembler.EnableSilenceTrim(cfg.Audio)
	}
	return &Renderer{
		cfg:       cfg,
		backend:   backend,
		assembler: assembler,
		library:   library,
		workDir:   workDir,
		logger:    log.WithComponent("render"),
	}
}

// Render runs one job to completion.
func (r *Renderer) Render(ctx context.Context, job Job) (Artifact, error) {
	ctx = log.ContextWithJobID(ctx, job.ID)
	logger := log.WithContext(ctx, r.logger)
	tracker := NewTracker(func(s State) {
		logger.Info().Str("state", s.String()).Str("event", "job.state").Msg("job state changed")
		if r.OnState != nil {
			r.OnState(job.ID, s)
		}
	})

	art, err := r.render(ctx, job, tracker, logger)
	if err != nil {
		_ = tracker.To(StateFailed)
		logger.Error().Err(err).Str("event", "job.failed").Msg("render failed")
		return Artifact{}, err
	}
	return art, nil
}

func (r *Renderer) render(ctx context.Context, job Job, tracker *Tracker, logger zerolog.Logger) (Artifact, error) {
	if job.OutputPath == "" {
		return Artifact{}, fmt.Errorf("job %s: empty output path", job.ID)
	}

	if err := tracker.To(StateAssembling); err != nil {
		return Artifact{}, err
	}
	assemblies, dropped, err := r.assembler.Assemble(ctx, job.Scenes)
	if err != nil {
		return Artifact{}, err
	}

	var warnings []string
	for _, d := range dropped {
		warnings = append(warnings, d.Error())
	}

	audioNodes := make([]*media.Node, 0, len(assemblies))
	visualNodes := make([]*media.Node, 0, len(assemblies))
	for _, asm := range assemblies {
		audioNodes = append(audioNodes, asm.Audio)
		visualNodes = append(visualNodes, asm.Node)
	}
	audioSeq, err := media.NewSequence(media.TrackAudio, audioNodes...)
	if err != nil {
		return Artifact{}, fmt.Errorf("narration sequence: %w", err)
	}
	visualSeq, err := media.NewSequence(media.TrackVisual, visualNodes...)
	if err != nil {
		return Artifact{}, fmt.Errorf("visual sequence: %w", err)
	}
	// Last line of defense before anything is handed to the encoder.
	if _, err := media.Sanitize(audioSeq); err != nil {
		return Artifact{}, err
	}
	if _, err := media.Sanitize(visualSeq); err != nil {
		return Artifact{}, err
	}

	master := audioSeq.Duration
	clipDurs := make([]time.Duration, len(assemblies))
	for i, asm := range assemblies {
		// The visual contribution, not the narration window: a short
		// video yields a short clip.
		clipDurs[i] = asm.Node.Duration
	}
	fade, fadeOK := PlanCrossfade(clipDurs, secondsDur(r.cfg.Render.CrossfadeSeconds), secondsDur(r.cfg.Render.MinClipSeconds))

	seqDur := visualSeq.Duration
	if fadeOK {
		seqDur -= fade * time.Duration(len(assemblies)-1)
	}
	sched, err := PlanVisuals(seqDur, master, r.cfg.Render.FPS)
	if err != nil {
		return Artifact{}, err
	}
	if sched.Drift > r.cfg.Render.DriftThreshold {
		msg := fmt.Sprintf("visuals drift %.1f%% from narration clock, reconciling", sched.Drift*100)
		logger.Warn().Float64("drift", sched.Drift).Str("event", "job.drift").Msg(msg)
		warnings = append(warnings, msg)
	}

	if err := tracker.To(StateMixing); err != nil {
		return Artifact{}, err
	}
	// Ducking only makes sense under spoken narration; without any, the
	// music plays at full gain.
	gain := r.cfg.Audio.MusicGain
	if !hasNarration(assemblies) {
		gain = r.cfg.Audio.FullGain
	}
	musicPlan, musicWarnings := r.planMusic(ctx, job, master, gain)
	warnings = append(warnings, musicWarnings...)

	var stingers []time.Duration
	var stingerPath string
	if r.cfg.Audio.Stingers {
		// Transition sounds live with the channel's branding kit.
		if path, ok := r.library.Branding(job.Style, "stinger.mp3"); ok {
			stingerPath = path
			stingers = audiomix.PlanStingers(media.Boundaries(audioSeq), master, time.Second)
		}
	}

	if err := tracker.To(StateRendering); err != nil {
		return Artifact{}, err
	}
	dir := filepath.Join(r.workDir, job.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	narrationPath, err := r.renderNarration(ctx, assemblies, dir)
	if err != nil {
		return Artifact{}, err
	}
	visualPath, err := r.renderVisuals(ctx, assemblies, sched, fade, fadeOK, dir)
	if err != nil {
		return Artifact{}, err
	}

	brand, brandWarnings := r.prepareBranding(job.Style, dir)
	warnings = append(warnings, brandWarnings...)

	intro, outro, bookendDur, bookendWarnings := r.prepareBookends(ctx, job.Style, dir)
	warnings = append(warnings, bookendWarnings...)

	bodyPath := job.OutputPath
	if intro != "" || outro != "" {
		bodyPath = filepath.Join(dir, "body.mp4")
	}

	args := r.finalArgs(bodyPath, visualPath, narrationPath, musicPlan, stingerPath, stingers, brand, master)
	if err := r.backend.Run(ctx, args, func(p ffmpeg.Progress) {
		logger.Debug().Int("frame", p.Frame).Str("speed", p.Speed).Msg("encoding")
	}); err != nil {
		return Artifact{}, fmt.Errorf("final encode: %w: %v", media.ErrEncodeFailed, err)
	}

	if bodyPath != job.OutputPath {
		inputs := make([]string, 0, 3)
		if intro != "" {
			inputs = append(inputs, intro)
		}
		inputs = append(inputs, bodyPath)
		if outro != "" {
			inputs = append(inputs, outro)
		}
		err := r.backend.Concat(ctx, ffmpeg.ConcatOptions{
			Inputs:     inputs,
			Output:     job.OutputPath,
			Reencode:   true,
			VideoCodec: r.cfg.Render.VideoCodec,
			AudioCodec: r.cfg.Render.AudioCodec,
		})
		if err != nil {
			return Artifact{}, fmt.Errorf("branding concat: %w: %v", media.ErrEncodeFailed, err)
		}
	}

	expected := master + bookendDur
	art := Artifact{Path: job.OutputPath, Warnings: warnings}
	if info, err := r.backend.Probe(ctx, job.OutputPath); err == nil {
		art.Duration = info.Duration
		art.Width = info.Width
		art.Height = info.Height
		if delta := absDur(info.Duration - expected); delta > 2*sched.Epsilon {
			art.Warnings = append(art.Warnings,
				fmt.Sprintf("output duration %v deviates from narration clock %v", info.Duration, expected))
		}
	} else {
		art.Duration = expected
		art.Width = r.cfg.Render.Width
		art.Height = r.cfg.Render.Height
	}

	if err := tracker.To(StateSucceeded); err != nil {
		return Artifact{}, err
	}
	logger.Info().
		Str("output", art.Path).
		Dur("duration", art.Duration).
		Int("scenes", len(assemblies)).
		Str("event", "job.succeeded").
		Msg("render complete")
	return art, nil
}

func hasNarration(assemblies []scene.Assembly) bool {
	for _, asm := range assemblies {
		if asm.Audio != nil && asm.Audio.Kind == media.KindRaw {
			return true
		}
	}
	return false
}

// planMusic resolves and schedules background music; any failure degrades
// to a music-less render.
func (r *Renderer) planMusic(ctx context.Context, job Job, master time.Duration, gain float64) (*audiomix.MusicPlan, []string) {
	path := job.MusicPath
	if path == "" {
		if found, ok := r.library.Music(job.Style); ok {
			path = found
		}
	}
	if path == "" {
		return nil, nil
	}

	info, err := r.backend.Probe(ctx, path)
	if err != nil || info.Duration <= 0 {
		return nil, []string{fmt.Sprintf("music %s unusable, rendering without music", filepath.Base(path))}
	}
	plan, err := audiomix.PlanMusic(path, info.Duration, master, gain)
	if err != nil {
		return nil, []string{fmt.Sprintf("music planning failed: %v", err)}
	}
	return &plan, nil
}

// prepareBranding normalizes the branding overlay; a broken asset skips
// branding instead of failing the job.
func (r *Renderer) prepareBranding(style, dir string) (*overlayimg.Result, []string) {
	if !r.cfg.Render.Branding {
		return nil, nil
	}
	path, ok := r.library.Branding(style, "watermark.png")
	if !ok {
		return nil, []string{"branding enabled but no watermark asset found"}
	}
	res, err := overlayimg.Normalize(path, r.cfg.Render.Width, 0.2, dir)
	if err != nil {
		return nil, []string{fmt.Sprintf("branding asset unusable, skipping: %v", err)}
	}
	return &res, nil
}

// prepareBookends resolves and normalizes the branding intro/outro clips to
// the job's resolution and frame rate. Every failure skips the asset with a
// warning; bookends never fail the job.
func (r *Renderer) prepareBookends(ctx context.Context, style, dir string) (intro, outro string, total time.Duration, warnings []string) {
	if !r.cfg.Render.Branding {
		return "", "", 0, nil
	}
	for _, name := range []string{"intro.mp4", "outro.mp4"} {
		src, ok := r.library.Branding(style, name)
		if !ok {
			continue
		}
		out, d, err := r.normalizeBookend(ctx, src, filepath.Join(dir, name))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("branding clip %s unusable, skipping: %v", name, err))
			continue
		}
		total += d
		if name == "intro.mp4" {
			intro = out
		} else {
			outro = out
		}
	}
	return intro, outro, total, warnings
}

// normalizeBookend re-encodes a branding clip to the main body's canvas and
// frame rate so the concat demuxer can join them. Clips without an audio
// stream get silence so stream layouts line up.
func (r *Renderer) normalizeBookend(ctx context.Context, src, out string) (string, time.Duration, error) {
	info, err := r.backend.Probe(ctx, src)
	if err != nil {
		return "", 0, err
	}
	if !info.HasVideo || info.Duration <= 0 {
		return "", 0, fmt.Errorf("no video stream in %s", filepath.Base(src))
	}

	args := []string{"-i", src}
	if !info.HasAudio {
		args = append(args, "-f", "lavfi", "-i", "anullsrc=r=44100:cl=stereo")
	}
	args = append(args,
		"-vf", fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,fps=%d",
			r.cfg.Render.Width, r.cfg.Render.Height, r.cfg.Render.Width, r.cfg.Render.Height, r.cfg.Render.FPS),
	)
	if !info.HasAudio {
		args = append(args, "-map", "0:v", "-map", "1:a", "-shortest")
	}
	args = append(args,
		"-r", fmt.Sprintf("%d", r.cfg.Render.FPS),
		"-c:v", r.cfg.Render.VideoCodec,
		"-preset", r.cfg.Render.Preset,
		"-c:a", r.cfg.Render.AudioCodec,
		"-ar", "44100",
		"-pix_fmt", "yuv420p",
		out,
	)
	if err := r.backend.Run(ctx, args, nil); err != nil {
		return "", 0, err
	}
	return out, info.Duration, nil
}

// renderNarration encodes each scene's audio window and concatenates them
// into the master narration track. Narration is the clock, so any failure
// here fails the job.
func (r *Renderer) renderNarration(ctx context.Context, assemblies []scene.Assembly, dir string) (string, error) {
	paths := make([]string, len(assemblies))
	for i, asm := range assemblies {
		out := filepath.Join(dir, fmt.Sprintf("narration_%03d.m4a", i))
		if err := r.backend.Run(ctx, sceneAudioArgs(asm, out), nil); err != nil {
			return "", fmt.Errorf("narration clip %d: %w: %v", asm.Index, media.ErrEncodeFailed, err)
		}
		paths[i] = out
	}

	out := filepath.Join(dir, "narration.m4a")
	if err := r.backend.Concat(ctx, ffmpeg.ConcatOptions{Inputs: paths, Output: out}); err != nil {
		return "", fmt.Errorf("narration concat: %w: %v", media.ErrEncodeFailed, err)
	}
	return out, nil
}

// renderVisuals encodes each scene's silent video clip, then joins the
// clips with the whole sequence repeated per the schedule. The final trim
// to the master clock happens in the last encode pass.
func (r *Renderer) renderVisuals(ctx context.Context, assemblies []scene.Assembly, sched VisualSchedule, fade time.Duration, fadeOK bool, dir string) (string, error) {
	paths := make([]string, len(assemblies))
	for i, asm := range assemblies {
		out := filepath.Join(dir, fmt.Sprintf("clip_%03d.mp4", i))
		if err := r.backend.Run(ctx, r.sceneVideoArgs(asm, out), nil); err != nil {
			return "", fmt.Errorf("scene clip %d: %w: %v", asm.Index, media.ErrEncodeFailed, err)
		}
		paths[i] = out
	}

	repeats := sched.ExtraLoops + 1
	if fadeOK && sched.ExtraLoops > 0 {
		// Loop seams fade into each other too, shortening coverage; one
		// spare repeat keeps the tail ahead of the master clock.
		repeats++
	}
	var looped []string
	for i := 0; i < repeats; i++ {
		looped = append(looped, paths...)
	}

	out := filepath.Join(dir, "visuals.mp4")
	if fadeOK && len(looped) > 1 {
		if err := r.backend.Run(ctx, r.crossfadeArgs(looped, assemblies, fade, out), nil); err != nil {
			return "", fmt.Errorf("visual crossfade: %w: %v", media.ErrEncodeFailed, err)
		}
		return out, nil
	}
	if err := r.backend.Concat(ctx, ffmpeg.ConcatOptions{Inputs: looped, Output: out}); err != nil {
		return "", fmt.Errorf("visual concat: %w: %v", media.ErrEncodeFailed, err)
	}
	return out, nil
}

// sceneVideoArgs builds the encode command for one silent scene clip:
// the visual fill plus all caption overlays. Stills run the full scene
// window; videos run their trimmed length, which may be shorter.
func (r *Renderer) sceneVideoArgs(asm scene.Assembly, out string) []string {
	secs := fmt.Sprintf("%.3f", asm.Node.Duration.Seconds())
	var args []string

	if asm.Visual.Kind == scene.VisualImage {
		args = append(args, "-loop", "1")
	}
	args = append(args, "-i", asm.Visual.Source, "-t", secs)

	filters := []string{}
	if asm.Visual.Filter != "" {
		filters = append(filters, asm.Visual.Filter)
	}
	if r.cfg.Render.ColorGrading {
		filters = append(filters, gradeFilter)
	}
	filters = append(filters, r.captionFilters(asm.Node)...)
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}

	return append(args,
		"-an",
		"-r", fmt.Sprintf("%d", r.cfg.Render.FPS),
		"-c:v", r.cfg.Render.VideoCodec,
		"-preset", r.cfg.Render.Preset,
		"-pix_fmt", "yuv420p",
		out,
	)
}

// captionFilters compiles the overlay's text children to drawtext filters
// gated on their display windows.
func (r *Renderer) captionFilters(node *media.Node) []string {
	var filters []string
	for _, c := range node.Children() {
		if c.Kind != media.KindText {
			continue
		}
		var b strings.Builder
		fmt.Fprintf(&b, "drawtext=text='%s'", escapeDrawtext(c.Text))
		if c.Style.FontFile != "" {
			fmt.Fprintf(&b, ":fontfile='%s'", c.Style.FontFile)
		}
		fmt.Fprintf(&b, ":fontsize=%d:fontcolor=%s", c.Style.FontSize, c.Style.Color)
		if c.Style.OutlineWidth > 0 {
			fmt.Fprintf(&b, ":borderw=%d:bordercolor=%s", c.Style.OutlineWidth, c.Style.OutlineColor)
		}
		fmt.Fprintf(&b, ":x=%d:y=%d", c.X, c.Y)
		fmt.Fprintf(&b, ":enable='between(t,%.3f,%.3f)'", c.Start.Seconds(), (c.Start + c.Duration).Seconds())
		filters = append(filters, b.String())
	}
	return filters
}

// crossfadeArgs joins clips with xfade transitions. Offsets accumulate each
// clip's length minus the fade.
func (r *Renderer) crossfadeArgs(paths []string, assemblies []scene.Assembly, fade time.Duration, out string) []string {
	var args []string
	for _, p := range paths {
		args = append(args, "-i", p)
	}

	durAt := func(i int) time.Duration {
		return assemblies[i%len(assemblies)].Node.Duration
	}

	var chain []string
	prev := "[0:v]"
	offset := durAt(0) - fade
	for i := 1; i < len(paths); i++ {
		label := fmt.Sprintf("[x%d]", i)
		if i == len(paths)-1 {
			label = "[vout]"
		}
		chain = append(chain, fmt.Sprintf(
			"%s[%d:v]xfade=transition=fade:duration=%.3f:offset=%.3f%s",
			prev, i, fade.Seconds(), offset.Seconds(), label,
		))
		prev = label
		offset += durAt(i) - fade
	}

	return append(args,
		"-filter_complex", strings.Join(chain, ";"),
		"-map", "[vout]",
		"-an",
		"-r", fmt.Sprintf("%d", r.cfg.Render.FPS),
		"-c:v", r.cfg.Render.VideoCodec,
		"-preset", r.cfg.Render.Preset,
		"-pix_fmt", "yuv420p",
		out,
	)
}

// finalArgs builds the last encode pass: mux the looped visuals with the
// narration clock and the audio mix, stamp the watermark and branding, and
// cut everything at the master clock.
func (r *Renderer) finalArgs(outputPath, visualPath, narrationPath string, music *audiomix.MusicPlan, stingerPath string, stingers []time.Duration, brand *overlayimg.Result, master time.Duration) []string {
	args := []string{"-i", visualPath, "-i", narrationPath}
	next := 2

	if music != nil {
		args = append(args, music.InputArgs()...)
		next++
	}
	for range stingers {
		args = append(args, "-i", stingerPath)
		next++
	}
	brandInput := -1
	if brand != nil {
		args = append(args, "-i", brand.Path)
		brandInput = next
	}

	graph := audiomix.Graph{
		Offset:      1,
		Music:       music,
		StingerGain: 0.5,
		Stingers:    stingers,
	}
	parts := []string{graph.FilterComplex()}

	videoLabel := "[0:v]"
	var vf []string
	if text := r.cfg.Render.WatermarkText; text != "" {
		font, _ := r.library.Font(r.cfg.Captions.FontFile)
		vf = append(vf, drawtextFilter(text, font, r.cfg.Captions.BaseSize/2, r.cfg.Render.WatermarkPosition, 24))
	}
	if len(vf) > 0 {
		parts = append(parts, fmt.Sprintf("[0:v]%s[vmain]", strings.Join(vf, ",")))
		videoLabel = "[vmain]"
	}
	if brandInput >= 0 {
		x, y := overlayimg.Position(r.cfg.Render.WatermarkPosition, r.cfg.Render.Width, r.cfg.Render.Height, brand.Width, brand.Height, 24)
		parts = append(parts, fmt.Sprintf("%s[%d:v]overlay=%d:%d[vout]", videoLabel, brandInput, x, y))
		videoLabel = "[vout]"
	}

	args = append(args, "-filter_complex", strings.Join(parts, ";"))
	if videoLabel == "[0:v]" {
		args = append(args, "-map", "0:v")
	} else {
		args = append(args, "-map", videoLabel)
	}
	return append(args,
		"-map", "[aout]",
		"-t", fmt.Sprintf("%.3f", master.Seconds()),
		"-r", fmt.Sprintf("%d", r.cfg.Render.FPS),
		"-c:v", r.cfg.Render.VideoCodec,
		"-preset", r.cfg.Render.Preset,
		"-b:v", r.cfg.Render.Bitrate,
		"-c:a", r.cfg.Render.AudioCodec,
		"-pix_fmt", "yuv420p",
		outputPath,
	)
}

// sceneAudioArgs encodes one scene's audio window: the narration span
// after silence trimming.
func sceneAudioArgs(asm scene.Assembly, out string) []string {
	args := []string{}
	if asm.AudioOffset > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", asm.AudioOffset.Seconds()))
	}
	return append(args,
		"-i", asm.Audio.Source,
		"-t", fmt.Sprintf("%.3f", asm.Duration.Seconds()),
		"-vn",
		"-c:a", "aac",
		"-ar", "44100",
		out,
	)
}

func secondsDur(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func absDur(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
