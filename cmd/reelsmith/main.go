// SPDX-License-Identifier: MIT

// Command reelsmith assembles narrated short-form videos. `render` runs one
// job from a manifest and exits; `serve` starts the daemon with the HTTP
// job API.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"github.com/reelsmith/reelsmith/internal/assets"
	"github.com/reelsmith/reelsmith/internal/config"
	"github.com/reelsmith/reelsmith/internal/ffmpeg"
	"github.com/reelsmith/reelsmith/internal/log"
	"github.com/reelsmith/reelsmith/internal/metrics"
	"github.com/reelsmith/reelsmith/internal/render"
	"github.com/reelsmith/reelsmith/internal/store"
	"github.com/reelsmith/reelsmith/internal/validate"
	"github.com/reelsmith/reelsmith/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "render":
		os.Exit(runRender(os.Args[2:]))
	case "serve":
		os.Exit(runServe(os.Args[2:]))
	case "version":
		fmt.Println(version.String())
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: reelsmith <command> [flags]

commands:
  render   render one job from a manifest and exit
  serve    run the daemon with the HTTP job API
  version  print the version
`)
}

// app bundles everything both commands need.
type app struct {
	cfg      config.FileConfig
	renderer *render.Renderer
	db       *store.Store
}

func setup(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log.Configure(log.Config{Level: cfg.LogLevel, Service: cfg.LogService})

	exec, err := ffmpeg.New(log.Base(), ffmpeg.Options{
		FFmpegPath:  cfg.FFmpeg.FFmpegPath,
		FFprobePath: cfg.FFmpeg.FFprobePath,
		Threads:     cfg.FFmpeg.Threads,
	})
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	db, err := store.Open(filepath.Join(cfg.DataDir, "jobs.db"))
	if err != nil {
		return nil, err
	}

	v := validate.New()
	v.Dir("assetsDir", cfg.AssetsDir)
	if err := v.Err(); err != nil {
		// Assets are optional: jobs render without music or branding.
		logger := log.WithComponent("setup")
		logger.Warn().Err(err).Msg("assets directory unusable, music and branding disabled")
	}

	library := assets.NewLibrary(cfg.AssetsDir, log.Base())
	renderer := render.New(cfg, exec, library, filepath.Join(cfg.DataDir, "work"))

	return &app{cfg: cfg, renderer: renderer, db: db}, nil
}

func runRender(args []string) int {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (YAML)")
	manifestPath := fs.String("manifest", "", "path to job manifest (YAML)")
	_ = fs.Parse(args)

	if *manifestPath == "" {
		fmt.Fprintln(os.Stderr, "render: -manifest is required")
		return 2
	}

	a, err := setup(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "setup:", err)
		return 1
	}
	defer a.db.Close()
	logger := log.WithComponent("cli")

	m, err := loadManifest(*manifestPath)
	if err != nil {
		logger.Error().Err(err).Msg("manifest rejected")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	id := uuid.NewString()
	if err := a.db.Create(ctx, id, m.Style); err != nil {
		logger.Error().Err(err).Msg("job create failed")
		return 1
	}
	if ok := runJob(ctx, a.renderer, a.db, id, m); !ok {
		return 1
	}
	return 0
}

// runJob executes one job end to end: state persistence, metrics and the
// atomic artifact sidecar.
func runJob(ctx context.Context, renderer *render.Renderer, db *store.Store, id string, m Manifest) bool {
	logger := log.WithComponent("job").With().Str("job_id", id).Logger()
	started := time.Now()

	renderer.OnState = func(jobID string, s render.State) {
		if err := db.SetState(context.Background(), jobID, s.String()); err != nil {
			logger.Warn().Err(err).Str("state", s.String()).Msg("state persist failed")
		}
	}

	art, err := renderer.Render(ctx, render.Job{
		ID:         id,
		Style:      m.Style,
		Scenes:     m.sceneInputs(),
		MusicPath:  m.Music,
		OutputPath: m.Output,
	})
	wall := time.Since(started)
	if err != nil {
		_ = db.Finish(context.Background(), id, render.StateFailed.String(), "", 0, 0, 0, nil, err.Error())
		metrics.ObserveJob("failed", wall, 0)
		logger.Error().Err(err).Msg("job failed")
		return false
	}

	_ = db.Finish(context.Background(), id, render.StateSucceeded.String(), art.Path, art.Duration, art.Width, art.Height, art.Warnings, "")
	metrics.ObserveJob("succeeded", wall, art.Duration)
	metrics.ScenesDropped.Add(float64(countDropped(art.Warnings)))

	if err := writeSidecar(art); err != nil {
		logger.Warn().Err(err).Msg("artifact metadata write failed")
	}
	logger.Info().
		Str("output", art.Path).
		Dur("duration", art.Duration).
		Dur("wall", wall).
		Int("warnings", len(art.Warnings)).
		Msg("job finished")
	return true
}

func countDropped(warnings []string) int {
	n := 0
	for _, w := range warnings {
		if len(w) > 5 && w[:5] == "scene" {
			n++
		}
	}
	return n
}

// writeSidecar atomically writes artifact metadata next to the output file.
func writeSidecar(art render.Artifact) error {
	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(art.Path+".json", data, 0o644)
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (YAML)")
	_ = fs.Parse(args)

	a, err := setup(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "setup:", err)
		return 1
	}
	defer a.db.Close()
	logger := log.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := newJobRunner(a.renderer, a.db, 8)
	runner.Start(ctx)

	srv := &http.Server{
		Addr:              a.cfg.Server.Listen,
		Handler:           newServer(runner, a.db).routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().
		Str("listen", a.cfg.Server.Listen).
		Str("version", version.Version).
		Str("event", "daemon.start").
		Msg("daemon listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("server failed")
		return 1
	}
	logger.Info().Str("event", "daemon.stop").Msg("daemon stopped")
	return 0
}
