// SPDX-License-Identifier: MIT

package config

// FileConfig represents the YAML configuration structure.
type FileConfig struct {
	DataDir    string `yaml:"dataDir,omitempty"`
	AssetsDir  string `yaml:"assetsDir,omitempty"`
	LogLevel   string `yaml:"logLevel,omitempty"`
	LogService string `yaml:"logService,omitempty"`

	Render   RenderSettings  `yaml:"render,omitempty"`
	Audio    AudioSettings   `yaml:"audio,omitempty"`
	Captions CaptionSettings `yaml:"captions,omitempty"`
	FFmpeg   FFmpegSettings  `yaml:"ffmpeg,omitempty"`
	Server   ServerSettings  `yaml:"server,omitempty"`
}

// RenderSettings controls the visual side of a render job.
type RenderSettings struct {
	Width  int `yaml:"width,omitempty"`
	Height int `yaml:"height,omitempty"`
	FPS    int `yaml:"fps,omitempty"`

	// CrossfadeSeconds is the transition fade length; 0 disables crossfades.
	CrossfadeSeconds float64 `yaml:"crossfadeSeconds,omitempty"`

	// MinClipSeconds is the shortest clip that may carry a crossfade.
	MinClipSeconds float64 `yaml:"minClipSeconds,omitempty"`

	Bitrate       string `yaml:"bitrate,omitempty"`
	VideoCodec    string `yaml:"videoCodec,omitempty"`
	AudioCodec    string `yaml:"audioCodec,omitempty"`
	Preset        string `yaml:"preset,omitempty"`
	ColorGrading  bool   `yaml:"colorGrading,omitempty"`
	WatermarkText string `yaml:"watermarkText,omitempty"`

	// WatermarkPosition is one of bottom-right, bottom-left, top-right,
	// top-left, top-center.
	WatermarkPosition string `yaml:"watermarkPosition,omitempty"`

	// DriftThreshold is the aggregate duration drift fraction above which
	// scene durations are reconciled against the narration track.
	DriftThreshold float64 `yaml:"driftThreshold,omitempty"`

	Branding bool `yaml:"branding,omitempty"`
}

// AudioSettings controls the master audio mix.
type AudioSettings struct {
	// MusicGain is the ducked background-music gain applied while narration
	// is present. Policy default 0.10.
	MusicGain float64 `yaml:"musicGain,omitempty"`

	// FullGain is applied when no narration exists.
	FullGain float64 `yaml:"fullGain,omitempty"`

	// Stingers enables a short transition sound at scene boundaries.
	Stingers bool `yaml:"stingers,omitempty"`

	// TrimSilence strips leading/trailing silence from narration clips.
	TrimSilence bool `yaml:"trimSilence,omitempty"`

	// SilenceThresholdDB is the level below which audio counts as silence.
	SilenceThresholdDB float64 `yaml:"silenceThresholdDB,omitempty"`
}

// CaptionSettings controls caption layout.
type CaptionSettings struct {
	Mode           string  `yaml:"mode,omitempty"` // karaoke | static
	FontFile       string  `yaml:"fontFile,omitempty"`
	BaseSize       int     `yaml:"baseSize,omitempty"`
	HighlightScale float64 `yaml:"highlightScale,omitempty"`
	HighlightColor string  `yaml:"highlightColor,omitempty"`
	WordsPerLine   int     `yaml:"wordsPerLine,omitempty"`
}

// FFmpegSettings locates the native media backend.
type FFmpegSettings struct {
	FFmpegPath  string `yaml:"ffmpegPath,omitempty"`
	FFprobePath string `yaml:"ffprobePath,omitempty"`
	Threads     int    `yaml:"threads,omitempty"`
}

// ServerSettings controls the daemon's HTTP surface.
type ServerSettings struct {
	Listen string `yaml:"listen,omitempty"`
}
