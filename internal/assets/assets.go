// SPDX-License-Identifier: MIT

// Package assets locates branding, fonts and background music on disk.
// Style names arrive as free-form user labels (emoji, accents, mixed case)
// and are normalized to a folder slug before lookup.
package assets

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const generalSlug = "general"

// musicExtensions lists the audio formats considered for background music.
var musicExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
}

// styleAliases maps keywords found in a slug to a canonical folder, so
// labels like "Terror nocturno" land in the horror folder.
var styleAliases = []struct {
	keywords []string
	folder   string
}{
	{[]string{"horror", "terror", "miedo", "scary"}, "horror"},
	{[]string{"motiv", "inspir", "exito"}, "motivation"},
	{[]string{"lujo", "luxury", "premium"}, "luxury"},
	{[]string{"tech", "tecnolog", "futuro", "robot"}, "tech"},
	{[]string{"curios", "dato"}, "curiosity"},
	{[]string{"lofi", "chill", "relax"}, "lofi"},
}

var deaccent = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

// StyleSlug normalizes a style label to a lowercase ascii folder name.
// Decomposed accents and anything non-alphanumeric are stripped; the first
// remaining token wins. Empty input maps to "general".
func StyleSlug(style string) string {
	if strings.TrimSpace(style) == "" {
		return generalSlug
	}
	flat, _, err := transform.String(deaccent, style)
	if err != nil {
		flat = style
	}
	var b strings.Builder
	for _, r := range strings.ToLower(flat) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	tokens := strings.Fields(b.String())
	if len(tokens) == 0 {
		return generalSlug
	}
	return tokens[0]
}

// musicFolder maps a slug to its music directory, applying keyword aliases.
func musicFolder(slug string) string {
	for _, alias := range styleAliases {
		for _, kw := range alias.keywords {
			if strings.Contains(slug, kw) {
				return alias.folder
			}
		}
	}
	return slug
}

// Library resolves assets beneath a single root directory:
//
//	<root>/branding/...   watermark images and branding text
//	<root>/music/<style>  background tracks per style
//	<root>/fonts/...      caption fonts
type Library struct {
	root   string
	logger zerolog.Logger
	pick   func(n int) int
}

func NewLibrary(root string, logger zerolog.Logger) *Library {
	return &Library{
		root:   root,
		logger: logger.With().Str("component", "assets").Logger(),
		pick:   rand.Intn,
	}
}

// Branding resolves a branding asset by filename. Lookup order: the
// style's subfolder, then general. Returns false when the asset exists
// nowhere.
func (l *Library) Branding(style, filename string) (string, bool) {
	base := filepath.Join(l.root, "branding")
	slug := StyleSlug(style)

	var candidates []string
	if slug != generalSlug {
		candidates = append(candidates, filepath.Join(base, slug, filename))
	}
	candidates = append(candidates, filepath.Join(base, generalSlug, filename))

	for _, path := range candidates {
		if fileExists(path) {
			return path, true
		}
	}
	l.logger.Debug().Str("style", slug).Str("file", filename).Msg("branding asset not found")
	return "", false
}

// BrandingText reads a text branding asset (channel handle, tagline).
func (l *Library) BrandingText(style, filename string) (string, bool) {
	path, ok := l.Branding(style, filename)
	if !ok {
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		l.logger.Warn().Err(err).Str("path", path).Msg("branding text unreadable")
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// Music picks a random background track for the style. The style folder is
// tried first, then general; with no tracks anywhere the render proceeds
// without music.
func (l *Library) Music(style string) (string, bool) {
	folder := musicFolder(StyleSlug(style))

	if path, ok := l.randomTrack(filepath.Join(l.root, "music", folder)); ok {
		l.logger.Info().Str("style", folder).Str("track", filepath.Base(path)).Msg("music selected")
		return path, true
	}
	if folder != generalSlug {
		if path, ok := l.randomTrack(filepath.Join(l.root, "music", generalSlug)); ok {
			l.logger.Info().Str("style", folder).Str("track", filepath.Base(path)).Msg("music selected from general")
			return path, true
		}
	}
	l.logger.Warn().Str("style", folder).Msg("no background music available")
	return "", false
}

// Font resolves a caption font, preferring the configured file then any
// font shipped in the library.
func (l *Library) Font(preferred string) (string, bool) {
	if preferred != "" && fileExists(preferred) {
		return preferred, true
	}
	dir := filepath.Join(l.root, "fonts")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".ttf" || ext == ".otf") {
			return filepath.Join(dir, e.Name()), true
		}
	}
	return "", false
}

func (l *Library) randomTrack(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	var tracks []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if musicExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			tracks = append(tracks, filepath.Join(dir, e.Name()))
		}
	}
	if len(tracks) == 0 {
		return "", false
	}
	return tracks[l.pick(len(tracks))], true
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
