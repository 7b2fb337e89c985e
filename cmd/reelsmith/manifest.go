// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/reelsmith/reelsmith/internal/captions"
	"github.com/reelsmith/reelsmith/internal/scene"
)

// Manifest is the job description submitted by operators: the style label,
// an optional explicit music track, the output path and the scene list.
type Manifest struct {
	Style  string          `yaml:"style,omitempty" json:"style,omitempty"`
	Music  string          `yaml:"music,omitempty" json:"music,omitempty"`
	Output string          `yaml:"output" json:"output"`
	Scenes []ManifestScene `yaml:"scenes" json:"scenes"`
}

type ManifestScene struct {
	Narration string         `yaml:"narration,omitempty" json:"narration,omitempty"`
	Visual    string         `yaml:"visual,omitempty" json:"visual,omitempty"`
	Text      string         `yaml:"text,omitempty" json:"text,omitempty"`
	Tag       string         `yaml:"tag,omitempty" json:"tag,omitempty"`
	Words     []ManifestWord `yaml:"words,omitempty" json:"words,omitempty"`
}

// ManifestWord carries word timings in seconds relative to scene start.
type ManifestWord struct {
	Text  string  `yaml:"text" json:"text"`
	Start float64 `yaml:"start" json:"start"`
	End   float64 `yaml:"end" json:"end"`
}

func loadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if err := m.validate(); err != nil {
		return Manifest{}, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

func (m Manifest) validate() error {
	if m.Output == "" {
		return fmt.Errorf("output is required")
	}
	if len(m.Scenes) == 0 {
		return fmt.Errorf("at least one scene is required")
	}
	for i, s := range m.Scenes {
		if s.Narration == "" && s.Visual == "" {
			return fmt.Errorf("scene %d has neither narration nor visual", i)
		}
	}
	return nil
}

// sceneInputs converts the manifest to assembler inputs.
func (m Manifest) sceneInputs() []scene.Input {
	inputs := make([]scene.Input, 0, len(m.Scenes))
	for _, s := range m.Scenes {
		words := make([]captions.Word, 0, len(s.Words))
		for _, w := range s.Words {
			words = append(words, captions.Word{
				Text:  w.Text,
				Start: time.Duration(w.Start * float64(time.Second)),
				End:   time.Duration(w.End * float64(time.Second)),
			})
		}
		inputs = append(inputs, scene.Input{
			Narration: s.Narration,
			Visual:    s.Visual,
			Text:      s.Text,
			Tag:       s.Tag,
			Words:     words,
		})
	}
	return inputs
}
