package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Layers are the audio assets of one run. Only Soundtrack is required.
type Layers struct {
	Soundtrack   string   `json:"soundtrack" toml:"soundtrack"`
	Voiceover    string   `json:"voiceover,omitempty" toml:"voiceover"`
	VoiceoverEnd string   `json:"voiceover_end,omitempty" toml:"voiceover_end"`
	Stabs        []string `json:"stabs,omitempty" toml:"stabs"`
}

var audioExts = map[string]bool{".mp3": true, ".wav": true, ".m4a": true, ".aac": true, ".flac": true}

// DiscoverLayers fills the voiceover slots of explicit from mediaDir when
// they are empty: voiceover_end.* is the end voiceover, any other
// voiceover* file the main one. Explicit entries win.
func DiscoverLayers(mediaDir string, explicit Layers) (Layers, error) {
	layers := explicit
	if mediaDir != "" && (layers.Voiceover == "" || layers.VoiceoverEnd == "") {
		entries, err := os.ReadDir(mediaDir)
		if err != nil {
			return Layers{}, fmt.Errorf("failed to read media directory: %w", err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			lower := strings.ToLower(name)
			if !audioExts[filepath.Ext(lower)] || !strings.HasPrefix(lower, "voiceover") {
				continue
			}
			path := filepath.Join(mediaDir, name)
			stem := strings.TrimSuffix(lower, filepath.Ext(lower))
			switch {
			case stem == "voiceover_end":
				if layers.VoiceoverEnd == "" {
					layers.VoiceoverEnd = path
				}
			case layers.Voiceover == "":
				layers.Voiceover = path
			}
		}
	}

	if layers.Soundtrack == "" {
		return Layers{}, ErrNoSoundtrack
	}
	for _, p := range append([]string{layers.Soundtrack}, layers.Stabs...) {
		if _, err := os.Stat(p); err != nil {
			return Layers{}, fmt.Errorf("audio asset %s: %w", p, err)
		}
	}
	return layers, nil
}

// Summary returns a one line description of the layers.
func (l Layers) Summary() string {
	voice := "none"
	if l.Voiceover != "" {
		voice = filepath.Base(l.Voiceover)
	}
	end := "none"
	if l.VoiceoverEnd != "" {
		end = filepath.Base(l.VoiceoverEnd)
	}
	return fmt.Sprintf("Soundtrack: %s | Voiceover: %s | End voiceover: %s | Stabs: %d",
		filepath.Base(l.Soundtrack), voice, end, len(l.Stabs))
}
