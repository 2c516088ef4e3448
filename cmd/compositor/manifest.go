package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/AndrewDonelson/slideshow-compositor/internal/models"
)

// manifestFlags builds a manifest from --manifest or from individual flags.
type manifestFlags struct {
	path        string
	media       string
	title       string
	soundtrack  string
	voiceover   string
	orientation string
	output      string
	seed        uint64
}

func (f *manifestFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.path, "manifest", "m", "", "TOML manifest describing the run")
	flags.StringVar(&f.media, "media", "", "Media directory (instead of --manifest)")
	flags.StringVar(&f.title, "title", "", "Video title")
	flags.StringVar(&f.soundtrack, "soundtrack", "", "Soundtrack file")
	flags.StringVar(&f.voiceover, "voiceover", "", "Voiceover file")
	flags.StringVar(&f.orientation, "orientation", "", "vertical or horizontal")
	flags.StringVarP(&f.output, "output", "o", "", "Output directory")
	flags.Uint64Var(&f.seed, "seed", 0, "Random seed (0 picks one)")
}

// manifest returns the run manifest. Flags override values read from the file.
func (f *manifestFlags) manifest() (models.Manifest, error) {
	var m models.Manifest
	switch {
	case strings.TrimSpace(f.path) != "":
		loaded, err := loadManifest(f.path)
		if err != nil {
			return models.Manifest{}, err
		}
		m = loaded
	case strings.TrimSpace(f.media) == "":
		return models.Manifest{}, errors.New("one of --manifest or --media is required")
	}

	overrides := []struct {
		target *string
		value  string
	}{
		{&m.MediaDir, f.media},
		{&m.Title, f.title},
		{&m.Soundtrack, f.soundtrack},
		{&m.Voiceover, f.voiceover},
		{&m.Orientation, f.orientation},
		{&m.OutputDir, f.output},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(o.value); v != "" {
			*o.target = v
		}
	}
	if f.seed != 0 {
		m.Seed = f.seed
	}

	if m.MediaDir == "" {
		return models.Manifest{}, errors.New("manifest: media_dir is required")
	}
	abs, err := filepath.Abs(m.MediaDir)
	if err != nil {
		return models.Manifest{}, fmt.Errorf("resolve media dir: %w", err)
	}
	m.MediaDir = abs
	return m, nil
}

// loadManifest reads a TOML manifest. A relative media_dir or output_dir is
// taken relative to the manifest file.
func loadManifest(path string) (models.Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return models.Manifest{}, fmt.Errorf("open manifest: %w", err)
	}
	defer file.Close()

	var m models.Manifest
	if err := toml.NewDecoder(file).DisallowUnknownFields().Decode(&m); err != nil {
		return models.Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for _, p := range []*string{&m.MediaDir, &m.OutputDir} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
	return m, nil
}
