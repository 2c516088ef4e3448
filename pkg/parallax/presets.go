// Package parallax turns still images into short depth-animated clips by
// driving an external depth engine from a bounded pool of workers.
package parallax

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/AndrewDonelson/slideshow-compositor/pkg/random"
)

// ZoomPreset is the preset held back by the zoom gate.
const ZoomPreset = "Zoom"

// Preset is a depth animation with the range its intensity is drawn from.
type Preset struct {
	Name         string
	MinIntensity float64
	MaxIntensity float64
}

// DefaultPresets is the catalog used when none is configured.
var DefaultPresets = []Preset{
	{Name: "Circle", MinIntensity: 0.3, MaxIntensity: 0.5},
	{Name: "Orbital", MinIntensity: 0.3, MaxIntensity: 0.5},
	{Name: "Dolly", MinIntensity: 0.2, MaxIntensity: 0.4},
	{Name: "Horizontal", MinIntensity: 0.2, MaxIntensity: 0.4},
	{Name: "Vertical", MinIntensity: 0.2, MaxIntensity: 0.4},
	{Name: "Zoom", MinIntensity: 0.15, MaxIntensity: 0.25},
}

// Animation is a preset instance applied to one image.
type Animation struct {
	Preset    string
	Intensity float64
	Loop      bool
	Reverse   bool
}

func (a Animation) String() string {
	return fmt.Sprintf("%s(intensity=%.2f, loop=%t, reverse=%t)", a.Preset, a.Intensity, a.Loop, a.Reverse)
}

// Params are the sampled scene parameters of one image.
type Params struct {
	Isometric    float64
	Height       float64
	Vignette     bool
	DepthOfField bool
	Animations   []Animation
}

// Names returns the applied preset names in order.
func (p Params) Names() []string {
	return lo.Map(p.Animations, func(a Animation, _ int) string { return a.Preset })
}

// SelectorOptions bound the sampled parameters.
type SelectorOptions struct {
	Presets         []Preset
	MinEffects      int
	MaxEffects      int
	ZoomProbability float64
	IsometricMin    float64
	IsometricMax    float64
	HeightMin       float64
	HeightMax       float64
	Vignette        bool
	DepthOfField    bool
}

// Selector samples scene parameters.
type Selector struct {
	opts SelectorOptions
}

func NewSelector(opts SelectorOptions) *Selector {
	if len(opts.Presets) == 0 {
		opts.Presets = DefaultPresets
	}
	return &Selector{opts: opts}
}

// Select draws the parameters for one image from src. Every preset gets an
// intensity and a direction up front; K of them are then picked without
// replacement, with Zoom kept out of each pick unless the zoom gate opens or
// nothing else is left.
func (s *Selector) Select(src random.Source) Params {
	candidates := lo.Map(s.opts.Presets, func(p Preset, _ int) Animation {
		return Animation{
			Preset:    p.Name,
			Intensity: scalar.Round(random.Uniform(src, p.MinIntensity, p.MaxIntensity), 2),
			Loop:      true,
			Reverse:   random.Bool(src),
		}
	})

	params := Params{
		Isometric:    scalar.Round(random.Uniform(src, s.opts.IsometricMin, s.opts.IsometricMax), 2),
		Height:       scalar.Round(random.Uniform(src, s.opts.HeightMin, s.opts.HeightMax), 2),
		Vignette:     s.opts.Vignette,
		DepthOfField: s.opts.DepthOfField,
	}

	k := random.IntRange(src, s.opts.MinEffects, s.opts.MaxEffects)
	applied := map[string]bool{}
	for range k {
		available := lo.Filter(candidates, func(a Animation, _ int) bool { return !applied[a.Preset] })
		if len(available) == 0 {
			break
		}
		if src.Float64() > s.opts.ZoomProbability {
			if withoutZoom := lo.Reject(available, isZoom); len(withoutZoom) > 0 {
				available = withoutZoom
			}
		}
		pick := random.Pick(src, available)
		applied[pick.Preset] = true
		params.Animations = append(params.Animations, pick)
	}
	return params
}

func isZoom(a Animation, _ int) bool {
	return strings.EqualFold(a.Preset, ZoomPreset)
}
