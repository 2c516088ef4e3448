package media

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Kind classifies a media item
type Kind int

const (
	Image Kind = iota
	VideoSegment
	GeneratedClip
)

func (k Kind) String() string {
	switch k {
	case Image:
		return "image"
	case VideoSegment:
		return "video"
	case GeneratedClip:
		return "generated"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// GeneratedSuffix marks clips produced by the parallax renderer.
const GeneratedSuffix = "_df.mp4"

// Item is one input of the slideshow. ProbedDuration is zero until probed.
type Item struct {
	Path           string
	Kind           Kind
	ProbedDuration float64
}

// Classify maps a file name to its media kind.
func Classify(path string) (Kind, bool) {
	lower := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(lower, GeneratedSuffix) {
		return GeneratedClip, true
	}
	switch filepath.Ext(lower) {
	case ".jpg", ".jpeg", ".png":
		return Image, true
	case ".mp4", ".mov", ".mkv":
		return VideoSegment, true
	default:
		return 0, false
	}
}

// NewItem builds an item for a path, failing on unsupported extensions.
func NewItem(path string) (Item, error) {
	kind, ok := Classify(path)
	if !ok {
		return Item{}, fmt.Errorf("unsupported media file: %s", path)
	}
	return Item{Path: path, Kind: kind}, nil
}

// Discover lists the supported media in dir, sorted by name. Voiceover
// tracks living alongside the media are skipped.
func Discover(dir string) ([]Item, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read media directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		lower := strings.ToLower(name)
		if strings.HasPrefix(lower, "voiceover") || strings.HasPrefix(lower, ".") {
			continue
		}
		if _, ok := Classify(name); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	items := make([]Item, 0, len(names))
	for _, name := range names {
		item, err := NewItem(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// LimitByDuration keeps as many leading items as fit in the available time
// when each occupies segmentDuration seconds.
func LimitByDuration(items []Item, available, segmentDuration float64) []Item {
	if segmentDuration <= 0 || available <= 0 {
		return nil
	}
	n := int(math.Floor(available / segmentDuration))
	if n >= len(items) {
		return items
	}
	return items[:n]
}

// Images returns the image items in order.
func Images(items []Item) []Item {
	var out []Item
	for _, item := range items {
		if item.Kind == Image {
			out = append(out, item)
		}
	}
	return out
}
