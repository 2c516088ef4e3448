package subtitles

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMaxLineWidth is the line length used when none is configured.
const DefaultMaxLineWidth = 42

// Style describes the Default style and the burn-in look.
type Style struct {
	PlayResX      int
	PlayResY      int
	FontName      string
	FontSize      int
	FontColor     string // RRGGBB
	OutlineColor  string
	ShadowColor   string
	Outline       int
	Alignment     int
	ShadowEnabled bool
	ShadowOpacity float64
	MarginL       int
	MarginR       int
	MarginV       int
}

// Options control line grouping.
type Options struct {
	Style        Style
	MaxLineWidth int
	TimeOffset   float64
}

// Line is one dialogue event.
type Line struct {
	Text  string
	Start float64
	End   float64
}

// Group packs words into lines of at most maxWidth characters, shifting
// every timing by offset. A single word longer than maxWidth gets a line
// of its own.
func Group(words []Word, maxWidth int, offset float64) []Line {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxLineWidth
	}
	var lines []Line
	var cur Line
	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		start, end := w.Start+offset, w.End+offset
		switch {
		case cur.Text == "":
			cur = Line{Text: text, Start: start, End: end}
		case len(cur.Text)+1+len(text) <= maxWidth:
			cur.Text += " " + text
			cur.End = end
		default:
			lines = append(lines, cur)
			cur = Line{Text: text, Start: start, End: end}
		}
	}
	if cur.Text != "" {
		lines = append(lines, cur)
	}
	return lines
}

// FormatTime renders seconds as H:MM:SS.cs.
func FormatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	cs := int64(math.Round(seconds * 100))
	h := cs / 360000
	m := cs / 6000 % 60
	s := cs / 100 % 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs%100)
}

// BGR converts RRGGBB to the BBGGRR order ASS colours use.
func BGR(rgb string) string {
	rgb = strings.ToUpper(strings.TrimPrefix(strings.TrimPrefix(rgb, "#"), "0x"))
	if len(rgb) != 6 {
		return "FFFFFF"
	}
	return rgb[4:6] + rgb[2:4] + rgb[0:2]
}

// Render returns the ASS document for words.
func Render(words []Word, opts Options) string {
	st := opts.Style
	var b strings.Builder
	b.WriteString("[Script Info]\nScriptType: v4.00+\n")
	fmt.Fprintf(&b, "PlayResX: %d\nPlayResY: %d\n\n", st.PlayResX, st.PlayResY)
	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, " +
		"Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, " +
		"Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&b, "Style: Default,%s,%d,&H00%s,&H00FFFFFF,&H00%s,&H00%s,-1,0,0,0,100,100,0,0,1,%d,1,%d,%d,%d,%d,1\n\n",
		st.FontName, st.FontSize, BGR(st.FontColor), BGR(st.OutlineColor), BGR(st.ShadowColor), st.Outline, st.Alignment,
		st.MarginL, st.MarginR, st.MarginV)
	b.WriteString("[Events]\nFormat: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, line := range Group(words, opts.MaxLineWidth, opts.TimeOffset) {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n", FormatTime(line.Start), FormatTime(line.End), line.Text)
	}
	return b.String()
}

// WriteASS writes the ASS document for words to path.
func WriteASS(words []Word, path string, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create subtitle directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(Render(words, opts)), 0644); err != nil {
		return fmt.Errorf("failed to write subtitles: %w", err)
	}
	return nil
}

// ForceStyle builds the force_style value for the subtitles filter. fontName
// is the resolved family name of the configured font.
func ForceStyle(st Style, fontName string) string {
	parts := []string{
		"FontName=" + fontName,
		fmt.Sprintf("FontSize=%d", st.FontSize),
		"PrimaryColour=&H00" + BGR(st.FontColor),
		"OutlineColour=&H00" + BGR(st.OutlineColor),
		fmt.Sprintf("Outline=%d", st.Outline),
		fmt.Sprintf("Alignment=%d", st.Alignment),
	}
	if st.ShadowEnabled {
		alpha := int((1 - st.ShadowOpacity) * 255)
		parts = append(parts, fmt.Sprintf("BackColour=&H%02X%s", alpha, BGR(st.ShadowColor)), "Shadow=1")
	} else {
		parts = append(parts, "Shadow=0")
	}
	return strings.Join(parts, ",")
}
