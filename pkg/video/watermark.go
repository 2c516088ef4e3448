package video

import (
	"fmt"
	"strings"

	"github.com/AndrewDonelson/slideshow-compositor/pkg/filtergraph"
)

// Watermark styles.
const (
	WatermarkCCW    = "ccw"
	WatermarkRandom = "random"
)

// Watermark defines the moving text drawn over the slideshow
type Watermark struct {
	Text      string  `json:"text"`
	FontFile  string  `json:"font_file"`
	FontSize  int     `json:"font_size"`
	FontColor string  `json:"font_color"` // colour name, RRGGBB, or "random"
	Opacity   float64 `json:"opacity"`
	Speed     int     `json:"speed"` // frames per move
	Style     string  `json:"style"`
}

// DefaultWatermark returns standard watermark settings
func DefaultWatermark(text string) *Watermark {
	return &Watermark{
		Text:      text,
		FontSize:  40,
		FontColor: "white",
		Opacity:   0.7,
		Speed:     50,
		Style:     WatermarkCCW,
	}
}

// Filter returns the drawtext filter for the watermark.
func (w *Watermark) Filter() filtergraph.DrawText {
	x, y := w.position()
	return filtergraph.DrawText{
		Text:      "'" + sanitizeText(w.Text) + "'",
		FontFile:  w.FontFile,
		FontSize:  w.FontSize,
		FontColor: fmt.Sprintf("%s@%s", w.color(), filtergraph.Num(w.Opacity)),
		X:         x,
		Y:         y,
	}
}

func (w *Watermark) color() string {
	c := strings.TrimSpace(w.FontColor)
	if c == "" {
		return "white"
	}
	if isHexColor(c) {
		return "0x" + strings.ToUpper(c)
	}
	return c
}

// position returns the x and y expressions for the configured style.
func (w *Watermark) position() (string, string) {
	speed := w.Speed
	if speed <= 0 {
		speed = 50
	}
	if w.Style == WatermarkRandom {
		return fmt.Sprintf(`'if(eq(mod(n\,%d)\,0)\,random(1)*w\,x)'`, speed),
			fmt.Sprintf(`'if(eq(mod(n\,%d)\,0)\,random(1)*h\,y)'`, speed)
	}

	// One border edge per phase, clockwise from the top-left corner with a 15px margin.
	p := fmt.Sprintf("mod(n/%d,4)", speed)
	f := fmt.Sprintf("mod(n/%d,1)", speed)
	x := fmt.Sprintf("if(lt(%[1]s,1),15+%[2]s*(w-text_w-30),if(lt(%[1]s,2),w-text_w-15,if(lt(%[1]s,3),w-text_w-15-(%[2]s*(w-text_w-30)),15)))", p, f)
	y := fmt.Sprintf("if(lt(%[1]s,1),15,if(lt(%[1]s,2),15+%[2]s*(h-text_h-30),if(lt(%[1]s,3),h-text_h-15,h-text_h-15-(%[2]s*(h-text_h-30)))))", p, f)
	return "'" + x + "'", "'" + y + "'"
}

// Description returns a human-readable summary of the watermark settings
func (w *Watermark) Description() string {
	if w == nil || strings.TrimSpace(w.Text) == "" {
		return "Watermark: Disabled"
	}
	return fmt.Sprintf("Watermark: %q (%s, every %d frames, %s@%s)",
		w.Text, w.Style, w.Speed, w.color(), filtergraph.Num(w.Opacity))
}

func isHexColor(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, r := range strings.ToLower(s) {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
