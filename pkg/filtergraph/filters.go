package filtergraph

import (
	"fmt"
	"strconv"
	"strings"
)

// Filter is a single ffmpeg filter with its arguments.
type Filter interface {
	String() string
}

// Param is one key=value argument. An empty key renders the value positionally.
type Param struct {
	Key   string
	Value string
}

// P is shorthand for a Param.
func P(key, value string) Param {
	return Param{Key: key, Value: value}
}

func render(name string, params ...Param) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		if p.Value == "" {
			continue
		}
		if p.Key == "" {
			parts = append(parts, p.Value)
			continue
		}
		parts = append(parts, p.Key+"="+p.Value)
	}
	if len(parts) == 0 {
		return name
	}
	return name + "=" + strings.Join(parts, ":")
}

// Num formats a float with the fewest digits that round-trip.
func Num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Dec is Num with a trailing ".0" on whole numbers.
func Dec(f float64) string {
	s := Num(f)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func itoa(i int) string {
	if i == 0 {
		return ""
	}
	return strconv.Itoa(i)
}

// Quote wraps a value in single quotes for the filter graph parser.
func Quote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

// Join renders filters as a simple comma separated chain, as used by -af and -vf.
func Join(filters ...Filter) string {
	parts := make([]string, len(filters))
	for i, f := range filters {
		parts[i] = f.String()
	}
	return strings.Join(parts, ",")
}

// Raw is a filter passed through verbatim.
type Raw string

func (r Raw) String() string { return string(r) }

// Null passes video through unchanged.
type Null struct{}

func (Null) String() string { return "null" }

type Scale struct {
	Width       string
	Height      string
	ForceAspect string
}

func (s Scale) String() string {
	return render("scale", P("", s.Width), P("", s.Height), P("force_original_aspect_ratio", s.ForceAspect))
}

type Pad struct {
	Width, Height string
	X, Y          string
}

func (p Pad) String() string {
	return render("pad", P("", p.Width), P("", p.Height), P("", p.X), P("", p.Y))
}

type SetPTS struct {
	Expr string
}

func (s SetPTS) String() string { return "setpts=" + s.Expr }

type FPS struct {
	Rate int
}

func (f FPS) String() string { return "fps=" + strconv.Itoa(f.Rate) }

type Format struct {
	PixelFormat string
}

func (f Format) String() string { return "format=" + f.PixelFormat }

type SetSAR struct {
	Ratio string
}

func (s SetSAR) String() string { return "setsar=" + s.Ratio }

// Zoompan is the Ken Burns pan/zoom over a still image.
type Zoompan struct {
	Zoom   string
	X, Y   string
	Frames int
	Width  int
	Height int
	FPS    int
}

func (z Zoompan) String() string {
	return render("zoompan",
		P("z", Quote(z.Zoom)),
		P("x", Quote(z.X)),
		P("y", Quote(z.Y)),
		P("d", strconv.Itoa(z.Frames)),
		P("s", fmt.Sprintf("%dx%d", z.Width, z.Height)),
		P("fps", strconv.Itoa(z.FPS)),
	)
}

// Xfade crossfades its two inputs.
type Xfade struct {
	Transition string
	Duration   float64
	Offset     float64
}

func (x Xfade) String() string {
	return render("xfade", P("transition", x.Transition), P("duration", Num(x.Duration)), P("offset", Num(x.Offset)))
}

// DrawText renders text. Params are appended after the typed fields in order.
type DrawText struct {
	Text      string
	TextFile  string
	FontFile  string
	FontSize  int
	FontColor string
	X, Y      string
	Enable    string
	Params    []Param
}

func (d DrawText) String() string {
	params := []Param{
		P("text", d.Text),
		P("textfile", d.TextFile),
		P("fontfile", d.FontFile),
		P("fontsize", itoa(d.FontSize)),
		P("fontcolor", d.FontColor),
		P("x", d.X),
		P("y", d.Y),
		P("enable", d.Enable),
	}
	return render("drawtext", append(params, d.Params...)...)
}

// Chromakey keys out a colour given as RRGGBB.
type Chromakey struct {
	Color      string
	Similarity float64
	Blend      float64
}

func (c Chromakey) String() string {
	color := c.Color
	if !strings.HasPrefix(strings.ToLower(color), "0x") {
		color = "0x" + color
	}
	return fmt.Sprintf("chromakey=color=%s:similarity=%s:blend=%s", color, Num(c.Similarity), Dec(c.Blend))
}

type Overlay struct {
	X, Y     string
	Enable   string
	Shortest bool
}

func (o Overlay) String() string {
	shortest := ""
	if o.Shortest {
		shortest = "1"
	}
	return render("overlay", P("x", o.X), P("y", o.Y), P("enable", o.Enable), P("shortest", shortest))
}

type Blend struct {
	Mode    string
	Opacity float64
}

func (b Blend) String() string {
	return render("blend", P("all_mode", b.Mode), P("all_opacity", Num(b.Opacity)))
}

type ColorChannelMixer struct {
	Alpha float64
}

func (c ColorChannelMixer) String() string { return "colorchannelmixer=aa=" + Num(c.Alpha) }

type Trim struct {
	Duration float64
}

func (t Trim) String() string { return "trim=duration=" + Num(t.Duration) }

type Subtitles struct {
	Path       string
	FontsDir   string
	ForceStyle string
}

func (s Subtitles) String() string {
	params := []Param{P("", Quote(s.Path))}
	if s.FontsDir != "" {
		params = append(params, P("fontsdir", Quote(s.FontsDir)))
	}
	if s.ForceStyle != "" {
		params = append(params, P("force_style", Quote(s.ForceStyle)))
	}
	return render("subtitles", params...)
}

// Amix sums audio inputs. Normalize false disables the per-input attenuation.
type Amix struct {
	Inputs    int
	Normalize bool
}

func (a Amix) String() string {
	normalize := "0"
	if a.Normalize {
		normalize = "1"
	}
	return render("amix", P("inputs", itoa(a.Inputs)), P("normalize", normalize))
}

// Adelay delays both stereo channels.
type Adelay struct {
	Millis int64
}

func (a Adelay) String() string {
	ms := strconv.FormatInt(a.Millis, 10)
	return "adelay=" + ms + "|" + ms
}

type Atrim struct {
	Duration float64
}

func (a Atrim) String() string { return "atrim=duration=" + Num(a.Duration) }

type AFade struct {
	Type     string
	Start    float64
	Duration float64
}

func (a AFade) String() string {
	return render("afade", P("t", a.Type), P("st", Num(a.Start)), P("d", Num(a.Duration)))
}

type Volume struct {
	Level float64
}

func (v Volume) String() string {
	return "volume=" + Dec(v.Level)
}

// Sidechain compresses its first input by the level of its second.
type Sidechain struct {
	Ratio     float64
	Threshold float64
	Attack    float64
	Release   float64
}

func (s Sidechain) String() string {
	return render("sidechaincompress",
		P("ratio", Num(s.Ratio)),
		P("threshold", Num(s.Threshold)),
		P("attack", Num(s.Attack)),
		P("release", Num(s.Release)),
	)
}

type Asplit struct {
	Outputs int
}

func (a Asplit) String() string { return "asplit=" + strconv.Itoa(a.Outputs) }

type Concat struct {
	Segments int
	Video    int
	Audio    int
}

func (c Concat) String() string {
	return fmt.Sprintf("concat=n=%d:v=%d:a=%d", c.Segments, c.Video, c.Audio)
}
