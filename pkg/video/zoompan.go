package video

import (
	"fmt"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/AndrewDonelson/slideshow-compositor/pkg/filtergraph"
	"github.com/AndrewDonelson/slideshow-compositor/pkg/random"
)

// Zoom speed bounds per output frame.
const (
	MinZoomSpeed = 0.0005
	MaxZoomSpeed = 0.002
)

// Anchor is the fixed point of a zoom.
type Anchor int

const (
	TopLeft Anchor = iota
	TopRight
	BottomLeft
	BottomRight
	Center
)

var anchors = []Anchor{TopLeft, TopRight, BottomLeft, BottomRight, Center}

func (a Anchor) String() string {
	switch a {
	case TopLeft:
		return "top-left"
	case TopRight:
		return "top-right"
	case BottomLeft:
		return "bottom-left"
	case BottomRight:
		return "bottom-right"
	default:
		return "center"
	}
}

// position returns the zoompan x and y expressions holding the anchor in place.
func (a Anchor) position() (string, string) {
	const (
		right  = "iw-(iw/zoom)"
		bottom = "ih-(ih/zoom)"
	)
	switch a {
	case TopLeft:
		return "0", "0"
	case TopRight:
		return right, "0"
	case BottomLeft:
		return "0", bottom
	case BottomRight:
		return right, bottom
	default:
		return "(iw-iw/zoom)/2", "(ih-ih/zoom)/2"
	}
}

// Motion is the Ken Burns move applied to one still image.
type Motion struct {
	ZoomIn bool
	Anchor Anchor
	Speed  float64
}

// RandomMotion draws a direction, anchor and speed. Zooming out always
// anchors at the centre.
func RandomMotion(src random.Source) Motion {
	m := Motion{
		ZoomIn: random.Bool(src),
		Speed:  scalar.Round(random.Uniform(src, MinZoomSpeed, MaxZoomSpeed), 6),
		Anchor: Center,
	}
	if m.ZoomIn {
		m.Anchor = random.Pick(src, anchors)
	}
	return m
}

// ZoomExpr returns the per-frame zoom expression.
func (m Motion) ZoomExpr() string {
	speed := filtergraph.Num(m.Speed)
	if m.ZoomIn {
		return fmt.Sprintf("1+%s*on", speed)
	}
	return fmt.Sprintf("if(lte(zoom,1.0),1.5,max(1.001,zoom-%s))", speed)
}

// Filter returns the zoompan filter for a still lasting seconds at fps.
func (m Motion) Filter(seconds float64, width, height, fps int) filtergraph.Zoompan {
	x, y := m.Anchor.position()
	return filtergraph.Zoompan{
		Zoom:   m.ZoomExpr(),
		X:      x,
		Y:      y,
		Frames: int(float64(fps) * seconds),
		Width:  width,
		Height: height,
		FPS:    fps,
	}
}

func (m Motion) String() string {
	dir := "out"
	if m.ZoomIn {
		dir = "in"
	}
	return fmt.Sprintf("zoom %s from %s at %s/frame", dir, m.Anchor, filtergraph.Num(m.Speed))
}
