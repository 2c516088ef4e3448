package video

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AndrewDonelson/slideshow-compositor/pkg/random"
)

func TestRandomMotionBounds(t *testing.T) {
	src := random.New(11)
	sawIn, sawOut := false, false
	for i := 0; i < 300; i++ {
		m := RandomMotion(src)
		assert.GreaterOrEqual(t, m.Speed, MinZoomSpeed)
		assert.LessOrEqual(t, m.Speed, MaxZoomSpeed)
		assert.InDelta(t, math.Round(m.Speed*1e6)/1e6, m.Speed, 1e-12)
		if m.ZoomIn {
			sawIn = true
		} else {
			sawOut = true
			assert.Equal(t, Center, m.Anchor)
		}
	}
	assert.True(t, sawIn)
	assert.True(t, sawOut)
}

func TestMotionExpressions(t *testing.T) {
	in := Motion{ZoomIn: true, Anchor: BottomRight, Speed: 0.001}
	assert.Equal(t, "1+0.001*on", in.ZoomExpr())
	z := in.Filter(6, 1080, 1920, 25).String()
	assert.Equal(t, "zoompan=z='1+0.001*on':x='iw-(iw/zoom)':y='ih-(ih/zoom)':d=150:s=1080x1920:fps=25", z)

	out := Motion{Anchor: Center, Speed: 0.0015}
	assert.Equal(t, "if(lte(zoom,1.0),1.5,max(1.001,zoom-0.0015))", out.ZoomExpr())
	assert.True(t, strings.Contains(out.Filter(6, 1920, 1080, 25).String(), "x='(iw-iw/zoom)/2':y='(ih-ih/zoom)/2'"))
	assert.Equal(t, "zoom out from center at 0.0015/frame", out.String())

	tl := Motion{ZoomIn: true, Anchor: TopLeft, Speed: 0.001}
	assert.Contains(t, tl.Filter(6, 1080, 1920, 25).String(), "x='0':y='0'")
	tr := Motion{ZoomIn: true, Anchor: TopRight, Speed: 0.001}
	assert.Contains(t, tr.Filter(6, 1080, 1920, 25).String(), "x='iw-(iw/zoom)':y='0'")
}
