package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndrewDonelson/slideshow-compositor/pkg/media"
)

func segments(n int, d float64) []Segment {
	items := make([]media.Item, n-1)
	for i := range items {
		items[i] = media.Item{Path: "img.jpg", Kind: media.Image}
	}
	return Build(items, media.Item{Path: "outro.mp4", Kind: media.VideoSegment}, d)
}

func TestComputeWorkedExample(t *testing.T) {
	tl, err := Compute(segments(5, 6), 0.5, 14)
	require.NoError(t, err)
	assert.Equal(t, []float64{5.5, 11, 16.5, 22}, tl.Offsets())
	assert.Equal(t, 36.0, tl.Total())
	assert.Equal(t, 4, tl.Len())

	assert.Equal(t, 6.0, tl.Boundaries[0].CumulativeStart)
	assert.Equal(t, 11.5, tl.Boundaries[0].CumulativeEnd)
	assert.Equal(t, 36.0, tl.Boundaries[3].CumulativeEnd)
}

func TestComputeRecurrence(t *testing.T) {
	const d, tr, outro = 4.0, 1.25, 9.0
	for n := 2; n <= 12; n++ {
		tl, err := Compute(segments(n, d), tr, outro)
		require.NoError(t, err)
		offsets := tl.Offsets()
		require.Len(t, offsets, n-1)

		cumulative := d
		for i, off := range offsets {
			assert.InDelta(t, cumulative-tr, off, 1e-9)
			if i > 0 {
				assert.Greater(t, off, offsets[i-1])
			}
			next := d
			if i == n-2 {
				next = outro
			}
			cumulative += next - tr
		}
		assert.InDelta(t, cumulative, tl.Total(), 1e-9)
	}
}

func TestComputeDegenerate(t *testing.T) {
	tl, err := Compute(nil, 0.5, 14)
	require.NoError(t, err)
	assert.Empty(t, tl.Offsets())
	assert.Zero(t, tl.Total())

	tl, err = Compute(segments(1, 6), 0.5, 14)
	require.NoError(t, err)
	assert.Empty(t, tl.Offsets())
	assert.Equal(t, 14.0, tl.Total())
}

func TestComputeRejectsLongTransition(t *testing.T) {
	_, err := Compute(segments(3, 0.5), 0.5, 14)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Compute(segments(3, 0.4), 0.5, 14)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestComputeShortOutroIsNotRejected(t *testing.T) {
	tl, err := Compute(segments(2, 6), 0.5, 0.3)
	require.NoError(t, err)
	assert.Equal(t, []float64{5.5}, tl.Offsets())
	assert.InDelta(t, 5.8, tl.Total(), 1e-9)
}

func TestComputeRejectsMisplacedOutro(t *testing.T) {
	segs := []Segment{
		{NominalDuration: 14, IsOutro: true},
		{NominalDuration: 6},
	}
	_, err := Compute(segs, 0.5, 14)
	assert.Error(t, err)
}

func TestOffsetsAreACopy(t *testing.T) {
	tl, err := Compute(segments(3, 6), 0.5, 14)
	require.NoError(t, err)
	offsets := tl.Offsets()
	offsets[0] = 999
	assert.Equal(t, 5.5, tl.Offsets()[0])
}
