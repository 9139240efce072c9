package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHaversine(t *testing.T) {
	// Belfast City Hall to Queen's University, roughly 1.9 km
	d := Haversine(54.5964, -5.9301, 54.5845, -5.9340)
	assert.InDelta(t, 1350, d, 50)

	assert.Zero(t, Haversine(54.6, -5.9, 54.6, -5.9))
}

func TestLineLength(t *testing.T) {
	line := Line{
		{Lon: -5.93, Lat: 54.59},
		{Lon: -5.93, Lat: 54.60},
		{Lon: -5.93, Lat: 54.61},
	}
	// two segments of one hundredth of a degree of latitude each
	assert.InDelta(t, 2224, line.Length(), 10)

	assert.Zero(t, Line{{Lon: -5.93, Lat: 54.59}}.Length())
	assert.Zero(t, Line(nil).Length())
}

func TestProject(t *testing.T) {
	line := Line{
		{Lon: 0, Lat: 0},
		{Lon: 0, Lat: 0.01},
		{Lon: 0, Lat: 0.02},
	}
	total := line.Length()

	assert.Zero(t, line.Project(Point{Lon: 0.001, Lat: -0.01}))
	assert.InDelta(t, total, line.Project(Point{Lon: 0.001, Lat: 0.05}), 1)

	// a point beside the middle vertex lands halfway along
	mid := line.Project(Point{Lon: 0.001, Lat: 0.01})
	assert.InDelta(t, total/2, mid, 1)
}

func TestSubstring(t *testing.T) {
	line := Line{
		{Lon: 0, Lat: 0},
		{Lon: 0, Lat: 0.01},
		{Lon: 0, Lat: 0.02},
	}
	total := line.Length()

	sub, ok := line.Substring(0, total/2)
	require.True(t, ok)
	require.Len(t, sub, 2)
	assert.InDelta(t, 0, sub[0].Lat, 1e-9)
	assert.InDelta(t, 0.01, sub[1].Lat, 1e-6)

	// interior slice spanning the middle vertex
	sub, ok = line.Substring(total/4, 3*total/4)
	require.True(t, ok)
	require.Len(t, sub, 3)
	assert.InDelta(t, 0.005, sub[0].Lat, 1e-6)
	assert.InDelta(t, 0.01, sub[1].Lat, 1e-6)
	assert.InDelta(t, 0.015, sub[2].Lat, 1e-6)
}

func TestSubstringReversed(t *testing.T) {
	line := Line{
		{Lon: 0, Lat: 0},
		{Lon: 0, Lat: 0.02},
	}
	total := line.Length()

	sub, ok := line.Substring(total, 0)
	require.True(t, ok)
	require.Len(t, sub, 2)
	assert.InDelta(t, 0.02, sub[0].Lat, 1e-6)
	assert.InDelta(t, 0, sub[1].Lat, 1e-9)
}

func TestSubstringDegenerate(t *testing.T) {
	line := Line{
		{Lon: 0, Lat: 0},
		{Lon: 0, Lat: 0.02},
	}

	_, ok := line.Substring(100, 100)
	assert.False(t, ok)

	_, ok = Line{{Lon: 0, Lat: 0}}.Substring(0, 10)
	assert.False(t, ok)
}
