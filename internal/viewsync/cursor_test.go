package viewsync

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailview/service-routes/internal/domain/profile"
	"github.com/trailview/service-routes/internal/domain/route"
)

type cursorCall struct {
	op   string
	x, y float64
	i    int
}

type recordingCursorSink struct {
	calls []cursorCall
}

func (s *recordingCursorSink) PlaceCursorMarker(x, y float64) {
	s.calls = append(s.calls, cursorCall{op: "place", x: x, y: y})
}
func (s *recordingCursorSink) ClearCursorMarker() { s.calls = append(s.calls, cursorCall{op: "clear"}) }
func (s *recordingCursorSink) HighlightChartIndex(i int) {
	s.calls = append(s.calls, cursorCall{op: "highlight", i: i})
}
func (s *recordingCursorSink) ClearChartHighlight() {
	s.calls = append(s.calls, cursorCall{op: "unhighlight"})
}

// testTrack is a straight line along the equator, roughly 556 m between vertices.
func testTrack(t *testing.T) *Track {
	t.Helper()
	geom, err := route.NewGeometry(orb.LineString{{0, 0}, {0.005, 0}, {0.01, 0}}, route.WGS84)
	require.NoError(t, err)
	return &Track{
		Geometry: geom,
		Samples:  profile.FromTerrain(geom, []float64{100, 120, 110}),
	}
}

func TestCursor_ChartHoverPlacesCursorAtSample(t *testing.T) {
	sink := &recordingCursorSink{}
	c := NewCursor(sink, DefaultHoverThresholdM)

	res := c.OnChartHover(testTrack(t), 2)

	assert.Equal(t, HoverOnRoute, res.Status)
	assert.Equal(t, CursorState{Placed: true, X: 0.01, Y: 0, Highlight: 2}, c.State())
}

func TestCursor_ChartHoverOutOfRangeIgnored(t *testing.T) {
	sink := &recordingCursorSink{}
	c := NewCursor(sink, DefaultHoverThresholdM)

	assert.Equal(t, HoverIgnored, c.OnChartHover(testTrack(t), 3).Status)
	assert.Equal(t, HoverIgnored, c.OnChartHover(testTrack(t), -1).Status)
	assert.Empty(t, sink.calls)
}

func TestCursor_MapHoverWithinThresholdProjectsOntoPath(t *testing.T) {
	sink := &recordingCursorSink{}
	c := NewCursor(sink, DefaultHoverThresholdM)

	// About 55 m north of the middle vertex.
	res := c.OnMapHover(testTrack(t), orb.Point{0.0049, 0.0005})

	require.Equal(t, HoverOnRoute, res.Status)
	assert.Equal(t, 1, res.Index)
	assert.InDelta(t, 0.0049, res.X, 1e-12)
	assert.InDelta(t, 0, res.Y, 1e-12)
	assert.InDelta(t, 55.6, res.DistanceM, 1)

	st := c.State()
	assert.Equal(t, 1, st.Highlight)
	assert.InDelta(t, 0.0049, st.X, 1e-12)
}

func TestCursor_MapHoverBeyondThresholdClearsHighlightOnly(t *testing.T) {
	sink := &recordingCursorSink{}
	c := NewCursor(sink, DefaultHoverThresholdM)
	track := testTrack(t)

	c.OnChartHover(track, 1)
	res := c.OnMapHover(track, orb.Point{0.005, 0.002})

	assert.Equal(t, HoverOffRoute, res.Status)
	assert.Greater(t, res.DistanceM, DefaultHoverThresholdM)
	st := c.State()
	assert.Equal(t, -1, st.Highlight)
	assert.True(t, st.Placed, "cursor marker is left in place")
	assert.Equal(t, cursorCall{op: "unhighlight"}, sink.calls[len(sink.calls)-1])
}

func TestCursor_RoundTripChartToMap(t *testing.T) {
	track := testTrack(t)
	for i, s := range track.Samples {
		c := NewCursor(&recordingCursorSink{}, DefaultHoverThresholdM)
		c.OnChartHover(track, i)
		res := c.OnMapHover(track, orb.Point{s.X, s.Y})
		assert.Equal(t, i, res.Index)
	}
}

func TestCursor_RepeatedHoverIsIdempotent(t *testing.T) {
	sink := &recordingCursorSink{}
	c := NewCursor(sink, DefaultHoverThresholdM)
	track := testTrack(t)
	p := orb.Point{0.002, 0.0001}

	c.OnMapHover(track, p)
	first := c.State()
	calls := len(sink.calls)
	c.OnMapHover(track, p)

	assert.Equal(t, first, c.State())
	assert.Len(t, sink.calls, calls, "identical input must not push new marker commands")
}

func TestCursor_HoverWithoutSamplesIgnored(t *testing.T) {
	sink := &recordingCursorSink{}
	c := NewCursor(sink, DefaultHoverThresholdM)
	track := testTrack(t)
	track.Samples = nil

	assert.Equal(t, HoverIgnored, c.OnMapHover(track, orb.Point{0, 0}).Status)
	assert.Equal(t, HoverIgnored, c.OnMapHover(nil, orb.Point{0, 0}).Status)
	assert.Empty(t, sink.calls)
}

func TestCursor_Reset(t *testing.T) {
	sink := &recordingCursorSink{}
	c := NewCursor(sink, DefaultHoverThresholdM)
	c.OnChartHover(testTrack(t), 0)

	c.Reset()

	assert.Equal(t, CursorState{Highlight: -1}, c.State())
	assert.Equal(t, []cursorCall{{op: "clear"}, {op: "unhighlight"}}, sink.calls[len(sink.calls)-2:])
}

func TestNearestOnPath_ClampsToEndpoints(t *testing.T) {
	path := orb.LineString{{0, 0}, {10, 0}}

	p, seg, ok := NearestOnPath(path, orb.Point{-5, 3})
	require.True(t, ok)
	assert.Equal(t, orb.Point{0, 0}, p)
	assert.Equal(t, 0, seg)

	p, _, _ = NearestOnPath(path, orb.Point{15, -3})
	assert.Equal(t, orb.Point{10, 0}, p)

	_, _, ok = NearestOnPath(nil, orb.Point{})
	assert.False(t, ok)
}
