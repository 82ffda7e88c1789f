package viewsync

import (
	"github.com/paulmach/orb"

	"github.com/trailview/service-routes/internal/domain/profile"
	"github.com/trailview/service-routes/internal/domain/route"
)

// DefaultHoverThresholdM is how far, in metres, the pointer may be from the route and
// still count as over it.
const DefaultHoverThresholdM = 100.0

// CursorSink receives the map cursor and chart highlight updates.
type CursorSink interface {
	PlaceCursorMarker(x, y float64)
	ClearCursorMarker()
	HighlightChartIndex(i int)
	ClearChartHighlight()
}

// Track is a read-only view of the selected route that cursor sync works against.
type Track struct {
	Geometry route.Geometry
	Samples  []profile.Sample
}

// HoverStatus is the outcome of a hover update.
type HoverStatus string

const (
	HoverOnRoute  HoverStatus = "on_route"
	HoverOffRoute HoverStatus = "off_route"
	HoverIgnored  HoverStatus = "ignored"
)

// HoverResult describes what a hover did.
type HoverResult struct {
	Status    HoverStatus `json:"status"`
	Index     int         `json:"index"`
	X         float64     `json:"x"`
	Y         float64     `json:"y"`
	DistanceM float64     `json:"distance_m"`
}

// CursorState is the marker state last pushed to the sink.
type CursorState struct {
	Placed    bool    `json:"placed"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Highlight int     `json:"highlight"`
}

// Cursor keeps one map cursor marker and one chart highlight consistent with each other.
// Updates overwrite; nothing is ever appended.
type Cursor struct {
	sink       CursorSink
	thresholdM float64
	state      CursorState
}

// NewCursor creates a cursor with no marker and no highlight.
func NewCursor(sink CursorSink, thresholdM float64) *Cursor {
	if thresholdM <= 0 {
		thresholdM = DefaultHoverThresholdM
	}
	return &Cursor{sink: sink, thresholdM: thresholdM, state: CursorState{Highlight: -1}}
}

// State returns the current marker state.
func (c *Cursor) State() CursorState { return c.state }

// OnChartHover moves the map cursor to the hovered sample and highlights it.
func (c *Cursor) OnChartHover(track *Track, index int) HoverResult {
	if track == nil || index < 0 || index >= len(track.Samples) {
		return HoverResult{Status: HoverIgnored, Index: -1}
	}
	s := track.Samples[index]
	c.place(s.X, s.Y)
	c.highlight(index)
	return HoverResult{Status: HoverOnRoute, Index: index, X: s.X, Y: s.Y}
}

// OnMapHover projects the pointer onto the route. Within the threshold it highlights the
// nearest sample and puts the cursor on the projected point; outside it clears the
// highlight and leaves the cursor where it was.
func (c *Cursor) OnMapHover(track *Track, p orb.Point) HoverResult {
	if track == nil || track.Geometry.IsEmpty() || len(track.Samples) == 0 {
		return HoverResult{Status: HoverIgnored, Index: -1}
	}

	nearest, _, ok := NearestOnPath(track.Geometry.Path, p)
	if !ok {
		return HoverResult{Status: HoverIgnored, Index: -1}
	}
	distance := track.Geometry.GeodesicDistance(p, nearest)
	if distance > c.thresholdM {
		c.clearHighlight()
		return HoverResult{Status: HoverOffRoute, Index: -1, DistanceM: distance}
	}

	idx := NearestSampleIndex(track.Samples, nearest)
	c.highlight(idx)
	c.place(nearest.X(), nearest.Y())
	return HoverResult{Status: HoverOnRoute, Index: idx, X: nearest.X(), Y: nearest.Y(), DistanceM: distance}
}

// Reset clears both markers.
func (c *Cursor) Reset() {
	if c.state.Placed {
		c.sink.ClearCursorMarker()
	}
	c.clearHighlight()
	c.state = CursorState{Highlight: -1}
}

func (c *Cursor) place(x, y float64) {
	if c.state.Placed && c.state.X == x && c.state.Y == y {
		return
	}
	c.state.Placed = true
	c.state.X = x
	c.state.Y = y
	c.sink.PlaceCursorMarker(x, y)
}

func (c *Cursor) highlight(i int) {
	if c.state.Highlight == i {
		return
	}
	c.state.Highlight = i
	c.sink.HighlightChartIndex(i)
}

func (c *Cursor) clearHighlight() {
	if c.state.Highlight < 0 {
		return
	}
	c.state.Highlight = -1
	c.sink.ClearChartHighlight()
}
