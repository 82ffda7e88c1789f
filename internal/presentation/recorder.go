package presentation

import (
	"sync"

	"github.com/paulmach/orb"

	"github.com/trailview/service-routes/internal/domain/profile"
	"github.com/trailview/service-routes/internal/domain/route"
)

// Extent is a bound as [minX, minY, maxX, maxY].
type Extent [4]float64

// ExtentOf converts an orb bound.
func ExtentOf(b orb.Bound) Extent {
	return Extent{b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()}
}

// Bound converts back to an orb bound.
func (e Extent) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{e[0], e[1]}, Max: orb.Point{e[2], e[3]}}
}

// State is what a client currently displays.
type State struct {
	List               []RouteView      `json:"list"`
	RenderCount        int              `json:"render_count"`
	Details            *RouteView       `json:"details"`
	Chart              []profile.Sample `json:"chart"`
	ProfileUnavailable *route.ID        `json:"profile_unavailable,omitempty"`
	CursorPlaced       bool             `json:"cursor_placed"`
	CursorX            float64          `json:"cursor_x"`
	CursorY            float64          `json:"cursor_y"`
	Highlight          int              `json:"highlight"`
	FitBounds          *Extent          `json:"fit_bounds,omitempty"`
}

// Recorder is a Sink that keeps the last displayed state.
type Recorder struct {
	mu    sync.Mutex
	state State
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{state: State{List: []RouteView{}, Highlight: -1}}
}

// State returns a copy of the current state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.state
	st.List = append([]RouteView(nil), r.state.List...)
	st.Chart = append([]profile.Sample(nil), r.state.Chart...)
	if r.state.Details != nil {
		d := *r.state.Details
		st.Details = &d
	}
	return st
}

func (r *Recorder) Render(routes []RouteView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.List = append([]RouteView{}, routes...)
	r.state.RenderCount++
}

func (r *Recorder) RenderDetails(view *RouteView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if view == nil {
		r.state.Details = nil
		return
	}
	v := *view
	r.state.Details = &v
}

func (r *Recorder) DrawChart(samples []profile.Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Chart = append([]profile.Sample(nil), samples...)
	r.state.ProfileUnavailable = nil
}

func (r *Recorder) ClearChart() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Chart = nil
	r.state.ProfileUnavailable = nil
}

func (r *Recorder) ShowProfileUnavailable(id route.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Chart = nil
	r.state.ProfileUnavailable = &id
}

func (r *Recorder) FitBounds(b orb.Bound) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := ExtentOf(b)
	r.state.FitBounds = &e
}

func (r *Recorder) PlaceCursorMarker(x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.CursorPlaced = true
	r.state.CursorX = x
	r.state.CursorY = y
}

func (r *Recorder) ClearCursorMarker() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.CursorPlaced = false
	r.state.CursorX = 0
	r.state.CursorY = 0
}

func (r *Recorder) HighlightChartIndex(i int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Highlight = i
}

func (r *Recorder) ClearChartHighlight() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.Highlight = -1
}
