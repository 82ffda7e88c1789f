package presentation

import (
	"github.com/paulmach/orb"

	"github.com/trailview/service-routes/internal/domain/profile"
	"github.com/trailview/service-routes/internal/domain/route"
	"github.com/trailview/service-routes/internal/viewsync"
)

// Sink receives presentation commands from a browse session. Implementations must not
// block: they are called while the session holds its turn.
type Sink interface {
	viewsync.CursorSink

	// Render replaces the route list.
	Render(routes []RouteView)
	// RenderDetails shows one route's details; nil clears the panel.
	RenderDetails(view *RouteView)
	DrawChart(samples []profile.Sample)
	ClearChart()
	ShowProfileUnavailable(id route.ID)
	// FitBounds asks the map to navigate so that b is fully visible.
	FitBounds(b orb.Bound)
}

// RouteView is a route rendered for one display language.
type RouteView struct {
	ID              route.ID `json:"id"`
	Name            string   `json:"name"`
	DistanceKm      *float64 `json:"distance_km,omitempty"`
	ElevationGainM  *float64 `json:"elevation_gain_m,omitempty"`
	Difficulty      string   `json:"difficulty"`
	DifficultyLabel string   `json:"difficulty_label"`
	Duration        string   `json:"duration,omitempty"`
	RegionCode      string   `json:"region_code,omitempty"`
	Description     string   `json:"description,omitempty"`
	ImageURLs       []string `json:"image_urls,omitempty"`
	DownloadURL     string   `json:"download_url,omitempty"`
	StartX          float64  `json:"start_x"`
	StartY          float64  `json:"start_y"`
}

// NewRouteView renders r for lang. Missing descriptions fall back to the default language.
func NewRouteView(r *route.Route, lang string) RouteView {
	v := RouteView{
		ID:              r.ID(),
		Name:            r.Name(),
		ElevationGainM:  r.ElevationGainM(),
		Difficulty:      r.Difficulty().String(),
		DifficultyLabel: DifficultyLabel(r.Difficulty(), lang),
		Duration:        r.Duration(),
		RegionCode:      r.RegionCode(),
		Description:     r.Description(lang),
		ImageURLs:       r.ImageURLs(),
		DownloadURL:     r.DownloadURL(),
		StartX:          r.StartPoint().X(),
		StartY:          r.StartPoint().Y(),
	}
	if d, ok := r.DistanceKm(); ok {
		v.DistanceKm = &d
	}
	if v.Description == "" {
		v.Description = r.Description(DefaultLanguage)
	}
	return v
}

// NewRouteViews renders routes for lang, keeping order.
func NewRouteViews(routes []*route.Route, lang string) []RouteView {
	out := make([]RouteView, len(routes))
	for i, r := range routes {
		out[i] = NewRouteView(r, lang)
	}
	return out
}

// Tee forwards every command to each sink in order.
type Tee []Sink

func (t Tee) Render(routes []RouteView) {
	for _, s := range t {
		s.Render(routes)
	}
}

func (t Tee) RenderDetails(view *RouteView) {
	for _, s := range t {
		s.RenderDetails(view)
	}
}

func (t Tee) DrawChart(samples []profile.Sample) {
	for _, s := range t {
		s.DrawChart(samples)
	}
}

func (t Tee) ClearChart() {
	for _, s := range t {
		s.ClearChart()
	}
}

func (t Tee) ShowProfileUnavailable(id route.ID) {
	for _, s := range t {
		s.ShowProfileUnavailable(id)
	}
}

func (t Tee) FitBounds(b orb.Bound) {
	for _, s := range t {
		s.FitBounds(b)
	}
}

func (t Tee) PlaceCursorMarker(x, y float64) {
	for _, s := range t {
		s.PlaceCursorMarker(x, y)
	}
}

func (t Tee) ClearCursorMarker() {
	for _, s := range t {
		s.ClearCursorMarker()
	}
}

func (t Tee) HighlightChartIndex(i int) {
	for _, s := range t {
		s.HighlightChartIndex(i)
	}
}

func (t Tee) ClearChartHighlight() {
	for _, s := range t {
		s.ClearChartHighlight()
	}
}
