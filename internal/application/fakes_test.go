package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/trailview/service-routes/internal/domain/profile"
	"github.com/trailview/service-routes/internal/domain/route"
)

type fakeSource struct {
	mu       sync.Mutex
	routes   []*route.Route
	features map[route.ID]*route.Feature
	gates    map[route.ID]chan struct{}
	started  chan route.ID
	listErr  error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		features: make(map[route.ID]*route.Feature),
		gates:    make(map[route.ID]chan struct{}),
		started:  make(chan route.ID, 16),
	}
}

func (s *fakeSource) add(id route.ID, attrs route.Attributes, path orb.LineString, payload []byte) {
	geom, err := route.NewGeometry(path, route.WGS84)
	if err != nil {
		panic(err)
	}
	attrs.Bound = geom.Bound()
	attrs.StartPoint = path[0]
	r := route.Reconstruct(id, attrs)
	s.routes = append(s.routes, r)
	s.features[id] = &route.Feature{Route: r, Geometry: geom, ProfilePayload: payload}
}

// gate makes the next FetchGeometry for id block until release is called.
func (s *fakeSource) gate(id route.ID) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[id] = ch
	s.mu.Unlock()
	return func() { close(ch) }
}

func (s *fakeSource) FetchAll(context.Context) ([]*route.Route, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.routes, nil
}

func (s *fakeSource) FetchGeometry(ctx context.Context, id route.ID) (*route.Feature, error) {
	s.mu.Lock()
	gate := s.gates[id]
	delete(s.gates, id)
	feature := s.features[id]
	s.mu.Unlock()

	s.started <- id
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return feature, nil
}

type fakeProfiles struct {
	mu    sync.Mutex
	err   error
	gates map[route.ID]chan struct{}
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{gates: make(map[route.ID]chan struct{})}
}

func (p *fakeProfiles) gate(id route.ID) (release func()) {
	ch := make(chan struct{})
	p.mu.Lock()
	p.gates[id] = ch
	p.mu.Unlock()
	return func() { close(ch) }
}

func (p *fakeProfiles) Profile(_ context.Context, feature *route.Feature) (profile.Series, error) {
	p.mu.Lock()
	gate := p.gates[feature.Route.ID()]
	delete(p.gates, feature.Route.ID())
	err := p.err
	p.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return profile.Series{Source: profile.SourceNone}, err
	}
	elevations := make([]float64, len(feature.Geometry.Path))
	for i := range elevations {
		elevations[i] = float64(feature.Route.ID())*100 + float64(i)
	}
	return profile.Series{Samples: profile.FromTerrain(feature.Geometry, elevations), Source: profile.SourceTerrain}, nil
}

var errProfile = errors.New("terrain unavailable")

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordedEvents struct {
	mu       sync.Mutex
	selected []RouteSelectedEvent
	cleared  []SelectionClearedEvent
	extents  []ExtentChangedEvent
	langs    []LanguageChangedEvent
}

func (r *recordedEvents) RouteSelected(e RouteSelectedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selected = append(r.selected, e)
}

func (r *recordedEvents) SelectionCleared(e SelectionClearedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared = append(r.cleared, e)
}

func (r *recordedEvents) ExtentChanged(e ExtentChangedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extents = append(r.extents, e)
}

func (r *recordedEvents) LanguageChanged(e LanguageChangedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.langs = append(r.langs, e)
}
