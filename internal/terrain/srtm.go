package terrain

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/tkrajina/go-elevations/geoelevations"
	"go.uber.org/zap"
)

// ElevationLookup returns the ground elevation at a WGS84 position.
type ElevationLookup interface {
	GetElevation(client *http.Client, latitude, longitude float64) (float64, error)
}

// SRTM samples elevations from SRTM tiles, downloading and caching them on first use.
// Each 1x1 degree tile has its own lookup and lock, so a cold tile download only
// stalls queries that touch the same tile.
type SRTM struct {
	mu        sync.Mutex
	tiles     map[tileKey]*tile
	newLookup func() (ElevationLookup, error)
	client    *http.Client
	logger    *zap.Logger
}

type tileKey struct{ lat, lon int }

type tile struct {
	mu     sync.Mutex
	lookup ElevationLookup
}

// NewSRTM creates a terrain service backed by the public SRTM tile set.
func NewSRTM(timeout time.Duration, logger *zap.Logger) (*SRTM, error) {
	client := &http.Client{Timeout: timeout}
	newLookup := func() (ElevationLookup, error) {
		srtm, err := geoelevations.NewSrtm(client)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize srtm: %w", err)
		}
		return srtm, nil
	}
	if _, err := newLookup(); err != nil {
		return nil, err
	}
	return NewSRTMWithLookups(newLookup, client, logger), nil
}

// NewSRTMWithLookup wraps an existing lookup that is safe for concurrent use.
func NewSRTMWithLookup(lookup ElevationLookup, client *http.Client, logger *zap.Logger) *SRTM {
	return NewSRTMWithLookups(func() (ElevationLookup, error) { return lookup, nil }, client, logger)
}

// NewSRTMWithLookups creates one lookup per tile with newLookup.
func NewSRTMWithLookups(newLookup func() (ElevationLookup, error), client *http.Client, logger *zap.Logger) *SRTM {
	return &SRTM{
		tiles:     make(map[tileKey]*tile),
		newLookup: newLookup,
		client:    client,
		logger:    logger,
	}
}

// SampleElevation returns one elevation per vertex of a lon/lat path.
func (s *SRTM) SampleElevation(ctx context.Context, path orb.LineString) ([]float64, error) {
	out := make([]float64, len(path))
	for i, p := range path {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e, err := s.elevation(p)
		if err != nil {
			return nil, fmt.Errorf("failed to sample elevation at vertex %d: %w", i, err)
		}
		if math.IsNaN(e) {
			return nil, fmt.Errorf("no elevation data at vertex %d (%.5f, %.5f)", i, p.Lat(), p.Lon())
		}
		out[i] = e
	}
	s.logger.Debug("sampled terrain elevations", zap.Int("vertices", len(path)))
	return out, nil
}

func (s *SRTM) elevation(p orb.Point) (float64, error) {
	key := tileKey{lat: int(math.Floor(p.Lat())), lon: int(math.Floor(p.Lon()))}

	s.mu.Lock()
	t, ok := s.tiles[key]
	if !ok {
		t = &tile{}
		s.tiles[key] = t
	}
	s.mu.Unlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lookup == nil {
		lookup, err := s.newLookup()
		if err != nil {
			return 0, err
		}
		t.lookup = lookup
	}
	return t.lookup.GetElevation(s.client, p.Lat(), p.Lon())
}
