package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/trailview/service-routes/internal/domain/route"
)

// ErrElevationUnavailable is returned when neither a cached payload nor the terrain service yields a profile.
var ErrElevationUnavailable = errors.New("elevation data unavailable")

// TerrainService samples ground elevation along a WGS84 path.
type TerrainService interface {
	// SampleElevation returns one elevation in metres per vertex of path.
	SampleElevation(ctx context.Context, path orb.LineString) ([]float64, error)
}

// Builder produces elevation sample series for route geometries.
type Builder struct {
	terrain TerrainService
	logger  *zap.Logger
}

// NewBuilder creates a Builder. terrain may be nil, in which case only cached payloads are used.
func NewBuilder(terrain TerrainService, logger *zap.Logger) *Builder {
	return &Builder{terrain: terrain, logger: logger}
}

// Build returns the profile for geom, preferring the pre-computed payload and falling
// back to an on-demand terrain query.
func (b *Builder) Build(ctx context.Context, geom route.Geometry, payload []byte) (Series, error) {
	if geom.IsEmpty() {
		return Series{Source: SourceNone}, fmt.Errorf("%w: %v", ErrElevationUnavailable, route.ErrEmptyGeometry)
	}

	if len(payload) > 0 {
		points, err := ParsePayload(payload)
		if err == nil {
			return Series{Samples: FromPayload(geom, points), Source: SourceCached}, nil
		}
		b.logger.Warn("cached elevation profile rejected, querying terrain", zap.Error(err))
	}

	if b.terrain == nil {
		return Series{Source: SourceNone}, fmt.Errorf("%w: no terrain service configured", ErrElevationUnavailable)
	}

	elevations, err := b.terrain.SampleElevation(ctx, geom.LonLatPath())
	if err != nil {
		return Series{Source: SourceNone}, fmt.Errorf("%w: %v", ErrElevationUnavailable, err)
	}
	if len(elevations) != len(geom.Path) {
		return Series{Source: SourceNone}, fmt.Errorf("%w: terrain returned %d elevations for %d vertices",
			ErrElevationUnavailable, len(elevations), len(geom.Path))
	}

	return Series{Samples: FromTerrain(geom, elevations), Source: SourceTerrain}, nil
}

// FromPayload zips cached points with geometry vertices up to the shorter length.
// Coordinates come from the geometry, distance and elevation from the payload.
func FromPayload(geom route.Geometry, points []Point) []Sample {
	n := len(geom.Path)
	if len(points) < n {
		n = len(points)
	}
	samples := make([]Sample, n)
	for i := 0; i < n; i++ {
		samples[i] = Sample{
			DistanceKm: points[i][0],
			ElevationM: points[i][1],
			X:          geom.Path[i].X(),
			Y:          geom.Path[i].Y(),
		}
	}
	return samples
}

// FromTerrain accumulates geodesic segment lengths along geom and pairs each vertex with its elevation.
// elevations must be aligned 1:1 with the geometry's vertices.
func FromTerrain(geom route.Geometry, elevations []float64) []Sample {
	samples := make([]Sample, len(geom.Path))
	cumulativeM := 0.0
	for i, p := range geom.Path {
		if i > 0 {
			cumulativeM += geom.GeodesicDistance(geom.Path[i-1], p)
		}
		samples[i] = Sample{
			DistanceKm: cumulativeM / 1000,
			ElevationM: elevations[i],
			X:          p.X(),
			Y:          p.Y(),
		}
	}
	return samples
}
