package application

import (
	"context"
	"io"
	"math"

	"go.uber.org/zap"

	"github.com/trailview/service-routes/internal/domain/profile"
	"github.com/trailview/service-routes/internal/domain/route"
	"github.com/trailview/service-routes/internal/platform/apperror"
	"github.com/trailview/service-routes/internal/presentation"
)

// RouteWriter persists new route records.
type RouteWriter interface {
	Create(ctx context.Context, attrs route.Attributes, geom route.Geometry, payload []byte) (route.ID, error)
}

// ImportOptions carries the attributes a GPX file does not.
type ImportOptions struct {
	Name             string
	Difficulty       route.Difficulty
	RegionCode       string
	Description      string
	Language         string
	SpatialReference route.SpatialReference
}

// ImportResult describes a created route.
type ImportResult struct {
	ID         route.ID
	Name       string
	DistanceKm float64
	Vertices   int
	HasProfile bool
}

// RouteImporter seeds the catalog from GPX tracks.
type RouteImporter struct {
	writer RouteWriter
	logger *zap.Logger
}

// NewRouteImporter creates a RouteImporter.
func NewRouteImporter(writer RouteWriter, logger *zap.Logger) *RouteImporter {
	return &RouteImporter{writer: writer, logger: logger}
}

// Import reads the first track of a GPX document and stores it as a new route. Track
// elevations become the stored profile.
func (i *RouteImporter) Import(ctx context.Context, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	track, err := presentation.ImportGPX(r)
	if err != nil {
		return nil, apperror.NewValidationError(err.Error())
	}

	sr := opts.SpatialReference
	if sr == 0 {
		sr = route.WebMercator
	}
	frame := route.Geometry{SR: sr}
	mapPath := track.Path.Clone()
	for k, p := range mapPath {
		mapPath[k] = frame.FromLonLat(p)
	}
	geom, err := route.NewGeometry(mapPath, sr)
	if err != nil {
		return nil, apperror.NewValidationError(err.Error())
	}

	elevations := track.Elevations
	if !track.HasElevation {
		elevations = make([]float64, len(geom.Path))
	}
	series := profile.Series{Samples: profile.FromTerrain(geom, elevations)}
	stats := series.Summarize()
	distanceKm := math.Round(stats.TotalKm*100) / 100

	attrs := route.Attributes{
		Name:       track.Name,
		DistanceKm: &distanceKm,
		Difficulty: opts.Difficulty,
		RegionCode: opts.RegionCode,
		StartPoint: geom.Path[0],
		Bound:      geom.Bound(),
	}
	if opts.Name != "" {
		attrs.Name = opts.Name
	}
	if attrs.Name == "" {
		return nil, apperror.NewValidationError("gpx track has no name, set one explicitly")
	}
	if opts.Description != "" {
		lang := opts.Language
		if lang == "" {
			lang = presentation.DefaultLanguage
		}
		attrs.Descriptions = map[string]string{lang: opts.Description}
	}

	var payload []byte
	if track.HasElevation {
		gain := math.Round(stats.GainM)
		attrs.ElevationGainM = &gain
		if payload, err = profile.EncodePayload(series.Samples); err != nil {
			return nil, err
		}
	}

	// Persist the route
	id, err := i.writer.Create(ctx, attrs, geom, payload)
	if err != nil {
		return nil, err
	}

	i.logger.Info("route imported from gpx",
		zap.Int64("route_id", int64(id)),
		zap.String("name", attrs.Name),
		zap.Int("vertices", len(geom.Path)),
		zap.Bool("profile", payload != nil),
	)

	return &ImportResult{
		ID:         id,
		Name:       attrs.Name,
		DistanceKm: distanceKm,
		Vertices:   len(geom.Path),
		HasProfile: payload != nil,
	}, nil
}
