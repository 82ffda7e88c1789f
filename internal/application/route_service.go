package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/trailview/service-routes/internal/domain/profile"
	"github.com/trailview/service-routes/internal/domain/route"
	"github.com/trailview/service-routes/internal/platform/apperror"
	"github.com/trailview/service-routes/internal/presentation"
)

// RouteDetailDTO is a route with its geometry as GeoJSON.
type RouteDetailDTO struct {
	presentation.RouteView
	SpatialReference int             `json:"spatial_reference"`
	Geometry         json.RawMessage `json:"geometry"`
	HasProfile       bool            `json:"has_profile"`
}

// ProfileDTO is a route's elevation profile.
type ProfileDTO struct {
	RouteID route.ID         `json:"route_id"`
	Source  profile.Source   `json:"source"`
	Samples []profile.Sample `json:"samples"`
	Stats   profile.Stats    `json:"stats"`
}

// RouteService serves stateless catalog queries.
type RouteService struct {
	catalog  *Catalog
	source   route.Source
	profiles *ProfileService
	logger   *zap.Logger
}

// NewRouteService creates a RouteService.
func NewRouteService(catalog *Catalog, source route.Source, profiles *ProfileService, logger *zap.Logger) *RouteService {
	return &RouteService{catalog: catalog, source: source, profiles: profiles, logger: logger}
}

// ListRoutes filters the catalog.
func (s *RouteService) ListRoutes(req FilterRequest, lang string) ([]presentation.RouteView, error) {
	criteria, err := req.ToCriteria()
	if err != nil {
		return nil, err
	}
	routes := criteria.Evaluate(s.catalog.Snapshot().Routes)
	return presentation.NewRouteViews(routes, presentation.NegotiateLanguage(lang)), nil
}

// GetRoute returns a route with its geometry.
func (s *RouteService) GetRoute(ctx context.Context, id route.ID, lang string) (*RouteDetailDTO, error) {
	feature, err := fetchFeature(ctx, s.source, id)
	if err != nil {
		return nil, err
	}
	raw, err := feature.Geometry.GeoJSON()
	if err != nil {
		return nil, err
	}
	return &RouteDetailDTO{
		RouteView:        presentation.NewRouteView(feature.Route, presentation.NegotiateLanguage(lang)),
		SpatialReference: int(feature.Geometry.SR),
		Geometry:         raw,
		HasProfile:       len(feature.ProfilePayload) > 0,
	}, nil
}

// GetProfile returns the elevation profile of a route.
func (s *RouteService) GetProfile(ctx context.Context, id route.ID) (*ProfileDTO, error) {
	_, series, err := s.profiles.RouteProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ProfileDTO{RouteID: id, Source: series.Source, Samples: series.Samples, Stats: series.Summarize()}, nil
}

// WriteProfilePNG renders the profile chart of a route.
func (s *RouteService) WriteProfilePNG(ctx context.Context, w io.Writer, id route.ID, opts presentation.ChartOptions) error {
	feature, series, err := s.profiles.RouteProfile(ctx, id)
	if err != nil {
		return err
	}
	if opts.Title == "" {
		opts.Title = feature.Route.Name()
	}
	if err := presentation.RenderProfilePNG(w, series, opts); err != nil {
		if errors.Is(err, presentation.ErrNotEnoughSamples) {
			return apperror.NewConflictError(err.Error())
		}
		return err
	}
	return nil
}

// ExportGPX returns the route as a GPX document. Elevations are included when a profile
// can be built.
func (s *RouteService) ExportGPX(ctx context.Context, id route.ID) (string, []byte, error) {
	feature, series, err := s.profiles.RouteProfile(ctx, id)
	if err != nil && feature == nil {
		return "", nil, err
	}
	if err != nil {
		s.logger.Info("exporting gpx without elevations", zap.Int64("route_id", int64(id)), zap.Error(err))
	}
	data, err := presentation.ExportGPX(feature.Route, feature.Geometry, series.Samples)
	if err != nil {
		return "", nil, err
	}
	return feature.Route.Name(), data, nil
}
