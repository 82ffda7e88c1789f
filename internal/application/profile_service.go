package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/trailview/service-routes/internal/domain/profile"
	"github.com/trailview/service-routes/internal/domain/route"
	"github.com/trailview/service-routes/internal/metrics"
	"github.com/trailview/service-routes/internal/platform/apperror"
)

// ProfileProvider builds the elevation profile of a fetched route.
type ProfileProvider interface {
	Profile(ctx context.Context, feature *route.Feature) (profile.Series, error)
}

// ProfileCache caches encoded payloads of terrain-built profiles.
type ProfileCache interface {
	Get(ctx context.Context, id route.ID) ([]byte, error)
	Set(ctx context.Context, id route.ID, payload []byte) error
	Invalidate(ctx context.Context, ids ...route.ID) error
}

// PayloadStore persists pre-computed profile payloads alongside route records.
type PayloadStore interface {
	SaveProfile(ctx context.Context, id route.ID, payload []byte) error
}

// ProfileService resolves profiles from the stored payload, the cache, then terrain.
type ProfileService struct {
	source  route.Source
	builder *profile.Builder
	cache   ProfileCache
	logger  *zap.Logger
}

// NewProfileService creates a ProfileService. cache may be nil.
func NewProfileService(source route.Source, builder *profile.Builder, cache ProfileCache, logger *zap.Logger) *ProfileService {
	return &ProfileService{source: source, builder: builder, cache: cache, logger: logger}
}

// Profile builds the series for an already fetched feature.
func (s *ProfileService) Profile(ctx context.Context, feature *route.Feature) (profile.Series, error) {
	start := time.Now()
	id := feature.Route.ID()

	payload := feature.ProfilePayload
	if len(payload) == 0 && s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.Warn("profile cache unavailable", zap.Int64("route_id", int64(id)), zap.Error(err))
		}
		payload = cached
	}

	series, err := s.builder.Build(ctx, feature.Geometry, payload)
	if err != nil {
		s.logger.Info("no elevation profile for route", zap.Int64("route_id", int64(id)), zap.Error(err))
		return series, err
	}
	metrics.ProfileBuildDurationMs.WithLabelValues(string(series.Source)).
		Observe(float64(time.Since(start).Milliseconds()))

	// Cache terrain-built profiles
	if series.Source == profile.SourceTerrain && s.cache != nil {
		encoded, err := profile.EncodePayload(series.Samples)
		if err == nil {
			err = s.cache.Set(ctx, id, encoded)
		}
		if err != nil {
			s.logger.Warn("failed to cache terrain profile", zap.Int64("route_id", int64(id)), zap.Error(err))
		}
	}
	return series, nil
}

// RouteProfile fetches a route and builds its profile.
func (s *ProfileService) RouteProfile(ctx context.Context, id route.ID) (*route.Feature, profile.Series, error) {
	feature, err := fetchFeature(ctx, s.source, id)
	if err != nil {
		return nil, profile.Series{}, err
	}
	series, err := s.Profile(ctx, feature)
	if errors.Is(err, profile.ErrElevationUnavailable) {
		return feature, series, apperror.NewUnavailableError("elevation profile unavailable", err)
	}
	return feature, series, err
}

// BackfillReport summarizes a backfill run.
type BackfillReport struct {
	Updated int
	Skipped int
	Failed  int
}

// Backfill computes terrain profiles for routes without a stored payload and persists
// them. With force set every route is recomputed.
func (s *ProfileService) Backfill(ctx context.Context, store PayloadStore, force bool) (BackfillReport, error) {
	var report BackfillReport

	routes, err := s.source.FetchAll(ctx)
	if err != nil {
		return report, apperror.NewUnavailableError("failed to list routes", err)
	}

	for _, r := range routes {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		feature, err := s.source.FetchGeometry(ctx, r.ID())
		if err != nil || feature == nil || feature.Geometry.IsEmpty() {
			s.logger.Warn("skipping route without geometry", zap.Int64("route_id", int64(r.ID())), zap.Error(err))
			report.Failed++
			continue
		}
		if !force && len(feature.ProfilePayload) > 0 {
			if _, err := profile.ParsePayload(feature.ProfilePayload); err == nil {
				report.Skipped++
				continue
			}
		}

		series, err := s.builder.Build(ctx, feature.Geometry, nil)
		if err != nil {
			s.logger.Warn("terrain profile failed", zap.Int64("route_id", int64(r.ID())), zap.Error(err))
			report.Failed++
			continue
		}
		payload, err := profile.EncodePayload(series.Samples)
		if err != nil {
			report.Failed++
			continue
		}
		if err := store.SaveProfile(ctx, r.ID(), payload); err != nil {
			return report, err
		}
		if s.cache != nil {
			if err := s.cache.Invalidate(ctx, r.ID()); err != nil {
				s.logger.Warn("failed to invalidate cached profile", zap.Int64("route_id", int64(r.ID())), zap.Error(err))
			}
		}

		s.logger.Info("stored elevation profile",
			zap.Int64("route_id", int64(r.ID())),
			zap.Int("samples", series.Len()),
		)
		report.Updated++
	}
	return report, nil
}

func fetchFeature(ctx context.Context, source route.Source, id route.ID) (*route.Feature, error) {
	feature, err := source.FetchGeometry(ctx, id)
	if err != nil {
		return nil, apperror.NewUnavailableError("failed to fetch route geometry", err)
	}
	if feature == nil || feature.Route == nil || feature.Geometry.IsEmpty() {
		return nil, apperror.NewNotFoundError("route geometry", id.String())
	}
	return feature, nil
}
