package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"gorm.io/gorm"

	"github.com/trailview/service-routes/internal/domain/route"
	"github.com/trailview/service-routes/internal/platform/apperror"
)

// RouteModel is the GORM model for the routes table. Coordinates are stored in the
// route's spatial reference.
type RouteModel struct {
	ID               int64           `gorm:"primaryKey;autoIncrement"`
	Name             string          `gorm:"not null;size:200"`
	DistanceKm       *float64        `gorm:""`
	ElevationGainM   *float64        `gorm:""`
	Difficulty       string          `gorm:"size:20;index"`
	Duration         string          `gorm:"size:50"`
	RegionCode       string          `gorm:"size:10;index"`
	Descriptions     json.RawMessage `gorm:"type:jsonb"`
	ImageURLs        json.RawMessage `gorm:"type:jsonb"`
	DownloadURL      string          `gorm:"size:500"`
	SpatialRef       int             `gorm:"not null;default:3857"`
	StartX           float64         `gorm:"not null;default:0"`
	StartY           float64         `gorm:"not null;default:0"`
	MinX             float64         `gorm:"not null;default:0"`
	MinY             float64         `gorm:"not null;default:0"`
	MaxX             float64         `gorm:"not null;default:0"`
	MaxY             float64         `gorm:"not null;default:0"`
	Geometry         json.RawMessage `gorm:"type:jsonb"`
	ElevationProfile json.RawMessage `gorm:"type:jsonb"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (RouteModel) TableName() string {
	return "routes"
}

// GormRouteRepository is the GORM-based implementation of route.Source.
type GormRouteRepository struct {
	db *gorm.DB
}

// NewGormRouteRepository creates a new GormRouteRepository.
func NewGormRouteRepository(db *gorm.DB) *GormRouteRepository {
	return &GormRouteRepository{db: db}
}

// AutoMigrate creates or updates the routes table.
func (r *GormRouteRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&RouteModel{})
}

// FetchAll returns every route's attributes ordered by id, without geometry.
func (r *GormRouteRepository) FetchAll(ctx context.Context) ([]*route.Route, error) {
	var models []RouteModel
	if err := r.db.WithContext(ctx).
		Omit("geometry", "elevation_profile").
		Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}

	routes := make([]*route.Route, 0, len(models))
	for i := range models {
		rt, err := toDomainRoute(&models[i])
		if err != nil {
			return nil, err
		}
		routes = append(routes, rt)
	}
	return routes, nil
}

// FetchGeometry returns the route with its geometry and stored profile payload, or nil
// when the route does not exist or has no usable geometry.
func (r *GormRouteRepository) FetchGeometry(ctx context.Context, id route.ID) (*route.Feature, error) {
	var model RouteModel
	if err := r.db.WithContext(ctx).Where("id = ?", int64(id)).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find route by ID: %w", err)
	}
	if len(model.Geometry) == 0 || string(model.Geometry) == "null" {
		return nil, nil
	}

	rt, err := toDomainRoute(&model)
	if err != nil {
		return nil, err
	}
	sr, err := route.ParseSpatialReference(model.SpatialRef)
	if err != nil {
		return nil, err
	}
	geom, err := route.GeometryFromGeoJSON(model.Geometry, sr)
	if errors.Is(err, route.ErrEmptyGeometry) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("route %d: %w", id, err)
	}

	return &route.Feature{Route: rt, Geometry: geom, ProfilePayload: model.ElevationProfile}, nil
}

// SaveProfile stores an encoded elevation profile for a route.
func (r *GormRouteRepository) SaveProfile(ctx context.Context, id route.ID, payload []byte) error {
	result := r.db.WithContext(ctx).
		Model(&RouteModel{}).
		Where("id = ?", int64(id)).
		Updates(map[string]interface{}{
			"elevation_profile": json.RawMessage(payload),
			"updated_at":        time.Now().UTC(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to save elevation profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NewNotFoundError("route", id.String())
	}
	return nil
}

// Create inserts a new route with its geometry and returns the assigned identity.
func (r *GormRouteRepository) Create(ctx context.Context, attrs route.Attributes, geom route.Geometry, payload []byte) (route.ID, error) {
	model, err := toRouteModel(0, attrs, geom, payload)
	if err != nil {
		return 0, fmt.Errorf("failed to convert route to model: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return 0, fmt.Errorf("failed to save route: %w", err)
	}
	return route.ID(model.ID), nil
}

func toDomainRoute(m *RouteModel) (*route.Route, error) {
	var descriptions map[string]string
	if len(m.Descriptions) > 0 && string(m.Descriptions) != "null" {
		if err := json.Unmarshal(m.Descriptions, &descriptions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal descriptions of route %d: %w", m.ID, err)
		}
	}
	var images []string
	if len(m.ImageURLs) > 0 && string(m.ImageURLs) != "null" {
		if err := json.Unmarshal(m.ImageURLs, &images); err != nil {
			return nil, fmt.Errorf("failed to unmarshal image urls of route %d: %w", m.ID, err)
		}
	}

	// Unrecognised labels are kept as unknown difficulty.
	difficulty, _ := route.ParseDifficulty(m.Difficulty)

	return route.Reconstruct(route.ID(m.ID), route.Attributes{
		Name:           m.Name,
		DistanceKm:     m.DistanceKm,
		ElevationGainM: m.ElevationGainM,
		Difficulty:     difficulty,
		Duration:       m.Duration,
		RegionCode:     m.RegionCode,
		Descriptions:   descriptions,
		ImageURLs:      images,
		DownloadURL:    m.DownloadURL,
		StartPoint:     orb.Point{m.StartX, m.StartY},
		Bound:          orb.Bound{Min: orb.Point{m.MinX, m.MinY}, Max: orb.Point{m.MaxX, m.MaxY}},
	}), nil
}

func toRouteModel(id route.ID, attrs route.Attributes, geom route.Geometry, payload []byte) (*RouteModel, error) {
	descriptions, err := json.Marshal(attrs.Descriptions)
	if err != nil {
		return nil, err
	}
	images, err := json.Marshal(attrs.ImageURLs)
	if err != nil {
		return nil, err
	}
	geometry, err := geom.GeoJSON()
	if err != nil {
		return nil, err
	}

	bound := attrs.Bound
	if bound.IsZero() {
		bound = geom.Bound()
	}
	start := attrs.StartPoint
	if start == (orb.Point{}) && len(geom.Path) > 0 {
		start = geom.Path[0]
	}

	now := time.Now().UTC()
	m := &RouteModel{
		ID:             int64(id),
		Name:           attrs.Name,
		DistanceKm:     attrs.DistanceKm,
		ElevationGainM: attrs.ElevationGainM,
		Difficulty:     attrs.Difficulty.String(),
		Duration:       attrs.Duration,
		RegionCode:     attrs.RegionCode,
		Descriptions:   descriptions,
		ImageURLs:      images,
		DownloadURL:    attrs.DownloadURL,
		SpatialRef:     int(geom.SR),
		StartX:         start.X(),
		StartY:         start.Y(),
		MinX:           bound.Min.X(),
		MinY:           bound.Min.Y(),
		MaxX:           bound.Max.X(),
		MaxY:           bound.Max.Y(),
		Geometry:       geometry,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if len(payload) > 0 {
		m.ElevationProfile = payload
	}
	return m, nil
}
