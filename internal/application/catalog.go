package application

import (
	"context"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/trailview/service-routes/internal/domain/route"
)

// SpatialIndex answers which routes intersect a viewport extent.
type SpatialIndex interface {
	VisibleIDs(ctx context.Context, extent orb.Bound) ([]route.ID, error)
}

// Snapshot is an immutable view of the catalog at one point in time.
type Snapshot struct {
	Routes   []*route.Route
	Index    *CatalogIndex
	LoadedAt time.Time
}

// Find returns the route with id.
func (s Snapshot) Find(id route.ID) (*route.Route, bool) {
	for _, r := range s.Routes {
		if r.ID() == id {
			return r, true
		}
	}
	return nil, false
}

// Catalog holds the route collection loaded from the source.
type Catalog struct {
	source route.Source
	logger *zap.Logger

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewCatalog creates an empty catalog.
func NewCatalog(source route.Source, logger *zap.Logger) *Catalog {
	return &Catalog{
		source:   source,
		logger:   logger,
		snapshot: Snapshot{Routes: []*route.Route{}, Index: NewCatalogIndex(nil)},
	}
}

// Load fetches the collection. A failing source degrades to an empty catalog.
func (c *Catalog) Load(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		c.logger.Error("route source unavailable, serving empty catalog", zap.Error(err))
	}
}

// Refresh replaces the snapshot. On error the previous snapshot is kept. Sessions that
// already hold a snapshot keep it.
func (c *Catalog) Refresh(ctx context.Context) error {
	routes, err := c.source.FetchAll(ctx)
	if err != nil {
		return err
	}
	if routes == nil {
		routes = []*route.Route{}
	}

	snap := Snapshot{Routes: routes, Index: NewCatalogIndex(routes), LoadedAt: time.Now()}
	c.mu.Lock()
	c.snapshot = snap
	c.mu.Unlock()

	c.logger.Info("route catalog loaded", zap.Int("routes", len(routes)))
	return nil
}

// Snapshot returns the current snapshot.
func (c *Catalog) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// CatalogIndex is an in-process SpatialIndex over a fixed route collection.
type CatalogIndex struct {
	routes []*route.Route
}

// NewCatalogIndex indexes routes.
func NewCatalogIndex(routes []*route.Route) *CatalogIndex {
	return &CatalogIndex{routes: routes}
}

// VisibleIDs returns routes whose bound intersects extent, or whose start point lies in it
// when the bound is unknown.
func (i *CatalogIndex) VisibleIDs(ctx context.Context, extent orb.Bound) ([]route.ID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ids := make([]route.ID, 0, len(i.routes))
	for _, r := range i.routes {
		b := r.Bound()
		if b.IsZero() {
			if extent.Contains(r.StartPoint()) {
				ids = append(ids, r.ID())
			}
			continue
		}
		if extent.Intersects(b) {
			ids = append(ids, r.ID())
		}
	}
	return ids, nil
}
