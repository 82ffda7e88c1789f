package route

import "context"

// Source is the read-only contract of the route backend.
type Source interface {
	// FetchAll returns every route record, attributes only, in catalog order.
	FetchAll(ctx context.Context) ([]*Route, error)

	// FetchGeometry returns the route with its full geometry, or nil when the route has none.
	FetchGeometry(ctx context.Context, id ID) (*Feature, error)
}
