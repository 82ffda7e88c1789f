package viewsync

import "github.com/trailview/service-routes/internal/domain/route"

// Fallback explains why Reconcile ignored the visible set.
type Fallback string

const (
	FallbackNone              Fallback = "none"
	FallbackVisibleUnknown    Fallback = "visible_unknown"
	FallbackEmptyIntersection Fallback = "empty_intersection"
)

// Reconcile intersects the filtered routes with the viewport's visible set, keeping
// filtered order. An empty visible set means the spatial query has not completed; an
// empty intersection with both inputs non-empty is treated as a lagging spatial join.
// In both cases the filtered routes are returned unchanged, so the list is never
// emptied by the viewport alone.
func Reconcile(filtered []*route.Route, visible IDSet) ([]*route.Route, Fallback) {
	if len(filtered) == 0 {
		return []*route.Route{}, FallbackNone
	}
	if visible.Len() == 0 {
		return filtered, FallbackVisibleUnknown
	}

	out := make([]*route.Route, 0, len(filtered))
	for _, r := range filtered {
		if visible.Has(r.ID()) {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return filtered, FallbackEmptyIntersection
	}
	return out, FallbackNone
}
