package viewsync

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/trailview/service-routes/internal/domain/route"
)

// IDSet is a set of route identities in canonical form.
type IDSet map[route.ID]struct{}

// NewIDSet builds a set from identities.
func NewIDSet(ids ...route.ID) IDSet {
	set := make(IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// IDSetFrom canonicalises loosely typed identities as they arrive from clients and
// spatial queries: integers, integral floats, json.Number and decimal strings.
// Values that are not an integral identity are skipped.
func IDSetFrom(values ...any) IDSet {
	set := make(IDSet, len(values))
	for _, v := range values {
		if id, ok := NormalizeID(v); ok {
			set[id] = struct{}{}
		}
	}
	return set
}

// NormalizeID converts v to a route identity.
func NormalizeID(v any) (route.ID, bool) {
	switch t := v.(type) {
	case route.ID:
		return t, true
	case int:
		return route.ID(t), true
	case int32:
		return route.ID(t), true
	case int64:
		return route.ID(t), true
	case uint32:
		return route.ID(t), true
	case uint64:
		if t > math.MaxInt64 {
			return 0, false
		}
		return route.ID(t), true
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) || math.IsNaN(t) {
			return 0, false
		}
		// float64(math.MaxInt64) rounds up to 2^63.
		if t < math.MinInt64 || t >= math.MaxInt64 {
			return 0, false
		}
		return route.ID(int64(t)), true
	case json.Number:
		return NormalizeID(string(t))
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return route.ID(n), true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return NormalizeID(f)
		}
	}
	return 0, false
}

// Has reports membership.
func (s IDSet) Has(id route.ID) bool {
	_, ok := s[id]
	return ok
}

// Len returns the set size.
func (s IDSet) Len() int { return len(s) }

// Equal reports whether both sets hold the same identities.
func (s IDSet) Equal(other IDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (s IDSet) Clone() IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}
