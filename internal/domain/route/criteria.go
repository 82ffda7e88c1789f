package route

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// FilterCriteria is the set of active list filters. Nil fields are inactive.
type FilterCriteria struct {
	Difficulty    *Difficulty
	RegionCode    *string
	MinDistanceKm *float64
	MaxDistanceKm *float64
	NameQuery     string
}

// Validate rejects criteria that can never be satisfied because of caller error.
func (c FilterCriteria) Validate() error {
	if c.Difficulty != nil && !c.Difficulty.IsValid() {
		return fmt.Errorf("invalid difficulty filter: %q", *c.Difficulty)
	}
	if c.MinDistanceKm != nil && c.MaxDistanceKm != nil && *c.MinDistanceKm > *c.MaxDistanceKm {
		return fmt.Errorf("distance range is inverted: min %.2f > max %.2f", *c.MinDistanceKm, *c.MaxDistanceKm)
	}
	return nil
}

// Evaluate returns the routes matching every active predicate, in their original order.
// It does not mutate its input and is idempotent.
func (c FilterCriteria) Evaluate(routes []*Route) []*Route {
	fold := cases.Fold()
	query := fold.String(strings.TrimSpace(c.NameQuery))

	out := make([]*Route, 0, len(routes))
	for _, r := range routes {
		if c.matches(r, fold, query) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether a single route passes the criteria.
func (c FilterCriteria) Matches(r *Route) bool {
	fold := cases.Fold()
	return c.matches(r, fold, fold.String(strings.TrimSpace(c.NameQuery)))
}

func (c FilterCriteria) matches(r *Route, fold cases.Caser, query string) bool {
	if c.Difficulty != nil && r.Difficulty() != *c.Difficulty {
		return false
	}
	if c.RegionCode != nil && r.RegionCode() != *c.RegionCode {
		return false
	}
	if c.MinDistanceKm != nil || c.MaxDistanceKm != nil {
		dist, ok := r.DistanceKm()
		if !ok {
			return false
		}
		if c.MinDistanceKm != nil && dist < *c.MinDistanceKm {
			return false
		}
		if c.MaxDistanceKm != nil && dist > *c.MaxDistanceKm {
			return false
		}
	}
	if query != "" && !strings.Contains(fold.String(r.Name()), query) {
		return false
	}
	return true
}
