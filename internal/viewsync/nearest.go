package viewsync

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/trailview/service-routes/internal/domain/profile"
)

// NearestOnPath returns the point on path closest to p, projecting onto each segment in
// map units. ok is false for an empty path.
func NearestOnPath(path orb.LineString, p orb.Point) (nearest orb.Point, segment int, ok bool) {
	switch len(path) {
	case 0:
		return orb.Point{}, -1, false
	case 1:
		return path[0], 0, true
	}

	best := -1.0
	for i := 0; i < len(path)-1; i++ {
		candidate := projectOntoSegment(path[i], path[i+1], p)
		d := planar.DistanceSquared(candidate, p)
		if best < 0 || d < best {
			best = d
			nearest = candidate
			segment = i
		}
	}
	return nearest, segment, true
}

func projectOntoSegment(a, b, p orb.Point) orb.Point {
	dx := b.X() - a.X()
	dy := b.Y() - a.Y()
	lengthSq := dx*dx + dy*dy
	if lengthSq == 0 {
		return a
	}
	t := ((p.X()-a.X())*dx + (p.Y()-a.Y())*dy) / lengthSq
	switch {
	case t <= 0:
		return a
	case t >= 1:
		return b
	}
	return orb.Point{a.X() + t*dx, a.Y() + t*dy}
}

// NearestSampleIndex returns the index of the sample with the smallest squared planar
// distance to p, or -1 when there are no samples. Ties keep the lowest index.
func NearestSampleIndex(samples []profile.Sample, p orb.Point) int {
	idx := -1
	best := 0.0
	for i, s := range samples {
		d := planar.DistanceSquared(orb.Point{s.X, s.Y}, p)
		if idx < 0 || d < best {
			idx = i
			best = d
		}
	}
	return idx
}
