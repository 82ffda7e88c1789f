package route

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"
)

// SpatialReference is the WKID of the map's working coordinate system.
type SpatialReference int

const (
	WGS84       SpatialReference = 4326
	WebMercator SpatialReference = 3857
)

// ErrEmptyGeometry is returned when a geometry has fewer than two vertices.
var ErrEmptyGeometry = errors.New("route geometry has fewer than two vertices")

// ParseSpatialReference maps a WKID, including the legacy Web Mercator aliases, to a SpatialReference.
func ParseSpatialReference(wkid int) (SpatialReference, error) {
	switch wkid {
	case 4326:
		return WGS84, nil
	case 3857, 102100, 102113, 900913:
		return WebMercator, nil
	}
	return 0, fmt.Errorf("unsupported spatial reference: %d", wkid)
}

// Geometry is a route's ordered vertex path in map units.
type Geometry struct {
	Path orb.LineString
	SR   SpatialReference
}

// NewGeometry validates and returns a Geometry.
func NewGeometry(path orb.LineString, sr SpatialReference) (Geometry, error) {
	if len(path) < 2 {
		return Geometry{}, ErrEmptyGeometry
	}
	if _, err := ParseSpatialReference(int(sr)); err != nil {
		return Geometry{}, err
	}
	return Geometry{Path: path, SR: sr}, nil
}

// GeometryFromGeoJSON decodes a LineString or MultiLineString GeoJSON geometry.
// Only the first non-empty part of a multi-part line is kept.
func GeometryFromGeoJSON(data []byte, sr SpatialReference) (Geometry, error) {
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return Geometry{}, fmt.Errorf("failed to decode route geometry: %w", err)
	}

	switch t := g.Geometry().(type) {
	case orb.LineString:
		return NewGeometry(t, sr)
	case orb.MultiLineString:
		for _, part := range t {
			if len(part) >= 2 {
				return NewGeometry(part, sr)
			}
		}
		return Geometry{}, ErrEmptyGeometry
	default:
		return Geometry{}, fmt.Errorf("unsupported route geometry type %s", g.Type)
	}
}

// GeoJSON encodes the path as a GeoJSON LineString.
func (g Geometry) GeoJSON() ([]byte, error) {
	return json.Marshal(geojson.NewGeometry(g.Path))
}

// IsEmpty reports whether the geometry has no usable path.
func (g Geometry) IsEmpty() bool { return len(g.Path) < 2 }

// Bound returns the bounding box in map units.
func (g Geometry) Bound() orb.Bound { return g.Path.Bound() }

// ToLonLat converts a map-unit point to WGS84 longitude/latitude.
func (g Geometry) ToLonLat(p orb.Point) orb.Point {
	if g.SR == WebMercator {
		return project.Mercator.ToWGS84(p)
	}
	return p
}

// FromLonLat converts a WGS84 point to map units.
func (g Geometry) FromLonLat(p orb.Point) orb.Point {
	if g.SR == WebMercator {
		return project.WGS84.ToMercator(p)
	}
	return p
}

// LonLatPath returns the path in WGS84.
func (g Geometry) LonLatPath() orb.LineString {
	out := make(orb.LineString, len(g.Path))
	for i, p := range g.Path {
		out[i] = g.ToLonLat(p)
	}
	return out
}

// GeodesicDistance returns the great-circle distance in metres between two map-unit points.
func (g Geometry) GeodesicDistance(a, b orb.Point) float64 {
	return geo.DistanceHaversine(g.ToLonLat(a), g.ToLonLat(b))
}

// ExpandBound scales b around its center by factor.
func ExpandBound(b orb.Bound, factor float64) orb.Bound {
	c := b.Center()
	halfW := (b.Max.X() - b.Min.X()) * factor / 2
	halfH := (b.Max.Y() - b.Min.Y()) * factor / 2
	return orb.Bound{
		Min: orb.Point{c.X() - halfW, c.Y() - halfH},
		Max: orb.Point{c.X() + halfW, c.Y() + halfH},
	}
}
