package presentation

import (
	"errors"
	"fmt"
	"io"

	"github.com/paulmach/orb"
	"github.com/tkrajina/gpxgo/gpx"

	"github.com/trailview/service-routes/internal/domain/profile"
	"github.com/trailview/service-routes/internal/domain/route"
)

// ErrNoTrack is returned when a GPX document holds no usable track.
var ErrNoTrack = errors.New("gpx document has no track with at least two points")

// ExportGPX writes the route as a GPX 1.1 track. Elevations come from samples when they
// align with the geometry's vertices.
func ExportGPX(r *route.Route, geom route.Geometry, samples []profile.Sample) ([]byte, error) {
	if geom.IsEmpty() {
		return nil, route.ErrEmptyGeometry
	}

	segment := gpx.GPXTrackSegment{Points: make([]gpx.GPXPoint, len(geom.Path))}
	for i, p := range geom.LonLatPath() {
		pt := gpx.GPXPoint{Point: gpx.Point{Latitude: p.Lat(), Longitude: p.Lon()}}
		if i < len(samples) {
			pt.Elevation = *gpx.NewNullableFloat64(samples[i].ElevationM)
		}
		segment.Points[i] = pt
	}

	doc := &gpx.GPX{
		Version: "1.1",
		Creator: "trailview",
		Name:    r.Name(),
		Tracks: []gpx.GPXTrack{{
			Name:     r.Name(),
			Segments: []gpx.GPXTrackSegment{segment},
		}},
	}
	if desc := r.Description(DefaultLanguage); desc != "" {
		doc.Description = desc
	}

	data, err := doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
	if err != nil {
		return nil, fmt.Errorf("failed to encode gpx: %w", err)
	}
	return data, nil
}

// ImportedTrack is the first track of a GPX document in WGS84.
type ImportedTrack struct {
	Name       string
	Path       orb.LineString
	Elevations []float64
	// HasElevation is true only when every point carries an elevation.
	HasElevation bool
}

// ImportGPX reads the first track, concatenating its segments.
func ImportGPX(r io.Reader) (*ImportedTrack, error) {
	doc, err := gpx.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse gpx: %w", err)
	}

	for _, track := range doc.Tracks {
		out := &ImportedTrack{Name: track.Name, HasElevation: true}
		for _, seg := range track.Segments {
			for _, p := range seg.Points {
				out.Path = append(out.Path, orb.Point{p.Longitude, p.Latitude})
				if p.Elevation.NotNull() {
					out.Elevations = append(out.Elevations, p.Elevation.Value())
				} else {
					out.HasElevation = false
				}
			}
		}
		if len(out.Path) < 2 {
			continue
		}
		if out.Name == "" {
			out.Name = doc.Name
		}
		if !out.HasElevation {
			out.Elevations = nil
		}
		return out, nil
	}
	return nil, ErrNoTrack
}
