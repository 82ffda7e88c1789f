package route

import (
	"strconv"

	"github.com/paulmach/orb"
)

// ID is the unique integer identity of a route record.
type ID int64

// String returns the decimal form of the identity.
func (id ID) String() string { return strconv.FormatInt(int64(id), 10) }

// Route is an immutable catalog record. Geometry is fetched separately.
type Route struct {
	id             ID
	name           string
	distanceKm     *float64
	elevationGainM *float64
	difficulty     Difficulty
	duration       string
	regionCode     string
	descriptions   map[string]string
	imageURLs      []string
	downloadURL    string
	startPoint     orb.Point
	bound          orb.Bound
}

// Attributes carries the fields needed to build a Route.
type Attributes struct {
	Name           string
	DistanceKm     *float64
	ElevationGainM *float64
	Difficulty     Difficulty
	Duration       string
	RegionCode     string
	Descriptions   map[string]string
	ImageURLs      []string
	DownloadURL    string
	StartPoint     orb.Point
	Bound          orb.Bound
}

// Reconstruct rebuilds a Route from persistence data (no validation).
func Reconstruct(id ID, attrs Attributes) *Route {
	descriptions := make(map[string]string, len(attrs.Descriptions))
	for k, v := range attrs.Descriptions {
		descriptions[k] = v
	}
	images := append([]string(nil), attrs.ImageURLs...)

	return &Route{
		id:             id,
		name:           attrs.Name,
		distanceKm:     copyFloat(attrs.DistanceKm),
		elevationGainM: copyFloat(attrs.ElevationGainM),
		difficulty:     attrs.Difficulty,
		duration:       attrs.Duration,
		regionCode:     attrs.RegionCode,
		descriptions:   descriptions,
		imageURLs:      images,
		downloadURL:    attrs.DownloadURL,
		startPoint:     attrs.StartPoint,
		bound:          attrs.Bound,
	}
}

// --- Getters ---

func (r *Route) ID() ID                   { return r.id }
func (r *Route) Name() string             { return r.name }
func (r *Route) Difficulty() Difficulty   { return r.difficulty }
func (r *Route) Duration() string         { return r.duration }
func (r *Route) RegionCode() string       { return r.regionCode }
func (r *Route) DownloadURL() string      { return r.downloadURL }
func (r *Route) StartPoint() orb.Point    { return r.startPoint }
func (r *Route) Bound() orb.Bound         { return r.bound }
func (r *Route) ImageURLs() []string      { return append([]string(nil), r.imageURLs...) }
func (r *Route) ElevationGainM() *float64 { return copyFloat(r.elevationGainM) }

// DistanceKm returns the route length and whether it is known.
func (r *Route) DistanceKm() (float64, bool) {
	if r.distanceKm == nil {
		return 0, false
	}
	return *r.distanceKm, true
}

// Description returns the description for lang, or "" when none exists.
func (r *Route) Description(lang string) string {
	return r.descriptions[lang]
}

// Descriptions returns a copy of all locale-keyed descriptions.
func (r *Route) Descriptions() map[string]string {
	out := make(map[string]string, len(r.descriptions))
	for k, v := range r.descriptions {
		out[k] = v
	}
	return out
}

// Feature is a route together with its full geometry, as returned by a geometry fetch.
type Feature struct {
	Route          *Route
	Geometry       Geometry
	ProfilePayload []byte
}

// IDs returns the identities of routes in order.
func IDs(routes []*Route) []ID {
	ids := make([]ID, len(routes))
	for i, r := range routes {
		ids[i] = r.ID()
	}
	return ids
}

// BoundOf returns the union of the routes' bounds, skipping empty ones.
func BoundOf(routes []*Route) (orb.Bound, bool) {
	var out orb.Bound
	found := false
	for _, r := range routes {
		b := r.Bound()
		if isZeroBound(b) {
			b = orb.Bound{Min: r.StartPoint(), Max: r.StartPoint()}
		}
		if !found {
			out = b
			found = true
			continue
		}
		out = out.Union(b)
	}
	return out, found
}

func isZeroBound(b orb.Bound) bool {
	return b.Min == orb.Point{} && b.Max == orb.Point{}
}

func copyFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
