package application

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trailview/service-routes/internal/domain/profile"
	"github.com/trailview/service-routes/internal/domain/route"
	"github.com/trailview/service-routes/internal/platform/apperror"
)

type createdRoute struct {
	attrs   route.Attributes
	geom    route.Geometry
	payload []byte
}

type memoryWriter struct {
	created []createdRoute
}

func (w *memoryWriter) Create(_ context.Context, attrs route.Attributes, geom route.Geometry, payload []byte) (route.ID, error) {
	w.created = append(w.created, createdRoute{attrs: attrs, geom: geom, payload: payload})
	return route.ID(len(w.created)), nil
}

const trackWithElevation = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk>
    <name>Orreaga</name>
    <trkseg>
      <trkpt lat="0" lon="0"><ele>100</ele></trkpt>
      <trkpt lat="0" lon="0.01"><ele>150</ele></trkpt>
      <trkpt lat="0" lon="0.02"><ele>120</ele></trkpt>
    </trkseg>
  </trk>
</gpx>`

const trackWithoutElevation = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk>
    <trkseg>
      <trkpt lat="0" lon="0"></trkpt>
      <trkpt lat="0" lon="0.01"></trkpt>
    </trkseg>
  </trk>
</gpx>`

func TestRouteImporter_StoresProfileFromTrackElevations(t *testing.T) {
	w := &memoryWriter{}
	imp := NewRouteImporter(w, zap.NewNop())

	res, err := imp.Import(context.Background(), strings.NewReader(trackWithElevation), ImportOptions{
		Difficulty:       route.DifficultyModerate,
		RegionCode:       "NA",
		Description:      "Camino histórico",
		SpatialReference: route.WGS84,
	})
	require.NoError(t, err)

	assert.Equal(t, route.ID(1), res.ID)
	assert.Equal(t, "Orreaga", res.Name)
	assert.Equal(t, 3, res.Vertices)
	assert.True(t, res.HasProfile)
	assert.InDelta(t, 2.22, res.DistanceKm, 0.01)

	require.Len(t, w.created, 1)
	got := w.created[0]
	assert.Equal(t, route.WGS84, got.geom.SR)
	assert.Equal(t, "Camino histórico", got.attrs.Descriptions["es"])
	require.NotNil(t, got.attrs.ElevationGainM)
	assert.Equal(t, 50.0, *got.attrs.ElevationGainM)

	points, err := profile.ParsePayload(got.payload)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, 150.0, points[1][1])
}

func TestRouteImporter_ProjectsToWebMercatorByDefault(t *testing.T) {
	w := &memoryWriter{}
	imp := NewRouteImporter(w, zap.NewNop())

	res, err := imp.Import(context.Background(), strings.NewReader(trackWithoutElevation), ImportOptions{Name: "Senda"})
	require.NoError(t, err)
	assert.False(t, res.HasProfile)

	got := w.created[0]
	assert.Equal(t, route.WebMercator, got.geom.SR)
	assert.InDelta(t, 1113.19, got.geom.Path[1].X(), 0.1)
	assert.Nil(t, got.payload)
	assert.Nil(t, got.attrs.ElevationGainM)
}

func TestRouteImporter_Rejects(t *testing.T) {
	imp := NewRouteImporter(&memoryWriter{}, zap.NewNop())

	_, err := imp.Import(context.Background(), strings.NewReader("<gpx></gpx>"), ImportOptions{Name: "x"})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	// Unnamed track without an explicit name
	_, err = imp.Import(context.Background(), strings.NewReader(trackWithoutElevation), ImportOptions{})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}
