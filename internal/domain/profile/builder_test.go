package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trailview/service-routes/internal/domain/route"
)

type stubTerrain struct {
	elevations []float64
	err        error
	calls      int
}

func (s *stubTerrain) SampleElevation(_ context.Context, path orb.LineString) ([]float64, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.elevations, nil
}

func threeVertexGeometry(t *testing.T) route.Geometry {
	t.Helper()
	g, err := route.NewGeometry(orb.LineString{{0, 0}, {0.01, 0}, {0.02, 0}}, route.WGS84)
	require.NoError(t, err)
	return g
}

func TestBuild_UsesCachedPayload(t *testing.T) {
	terrain := &stubTerrain{}
	b := NewBuilder(terrain, zap.NewNop())

	series, err := b.Build(context.Background(), threeVertexGeometry(t), []byte(`[[0,500],[1.1,520.5],[2.2,510]]`))

	require.NoError(t, err)
	assert.Equal(t, SourceCached, series.Source)
	assert.Equal(t, []float64{0, 1.1, 2.2}, series.Distances())
	assert.Equal(t, []float64{500, 520.5, 510}, series.Elevations())
	assert.Equal(t, 0.01, series.Samples[1].X)
	assert.Zero(t, terrain.calls)
}

func TestBuild_ShortPayloadZipsToShorterLength(t *testing.T) {
	b := NewBuilder(nil, zap.NewNop())

	series, err := b.Build(context.Background(), threeVertexGeometry(t), []byte(`[[0,500],[1.1,520]]`))

	require.NoError(t, err)
	assert.Equal(t, 2, series.Len())
}

func TestBuild_FallsBackToTerrain(t *testing.T) {
	terrain := &stubTerrain{elevations: []float64{100, 150, 125}}
	b := NewBuilder(terrain, zap.NewNop())

	series, err := b.Build(context.Background(), threeVertexGeometry(t), []byte(`not json`))

	require.NoError(t, err)
	assert.Equal(t, SourceTerrain, series.Source)
	require.Equal(t, 3, series.Len())
	assert.Zero(t, series.Samples[0].DistanceKm)
	assert.InDelta(t, 1.113, series.Samples[1].DistanceKm, 0.002)
	assert.InDelta(t, 2.226, series.Samples[2].DistanceKm, 0.004)
	assert.Equal(t, 1, terrain.calls)
}

func TestBuild_TerrainFailure(t *testing.T) {
	b := NewBuilder(&stubTerrain{err: errors.New("tile server down")}, zap.NewNop())

	_, err := b.Build(context.Background(), threeVertexGeometry(t), nil)

	assert.ErrorIs(t, err, ErrElevationUnavailable)
}

func TestBuild_TerrainCountMismatch(t *testing.T) {
	b := NewBuilder(&stubTerrain{elevations: []float64{1, 2}}, zap.NewNop())

	_, err := b.Build(context.Background(), threeVertexGeometry(t), nil)

	assert.ErrorIs(t, err, ErrElevationUnavailable)
}

func TestBuild_NoTerrainConfigured(t *testing.T) {
	b := NewBuilder(nil, zap.NewNop())

	_, err := b.Build(context.Background(), threeVertexGeometry(t), nil)

	assert.ErrorIs(t, err, ErrElevationUnavailable)
}

func TestBuild_DistancesNonDecreasing(t *testing.T) {
	g, err := route.NewGeometry(orb.LineString{{0, 0}, {0, 0}, {0.001, 0.001}, {0.001, 0.001}}, route.WGS84)
	require.NoError(t, err)
	b := NewBuilder(&stubTerrain{elevations: []float64{1, 2, 3, 4}}, zap.NewNop())

	series, err := b.Build(context.Background(), g, nil)
	require.NoError(t, err)

	d := series.Distances()
	for i := 1; i < len(d); i++ {
		assert.GreaterOrEqual(t, d[i], d[i-1])
	}
}

func TestFromTerrain_OneMilliDegreeNorth(t *testing.T) {
	g, err := route.NewGeometry(orb.LineString{{0, 0}, {0, 0.001}}, route.WGS84)
	require.NoError(t, err)

	samples := FromTerrain(g, []float64{250, 262.5})

	require.Len(t, samples, 2)
	assert.Zero(t, samples[0].DistanceKm)
	assert.InDelta(t, 0.111, samples[1].DistanceKm, 0.001)
	assert.Equal(t, 250.0, samples[0].ElevationM)
	assert.Equal(t, 262.5, samples[1].ElevationM)
}
