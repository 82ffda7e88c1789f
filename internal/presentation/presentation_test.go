package presentation

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trailview/service-routes/internal/domain/profile"
	"github.com/trailview/service-routes/internal/domain/route"
)

func testRoute() *route.Route {
	d := 7.5
	return route.Reconstruct(12, route.Attributes{
		Name:         "Urbasa",
		DistanceKm:   &d,
		Difficulty:   route.DifficultyModerate,
		Descriptions: map[string]string{"es": "Sierra de Urbasa", "fr": "Sierra d'Urbasa"},
		StartPoint:   orb.Point{-2.1, 42.8},
	})
}

func TestNewRouteView_LocalizesAndFallsBack(t *testing.T) {
	fr := NewRouteView(testRoute(), "fr")
	assert.Equal(t, "Modérée", fr.DifficultyLabel)
	assert.Equal(t, "Sierra d'Urbasa", fr.Description)
	require.NotNil(t, fr.DistanceKm)
	assert.Equal(t, 7.5, *fr.DistanceKm)

	eu := NewRouteView(testRoute(), "eu")
	assert.Equal(t, "Ertaina", eu.DifficultyLabel)
	assert.Equal(t, "Sierra de Urbasa", eu.Description, "falls back to the default language")
}

func TestNegotiateLanguage(t *testing.T) {
	assert.Equal(t, "fr", NegotiateLanguage("fr-FR"))
	assert.Equal(t, "en", NegotiateLanguage("de", "en-GB;q=0.8"))
	assert.Equal(t, "eu", NegotiateLanguage("eu-ES"))
	assert.Equal(t, "es", NegotiateLanguage("ja"))
	assert.Equal(t, "es", NegotiateLanguage())
	assert.True(t, IsSupportedLanguage("eu"))
	assert.False(t, IsSupportedLanguage("de"))
}

func TestRecorder_OverwritesMarkers(t *testing.T) {
	r := NewRecorder()
	r.PlaceCursorMarker(1, 2)
	r.PlaceCursorMarker(3, 4)
	r.HighlightChartIndex(5)
	r.HighlightChartIndex(6)

	st := r.State()
	assert.True(t, st.CursorPlaced)
	assert.Equal(t, 3.0, st.CursorX)
	assert.Equal(t, 6, st.Highlight)

	r.ClearCursorMarker()
	r.ClearChartHighlight()
	st = r.State()
	assert.False(t, st.CursorPlaced)
	assert.Equal(t, -1, st.Highlight)
}

func TestRecorder_ProfileUnavailableClearsChart(t *testing.T) {
	r := NewRecorder()
	r.DrawChart([]profile.Sample{{DistanceKm: 0}, {DistanceKm: 1}})
	r.ShowProfileUnavailable(3)

	st := r.State()
	assert.Empty(t, st.Chart)
	require.NotNil(t, st.ProfileUnavailable)
	assert.Equal(t, route.ID(3), *st.ProfileUnavailable)
}

func TestTee_ForwardsToAll(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	tee := Tee{a, b}

	tee.Render([]RouteView{{ID: 1}})
	tee.FitBounds(orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1, 1}})

	for _, r := range []*Recorder{a, b} {
		st := r.State()
		assert.Equal(t, 1, st.RenderCount)
		require.NotNil(t, st.FitBounds)
		assert.Equal(t, Extent{0, 0, 1, 1}, *st.FitBounds)
	}
}

func testGeometry(t *testing.T) route.Geometry {
	t.Helper()
	g, err := route.NewGeometry(orb.LineString{{-2.1, 42.8}, {-2.09, 42.81}, {-2.08, 42.8}}, route.WGS84)
	require.NoError(t, err)
	return g
}

func TestGPX_ExportThenImport(t *testing.T) {
	g := testGeometry(t)
	samples := profile.FromTerrain(g, []float64{900, 1010, 950})

	data, err := ExportGPX(testRoute(), g, samples)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Urbasa")

	track, err := ImportGPX(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "Urbasa", track.Name)
	require.Len(t, track.Path, 3)
	assert.InDelta(t, -2.09, track.Path[1].Lon(), 1e-9)
	assert.True(t, track.HasElevation)
	assert.Equal(t, []float64{900, 1010, 950}, track.Elevations)
}

func TestImportGPX_NoTrack(t *testing.T) {
	doc := `<?xml version="1.0"?><gpx version="1.1" creator="test"><wpt lat="1" lon="2"></wpt></gpx>`
	_, err := ImportGPX(strings.NewReader(doc))
	assert.ErrorIs(t, err, ErrNoTrack)
}

func TestRenderProfilePNG(t *testing.T) {
	g := testGeometry(t)
	series := profile.Series{Samples: profile.FromTerrain(g, []float64{900, 1010, 950})}
	opts := DefaultChartOptions()
	opts.Highlight = 1

	var buf bytes.Buffer
	require.NoError(t, RenderProfilePNG(&buf, series, opts))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	err := RenderProfilePNG(&buf, profile.Series{Samples: series.Samples[:1]}, opts)
	assert.ErrorIs(t, err, ErrNotEnoughSamples)
}

func TestHub_BroadcastsToClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Attach(conn)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.HighlightChartIndex(4)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MsgHighlight, msg.Type)
	var p indexPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	assert.Equal(t, 4, p.Index)

	hub.Close()
	assert.Zero(t, hub.Clients())
}
