package gurs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/agrozem/landsync/internal/config"
)

const featureJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[14.24, 45.62], [14.25, 45.62], [14.25, 45.63], [14.24, 45.63], [14.24, 45.62]]]
      },
      "properties": {
        "KO_MID": "2331",
        "KO_IME": "ŠEMBIJE",
        "PARCELA": "123/4",
        "POV_M2": 4321.5
      }
    }
  ]
}`

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.GURSConfig{WFSURL: srv.URL})
}

func TestFetchGeometry(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "WFS", q.Get("service"))
		assert.Equal(t, "2.0.0", q.Get("version"))
		assert.Equal(t, "GetFeature", q.Get("request"))
		assert.Equal(t, parcelLayer, q.Get("typeName"))
		assert.Equal(t, "application/json", q.Get("outputFormat"))
		assert.Equal(t, "EPSG:4326", q.Get("srsName"))
		assert.Equal(t, `KO_MID='2331' AND PARCELA='123/4'`, q.Get("CQL_FILTER"))

		w.Write([]byte(featureJSON))
	}))

	g, err := c.FetchGeometry(context.Background(), "2331", "123/4")
	require.NoError(t, err)
	require.NotNil(t, g)

	assert.Equal(t, "2331", g.KOCode)
	assert.Equal(t, "123/4", g.ParcelID)
	require.NotNil(t, g.AreaM2)
	assert.Equal(t, 4321.5, *g.AreaM2)
	assert.False(t, g.FetchedAt.IsZero())

	decoded, err := ewkb.Unmarshal(g.WKB)
	require.NoError(t, err)
	poly, ok := decoded.(*geom.Polygon)
	require.True(t, ok)
	assert.Equal(t, 4326, poly.SRID())
	assert.Equal(t, 5, poly.LinearRing(0).NumCoords())
}

func TestFetchGeometryNotFound(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type": "FeatureCollection", "features": []}`))
	}))

	_, err := c.FetchGeometry(context.Background(), "2331", "999/9")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestFetchGeometryServerError(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.FetchGeometry(context.Background(), "2331", "123/4")
	require.Error(t, err)
	assert.False(t, eris.Is(err, ErrNotFound))
}

func TestFetchGeometryRejectsMissingGeometry(t *testing.T) {
	c := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type": "FeatureCollection", "features": [{"type": "Feature", "geometry": null, "properties": {}}]}`))
	}))

	_, err := c.FetchGeometry(context.Background(), "2331", "123/4")
	require.Error(t, err)
}
