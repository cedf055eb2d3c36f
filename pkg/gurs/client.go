// Package gurs queries the Slovenian geodetic administration's public WFS
// service for official cadastral parcel polygons.
package gurs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/agrozem/landsync/internal/config"
	"github.com/agrozem/landsync/internal/model"
	"github.com/agrozem/landsync/internal/resilience"
)

// ErrNotFound means the service has no parcel for the requested KO/parcel
// pair. Parcel numbers in offer documents are sometimes mistyped; an empty
// feature set is a terminal per-item outcome.
var ErrNotFound = eris.New("gurs: parcel not found")

const parcelLayer = "ZRPUB:ZR_ZK_PARCELE"

// Client fetches parcel features over WFS 2.0.
type Client struct {
	httpClient *http.Client
	wfsURL     string
}

// New builds a Client from GURS configuration.
func New(cfg config.GURSConfig) *Client {
	timeout := 30 * time.Second
	if cfg.TimeoutSecs > 0 {
		timeout = time.Duration(cfg.TimeoutSecs) * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		wfsURL:     cfg.WFSURL,
	}
}

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Geometry   json.RawMessage   `json:"geometry"`
	Properties featureProperties `json:"properties"`
}

type featureProperties struct {
	KOName string   `json:"KO_IME"`
	AreaM2 *float64 `json:"POV_M2"`
}

// FetchGeometry returns the official polygon and area for one parcel. The
// polygon is persisted as EWKB in WGS84.
func (c *Client) FetchGeometry(ctx context.Context, koCode, parcelID string) (*model.ParcelGeometry, error) {
	q := url.Values{}
	q.Set("service", "WFS")
	q.Set("version", "2.0.0")
	q.Set("request", "GetFeature")
	q.Set("typeName", parcelLayer)
	q.Set("outputFormat", "application/json")
	q.Set("srsName", "EPSG:4326")
	q.Set("CQL_FILTER", fmt.Sprintf("KO_MID='%s' AND PARCELA='%s'", koCode, parcelID))

	reqURL := c.wfsURL + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "gurs: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrapf(err, "gurs: get %s/%s", koCode, parcelID), 0)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("gurs: get %s/%s: status %d", koCode, parcelID, resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "gurs: read body"), 0)
	}

	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, eris.Wrapf(err, "gurs: parse response for %s/%s", koCode, parcelID)
	}
	if len(fc.Features) == 0 {
		return nil, eris.Wrapf(ErrNotFound, "gurs: %s/%s", koCode, parcelID)
	}

	feat := fc.Features[0]
	if len(fc.Features) > 1 {
		zap.L().Debug("gurs: multiple features, using first",
			zap.String("ko", koCode),
			zap.String("parcel", parcelID),
			zap.Int("count", len(fc.Features)),
		)
	}

	wkb, err := encodeGeometry(feat.Geometry)
	if err != nil {
		return nil, eris.Wrapf(err, "gurs: geometry for %s/%s", koCode, parcelID)
	}

	return &model.ParcelGeometry{
		KOCode:    koCode,
		ParcelID:  parcelID,
		WKB:       wkb,
		AreaM2:    feat.Properties.AreaM2,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func encodeGeometry(raw json.RawMessage) ([]byte, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, eris.New("feature has no geometry")
	}

	var g geom.T
	if err := geojson.Unmarshal(raw, &g); err != nil {
		return nil, eris.Wrap(err, "decode geojson")
	}

	switch t := g.(type) {
	case *geom.Polygon:
		t.SetSRID(4326)
	case *geom.MultiPolygon:
		t.SetSRID(4326)
	default:
		return nil, eris.Errorf("unexpected geometry type %T", g)
	}

	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "encode wkb")
	}
	return data, nil
}
