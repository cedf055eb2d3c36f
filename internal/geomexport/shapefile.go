// Package geomexport writes cached parcel geometries out as an ESRI
// shapefile for GIS consumption.
package geomexport

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"

	"github.com/agrozem/landsync/internal/model"
)

// WriteShapefile writes geometries to path (.shp plus sidecars). Each
// record carries the KO code, parcel number and official area. Geometries
// without a polygon are skipped, not fatal; the export is a convenience
// view over the cache. Returns the number of records written.
func WriteShapefile(path string, geometries []model.ParcelGeometry) (int, error) {
	writer, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return 0, eris.Wrapf(err, "geomexport: create %s", path)
	}
	defer writer.Close()

	fields := []shp.Field{
		shp.StringField("KO", 10),
		shp.StringField("PARCELA", 20),
		shp.FloatField("AREA_M2", 14, 2),
	}
	writer.SetFields(fields)

	written := 0
	skipped := 0
	for _, g := range geometries {
		poly, err := decodePolygon(g.WKB)
		if err != nil || poly == nil {
			skipped++
			continue
		}

		row := writer.Write(poly)
		writer.WriteAttribute(int(row), 0, g.KOCode)
		writer.WriteAttribute(int(row), 1, g.ParcelID)
		if g.AreaM2 != nil {
			writer.WriteAttribute(int(row), 2, *g.AreaM2)
		}
		written++
	}

	if skipped > 0 {
		zap.L().Warn("geomexport: skipped records without usable geometry",
			zap.Int("skipped", skipped),
		)
	}
	zap.L().Info("geomexport: shapefile written",
		zap.String("path", path),
		zap.Int("records", written),
	)
	return written, nil
}

// decodePolygon turns cached EWKB back into a shapefile polygon. Both
// Polygon and MultiPolygon inputs flatten to one shp.Polygon with a part
// per ring.
func decodePolygon(wkb []byte) (*shp.Polygon, error) {
	if len(wkb) == 0 {
		return nil, nil
	}

	g, err := ewkb.Unmarshal(wkb)
	if err != nil {
		return nil, eris.Wrap(err, "geomexport: decode wkb")
	}

	var rings [][]geom.Coord
	switch t := g.(type) {
	case *geom.Polygon:
		rings = polygonRings(t)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			rings = append(rings, polygonRings(t.Polygon(i))...)
		}
	default:
		return nil, eris.Errorf("geomexport: unexpected geometry type %T", g)
	}
	if len(rings) == 0 {
		return nil, nil
	}

	var parts []int32
	var points []shp.Point
	for _, ring := range rings {
		parts = append(parts, int32(len(points)))
		for _, c := range ring {
			points = append(points, shp.Point{X: c.X(), Y: c.Y()})
		}
	}

	poly := &shp.Polygon{
		NumParts:  int32(len(parts)),
		NumPoints: int32(len(points)),
		Parts:     parts,
		Points:    points,
	}
	poly.Box = shp.BBoxFromPoints(points)
	return poly, nil
}

func polygonRings(p *geom.Polygon) [][]geom.Coord {
	var rings [][]geom.Coord
	for i := 0; i < p.NumLinearRings(); i++ {
		ring := p.LinearRing(i)
		coords := make([]geom.Coord, 0, ring.NumCoords())
		for j := 0; j < ring.NumCoords(); j++ {
			coords = append(coords, ring.Coord(j))
		}
		rings = append(rings, coords)
	}
	return rings
}
