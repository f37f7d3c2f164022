package geo

import (
	"errors"
	"math"

	"github.com/aircraftstudio/skirmish/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// Stored geometries are always EPSG:3857 so that SQLite, which has no
// spatial awareness, can still round-trip them as WKB.

// ErrInvalidCoordinates is returned when an anchor is outside WGS84 bounds.
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// AnchorPoint converts a WGS84 anchor into a 3857 point. A nil anchor
// yields an empty point.
func AnchorPoint(a *core.GeoAnchor) (geom.Point, error) {
	if a == nil {
		return geom.NewEmptyPoint(geom.DimXY), nil
	}
	if math.Abs(a.Longitude) > 180 || math.Abs(a.Latitude) > 85.06 {
		return geom.NewEmptyPoint(geom.DimXY), ErrInvalidCoordinates
	}

	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(a.Longitude, a.Latitude, 0)
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: x, Y: y}}), nil
}

// AnchorFromPoint reverses AnchorPoint. Empty points return nil.
func AnchorFromPoint(p geom.Point) *core.GeoAnchor {
	xy, ok := p.XY()
	if !ok {
		return nil
	}
	epsg := wgs84.EPSG()
	f := epsg.Transform(3857, 4326)
	lon, lat, _ := f(xy.X, xy.Y, 0)
	return &core.GeoAnchor{Longitude: lon, Latitude: lat}
}
