package geo

import (
	"github.com/go-gl/mathgl/mgl64"
	geom "github.com/peterstace/simplefeatures/geom"
)

// TrackLineString converts a sampled horizontal flight path into a
// LineString. Paths with fewer than two samples produce an empty line.
func TrackLineString(track []mgl64.Vec2) geom.LineString {
	if len(track) < 2 {
		return geom.LineString{}
	}
	coords := make([]float64, 0, len(track)*2)
	for _, p := range track {
		coords = append(coords, p[0], p[1])
	}
	return geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
}

// TrackFromLineString reads a flight path back out of a LineString.
func TrackFromLineString(ls geom.LineString) []mgl64.Vec2 {
	seq := ls.Coordinates()
	n := seq.Length()
	if n == 0 {
		return nil
	}
	track := make([]mgl64.Vec2, n)
	for i := 0; i < n; i++ {
		xy := seq.GetXY(i)
		track[i] = mgl64.Vec2{xy.X, xy.Y}
	}
	return track
}

// TrackLength is the planar length of the flight path.
func TrackLength(track []mgl64.Vec2) float64 {
	return TrackLineString(track).Length()
}
