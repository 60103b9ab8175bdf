package geomhelp

import (
	"math"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/wkt"
	"github.com/muesli/reflow/truncate"
	"github.com/pdok/rastersplit/affine"
)

// Footprint is the world polygon covered by a block of height x width pixels
// whose pixel (0,0) corner is mapped by m. The ring is not closed.
func Footprint(m affine.Affine, height, width int) geom.Polygon {
	h, w := float64(height), float64(width)
	corners := []geom.Point{m.Apply(0, 0), m.Apply(w, 0), m.Apply(w, h), m.Apply(0, h)}
	ring := make([][2]float64, len(corners))
	for i, c := range corners {
		ring[i] = [2]float64{c.X(), c.Y()}
	}
	if signedArea(ring) < 0 {
		// counterclockwise exterior ring
		for i, j := 0, len(ring)-1; i < j; i, j = i+1, j-1 {
			ring[i], ring[j] = ring[j], ring[i]
		}
	}
	return geom.Polygon{ring}
}

// https://en.wikipedia.org/wiki/Shoelace_formula
func Shoelace(pts [][2]float64) float64 {
	return math.Abs(signedArea(pts))
}

func signedArea(pts [][2]float64) float64 {
	sum := 0.
	if len(pts) == 0 {
		return 0.
	}

	p0 := pts[len(pts)-1]
	for _, p1 := range pts {
		sum += p0[0]*p1[1] - p1[0]*p0[1]
		p0 = p1
	}
	return sum / 2
}

// WktMustEncode encodes g as WKT, truncated to maxLen runes when maxLen > 0.
func WktMustEncode(g geom.Geometry, maxLen uint) string {
	return Truncate(wkt.MustEncode(g), maxLen)
}

// Truncate shortens long strings (CRS definitions, geometries) for logging.
func Truncate(s string, maxLen uint) string {
	if maxLen == 0 {
		return s
	}
	return truncate.StringWithTail(s, maxLen, "...")
}
