// Package affine implements the 2D affine transformation that maps pixel
// coordinates (col, row) of a raster to world coordinates (x, y):
//
//	x = A*col + B*row + C
//	y = D*col + E*row + F
//
// The coefficient naming follows the common (a, b, c, d, e, f) convention.
// GDAL stores the same six numbers in a different order, see FromGDAL.
package affine

import (
	"math"

	"github.com/go-spatial/geom"
)

// Affine is a 2D affine transformation matrix (last row implied as 0 0 1).
type Affine struct {
	A, B, C float64
	D, E, F float64
}

// Identity returns the transformation that maps every point onto itself.
func Identity() Affine {
	return Affine{A: 1, E: 1}
}

// Translation moves points by tx, ty.
func Translation(tx, ty float64) Affine {
	return Affine{A: 1, C: tx, E: 1, F: ty}
}

// Scale scales points by sx, sy around the origin.
func Scale(sx, sy float64) Affine {
	return Affine{A: sx, E: sy}
}

// Rotation rotates points counterclockwise around the origin by the given angle in degrees.
func Rotation(degrees float64) Affine {
	rad := degrees * math.Pi / 180
	sin, cos := math.Sincos(rad)
	return Affine{A: cos, B: -sin, D: sin, E: cos}
}

// FromGDAL converts a GDAL geotransform [C, A, B, F, D, E].
func FromGDAL(gt [6]float64) Affine {
	return Affine{
		A: gt[1], B: gt[2], C: gt[0],
		D: gt[4], E: gt[5], F: gt[3],
	}
}

// GDAL returns the transformation as a GDAL geotransform.
func (m Affine) GDAL() [6]float64 {
	return [6]float64{m.C, m.A, m.B, m.F, m.D, m.E}
}

// Multiply composes m with n. The result applies n first and then m,
// so m.Multiply(Translation(col, row)) first shifts in pixel space.
func (m Affine) Multiply(n Affine) Affine {
	return Affine{
		A: m.A*n.A + m.B*n.D,
		B: m.A*n.B + m.B*n.E,
		C: m.A*n.C + m.B*n.F + m.C,
		D: m.D*n.A + m.E*n.D,
		E: m.D*n.B + m.E*n.E,
		F: m.D*n.C + m.E*n.F + m.F,
	}
}

// Apply maps pixel coordinate (col, row) to a world coordinate.
func (m Affine) Apply(col, row float64) geom.Point {
	return geom.Point{
		m.A*col + m.B*row + m.C,
		m.D*col + m.E*row + m.F,
	}
}

// Determinant of the linear part. Zero means the transformation is degenerate.
func (m Affine) Determinant() float64 {
	return m.A*m.E - m.B*m.D
}

// IsRectilinear reports whether the transformation has no rotation or shear.
func (m Affine) IsRectilinear() bool {
	return m.B == 0 && m.D == 0
}
