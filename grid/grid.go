// Package grid plans how an image of height x width pixels is cut into
// rectangular tiles and enumerates those tiles.
//
// The tile size is derived from a requested tile count N as
// floor(dimension / sqrt(N)). This does not generally produce exactly N
// grid cells: the last row and column are clipped to the image bounds and
// the enumeration stops after N tiles, which may leave the rest of the
// image untiled.
package grid

import (
	"errors"
	"fmt"
	"iter"
	"math"
)

// ErrDegenerateGrid is returned when no valid grid can be planned.
var ErrDegenerateGrid = errors.New("degenerate tile grid")

// Spec is the planned tile layout.
type Spec struct {
	RequestedTileCount int `json:"requestedTileCount"`
	TileHeight         int `json:"tileHeight"`
	TileWidth          int `json:"tileWidth"`
}

// Descriptor is the pixel window of a single tile. Origins are inclusive, ends exclusive.
type Descriptor struct {
	RowOrigin int `json:"rowOrigin"`
	ColOrigin int `json:"colOrigin"`
	RowEnd    int `json:"rowEnd"`
	ColEnd    int `json:"colEnd"`
}

// Height of the tile in pixels
func (d Descriptor) Height() int {
	return d.RowEnd - d.RowOrigin
}

// Width of the tile in pixels
func (d Descriptor) Width() int {
	return d.ColEnd - d.ColOrigin
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%d_%d", d.RowOrigin, d.ColOrigin)
}

// CheckTileCount rejects a requested tile count that cannot produce a grid.
func CheckTileCount(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: requested tile count must be positive, got %d", ErrDegenerateGrid, n)
	}
	return nil
}

// Plan computes the tile size for an image of height x width pixels and n requested tiles.
func Plan(height, width, n int) (Spec, error) {
	if err := CheckTileCount(n); err != nil {
		return Spec{}, err
	}
	if height <= 0 || width <= 0 {
		return Spec{}, fmt.Errorf("%w: image size %dx%d", ErrDegenerateGrid, height, width)
	}
	root := math.Sqrt(float64(n))
	spec := Spec{
		RequestedTileCount: n,
		TileHeight:         int(math.Floor(float64(height) / root)),
		TileWidth:          int(math.Floor(float64(width) / root)),
	}
	if spec.TileHeight < 1 || spec.TileWidth < 1 {
		return Spec{}, fmt.Errorf("%w: %d tiles do not fit in %dx%d pixels (tile size %dx%d)",
			ErrDegenerateGrid, n, height, width, spec.TileHeight, spec.TileWidth)
	}
	return spec, nil
}

// Rows is the number of tile rows the grid has for the given image height.
func (s Spec) Rows(height int) int {
	return ceilDiv(height, s.TileHeight)
}

// Cols is the number of tile columns the grid has for the given image width.
func (s Spec) Cols(width int) int {
	return ceilDiv(width, s.TileWidth)
}

// Cells is the number of cells in the natural grid, before the early stop.
func (s Spec) Cells(height, width int) int {
	return s.Rows(height) * s.Cols(width)
}

// Emitted is the number of descriptors Tiles yields: min(Cells, RequestedTileCount).
func (s Spec) Emitted(height, width int) int {
	return min(s.Cells(height, width), s.RequestedTileCount)
}

// Tiles yields the tile descriptors in row-major order. The last tile of a row
// or column is clipped to the image bounds. It stops as soon as RequestedTileCount
// descriptors have been yielded, or earlier when the grid runs out of cells.
// The sequence can be ranged over multiple times.
func (s Spec) Tiles(height, width int) iter.Seq[Descriptor] {
	return func(yield func(Descriptor) bool) {
		if s.TileHeight < 1 || s.TileWidth < 1 {
			return
		}
		emitted := 0
		for row := 0; row < height; row += s.TileHeight {
			for col := 0; col < width; col += s.TileWidth {
				if emitted >= s.RequestedTileCount {
					return
				}
				d := Descriptor{
					RowOrigin: row,
					ColOrigin: col,
					RowEnd:    min(row+s.TileHeight, height),
					ColEnd:    min(col+s.TileWidth, width),
				}
				emitted++
				if !yield(d) {
					return
				}
			}
		}
	}
}

func ceilDiv(a, b int) int {
	if b <= 0 || a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}
