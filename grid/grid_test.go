package grid

import (
	"fmt"
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan(t *testing.T) {
	tests := []struct {
		height, width, n int
		want             Spec
	}{
		{height: 100, width: 100, n: 4, want: Spec{RequestedTileCount: 4, TileHeight: 50, TileWidth: 50}},
		{height: 105, width: 100, n: 4, want: Spec{RequestedTileCount: 4, TileHeight: 52, TileWidth: 50}},
		{height: 100, width: 100, n: 10, want: Spec{RequestedTileCount: 10, TileHeight: 31, TileWidth: 31}},
		{height: 100, width: 100, n: 1, want: Spec{RequestedTileCount: 1, TileHeight: 100, TileWidth: 100}},
		{height: 7, width: 300, n: 9, want: Spec{RequestedTileCount: 9, TileHeight: 2, TileWidth: 100}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dx%d/%d", tt.height, tt.width, tt.n), func(t *testing.T) {
			got, err := Plan(tt.height, tt.width, tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlan_floorOfSqrt(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 8, 9, 10, 16, 17, 100} {
		for _, size := range [][2]int{{100, 100}, {105, 100}, {333, 77}, {1024, 4096}} {
			spec, err := Plan(size[0], size[1], n)
			require.NoError(t, err)
			assert.Equal(t, int(math.Floor(float64(size[0])/math.Sqrt(float64(n)))), spec.TileHeight)
			assert.Equal(t, int(math.Floor(float64(size[1])/math.Sqrt(float64(n)))), spec.TileWidth)
			assert.GreaterOrEqual(t, spec.TileHeight, 1)
			assert.GreaterOrEqual(t, spec.TileWidth, 1)
		}
	}
}

func TestPlan_degenerate(t *testing.T) {
	tests := []struct {
		name             string
		height, width, n int
	}{
		{name: "zero tiles", height: 100, width: 100, n: 0},
		{name: "negative tiles", height: 100, width: 100, n: -4},
		{name: "empty image", height: 0, width: 100, n: 4},
		{name: "too many tiles for height", height: 3, width: 100, n: 16},
		{name: "too many tiles for width", height: 100, width: 1, n: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Plan(tt.height, tt.width, tt.n)
			require.ErrorIs(t, err, ErrDegenerateGrid)
		})
	}
}

func TestCheckTileCount(t *testing.T) {
	require.NoError(t, CheckTileCount(1))
	require.ErrorIs(t, CheckTileCount(0), ErrDegenerateGrid)
	require.ErrorIs(t, CheckTileCount(-1), ErrDegenerateGrid)
}

func TestSpec_Tiles(t *testing.T) {
	tests := []struct {
		name          string
		height, width int
		n             int
		want          []Descriptor
	}{
		{
			name:   "four even tiles",
			height: 100, width: 100, n: 4,
			want: []Descriptor{
				{RowOrigin: 0, ColOrigin: 0, RowEnd: 50, ColEnd: 50},
				{RowOrigin: 0, ColOrigin: 50, RowEnd: 50, ColEnd: 100},
				{RowOrigin: 50, ColOrigin: 0, RowEnd: 100, ColEnd: 50},
				{RowOrigin: 50, ColOrigin: 50, RowEnd: 100, ColEnd: 100},
			},
		},
		{
			name:   "single tile covers the image",
			height: 37, width: 91, n: 1,
			want: []Descriptor{
				{RowOrigin: 0, ColOrigin: 0, RowEnd: 37, ColEnd: 91},
			},
		},
		{
			name:   "early stop in the first row",
			height: 100, width: 100, n: 3,
			want: []Descriptor{
				{RowOrigin: 0, ColOrigin: 0, RowEnd: 57, ColEnd: 57},
				{RowOrigin: 0, ColOrigin: 57, RowEnd: 57, ColEnd: 100},
				{RowOrigin: 57, ColOrigin: 0, RowEnd: 100, ColEnd: 57},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Plan(tt.height, tt.width, tt.n)
			require.NoError(t, err)
			got := slices.Collect(spec.Tiles(tt.height, tt.width))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSpec_Tiles_clippedRemainder(t *testing.T) {
	// 105x100 with tiles of 50x50 has row origins 0, 50 and 100,
	// the last row is only 5 pixels high
	spec := Spec{RequestedTileCount: 4, TileHeight: 50, TileWidth: 50}
	got := slices.Collect(spec.Tiles(105, 100))
	assert.Equal(t, []Descriptor{
		{RowOrigin: 0, ColOrigin: 0, RowEnd: 50, ColEnd: 50},
		{RowOrigin: 0, ColOrigin: 50, RowEnd: 50, ColEnd: 100},
		{RowOrigin: 50, ColOrigin: 0, RowEnd: 100, ColEnd: 50},
		{RowOrigin: 50, ColOrigin: 50, RowEnd: 100, ColEnd: 100},
	}, got)
	assert.Equal(t, 3, spec.Rows(105))
	assert.Equal(t, 6, spec.Cells(105, 100))

	spec.RequestedTileCount = 6
	all := slices.Collect(spec.Tiles(105, 100))
	require.Len(t, all, 6)
	assert.Equal(t, Descriptor{RowOrigin: 100, ColOrigin: 0, RowEnd: 105, ColEnd: 50}, all[4])
	assert.Equal(t, 5, all[4].Height())
	assert.Equal(t, 50, all[4].Width())
}

func TestSpec_Tiles_fewerCellsThanRequested(t *testing.T) {
	spec := Spec{RequestedTileCount: 10, TileHeight: 50, TileWidth: 50}
	got := slices.Collect(spec.Tiles(100, 100))
	assert.Len(t, got, 4)
	assert.Equal(t, 4, spec.Emitted(100, 100))
}

func TestSpec_Tiles_restartable(t *testing.T) {
	spec, err := Plan(100, 100, 10)
	require.NoError(t, err)
	seq := spec.Tiles(100, 100)
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Len(t, first, 10)
	assert.Equal(t, first, second)

	// breaking out early is honoured
	n := 0
	for range seq {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestSpec_Tiles_emittedIsMinOfCellsAndRequested(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 5, 7, 10, 16, 50} {
		for _, size := range [][2]int{{100, 100}, {105, 100}, {64, 200}, {999, 13}} {
			spec, err := Plan(size[0], size[1], n)
			if err != nil {
				require.ErrorIs(t, err, ErrDegenerateGrid)
				continue
			}
			got := slices.Collect(spec.Tiles(size[0], size[1]))
			assert.Len(t, got, min(spec.Cells(size[0], size[1]), n))
			assert.Equal(t, spec.Emitted(size[0], size[1]), len(got))
		}
	}
}

func TestSpec_Tiles_coverage(t *testing.T) {
	for _, n := range []int{1, 2, 3, 4, 6, 10, 25} {
		for _, size := range [][2]int{{100, 100}, {105, 100}, {17, 23}, {60, 7}} {
			height, width := size[0], size[1]
			t.Run(fmt.Sprintf("%dx%d/%d", height, width, n), func(t *testing.T) {
				spec, err := Plan(height, width, n)
				if err != nil {
					require.ErrorIs(t, err, ErrDegenerateGrid)
					return
				}
				// lift the early stop to look at the natural grid
				spec.RequestedTileCount = math.MaxInt
				covered := make([]int, height*width)
				lastRow := (spec.Rows(height) - 1) * spec.TileHeight
				lastCol := (spec.Cols(width) - 1) * spec.TileWidth
				for d := range spec.Tiles(height, width) {
					require.Greater(t, d.RowEnd, d.RowOrigin)
					require.Greater(t, d.ColEnd, d.ColOrigin)
					require.Zero(t, d.RowOrigin%spec.TileHeight)
					require.Zero(t, d.ColOrigin%spec.TileWidth)
					if d.Height() < spec.TileHeight {
						assert.Equal(t, lastRow, d.RowOrigin)
					}
					if d.Width() < spec.TileWidth {
						assert.Equal(t, lastCol, d.ColOrigin)
					}
					for r := d.RowOrigin; r < d.RowEnd; r++ {
						for c := d.ColOrigin; c < d.ColEnd; c++ {
							covered[r*width+c]++
						}
					}
				}
				for i, count := range covered {
					require.Equalf(t, 1, count, "pixel %d,%d covered %d times", i/width, i%width, count)
				}
			})
		}
	}
}
