package processing

import (
	"github.com/pdok/rastersplit/raster"
)

// TileWriter persists a tile and returns where it was written.
type TileWriter interface {
	WriteTile(tile raster.Tile) (string, error)
}

// Recorder keeps track of the written tiles, e.g. in a tile index or manifest.
type Recorder interface {
	Record(tile raster.Tile, path string) error
	Close() error
}
