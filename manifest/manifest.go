// Package manifest writes a JSON description of a split: the source, the
// planned grid and every written tile in the order it was written.
package manifest

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/pdok/rastersplit/grid"
	"github.com/pdok/rastersplit/raster"
	"github.com/pdok/rastersplit/tilewriter"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Entry describes one written tile.
type Entry struct {
	grid.Descriptor
	GeoTransform [6]float64 `json:"geoTransform"`
}

type Manifest struct {
	Source       string                                `json:"source"`
	Band         int                                   `json:"band"`
	DataType     string                                `json:"dataType"`
	CRS          string                                `json:"crs,omitempty"`
	Height       int                                   `json:"height"`
	Width        int                                   `json:"width"`
	Grid         grid.Spec                             `json:"grid"`
	Cells        int                                   `json:"cells"`
	Emitted      int                                   `json:"emitted"`
	GeoTransform [6]float64                            `json:"geoTransform"`
	TileMatrix   *TileMatrix                           `json:"tileMatrix,omitempty"`
	Tiles        *orderedmap.OrderedMap[string, Entry] `json:"tiles"`
}

// FileName is the manifest name for an image.
func FileName(imageName string) string {
	return imageName + "_manifest.json"
}

// Recorder collects the tiles of one split and writes the manifest on Close.
type Recorder struct {
	Path     string
	Manifest Manifest
}

// New prepares the manifest of splitting r into folder.
func New(folder, imageName string, r *raster.Raster, spec grid.Spec) (*Recorder, error) {
	m := Manifest{
		Source:       r.Path,
		Band:         r.BandIndex,
		DataType:     fmt.Sprint(r.DataType),
		Height:       r.Height,
		Width:        r.Width,
		Grid:         spec,
		Cells:        spec.Cells(r.Height, r.Width),
		Emitted:      spec.Emitted(r.Height, r.Width),
		GeoTransform: r.Transform.GDAL(),
		Tiles:        orderedmap.New[string, Entry](),
	}
	if r.Authority != "" {
		m.CRS = fmt.Sprintf("%s:%d", r.Authority, r.Code)
	}
	tm, ok, err := NewTileMatrix(r.Transform, spec, r.Height, r.Width)
	if err != nil {
		return nil, fmt.Errorf("invalid tile matrix: %w", err)
	}
	if ok {
		m.TileMatrix = tm
	} else {
		log.Printf("  transform of %s is rotated, sheared or has non-square pixels, manifest has no tileMatrix", r.Path)
	}
	return &Recorder{Path: filepath.Join(folder, FileName(imageName)), Manifest: m}, nil
}

// Record adds tile, written to path.
func (rec *Recorder) Record(tile raster.Tile, path string) error {
	rec.Manifest.Tiles.Set(filepath.Base(path), Entry{
		Descriptor:   tile.Descriptor,
		GeoTransform: tile.Transform.GDAL(),
	})
	return nil
}

// Close writes the manifest. Emitted is the number of recorded tiles, fewer
// than planned when the split was aborted.
func (rec *Recorder) Close() error {
	rec.Manifest.Emitted = rec.Manifest.Tiles.Len()
	data, err := json.MarshalIndent(&rec.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding manifest: %v", tilewriter.ErrWriteFailure, err)
	}
	if err = os.WriteFile(rec.Path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %v", tilewriter.ErrWriteFailure, err)
	}
	return nil
}

// Load reads a manifest written by Close.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m := Manifest{Tiles: orderedmap.New[string, Entry]()}
	if err = json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return &m, nil
}
