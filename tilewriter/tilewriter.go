// Package tilewriter persists tiles as single-band GeoTIFFs.
package tilewriter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/airbusgeo/godal"
	"github.com/pdok/rastersplit/grid"
	"github.com/pdok/rastersplit/raster"
)

// ErrWriteFailure is returned when an output cannot be created or persisted.
var ErrWriteFailure = errors.New("write failure")

// Writer writes the tiles of one image into a folder.
type Writer struct {
	Folder          string
	ImageName       string
	CreationOptions []string
}

type Option func(*Writer)

// WithCreationOptions passes GDAL GTiff creation options, e.g. COMPRESS=LZW.
func WithCreationOptions(opts ...string) Option {
	return func(w *Writer) {
		w.CreationOptions = append(w.CreationOptions, opts...)
	}
}

// New creates the output folder (if needed) and returns a Writer for it.
func New(folder, imageName string, opts ...Option) (*Writer, error) {
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return nil, fmt.Errorf("%w: cannot create output folder: %v", ErrWriteFailure, err)
	}
	w := &Writer{Folder: folder, ImageName: imageName}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// FileName is the name of the file the tile at d is written to.
func FileName(imageName string, d grid.Descriptor) string {
	return fmt.Sprintf("%s_tile_%d_%d.tif", imageName, d.RowOrigin, d.ColOrigin)
}

// WriteTile writes tile into the folder and returns its path.
func (w *Writer) WriteTile(tile raster.Tile) (string, error) {
	path := filepath.Join(w.Folder, FileName(w.ImageName, tile.Descriptor))
	if err := Write(path, tile, w.CreationOptions...); err != nil {
		return "", err
	}
	return path, nil
}

// Write persists tile as a single-band GeoTIFF with the tile's data type,
// transform and spatial reference.
func Write(path string, tile raster.Tile, creationOptions ...string) (err error) {
	raster.Register()
	dtype := tile.Band.DataType()
	if dtype == godal.Unknown {
		return fmt.Errorf("%w: %s: no GDAL data type for %T", ErrWriteFailure, path, tile.Band.Buffer())
	}
	if tile.DataType != godal.Unknown && tile.DataType != dtype {
		return fmt.Errorf("%w: %s: band holds %v but tile is declared as %v", ErrWriteFailure, path, dtype, tile.DataType)
	}
	width, height := tile.Band.Width(), tile.Band.Height()

	var createOpts []godal.DatasetCreateOption
	if len(creationOptions) > 0 {
		createOpts = append(createOpts, godal.CreationOption(creationOptions...))
	}
	ds, err := godal.Create(godal.GTiff, path, 1, dtype, width, height, createOpts...)
	if err != nil {
		return fmt.Errorf("%w: cannot create %s: %v", ErrWriteFailure, path, err)
	}
	defer func() {
		if closeErr := ds.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%w: cannot close %s: %v", ErrWriteFailure, path, closeErr)
		}
	}()

	if err = ds.SetGeoTransform(tile.Transform.GDAL()); err != nil {
		return fmt.Errorf("%w: geotransform of %s: %v", ErrWriteFailure, path, err)
	}
	if tile.SpatialRef != "" {
		if err = ds.SetProjection(tile.SpatialRef); err != nil {
			return fmt.Errorf("%w: spatial reference of %s: %v", ErrWriteFailure, path, err)
		}
	}
	if err = ds.Bands()[0].Write(0, 0, tile.Band.Buffer(), width, height); err != nil {
		return fmt.Errorf("%w: pixels of %s: %v", ErrWriteFailure, path, err)
	}
	return nil
}
