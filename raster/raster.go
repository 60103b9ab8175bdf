// Package raster reads a single band of a georeferenced raster through GDAL
// and cuts it into tiles with their own geotransform.
package raster

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/pdok/rastersplit/affine"
	"github.com/pdok/rastersplit/grid"
)

// ErrSourceUnavailable is returned when a raster or one of its bands cannot be read.
var ErrSourceUnavailable = errors.New("raster source unavailable")

var registerOnce sync.Once

// Register registers the GDAL drivers. Safe to call more than once.
func Register() {
	registerOnce.Do(godal.RegisterAll)
}

// Raster is an in-memory copy of one band of a raster file.
type Raster struct {
	Path      string
	BandIndex int
	Band      Band
	Height    int
	Width     int
	DataType  godal.DataType
	// SpatialRef is the CRS as WKT, empty when the source has none.
	SpatialRef string
	// Authority and Code identify the CRS, e.g. EPSG and 28992. Empty/zero when unknown.
	Authority string
	Code      int
	Transform affine.Affine
}

// Tile is the pixel block of one grid cell, georeferenced on its own.
type Tile struct {
	grid.Descriptor
	Band       Band
	Transform  affine.Affine
	SpatialRef string
	DataType   godal.DataType
}

// Open reads band (1-based) of the raster at path.
// The GDAL dataset is closed before Open returns.
func Open(path string, band int) (r *Raster, err error) {
	Register()
	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open %s: %v", ErrSourceUnavailable, path, err)
	}
	defer func() {
		if closeErr := ds.Close(); closeErr != nil && err == nil {
			r, err = nil, fmt.Errorf("%w: cannot close %s: %v", ErrSourceUnavailable, path, closeErr)
		}
	}()

	structure := ds.Structure()
	if band < 1 || band > structure.NBands {
		return nil, fmt.Errorf("%w: band %d out of range [1, %d] in %s",
			ErrSourceUnavailable, band, structure.NBands, path)
	}
	gdalBand := ds.Bands()[band-1]
	dtype := gdalBand.Structure().DataType
	pixels, err := newBand(dtype, structure.SizeY, structure.SizeX)
	if err != nil {
		return nil, fmt.Errorf("%w: band %d of %s: %v", ErrSourceUnavailable, band, path, err)
	}
	if err = gdalBand.Read(0, 0, pixels.Buffer(), structure.SizeX, structure.SizeY); err != nil {
		return nil, fmt.Errorf("%w: reading band %d of %s: %v", ErrSourceUnavailable, band, path, err)
	}

	transform := affine.Identity()
	gt, gtErr := ds.GeoTransform()
	switch {
	case gtErr != nil:
		log.Printf("  no geotransform in %s, using pixel coordinates: %v", path, gtErr)
	case affine.FromGDAL(gt).Determinant() == 0:
		log.Printf("  geotransform %v of %s is degenerate, using pixel coordinates", gt, path)
	default:
		transform = affine.FromGDAL(gt)
	}

	r = &Raster{
		Path:       path,
		BandIndex:  band,
		Band:       pixels,
		Height:     structure.SizeY,
		Width:      structure.SizeX,
		DataType:   dtype,
		SpatialRef: ds.Projection(),
		Transform:  transform,
	}
	r.Authority, r.Code, _ = ParseAuthority(r.SpatialRef)
	return r, nil
}

// Tile materializes the pixels of d. The tile transform is the source transform
// applied after a translation to the tile origin, so the tile's pixel (0,0)
// lands on the source's pixel (d.ColOrigin, d.RowOrigin).
func (r *Raster) Tile(d grid.Descriptor) Tile {
	return Tile{
		Descriptor: d,
		Band:       r.Band.Window(d),
		Transform:  r.Transform.Multiply(affine.Translation(float64(d.ColOrigin), float64(d.RowOrigin))),
		SpatialRef: r.SpatialRef,
		DataType:   r.DataType,
	}
}

var (
	wkt1AuthorityRegex = regexp.MustCompile(`AUTHORITY\["(?P<authority>[^"]+)","(?P<code>\d+)"\]\]\s*$`)
	wkt2IDRegex        = regexp.MustCompile(`ID\["(?P<authority>[^"]+)",(?P<code>\d+)(,[^\]]*)?\]\]\s*$`)
)

// ParseAuthority extracts the authority of the root CRS from WKT1 (AUTHORITY) or WKT2 (ID).
func ParseAuthority(wkt string) (authority string, code int, ok bool) {
	parts := wkt1AuthorityRegex.FindStringSubmatch(wkt)
	if parts == nil {
		parts = wkt2IDRegex.FindStringSubmatch(wkt)
	}
	if parts == nil {
		return "", 0, false
	}
	code, err := strconv.Atoi(parts[2])
	if err != nil {
		return "", 0, false
	}
	return parts[1], code, true
}
