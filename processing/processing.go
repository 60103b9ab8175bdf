// Package processing takes care of the logistics of a split: opening the
// source, planning the grid and handing every tile to the writer and recorders.
// Not the tiling itself.
package processing

import (
	"errors"
	"log"

	"github.com/pdok/rastersplit/geomhelp"
	"github.com/pdok/rastersplit/grid"
	"github.com/pdok/rastersplit/manifest"
	"github.com/pdok/rastersplit/raster"
	"github.com/pdok/rastersplit/tileindex"
	"github.com/pdok/rastersplit/tilewriter"
)

const logWKTLength = 60

// Result summarizes a split.
type Result struct {
	Height int
	Width  int
	Spec   grid.Spec
	// Cells in the natural grid, before the early stop
	Cells int
	// Paths of the written tiles, in row-major order
	Paths []string
	// Pixels of the source not covered by any written tile
	Untiled int
	// Area covered by the written tiles, in CRS units
	CoveredArea float64
}

// Split cuts the configured band into tiles. The first error aborts the split;
// tiles written before it are left in place.
func Split(cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r, err := raster.Open(cfg.Source, cfg.Band)
	if err != nil {
		return nil, err
	}
	log.Printf("  source %s band %d: %dx%d pixels of %v", r.Path, r.BandIndex, r.Height, r.Width, r.DataType)
	if r.SpatialRef != "" {
		log.Printf("  crs %s", geomhelp.Truncate(r.SpatialRef, logWKTLength))
	}

	spec, err := grid.Plan(r.Height, r.Width, cfg.TileCount)
	if err != nil {
		return nil, err
	}

	w, err := tilewriter.New(cfg.Target, cfg.ImageName, tilewriter.WithCreationOptions(cfg.CreationOptions...))
	if err != nil {
		return nil, err
	}

	var recorders []Recorder
	if cfg.Index != "" {
		srs := tileindex.SpatialReferenceSystem(r.Authority, r.Code, r.SpatialRef)
		idx, err := tileindex.Create(cfg.Index, srs, cfg.PageSize)
		if err != nil {
			return nil, err
		}
		recorders = append(recorders, idx)
	}
	if cfg.Manifest {
		m, err := manifest.New(cfg.Target, cfg.ImageName, r, spec)
		if err != nil {
			return nil, errors.Join(err, closeAll(recorders))
		}
		recorders = append(recorders, m)
	}

	return split(r, spec, w, recorders)
}

func split(r *raster.Raster, spec grid.Spec, w TileWriter, recorders []Recorder) (*Result, error) {
	result := &Result{
		Height: r.Height,
		Width:  r.Width,
		Spec:   spec,
		Cells:  spec.Cells(r.Height, r.Width),
	}
	log.Printf("  tile size %dx%d, grid of %dx%d cells, %d tiles requested",
		spec.TileHeight, spec.TileWidth, spec.Rows(r.Height), spec.Cols(r.Width), spec.RequestedTileCount)

	covered := 0
	for d := range spec.Tiles(r.Height, r.Width) {
		tile := r.Tile(d)
		path, err := w.WriteTile(tile)
		if err != nil {
			return result, errors.Join(err, closeAll(recorders))
		}
		result.Paths = append(result.Paths, path)
		covered += d.Height() * d.Width()
		footprint := geomhelp.Footprint(tile.Transform, d.Height(), d.Width())
		result.CoveredArea += geomhelp.Shoelace(footprint[0])
		log.Printf("    saved %s %s", path, geomhelp.WktMustEncode(footprint, logWKTLength))

		for _, rec := range recorders {
			if err = rec.Record(tile, path); err != nil {
				return result, errors.Join(err, closeAll(recorders))
			}
		}
	}
	result.Untiled = r.Height*r.Width - covered

	if len(result.Paths) != spec.RequestedTileCount {
		log.Printf("  wrote %d tiles instead of the requested %d, the grid only has %d cells",
			len(result.Paths), spec.RequestedTileCount, result.Cells)
	}
	if result.Untiled > 0 {
		log.Printf("  %d of %d pixels are not covered by any tile", result.Untiled, r.Height*r.Width)
	}
	log.Printf("  wrote %d tiles covering %.2f square units", len(result.Paths), result.CoveredArea)
	return result, closeAll(recorders)
}

func closeAll(recorders []Recorder) error {
	var errs []error
	for _, rec := range recorders {
		errs = append(errs, rec.Close())
	}
	return errors.Join(errs...)
}
