// Package tileindex keeps a GeoPackage with the footprint of every written tile.
package tileindex

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/gpkg"
	"github.com/pdok/rastersplit/geomhelp"
	"github.com/pdok/rastersplit/raster"
	"github.com/pdok/rastersplit/tilewriter"
)

const TableName = "tiles"

const undefinedCartesianSRS = -1

type column struct {
	name    string
	ctype   string
	notnull bool
	pk      bool
}

type table struct {
	name    string
	columns []column
	gcolumn string
}

var tilesTable = table{
	name: TableName,
	columns: []column{
		{name: "fid", ctype: "INTEGER", notnull: true, pk: true},
		{name: "location", ctype: "TEXT", notnull: true},
		{name: "row_origin", ctype: "INTEGER", notnull: true},
		{name: "col_origin", ctype: "INTEGER", notnull: true},
		{name: "height", ctype: "INTEGER", notnull: true},
		{name: "width", ctype: "INTEGER", notnull: true},
		{name: "geom", ctype: "POLYGON"},
	},
	gcolumn: "geom",
}

type feature struct {
	columns  []interface{}
	geometry geom.Geometry
}

// Index is a GeoPackage tile index. Features are written per page of pageSize
// features in a single transaction.
type Index struct {
	Path     string
	srs      gpkg.SpatialReferenceSystem
	pageSize int
	handle   *gpkg.Handle
	features []feature
	extent   *geom.Extent
	count    int
}

// SpatialReferenceSystem describes a CRS for gpkg_spatial_ref_sys. Only EPSG
// codes are registered as such, anything else becomes the undefined cartesian SRS.
func SpatialReferenceSystem(authority string, code int, definition string) gpkg.SpatialReferenceSystem {
	if strings.EqualFold(authority, "EPSG") && code > 0 {
		return gpkg.SpatialReferenceSystem{
			Name:                   fmt.Sprintf("EPSG:%d", code),
			ID:                     code,
			Organization:           "EPSG",
			OrganizationCoordsysID: code,
			Definition:             definition,
			Description:            fmt.Sprintf("EPSG:%d", code),
		}
	}
	return gpkg.SpatialReferenceSystem{
		Name:                   "Undefined cartesian SRS",
		ID:                     undefinedCartesianSRS,
		Organization:           "NONE",
		OrganizationCoordsysID: undefinedCartesianSRS,
		Definition:             "undefined",
		Description:            "undefined cartesian coordinate reference system",
	}
}

// Create (re)creates the GeoPackage at path with an empty tiles table.
func Create(path string, srs gpkg.SpatialReferenceSystem, pageSize int) (*Index, error) {
	if pageSize < 1 {
		return nil, fmt.Errorf("%w: page size must be positive, got %d", tilewriter.ErrWriteFailure, pageSize)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: could not remove existing tile index: %v", tilewriter.ErrWriteFailure, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", tilewriter.ErrWriteFailure, err)
	}
	handle, err := gpkg.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: error opening GeoPackage: %v", tilewriter.ErrWriteFailure, err)
	}
	idx := &Index{Path: path, srs: srs, pageSize: pageSize, handle: handle}
	if err = handle.UpdateSRS(srs); err != nil {
		handle.Close()
		return nil, fmt.Errorf("%w: error registering srs %s: %v", tilewriter.ErrWriteFailure, srs.Name, err)
	}
	if err = buildTable(handle, tilesTable, int32(srs.ID)); err != nil {
		handle.Close()
		return nil, fmt.Errorf("%w: %v", tilewriter.ErrWriteFailure, err)
	}
	return idx, nil
}

// Record adds the footprint of tile, written to path.
func (idx *Index) Record(tile raster.Tile, path string) error {
	idx.count++
	idx.features = append(idx.features, feature{
		columns: []interface{}{
			idx.count,
			filepath.Base(path),
			tile.RowOrigin,
			tile.ColOrigin,
			tile.Height(),
			tile.Width(),
		},
		geometry: geomhelp.Footprint(tile.Transform, tile.Height(), tile.Width()),
	})
	if len(idx.features)%idx.pageSize == 0 {
		return idx.writeFeatures()
	}
	return nil
}

// Close writes the remaining features, sets the table extent and closes the GeoPackage.
func (idx *Index) Close() error {
	err := idx.writeFeatures()
	if err == nil && idx.extent != nil {
		if extErr := idx.handle.UpdateGeometryExtent(tilesTable.name, idx.extent); extErr != nil {
			err = fmt.Errorf("%w: failed to update extent: %v", tilewriter.ErrWriteFailure, extErr)
		}
	}
	if closeErr := idx.handle.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("%w: closing %s: %v", tilewriter.ErrWriteFailure, idx.Path, closeErr)
	}
	return err
}

func (idx *Index) writeFeatures() error {
	if len(idx.features) == 0 {
		return nil
	}
	tx, err := idx.handle.Begin()
	if err != nil {
		return fmt.Errorf("%w: could not start a transaction: %v", tilewriter.ErrWriteFailure, err)
	}
	stmt, err := tx.Prepare(tilesTable.insertSQL())
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: could not prepare a statement: %v", tilewriter.ErrWriteFailure, err)
	}
	defer stmt.Close()

	var extent *geom.Extent
	for _, f := range idx.features {
		sb, err := gpkg.NewBinary(int32(idx.srs.ID), f.geometry)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: could not create a binary geometry: %v", tilewriter.ErrWriteFailure, err)
		}
		data := append(f.columns[:len(f.columns):len(f.columns)], sb)
		if _, err = stmt.Exec(data...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: could not insert fid %v: %v", tilewriter.ErrWriteFailure, data[0], err)
		}
		extent = growExtent(extent, f.geometry)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: could not commit: %v", tilewriter.ErrWriteFailure, err)
	}
	// only committed features count towards the table extent
	switch {
	case idx.extent == nil:
		idx.extent = extent
	case extent != nil:
		idx.extent.Add(extent)
	}
	idx.features = nil
	return nil
}

func growExtent(extent *geom.Extent, g geom.Geometry) *geom.Extent {
	if extent == nil {
		e, err := geom.NewExtentFromGeometry(g)
		if err != nil {
			log.Println("Failed to create new extent:", err)
			return nil
		}
		return e
	}
	if err := extent.AddGeometry(g); err != nil {
		log.Println("Failed to grow extent:", err)
	}
	return extent
}

// createSQL creates a CREATE statement on the given table and column information
func (t table) createSQL() string {
	var columnparts []string
	for _, column := range t.columns {
		columnpart := column.name + ` ` + column.ctype
		if column.notnull {
			columnpart += ` NOT NULL`
		}
		if column.pk {
			columnpart += ` PRIMARY KEY`
		}
		columnparts = append(columnparts, columnpart)
	}
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%v"`, t.name) + `(` + strings.Join(columnparts, `, `) + `);`
}

// insertSQL builds the INSERT statement with the geometry column last
func (t table) insertSQL() string {
	var csql, vsql []string
	for _, c := range t.columns {
		if c.name != t.gcolumn {
			csql = append(csql, c.name)
			vsql = append(vsql, `?`)
		}
	}
	csql = append(csql, t.gcolumn)
	vsql = append(vsql, `?`)
	return `INSERT INTO "` + t.name + `"(` + strings.Join(csql, `,`) + `) VALUES(` + strings.Join(vsql, `,`) + `)`
}

// buildTable creates the feature table with the necessary gpkg_ information
func buildTable(h *gpkg.Handle, t table, srsID int32) error {
	if _, err := h.Exec(t.createSQL()); err != nil {
		return fmt.Errorf("error building table in GeoPackage: %w", err)
	}
	err := h.AddGeometryTable(gpkg.TableDescription{
		Name:          t.name,
		ShortName:     t.name,
		Description:   "footprints of the written raster tiles",
		GeometryField: t.gcolumn,
		GeometryType:  gpkg.Polygon,
		SRS:           srsID,
		Z:             gpkg.Prohibited,
		M:             gpkg.Prohibited,
	})
	if err != nil {
		return fmt.Errorf("error adding geometry table in GeoPackage: %w", err)
	}
	return nil
}
