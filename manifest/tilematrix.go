package manifest

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/pdok/rastersplit/affine"
	"github.com/pdok/rastersplit/grid"
	"github.com/perimeterx/marshmallow"
)

// standardized rendering pixel size of OGC WMTS/TMS, in metres
const standardizedRenderingPixelSize = 0.00028

// TileMatrix describes the tile grid of a split following the OGC Tile Matrix Set standard (v2.0).
// See https://www.ogc.org/standard/tms/
type TileMatrix struct {
	// Identifier of this tile matrix, the requested tile count
	ID string `validate:"required" json:"id"`
	// Scale denominator of this tile matrix, assuming a CRS in metres
	ScaleDenominator float64 `validate:"required,gt=0" json:"scaleDenominator"`
	// Cell size of this tile matrix
	CellSize float64 `validate:"required,gt=0" json:"cellSize"`
	// The corner of the tile matrix (_topLeft_ or _bottomLeft_) used as the origin for numbering tile rows and columns.
	CornerOfOrigin CornerOfOrigin `default:"topLeft" validate:"oneof=topLeft bottomLeft" json:"cornerOfOrigin"`
	// Position in CRS coordinates of the corner of origin. May be (0,0).
	PointOfOrigin TwoDPoint `json:"pointOfOrigin"`
	TileWidth     uint      `validate:"required,min=1" json:"tileWidth"`
	TileHeight    uint      `validate:"required,min=1" json:"tileHeight"`
	MatrixWidth   uint      `validate:"required,min=1" json:"matrixWidth"`
	MatrixHeight  uint      `validate:"required,min=1" json:"matrixHeight"`
}

// A 2D Point in the CRS of the source
type TwoDPoint [2]float64

// NewTileMatrix describes the planned grid as a tile matrix. Only a transform without
// rotation or shear, with square pixels and x increasing with the column, can
// be described; otherwise ok is false.
func NewTileMatrix(m affine.Affine, spec grid.Spec, height, width int) (tm *TileMatrix, ok bool, err error) {
	if !m.IsRectilinear() || m.A <= 0 || m.E == 0 || math.Abs(m.A) != math.Abs(m.E) {
		return nil, false, nil
	}
	tm = &TileMatrix{}
	if err = defaults.Set(tm); err != nil {
		return nil, false, err
	}
	if m.E > 0 {
		tm.CornerOfOrigin = BottomLeft
	}
	origin := m.Apply(0, 0)
	tm.ID = fmt.Sprint(spec.RequestedTileCount)
	tm.CellSize = m.A
	tm.ScaleDenominator = m.A / standardizedRenderingPixelSize
	tm.PointOfOrigin = TwoDPoint{origin.X(), origin.Y()}
	tm.TileWidth = uint(spec.TileWidth)
	tm.TileHeight = uint(spec.TileHeight)
	tm.MatrixWidth = uint(spec.Cols(width))
	tm.MatrixHeight = uint(spec.Rows(height))

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err = validate.Struct(tm); err != nil {
		return nil, false, err
	}
	return tm, true, nil
}

func (tm *TileMatrix) UnmarshalJSON(data []byte) error {
	err := defaults.Set(tm)
	if err != nil {
		return err
	}
	var dataMap map[string]interface{}
	if err = json.Unmarshal(data, &dataMap); err != nil {
		return err
	}
	_, err = marshmallow.UnmarshalFromJSONMap(dataMap, tm, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return err
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(tm)
}

type CornerOfOrigin string

const (
	TopLeft    CornerOfOrigin = "topLeft"
	BottomLeft CornerOfOrigin = "bottomLeft"
)

func (c *CornerOfOrigin) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf(`CornerOfOrigin data is not a string: %w`, err)
	}
	return c.UnmarshalJSONFromMap(s)
}

func (c *CornerOfOrigin) UnmarshalJSONFromMap(data interface{}) error {
	dataString, ok := data.(string)
	if !ok {
		return fmt.Errorf(`CornerOfOrigin data is not a string but a %T`, data)
	}
	switch dataString {
	case "":
		fallthrough
	case string(TopLeft):
		*c = TopLeft
	case string(BottomLeft):
		*c = BottomLeft
	default:
		return fmt.Errorf(`unknown CornerOfOrigin: %v`, data)
	}
	return nil
}
