package raster

import (
	"fmt"

	"github.com/airbusgeo/godal"
	"github.com/pdok/rastersplit/grid"
	"golang.org/x/exp/constraints"
)

// Number is any pixel value type a band can hold.
type Number interface {
	constraints.Integer | constraints.Float
}

// Band is a row-major pixel matrix of a single band with its native data type.
type Band interface {
	Height() int
	Width() int
	// DataType is the GDAL data type matching the Go element type,
	// godal.Unknown when GDAL has no equivalent.
	DataType() godal.DataType
	// Window copies the pixels inside d into a new band of the same type.
	Window(d grid.Descriptor) Band
	// Buffer is the backing slice, suitable for godal band IO.
	Buffer() any
	Float64s() []float64
	At(row, col int) float64
}

// Matrix is a Band with element type T.
type Matrix[T Number] struct {
	Rows int
	Cols int
	Data []T
}

// NewMatrix wraps data as a rows x cols matrix. A nil data slice allocates one.
func NewMatrix[T Number](rows, cols int, data []T) *Matrix[T] {
	if data == nil {
		data = make([]T, rows*cols)
	}
	return &Matrix[T]{Rows: rows, Cols: cols, Data: data}
}

func (m *Matrix[T]) Height() int {
	return m.Rows
}

func (m *Matrix[T]) Width() int {
	return m.Cols
}

func (m *Matrix[T]) DataType() godal.DataType {
	return dataTypeOf[T]()
}

func (m *Matrix[T]) Window(d grid.Descriptor) Band {
	w := NewMatrix[T](d.Height(), d.Width(), nil)
	for r := 0; r < w.Rows; r++ {
		src := (d.RowOrigin+r)*m.Cols + d.ColOrigin
		copy(w.Data[r*w.Cols:(r+1)*w.Cols], m.Data[src:src+w.Cols])
	}
	return w
}

func (m *Matrix[T]) Buffer() any {
	return m.Data
}

func (m *Matrix[T]) Float64s() []float64 {
	out := make([]float64, len(m.Data))
	for i, v := range m.Data {
		out[i] = float64(v)
	}
	return out
}

func (m *Matrix[T]) At(row, col int) float64 {
	return float64(m.Data[row*m.Cols+col])
}

// Get returns the typed value at row, col.
func (m *Matrix[T]) Get(row, col int) T {
	return m.Data[row*m.Cols+col]
}

func dataTypeOf[T Number]() godal.DataType {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return godal.Byte
	case uint16:
		return godal.UInt16
	case int16:
		return godal.Int16
	case uint32:
		return godal.UInt32
	case int32:
		return godal.Int32
	case float32:
		return godal.Float32
	case float64:
		return godal.Float64
	default:
		return godal.Unknown
	}
}

// newBand allocates a band for a GDAL data type.
func newBand(dtype godal.DataType, rows, cols int) (Band, error) {
	switch dtype {
	case godal.Byte:
		return NewMatrix[uint8](rows, cols, nil), nil
	case godal.UInt16:
		return NewMatrix[uint16](rows, cols, nil), nil
	case godal.Int16:
		return NewMatrix[int16](rows, cols, nil), nil
	case godal.UInt32:
		return NewMatrix[uint32](rows, cols, nil), nil
	case godal.Int32:
		return NewMatrix[int32](rows, cols, nil), nil
	case godal.Float32:
		return NewMatrix[float32](rows, cols, nil), nil
	case godal.Float64:
		return NewMatrix[float64](rows, cols, nil), nil
	default:
		return nil, fmt.Errorf("unsupported data type %v", dtype)
	}
}
