// Package preprocess turns a single tile into the input of an inference model:
// the band is min-max scaled to 8 bits and then to a float32 tensor of shape
// (1, height, width) with values in [0,1].
package preprocess

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/pdok/rastersplit/raster"
	"gonum.org/v1/gonum/floats"
)

// ErrDegenerateInput is returned for bands that cannot be min-max scaled.
var ErrDegenerateInput = errors.New("degenerate input")

// Tensor is a dense float32 tensor in row-major order.
type Tensor struct {
	Shape [3]int
	Data  []float32
}

// At returns the value at batch b, row, col.
func (t *Tensor) At(b, row, col int) float32 {
	return t.Data[(b*t.Shape[1]+row)*t.Shape[2]+col]
}

// Min is the smallest value, zero for an empty tensor.
func (t *Tensor) Min() float32 {
	if len(t.Data) == 0 {
		return 0
	}
	m := t.Data[0]
	for _, v := range t.Data[1:] {
		m = min(m, v)
	}
	return m
}

func (t *Tensor) Max() float32 {
	if len(t.Data) == 0 {
		return 0
	}
	m := t.Data[0]
	for _, v := range t.Data[1:] {
		m = max(m, v)
	}
	return m
}

// Preprocess reads band 1 of the raster at path and returns it as a tensor.
func Preprocess(path string) (*Tensor, error) {
	return PreprocessBand(path, 1)
}

// PreprocessBand is Preprocess for any band.
func PreprocessBand(path string, band int) (*Tensor, error) {
	img, err := LoadScaled(path, band)
	if err != nil {
		return nil, err
	}
	return ToTensor(img), nil
}

// LoadScaled reads a band and scales it to 8 bits.
func LoadScaled(path string, band int) (*image.Gray, error) {
	r, err := raster.Open(path, band)
	if err != nil {
		return nil, err
	}
	img, err := Scale(r.Band)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Scale maps the band linearly onto 0..255, the minimum to 0 and the maximum to 255.
// Intermediate values are truncated.
func Scale(band raster.Band) (*image.Gray, error) {
	values := band.Float64s()
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty band", ErrDegenerateInput)
	}
	if floats.HasNaN(values) {
		return nil, fmt.Errorf("%w: band contains NaN", ErrDegenerateInput)
	}
	lo, hi := floats.Min(values), floats.Max(values)
	if hi == lo {
		return nil, fmt.Errorf("%w: constant band (all pixels are %v)", ErrDegenerateInput, lo)
	}
	img := image.NewGray(image.Rect(0, 0, band.Width(), band.Height()))
	for i, v := range values {
		img.Pix[i] = uint8((v - lo) / (hi - lo) * 255)
	}
	return img, nil
}

// ToTensor converts an 8-bit image to a (1, height, width) tensor in [0,1].
func ToTensor(img *image.Gray) *Tensor {
	bounds := img.Bounds()
	t := &Tensor{
		Shape: [3]int{1, bounds.Dy(), bounds.Dx()},
		Data:  make([]float32, bounds.Dx()*bounds.Dy()),
	}
	for row := 0; row < bounds.Dy(); row++ {
		for col := 0; col < bounds.Dx(); col++ {
			t.Data[row*bounds.Dx()+col] = float32(img.GrayAt(bounds.Min.X+col, bounds.Min.Y+row).Y) / 255
		}
	}
	return t
}

// WritePreview saves the 8-bit image, the format follows the extension of path.
func WritePreview(path string, img *image.Gray) error {
	return imaging.Save(img, path)
}
