package ai

import (
	"errors"
	"image"

	"golang.org/x/image/draw"
)

// Channels is the number of colour channels fed to the model (RGB).
const Channels = 3

// Tensor is a float32 image batch of shape [1, Size, Size, 3] in NHWC order.
type Tensor struct {
	Data []float32
	Size int
}

// Shape returns the tensor dimensions.
func (t *Tensor) Shape() []int {
	return []int{1, t.Size, t.Size, Channels}
}

// At returns the value of channel c at pixel (x, y).
func (t *Tensor) At(x, y, c int) float32 {
	return t.Data[(y*t.Size+x)*Channels+c]
}

// NewTensor resizes img to size x size with nearest-neighbour sampling and
// converts the RGB channels to float32, multiplied by scale. A scale of 1
// keeps raw 0-255 values.
func NewTensor(img image.Image, size int, scale float64) (*Tensor, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, errors.New("empty frame")
	}
	if size < 1 {
		return nil, errors.New("invalid tensor size")
	}

	resized := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.NearestNeighbor.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Src, nil)

	t := &Tensor{
		Data: make([]float32, size*size*Channels),
		Size: size,
	}

	s := float32(scale)
	i := 0
	for y := 0; y < size; y++ {
		row := resized.Pix[y*resized.Stride:]
		for x := 0; x < size; x++ {
			px := row[x*4 : x*4+3]
			t.Data[i] = float32(px[0]) * s
			t.Data[i+1] = float32(px[1]) * s
			t.Data[i+2] = float32(px[2]) * s
			i += Channels
		}
	}

	return t, nil
}
