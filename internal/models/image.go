package models

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Dtype identifies the element type of an image payload.
type Dtype int

const (
	// Uint8 is one byte per sample, typical for 8-bit acquisitions.
	Uint8 Dtype = iota

	// Uint16 is two bytes per sample (little-endian), the most common
	// element type in Imaris datasets.
	Uint16

	// Float32 is four bytes per sample (little-endian IEEE 754). It can be
	// read from a container but is rejected by the TIF encoders.
	Float32
)

// Size returns the number of bytes per sample.
func (d Dtype) Size() int {
	switch d {
	case Uint8:
		return 1
	case Uint16:
		return 2
	case Float32:
		return 4
	}
	return 0
}

func (d Dtype) String() string {
	switch d {
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Float32:
		return "float32"
	}
	return fmt.Sprintf("dtype(%d)", int(d))
}

// Image is a dense multi-dimensional image read from a container.
// Data holds the samples in row-major order with little-endian byte order
// and is treated as immutable once read.
type Image struct {
	// Shape is the dimension sizes, slowest-varying axis first
	// (depth, height, width for a Z-stack).
	Shape []int

	// Dtype is the element type of Data.
	Dtype Dtype

	// Data is the raw sample payload.
	Data []byte
}

// Rank returns the number of dimensions.
func (img *Image) Rank() int {
	return len(img.Shape)
}

// NumElements returns the total sample count.
func (img *Image) NumElements() int {
	if len(img.Shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range img.Shape {
		n *= d
	}
	return n
}

// Depth returns the size of the leading axis, or 1 for images of rank
// below 3 (a single 2D plane has no Z extent).
func (img *Image) Depth() int {
	if len(img.Shape) < 3 {
		return 1
	}
	return img.Shape[0]
}

// planeBytes returns the byte length of one slab along the leading axis.
func (img *Image) planeBytes() int {
	if len(img.Shape) == 0 || img.Shape[0] == 0 {
		return 0
	}
	return img.NumElements() / img.Shape[0] * img.Dtype.Size()
}

// Plane returns the raw bytes of the slab at index z along the leading axis.
// The returned slice aliases Data and must not be modified.
func (img *Image) Plane(z int) ([]byte, error) {
	if len(img.Shape) == 0 {
		return nil, fmt.Errorf("plane %d: image has no shape", z)
	}
	if z < 0 || z >= img.Shape[0] {
		return nil, fmt.Errorf("plane %d out of range [0, %d)", z, img.Shape[0])
	}
	size := img.planeBytes()
	return img.Data[z*size : (z+1)*size], nil
}

// PlaneMax returns the maximum sample value of the slab at index z.
func (img *Image) PlaneMax(z int) (float64, error) {
	plane, err := img.Plane(z)
	if err != nil {
		return 0, err
	}

	max := math.Inf(-1)
	switch img.Dtype {
	case Uint8:
		for _, v := range plane {
			if f := float64(v); f > max {
				max = f
			}
		}
	case Uint16:
		for i := 0; i+1 < len(plane); i += 2 {
			if f := float64(binary.LittleEndian.Uint16(plane[i:])); f > max {
				max = f
			}
		}
	case Float32:
		for i := 0; i+3 < len(plane); i += 4 {
			v := math.Float32frombits(binary.LittleEndian.Uint32(plane[i:]))
			if f := float64(v); f > max {
				max = f
			}
		}
	default:
		return 0, fmt.Errorf("plane max: unsupported dtype %s", img.Dtype)
	}

	if math.IsInf(max, -1) {
		return 0, fmt.Errorf("plane %d is empty", z)
	}
	return max, nil
}

// SelectPlanes returns a new image containing only the given leading-axis
// slabs, in the order given. Indices must be valid plane indices.
func (img *Image) SelectPlanes(indices []int) (*Image, error) {
	size := img.planeBytes()
	out := &Image{
		Shape: append([]int{len(indices)}, img.Shape[1:]...),
		Dtype: img.Dtype,
		Data:  make([]byte, 0, len(indices)*size),
	}
	for _, z := range indices {
		plane, err := img.Plane(z)
		if err != nil {
			return nil, err
		}
		out.Data = append(out.Data, plane...)
	}
	return out, nil
}

// ExtractPlane returns the single slab at index z as a new image of one
// lower rank (the leading axis is dropped).
func (img *Image) ExtractPlane(z int) (*Image, error) {
	plane, err := img.Plane(z)
	if err != nil {
		return nil, err
	}
	out := &Image{
		Shape: append([]int{}, img.Shape[1:]...),
		Dtype: img.Dtype,
		Data:  append([]byte{}, plane...),
	}
	return out, nil
}
