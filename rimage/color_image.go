// Package rimage holds the fixed-resolution frame buffers moved through the capture pipeline.
//
// Color frames are stored as packed BGRX (4 bytes per pixel, the layout the sensor delivers)
// and depth frames as float32 samples. Both implement image.Image so they can be handed to the
// standard encoders.
package rimage

import (
	"image"
	"image/color"

	"github.com/pkg/errors"
)

// ColorBytesPerPixel is the size of one BGRX pixel.
const ColorBytesPerPixel = 4

// InvalidColor is the sentinel written to aligned color pixels that have no valid depth sample.
var InvalidColor = BGRX{}

// BGRX is a single packed color pixel. The fourth byte is padding.
type BGRX [ColorBytesPerPixel]uint8

// RGBA implements color.Color. The padding byte is ignored; pixels are opaque.
func (c BGRX) RGBA() (r, g, b, a uint32) {
	return color.NRGBA{R: c[2], G: c[1], B: c[0], A: 0xff}.RGBA()
}

// NewBGRX packs 8-bit red, green and blue components.
func NewBGRX(r, g, b uint8) BGRX {
	return BGRX{b, g, r, 0}
}

// ColorImage is a packed BGRX image.
type ColorImage struct {
	width, height int
	data          []uint8
}

// NewColorImage returns a zeroed image of the given size. Every pixel equals InvalidColor.
func NewColorImage(width, height int) *ColorImage {
	return &ColorImage{width: width, height: height, data: make([]uint8, width*height*ColorBytesPerPixel)}
}

// NewColorImageFromBytes wraps a BGRX buffer without copying it.
func NewColorImageFromBytes(width, height int, data []uint8) (*ColorImage, error) {
	if len(data) != width*height*ColorBytesPerPixel {
		return nil, errors.Errorf("color buffer has %d bytes, expected %d for %dx%d BGRX",
			len(data), width*height*ColorBytesPerPixel, width, height)
	}
	return &ColorImage{width: width, height: height, data: data}, nil
}

// ConvertToColorImage converts any image.Image into a ColorImage. Images that already are a
// ColorImage are cloned.
func ConvertToColorImage(img image.Image) *ColorImage {
	if ci, ok := img.(*ColorImage); ok {
		return ci.Clone()
	}
	bounds := img.Bounds()
	ci := NewColorImage(bounds.Dx(), bounds.Dy())
	for y := 0; y < ci.height; y++ {
		for x := 0; x < ci.width; x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			ci.SetXY(x, y, NewBGRX(c.R, c.G, c.B))
		}
	}
	return ci
}

// Width returns the horizontal image dimension.
func (ci *ColorImage) Width() int {
	return ci.width
}

// Height returns the vertical image dimension.
func (ci *ColorImage) Height() int {
	return ci.height
}

// Bounds implements image.Image.
func (ci *ColorImage) Bounds() image.Rectangle {
	return image.Rect(0, 0, ci.width, ci.height)
}

// ColorModel implements image.Image.
func (ci *ColorImage) ColorModel() color.Model {
	return color.NRGBAModel
}

// At implements image.Image.
func (ci *ColorImage) At(x, y int) color.Color {
	if !ci.In(x, y) {
		return color.NRGBA{}
	}
	return ci.GetXY(x, y)
}

// In reports whether (x, y) lies inside the image.
func (ci *ColorImage) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < ci.width && y < ci.height
}

func (ci *ColorImage) kxy(x, y int) int {
	return (y*ci.width + x) * ColorBytesPerPixel
}

// GetXY returns the pixel at (x, y). Callers must stay inside the bounds.
func (ci *ColorImage) GetXY(x, y int) BGRX {
	return ci.GetIndex(y*ci.width + x)
}

// GetIndex returns the pixel at linear index i (row-major).
func (ci *ColorImage) GetIndex(i int) BGRX {
	k := i * ColorBytesPerPixel
	return BGRX{ci.data[k], ci.data[k+1], ci.data[k+2], ci.data[k+3]}
}

// SetXY stores the pixel at (x, y).
func (ci *ColorImage) SetXY(x, y int, c BGRX) {
	copy(ci.data[ci.kxy(x, y):], c[:])
}

// SetIndex stores the pixel at linear index i (row-major).
func (ci *ColorImage) SetIndex(i int, c BGRX) {
	copy(ci.data[i*ColorBytesPerPixel:], c[:])
}

// Fill sets every pixel to c.
func (ci *ColorImage) Fill(c BGRX) {
	for k := 0; k < len(ci.data); k += ColorBytesPerPixel {
		copy(ci.data[k:], c[:])
	}
}

// Bytes returns the underlying BGRX buffer. Modifying it modifies the image.
func (ci *ColorImage) Bytes() []uint8 {
	return ci.data
}

// Clone returns a deep copy of the image.
func (ci *ColorImage) Clone() *ColorImage {
	data := make([]uint8, len(ci.data))
	copy(data, ci.data)
	return &ColorImage{width: ci.width, height: ci.height, data: data}
}

// CopyFrom overwrites the image with src. Both images must have the same size.
func (ci *ColorImage) CopyFrom(src *ColorImage) error {
	if src.width != ci.width || src.height != ci.height {
		return errors.Errorf("cannot copy %dx%d color image into %dx%d", src.width, src.height, ci.width, ci.height)
	}
	copy(ci.data, src.data)
	return nil
}
