package rimage

import (
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// Depth is a single depth sample. Values are kept in the unit the sensor delivers (millimetres
// for every supported device); the pipeline never converts them.
type Depth float32

// InvalidDepth marks a pixel without a usable depth sample.
const InvalidDepth = Depth(0)

// MaxDepth is the largest depth a 16-bit depth frame can express.
const MaxDepth = Depth(math.MaxUint16)

// Valid reports whether d is a usable depth sample: finite and strictly positive.
func (d Depth) Valid() bool {
	f := float64(d)
	return f > 0 && !math.IsInf(f, 0) && !math.IsNaN(f)
}

// DepthMap is a fixed-size grid of depth samples.
type DepthMap struct {
	width, height int
	data          []Depth
}

// NewEmptyDepthMap returns a depth map of the given size where every sample is InvalidDepth.
func NewEmptyDepthMap(width, height int) *DepthMap {
	return &DepthMap{width: width, height: height, data: make([]Depth, width*height)}
}

// NewDepthMapFromSamples wraps a sample slice without copying it.
func NewDepthMapFromSamples(width, height int, samples []Depth) (*DepthMap, error) {
	if len(samples) != width*height {
		return nil, errors.Errorf("depth buffer has %d samples, expected %d for %dx%d", len(samples), width*height, width, height)
	}
	return &DepthMap{width: width, height: height, data: samples}, nil
}

// ConvertGray16ToDepthMap converts a 16-bit grayscale frame, the usual output of Z16 video
// drivers, into a depth map. A zero sample stays invalid.
func ConvertGray16ToDepthMap(img *image.Gray16) *DepthMap {
	bounds := img.Bounds()
	dm := NewEmptyDepthMap(bounds.Dx(), bounds.Dy())
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			dm.Set(x, y, Depth(img.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y))
		}
	}
	return dm
}

// Width returns the horizontal dimension.
func (dm *DepthMap) Width() int {
	return dm.width
}

// Height returns the vertical dimension.
func (dm *DepthMap) Height() int {
	return dm.height
}

// Bounds implements image.Image.
func (dm *DepthMap) Bounds() image.Rectangle {
	return image.Rect(0, 0, dm.width, dm.height)
}

// ColorModel implements image.Image.
func (dm *DepthMap) ColorModel() color.Model {
	return color.Gray16Model
}

// At implements image.Image, clamping samples into the 16-bit range.
func (dm *DepthMap) At(x, y int) color.Color {
	if !dm.In(x, y) {
		return color.Gray16{}
	}
	d := dm.GetDepth(x, y)
	if !d.Valid() {
		return color.Gray16{}
	}
	return color.Gray16{Y: uint16(math.Min(float64(d), float64(MaxDepth)))}
}

// In reports whether (x, y) lies inside the map.
func (dm *DepthMap) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < dm.width && y < dm.height
}

// GetDepth returns the sample at (x, y). Callers must stay inside the bounds.
func (dm *DepthMap) GetDepth(x, y int) Depth {
	return dm.data[y*dm.width+x]
}

// GetIndex returns the sample at linear index i (row-major).
func (dm *DepthMap) GetIndex(i int) Depth {
	return dm.data[i]
}

// Set stores the sample at (x, y).
func (dm *DepthMap) Set(x, y int, d Depth) {
	dm.data[y*dm.width+x] = d
}

// SetIndex stores the sample at linear index i (row-major).
func (dm *DepthMap) SetIndex(i int, d Depth) {
	dm.data[i] = d
}

// Fill sets every sample to d.
func (dm *DepthMap) Fill(d Depth) {
	for i := range dm.data {
		dm.data[i] = d
	}
}

// Samples returns the underlying sample slice. Modifying it modifies the map.
func (dm *DepthMap) Samples() []Depth {
	return dm.data
}

// Clone returns a deep copy of the map.
func (dm *DepthMap) Clone() *DepthMap {
	data := make([]Depth, len(dm.data))
	copy(data, dm.data)
	return &DepthMap{width: dm.width, height: dm.height, data: data}
}

// CopyFrom overwrites the map with src. Both maps must have the same size.
func (dm *DepthMap) CopyFrom(src *DepthMap) error {
	if src.width != dm.width || src.height != dm.height {
		return errors.Errorf("cannot copy %dx%d depth map into %dx%d", src.width, src.height, dm.width, dm.height)
	}
	copy(dm.data, src.data)
	return nil
}

// MinMax returns the smallest and largest valid samples. Both are InvalidDepth when the map has
// no valid sample.
func (dm *DepthMap) MinMax() (Depth, Depth) {
	var low, high Depth
	found := false
	for _, d := range dm.data {
		if !d.Valid() {
			continue
		}
		if !found {
			low, high = d, d
			found = true
			continue
		}
		if d < low {
			low = d
		}
		if d > high {
			high = d
		}
	}
	return low, high
}

// ToPrettyPicture renders the depth map with a hue ramp from red (near) to blue (far) for
// debugging. hardMin and hardMax clamp the range; pass zero for either to use the map's own
// extent. Invalid samples are black.
func (dm *DepthMap) ToPrettyPicture(hardMin, hardMax Depth) *ColorImage {
	low, high := dm.MinMax()
	if hardMin > 0 && hardMin > low {
		low = hardMin
	}
	if hardMax > 0 && hardMax < high {
		high = hardMax
	}
	span := float64(high - low)

	img := NewColorImage(dm.width, dm.height)
	for i, d := range dm.data {
		if !d.Valid() {
			continue
		}
		ratio := 0.0
		if span > 0 {
			ratio = math.Max(0, math.Min(1, float64(d-low)/span))
		}
		r, g, b := colorful.Hsv(ratio*240, 1, 1).RGB255()
		img.SetIndex(i, NewBGRX(r, g, b))
	}
	return img
}
