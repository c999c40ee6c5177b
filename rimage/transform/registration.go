package transform

import (
	"math"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/derpvision/procam/rimage"
)

var (
	// ErrFrameSizeMismatch is returned when an input or output image does not have the
	// resolution the Registration was built for.
	ErrFrameSizeMismatch = errors.New("frame size does not match registration parameters")
	// ErrRegistrationClosed is returned by a Registration after Close.
	ErrRegistrationClosed = errors.New("registration is closed")
)

// DefaultFilterTolerance is the relative depth slack before a depth pixel counts as occluded.
const DefaultFilterTolerance = 0.01

// RegistrationOptions tunes a Registration.
type RegistrationOptions struct {
	FilterOcclusion bool    `json:"filter_occlusion"`
	FilterTolerance float64 `json:"filter_tolerance"`
}

// DefaultRegistrationOptions enables occlusion filtering with DefaultFilterTolerance.
func DefaultRegistrationOptions() RegistrationOptions {
	return RegistrationOptions{FilterOcclusion: true, FilterTolerance: DefaultFilterTolerance}
}

// Registration undistorts depth frames and maps pixels between the depth and color sensors. The lookup
// tables are computed once from the calibration and reused for every frame.
type Registration struct {
	depth      PinholeCameraModel
	color      PinholeCameraIntrinsics
	extrinsics *DepthColorExtrinsics
	opts       RegistrationOptions
	inverse    *InverseBrownConrady

	mu sync.Mutex
	// per undistorted depth pixel: index of the raw depth sample it reads, or -1.
	rawIndex []int32
	// per undistorted depth pixel: normalized rays through the center and the four corners.
	rays    []r2.Point
	corners [][4]r2.Point
	// scratch, per undistorted depth pixel: color pixel its center lands on, or -1.
	colorIndex []int32
	// scratch, per color pixel: nearest depth covering it, for the occlusion filter.
	zbuf []rimage.Depth
	// scratch, per color pixel: the sample whose projected center is closest to the pixel center.
	nearestDist  []float64
	nearestDepth []rimage.Depth
	closed       bool
}

// NewRegistration builds the lookup tables for a depth sensor with the given distortion and a color sensor.
// A nil extrinsics means the sensors share an optical center.
func NewRegistration(
	depth *PinholeCameraIntrinsics,
	distortion *BrownConrady,
	color *PinholeCameraIntrinsics,
	extrinsics *DepthColorExtrinsics,
	opts RegistrationOptions,
) (*Registration, error) {
	if err := depth.CheckValid(); err != nil {
		return nil, errors.Wrap(err, "invalid depth intrinsics")
	}
	if err := color.CheckValid(); err != nil {
		return nil, errors.Wrap(err, "invalid color intrinsics")
	}
	if extrinsics != nil {
		if err := extrinsics.CheckValid(); err != nil {
			return nil, errors.Wrap(err, "invalid extrinsics")
		}
	}
	if !distortion.IsZero() {
		if err := distortion.CheckValid(); err != nil {
			return nil, errors.Wrap(err, "invalid depth distortion")
		}
	}
	if opts.FilterTolerance < 0 {
		return nil, errors.Errorf("filter tolerance must be non-negative, got %v", opts.FilterTolerance)
	}

	reg := &Registration{
		depth:      PinholeCameraModel{PinholeCameraIntrinsics: depth},
		color:      *color,
		extrinsics: extrinsics,
		opts:       opts,
	}
	if !distortion.IsZero() {
		reg.depth.Distortion = distortion
		reg.inverse = &InverseBrownConrady{*distortion}
	}

	n := depth.Width * depth.Height
	reg.rawIndex = make([]int32, n)
	reg.rays = make([]r2.Point, n)
	reg.corners = make([][4]r2.Point, n)
	reg.colorIndex = make([]int32, n)
	reg.zbuf = make([]rimage.Depth, color.Width*color.Height)
	reg.nearestDist = make([]float64, color.Width*color.Height)
	reg.nearestDepth = make([]rimage.Depth, color.Width*color.Height)

	distort := reg.depth.DistortionMap()
	for y := 0; y < depth.Height; y++ {
		for x := 0; x < depth.Width; x++ {
			i := y*depth.Width + x
			fx, fy := float64(x), float64(y)

			dx, dy := distort(fx, fy)
			rx, ry := int(math.Round(dx)), int(math.Round(dy))
			if rx < 0 || ry < 0 || rx >= depth.Width || ry >= depth.Height {
				reg.rawIndex[i] = -1
			} else {
				reg.rawIndex[i] = int32(ry*depth.Width + rx)
			}

			reg.rays[i] = depth.Normalize(fx, fy)
			reg.corners[i] = [4]r2.Point{
				depth.Normalize(fx-0.5, fy-0.5),
				depth.Normalize(fx+0.5, fy-0.5),
				depth.Normalize(fx-0.5, fy+0.5),
				depth.Normalize(fx+0.5, fy+0.5),
			}
		}
	}
	return reg, nil
}

// DepthIntrinsics returns the depth sensor intrinsics the registration was built with.
func (reg *Registration) DepthIntrinsics() PinholeCameraIntrinsics {
	return *reg.depth.PinholeCameraIntrinsics
}

// ColorIntrinsics returns the color sensor intrinsics the registration was built with.
func (reg *Registration) ColorIntrinsics() PinholeCameraIntrinsics {
	return reg.color
}

// project moves a ray scaled to depth z into the color image plane.
func (reg *Registration) project(ray r2.Point, z float64) (r2.Point, bool) {
	pt := r3.Vector{X: ray.X * z, Y: ray.Y * z, Z: z}
	if reg.extrinsics != nil {
		pt = reg.extrinsics.TransformPointToColor(pt)
	}
	return reg.color.Project(pt)
}

func (reg *Registration) checkSizes(
	color *rimage.ColorImage,
	depth, undistorted *rimage.DepthMap,
	registered *rimage.ColorImage,
	aligned *rimage.DepthMap,
) error {
	dw, dh := reg.depth.Width, reg.depth.Height
	cw, ch := reg.color.Width, reg.color.Height
	check := func(name string, w, h, wantW, wantH int) error {
		if w != wantW || h != wantH {
			return errors.Wrapf(ErrFrameSizeMismatch, "%s is %dx%d, expected %dx%d", name, w, h, wantW, wantH)
		}
		return nil
	}
	if color == nil || depth == nil || undistorted == nil || registered == nil {
		return errors.Wrap(ErrFrameSizeMismatch, "missing image")
	}
	if err := check("color", color.Width(), color.Height(), cw, ch); err != nil {
		return err
	}
	if err := check("depth", depth.Width(), depth.Height(), dw, dh); err != nil {
		return err
	}
	if err := check("undistorted depth", undistorted.Width(), undistorted.Height(), dw, dh); err != nil {
		return err
	}
	if err := check("registered color", registered.Width(), registered.Height(), dw, dh); err != nil {
		return err
	}
	if aligned != nil {
		if err := check("aligned depth", aligned.Width(), aligned.Height(), cw, ch); err != nil {
			return err
		}
	}
	return nil
}

// Apply registers one color/depth pair. It writes the undistorted depth and the color sampled at each
// undistorted depth pixel (both on the depth grid) and, when aligned is non-nil, the depth on the color
// grid. A color pixel takes the depth sample whose projected center lies closest to the pixel center,
// among the samples whose footprint covers it; equally close samples resolve to the nearer depth.
// Pixels without a valid source get rimage.InvalidDepth / rimage.InvalidColor. Sizes are validated
// before anything is written.
func (reg *Registration) Apply(
	color *rimage.ColorImage,
	depth *rimage.DepthMap,
	undistorted *rimage.DepthMap,
	registered *rimage.ColorImage,
	aligned *rimage.DepthMap,
) error {
	if err := reg.checkSizes(color, depth, undistorted, registered, aligned); err != nil {
		return err
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.closed {
		return ErrRegistrationClosed
	}

	empty := rimage.Depth(math.MaxFloat32)
	for k := range reg.zbuf {
		reg.zbuf[k] = empty
		reg.nearestDist[k] = math.Inf(1)
		reg.nearestDepth[k] = rimage.InvalidDepth
	}

	cw, ch := reg.color.Width, reg.color.Height
	for i, raw := range reg.rawIndex {
		z := rimage.InvalidDepth
		if raw >= 0 {
			z = depth.GetIndex(int(raw))
		}
		reg.colorIndex[i] = -1
		if !z.Valid() {
			undistorted.SetIndex(i, rimage.InvalidDepth)
			continue
		}
		undistorted.SetIndex(i, z)

		zf := float64(z)
		center, ok := reg.project(reg.rays[i], zf)
		if !ok {
			continue
		}
		cx, cy := int(math.Round(center.X)), int(math.Round(center.Y))
		if cx >= 0 && cy >= 0 && cx < cw && cy < ch {
			reg.colorIndex[i] = int32(cy*cw + cx)
			reg.splat(cx, cy, center, z)
		}

		// footprint of the depth pixel on the color grid
		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		for _, corner := range reg.corners[i] {
			p, ok := reg.project(corner, zf)
			if !ok {
				minX = math.Inf(1)
				break
			}
			minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
			minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
		}
		if math.IsInf(minX, 1) {
			continue
		}
		x0, x1 := clampInt(int(math.Ceil(minX)), 0, cw), clampInt(int(math.Ceil(maxX)), 0, cw)
		y0, y1 := clampInt(int(math.Ceil(minY)), 0, ch), clampInt(int(math.Ceil(maxY)), 0, ch)
		for y := y0; y < y1; y++ {
			for x := x0; x < x1; x++ {
				reg.splat(x, y, center, z)
			}
		}
	}

	tolerance := 1 + reg.opts.FilterTolerance
	for i, ci := range reg.colorIndex {
		if ci < 0 {
			registered.SetIndex(i, rimage.InvalidColor)
			continue
		}
		if reg.opts.FilterOcclusion && float64(undistorted.GetIndex(i)) > float64(reg.zbuf[ci])*tolerance {
			registered.SetIndex(i, rimage.InvalidColor)
			continue
		}
		registered.SetIndex(i, color.GetIndex(int(ci)))
	}

	if aligned != nil {
		for k, z := range reg.nearestDepth {
			aligned.SetIndex(k, z)
		}
	}
	return nil
}

// distance ties within this many squared pixels resolve by depth.
const nearestTieEpsilon = 1e-9

// splat offers the sample z, whose center projects to center, to the color pixel (x, y).
func (reg *Registration) splat(x, y int, center r2.Point, z rimage.Depth) {
	k := y*reg.color.Width + x
	if z < reg.zbuf[k] {
		reg.zbuf[k] = z
	}
	dx, dy := center.X-float64(x), center.Y-float64(y)
	dist := dx*dx + dy*dy
	best := reg.nearestDist[k]
	if dist < best-nearestTieEpsilon || (dist <= best+nearestTieEpsilon && z < reg.nearestDepth[k]) {
		reg.nearestDist[k] = dist
		reg.nearestDepth[k] = z
	}
}

// Undistort runs Apply into freshly allocated images and returns the undistorted depth, the registered color
// and the aligned depth.
func (reg *Registration) Undistort(
	color *rimage.ColorImage,
	depth *rimage.DepthMap,
) (*rimage.DepthMap, *rimage.ColorImage, *rimage.DepthMap, error) {
	dw, dh := reg.depth.Width, reg.depth.Height
	undistorted := rimage.NewEmptyDepthMap(dw, dh)
	registered := rimage.NewColorImage(dw, dh)
	aligned := rimage.NewEmptyDepthMap(reg.color.Width, reg.color.Height)
	if err := reg.Apply(color, depth, undistorted, registered, aligned); err != nil {
		return nil, nil, nil, err
	}
	return undistorted, registered, aligned, nil
}

// MapRawDepthPixel maps a pixel of the raw (distorted) depth image with depth z to sub-pixel color image
// coordinates. ok is false when the point does not land in front of the color sensor.
func (reg *Registration) MapRawDepthPixel(x, y float64, z rimage.Depth) (r2.Point, bool) {
	if !z.Valid() {
		return r2.Point{X: -1, Y: -1}, false
	}
	ray := reg.depth.Normalize(x, y)
	if reg.inverse != nil {
		ray.X, ray.Y = reg.inverse.Transform(ray.X, ray.Y)
	}
	p, ok := reg.project(ray, float64(z))
	if !ok || p.X < -0.5 || p.Y < -0.5 || p.X >= float64(reg.color.Width)-0.5 || p.Y >= float64(reg.color.Height)-0.5 {
		return p, false
	}
	return p, true
}

// Close releases the lookup tables. Later calls to Apply return ErrRegistrationClosed.
func (reg *Registration) Close() error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.closed = true
	reg.rawIndex = nil
	reg.rays = nil
	reg.corners = nil
	reg.colorIndex = nil
	reg.zbuf = nil
	reg.nearestDist = nil
	reg.nearestDepth = nil
	return nil
}

func clampInt(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
