package camera

import (
	"gonum.org/v1/gonum/mat"

	"github.com/derpvision/procam/rimage/transform"
)

// Parameters are the factory calibration values of a sensor.
type Parameters struct {
	Color           transform.PinholeCameraIntrinsics `json:"color"`
	Depth           transform.PinholeCameraIntrinsics `json:"depth"`
	DepthDistortion transform.BrownConrady            `json:"depth_distortion"`
}

// DistortionCoefficients returns the depth lens model in OpenCV order: k1, k2, p1, p2, k3.
func (p Parameters) DistortionCoefficients() [5]float64 {
	d := p.DepthDistortion
	return [5]float64{d.RadialK1, d.RadialK2, d.TangentialP1, d.TangentialP2, d.RadialK3}
}

// ColorCameraMatrix returns the 3x3 color camera matrix.
func (p Parameters) ColorCameraMatrix() *mat.Dense {
	return p.Color.GetCameraMatrix()
}

// DepthCameraMatrix returns the 3x3 depth camera matrix.
func (p Parameters) DepthCameraMatrix() *mat.Dense {
	return p.Depth.GetCameraMatrix()
}
