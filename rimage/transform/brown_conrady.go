package transform

import (
	"fmt"
	"math"
)

// BrownConrady is the forward Brown-Conrady lens model. Transform maps undistorted normalized
// image coordinates onto the distorted coordinates a real lens produces:
//
//	x_d = x_u * (1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p1*x_u*y_u + p2*(r² + 2*x_u²)
//	y_d = y_u * (1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p2*x_u*y_u + p1*(r² + 2*y_u²)
type BrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	RadialK3     float64 `json:"rk3"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`
}

// CheckValid checks if the fields for BrownConrady have valid inputs.
func (bc *BrownConrady) CheckValid() error {
	if bc == nil {
		return InvalidDistortionError("BrownConrady shaped distortion_parameters not provided")
	}
	for i, v := range bc.coefficients() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return InvalidDistortionError(fmt.Sprintf("coefficient %d is %v", i, v))
		}
	}
	return nil
}

// coefficients ordered k1, k2, k3, p1, p2.
func (bc *BrownConrady) coefficients() []float64 {
	return []float64{bc.RadialK1, bc.RadialK2, bc.RadialK3, bc.TangentialP1, bc.TangentialP2}
}

// IsZero reports whether the model is the identity.
func (bc *BrownConrady) IsZero() bool {
	return bc == nil || *bc == BrownConrady{}
}

// Transform distorts the undistorted normalized point (xu, yu).
func (bc *BrownConrady) Transform(xu, yu float64) (float64, float64) {
	if bc == nil {
		return xu, yu
	}
	r2 := xu*xu + yu*yu
	radial := bc.radial(r2)
	xd := xu*radial + 2.0*bc.TangentialP1*xu*yu + bc.TangentialP2*(r2+2.0*xu*xu)
	yd := yu*radial + 2.0*bc.TangentialP2*xu*yu + bc.TangentialP1*(r2+2.0*yu*yu)
	return xd, yd
}

func (bc *BrownConrady) radial(r2 float64) float64 {
	return 1.0 + r2*(bc.RadialK1+r2*(bc.RadialK2+r2*bc.RadialK3))
}

// jacobian of Transform at (xu, yu), row major.
func (bc *BrownConrady) jacobian(xu, yu float64) (float64, float64, float64, float64) {
	r2 := xu*xu + yu*yu
	radial := bc.radial(r2)
	dRadial := 2.0 * (bc.RadialK1 + 2.0*bc.RadialK2*r2 + 3.0*bc.RadialK3*r2*r2)

	dxdDxu := radial + xu*xu*dRadial + 2.0*bc.TangentialP1*yu + 6.0*bc.TangentialP2*xu
	dxdDyu := xu*yu*dRadial + 2.0*bc.TangentialP1*xu + 2.0*bc.TangentialP2*yu
	dydDxu := xu*yu*dRadial + 2.0*bc.TangentialP2*yu + 2.0*bc.TangentialP1*xu
	dydDyu := radial + yu*yu*dRadial + 2.0*bc.TangentialP2*xu + 6.0*bc.TangentialP1*yu
	return dxdDxu, dxdDyu, dydDxu, dydDyu
}
