package transform

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DepthColorExtrinsics is the rigid transform that carries points from the depth sensor frame into
// the color sensor frame. Translation is in the same unit as depth samples (millimeters).
type DepthColorExtrinsics struct {
	RotationMatrix    []float64 `json:"rotation_rads"`
	TranslationVector []float64 `json:"translation_mm"`
}

var eye3 = mat.NewDiagDense(3, []float64{1, 1, 1})

// CheckValid ensures the rotation is a proper 3x3 rotation and the translation has three entries.
func (ext *DepthColorExtrinsics) CheckValid() error {
	if ext == nil {
		return errors.New("extrinsics do not exist")
	}
	if len(ext.RotationMatrix) != 9 {
		return errors.Errorf("rotation matrix must have 9 entries, got %d", len(ext.RotationMatrix))
	}
	if len(ext.TranslationVector) != 3 {
		return errors.Errorf("translation vector must have 3 entries, got %d", len(ext.TranslationVector))
	}
	rot := mat.NewDense(3, 3, append([]float64(nil), ext.RotationMatrix...))
	if det := mat.Det(rot); math.Abs(det-1) > 1e-3 {
		return errors.Errorf("rotation matrix determinant must be 1, got %.4f", det)
	}
	var rrt mat.Dense
	rrt.Mul(rot, rot.T())
	if !mat.EqualApprox(&rrt, eye3, 1e-3) {
		return errors.New("rotation matrix must be orthonormal")
	}
	return nil
}

// Translation returns the translation as a vector.
func (ext *DepthColorExtrinsics) Translation() r3.Vector {
	return r3.Vector{X: ext.TranslationVector[0], Y: ext.TranslationVector[1], Z: ext.TranslationVector[2]}
}

// TransformPointToColor moves a point in the depth sensor frame into the color sensor frame.
func (ext *DepthColorExtrinsics) TransformPointToColor(pt r3.Vector) r3.Vector {
	if ext == nil {
		return pt
	}
	r := ext.RotationMatrix
	return r3.Vector{
		X: r[0]*pt.X + r[1]*pt.Y + r[2]*pt.Z,
		Y: r[3]*pt.X + r[4]*pt.Y + r[5]*pt.Z,
		Z: r[6]*pt.X + r[7]*pt.Y + r[8]*pt.Z,
	}.Add(ext.Translation())
}
