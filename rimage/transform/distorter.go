package transform

import "github.com/pkg/errors"

// Distorter defines a Transform that takes an undistorted image and distorts it according to the model.
type Distorter interface {
	CheckValid() error
	Transform(x, y float64) (float64, float64)
}

// InvalidDistortionError is used when the distortion_parameters are invalid.
func InvalidDistortionError(msg string) error {
	return errors.Wrap(errors.New("invalid distortion_parameters"), msg)
}

var (
	_ Distorter = (*BrownConrady)(nil)
	_ Distorter = (*InverseBrownConrady)(nil)
)
