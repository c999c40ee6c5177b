package transform

// InverseBrownConrady applies the inverse of the Brown-Conrady distortion model.
// Given distorted points, it computes the corresponding undistorted points using
// an iterative Newton-Raphson method.
type InverseBrownConrady struct {
	BrownConrady
}

// Transform solves the forward model for the undistorted point (xu, yu) that lands on (xd, yd).
func (ibc *InverseBrownConrady) Transform(xd, yd float64) (float64, float64) {
	if ibc == nil || ibc.IsZero() {
		return xd, yd
	}

	const maxIterations = 20
	const tolerance = 1e-10

	xu, yu := xd, yd
	for i := 0; i < maxIterations; i++ {
		xdEst, ydEst := ibc.BrownConrady.Transform(xu, yu)
		errX := xdEst - xd
		errY := ydEst - yd
		if errX*errX+errY*errY < tolerance*tolerance {
			break
		}

		a, b, c, d := ibc.jacobian(xu, yu)
		det := a*d - b*c
		if det == 0 {
			break
		}
		xu -= (d*errX - b*errY) / det
		yu -= (-c*errX + a*errY) / det
	}
	return xu, yu
}
