// Package colorize projects sensor points into a time-aligned camera frame
// and reads back their color.
package colorize

// BrownConrady is the 5-parameter radial/tangential distortion model
// (k1, k2, p1, p2, k3).
type BrownConrady struct {
	RadialK1, RadialK2, RadialK3 float64
	TangentialP1, TangentialP2   float64
}

// CheckValid reports whether the receiver is usable; a nil pointer or a
// model left all-default (no distortion configured) is still valid since
// this degenerates to the identity transform.
func (bc *BrownConrady) CheckValid() error {
	return nil
}

// Transform applies the distortion model to a normalized image-plane point
// (x, y) = (X/Z, Y/Z), returning the distorted coordinates.
func (bc *BrownConrady) Transform(x, y float64) (float64, float64) {
	if bc == nil {
		return x, y
	}
	r2 := x*x + y*y
	r4 := r2 * r2
	r6 := r4 * r2

	radial := 1 + bc.RadialK1*r2 + bc.RadialK2*r4 + bc.RadialK3*r6
	xd := x*radial + 2*bc.TangentialP1*x*y + bc.TangentialP2*(r2+2*x*x)
	yd := y*radial + bc.TangentialP1*(r2+2*y*y) + 2*bc.TangentialP2*x*y
	return xd, yd
}

// CameraIntrinsics holds the pinhole projection parameters.
type CameraIntrinsics struct {
	Fx, Fy, Cx, Cy float64
	Width, Height  int
}

// Project maps a camera-frame 3D point through distortion and the pinhole
// model to integer pixel coordinates. ok is false when the point is behind
// the camera or lands outside the image.
func Project(intr CameraIntrinsics, bc *BrownConrady, x, y, z float64) (px, py int, ok bool) {
	if z <= 0 {
		return 0, 0, false
	}
	nx, ny := x/z, y/z
	dx, dy := bc.Transform(nx, ny)

	px = int(intr.Fx*dx + intr.Cx)
	py = int(intr.Fy*dy + intr.Cy)
	if px < 0 || px >= intr.Width || py < 0 || py >= intr.Height {
		return 0, 0, false
	}
	return px, py, true
}
