package spatialmath

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a rigid transform: a unit quaternion orientation plus a
// translation, carrying a frame into its parent frame. |Q| stays within
// 1e-6 of 1 across every operation that returns a Pose.
type Pose struct {
	Q quat.Number
	T r3.Vector
}

// NewPose builds a pose, normalizing the quaternion.
func NewPose(q quat.Number, t r3.Vector) Pose {
	return Pose{Q: NormalizeQuat(q), T: t}
}

// PoseFromFlatRotation builds a Pose from a flat row-major 3x3 rotation
// plus a translation, the shape extrinsic calibration attributes decode
// into. A rotation slice of any length other than 9 yields an identity
// rotation.
func PoseFromFlatRotation(rotation []float64, translation r3.Vector) Pose {
	if len(rotation) != 9 {
		return Pose{Q: IdentityQuat, T: translation}
	}
	return NewPose(QuatFromRotationMatrix(rotation), translation)
}

// IdentityPose is the identity transform.
var IdentityPose = Pose{Q: IdentityQuat}

// Compose returns a∘b: applying b first, then a. If a is parent<-mid and b
// is mid<-child, the result is parent<-child.
func Compose(a, b Pose) Pose {
	return Pose{
		Q: NormalizeQuat(quat.Mul(a.Q, b.Q)),
		T: a.T.Add(Rotate(a.Q, b.T)),
	}
}

// Inverse returns the pose that undoes p.
func Inverse(p Pose) Pose {
	qInv := quat.Conj(p.Q) // unit quaternion: conjugate is the inverse
	return Pose{
		Q: qInv,
		T: Rotate(qInv, p.T).Mul(-1),
	}
}

// TransformPoint carries v from p's child frame into p's parent frame:
// p.Q * v + p.T.
func TransformPoint(p Pose, v r3.Vector) r3.Vector {
	return Rotate(p.Q, v).Add(p.T)
}

// AlmostEqual reports whether two poses agree to within tol on both the
// quaternion components and the translation.
func AlmostEqual(a, b Pose, tol float64) bool {
	dq := quat.Number{
		Real: a.Q.Real - b.Q.Real,
		Imag: a.Q.Imag - b.Q.Imag,
		Jmag: a.Q.Jmag - b.Q.Jmag,
		Kmag: a.Q.Kmag - b.Q.Kmag,
	}
	if quat.Abs(dq) > tol {
		// quaternions double-cover SO(3); try the antipodal representative.
		dq2 := quat.Number{
			Real: a.Q.Real + b.Q.Real,
			Imag: a.Q.Imag + b.Q.Imag,
			Jmag: a.Q.Jmag + b.Q.Jmag,
			Kmag: a.Q.Kmag + b.Q.Kmag,
		}
		if quat.Abs(dq2) > tol {
			return false
		}
	}
	return a.T.Sub(b.T).Norm() <= tol
}

// Chain holds the two stored transforms the registration driver maintains;
// the third, the refined sensor pose in the map world, is their
// composition.
type Chain struct {
	// WorldMapFromWorldOdom is T_wm_wo, the slow-drifting mapping correction.
	WorldMapFromWorldOdom Pose
	// WorldOdomFromCurrent is T_wo_c, the per-frame odometry estimate.
	WorldOdomFromCurrent Pose
}

// InitialGuess composes T_wm_c = T_wm_wo ∘ T_wo_c, the pose seeded into the
// optimizer.
func (c Chain) InitialGuess() Pose {
	return Compose(c.WorldMapFromWorldOdom, c.WorldOdomFromCurrent)
}

// Update recomputes T_wm_wo from a refined T_wm_c so the next frame's
// initial guess uses the latest correction: T_wm_wo := T_wm_c ∘ (T_wo_c)^-1.
func (c *Chain) Update(refined Pose) {
	c.WorldMapFromWorldOdom = Compose(refined, Inverse(c.WorldOdomFromCurrent))
}
