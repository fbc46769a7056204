// Package spatialmath implements the pose algebra used by the mapping
// back-end: unit quaternions plus translations, composed the way the
// registration driver needs (map-world <- odom-world <- sensor).
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// IdentityQuat is the identity rotation.
var IdentityQuat = quat.Number{Real: 1}

// NormalizeQuat returns q scaled to unit norm. Returns the identity if q is
// degenerate (zero norm).
func NormalizeQuat(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return IdentityQuat
	}
	return quat.Scale(1/n, q)
}

// QuatNorm reports |q|, used to check the |q|=1 invariant after every
// optimizer step.
func QuatNorm(q quat.Number) float64 {
	return quat.Abs(q)
}

// Rotate applies q to v: q * v * q^-1, with v embedded as a pure quaternion.
func Rotate(q quat.Number, v r3.Vector) r3.Vector {
	vq := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	rq := quat.Mul(quat.Mul(q, vq), quat.Conj(q))
	return r3.Vector{X: rq.Imag, Y: rq.Jmag, Z: rq.Kmag}
}

// expQuat is the quaternion exponential map of a pure 3-vector tangent,
// used for the right-multiplicative boxplus update on the unit-quaternion
// manifold: q boxplus delta = q * exp(delta/2).
func expQuat(w r3.Vector) quat.Number {
	theta := w.Norm()
	if theta < 1e-12 {
		// first-order approximation avoids a divide-by-zero for small steps
		return NormalizeQuat(quat.Number{Real: 1, Imag: w.X, Jmag: w.Y, Kmag: w.Z})
	}
	s := math.Sin(theta) / theta
	return quat.Number{
		Real: math.Cos(theta),
		Imag: w.X * s,
		Jmag: w.Y * s,
		Kmag: w.Z * s,
	}
}

// BoxPlus implements the quaternion-manifold tangent update used by the
// pose optimizer: q ⊞ delta = q * exp(delta/2), delta a 3-vector tangent.
func BoxPlus(q quat.Number, delta r3.Vector) quat.Number {
	half := r3.Vector{X: delta.X / 2, Y: delta.Y / 2, Z: delta.Z / 2}
	return NormalizeQuat(quat.Mul(q, expQuat(half)))
}

// logQuat is the inverse of expQuat for a unit quaternion with positive
// real part (the principal branch, which is all BoxMinus needs).
func logQuat(q quat.Number) r3.Vector {
	v := r3.Vector{X: q.Imag, Y: q.Jmag, Z: q.Kmag}
	n := v.Norm()
	if n < 1e-12 {
		return r3.Vector{}
	}
	theta := math.Atan2(n, q.Real)
	scale := theta / n
	return r3.Vector{X: v.X * scale, Y: v.Y * scale, Z: v.Z * scale}
}

// BoxMinus implements q2 ⊟ q1 = log(q1^-1 * q2), the tangent-space
// difference between two orientations.
func BoxMinus(q2, q1 quat.Number) r3.Vector {
	rel := quat.Mul(quat.Conj(q1), q2)
	return r3.Vector{X: 2 * logQuat(rel).X, Y: 2 * logQuat(rel).Y, Z: 2 * logQuat(rel).Z}
}

// QuatFromRotationMatrix converts a flat, row-major 3x3 rotation matrix
// (the shape the extrinsic rotation attributes decode into) to a unit
// quaternion, via the standard trace-based construction.
func QuatFromRotationMatrix(m []float64) quat.Number {
	r00, r01, r02 := m[0], m[1], m[2]
	r10, r11, r12 := m[3], m[4], m[5]
	r20, r21, r22 := m[6], m[7], m[8]

	trace := r00 + r11 + r22
	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1)
		return NormalizeQuat(quat.Number{
			Real: 0.25 / s,
			Imag: (r21 - r12) * s,
			Jmag: (r02 - r20) * s,
			Kmag: (r10 - r01) * s,
		})
	case r00 > r11 && r00 > r22:
		s := 2 * math.Sqrt(1+r00-r11-r22)
		return NormalizeQuat(quat.Number{
			Real: (r21 - r12) / s,
			Imag: 0.25 * s,
			Jmag: (r01 + r10) / s,
			Kmag: (r02 + r20) / s,
		})
	case r11 > r22:
		s := 2 * math.Sqrt(1+r11-r00-r22)
		return NormalizeQuat(quat.Number{
			Real: (r02 - r20) / s,
			Imag: (r01 + r10) / s,
			Jmag: 0.25 * s,
			Kmag: (r12 + r21) / s,
		})
	default:
		s := 2 * math.Sqrt(1+r22-r00-r11)
		return NormalizeQuat(quat.Number{
			Real: (r10 - r01) / s,
			Imag: (r02 + r20) / s,
			Jmag: (r12 + r21) / s,
			Kmag: 0.25 * s,
		})
	}
}
