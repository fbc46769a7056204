package registration

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/gc625-kodifly/livox-horizon-loam/spatialmath"
)

// HuberDelta is the Huber loss transition point used for every residual
// block.
const HuberDelta = 0.1

// huberWeight returns the IRLS weight w such that w*r approximates the
// derivative of the Huber loss at residual norm r.
func huberWeight(r, delta float64) float64 {
	if r <= delta {
		return 1
	}
	return delta / r
}

// Association is one built residual (edge or plane), carrying its original
// scan-frame point so the optimizer can re-evaluate it at any candidate
// pose without re-querying the map.
type Association struct {
	ScanPoint r3.Vector
	Edge      *EdgeResidual
	Plane     *PlaneResidual
}

const (
	outerIterations = 2
	innerIterations = 10
	tangentStep     = 1e-6
)

// OptimizeOptions bounds when an optimization attempt is trustworthy:
// registration is skipped entirely while the surrounding map holds no more
// points than these counts.
type OptimizeOptions struct {
	MinCornerMapPoints  int
	MinSurfaceMapPoints int
}

// DefaultOptimizeOptions holds the sparse-map thresholds.
var DefaultOptimizeOptions = OptimizeOptions{MinCornerMapPoints: 10, MinSurfaceMapPoints: 50}

// AssociationBuilder re-associates the current pose estimate's
// transformed scan points against the map, returning one Association per
// point with a valid correspondence.
type AssociationBuilder func(pose spatialmath.Pose) []Association

// Refine runs the two-outer/ten-inner Gauss-Newton loop: at the start of
// each outer iteration, associations are rebuilt against the current pose
// estimate; each inner iteration then takes one Gauss-Newton step against
// those fixed associations using a dense QR solve, weighting every residual
// by the Huber loss. Geometric neighbors change as the pose converges, so
// re-associating between solves is cheaper than a joint solve with
// correspondences.
func Refine(initial spatialmath.Pose, build AssociationBuilder) spatialmath.Pose {
	pose := initial

	for outer := 0; outer < outerIterations; outer++ {
		associations := build(pose)
		if len(associations) == 0 {
			continue
		}
		for inner := 0; inner < innerIterations; inner++ {
			delta, converged := gaussNewtonStep(pose, associations)
			pose = applyTangent(pose, delta)
			if converged {
				break
			}
		}
	}
	return pose
}

// residualDim returns how many scalar residuals an association contributes:
// 3 for an edge (cross-product components), 1 for a plane.
func residualDim(a Association) int {
	if a.Edge != nil {
		return 3
	}
	return 1
}

// evaluate returns the residual vector for association a at pose p.
func evaluate(a Association, p spatialmath.Pose) []float64 {
	mapPoint := spatialmath.TransformPoint(p, a.ScanPoint)
	if a.Edge != nil {
		ab := a.Edge.B.Sub(a.Edge.A)
		de := ab.Norm()
		if de < 1e-9 {
			return []float64{0, 0, 0}
		}
		nu := mapPoint.Sub(a.Edge.A).Cross(mapPoint.Sub(a.Edge.B))
		return []float64{nu.X / de, nu.Y / de, nu.Z / de}
	}
	r := a.Plane.N.Dot(mapPoint) + a.Plane.D
	return []float64{r}
}

// tikhonov keeps the normal matrix invertible when the associations leave
// a tangent direction unconstrained (a single line, a lone plane).
const tikhonov = 1e-8

// gaussNewtonStep builds the stacked, Huber-weighted Jacobian and residual
// over every association, via central-difference numerical derivatives in
// the 6-dimensional tangent space (3 rotation + 3 translation), and solves
// the damped normal equations with a dense QR factorization.
func gaussNewtonStep(pose spatialmath.Pose, associations []Association) ([6]float64, bool) {
	rows := 0
	for _, a := range associations {
		rows += residualDim(a)
	}
	if rows == 0 {
		return [6]float64{}, true
	}

	jac := mat.NewDense(rows, 6, nil)
	res := mat.NewDense(rows, 1, nil)

	row := 0
	for _, a := range associations {
		base := evaluate(a, pose)
		w := huberWeight(vecNorm(base), HuberDelta)

		for p := 0; p < 6; p++ {
			plus := evaluate(a, perturb(pose, p, tangentStep))
			minus := evaluate(a, perturb(pose, p, -tangentStep))
			for k := range base {
				jac.Set(row+k, p, w*(plus[k]-minus[k])/(2*tangentStep))
			}
		}
		for k := range base {
			res.Set(row+k, 0, w*base[k])
		}
		row += len(base)
	}

	normal := mat.NewDense(6, 6, nil)
	normal.Mul(jac.T(), jac)
	for i := 0; i < 6; i++ {
		normal.Set(i, i, normal.At(i, i)+tikhonov)
	}
	rhs := mat.NewDense(6, 1, nil)
	rhs.Mul(jac.T(), res)
	rhs.Scale(-1, rhs)

	var qr mat.QR
	qr.Factorize(normal)
	var deltaCol mat.Dense
	if err := qr.SolveTo(&deltaCol, false, rhs); err != nil {
		return [6]float64{}, true
	}

	var delta [6]float64
	normSq := 0.0
	for i := 0; i < 6; i++ {
		delta[i] = deltaCol.At(i, 0)
		normSq += delta[i] * delta[i]
	}
	return delta, normSq < 1e-14
}

func vecNorm(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

// perturb applies +-tangentStep along tangent dimension p (0-2 rotation,
// 3-5 translation) to pose, for numerical differentiation.
func perturb(pose spatialmath.Pose, p int, step float64) spatialmath.Pose {
	switch {
	case p < 3:
		w := r3.Vector{}
		switch p {
		case 0:
			w.X = step
		case 1:
			w.Y = step
		case 2:
			w.Z = step
		}
		return spatialmath.Pose{Q: spatialmath.BoxPlus(pose.Q, w), T: pose.T}
	default:
		d := r3.Vector{}
		switch p {
		case 3:
			d.X = step
		case 4:
			d.Y = step
		case 5:
			d.Z = step
		}
		return spatialmath.Pose{Q: pose.Q, T: pose.T.Add(d)}
	}
}

// applyTangent composes a 6-vector Gauss-Newton step (3 rotation tangent,
// 3 translation) onto pose.
func applyTangent(pose spatialmath.Pose, delta [6]float64) spatialmath.Pose {
	w := r3.Vector{X: delta[0], Y: delta[1], Z: delta[2]}
	d := r3.Vector{X: delta[3], Y: delta[4], Z: delta[5]}
	return spatialmath.NewPose(spatialmath.BoxPlus(pose.Q, w), pose.T.Add(d))
}
