// Package registration implements scan-to-map registration: building edge
// and plane correspondences against the local map and refining the current
// pose estimate against them with a manifold Gauss-Newton solve.
package registration

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/gc625-kodifly/livox-horizon-loam/pointcloud"
)

// neighborGateSqDist is the squared-distance gate on the 5th (worst)
// nearest neighbor: associations beyond this are rejected outright.
const neighborGateSqDist = 1.0

// EdgeResidual anchors a map-frame point to a line through two anchor
// points.
type EdgeResidual struct {
	Point r3.Vector // the scan point, in its own (pre-pose) frame
	A, B  r3.Vector // anchor points bracketing the map line, mean +- 0.1*direction
}

// PlaneResidual anchors a map-frame point to a plane n.x + d = 0.
type PlaneResidual struct {
	Point r3.Vector
	N     r3.Vector // unit normal
	D     float64
}

// BuildEdgeResidual attempts to build an edge correspondence for a corner
// point already transformed into the map frame, searching cornerMap for its
// 5 nearest neighbors. It returns ok=false when the neighborhood is too
// spread out or isn't line-like; degenerate neighborhoods contribute
// nothing to the solve.
func BuildEdgeResidual(cornerMap *pointcloud.KDTree, scanPoint, mapFramePoint r3.Vector) (EdgeResidual, bool) {
	neighbors := cornerMap.KNearestNeighbors(mapFramePoint, 5)
	if len(neighbors) < 5 || neighbors[4].SqDist >= neighborGateSqDist {
		return EdgeResidual{}, false
	}

	center := r3.Vector{}
	pts := make([]r3.Vector, 5)
	for i, n := range neighbors {
		pts[i] = n.P
		center = center.Add(n.P)
	}
	center = center.Mul(1.0 / 5.0)

	cov := mat.NewSymDense(3, nil)
	for _, p := range pts {
		d := p.Sub(center)
		dv := []float64{d.X, d.Y, d.Z}
		for r := 0; r < 3; r++ {
			for c := r; c < 3; c++ {
				cov.SetSym(r, c, cov.At(r, c)+dv[r]*dv[c])
			}
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return EdgeResidual{}, false
	}
	values := eig.Values(nil)
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// eigenvalues come back ascending; the neighborhood is line-like only
	// when the largest eigenvalue dominates the middle one by 3x.
	if values[2] <= 3*values[1] {
		return EdgeResidual{}, false
	}
	direction := r3.Vector{X: vectors.At(0, 2), Y: vectors.At(1, 2), Z: vectors.At(2, 2)}
	direction = direction.Normalize()

	a := center.Add(direction.Mul(0.1))
	b := center.Sub(direction.Mul(0.1))
	return EdgeResidual{Point: scanPoint, A: a, B: b}, true
}

// BuildPlaneResidual attempts a plane correspondence for a surface point,
// searching surfaceMap for its 5 nearest neighbors and solving for the
// plane n.x = -1 by least squares. The fit is rejected unless every
// neighbor lies within 0.2 of the fitted plane.
func BuildPlaneResidual(surfaceMap *pointcloud.KDTree, scanPoint, mapFramePoint r3.Vector) (PlaneResidual, bool) {
	neighbors := surfaceMap.KNearestNeighbors(mapFramePoint, 5)
	if len(neighbors) < 5 || neighbors[4].SqDist >= neighborGateSqDist {
		return PlaneResidual{}, false
	}

	a := mat.NewDense(5, 3, nil)
	b := mat.NewDense(5, 1, nil)
	for i, n := range neighbors {
		a.Set(i, 0, n.P.X)
		a.Set(i, 1, n.P.Y)
		a.Set(i, 2, n.P.Z)
		b.Set(i, 0, -1)
	}

	var qr mat.QR
	qr.Factorize(a)
	var normCol mat.Dense
	if err := qr.SolveTo(&normCol, false, b); err != nil {
		return PlaneResidual{}, false
	}
	n := r3.Vector{X: normCol.At(0, 0), Y: normCol.At(1, 0), Z: normCol.At(2, 0)}
	negOADotNorm := 1.0 / n.Norm()
	n = n.Normalize()

	for _, nb := range neighbors {
		if abs(n.Dot(nb.P)+negOADotNorm) > 0.2 {
			return PlaneResidual{}, false
		}
	}
	return PlaneResidual{Point: scanPoint, N: n, D: negOADotNorm}, true
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
