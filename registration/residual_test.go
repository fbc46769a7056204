package registration

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/gc625-kodifly/livox-horizon-loam/pointcloud"
	"github.com/gc625-kodifly/livox-horizon-loam/spatialmath"
)

// lineCloud spaces its points tightly enough that the worst of a query
// point's 5 neighbors stays inside the squared-distance gate.
func lineCloud() *pointcloud.Cloud {
	c := pointcloud.New()
	for _, x := range []float64{-0.8, -0.4, 0, 0.4, 0.8} {
		c.Append(r3.Vector{X: x, Y: 0, Z: 0}, pointcloud.Data{})
	}
	return c
}

func planeCloud() *pointcloud.Cloud {
	c := pointcloud.New()
	for _, p := range []r3.Vector{
		{X: 0, Y: 0, Z: 1},
		{X: 1, Y: 0, Z: 1},
		{X: 0, Y: 1, Z: 1},
		{X: 1, Y: 1, Z: 1},
		{X: 0.5, Y: 0.5, Z: 1},
	} {
		c.Append(p, pointcloud.Data{})
	}
	return c
}

func TestBuildEdgeResidualOnLine(t *testing.T) {
	kd := pointcloud.NewKDTree(lineCloud())
	scanPoint := r3.Vector{X: 0.1, Y: 0.05, Z: 0}

	edge, ok := BuildEdgeResidual(kd, scanPoint, scanPoint)
	test.That(t, ok, test.ShouldBeTrue)
	// anchors must lie on the x-axis, at distinct X positions
	test.That(t, edge.A.Y, test.ShouldEqual, 0)
	test.That(t, edge.A.Z, test.ShouldEqual, 0)
	test.That(t, (edge.A.X-edge.B.X)*(edge.A.X-edge.B.X), test.ShouldBeGreaterThan, 0)
}

// The edge residual of a point against exactly collinear neighbors is the
// literal point-to-line distance.
func TestEdgeResidualEqualsPointToLineDistance(t *testing.T) {
	kd := pointcloud.NewKDTree(lineCloud())

	onLine := r3.Vector{X: 0.1, Y: 0, Z: 0}
	edge, ok := BuildEdgeResidual(kd, onLine, onLine)
	test.That(t, ok, test.ShouldBeTrue)

	// the fitted line is the x-axis; a point offset by (0, 0.3, 0.4) sits
	// exactly 0.5 away from it.
	query := r3.Vector{X: 0.1, Y: 0.3, Z: 0.4}
	res := evaluate(Association{ScanPoint: query, Edge: &edge}, spatialmath.IdentityPose)
	test.That(t, vecNorm(res), test.ShouldAlmostEqual, 0.5, 1e-9)
}

func TestBuildEdgeResidualRejectsSparseNeighborhood(t *testing.T) {
	c := pointcloud.New()
	c.Append(r3.Vector{X: 1000, Y: 1000, Z: 1000}, pointcloud.Data{})
	c.Append(r3.Vector{X: -1000, Y: -1000, Z: -1000}, pointcloud.Data{})
	kd := pointcloud.NewKDTree(c)

	_, ok := BuildEdgeResidual(kd, r3.Vector{}, r3.Vector{})
	test.That(t, ok, test.ShouldBeFalse)
}

func TestBuildPlaneResidualOnFlatPatch(t *testing.T) {
	kd := pointcloud.NewKDTree(planeCloud())
	scanPoint := r3.Vector{X: 0.4, Y: 0.6, Z: 0}

	plane, ok := BuildPlaneResidual(kd, scanPoint, r3.Vector{X: 0.4, Y: 0.6, Z: 1})
	test.That(t, ok, test.ShouldBeTrue)
	// plane z=1 has unit normal (0,0,+-1) and d = -+1
	test.That(t, plane.N.Z*plane.N.Z, test.ShouldAlmostEqual, 1, 1e-6)
}

// The plane residual of a point against exactly coplanar neighbors is the
// literal signed point-to-plane distance n·p + d.
func TestPlaneResidualEqualsPointToPlaneDistance(t *testing.T) {
	kd := pointcloud.NewKDTree(planeCloud())

	near := r3.Vector{X: 0.4, Y: 0.6, Z: 1}
	plane, ok := BuildPlaneResidual(kd, near, near)
	test.That(t, ok, test.ShouldBeTrue)

	// a point at z=0.3 sits 0.7 below the fitted z=1 plane.
	query := r3.Vector{X: 0.4, Y: 0.6, Z: 0.3}
	res := evaluate(Association{ScanPoint: query, Plane: &plane}, spatialmath.IdentityPose)
	test.That(t, len(res), test.ShouldEqual, 1)
	test.That(t, math.Abs(res[0]), test.ShouldAlmostEqual, 0.7, 1e-9)
}

func TestBuildPlaneResidualRejectsNonPlanar(t *testing.T) {
	// four coplanar points plus one 0.9 off the plane: every neighbor
	// passes the distance gate, but the least-squares fit leaves residuals
	// beyond the planarity threshold.
	c := pointcloud.New()
	for _, p := range []r3.Vector{
		{X: 0, Y: 0, Z: 1},
		{X: 1, Y: 0, Z: 1},
		{X: 0, Y: 1, Z: 1},
		{X: 1, Y: 1, Z: 1},
		{X: 0.5, Y: 0.5, Z: 1.9},
	} {
		c.Append(p, pointcloud.Data{})
	}
	kd := pointcloud.NewKDTree(c)
	_, ok := BuildPlaneResidual(kd, r3.Vector{X: 0.5, Y: 0.5, Z: 1}, r3.Vector{X: 0.5, Y: 0.5, Z: 1})
	test.That(t, ok, test.ShouldBeFalse)
}
