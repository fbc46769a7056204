package pointcloud

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestCloudAppendAndSize(t *testing.T) {
	c := New()
	test.That(t, c.Size(), test.ShouldEqual, 0)

	c.Append(r3.Vector{X: 1, Y: 2, Z: 3}, Data{Intensity: 5})
	c.Append(r3.Vector{X: 4, Y: 5, Z: 6}, Data{Intensity: 6})
	test.That(t, c.Size(), test.ShouldEqual, 2)
	test.That(t, c.Points()[0].D.Intensity, test.ShouldEqual, 5)
}

func TestCloudCentroid(t *testing.T) {
	c := New()
	test.That(t, Centroid(c), test.ShouldResemble, r3.Vector{})

	c.Append(r3.Vector{X: 0, Y: 0, Z: 0}, Data{})
	c.Append(r3.Vector{X: 2, Y: 4, Z: 6}, Data{})
	test.That(t, Centroid(c), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
}

func TestCloudResetKeepsCapacity(t *testing.T) {
	c := NewWithCapacity(4)
	c.Append(r3.Vector{X: 1}, Data{})
	c.Reset()
	test.That(t, c.Size(), test.ShouldEqual, 0)
}

func TestAppendAllHandlesNil(t *testing.T) {
	c := New()
	c.AppendAll(nil)
	test.That(t, c.Size(), test.ShouldEqual, 0)
}
