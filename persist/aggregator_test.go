package persist

import (
	"image/color"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/gc625-kodifly/livox-horizon-loam/mapping"
	"github.com/gc625-kodifly/livox-horizon-loam/pointcloud"
	"github.com/gc625-kodifly/livox-horizon-loam/spatialmath"
)

func TestAggregatorPrefersRealColorOverFalseColor(t *testing.T) {
	full := pointcloud.New()
	full.Append(r3.Vector{X: 1, Y: 1, Z: 1}, pointcloud.Data{Intensity: 1})
	full.Append(r3.Vector{X: 2, Y: 2, Z: 2}, pointcloud.Data{Intensity: 2})

	out := mapping.Outputs{
		RefinedPose:         spatialmath.IdentityPose,
		RegisteredFull:      full,
		RegisteredFullColor: []color.RGBA{{R: 1, G: 2, B: 3, A: 255}, {R: 4, G: 5, B: 6, A: 255}},
		ColoredCloud:        []color.RGBA{{R: 10, G: 20, B: 30, A: 255}, {}},
		ColoredOK:           []bool{true, false},
	}

	agg := NewAggregator(true)
	agg.Handle(out)

	cloud, colors := agg.Snapshot()
	test.That(t, cloud.Size(), test.ShouldEqual, 2)
	test.That(t, colors[0], test.ShouldEqual, uint32(10)<<16|uint32(20)<<8|uint32(30))
	test.That(t, colors[1], test.ShouldEqual, uint32(4)<<16|uint32(5)<<8|uint32(6))
}

func TestAggregatorAccumulatesAcrossFrames(t *testing.T) {
	agg := NewAggregator(true)
	for i := 0; i < 3; i++ {
		full := pointcloud.New()
		full.Append(r3.Vector{X: float64(i)}, pointcloud.Data{})
		agg.Handle(mapping.Outputs{RegisteredFull: full})
	}
	cloud, colors := agg.Snapshot()
	test.That(t, cloud.Size(), test.ShouldEqual, 3)
	test.That(t, len(colors), test.ShouldEqual, 3)
}

func TestAggregatorMonochromeKeepsNoColors(t *testing.T) {
	agg := NewAggregator(false)
	full := pointcloud.New()
	full.Append(r3.Vector{X: 1}, pointcloud.Data{Intensity: 7})
	agg.Handle(mapping.Outputs{RegisteredFull: full})

	cloud, colors := agg.Snapshot()
	test.That(t, cloud.Size(), test.ShouldEqual, 1)
	test.That(t, colors, test.ShouldBeNil)
}
