// Package pointcloud implements the Point/Data/Cloud primitives the mapping
// back-end passes between its pipeline stages, plus the voxel down-sampler
// and false-color intensity mapping used on them.
package pointcloud

import (
	"github.com/golang/geo/r3"
)

// FeatureType tags a cloud by the upstream feature classifier's verdict.
type FeatureType int

const (
	// Corner marks an edge/corner feature cloud.
	Corner FeatureType = iota
	// Surface marks a planar/surface feature cloud.
	Surface
	// Full marks the undecimated cloud.
	Full
)

// Data is the scalar payload carried alongside a point's (x,y,z): an
// intensity channel and a curvature channel. Curvature is reused by the
// upstream feature extractor as a reflectance/feature score.
type Data struct {
	Intensity float64
	Curvature float64
}

// PointAndData pairs a 3D point with its payload.
type PointAndData struct {
	P r3.Vector
	D Data
}

// Cloud is an unordered, append-only set of points with payload. It backs
// feature clouds, cube buckets, and the assembled valid-window point sets
// fed to the k-d trees.
type Cloud struct {
	points []PointAndData
}

// New returns an empty cloud.
func New() *Cloud {
	return &Cloud{}
}

// NewWithCapacity returns an empty cloud pre-sized for n points.
func NewWithCapacity(n int) *Cloud {
	return &Cloud{points: make([]PointAndData, 0, n)}
}

// Append adds a point with its payload.
func (c *Cloud) Append(p r3.Vector, d Data) {
	c.points = append(c.points, PointAndData{P: p, D: d})
}

// AppendAll merges another cloud's points into c.
func (c *Cloud) AppendAll(other *Cloud) {
	if other == nil {
		return
	}
	c.points = append(c.points, other.points...)
}

// Size reports the number of points in the cloud.
func (c *Cloud) Size() int {
	if c == nil {
		return 0
	}
	return len(c.points)
}

// Points returns the underlying point/data slice. Callers must not mutate
// the returned slice's backing array across concurrent use.
func (c *Cloud) Points() []PointAndData {
	if c == nil {
		return nil
	}
	return c.points
}

// Reset empties the cloud while keeping its backing array.
func (c *Cloud) Reset() {
	c.points = c.points[:0]
}

// Centroid returns the mean point of the cloud, or the zero vector if empty.
func Centroid(c *Cloud) r3.Vector {
	if c.Size() == 0 {
		return r3.Vector{}
	}
	var sum r3.Vector
	for _, pd := range c.points {
		sum = sum.Add(pd.P)
	}
	return sum.Mul(1 / float64(c.Size()))
}
