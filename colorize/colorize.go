package colorize

import (
	"image/color"

	"github.com/golang/geo/r3"

	"github.com/gc625-kodifly/livox-horizon-loam/pointcloud"
	"github.com/gc625-kodifly/livox-horizon-loam/spatialmath"
)

// Colorizer projects sensor-frame points into the nearest time-matched
// camera frame and reads back their color.
type Colorizer struct {
	Intrinsics CameraIntrinsics
	Distortion *BrownConrady
	Extrinsic  spatialmath.Pose // camera frame from lidar frame
	Buffer     *Buffer
}

// Colors takes the sensor-frame cloud captured at timestamp, returning
// per-point colors for every point that projects into a matched camera
// frame, in input order; points that miss carry the zero color and
// ok=false. When no buffered image lies within the buffer's time tolerance
// the whole frame contributes no colored output.
func (c *Colorizer) Colors(cloud *pointcloud.Cloud, timestamp float64) ([]color.RGBA, []bool) {
	n := cloud.Size()
	colors := make([]color.RGBA, n)
	ok := make([]bool, n)

	frame, found := c.Buffer.Nearest(timestamp)
	if !found {
		return colors, ok
	}

	bounds := frame.Image.Bounds()
	for i, pd := range cloud.Points() {
		camPoint := spatialmath.TransformPoint(c.Extrinsic, pd.P)

		px, py, hit := Project(c.Intrinsics, c.Distortion, camPoint.X, camPoint.Y, camPoint.Z)
		if !hit {
			continue
		}
		if px < bounds.Min.X || px >= bounds.Max.X || py < bounds.Min.Y || py >= bounds.Max.Y {
			continue
		}
		colors[i] = SampleColor(frame.Image, px, py)
		ok[i] = true
	}
	return colors, ok
}

// ExtrinsicFromVectors builds the lidar->camera Pose from a flat row-major
// 3x3 rotation plus a translation, the shape config.MappingConfig decodes
// the extrinsic attributes into.
func ExtrinsicFromVectors(rotation []float64, translation r3.Vector) spatialmath.Pose {
	return spatialmath.PoseFromFlatRotation(rotation, translation)
}
