package colorize

import (
	"image"
	"image/color"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/gc625-kodifly/livox-horizon-loam/pointcloud"
	"github.com/gc625-kodifly/livox-horizon-loam/spatialmath"
)

func testColorizer() *Colorizer {
	return &Colorizer{
		Intrinsics: CameraIntrinsics{Fx: 500, Fy: 500, Cx: 320, Cy: 240, Width: 640, Height: 480},
		Distortion: &BrownConrady{},
		Extrinsic:  spatialmath.IdentityPose,
		Buffer:     NewBuffer(0.05),
	}
}

// magentaImage returns a 640x480 image that is magenta at exactly (320,240)
// and black everywhere else.
func magentaImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	img.Set(320, 240, color.RGBA{R: 255, B: 255, A: 255})
	return img
}

// TestColorizationMatchesZeroDistortionProjection: with fx=fy=500, cx=320,
// cy=240, zero distortion and an identity extrinsic, a point at (0,0,1)
// projects to pixel (320,240) and picks up that pixel's color.
func TestColorizationMatchesZeroDistortionProjection(t *testing.T) {
	c := testColorizer()
	c.Buffer.Push(Frame{Timestamp: 1.0, Image: magentaImage()})

	cloud := pointcloud.New()
	cloud.Append(r3.Vector{X: 0, Y: 0, Z: 1}, pointcloud.Data{})

	colors, ok := c.Colors(cloud, 1.0)
	test.That(t, ok[0], test.ShouldBeTrue)
	test.That(t, colors[0], test.ShouldResemble, color.RGBA{R: 255, G: 0, B: 255, A: 255})
}

// TestColorizationPreservesChannelOrder guards against swapping red and
// blue when reading back a decoded image's pixel color; the test color is
// asymmetric so a swap can't go unnoticed.
func TestColorizationPreservesChannelOrder(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	img.Set(320, 240, color.RGBA{R: 200, G: 0, B: 10, A: 255})

	c := testColorizer()
	c.Buffer.Push(Frame{Timestamp: 1.0, Image: img})

	cloud := pointcloud.New()
	cloud.Append(r3.Vector{X: 0, Y: 0, Z: 1}, pointcloud.Data{})

	colors, ok := c.Colors(cloud, 1.0)
	test.That(t, ok[0], test.ShouldBeTrue)
	test.That(t, colors[0], test.ShouldResemble, color.RGBA{R: 200, G: 0, B: 10, A: 255})
}

// Points with Z<=0 in the camera frame are always skipped.
func TestColorizationSkipsPointsBehindCamera(t *testing.T) {
	c := testColorizer()
	c.Buffer.Push(Frame{Timestamp: 1.0, Image: magentaImage()})

	cloud := pointcloud.New()
	cloud.Append(r3.Vector{X: 0, Y: 0, Z: -1}, pointcloud.Data{})

	_, ok := c.Colors(cloud, 1.0)
	test.That(t, ok[0], test.ShouldBeFalse)
}

// When no image lies within tolerance the frame yields no colored output;
// there is no monochrome fallback on this path.
func TestColorizationRejectsStaleImage(t *testing.T) {
	c := testColorizer()
	c.Buffer.Push(Frame{Timestamp: 1.0, Image: magentaImage()})

	cloud := pointcloud.New()
	cloud.Append(r3.Vector{X: 0, Y: 0, Z: 1}, pointcloud.Data{})

	_, ok := c.Colors(cloud, 5.0)
	test.That(t, ok[0], test.ShouldBeFalse)
}

// TestColorizationAppliesExtrinsic gives the extrinsic a -1 X translation,
// which places the camera at the sensor's x=+1, so a point at the sensor's
// (1,0,1) lands on the optical axis.
func TestColorizationAppliesExtrinsic(t *testing.T) {
	c := testColorizer()
	c.Extrinsic = spatialmath.NewPose(spatialmath.IdentityQuat, r3.Vector{X: -1})
	c.Buffer.Push(Frame{Timestamp: 1.0, Image: magentaImage()})

	cloud := pointcloud.New()
	cloud.Append(r3.Vector{X: 1, Y: 0, Z: 1}, pointcloud.Data{})

	colors, ok := c.Colors(cloud, 1.0)
	test.That(t, ok[0], test.ShouldBeTrue)
	test.That(t, colors[0], test.ShouldResemble, color.RGBA{R: 255, G: 0, B: 255, A: 255})
}
