package pointcloud

import "image/color"

// FalseColor maps a reflectance value in [0, 25.5] (the point's curvature
// channel, scaled by 10) to an RGB color via a 4-band piecewise-linear
// blue->green->yellow->red ramp.
func FalseColor(curvature float64) color.RGBA {
	reflect := curvature * 10
	switch {
	case reflect < 30:
		green := clampByte(reflect * 255 / 30)
		return color.RGBA{R: 0, G: green, B: 0xff, A: 0xff}
	case reflect < 90:
		blue := clampByte((90 - reflect) * 255 / 60)
		return color.RGBA{R: 0, G: 0xff, B: blue, A: 0xff}
	case reflect < 150:
		red := clampByte((reflect - 90) * 255 / 60)
		return color.RGBA{R: red, G: 0xff, B: 0, A: 0xff}
	default:
		green := clampByte((255 - reflect) * 255 / (255 - 150))
		return color.RGBA{R: 0xff, G: green, B: 0, A: 0xff}
	}
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// IntensityValue returns the monochrome-path intensity value written by the
// non-color output channel: curvature*10, distinct from the raw intensity
// channel carried by the point itself. The two output channels carry
// different semantics on purpose; consumers pick one.
func IntensityValue(d Data) float64 {
	return d.Curvature * 10
}
