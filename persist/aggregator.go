package persist

import (
	"sync"

	"github.com/gc625-kodifly/livox-horizon-loam/mapping"
	"github.com/gc625-kodifly/livox-horizon-loam/pointcloud"
)

// Aggregator accumulates every frame's registered cloud for final
// persistence. It implements mapping.OutputSink so it can be attached
// directly to a mapping.Worker.
type Aggregator struct {
	mu       sync.Mutex
	useColor bool
	cloud    *pointcloud.Cloud
	colors   []uint32
}

// NewAggregator returns an empty Aggregator. useColor selects whether the
// accumulated cloud carries RGB (and persists as XYZRGB) or intensity only
// (XYZI).
func NewAggregator(useColor bool) *Aggregator {
	return &Aggregator{useColor: useColor, cloud: pointcloud.New()}
}

// Handle appends one frame's registered-full cloud. In color mode it keeps
// real camera color (ColoredCloud) where a point matched, falling back to
// the false-color reflectance mapping otherwise.
func (a *Aggregator) Handle(out mapping.Outputs) {
	if out.RegisteredFull == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	points := out.RegisteredFull.Points()
	for i, p := range points {
		a.cloud.Append(p.P, p.D)
		if !a.useColor {
			continue
		}

		var rgb uint32
		if i < len(out.ColoredOK) && out.ColoredOK[i] {
			c := out.ColoredCloud[i]
			rgb = uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
		} else if i < len(out.RegisteredFullColor) {
			c := out.RegisteredFullColor[i]
			rgb = uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
		}
		a.colors = append(a.colors, rgb)
	}
}

// Snapshot returns the accumulated cloud and, in color mode, its parallel
// packed-RGB slice, ready for WriteLAS. The color slice is nil otherwise,
// selecting the XYZI record format.
func (a *Aggregator) Snapshot() (*pointcloud.Cloud, []uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cloud, a.colors
}
