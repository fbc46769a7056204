package mapping

import (
	"image/color"
	"sync"

	"github.com/golang/geo/r3"

	"github.com/gc625-kodifly/livox-horizon-loam/colorize"
	"github.com/gc625-kodifly/livox-horizon-loam/logging"
	"github.com/gc625-kodifly/livox-horizon-loam/mapgrid"
	"github.com/gc625-kodifly/livox-horizon-loam/pointcloud"
	"github.com/gc625-kodifly/livox-horizon-loam/registration"
	"github.com/gc625-kodifly/livox-horizon-loam/spatialmath"
)

// Outputs bundles the per-frame products the mapping cycle publishes.
type Outputs struct {
	RefinedPose spatialmath.Pose

	// RegisteredFull is the full cloud transformed into world frame,
	// always emitted.
	RegisteredFull *pointcloud.Cloud
	// RegisteredFullColor is the false-color (blue->green->yellow->red)
	// reflectance mapping of RegisteredFull, one entry per point in the
	// same order.
	RegisteredFullColor []color.RGBA

	// ColoredCloud carries real camera RGB per point of RegisteredFull
	// when color mapping is enabled and a camera frame matched within
	// tolerance; ColoredOK marks which points projected successfully.
	// Both are nil when the colorization path is not taken; when it is taken
	// but no frame matched, every ColoredOK entry is false.
	ColoredCloud []color.RGBA
	ColoredOK    []bool

	// IntensityCloud is the monochrome path's output: RegisteredFull with
	// curvature*10 written into the intensity channel instead of the raw
	// intensity, emitted only when UseColor is false. The two channels
	// carry deliberately different semantics; downstream consumers pick
	// one.
	IntensityCloud *pointcloud.Cloud

	SurroundCloud *pointcloud.Cloud // every 5th frame
	FullMapCloud  *pointcloud.Cloud // every 20th frame
	Path          []r3.Vector
}

// Mapper owns all mutable mapping state: the map grid, the pose chain, and
// the frame counters that gate the lower-frequency outputs. It is driven by
// a single worker goroutine; only the correction snapshot is shared with
// ingress goroutines.
type Mapper struct {
	Grid  *mapgrid.Grid
	Chain spatialmath.Chain

	LineResolution  float64
	PlaneResolution float64

	// OdomExtrinsic is applied to every incoming odometry sample before it
	// enters the pose chain, carrying the sensor-from-IMU calibration when
	// the upstream odometry is expressed in the IMU frame. Identity when
	// the calibration is not configured.
	OdomExtrinsic spatialmath.Pose

	// UseColor selects the colorization path: when true and Colorizer is
	// set, ColoredCloud is populated from Colorizer and IntensityCloud is
	// left nil; otherwise the reverse.
	UseColor  bool
	Colorizer *colorize.Colorizer

	logger *logging.Logger

	frameIndex int
	path       []r3.Vector

	correctionMu     sync.RWMutex
	latestCorrection spatialmath.Pose // guarded snapshot of Chain.WorldMapFromWorldOdom
}

// NewMapper constructs a Mapper with a fresh, empty map grid and an
// identity pose chain.
func NewMapper(lineRes, planeRes float64, logger *logging.Logger) *Mapper {
	return &Mapper{
		Grid:            mapgrid.NewGrid(),
		Chain:           spatialmath.Chain{WorldMapFromWorldOdom: spatialmath.IdentityPose, WorldOdomFromCurrent: spatialmath.IdentityPose},
		LineResolution:  lineRes,
		PlaneResolution: planeRes,
		OdomExtrinsic:   spatialmath.IdentityPose,
		logger:          logger,

		latestCorrection: spatialmath.IdentityPose,
	}
}

// HighFrequencyPose composes the latest mapping correction with a raw
// odometry sample, at odometry rate rather than mapping rate, so downstream
// consumers get a low-latency pose. It is safe to call from an ingress
// goroutine concurrently with the worker's ProcessFrame: it reads a
// lock-guarded snapshot of T_wm_wo rather than the chain the worker owns
// exclusively.
func (m *Mapper) HighFrequencyPose(odom spatialmath.Pose) spatialmath.Pose {
	m.correctionMu.RLock()
	correction := m.latestCorrection
	m.correctionMu.RUnlock()
	return spatialmath.Compose(correction, spatialmath.Compose(odom, m.OdomExtrinsic))
}

// CurrentTransform returns the world->sensor transform as of the latest
// processed frame, the value a transform broadcaster would publish.
func (m *Mapper) CurrentTransform() spatialmath.Pose {
	return m.Chain.InitialGuess()
}

// Path returns the append-only sequence of refined sensor positions.
func (m *Mapper) Path() []r3.Vector {
	return m.path
}

// publishCorrection snapshots the worker-owned Chain.WorldMapFromWorldOdom
// for concurrent reads by HighFrequencyPose. Must be called only from the
// worker goroutine, after Chain.Update.
func (m *Mapper) publishCorrection() {
	m.correctionMu.Lock()
	m.latestCorrection = m.Chain.WorldMapFromWorldOdom
	m.correctionMu.Unlock()
}

// ProcessFrame runs one full scan-to-map registration cycle: compose the
// initial guess from the pose chain, shift the grid to the sensor, gather
// the surrounding window, refine the pose against it, fold the new scan
// into the grid, and assemble this frame's outputs. timestamp is the
// synchronized tuple's capture time, used only to match a camera frame when
// UseColor is set.
func (m *Mapper) ProcessFrame(corner, surf, full *pointcloud.Cloud, odom spatialmath.Pose, timestamp float64) Outputs {
	m.Chain.WorldOdomFromCurrent = spatialmath.Compose(odom, m.OdomExtrinsic)
	initial := m.Chain.InitialGuess()

	sensor := initial.T
	m.Grid.Shift(sensor)

	windowIdx := m.Grid.ValidWindowIndices(sensor)
	cornerMapCloud, surfMapCloud := m.collectWindow(windowIdx)

	cornerDS := pointcloud.VoxelDownsample(corner, m.LineResolution)
	surfDS := pointcloud.VoxelDownsample(surf, m.PlaneResolution)

	opts := registration.DefaultOptimizeOptions
	var refined spatialmath.Pose
	if cornerMapCloud.Size() <= opts.MinCornerMapPoints || surfMapCloud.Size() <= opts.MinSurfaceMapPoints {
		m.logger.Warnw("map too sparse, skipping optimization", "corner", cornerMapCloud.Size(), "surface", surfMapCloud.Size())
		refined = initial
	} else {
		cornerKD := pointcloud.NewKDTree(cornerMapCloud)
		surfKD := pointcloud.NewKDTree(surfMapCloud)
		refined = registration.Refine(initial, m.buildAssociations(cornerDS, surfDS, cornerKD, surfKD))
	}

	m.Chain.Update(refined)
	m.publishCorrection()
	touched := m.insertScan(refined, cornerDS, surfDS)
	m.Grid.DownsampleCubes(touched, m.LineResolution, m.PlaneResolution)

	m.path = append(m.path, refined.T)
	m.frameIndex++

	registeredFull := transformCloud(refined, full)
	out := Outputs{
		RefinedPose:         refined,
		RegisteredFull:      registeredFull,
		RegisteredFullColor: falseColorCloud(registeredFull),
		Path:                m.path,
	}

	if m.UseColor && m.Colorizer != nil {
		out.ColoredCloud, out.ColoredOK = m.Colorizer.Colors(full, timestamp)
	} else {
		out.IntensityCloud = intensityCloud(registeredFull)
	}

	if m.frameIndex%5 == 0 {
		out.SurroundCloud = m.collectWindowCombined(windowIdx)
	}
	if m.frameIndex%20 == 0 {
		out.FullMapCloud = m.collectWindowCombined(m.Grid.AllIndices())
	}
	return out
}

// falseColorCloud maps every point's curvature channel through the 4-band
// reflectance ramp.
func falseColorCloud(cloud *pointcloud.Cloud) []color.RGBA {
	points := cloud.Points()
	out := make([]color.RGBA, len(points))
	for i, p := range points {
		out[i] = pointcloud.FalseColor(p.D.Curvature)
	}
	return out
}

// intensityCloud is the monochrome path's output: a copy of cloud with
// curvature*10 written into the intensity field instead of the point's raw
// intensity.
func intensityCloud(cloud *pointcloud.Cloud) *pointcloud.Cloud {
	points := cloud.Points()
	out := pointcloud.NewWithCapacity(len(points))
	for _, p := range points {
		out.Append(p.P, pointcloud.Data{Intensity: pointcloud.IntensityValue(p.D), Curvature: p.D.Curvature})
	}
	return out
}

// collectWindowCombined concatenates the corner and surface buckets of the
// named cubes into one cloud, the shape the surround and full-map outputs
// publish.
func (m *Mapper) collectWindowCombined(indices []int) *pointcloud.Cloud {
	corner, surf := m.collectWindow(indices)
	out := pointcloud.NewWithCapacity(corner.Size() + surf.Size())
	out.AppendAll(corner)
	out.AppendAll(surf)
	return out
}

func (m *Mapper) collectWindow(indices []int) (*pointcloud.Cloud, *pointcloud.Cloud) {
	corner := pointcloud.New()
	surf := pointcloud.New()
	for _, idx := range indices {
		cube := m.Grid.CubeByFlatIndex(idx)
		corner.AppendAll(cube.Corner)
		surf.AppendAll(cube.Surface)
	}
	return corner, surf
}

func (m *Mapper) buildAssociations(corner, surf *pointcloud.Cloud, cornerKD, surfKD *pointcloud.KDTree) registration.AssociationBuilder {
	return func(pose spatialmath.Pose) []registration.Association {
		var out []registration.Association
		for _, p := range corner.Points() {
			mapPoint := spatialmath.TransformPoint(pose, p.P)
			if edge, ok := registration.BuildEdgeResidual(cornerKD, p.P, mapPoint); ok {
				out = append(out, registration.Association{ScanPoint: p.P, Edge: &edge})
			}
		}
		for _, p := range surf.Points() {
			mapPoint := spatialmath.TransformPoint(pose, p.P)
			if plane, ok := registration.BuildPlaneResidual(surfKD, p.P, mapPoint); ok {
				out = append(out, registration.Association{ScanPoint: p.P, Plane: &plane})
			}
		}
		return out
	}
}

// insertScan folds the down-sampled feature clouds into the grid at the
// refined pose and returns the flat indices of every cube that received at
// least one point.
func (m *Mapper) insertScan(pose spatialmath.Pose, corner, surf *pointcloud.Cloud) []int {
	seen := make(map[int]struct{})
	var touched []int
	mark := func(idx int) {
		if idx < 0 {
			return
		}
		if _, ok := seen[idx]; ok {
			return
		}
		seen[idx] = struct{}{}
		touched = append(touched, idx)
	}
	for _, p := range corner.Points() {
		mark(m.Grid.Insert(spatialmath.TransformPoint(pose, p.P), p.D, true))
	}
	for _, p := range surf.Points() {
		mark(m.Grid.Insert(spatialmath.TransformPoint(pose, p.P), p.D, false))
	}
	return touched
}

func transformCloud(pose spatialmath.Pose, in *pointcloud.Cloud) *pointcloud.Cloud {
	out := pointcloud.NewWithCapacity(in.Size())
	for _, p := range in.Points() {
		out.Append(spatialmath.TransformPoint(pose, p.P), p.D)
	}
	return out
}
