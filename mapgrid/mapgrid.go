// Package mapgrid implements the fixed-extent, sensor-centered voxel-cube
// map: a 21x21x11 array of cube buckets that shifts (index-rotates) to keep
// the sensor near the grid center.
package mapgrid

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/gc625-kodifly/livox-horizon-loam/pointcloud"
)

const (
	// Width, Height, Depth are the fixed grid dimensions.
	Width  = 21
	Height = 21
	Depth  = 11
	// EdgeLength is the physical size of one cube, in the sensor's units.
	EdgeLength = 50.0
	// shiftMargin is how close (in cubes) the sensor cube may get to a face
	// before the grid shifts.
	shiftMargin = 3
)

// NumCubes is the total cube count (21*21*11 = 4851).
const NumCubes = Width * Height * Depth

// Cube is one map cell: up to two point buckets, corner and surface
// features.
type Cube struct {
	Corner  *pointcloud.Cloud
	Surface *pointcloud.Cloud
}

// Grid is the fixed 3D array of cubes plus the logical center offset that
// maps world-cube indices onto array indices.
type Grid struct {
	cubes  [NumCubes]*Cube
	center [3]int // cx, cy, cz
}

// NewGrid allocates all cubes once, empty, centered so the origin sits in
// the middle cube. Cubes are never freed afterwards; shifting only moves
// bucket ownership.
func NewGrid() *Grid {
	g := &Grid{center: [3]int{Width / 2, Height / 2, Depth / 2}}
	for i := range g.cubes {
		g.cubes[i] = &Cube{Corner: pointcloud.New(), Surface: pointcloud.New()}
	}
	return g
}

func flatIndex(i, j, k int) int {
	return i + Width*j + Width*Height*k
}

// CubeIndices computes the cube (I,J,K) containing world point p:
// floor((p.x+25)/50)+cx per axis, rounding toward -inf when p.x+25 < 0.
func (g *Grid) CubeIndices(p r3.Vector) (i, j, k int) {
	i = cubeCoord(p.X, g.center[0])
	j = cubeCoord(p.Y, g.center[1])
	k = cubeCoord(p.Z, g.center[2])
	return i, j, k
}

func cubeCoord(x float64, center int) int {
	shifted := x + EdgeLength/2
	return int(math.Floor(shifted/EdgeLength)) + center
}

// InGrid reports whether cube indices (i,j,k) address an allocated cube.
func InGrid(i, j, k int) bool {
	return i >= 0 && i < Width && j >= 0 && j < Height && k >= 0 && k < Depth
}

// CubeAt returns the cube at (i,j,k), or nil if out of grid.
func (g *Grid) CubeAt(i, j, k int) *Cube {
	if !InGrid(i, j, k) {
		return nil
	}
	return g.cubes[flatIndex(i, j, k)]
}

// CenterCube returns the current (centerCubeI, centerCubeJ, centerCubeK)
// for the given sensor position, without shifting the grid.
func (g *Grid) CenterCube(sensor r3.Vector) (i, j, k int) {
	return g.CubeIndices(sensor)
}

// Shift advances the grid's center offset, one axis at a time, until the
// sensor's cube sits at least shiftMargin cubes from every face. It is
// idempotent: calling it again with the same sensor position is a no-op.
func (g *Grid) Shift(sensor r3.Vector) {
	ci, cj, ck := g.CubeIndices(sensor)

	for ci < shiftMargin {
		g.shiftAxis(0, +1)
		g.center[0]++
		ci++
	}
	for ci >= Width-shiftMargin {
		g.shiftAxis(0, -1)
		g.center[0]--
		ci--
	}
	for cj < shiftMargin {
		g.shiftAxis(1, +1)
		g.center[1]++
		cj++
	}
	for cj >= Height-shiftMargin {
		g.shiftAxis(1, -1)
		g.center[1]--
		cj--
	}
	for ck < shiftMargin {
		g.shiftAxis(2, +1)
		g.center[2]++
		ck++
	}
	for ck >= Depth-shiftMargin {
		g.shiftAxis(2, -1)
		g.center[2]--
		ck--
	}
}

// shiftAxis rotates bucket ownership by one cube along axis (0=I,1=J,2=K) in
// direction dir (+1 or -1): the bucket at the vacating face wraps around to
// the freed slot and is cleared, every other bucket slides over by one.
// Points in the cleared bucket are permanently lost; the sensor has moved
// beyond their useful range.
func (g *Grid) shiftAxis(axis, dir int) {
	dim := []int{Width, Height, Depth}[axis]
	other1, other2 := axisSpan(axis)

	for a := 0; a < other1; a++ {
		for b := 0; b < other2; b++ {
			idx := func(v int) int {
				switch axis {
				case 0:
					return flatIndex(v, a, b)
				case 1:
					return flatIndex(a, v, b)
				default:
					return flatIndex(a, b, v)
				}
			}

			if dir > 0 {
				saved := g.cubes[idx(dim-1)]
				for v := dim - 1; v >= 1; v-- {
					g.cubes[idx(v)] = g.cubes[idx(v-1)]
				}
				saved.Corner.Reset()
				saved.Surface.Reset()
				g.cubes[idx(0)] = saved
			} else {
				saved := g.cubes[idx(0)]
				for v := 0; v < dim-1; v++ {
					g.cubes[idx(v)] = g.cubes[idx(v+1)]
				}
				saved.Corner.Reset()
				saved.Surface.Reset()
				g.cubes[idx(dim-1)] = saved
			}
		}
	}
}

func axisSpan(axis int) (int, int) {
	switch axis {
	case 0:
		return Height, Depth
	case 1:
		return Width, Depth
	default:
		return Width, Height
	}
}

// ValidWindowIndices returns the flat indices of the <=125 cubes in the
// 5x5x3 neighborhood around the sensor cube: I and J span +-2, K spans +-1.
func (g *Grid) ValidWindowIndices(sensor r3.Vector) []int {
	ci, cj, ck := g.CubeIndices(sensor)
	indices := make([]int, 0, 125)
	for i := ci - 2; i <= ci+2; i++ {
		for j := cj - 2; j <= cj+2; j++ {
			for k := ck - 1; k <= ck+1; k++ {
				if InGrid(i, j, k) {
					indices = append(indices, flatIndex(i, j, k))
				}
			}
		}
	}
	return indices
}

// CubeByFlatIndex returns the cube at a flat index produced by
// ValidWindowIndices or AllIndices.
func (g *Grid) CubeByFlatIndex(idx int) *Cube {
	return g.cubes[idx]
}

// AllIndices returns every cube's flat index, the set the full-map output
// concatenates.
func (g *Grid) AllIndices() []int {
	indices := make([]int, NumCubes)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// Insert appends p into whichever cube contains it, selecting the corner or
// surface bucket per isCorner. It returns the flat index of the receiving
// cube, or -1 when p falls outside the grid and is silently dropped.
func (g *Grid) Insert(p r3.Vector, d pointcloud.Data, isCorner bool) int {
	i, j, k := g.CubeIndices(p)
	cube := g.CubeAt(i, j, k)
	if cube == nil {
		return -1
	}
	if isCorner {
		cube.Corner.Append(p, d)
	} else {
		cube.Surface.Append(p, d)
	}
	return flatIndex(i, j, k)
}

// DownsampleCubes replaces each named cube's buckets with their
// voxel-downsampled version, bounding cube density after insertion.
func (g *Grid) DownsampleCubes(indices []int, lineRes, planeRes float64) {
	for _, idx := range indices {
		cube := g.cubes[idx]
		cube.Corner = pointcloud.VoxelDownsample(cube.Corner, lineRes)
		cube.Surface = pointcloud.VoxelDownsample(cube.Surface, planeRes)
	}
}
