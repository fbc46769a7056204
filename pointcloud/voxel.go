package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
)

// VoxelCoords is the integer grid index of a voxel within a down-sampling
// leaf grid.
type VoxelCoords struct {
	I, J, K int
}

// voxelCoordsFromPoint floors (p/leafSize) component-wise.
func voxelCoordsFromPoint(p r3.Vector, leafSize float64) VoxelCoords {
	return VoxelCoords{
		I: int(math.Floor(p.X / leafSize)),
		J: int(math.Floor(p.Y / leafSize)),
		K: int(math.Floor(p.Z / leafSize)),
	}
}

type voxelAccum struct {
	sum   r3.Vector
	count int
	data  Data // payload of the first point seen in the voxel
}

// VoxelDownsample partitions space into axis-aligned cubes of side
// leafSize and emits one point per occupied cube, equal to the centroid of
// the points that fell in it. The emitted point's payload is carried from
// an arbitrary input point in that voxel; the upstream feature score has no
// natural "average".
func VoxelDownsample(cloud *Cloud, leafSize float64) *Cloud {
	if cloud.Size() == 0 || leafSize <= 0 {
		out := New()
		out.AppendAll(cloud)
		return out
	}

	buckets := make(map[VoxelCoords]*voxelAccum, cloud.Size())
	order := make([]VoxelCoords, 0, cloud.Size())
	for _, pd := range cloud.Points() {
		key := voxelCoordsFromPoint(pd.P, leafSize)
		acc, ok := buckets[key]
		if !ok {
			acc = &voxelAccum{data: pd.D}
			buckets[key] = acc
			order = append(order, key)
		}
		acc.sum = acc.sum.Add(pd.P)
		acc.count++
	}

	out := NewWithCapacity(len(order))
	for _, key := range order {
		acc := buckets[key]
		centroid := acc.sum.Mul(1 / float64(acc.count))
		out.Append(centroid, acc.data)
	}
	return out
}
