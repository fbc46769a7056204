package pointcloud

import (
	"container/heap"
	"sort"

	"github.com/golang/geo/r3"
)

// KDTree is the ephemeral nearest-neighbor index rebuilt each frame from
// the assembled valid-window point set. It is rebuilt from scratch rather
// than updated in place; the backing points never change within a frame.
type KDTree struct {
	root *kdNode
	size int
}

type kdNode struct {
	point       PointAndData
	axis        int
	left, right *kdNode
}

// NewKDTree builds a balanced k-d tree over cloud's points. An empty cloud
// yields a tree that answers every query with zero results.
func NewKDTree(cloud *Cloud) *KDTree {
	pts := append([]PointAndData(nil), cloud.Points()...)
	return &KDTree{root: buildKD(pts, 0), size: len(pts)}
}

func buildKD(pts []PointAndData, depth int) *kdNode {
	if len(pts) == 0 {
		return nil
	}
	axis := depth % 3
	sortByAxis(pts, axis)
	mid := len(pts) / 2
	node := &kdNode{point: pts[mid], axis: axis}
	node.left = buildKD(pts[:mid], depth+1)
	node.right = buildKD(pts[mid+1:], depth+1)
	return node
}

func sortByAxis(pts []PointAndData, axis int) {
	key := func(p r3.Vector) float64 {
		switch axis {
		case 0:
			return p.X
		case 1:
			return p.Y
		default:
			return p.Z
		}
	}
	sort.Slice(pts, func(i, j int) bool { return key(pts[i].P) < key(pts[j].P) })
}

// Size reports the number of points indexed.
func (t *KDTree) Size() int {
	if t == nil {
		return 0
	}
	return t.size
}

// NearestNeighbor returns the single closest point to pt and its squared
// distance. The second return is false if the tree is empty.
func (t *KDTree) NearestNeighbor(pt r3.Vector) (PointAndData, float64, bool) {
	if t.Size() == 0 {
		return PointAndData{}, 0, false
	}
	results := t.KNearestNeighbors(pt, 1)
	return results[0].PointAndData, results[0].SqDist, true
}

// NeighborDist pairs a map point with its squared distance from the query.
type NeighborDist struct {
	PointAndData
	SqDist float64
}

type neighborHeap []NeighborDist

func (h neighborHeap) Len() int { return len(h) }

// Less orders by SqDist descending so the heap root (index 0) is always the
// farthest of the k points kept so far — the one to evict when a closer
// point is found.
func (h neighborHeap) Less(i, j int) bool  { return h[i].SqDist > h[j].SqDist }
func (h neighborHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *neighborHeap) Push(x interface{}) { *h = append(*h, x.(NeighborDist)) }
func (h *neighborHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// KNearestNeighbors returns up to k nearest points to pt, sorted ascending
// by squared distance.
func (t *KDTree) KNearestNeighbors(pt r3.Vector, k int) []NeighborDist {
	if t.Size() == 0 || k <= 0 {
		return nil
	}
	h := &neighborHeap{}
	heap.Init(h)
	searchKD(t.root, pt, k, h)

	out := make([]NeighborDist, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(NeighborDist)
	}
	return out
}

func searchKD(node *kdNode, pt r3.Vector, k int, h *neighborHeap) {
	if node == nil {
		return
	}
	d2 := pt.Sub(node.point.P).Norm2()
	if h.Len() < k {
		heap.Push(h, NeighborDist{PointAndData: node.point, SqDist: d2})
	} else if d2 < (*h)[0].SqDist {
		heap.Pop(h)
		heap.Push(h, NeighborDist{PointAndData: node.point, SqDist: d2})
	}

	var axisVal, planeVal float64
	switch node.axis {
	case 0:
		axisVal, planeVal = pt.X, node.point.P.X
	case 1:
		axisVal, planeVal = pt.Y, node.point.P.Y
	default:
		axisVal, planeVal = pt.Z, node.point.P.Z
	}

	near, far := node.left, node.right
	if axisVal > planeVal {
		near, far = node.right, node.left
	}
	searchKD(near, pt, k, h)

	diff := axisVal - planeVal
	if h.Len() < k || diff*diff < (*h)[0].SqDist {
		searchKD(far, pt, k, h)
	}
}
