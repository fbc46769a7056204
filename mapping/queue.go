// Package mapping orchestrates the mapping back-end: it multiplexes the
// four timestamped input streams, drives scan-to-map registration each
// frame, maintains the map grid and pose chain, and produces the refined
// odometry and output clouds.
package mapping

import (
	"sync"

	"github.com/gc625-kodifly/livox-horizon-loam/logging"
	"github.com/gc625-kodifly/livox-horizon-loam/pointcloud"
	"github.com/gc625-kodifly/livox-horizon-loam/spatialmath"
)

// TimedCloud pairs a point cloud with its capture timestamp.
type TimedCloud struct {
	Timestamp float64
	Cloud     *pointcloud.Cloud
}

// TimedPose is a raw odometry sample: the pose estimate in the odometry
// world frame, timestamped.
type TimedPose struct {
	Timestamp float64
	Pose      spatialmath.Pose
}

// inputQueues are the four bounded buffers fed by the ingress goroutines
// and drained together by the single mapping worker. One mutex guards all
// four; every critical section is O(1) in the heavy work sense (appends and
// front pops only).
type inputQueues struct {
	mu sync.Mutex

	cornerLast []TimedCloud
	surfLast   []TimedCloud
	fullRes    []TimedCloud
	odometry   []TimedPose

	maxDepth int
	logger   *logging.Logger
}

func newInputQueues(maxDepth int, logger *logging.Logger) *inputQueues {
	return &inputQueues{maxDepth: maxDepth, logger: logger}
}

func pushBounded[T any](q *[]T, v T, maxDepth int) {
	*q = append(*q, v)
	if maxDepth > 0 && len(*q) > maxDepth {
		*q = (*q)[len(*q)-maxDepth:]
	}
}

func (q *inputQueues) PushCornerLast(tc TimedCloud) {
	q.mu.Lock()
	defer q.mu.Unlock()
	pushBounded(&q.cornerLast, tc, q.maxDepth)
}

func (q *inputQueues) PushSurfLast(tc TimedCloud) {
	q.mu.Lock()
	defer q.mu.Unlock()
	pushBounded(&q.surfLast, tc, q.maxDepth)
}

func (q *inputQueues) PushFullRes(tc TimedCloud) {
	q.mu.Lock()
	defer q.mu.Unlock()
	pushBounded(&q.fullRes, tc, q.maxDepth)
}

func (q *inputQueues) PushOdometry(tp TimedPose) {
	q.mu.Lock()
	defer q.mu.Unlock()
	pushBounded(&q.odometry, tp, q.maxDepth)
}

// syncTolerance bounds how far apart the four front-of-queue timestamps may
// sit and still count as one synchronized tuple. Timestamps originate from
// the same upstream clock, so in practice they agree exactly; the tolerance
// absorbs float encoding jitter.
const syncTolerance = 0.05

// PopSynchronizedTuple drains one matched (corner, surf, fullRes, odometry)
// tuple from the front of all four queues. The corner head's timestamp
// leads: older heads on the other three queues are dropped to catch up, and
// if any of them has instead run ahead the corner head itself is discarded
// with a warning and the alignment retried. Returns ok=false when any queue
// runs dry before a tuple is matched.
func (q *inputQueues) PopSynchronizedTuple() (TimedCloud, TimedCloud, TimedCloud, TimedPose, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for {
		if len(q.cornerLast) == 0 || len(q.surfLast) == 0 || len(q.fullRes) == 0 || len(q.odometry) == 0 {
			return TimedCloud{}, TimedCloud{}, TimedCloud{}, TimedPose{}, false
		}
		t := q.cornerLast[0].Timestamp

		if q.surfLast[0].Timestamp < t-syncTolerance {
			q.surfLast = q.surfLast[1:]
			continue
		}
		if q.fullRes[0].Timestamp < t-syncTolerance {
			q.fullRes = q.fullRes[1:]
			continue
		}
		if q.odometry[0].Timestamp < t-syncTolerance {
			q.odometry = q.odometry[1:]
			continue
		}
		if q.surfLast[0].Timestamp > t+syncTolerance ||
			q.fullRes[0].Timestamp > t+syncTolerance ||
			q.odometry[0].Timestamp > t+syncTolerance {
			if q.logger != nil {
				q.logger.Warnw("messages unsynchronized, discarding corner head",
					"corner", t,
					"surf", q.surfLast[0].Timestamp,
					"full", q.fullRes[0].Timestamp,
					"odom", q.odometry[0].Timestamp)
			}
			q.cornerLast = q.cornerLast[1:]
			continue
		}

		corner := q.cornerLast[0]
		surf := q.surfLast[0]
		full := q.fullRes[0]
		odom := q.odometry[0]
		q.cornerLast = q.cornerLast[1:]
		q.surfLast = q.surfLast[1:]
		q.fullRes = q.fullRes[1:]
		q.odometry = q.odometry[1:]
		return corner, surf, full, odom, true
	}
}
