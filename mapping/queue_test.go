package mapping

import (
	"testing"

	"go.viam.com/test"

	"github.com/gc625-kodifly/livox-horizon-loam/pointcloud"
	"github.com/gc625-kodifly/livox-horizon-loam/spatialmath"
)

func TestPopSynchronizedTupleWaitsForAllFour(t *testing.T) {
	q := newInputQueues(0, nil)
	q.PushCornerLast(TimedCloud{Timestamp: 1.0, Cloud: pointcloud.New()})
	_, _, _, _, ok := q.PopSynchronizedTuple()
	test.That(t, ok, test.ShouldBeFalse)
}

func TestPopSynchronizedTupleMatchesWithinTolerance(t *testing.T) {
	q := newInputQueues(0, nil)
	q.PushCornerLast(TimedCloud{Timestamp: 1.00, Cloud: pointcloud.New()})
	q.PushSurfLast(TimedCloud{Timestamp: 1.01, Cloud: pointcloud.New()})
	q.PushFullRes(TimedCloud{Timestamp: 1.02, Cloud: pointcloud.New()})
	q.PushOdometry(TimedPose{Timestamp: 1.00, Pose: spatialmath.IdentityPose})

	corner, surf, full, odom, ok := q.PopSynchronizedTuple()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, corner.Timestamp, test.ShouldEqual, 1.00)
	test.That(t, surf.Timestamp, test.ShouldEqual, 1.01)
	test.That(t, full.Timestamp, test.ShouldEqual, 1.02)
	test.That(t, odom.Timestamp, test.ShouldEqual, 1.00)
}

func TestPopSynchronizedTupleDropsStaleFront(t *testing.T) {
	q := newInputQueues(0, nil)
	q.PushCornerLast(TimedCloud{Timestamp: 5.0, Cloud: pointcloud.New()})
	q.PushSurfLast(TimedCloud{Timestamp: 1.0, Cloud: pointcloud.New()}) // stale, must be dropped
	q.PushSurfLast(TimedCloud{Timestamp: 5.0, Cloud: pointcloud.New()})
	q.PushFullRes(TimedCloud{Timestamp: 5.0, Cloud: pointcloud.New()})
	q.PushOdometry(TimedPose{Timestamp: 5.0})

	_, surf, _, _, ok := q.PopSynchronizedTuple()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, surf.Timestamp, test.ShouldEqual, 5.0)
}

func TestPopSynchronizedTupleDiscardsUnsynchronizedCornerHead(t *testing.T) {
	q := newInputQueues(0, nil)
	// the other three streams have run ahead of the first corner head, so
	// that head can never match and must be discarded to catch up.
	q.PushCornerLast(TimedCloud{Timestamp: 1.0, Cloud: pointcloud.New()})
	q.PushCornerLast(TimedCloud{Timestamp: 5.0, Cloud: pointcloud.New()})
	q.PushSurfLast(TimedCloud{Timestamp: 5.0, Cloud: pointcloud.New()})
	q.PushFullRes(TimedCloud{Timestamp: 5.0, Cloud: pointcloud.New()})
	q.PushOdometry(TimedPose{Timestamp: 5.0})

	corner, _, _, _, ok := q.PopSynchronizedTuple()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, corner.Timestamp, test.ShouldEqual, 5.0)
}

func TestPushBoundedEvictsOldest(t *testing.T) {
	q := newInputQueues(2, nil)
	q.PushCornerLast(TimedCloud{Timestamp: 1})
	q.PushCornerLast(TimedCloud{Timestamp: 2})
	q.PushCornerLast(TimedCloud{Timestamp: 3})
	test.That(t, len(q.cornerLast), test.ShouldEqual, 2)
	test.That(t, q.cornerLast[0].Timestamp, test.ShouldEqual, 2)
}
