package mapping

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gc625-kodifly/livox-horizon-loam/logging"
	"github.com/gc625-kodifly/livox-horizon-loam/spatialmath"
)

// idleBackoff is how long the mapping worker sleeps when no synchronized
// tuple is ready.
const idleBackoff = 2 * time.Millisecond

// OutputSink receives every frame's outputs as they're produced; a mapping
// consumer (persistence, a viewer, a transform broadcaster) implements
// this to stay decoupled from the worker loop.
type OutputSink interface {
	Handle(Outputs)
}

// HighFreqSink receives the high-frequency odometry output, emitted at
// odometry rate rather than mapping rate.
type HighFreqSink interface {
	HandleHighFreq(spatialmath.Pose)
}

// Worker drives the single mapping goroutine: it drains synchronized
// input tuples from the queues and feeds them to a Mapper, publishing
// results to a sink.
type Worker struct {
	mapper       *Mapper
	queues       *inputQueues
	sink         OutputSink
	highFreqSink HighFreqSink
	logger       *logging.Logger

	// IdleBackoff overrides how long Run sleeps when no synchronized tuple
	// is ready; zero selects the default.
	IdleBackoff time.Duration
}

// NewWorker builds a Worker over the given Mapper, queue depth, and sink.
// highFreqSink may be nil if the high-frequency odometry output isn't
// consumed.
func NewWorker(mapper *Mapper, queueDepth int, sink OutputSink, highFreqSink HighFreqSink, logger *logging.Logger) *Worker {
	return &Worker{
		mapper:       mapper,
		queues:       newInputQueues(queueDepth, logger),
		sink:         sink,
		highFreqSink: highFreqSink,
		logger:       logger,
	}
}

// PushCornerLast, PushSurfLast, and PushFullRes are the ingress goroutines'
// entry points into the shared queue set.
func (w *Worker) PushCornerLast(tc TimedCloud) { w.queues.PushCornerLast(tc) }
func (w *Worker) PushSurfLast(tc TimedCloud)   { w.queues.PushSurfLast(tc) }
func (w *Worker) PushFullRes(tc TimedCloud)    { w.queues.PushFullRes(tc) }

// PushOdometry enqueues a raw odometry sample for the synchronized-tuple
// path and, inline on the calling (ingress) goroutine, publishes the
// high-frequency odometry output composed from the latest mapping
// correction. It does not wait for the synchronized-tuple path.
func (w *Worker) PushOdometry(tp TimedPose) {
	w.queues.PushOdometry(tp)
	if w.highFreqSink != nil {
		w.highFreqSink.HandleHighFreq(w.mapper.HighFrequencyPose(tp.Pose))
	}
}

// Run blocks, processing synchronized tuples until ctx is canceled. It is
// meant to be launched as the sole mapping goroutine inside an errgroup
// alongside the ingress goroutines that feed it.
func (w *Worker) Run(ctx context.Context) error {
	backoff := w.IdleBackoff
	if backoff <= 0 {
		backoff = idleBackoff
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		corner, surf, full, odom, ok := w.queues.PopSynchronizedTuple()
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			continue
		}

		out := w.mapper.ProcessFrame(corner.Cloud, surf.Cloud, full.Cloud, odom.Pose, corner.Timestamp)
		if w.sink != nil {
			w.sink.Handle(out)
		}
	}
}

// RunWithIngress launches the mapping worker alongside a set of ingress
// goroutines under one errgroup, so an error in any of them cancels the
// whole group.
func RunWithIngress(ctx context.Context, w *Worker, ingress ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Run(gctx) })
	for _, fn := range ingress {
		fn := fn
		g.Go(func() error { return fn(gctx) })
	}
	return g.Wait()
}
