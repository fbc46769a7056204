package main

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/gc625-kodifly/livox-horizon-loam/mapping"
	"github.com/gc625-kodifly/livox-horizon-loam/pointcloud"
	"github.com/gc625-kodifly/livox-horizon-loam/spatialmath"
)

// pointRecord is one (x,y,z,intensity,curvature) tuple as it appears in a
// replay file.
type pointRecord struct {
	X, Y, Z              float64
	Intensity, Curvature float64
}

// odomRecord is a quaternion+translation pose sample.
type odomRecord struct {
	Q [4]float64 // x,y,z,w
	T [3]float64
}

// frameRecord is one line of a JSONL replay file: a single synchronized
// tuple of the four input streams, pre-aligned since an offline replay file
// has no out-of-order delivery to resolve.
type frameRecord struct {
	Timestamp float64
	Corner    []pointRecord
	Surface   []pointRecord
	Full      []pointRecord
	Odom      odomRecord
}

func loadReplay(path string) ([]frameRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var frames []frameRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<24)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec frameRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, err
		}
		frames = append(frames, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return frames, nil
}

func toCloud(records []pointRecord) *pointcloud.Cloud {
	cloud := pointcloud.NewWithCapacity(len(records))
	for _, r := range records {
		cloud.Append(r3.Vector{X: r.X, Y: r.Y, Z: r.Z}, pointcloud.Data{Intensity: r.Intensity, Curvature: r.Curvature})
	}
	return cloud
}

func toPose(r odomRecord) spatialmath.Pose {
	q := quat.Number{Imag: r.Q[0], Jmag: r.Q[1], Kmag: r.Q[2], Real: r.Q[3]}
	return spatialmath.NewPose(q, r3.Vector{X: r.T[0], Y: r.T[1], Z: r.T[2]})
}

// feedReplay pushes every frame into the worker's four ingress queues, then
// waits a fixed interval scaled by the frame count to give the worker time
// to drain them, and returns errReplayDone, which cancels the ingress group,
// since this replay source has no more data to deliver. It does not check
// that the queues are actually empty.
func feedReplay(ctx context.Context, w *mapping.Worker, frames []frameRecord) error {
	for _, fr := range frames {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		w.PushCornerLast(mapping.TimedCloud{Timestamp: fr.Timestamp, Cloud: toCloud(fr.Corner)})
		w.PushSurfLast(mapping.TimedCloud{Timestamp: fr.Timestamp, Cloud: toCloud(fr.Surface)})
		w.PushFullRes(mapping.TimedCloud{Timestamp: fr.Timestamp, Cloud: toCloud(fr.Full)})
		w.PushOdometry(mapping.TimedPose{Timestamp: fr.Timestamp, Pose: toPose(fr.Odom)})
	}

	// give the worker's poll loop time to drain every pushed tuple before
	// this replay source declares itself done.
	drain := time.Duration(len(frames)+10) * 5 * time.Millisecond
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(drain):
	}
	return errReplayDone
}
