package colorize

import (
	"image"
	"image/color"
	"sort"
)

// Frame is one timestamped camera image.
type Frame struct {
	Timestamp float64
	Image     image.Image
}

// Buffer holds camera frames ordered by timestamp and matches a query time
// against the nearest one within a tolerance.
type Buffer struct {
	frames      []Frame
	maxTimeDiff float64
}

// NewBuffer constructs an empty buffer gated by maxTimeDiff seconds.
func NewBuffer(maxTimeDiff float64) *Buffer {
	return &Buffer{maxTimeDiff: maxTimeDiff}
}

// Push appends a frame, keeping the buffer sorted by timestamp.
func (b *Buffer) Push(f Frame) {
	i := sort.Search(len(b.frames), func(i int) bool { return b.frames[i].Timestamp >= f.Timestamp })
	b.frames = append(b.frames, Frame{})
	copy(b.frames[i+1:], b.frames[i:])
	b.frames[i] = f
}

// Nearest returns the frame whose timestamp is closest to t. On success the
// matched frame and everything older are evicted, so a frame is consumed at
// most once.
func (b *Buffer) Nearest(t float64) (Frame, bool) {
	if len(b.frames) == 0 {
		return Frame{}, false
	}
	i := sort.Search(len(b.frames), func(i int) bool { return b.frames[i].Timestamp >= t })

	best := -1
	bestDiff := b.maxTimeDiff
	for _, cand := range []int{i - 1, i} {
		if cand < 0 || cand >= len(b.frames) {
			continue
		}
		diff := abs(b.frames[cand].Timestamp - t)
		if diff <= bestDiff {
			bestDiff = diff
			best = cand
		}
	}
	if best < 0 {
		return Frame{}, false
	}
	frame := b.frames[best]
	b.frames = b.frames[best+1:]
	return frame, true
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// SampleColor reads back the pixel at (px, py). A decoded image.Image's
// Color.RGBA() returns channels in canonical R,G,B,A order regardless of the
// source pixel format, so no channel reordering is needed even for sources
// decoded from BGR byte layouts.
func SampleColor(img image.Image, px, py int) color.RGBA {
	r, g, b, a := img.At(px, py).RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}
