// Package kernels implements the tensor transformations of the stereo
// matching head: cost-volume assembly, per-depth bias broadcast, and
// float/half precision conversion. Each operation is one or more launches
// on a caller-supplied stream; the per-thread index arithmetic is kept in
// pure functions of thread coordinates and shape so it can be tested
// exhaustively on a single worker.
//
// Nothing here allocates or retains buffers: every pointer and descriptor
// is supplied fresh per call and owned by the caller.
package kernels

import (
	"github.com/parallaxml/parallax/internal/device"
	"github.com/parallaxml/parallax/internal/tensor"
)

// Thread-block shapes match the original launch geometry: a 16x16 tile over
// (width, height) for the volume kernels, 256 lanes for the 1-D ones.
const (
	tileEdge      = 16
	flatBlockSize = 256
)

// costVolumeLeftIndex returns the destination offset of element (c,y,x) in
// the left half of disparity slice d. The volume is laid out [D, 2C, H, W]
// row-major, left channels first.
func costVolumeLeftIndex(c, h, w, d, ch, y, x int) int {
	return ((d*2*c+ch)*h+y)*w + x
}

// costVolumeRightIndex is the right-half counterpart: channel ch lands at
// slot C+ch of slice d.
func costVolumeRightIndex(c, h, w, d, ch, y, x int) int {
	return ((d*2*c+c+ch)*h+y)*w + x
}

// rightSourceX maps a destination column to the column of the right image
// it reads after shifting by disparity d. ok is false where the shift runs
// off the left border and the destination is zero-filled.
func rightSourceX(x, d int) (int, bool) {
	if x < d {
		return 0, false
	}
	return x - d, true
}

// ComputeCostVolume assembles the [D, 2C, H, W] cost volume from a stereo
// pair of [C,H,W] feature maps. For every disparity level d the left half
// is an unshifted copy of left and the right half is right shifted d
// pixels toward increasing x, zero-filled where x < d.
//
// Two full-coverage launches are issued: one writing only left halves, one
// writing only right halves. The combined single-pass variant measured
// slower unoptimized and its indexing was never verified against this
// path, so the two-kernel form is the reference. The launches touch
// disjoint destination regions; they share the stream for ordering only.
func ComputeCostVolume(s *device.Stream, left, right []float32, in tensor.Shape, dst []float32, out tensor.Shape) error {
	if in.Rank != 3 || !in.Valid() {
		panic("kernels: cost volume input shape must be rank-3 [C,H,W]")
	}
	if out.Rank != 3 || !out.Valid() {
		panic("kernels: cost volume output shape must be rank-3 [D,H,W]")
	}
	c, h, w := in.Dims[0], in.Dims[1], in.Dims[2]
	d := out.Dims[0]
	if out.Dims[1] != h || out.Dims[2] != w {
		panic("kernels: cost volume spatial extents disagree")
	}
	if len(left) < in.Elems() || len(right) < in.Elems() {
		panic("kernels: feature map buffer too small")
	}
	if len(dst) < 2*c*h*w*d {
		panic("kernels: cost volume buffer too small")
	}

	cfg := device.LaunchConfig{
		Grid:  device.Dim3{X: device.BlockCount(w, tileEdge), Y: device.BlockCount(h, tileEdge), Z: c},
		Block: device.Dim3{X: tileEdge, Y: tileEdge, Z: 1},
	}

	err := s.Launch("cost_volume_left", cfg, func(x, y, ch int) {
		if x >= w || y >= h || ch >= c {
			return
		}
		v := left[(ch*h+y)*w+x]
		for dd := 0; dd < d; dd++ {
			dst[costVolumeLeftIndex(c, h, w, dd, ch, y, x)] = v
		}
	})
	if err != nil {
		return err
	}

	return s.Launch("cost_volume_right", cfg, func(x, y, ch int) {
		if x >= w || y >= h || ch >= c {
			return
		}
		for dd := 0; dd < d; dd++ {
			var v float32
			if sx, ok := rightSourceX(x, dd); ok {
				v = right[(ch*h+y)*w+sx]
			}
			dst[costVolumeRightIndex(c, h, w, dd, ch, y, x)] = v
		}
	})
}
