package kernels

import (
	"github.com/parallaxml/parallax/internal/device"
	"github.com/parallaxml/parallax/internal/tensor"
)

// biasSlot maps a flattened leading index k = n*D + d of the activation
// volume to the bias scalar it receives.
func biasSlot(k, depth int) int {
	return k % depth
}

// AddDepthBias adds one scalar per depth slice across a [N,D,H,W]
// activation volume in place: conv[n,d,y,x] += bias[d]. The bias arrives
// in a rank-5 descriptor whose batch dimension is fixed at 1; multi-sample
// bias batches are unsupported and rejected here.
//
// Each destination element is written by exactly one thread, so the
// read-modify-write needs no atomicity. The grid puts H on y and N*D on z;
// both share the 65535 device ceiling, which is enforced by the launch
// check rather than worked around with grid-striding.
func AddDepthBias(s *device.Stream, bias []float32, biasShape tensor.Shape, conv []float32, convShape tensor.Shape) error {
	if biasShape.Rank != 5 || !biasShape.Valid() {
		panic("kernels: bias shape must be rank-5")
	}
	if biasShape.Dims[0] != 1 {
		panic("kernels: bias batch dimension must be 1")
	}
	if convShape.Rank != 4 || !convShape.Valid() {
		panic("kernels: activation shape must be rank-4 [N,D,H,W]")
	}
	n, d, h, w := convShape.Dims[0], convShape.Dims[1], convShape.Dims[2], convShape.Dims[3]
	if biasShape.Dims[1] != d {
		panic("kernels: bias count must equal activation depth")
	}
	if len(bias) < d {
		panic("kernels: bias buffer too small")
	}
	if len(conv) < convShape.Elems() {
		panic("kernels: activation buffer too small")
	}

	cfg := device.LaunchConfig{
		Grid:  device.Dim3{X: device.BlockCount(w, flatBlockSize), Y: h, Z: n * d},
		Block: device.Dim1(flatBlockSize),
	}
	return s.Launch("depth_bias_add", cfg, func(x, y, k int) {
		if x >= w {
			return
		}
		conv[(k*h+y)*w+x] += bias[biasSlot(k, d)]
	})
}
