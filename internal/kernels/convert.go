package kernels

import (
	"github.com/parallaxml/parallax/internal/device"
	"github.com/parallaxml/parallax/internal/half"
)

// ConvertFloatToHalf narrows src into dst with IEEE round-to-nearest-even,
// one thread per element, threads past the extent are no-ops. Elements
// carry no cross dependency, so any execution order is valid.
func ConvertFloatToHalf(s *device.Stream, src []float32, dst []uint16) error {
	n := len(src)
	if len(dst) < n {
		panic("kernels: half destination too small")
	}
	if n == 0 {
		return nil
	}
	cfg := device.LaunchConfig{
		Grid:  device.Dim1(device.BlockCount(n, flatBlockSize)),
		Block: device.Dim1(flatBlockSize),
	}
	return s.Launch("float_to_half", cfg, func(i, _, _ int) {
		if i >= n {
			return
		}
		dst[i] = half.FromFloat32(src[i])
	})
}

// ConvertHalfToFloat widens src into dst exactly; every binary16 value is
// representable in float32, so no rounding occurs.
func ConvertHalfToFloat(s *device.Stream, src []uint16, dst []float32) error {
	n := len(src)
	if len(dst) < n {
		panic("kernels: float destination too small")
	}
	if n == 0 {
		return nil
	}
	cfg := device.LaunchConfig{
		Grid:  device.Dim1(device.BlockCount(n, flatBlockSize)),
		Block: device.Dim1(flatBlockSize),
	}
	return s.Launch("half_to_float", cfg, func(i, _, _ int) {
		if i >= n {
			return
		}
		dst[i] = half.ToFloat32(src[i])
	})
}
