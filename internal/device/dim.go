package device

import "math"

// Hardware-style launch geometry limits. The y and z grid extents share the
// 65535 ceiling of the execution substrate; callers that need more coverage
// must restructure their launch, the core does not grid-stride around it.
const (
	MaxGridX        = math.MaxInt32
	MaxGridY        = 65535
	MaxGridZ        = 65535
	MaxBlockThreads = 1024
)

// Dim3 is a three-component extent, used for both grid and block shapes.
type Dim3 struct {
	X, Y, Z int
}

// Dim1 returns a 1-D extent with y and z collapsed to a single lane.
func Dim1(x int) Dim3 {
	return Dim3{X: x, Y: 1, Z: 1}
}

// Count returns the number of positions covered by the extent.
func (d Dim3) Count() int {
	return d.X * d.Y * d.Z
}

func (d Dim3) positive() bool {
	return d.X > 0 && d.Y > 0 && d.Z > 0
}

// LaunchConfig pairs the grid extent with the thread-block shape for one
// kernel launch.
type LaunchConfig struct {
	Grid  Dim3
	Block Dim3
}

// BlockCount returns ceil(total/blockSize), the number of blocks needed to
// cover total work items with the ragged final block included. A non-positive
// block size, a negative total, or a count whose product with blockSize
// overflows is a programming error and panics.
func BlockCount(total, blockSize int) int {
	if blockSize <= 0 {
		panic("device: block size must be positive")
	}
	if total < 0 {
		panic("device: negative work size")
	}
	if total > math.MaxInt-(blockSize-1) {
		panic("device: block count overflows")
	}
	return (total + blockSize - 1) / blockSize
}
