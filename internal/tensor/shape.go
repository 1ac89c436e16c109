// Package tensor holds the fixed-rank shape descriptors shared by the
// kernel and plugin layers. All buffers are dense row-major and owned by
// the caller; a Shape only describes extents, it never allocates.
package tensor

import "fmt"

// MaxRank is the highest descriptor rank the core accepts. Rank 5 exists
// only for the bias descriptor, whose leading batch dimension is fixed at 1.
const MaxRank = 5

// Shape is a dense row-major extent descriptor. Dims beyond Rank are zero
// and must not be read.
type Shape struct {
	Rank int
	Dims [MaxRank]int
}

// Shape3 describes a [C,H,W] feature map.
func Shape3(c, h, w int) Shape {
	return Shape{Rank: 3, Dims: [MaxRank]int{c, h, w}}
}

// Shape4 describes a [N,D,H,W] activation volume.
func Shape4(n, d, h, w int) Shape {
	return Shape{Rank: 4, Dims: [MaxRank]int{n, d, h, w}}
}

// Shape5 describes the rank-5 bias descriptor [1,D,1,1,1] used by the
// depth-bias operation. Batch is always 1.
func Shape5(d int) Shape {
	return Shape{Rank: 5, Dims: [MaxRank]int{1, d, 1, 1, 1}}
}

// Elems returns the total element count, the product of all extents.
func (s Shape) Elems() int {
	if s.Rank == 0 {
		return 0
	}
	n := 1
	for i := 0; i < s.Rank; i++ {
		n *= s.Dims[i]
	}
	return n
}

// Valid reports whether every extent up to Rank is positive.
func (s Shape) Valid() bool {
	if s.Rank < 1 || s.Rank > MaxRank {
		return false
	}
	for i := 0; i < s.Rank; i++ {
		if s.Dims[i] <= 0 {
			return false
		}
	}
	return true
}

// Strides returns the row-major stride of each dimension, innermost last.
func (s Shape) Strides() [MaxRank]int {
	var st [MaxRank]int
	stride := 1
	for i := s.Rank - 1; i >= 0; i-- {
		st[i] = stride
		stride *= s.Dims[i]
	}
	return st
}

func (s Shape) String() string {
	switch s.Rank {
	case 3:
		return fmt.Sprintf("[%d %d %d]", s.Dims[0], s.Dims[1], s.Dims[2])
	case 4:
		return fmt.Sprintf("[%d %d %d %d]", s.Dims[0], s.Dims[1], s.Dims[2], s.Dims[3])
	case 5:
		return fmt.Sprintf("[%d %d %d %d %d]", s.Dims[0], s.Dims[1], s.Dims[2], s.Dims[3], s.Dims[4])
	default:
		return fmt.Sprintf("rank-%d%v", s.Rank, s.Dims[:max(s.Rank, 0)])
	}
}
