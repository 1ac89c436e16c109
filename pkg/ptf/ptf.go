// Package ptf implements the Parallax Tensor File format.
//
// PTF is a single-tensor, memory-mappable container used to move feature
// maps and activation volumes in and out of the stereo pipeline. It stores
// a dtype, a row-major shape, and the raw little-endian payload; it never
// implies how the tensor is used.
package ptf

import (
	"encoding/binary"
	"errors"

	"github.com/parallaxml/parallax/internal/tensor"
)

const (
	// Magic is the file magic for all PTF containers, encoded as "PTF\0".
	Magic = "PTF\x00"

	// CurrentMajor changes only on breaking format changes.
	CurrentMajor uint16 = 1
)

// DType identifies the element encoding of the payload.
type DType uint16

const (
	DTypeF32 DType = 1
	DTypeF16 DType = 2
)

// ElemSize returns the payload bytes per element, or 0 for unknown dtypes.
func (d DType) ElemSize() int {
	switch d {
	case DTypeF32:
		return 4
	case DTypeF16:
		return 2
	default:
		return 0
	}
}

var (
	ErrCorruptFile      = errors.New("ptf: corrupt file")
	ErrInvalidMagic     = errors.New("ptf: invalid magic")
	ErrUnsupportedMajor = errors.New("ptf: unsupported major version")
	ErrUnsupportedDType = errors.New("ptf: unsupported dtype")
)

// header layout: magic[4] major[2] dtype[2] rank[4] pad[4] dims[rank]×8
const fixedHeaderSize = 16

func headerSize(rank int) int {
	return fixedHeaderSize + rank*8
}

func encodeHeader(dtype DType, shape tensor.Shape) []byte {
	buf := make([]byte, headerSize(shape.Rank))
	copy(buf[0:4], Magic)
	binary.LittleEndian.PutUint16(buf[4:6], CurrentMajor)
	binary.LittleEndian.PutUint16(buf[6:8], uint16(dtype))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(shape.Rank))
	for i := 0; i < shape.Rank; i++ {
		binary.LittleEndian.PutUint64(buf[fixedHeaderSize+i*8:], uint64(shape.Dims[i]))
	}
	return buf
}

func decodeHeader(data []byte) (DType, tensor.Shape, int, error) {
	if len(data) < fixedHeaderSize {
		return 0, tensor.Shape{}, 0, ErrCorruptFile
	}
	if string(data[0:4]) != Magic {
		return 0, tensor.Shape{}, 0, ErrInvalidMagic
	}
	if binary.LittleEndian.Uint16(data[4:6]) != CurrentMajor {
		return 0, tensor.Shape{}, 0, ErrUnsupportedMajor
	}
	dtype := DType(binary.LittleEndian.Uint16(data[6:8]))
	if dtype.ElemSize() == 0 {
		return 0, tensor.Shape{}, 0, ErrUnsupportedDType
	}
	rank := int(binary.LittleEndian.Uint32(data[8:12]))
	if rank < 1 || rank > tensor.MaxRank {
		return 0, tensor.Shape{}, 0, ErrCorruptFile
	}
	if len(data) < headerSize(rank) {
		return 0, tensor.Shape{}, 0, ErrCorruptFile
	}
	shape := tensor.Shape{Rank: rank}
	for i := 0; i < rank; i++ {
		d := binary.LittleEndian.Uint64(data[fixedHeaderSize+i*8:])
		if d == 0 || d > uint64(int(^uint(0)>>1)) {
			return 0, tensor.Shape{}, 0, ErrCorruptFile
		}
		shape.Dims[i] = int(d)
	}
	if !shape.Valid() {
		return 0, tensor.Shape{}, 0, ErrCorruptFile
	}
	return dtype, shape, headerSize(rank), nil
}
