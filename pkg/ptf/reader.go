package ptf

import (
	"io"
	"math"
	"os"

	"golang.org/x/sys/unix"

	"github.com/parallaxml/parallax/internal/half"
	"github.com/parallaxml/parallax/internal/tensor"
)

// File is an opened tensor container. Data is the raw payload, valid until
// Close when the file is memory-mapped.
type File struct {
	DType DType
	Shape tensor.Shape
	Data  []byte

	backing []byte
	mmapped bool
}

// Open maps a PTF file read-only and validates its structure. If mmap is
// unavailable it falls back to ReadAt-based loading. The returned file must
// be closed to release any mapping.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := stat.Size()
	if size64 < fixedHeaderSize {
		return nil, ErrCorruptFile
	}
	if size64 > int64(int(^uint(0)>>1)) {
		// cannot index this file safely as []byte on this architecture.
		return nil, ErrCorruptFile
	}
	size := int(size64)

	// Prefer mmap where available for a zero-copy payload view.
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		pf, parseErr := parseFileData(data, true)
		if parseErr != nil {
			_ = unix.Munmap(data)
			return nil, parseErr
		}
		return pf, nil
	}

	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return parseFileData(data, false)
}

// OpenReaderAt loads and validates a PTF from a random-access reader
// without mmap.
func OpenReaderAt(r io.ReaderAt, size int64) (*File, error) {
	if size < fixedHeaderSize || size > int64(int(^uint(0)>>1)) {
		return nil, ErrCorruptFile
	}
	data, err := readAllAt(r, int(size))
	if err != nil {
		return nil, err
	}
	return parseFileData(data, false)
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

func parseFileData(data []byte, mmapped bool) (*File, error) {
	dtype, shape, hdrSize, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}
	want := shape.Elems() * dtype.ElemSize()
	if len(data)-hdrSize != want {
		return nil, ErrCorruptFile
	}
	return &File{
		DType:   dtype,
		Shape:   shape,
		Data:    data[hdrSize:],
		backing: data,
		mmapped: mmapped,
	}, nil
}

// Float32s decodes an f32 payload into a fresh slice.
func (f *File) Float32s() ([]float32, error) {
	if f.DType != DTypeF32 {
		return nil, ErrUnsupportedDType
	}
	out := make([]float32, f.Shape.Elems())
	for i := range out {
		out[i] = math.Float32frombits(u32le(f.Data, i*4))
	}
	return out, nil
}

// Halves decodes an f16 payload into its raw bit patterns.
func (f *File) Halves() ([]uint16, error) {
	if f.DType != DTypeF16 {
		return nil, ErrUnsupportedDType
	}
	out := make([]uint16, f.Shape.Elems())
	for i := range out {
		out[i] = u16le(f.Data, i*2)
	}
	return out, nil
}

// WidenedFloat32s decodes either payload kind into float32, widening half
// elements exactly.
func (f *File) WidenedFloat32s() ([]float32, error) {
	switch f.DType {
	case DTypeF32:
		return f.Float32s()
	case DTypeF16:
		bits, err := f.Halves()
		if err != nil {
			return nil, err
		}
		out := make([]float32, len(bits))
		for i, h := range bits {
			out[i] = half.ToFloat32(h)
		}
		return out, nil
	default:
		return nil, ErrUnsupportedDType
	}
}

// Close releases file resources and any mmap backing.
func (f *File) Close() error {
	if f == nil || f.backing == nil {
		return nil
	}
	var err error
	if f.mmapped {
		err = unix.Munmap(f.backing)
	}
	f.Data = nil
	f.backing = nil
	f.mmapped = false
	return err
}

func u16le(b []byte, off int) uint16 {
	_ = b[off+1]
	return uint16(b[off]) | uint16(b[off+1])<<8
}

func u32le(b []byte, off int) uint32 {
	_ = b[off+3]
	return uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
}
