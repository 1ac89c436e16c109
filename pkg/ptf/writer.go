package ptf

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/parallaxml/parallax/internal/tensor"
)

// WriteFloat32 writes data as an f32 container at path.
func WriteFloat32(path string, shape tensor.Shape, data []float32) error {
	if len(data) != shape.Elems() {
		return fmt.Errorf("%w: payload has %d elements, shape %v wants %d", ErrCorruptFile, len(data), shape, shape.Elems())
	}
	payload := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(v))
	}
	return writeFile(path, DTypeF32, shape, payload)
}

// WriteHalf writes half-precision bit patterns as an f16 container at path.
func WriteHalf(path string, shape tensor.Shape, bits []uint16) error {
	if len(bits) != shape.Elems() {
		return fmt.Errorf("%w: payload has %d elements, shape %v wants %d", ErrCorruptFile, len(bits), shape, shape.Elems())
	}
	payload := make([]byte, len(bits)*2)
	for i, v := range bits {
		binary.LittleEndian.PutUint16(payload[i*2:], v)
	}
	return writeFile(path, DTypeF16, shape, payload)
}

func writeFile(path string, dtype DType, shape tensor.Shape, payload []byte) error {
	if !shape.Valid() {
		return fmt.Errorf("%w: invalid shape %v", ErrCorruptFile, shape)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if _, err := w.Write(encodeHeader(dtype, shape)); err != nil {
		_ = f.Close()
		return err
	}
	if _, err := w.Write(payload); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
