// Package half implements IEEE 754 binary16 conversion. The stereo network
// stores feature maps in half precision on the device; everything here is
// bit-exact so the same input always produces the same rounded output.
package half

import "math"

// Epsilon is the binary16 machine epsilon, 2^-10. Round-tripping an
// arbitrary finite float32 through half precision loses at most this
// relative error (values inside the normal half range).
const Epsilon = 1.0 / 1024.0

// decodeTable maps every binary16 bit pattern to its exact float32 value.
var decodeTable = func() [1 << 16]float32 {
	var tbl [1 << 16]float32
	for i := range tbl {
		tbl[i] = decode(uint16(i))
	}
	return tbl
}()

// FromFloat32 rounds f to the nearest binary16 value (round-to-nearest-even)
// and returns its bit pattern.
func FromFloat32(f float32) uint16 {
	u := math.Float32bits(f)
	sign := uint16(u>>16) & 0x8000
	exp := int(u>>23) & 0xFF
	frac := u & 0x7FFFFF

	if exp == 0xFF {
		if frac != 0 {
			// NaN: keep the top payload bits, force a quiet non-zero mantissa.
			return sign | 0x7C00 | uint16(frac>>13) | 1
		}
		return sign | 0x7C00
	}

	e := exp - 127
	if e > 15 {
		return sign | 0x7C00
	}
	if e < -14 {
		if e < -25 {
			// Too small to round up to the smallest subnormal.
			return sign
		}
		// Subnormal result: round once across the full width being
		// dropped, so the sticky bits below bit 13 still participate.
		frac |= 0x800000
		drop := uint32(-14-e) + 13
		rnd := uint32(1<<(drop-1)) - 1 + ((frac >> drop) & 1)
		return sign | uint16((frac+rnd)>>drop)
	}

	exp16 := uint32(e + 15)
	rnd := uint32(0xFFF + ((frac >> 13) & 1))
	frac += rnd
	if frac&0x800000 != 0 {
		// Rounding carried into the exponent.
		exp16++
		frac = 0
		if exp16 >= 0x1F {
			return sign | 0x7C00
		}
	}
	return sign | uint16(exp16<<10) | uint16(frac>>13)
}

// ToFloat32 widens a binary16 bit pattern to float32. The widening is exact:
// every half value, subnormals included, is representable in float32.
func ToFloat32(h uint16) float32 {
	return decodeTable[h]
}

func decode(h uint16) float32 {
	sign := uint32(h>>15) & 0x1
	exp := uint32(h>>10) & 0x1F
	frac := uint32(h & 0x3FF)

	var f uint32
	switch exp {
	case 0:
		if frac == 0 {
			f = sign << 31
		} else {
			// Normalize the subnormal: shift the leading 1 into place.
			e := uint32(127 - 15 + 1)
			for frac&0x400 == 0 {
				frac <<= 1
				e--
			}
			frac &= 0x3FF
			f = (sign << 31) | (e << 23) | (frac << 13)
		}
	case 0x1F:
		f = (sign << 31) | 0x7F800000 | (frac << 13)
	default:
		f = (sign << 31) | ((exp + 127 - 15) << 23) | (frac << 13)
	}
	return math.Float32frombits(f)
}
