package half

import (
	"math"
	"testing"
)

func TestExactValuesRoundTrip(t *testing.T) {
	vals := []float32{0, float32(math.Copysign(0, -1)), 1, -1, 1.5, -2.0, 0.5, 0.25, 65504, -65504, 0.000060975552}
	for _, v := range vals {
		h := FromFloat32(v)
		got := ToFloat32(h)
		if got != v {
			t.Fatalf("round trip %v: got %v (bits 0x%04x)", v, got, h)
		}
	}
}

func TestNegativeZeroKeepsSign(t *testing.T) {
	h := FromFloat32(float32(math.Copysign(0, -1)))
	if h != 0x8000 {
		t.Fatalf("-0 bits: got 0x%04x want 0x8000", h)
	}
}

func TestRoundToNearestEven(t *testing.T) {
	// 1 + 2^-11 sits exactly between 1.0 and the next half value; ties go
	// to the even mantissa, which is 1.0 here.
	mid := float32(1.0 + 1.0/2048.0)
	if got := ToFloat32(FromFloat32(mid)); got != 1.0 {
		t.Fatalf("tie at %v rounded to %v, want 1", mid, got)
	}
	// 1 + 3*2^-11 ties upward to 1 + 2^-9 (even mantissa).
	mid = float32(1.0 + 3.0/2048.0)
	want := float32(1.0 + 2.0/1024.0)
	if got := ToFloat32(FromFloat32(mid)); got != want {
		t.Fatalf("tie at %v rounded to %v, want %v", mid, got, want)
	}
}

func TestOverflowToInf(t *testing.T) {
	for _, v := range []float32{65520, 1e9, float32(math.Inf(1))} {
		h := FromFloat32(v)
		if got := ToFloat32(h); !math.IsInf(float64(got), 1) {
			t.Fatalf("%v: got %v want +Inf", v, got)
		}
	}
	if got := ToFloat32(FromFloat32(float32(math.Inf(-1)))); !math.IsInf(float64(got), -1) {
		t.Fatalf("-Inf widened to %v", got)
	}
}

func TestNaNSurvives(t *testing.T) {
	h := FromFloat32(float32(math.NaN()))
	if got := ToFloat32(h); !math.IsNaN(float64(got)) {
		t.Fatalf("NaN round trip produced %v", got)
	}
}

func TestSubnormalRange(t *testing.T) {
	// Smallest positive half subnormal is 2^-24.
	tiny := float32(math.Ldexp(1, -24))
	if got := ToFloat32(FromFloat32(tiny)); got != tiny {
		t.Fatalf("2^-24: got %v", got)
	}
	// Below half the smallest subnormal everything rounds to zero.
	below := float32(math.Ldexp(1, -26))
	if got := ToFloat32(FromFloat32(below)); got != 0 {
		t.Fatalf("2^-26: got %v want 0", got)
	}
}

func TestSubnormalRounding(t *testing.T) {
	// Rounding in the subnormal range must consider every dropped bit,
	// including the ones below the top 10. Ties go to the even mantissa.
	cases := []struct {
		in   float32
		want uint16
	}{
		{float32(math.Ldexp(1.5, -24)), 0x0002},  // tie between 1 and 2 ulp, even wins
		{float32(math.Ldexp(1.75, -24)), 0x0002}, // above the tie, rounds up
		{float32(math.Ldexp(1.25, -24)), 0x0001}, // below the tie, rounds down
		{float32(math.Ldexp(2.5, -24)), 0x0002},  // tie between 2 and 3 ulp, even wins
		{float32(math.Ldexp(3.5, -24)), 0x0004},  // tie between 3 and 4 ulp, even wins
		{float32(math.Ldexp(1, -25)), 0x0000},    // tie between 0 and 1 ulp, even wins
		{float32(math.Ldexp(1.5, -25)), 0x0001},  // rounds up to the smallest subnormal
		{float32(math.Ldexp(1023, -24)), 0x03FF}, // largest subnormal, exact
	}
	for _, tc := range cases {
		if got := FromFloat32(tc.in); got != tc.want {
			t.Fatalf("%v: got 0x%04x want 0x%04x", tc.in, got, tc.want)
		}
	}
}

func TestRoundTripErrorBounded(t *testing.T) {
	vals := []float32{0.1, 0.2, 1.0 / 3.0, 3.14159, 1234.5678, -0.007}
	for _, v := range vals {
		got := ToFloat32(FromFloat32(v))
		rel := math.Abs(float64(got-v)) / math.Abs(float64(v))
		if rel > Epsilon {
			t.Fatalf("%v: relative error %v exceeds epsilon", v, rel)
		}
		// Determinism: the same input rounds identically every call.
		if again := ToFloat32(FromFloat32(v)); again != got {
			t.Fatalf("%v: conversion not deterministic (%v vs %v)", v, got, again)
		}
	}
}

func TestDecodeMatchesTable(t *testing.T) {
	for _, h := range []uint16{0x0000, 0x0001, 0x03FF, 0x0400, 0x3C00, 0x7BFF, 0x7C00, 0x8000, 0xFC00} {
		if decode(h) != ToFloat32(h) && !(math.IsNaN(float64(decode(h))) && math.IsNaN(float64(ToFloat32(h)))) {
			t.Fatalf("table mismatch at 0x%04x", h)
		}
	}
}

func BenchmarkFromFloat32(b *testing.B) {
	x := float32(1.2345)
	var h uint16
	for i := 0; i < b.N; i++ {
		h = FromFloat32(x)
	}
	_ = h
}
