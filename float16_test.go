package personcam

import (
	"encoding/binary"
	"testing"

	"github.com/x448/float16"
)

func TestFloat16ToFloat32(t *testing.T) {

	tests := []struct {
		value float32
	}{
		{0.0},
		{1.0},
		{-1.0},
		{0.5},
		{0.25},
		{100.0},
	}

	for _, tc := range tests {
		bits := float16.Fromfloat32(tc.value).Bits()

		if got := Float16ToFloat32(bits); got != tc.value {
			t.Errorf("Float16ToFloat32(%#04x) = %f, want %f", bits, got, tc.value)
		}
	}
}

func TestDecodeFloat16(t *testing.T) {

	values := []float32{0.0, 1.0, -2.0, 0.75}
	buf := make([]byte, len(values)*2)

	for i, v := range values {
		binary.LittleEndian.PutUint16(buf[i*2:], float16.Fromfloat32(v).Bits())
	}

	dst := make([]float32, len(values))
	n := DecodeFloat16(buf, dst)

	if n != len(values) {
		t.Fatalf("decoded %d values, want %d", n, len(values))
	}

	for i, v := range values {
		if dst[i] != v {
			t.Errorf("dst[%d] = %f, want %f", i, dst[i], v)
		}
	}
}
