package personcam

import (
	"encoding/binary"

	"github.com/x448/float16"
)

var f16LookupTable [65536]float32

func init() {
	// precompute float16 lookup table for faster conversion to float32
	for i := range f16LookupTable {
		f16 := float16.Frombits(uint16(i))
		f16LookupTable[i] = f16.Float32()
	}
}

// Float16ToFloat32 converts a raw IEEE 754 half precision bit pattern to
// float32 using the precomputed lookup table
func Float16ToFloat32(bits uint16) float32 {
	return f16LookupTable[bits]
}

// DecodeFloat16 converts a little endian buffer of packed float16 values,
// such as a half precision model output tensor, into dst.  dst must have
// room for len(buf)/2 values, the number of values decoded is returned.
func DecodeFloat16(buf []byte, dst []float32) int {

	n := len(buf) / 2

	if n > len(dst) {
		n = len(dst)
	}

	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint16(buf[i*2:])
		dst[i] = f16LookupTable[bits]
	}

	return n
}
