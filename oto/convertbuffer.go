package oto

import (
	"encoding/binary"
	"math"
)

// FloatBufferToFloat32LE appends the samples to dst as 32-bit little-endian
// floats, the layout of oto.FormatFloat32LE.
func FloatBufferToFloat32LE(buff []float32, dst []byte) []byte {
	for _, v := range buff {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}
