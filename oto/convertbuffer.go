package oto

import (
	"encoding/binary"
	"math"

	"github.com/skyduel/beatsynth"
)

// AppendFloat32LE appends the frames to dst as interleaved 32-bit float
// little-endian samples.
func AppendFloat32LE(dst []byte, buf beatsynth.AudioBuffer) []byte {
	for _, frame := range buf {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(frame[0]))
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(frame[1]))
	}
	return dst
}

// Append16BitLE appends the frames to dst as interleaved 16-bit signed
// little-endian samples, clipping to [-1, 1].
func Append16BitLE(dst []byte, buf beatsynth.AudioBuffer) []byte {
	for _, frame := range buf {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(toInt16(frame[0])))
		dst = binary.LittleEndian.AppendUint16(dst, uint16(toInt16(frame[1])))
	}
	return dst
}

func toInt16(v float32) int16 {
	switch {
	case v < -1:
		return -math.MaxInt16
	case v > 1:
		return math.MaxInt16
	case v != v:
		return 0
	}
	return int16(v * math.MaxInt16)
}
