package encoding

import "encoding/binary"

// Integers are packed little-endian with a fixed width, matching the amount
// packing in uint128.go. Variable length fields must be length-prefixed by
// their writer so that the overall packing stays injective.

func PackUint64(x uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, x)
	return b
}

func UnpackUint64(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}

// PackInt64 packs a signed value in two's complement form. Used for the
// per-participant balance deltas carried by resize states.
func PackInt64(x int64) []byte {
	return PackUint64(uint64(x))
}

func UnpackInt64(b []byte) int64 {
	return int64(UnpackUint64(b))
}

func PackUint32(x uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, x)
	return b
}

func UnpackUint32(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}
