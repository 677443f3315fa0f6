// Package hash implements a disk-backed extendible hash table layered
// entirely on top of buffer.PoolManager page guards: a header page
// points at up to 2^headerDepth directory pages, each directory page
// points at up to 512 bucket pages, and each bucket page holds a
// packed, fixed-width array of (key, value) pairs.
package hash

import "encoding/binary"

// Codec describes how to pack a fixed-width value of type T into a
// byte buffer and back. The hash table is parameterised over a key
// codec and a value codec rather than relying on reflection or virtual
// dispatch — the concrete types are known at construction.
type Codec[T any] struct {
	Size int
	Put  func(dst []byte, v T)
	Get  func(src []byte) T
}

// Uint64Codec packs a uint64 in 8 bytes, little-endian.
func Uint64Codec() Codec[uint64] {
	return Codec[uint64]{
		Size: 8,
		Put:  func(dst []byte, v uint64) { binary.LittleEndian.PutUint64(dst, v) },
		Get:  func(src []byte) uint64 { return binary.LittleEndian.Uint64(src) },
	}
}

// Int64Codec packs an int64 in 8 bytes, little-endian.
func Int64Codec() Codec[int64] {
	u := Uint64Codec()
	return Codec[int64]{
		Size: 8,
		Put:  func(dst []byte, v int64) { u.Put(dst, uint64(v)) },
		Get:  func(src []byte) int64 { return int64(u.Get(src)) },
	}
}

// Uint32Codec packs a uint32 in 4 bytes, little-endian.
func Uint32Codec() Codec[uint32] {
	return Codec[uint32]{
		Size: 4,
		Put:  func(dst []byte, v uint32) { binary.LittleEndian.PutUint32(dst, v) },
		Get:  func(src []byte) uint32 { return binary.LittleEndian.Uint32(src) },
	}
}

// FixedStringCodec packs a string into exactly n bytes, truncating or
// zero-padding on the right. Strings containing NUL are not round-trip
// safe past the first NUL, a documented limitation of fixed-width
// on-page keys.
func FixedStringCodec(n int) Codec[string] {
	return Codec[string]{
		Size: n,
		Put: func(dst []byte, v string) {
			for i := range dst {
				dst[i] = 0
			}
			copy(dst, v)
		},
		Get: func(src []byte) string {
			end := 0
			for end < len(src) && src[end] != 0 {
				end++
			}
			return string(src[:end])
		},
	}
}
