package hash

import "github.com/cespare/xxhash/v2"

// HashBytes is the default 32-bit hash used to route keys through the
// header/directory/bucket hierarchy: it truncates a 64-bit xxhash
// digest, a non-cryptographic hash chosen for speed over uniform-key
// workloads, the same tradeoff this retrieval pack's other storage
// engines reach for when they need to shard or bucket by key.
func HashBytes(b []byte) uint32 {
	return uint32(xxhash.Sum64(b))
}

// NewHasherFor builds a Hash func(K) uint32 for any key type by first
// encoding the key through codec and then hashing the resulting bytes.
func NewHasherFor[K any](codec Codec[K]) func(K) uint32 {
	return func(k K) uint32 {
		buf := make([]byte, codec.Size)
		codec.Put(buf, k)
		return HashBytes(buf)
	}
}
