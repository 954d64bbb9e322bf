package cache

import (
	"fmt"
	"hash/fnv"
	"strconv"
)

// StringHasher computes the FNV-1a hash of a string key.
func StringHasher(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s)) // fnv.Write never returns an error
	return h.Sum64()
}

// Int64Hasher mixes an int64 key with the splitmix64 finalizer.
func Int64Hasher(i int64) uint64 {
	x := uint64(i)
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

// StringerHasher hashes any key by its String form.
func StringerHasher[K fmt.Stringer](k K) uint64 {
	return StringHasher(k.String())
}

// StringKey is the identity KeyFunc for string keys.
func StringKey(s string) string { return s }

// Int64Key renders an int64 key in base 36.
func Int64Key(i int64) string { return strconv.FormatInt(i, 36) }

// StringerKey renders a key by its String form.
func StringerKey[K fmt.Stringer](k K) string { return k.String() }
