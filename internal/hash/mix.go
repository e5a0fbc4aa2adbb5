package hash

// Avalanche constants of the 64-bit finalizer.
const (
	mixC1 = 0xff51afd7ed558ccd
	mixC2 = 0xc4ceb9fe1a85ec53
)

// Mix64 applies the fixed xor-shift/multiply avalanche sequence to x.
// Every input bit affects every output bit.
func Mix64(x uint64) uint64 {
	x ^= x >> 33
	x *= mixC1
	x ^= x >> 33
	x *= mixC2
	x ^= x >> 33
	return x
}

// Bucket maps (id, salt) deterministically onto [0, n). n must be > 0.
//
// The salt is pre-multiplied by a mix constant before combining so that
// (id, salt) and (id+1, salt-1) do not alias ahead of the avalanche.
// The sign bit is cleared instead of taking an absolute value, which
// stays well-defined for the minimum signed value.
func Bucket(id, salt int64, n int) int {
	h := Mix64(uint64(id) ^ uint64(salt)*mixC1)
	h &= 1<<63 - 1
	return int(h % uint64(n))
}
