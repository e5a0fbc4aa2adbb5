// Package hash provides the deterministic hashing primitives skipgrid is
// built on.
//
// # Mix64 / Bucket
//
// Bucket maps an (item id, salt) pair onto a bucket index using a fixed
// 64-bit avalanche finalizer (xor-shift/multiply with the constants
// 0xff51afd7ed558ccd and 0xc4ceb9fe1a85ec53). It is the only randomness
// source for per-epoch partition assignment: every worker can compute the
// partition of any id independently, and salting with the epoch reshuffles
// the assignment each epoch. The function is bit-for-bit stable across
// runs, platforms and Go versions — it must never be replaced with
// process-seeded hashing.
//
// # CRC32C
//
// Checkpoint payloads are integrity-checked with CRC32-Castagnoli, which is
// hardware-accelerated on x86 (SSE4.2) and ARM. CRC32C is not
// cryptographically secure; it detects accidental corruption only.
package hash
