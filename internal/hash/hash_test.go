package hash

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBucketDeterministic(t *testing.T) {
	for _, tc := range []struct {
		id   int64
		salt int64
		n    int
	}{
		{0, 0, 1},
		{1, 0, 7},
		{-1, 3, 16},
		{1 << 62, 1 << 31, 1000},
		{-9223372036854775808, -1, 13},
	} {
		a := Bucket(tc.id, tc.salt, tc.n)
		b := Bucket(tc.id, tc.salt, tc.n)
		require.Equal(t, a, b)
		require.GreaterOrEqual(t, a, 0)
		require.Less(t, a, tc.n)
	}
}

func TestBucketRange(t *testing.T) {
	for n := 1; n <= 64; n++ {
		for id := int64(-500); id < 500; id += 37 {
			for salt := int64(0); salt < 5; salt++ {
				v := Bucket(id, salt, n)
				require.GreaterOrEqual(t, v, 0)
				require.Less(t, v, n)
			}
		}
	}
}

func TestBucketSaltChangesAssignment(t *testing.T) {
	// Salting with a different epoch must reshuffle at least some ids.
	moved := 0
	for id := int64(0); id < 1000; id++ {
		if Bucket(id, 0, 16) != Bucket(id, 1, 16) {
			moved++
		}
	}
	require.Greater(t, moved, 500)
}

func TestMix64Avalanche(t *testing.T) {
	// Flipping one input bit flips roughly half the output bits.
	base := Mix64(0x0123456789abcdef)
	flipped := Mix64(0x0123456789abcdee)
	diff := base ^ flipped
	bits := 0
	for diff != 0 {
		bits += int(diff & 1)
		diff >>= 1
	}
	require.Greater(t, bits, 16)
	require.Less(t, bits, 48)
}

func TestCRC32C(t *testing.T) {
	data := []byte("skipgrid checkpoint payload")
	sum := CRC32C(data)

	h := NewCRC32C()
	h.Write(data[:10])
	h.Write(data[10:])
	require.Equal(t, sum, h.Sum32())
}

func TestChecksumWriterReader(t *testing.T) {
	var buf bytes.Buffer
	cw := NewChecksumWriter(&buf)
	data := []byte("some record bytes")
	_, err := cw.Write(data)
	require.NoError(t, err)
	require.Equal(t, CRC32C(data), cw.Sum())

	cr := NewChecksumReader(&buf)
	out := make([]byte, len(data))
	n, err := cr.Read(out)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, CRC32C(data), cr.Sum())
}
