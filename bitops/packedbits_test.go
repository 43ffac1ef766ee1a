package bitops

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadWriteBitsRoundTrip(t *testing.T) {
	words := make([]uint64, 8)
	cases := []struct {
		start uint64
		n     uint32
		hi    uint64
		lo    uint64
	}{
		{0, 8, 0xAB << 56, 0},
		{8, 16, 0xBEEF << 48, 0},
		{100, 32, 0xDEADBEEF << 32, 0},
		{7, 1, 1 << 63, 0},
		{64, 70, 0x3 << 62, 0x1 << 58},
	}
	for _, c := range cases {
		WriteBits(words, c.start, c.n, c.hi, c.lo)
		gotHi, gotLo := ReadBits(words, c.start, c.n)
		require.Equal(t, c.hi, gotHi, "hi mismatch start=%d n=%d", c.start, c.n)
		require.Equal(t, c.lo, gotLo, "lo mismatch start=%d n=%d", c.start, c.n)
	}
}

func TestReadWriteBitsByteAligned(t *testing.T) {
	words := make([]uint64, 2)
	// Write the byte 0x5A at bit offset 8 (second byte of the vector).
	WriteBits(words, 8, 8, 0x5A<<56, 0)
	hi, lo := ReadBits(words, 8, 8)
	require.Equal(t, uint64(0x5A)<<56, hi)
	require.Equal(t, uint64(0), lo)
}
