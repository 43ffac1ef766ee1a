package bitops

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRankBitVectorAgainstNaive(t *testing.T) {
	const numBits = 4000
	rv := NewRankBitVector(numBits)
	rng := rand.New(rand.NewSource(42))
	set := make([]bool, numBits)
	for i := 0; i < numBits; i++ {
		if rng.Intn(3) == 0 {
			rv.SetBit(uint64(i))
			set[i] = true
		}
	}
	rv.Build()

	var naive uint64
	for i := 0; i < numBits; i++ {
		if set[i] {
			naive++
		}
		require.Equal(t, naive, rv.Rank(uint64(i)), "rank mismatch at %d", i)
	}
}

func TestRankBitVectorRoundTrip(t *testing.T) {
	rv := NewRankBitVector(1000)
	for i := 0; i < 1000; i += 7 {
		rv.SetBit(uint64(i))
	}
	rv.Build()

	buf := make([]byte, rv.SerializeByteLen())
	n, err := rv.SerializeInto(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)

	got, consumed, err := DeserializeRankBitVector(buf)
	require.NoError(t, err)
	require.Equal(t, n, consumed)
	for i := uint64(0); i < rv.NumBits(); i++ {
		require.Equal(t, rv.Rank(i), got.Rank(i))
	}
}
