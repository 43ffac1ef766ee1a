package bitops

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectBitVectorAgainstNaive(t *testing.T) {
	const numBits = 4000
	sv := NewSelectBitVector(numBits)
	rng := rand.New(rand.NewSource(7))
	var positions []uint64
	for i := 0; i < numBits; i++ {
		if rng.Intn(5) == 0 {
			sv.SetBit(uint64(i))
			positions = append(positions, uint64(i))
		}
	}
	sv.Build()

	for k, pos := range positions {
		require.Equal(t, int64(pos), sv.Select(uint64(k+1)), "select(%d)", k+1)
	}
	require.Equal(t, int64(-1), sv.Select(uint64(len(positions)+1)))
	require.Equal(t, int64(-1), sv.Select(0))
}
