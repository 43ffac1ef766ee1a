package modeler

import (
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/stretchr/testify/require"

	"github.com/datatrails/go-rangefilter/keyrepr"
	"github.com/datatrails/go-rangefilter/prefixbloom"
)

func TestModelIntegerResultWithinKeyWidth(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	kr := keyrepr.Uint64Key{}
	keys := make([]uint64, 0, 256)
	for i := uint64(0); i < 256; i++ {
		keys = append(keys, i<<48)
	}
	samples := []SampleQuery[uint64]{
		{Left: 5<<48 + 1, Right: 6 << 48},
		{Left: 100<<48 + 1, Right: 101 << 48},
	}
	res := Model(kr, Input[uint64]{Keys: keys, Samples: samples, BitsPerKey: 20})
	require.LessOrEqual(t, res.TrieDepthBits, uint32(64))
	require.LessOrEqual(t, res.BFPrefixLenBits, uint32(64))
}

func TestModelNoSamplesReturnsSafeDefault(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	kr := keyrepr.Uint64Key{}
	keys := []uint64{1, 2, 3}
	res := Model(kr, Input[uint64]{Keys: keys, BitsPerKey: 10})
	require.Equal(t, uint32(0), res.TrieDepthBits)
	require.Equal(t, uint32(32), res.BFPrefixLenBits)
}

func TestModelStringKeys(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	kr := keyrepr.BytesKey{MaxBits: 64}
	keys := [][]byte{[]byte("alpha"), []byte("bravo"), []byte("charlie"), []byte("delta")}
	samples := []SampleQuery[[]byte]{
		{Left: []byte("alphaz"), Right: []byte("braco")},
	}
	res := Model(kr, Input[[]byte]{Keys: keys, Samples: samples, BitsPerKey: 16, MaxKeyBits: 64})
	require.LessOrEqual(t, res.TrieDepthBits, uint32(64))
}

func TestCountUniquePrefixes(t *testing.T) {
	kr := keyrepr.Uint64Key{}
	keys := []uint64{0x0000000000000000, 0x0000000000000001, 0xFF00000000000000}
	counts := countUniquePrefixes(kr, keys, 8)
	require.Equal(t, uint64(2), counts[8]) // top byte: 0x00, 0x00, 0xFF -> two distinct
}

func TestEstimateFPRWiderBitsetLowersRate(t *testing.T) {
	require.Greater(t, fprAt(64, 100), fprAt(1024, 100))
}

func fprAt(m, n uint64) float64 {
	return prefixbloom.EstimateFPR(m, n, 4)
}
