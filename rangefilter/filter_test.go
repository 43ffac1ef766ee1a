package rangefilter

import (
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/stretchr/testify/require"

	"github.com/datatrails/go-rangefilter/keyrepr"
)

func TestFilterIntegerPointQuery(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	kr := keyrepr.Uint64Key{}
	keys := []uint64{10, 20, 30, 40}
	f, err := Build(kr, keys, Params{TrieDepthBits: 64, CutoffBytes: 0, BFPrefixLenBits: 0, BitsPerKey: 20})
	require.NoError(t, err)
	for _, k := range keys {
		require.True(t, f.PointQuery(k), "key %d must be found", k)
	}
	require.False(t, f.PointQuery(15))
}

func TestFilterIntegerRangeAcrossLeaves(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	kr := keyrepr.Uint64Key{}
	keys := []uint64{10, 20, 30, 40}
	f, err := Build(kr, keys, Params{TrieDepthBits: 64, CutoffBytes: 0, BFPrefixLenBits: 0, BitsPerKey: 20})
	require.NoError(t, err)
	require.True(t, f.RangeQuery(12, 28)) // covers 20
}

func TestFilterPrefixCollisionNeverFalseNegative(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	kr := keyrepr.Uint64Key{}
	keys := []uint64{0x0000000000000001, 0x0000000000000002}
	f, err := Build(kr, keys, Params{TrieDepthBits: 8, CutoffBytes: 1, BFPrefixLenBits: 0, BitsPerKey: 20})
	require.NoError(t, err)
	require.False(t, f.PointQuery(0xFFFFFFFFFFFFFFFF))
}

func TestFilterStringExact(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	kr := keyrepr.BytesKey{MaxBits: 32}
	keys := [][]byte{[]byte("aaa"), []byte("abc"), []byte("azz")}
	f, err := Build(kr, keys, Params{TrieDepthBits: 24, CutoffBytes: 1, BFPrefixLenBits: 0, BitsPerKey: 20})
	require.NoError(t, err)
	for _, k := range keys {
		require.True(t, f.PointQuery(k))
	}
}

func TestFilterPBFOnly(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	kr := keyrepr.Uint64Key{}
	keys := []uint64{1, 2, 3, 4, 5}
	f, err := Build(kr, keys, Params{TrieDepthBits: 0, BFPrefixLenBits: 32, BitsPerKey: 20})
	require.NoError(t, err)
	for _, k := range keys {
		require.True(t, f.PointQuery(k))
	}
}

func TestFilterSerializeRoundTrip(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	kr := keyrepr.Uint64Key{}
	keys := []uint64{10, 20, 30, 40, 1000, 123456789}
	f, err := Build(kr, keys, Params{TrieDepthBits: 64, CutoffBytes: 1, BFPrefixLenBits: 16, BitsPerKey: 20})
	require.NoError(t, err)

	buf := make([]byte, f.SerializeByteLen())
	n, err := f.SerializeInto(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)

	got, read, err := Deserialize(kr, buf)
	require.NoError(t, err)
	require.Equal(t, n, read)
	for _, k := range keys {
		require.True(t, got.PointQuery(k))
	}
}

func TestValidateParamsRejectsBadCutoff(t *testing.T) {
	err := ValidateParams(Params{TrieDepthBits: 8, CutoffBytes: 2}, 64)
	require.ErrorIs(t, err, ErrInvalidCutoff)
}
