package prefixbloom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBloomIntInsertAndQuery(t *testing.T) {
	b := New(4096, 24, 100, true)
	keys := []uint64{1, 2, 3, 100, 1 << 40}
	for _, k := range keys {
		b.InsertInt(k)
	}
	for _, k := range keys {
		require.True(t, b.MayContainInt(k))
	}
}

func TestBloomIntRangeQueryFindsInsertedPrefix(t *testing.T) {
	b := New(4096, 16, 10, true)
	b.InsertInt(0x1234000000000000)
	require.True(t, b.RangeQueryInt(0x1230000000000000, 0x1240000000000000))
}

func TestBloomStringInsertAndQuery(t *testing.T) {
	b := New(4096, 24, 50, false)
	keys := [][]byte{[]byte("alpha"), []byte("beta"), []byte("gamma")}
	for _, k := range keys {
		b.InsertString(k)
	}
	for _, k := range keys {
		require.True(t, b.MayContainString(k))
	}
}

func TestCountPrefixes(t *testing.T) {
	a := []byte{0x10, 0x00}
	b := []byte{0x10, 0x05}
	n, ok := CountPrefixes(a, b, 16)
	require.True(t, ok)
	require.Equal(t, uint64(6), n)
}

func TestCountPrefixesOverflowSentinel(t *testing.T) {
	a := make([]byte, 8)
	b := make([]byte, 8)
	for i := range b {
		b[i] = 0xFF
	}
	_, ok := CountPrefixes(a, b, 64)
	require.False(t, ok)
}

func TestBloomSerializeRoundTrip(t *testing.T) {
	b := New(2048, 20, 30, true)
	b.InsertInt(555)
	buf := make([]byte, b.SerializeByteLen())
	n, err := b.SerializeInto(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)

	got, read, err := DeserializeBloom(buf)
	require.NoError(t, err)
	require.Equal(t, n, read)
	require.True(t, got.MayContainInt(555))
	require.Equal(t, b.NBits, got.NBits)
	require.Equal(t, b.K, got.K)
}

func TestBloomSerializeRoundTripString(t *testing.T) {
	b := New(2048, 24, 30, false)
	b.InsertString([]byte("needle"))
	buf := make([]byte, b.SerializeByteLen())
	n, err := b.SerializeInto(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)

	got, read, err := DeserializeBloom(buf)
	require.NoError(t, err)
	require.Equal(t, n, read)
	require.True(t, got.MayContainString([]byte("needle")))
}

func TestChooseKBounds(t *testing.T) {
	require.Equal(t, 1, ChooseK(10, 1000))
	require.LessOrEqual(t, ChooseK(1<<30, 1), 32)
}
