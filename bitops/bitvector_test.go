package bitops

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBitVectorSetReadBit(t *testing.T) {
	bv := NewBitVector(130)
	bv.SetBit(0)
	bv.SetBit(63)
	bv.SetBit(64)
	bv.SetBit(129)

	require.True(t, bv.ReadBit(0))
	require.True(t, bv.ReadBit(63))
	require.True(t, bv.ReadBit(64))
	require.True(t, bv.ReadBit(129))
	require.False(t, bv.ReadBit(1))
	require.False(t, bv.ReadBit(128))
}

func TestBitVectorDistanceToNextSet(t *testing.T) {
	bv := NewBitVector(200)
	bv.SetBit(5)
	bv.SetBit(70)

	require.Equal(t, int64(0), bv.DistanceToNextSet(5))
	require.Equal(t, int64(64), bv.DistanceToNextSet(6))
	require.Equal(t, int64(0), bv.DistanceToNextSet(70))
	require.Equal(t, int64(-1), bv.DistanceToNextSet(71))
}

func TestBitVectorDistanceToPrevSet(t *testing.T) {
	bv := NewBitVector(200)
	bv.SetBit(5)
	bv.SetBit(70)

	require.Equal(t, int64(0), bv.DistanceToPrevSet(70))
	require.Equal(t, int64(64), bv.DistanceToPrevSet(69))
	require.Equal(t, int64(-1), bv.DistanceToPrevSet(4))
}

func TestBitVectorRoundTrip(t *testing.T) {
	bv := NewBitVector(100)
	bv.SetBit(0)
	bv.SetBit(33)
	bv.SetBit(99)

	buf := make([]byte, bv.SerializeByteLen())
	n, err := bv.SerializeInto(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.Equal(t, 0, n%8)

	got, consumed, err := DeserializeBitVector(buf)
	require.NoError(t, err)
	require.Equal(t, n, consumed)
	require.Equal(t, bv.NumBits(), got.NumBits())
	for i := uint64(0); i < bv.NumBits(); i++ {
		require.Equal(t, bv.ReadBit(i), got.ReadBit(i), "bit %d", i)
	}
}

func TestBitVectorPopCount(t *testing.T) {
	bv := NewBitVector(10)
	bv.SetBit(1)
	bv.SetBit(4)
	bv.SetBit(9)
	require.Equal(t, uint64(3), bv.PopCount())
}
