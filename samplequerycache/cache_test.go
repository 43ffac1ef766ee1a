package samplequerycache

import (
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/stretchr/testify/require"
)

func lessByLeft(a, b Query[uint64]) bool { return a.Left < b.Left }

func TestCacheAddAndGetSample(t *testing.T) {
	c := New[uint64](4)
	c.Add(30, 40)
	c.Add(10, 20)
	c.Add(50, 60)

	sample := c.GetSample(lessByLeft)
	require.Len(t, sample, 3)
	require.Equal(t, uint64(10), sample[0].Left)
	require.Equal(t, uint64(30), sample[1].Left)
	require.Equal(t, uint64(50), sample[2].Left)
}

func TestCacheEvictsOldestWhenFull(t *testing.T) {
	c := New[uint64](2)
	c.Add(1, 2)
	c.Add(3, 4)
	c.Add(5, 6) // evicts (1,2)

	sample := c.GetSample(lessByLeft)
	require.Len(t, sample, 2)
	require.Equal(t, uint64(3), sample[0].Left)
	require.Equal(t, uint64(5), sample[1].Left)
}

func TestCacheSnapshotRoundTrip(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	c := New[uint64](4)
	c.Add(1, 2)
	c.Add(3, 4)

	buf, err := c.Snapshot()
	require.NoError(t, err)

	restored := New[uint64](4)
	require.NoError(t, restored.LoadSnapshot(buf))
	require.Equal(t, c.GetSample(lessByLeft), restored.GetSample(lessByLeft))
}

func TestCacheLen(t *testing.T) {
	c := New[uint64](4)
	require.Equal(t, 0, c.Len())
	c.Add(1, 2)
	require.Equal(t, 1, c.Len())
}

func TestCacheSampleRateAdmitsOnlyEveryNth(t *testing.T) {
	c := NewWithSampleRate[uint64](8, 3)
	for i := uint64(1); i <= 9; i++ {
		c.Add(i, i+100)
	}
	// Only the 3rd, 6th, and 9th calls land on the admission boundary.
	sample := c.GetSample(lessByLeft)
	require.Len(t, sample, 3)
	require.Equal(t, uint64(3), sample[0].Left)
	require.Equal(t, uint64(6), sample[1].Left)
	require.Equal(t, uint64(9), sample[2].Left)
}

func TestCacheSampleRateOneAdmitsEveryCall(t *testing.T) {
	c := NewWithSampleRate[uint64](4, 1)
	c.Add(1, 2)
	c.Add(3, 4)
	require.Equal(t, 2, c.Len())
}
