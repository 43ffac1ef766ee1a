package trie

import (
	"testing"

	"github.com/datatrails/go-rangefilter/keyrepr"
	"github.com/stretchr/testify/require"
)

// key2 builds a uint64 whose top 2 bytes are b0, b1.
func key2(b0, b1 byte) uint64 {
	return uint64(b0)<<56 | uint64(b1)<<48
}

// ceilingLayers builds a trie over a fixed four-key set whose root splits
// into a dense byte level 0 and a sparse byte level 1 (sparseDenseCutoff
// of 1 byte), so Ceiling must cross the dense/sparse boundary to resolve
// any query that descends past the root.
func ceilingLayers(t *testing.T) (*Layers, keyrepr.Uint64Key) {
	t.Helper()
	kr := keyrepr.Uint64Key{}
	const depthBits = 16
	keys := []uint64{
		key2(0x01, 0x01),
		key2(0x01, 0x05),
		key2(0x02, 0x05),
		key2(0x03, 0x01),
	}
	out, err := NewBuilder(kr).Build(keys, depthBits)
	require.NoError(t, err)
	l := Assemble(out, 1)
	require.NotNil(t, l.Dense)
	require.NotNil(t, l.Sparse)
	return l, kr
}

func ceilingRemainder(kr keyrepr.Uint64Key, lower uint64, depthBits uint32) func(level int) (hi, lo uint64) {
	return func(level int) (uint64, uint64) {
		return KeyRemainder[uint64](kr, lower, level, depthBits)
	}
}

// TestCeilingExactPathFindsGreaterLeafWithoutBacktrack covers the case
// where the lower bound's own root-level byte matches a leaf directly
// (no descent into the sparse node at all), and that leaf's stored suffix
// compares strictly greater than the lower bound's remainder.
func TestCeilingExactPathFindsGreaterLeafWithoutBacktrack(t *testing.T) {
	l, kr := ceilingLayers(t)
	const depthBits = 16

	lower := key2(0x02, 0x04) // one below key2(0x02, 0x05)
	lowerBytes := prefixBytes(kr.Prefix(lower, depthBits), 2)

	res := l.Ceiling(lowerBytes, ceilingRemainder(kr, lower, depthBits))
	require.False(t, res.NotFound)
	require.True(t, res.Hit)
	require.Equal(t, []byte{0x02}, res.Path)
}

// TestCeilingBacktracksAcrossRootSiblings covers the case where the exact
// path descends into a child subtree (crossing into the sparse layer),
// fails to find any locally-greater candidate there, and must backtrack
// to the root frame to find the next sibling.
func TestCeilingBacktracksAcrossRootSiblings(t *testing.T) {
	l, kr := ceilingLayers(t)
	const depthBits = 16

	lower := key2(0x01, 0x06) // greater than both leaves under root byte 0x01
	lowerBytes := prefixBytes(kr.Prefix(lower, depthBits), 2)

	res := l.Ceiling(lowerBytes, ceilingRemainder(kr, lower, depthBits))
	require.False(t, res.NotFound)
	require.True(t, res.Hit)
	require.Equal(t, []byte{0x02}, res.Path)
}

// TestCeilingNotFoundPastLastKey covers exhausting every candidate at
// every level with nothing left to backtrack to.
func TestCeilingNotFoundPastLastKey(t *testing.T) {
	l, kr := ceilingLayers(t)
	const depthBits = 16

	lower := key2(0x03, 0x02) // greater than key2(0x03, 0x01), the largest key
	lowerBytes := prefixBytes(kr.Prefix(lower, depthBits), 2)

	res := l.Ceiling(lowerBytes, ceilingRemainder(kr, lower, depthBits))
	require.True(t, res.NotFound)
}

// TestCeilingLeftmostDescentAcrossDenseSparseBoundary covers the case
// where the exact path crosses from the dense root into the sparse layer
// and the leftmost-greater leaf is found inside that sparse node itself,
// without any backtracking to the root.
func TestCeilingLeftmostDescentAcrossDenseSparseBoundary(t *testing.T) {
	l, kr := ceilingLayers(t)
	const depthBits = 16

	lower := key2(0x01, 0x00) // below both leaves under root byte 0x01
	lowerBytes := prefixBytes(kr.Prefix(lower, depthBits), 2)

	res := l.Ceiling(lowerBytes, ceilingRemainder(kr, lower, depthBits))
	require.False(t, res.NotFound)
	require.True(t, res.Hit)
	require.Equal(t, []byte{0x01, 0x01}, res.Path)
	require.False(t, res.Dense)
}
