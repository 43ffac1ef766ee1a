package prefixbloom

import (
	"encoding/binary"
	"math/rand"

	"github.com/spaolacci/murmur3"
)

// buildSeed is the fixed hash-family seed named by spec's idempotent-
// build testable property ("fixed seed constant, e.g., 1337") — the Go
// analogue of the original source's mt19937/mt19937_64 generators, both
// seeded with the same constant.
const buildSeed = 1337

// seeds holds one independently-drawn seed per hash probe: a plain
// uint32 for the integer path, a (uint64, uint64) pair for the string
// path. Only one of the two is ever populated on a given Bloom, chosen
// by whether it was built over an integer or string key space. Every
// probe hashes with its own seed in a single direct call; there is no
// Kirsch-Mitzenmacher double hashing anywhere in this package.
type seeds struct {
	int32 []uint32
	str64 [][2]uint64
}

func newIntSeeds(k int) seeds {
	rng := rand.New(rand.NewSource(buildSeed))
	s := make([]uint32, k)
	for i := range s {
		s[i] = rng.Uint32()
	}
	return seeds{int32: s}
}

func newStrSeeds(k int) seeds {
	rng := rand.New(rand.NewSource(buildSeed))
	s := make([][2]uint64, k)
	for i := range s {
		s[i] = [2]uint64{rng.Uint64(), rng.Uint64()}
	}
	return seeds{str64: s}
}

// integerProbe returns the probe hash for a uint64 prefix value under a
// single independent seed, per spec's integer path ("hash with each
// 32-bit seed").
func integerProbe(seed uint32, v uint64) uint32 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return murmur3.Sum32WithSeed(buf[:], seed)
}

// stringProbe returns the probe hash for an edited prefix buffer under a
// single independent 128-bit seed pair, per spec's string path ("128-
// bit-keyed hash"). The pack's murmur3 binding only exposes a single
// 32-bit seed argument on its 128-bit sum, so the seed pair is folded in
// as 16 bytes of keying material ahead of buf rather than passed as a
// second seed argument.
func stringProbe(seed [2]uint64, buf []byte) uint64 {
	keyed := make([]byte, 16+len(buf))
	binary.LittleEndian.PutUint64(keyed[0:8], seed[0])
	binary.LittleEndian.PutUint64(keyed[8:16], seed[1])
	copy(keyed[16:], buf)
	h1, _ := murmur3.Sum128WithSeed(keyed, 0)
	return h1
}
