package bitops

import (
	"math/bits"
)

// selectSampleRate samples the word index of every 64th set bit, matching
// the spec's ~4 bytes of directory per 64 set bits budget.
const selectSampleRate = 64

// SelectBitVector augments a BitVector with a sampled select-1 directory.
type SelectBitVector struct {
	BitVector
	dir     []uint32 // dir[s] = word index containing the (s*selectSampleRate)-th set bit (1-indexed ordinal s*selectSampleRate)
	dirRank []uint32 // dirRank[s] = number of set bits in the words before dir[s]
}

// NewSelectBitVector allocates a zero-filled SelectBitVector of numBits bits.
func NewSelectBitVector(numBits uint64) *SelectBitVector {
	return &SelectBitVector{BitVector: *NewBitVector(numBits)}
}

// Build (re)computes the select directory from the current bit contents.
func (sv *SelectBitVector) Build() {
	total := sv.PopCount()
	samples := int(total/selectSampleRate) + 1
	sv.dir = make([]uint32, samples)
	sv.dirRank = make([]uint32, samples)
	var seen uint64
	nextSample := uint64(selectSampleRate)
	si := 1
	for wi, w := range sv.words {
		cnt := uint64(bits.OnesCount64(w))
		for si < samples && seen+cnt >= nextSample {
			sv.dir[si] = uint32(wi)
			sv.dirRank[si] = uint32(seen)
			si++
			nextSample += selectSampleRate
		}
		seen += cnt
	}
}

// Select returns the 0-indexed bit position of the k-th set bit (1-indexed
// ordinal k, so k=1 returns the first set bit). It returns -1 if there is
// no k-th set bit.
func (sv *SelectBitVector) Select(k uint64) int64 {
	if k == 0 {
		return -1
	}
	sampleIdx := (k - 1) / selectSampleRate
	startWord := 0
	var seen uint64
	if sampleIdx < uint64(len(sv.dir)) {
		startWord = int(sv.dir[sampleIdx])
		seen = uint64(sv.dirRank[sampleIdx])
	}
	for wi := startWord; wi < len(sv.words); wi++ {
		w := sv.words[wi]
		cnt := uint64(bits.OnesCount64(w))
		if seen+cnt >= k {
			need := k - seen
			pos, ok := selectInWord(w, need)
			if !ok {
				return -1
			}
			return int64(uint64(wi)*wordBits + pos)
		}
		seen += cnt
	}
	return -1
}

// selectInWord returns the bit position (0..63) of the need-th set bit
// (1-indexed) within w.
func selectInWord(w uint64, need uint64) (uint64, bool) {
	for need > 0 {
		if w == 0 {
			return 0, false
		}
		tz := bits.TrailingZeros64(w)
		need--
		if need == 0 {
			return uint64(tz), true
		}
		w &= w - 1 // clear lowest set bit
	}
	return 0, false
}

// SerializeByteLen returns the exact byte length SerializeInto will
// write: the select directory is not part of the image, since Build
// recomputes it from the bit contents already there.
func (sv *SelectBitVector) SerializeByteLen() int {
	return sv.BitVector.SerializeByteLen()
}

// SerializeInto writes just the embedded BitVector (metadata then
// packed words, padded to 8); the select directory is rebuilt by Build
// on load rather than persisted.
func (sv *SelectBitVector) SerializeInto(dst []byte) (int, error) {
	return sv.BitVector.SerializeInto(dst)
}

// DeserializeSelectBitVector reads an image produced by SerializeInto
// and recomputes the select directory from the loaded bits.
func DeserializeSelectBitVector(src []byte) (*SelectBitVector, int, error) {
	bv, bvLen, err := DeserializeBitVector(src)
	if err != nil {
		return nil, 0, err
	}
	sv := &SelectBitVector{BitVector: *bv}
	sv.Build()
	return sv, bvLen, nil
}
