package trie

import (
	"encoding/binary"

	"github.com/datatrails/go-rangefilter/bitops"
	"github.com/datatrails/go-rangefilter/keyrepr"
)

// CompareResult is the three-way (plus PBF-deferral) outcome of comparing
// a stored suffix against an incoming key, per spec §4.3.
type CompareResult int

const (
	CompareLess CompareResult = iota
	CompareEqualMaybePositive
	CompareGreater
)

// SuffixVector holds packed suffixes, concatenated level by level. Every
// leaf at the same trie level has the same width (spec §3: "suffix length
// at trie level L is max(0, trie_depth - 8L) bits"), but a single
// DenseLayer or SparseLayer spans several levels whose widths differ, so
// entries are variable-width; offsets tracks each entry's bit position.
type SuffixVector struct {
	words   []uint64
	offsets []uint64 // len() == count+1; offsets[i+1]-offsets[i] is entry i's width
}

// NewSuffixVector allocates an empty, growable suffix vector.
func NewSuffixVector() *SuffixVector {
	return &SuffixVector{offsets: []uint64{0}}
}

// Append adds one width-bit suffix entry (left-justified hi/lo, as
// produced by bitops.ReadBits / keyrepr.Prefix arithmetic) and returns its
// index. width == 0 appends an empty entry (spec §4.3's "stored suffix is
// empty" case, meaning resolution falls through to the PBF).
func (sv *SuffixVector) Append(width uint32, hi, lo uint64) int {
	start := sv.offsets[len(sv.offsets)-1]
	idx := len(sv.offsets) - 1
	needWords := (start + uint64(width) + 63) / 64
	for uint64(len(sv.words)) < needWords {
		sv.words = append(sv.words, 0)
	}
	if width > 0 {
		bitops.WriteBits(sv.words, start, width, hi, lo)
	}
	sv.offsets = append(sv.offsets, start+uint64(width))
	return idx
}

// Len returns the number of stored suffix entries.
func (sv *SuffixVector) Len() int { return len(sv.offsets) - 1 }

func (sv *SuffixVector) width(idx int) uint32 {
	return uint32(sv.offsets[idx+1] - sv.offsets[idx])
}

func (sv *SuffixVector) read(idx int) (hi, lo uint64) {
	w := sv.width(idx)
	if w == 0 {
		return 0, 0
	}
	return bitops.ReadBits(sv.words, sv.offsets[idx], w)
}

// Compare compares the stored suffix at idx against the key remainder
// (keyRemainderHi/Lo, left-justified the same way). If the stored suffix
// is empty, it returns CompareEqualMaybePositive: resolution must continue
// in the PBF (spec §4.3). A non-empty stored suffix that exactly equals the
// remainder also returns CompareEqualMaybePositive, so the trie layer alone
// never confirms a match; the caller resolves it.
func (sv *SuffixVector) Compare(idx int, keyRemainderHi, keyRemainderLo uint64) CompareResult {
	if sv.width(idx) == 0 {
		return CompareEqualMaybePositive
	}
	hi, lo := sv.read(idx)
	if hi == keyRemainderHi && lo == keyRemainderLo {
		return CompareEqualMaybePositive
	}
	if hi < keyRemainderHi || (hi == keyRemainderHi && lo < keyRemainderLo) {
		return CompareLess
	}
	return CompareGreater
}

// CheckEquality reports whether the stored suffix at idx equals the key's
// remainder bits exactly, for point lookups. An empty stored suffix always
// reports true: the caller must fall through to the PBF to resolve it.
func (sv *SuffixVector) CheckEquality(idx int, keyRemainderHi, keyRemainderLo uint64) bool {
	if sv.width(idx) == 0 {
		return true
	}
	hi, lo := sv.read(idx)
	return hi == keyRemainderHi && lo == keyRemainderLo
}

// SuffixBitsAtLevel implements spec §3's "suffix length at trie level L
// is max(0, trie_depth - 8L) bits", clamped to the 128-bit ceiling.
func SuffixBitsAtLevel(trieDepthBits uint32, byteLevel int) uint32 {
	consumed := uint32(byteLevel) * 8
	if consumed >= trieDepthBits {
		return 0
	}
	w := trieDepthBits - consumed
	if w > 128 {
		w = 128
	}
	return w
}

// KeyRemainder extracts the bits of k strictly below byteLevel*8 up to
// trieDepthBits, left-justified exactly as SuffixVector entries are
// stored, ready for Compare/CheckEquality.
func KeyRemainder[K any](kr keyrepr.KeyRepr[K], k K, byteLevel int, trieDepthBits uint32) (hi, lo uint64) {
	width := SuffixBitsAtLevel(trieDepthBits, byteLevel)
	if width == 0 {
		return 0, 0
	}
	full := kr.Prefix(k, trieDepthBits)
	consumedBits := uint32(byteLevel) * 8
	return shiftLeft128(full.Hi, full.Lo, consumedBits)
}

func shiftLeft128(hi, lo uint64, n uint32) (uint64, uint64) {
	if n == 0 {
		return hi, lo
	}
	if n >= 128 {
		return 0, 0
	}
	if n >= 64 {
		return lo << (n - 64), 0
	}
	newHi := (hi << n) | (lo >> (64 - n))
	newLo := lo << n
	return newHi, newLo
}

// SerializeByteLen returns the byte length SerializeInto will write.
// Per-entry offsets are not part of the image: every leaf at the same
// trie level has the same width (spec §3), so DeserializeSuffixVector's
// caller rebuilds them from the owning layer's own label/child bits plus
// trie_depth_bits, the same metadata-then-words shape as bitops'
// BitVector.
func (sv *SuffixVector) SerializeByteLen() int {
	nw := (sv.offsets[len(sv.offsets)-1] + 63) / 64
	return padTo8(8 + int(nw)*8)
}

// SerializeInto writes u64 total bit length, then the packed words,
// padded to 8.
func (sv *SuffixVector) SerializeInto(dst []byte) (int, error) {
	n := sv.SerializeByteLen()
	if len(dst) < n {
		return 0, ErrTruncated
	}
	total := sv.offsets[len(sv.offsets)-1]
	binary.LittleEndian.PutUint64(dst[0:8], total)
	off := 8
	nw := int((total + 63) / 64)
	for i := 0; i < nw; i++ {
		binary.LittleEndian.PutUint64(dst[off:off+8], sv.words[i])
		off += 8
	}
	for ; off < n; off++ {
		dst[off] = 0
	}
	return n, nil
}

// DeserializeSuffixVector reads an image produced by SerializeInto.
// widths gives each entry's bit width in emission order, rebuilt by the
// caller (DenseLayer/SparseLayer) from bits it already holds rather than
// persisted here.
func DeserializeSuffixVector(src []byte, widths []uint32) (*SuffixVector, int, error) {
	if len(src) < 8 {
		return nil, 0, ErrTruncated
	}
	totalBits := binary.LittleEndian.Uint64(src[0:8])
	off := 8
	nw := int((totalBits + 63) / 64)
	if len(src) < off+nw*8 {
		return nil, 0, ErrTruncated
	}
	words := make([]uint64, nw)
	for i := 0; i < nw; i++ {
		words[i] = binary.LittleEndian.Uint64(src[off : off+8])
		off += 8
	}
	offsets := make([]uint64, len(widths)+1)
	var cum uint64
	for i, w := range widths {
		offsets[i] = cum
		cum += uint64(w)
	}
	offsets[len(widths)] = cum
	total := padTo8(off)
	return &SuffixVector{words: words, offsets: offsets}, total, nil
}
