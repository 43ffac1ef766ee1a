package prefixbloom

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/datatrails/go-rangefilter/bitops"
)

// ErrTruncated is returned by Deserialize on a short buffer.
var ErrTruncated = errors.New("prefixbloom: truncated image")

// Bloom is the single shared-bitset prefix Bloom filter of spec §4.7: a
// bit array of size NBits, k hash probes each drawn from its own
// independent seed, and a fixed PrefixLen in bits. It holds either
// integer-keyed or string-keyed prefixes — never both — selected by the
// caller's use of the Int* or String* methods, mirroring the original
// source's template split without needing a second concrete type.
type Bloom struct {
	NBits     uint32
	PrefixLen uint32
	K         int
	seeds     seeds
	bits      *bitops.BitVector
}

// New constructs an empty filter sized nbits wide for prefixLen-bit
// prefixes, with k derived from the expected distinct prefix count per
// spec §4.7, and k independent probe seeds drawn from the fixed build
// seed. isInteger selects which of the two probe families gets seeded;
// the other stays empty, matching the one-sided use the caller makes of
// the Int*/String* methods.
func New(nbits uint32, prefixLen uint32, distinctPrefixes uint64, isInteger bool) *Bloom {
	if nbits == 0 {
		nbits = 1
	}
	k := ChooseK(uint64(nbits), distinctPrefixes)
	var s seeds
	if isInteger {
		s = newIntSeeds(k)
	} else {
		s = newStrSeeds(k)
	}
	return &Bloom{
		NBits:     nbits,
		PrefixLen: prefixLen,
		K:         k,
		seeds:     s,
		bits:      bitops.NewBitVector(uint64(nbits)),
	}
}

// --- integer path ---

// integerPrefix returns key >> (64 - prefixLen), the top prefixLen bits.
func (b *Bloom) integerPrefix(key uint64) uint64 {
	if b.PrefixLen == 0 {
		return 0
	}
	if b.PrefixLen >= 64 {
		return key
	}
	return key >> (64 - b.PrefixLen)
}

// InsertInt inserts the distinct PrefixLen-bit prefix of key.
func (b *Bloom) InsertInt(key uint64) {
	b.setProbesInt(b.integerPrefix(key))
}

func (b *Bloom) setProbesInt(prefix uint64) {
	for _, seed := range b.seeds.int32 {
		j := uint64(integerProbe(seed, prefix)) % uint64(b.NBits)
		b.bits.SetBit(j)
	}
}

// MayContainInt reports whether key's prefix is possibly present.
func (b *Bloom) MayContainInt(key uint64) bool {
	prefix := b.integerPrefix(key)
	for _, seed := range b.seeds.int32 {
		j := uint64(integerProbe(seed, prefix)) % uint64(b.NBits)
		if !b.bits.ReadBit(j) {
			return false
		}
	}
	return true
}

// RangeQueryInt reports whether any prefix of an integer in [lo, hi) is
// possibly present, by shifting to [lo>>s, (hi-1)>>s] and enumerating
// every covered prefix value, per spec §4.7's integer range path.
func (b *Bloom) RangeQueryInt(lo, hi uint64) bool {
	if hi <= lo {
		return false
	}
	if b.PrefixLen == 0 {
		return b.MayContainInt(0)
	}
	s := uint(0)
	if b.PrefixLen < 64 {
		s = uint(64 - b.PrefixLen)
	}
	lp := lo >> s
	rp := (hi - 1) >> s
	for v := lp; ; v++ {
		for _, seed := range b.seeds.int32 {
			j := uint64(integerProbe(seed, v)) % uint64(b.NBits)
			if !b.bits.ReadBit(j) {
				goto nextV
			}
		}
		return true
	nextV:
		if v == rp {
			break
		}
	}
	return false
}

// --- string path ---

// editedPrefix pads key to ceil(PrefixLen/8) bytes and masks the tail
// byte to the top (PrefixLen mod 8) bits, per spec §4.7's string insert.
func (b *Bloom) editedPrefix(key []byte) []byte {
	n := int(BitsetBytes(b.PrefixLen))
	out := make([]byte, n)
	copy(out, key)
	if rem := b.PrefixLen % 8; rem != 0 && n > 0 {
		mask := byte(0xFF << (8 - rem))
		out[n-1] &= mask
	}
	return out
}

// InsertString inserts the distinct PrefixLen-bit prefix of key.
func (b *Bloom) InsertString(key []byte) {
	buf := b.editedPrefix(key)
	for _, seed := range b.seeds.str64 {
		j := stringProbe(seed, buf) % uint64(b.NBits)
		b.bits.SetBit(j)
	}
}

// MayContainString reports whether key's prefix is possibly present.
func (b *Bloom) MayContainString(key []byte) bool {
	buf := b.editedPrefix(key)
	return b.probeStringPrefix(buf)
}

// RangeQueryString reports whether any prefix in [lo, hi] (both
// inclusive, per spec §4.8's string convention) is possibly present. It
// sizes the enumeration with CountPrefixes and walks the prefix
// byte-string with carry propagation as spec §4.7 describes, treating a
// 0 (overflow) count as "guaranteed possibly-present".
func (b *Bloom) RangeQueryString(lo, hi []byte) bool {
	n := int(BitsetBytes(b.PrefixLen))
	loP := b.editedPrefix(lo)
	hiP := b.editedPrefix(hi)
	count, ok := CountPrefixes(loP, hiP, b.PrefixLen)
	if !ok {
		return true
	}
	cur := make([]byte, n)
	copy(cur, loP)
	step := byte(1)
	if rem := b.PrefixLen % 8; rem != 0 {
		step = 1 << (8 - rem)
	}
	for i := uint64(0); i < count; i++ {
		if b.probeStringPrefix(cur) {
			return true
		}
		carryInto(cur, step)
	}
	return false
}

func (b *Bloom) probeStringPrefix(prefix []byte) bool {
	for _, seed := range b.seeds.str64 {
		j := stringProbe(seed, prefix) % uint64(b.NBits)
		if !b.bits.ReadBit(j) {
			return false
		}
	}
	return true
}

// carryInto adds step to the last byte of buf, propagating carry
// leftward across byte boundaries, the mechanism spec §4.7 names for
// string-path range enumeration.
func carryInto(buf []byte, step byte) {
	carry := uint16(step)
	for i := len(buf) - 1; i >= 0 && carry != 0; i-- {
		sum := uint16(buf[i]) + carry
		buf[i] = byte(sum)
		carry = sum >> 8
	}
}

// CountPrefixes returns the cardinality of prefix values in [a, b]
// (both PrefixLenBits-wide byte strings, inclusive), or (0, false) if
// the count would exceed 2^64 - 1, per spec §4.7/§4.9's 0-sentinel
// convention ("more than 2^64 prefixes, treat as guaranteed positive").
func CountPrefixes(a, b []byte, prefixLenBits uint32) (uint64, bool) {
	if len(a) != len(b) {
		return 0, false
	}
	if len(a) > 8 {
		// The prefix space itself is wider than 64 bits; any realistic
		// query still fits in a uint64 count unless a..b spans the
		// entire space, which is reported as the overflow sentinel.
		av := bePrefix64(a)
		bv := bePrefix64(b)
		if bv < av {
			return 0, false
		}
		diff := bv - av
		if diff == math.MaxUint64 {
			return 0, false
		}
		return diff + 1, true
	}
	// Only the leading prefixLenBits bits count: the masked tail bits of
	// the last byte are shifted out before differencing.
	var shift uint
	if total := uint(len(a)) * 8; uint(prefixLenBits) < total {
		shift = total - uint(prefixLenBits)
	}
	av := beBytesToUint64(a) >> shift
	bv := beBytesToUint64(b) >> shift
	if bv < av {
		return 0, false
	}
	diff := bv - av
	if diff == math.MaxUint64 {
		return 0, false
	}
	return diff + 1, true
}

func beBytesToUint64(buf []byte) uint64 {
	var v uint64
	for _, c := range buf {
		v = v<<8 | uint64(c)
	}
	return v
}

// bePrefix64 is used only for prefix widths beyond 8 bytes, where only
// the leading 8 bytes materially affect ordering for the purposes of a
// cardinality estimate bounded to uint64.
func bePrefix64(buf []byte) uint64 {
	return beBytesToUint64(buf[:8])
}

// SerializeByteLen returns the byte length SerializeInto will write:
// spec §6's prefix_len_bits, nmod_bits, counted int-seed array, counted
// str-seed array, then the bitset as ceil(nmod_bits/64) packed 64-bit
// words. The bitset
// is written as bare packed words, not via BitVector.SerializeInto: its
// own num_bits header would only duplicate nmod_bits, already written
// above it.
func (b *Bloom) SerializeByteLen() int {
	n := 4 + 8 + 8 + len(b.seeds.int32)*4 + 8 + len(b.seeds.str64)*16
	nw := (uint64(b.NBits) + 63) / 64
	return padTo8(n + int(nw)*8)
}

// SerializeInto writes the byte-exact image spec §6 names for the PBF
// block: prefix_len_bits, nmod_bits, the counted u32 int-seed array, the
// counted (u64,u64) str-seed array, then the raw packed bitset words.
func (b *Bloom) SerializeInto(dst []byte) (int, error) {
	n := b.SerializeByteLen()
	if len(dst) < n {
		return 0, ErrTruncated
	}
	off := 0
	binary.LittleEndian.PutUint32(dst[off:off+4], b.PrefixLen)
	off += 4
	binary.LittleEndian.PutUint64(dst[off:off+8], uint64(b.NBits))
	off += 8

	binary.LittleEndian.PutUint64(dst[off:off+8], uint64(len(b.seeds.int32)))
	off += 8
	for _, s := range b.seeds.int32 {
		binary.LittleEndian.PutUint32(dst[off:off+4], s)
		off += 4
	}

	binary.LittleEndian.PutUint64(dst[off:off+8], uint64(len(b.seeds.str64)))
	off += 8
	for _, s := range b.seeds.str64 {
		binary.LittleEndian.PutUint64(dst[off:off+8], s[0])
		off += 8
		binary.LittleEndian.PutUint64(dst[off:off+8], s[1])
		off += 8
	}

	nw := int((uint64(b.NBits) + 63) / 64)
	words := b.bits.Words()
	for i := 0; i < nw; i++ {
		binary.LittleEndian.PutUint64(dst[off:off+8], words[i])
		off += 8
	}
	for ; off < n; off++ {
		dst[off] = 0
	}
	return n, nil
}

// DeserializeBloom reads an image produced by SerializeInto.
func DeserializeBloom(src []byte) (*Bloom, int, error) {
	const fixedHeader = 4 + 8 + 8
	if len(src) < fixedHeader {
		return nil, 0, ErrTruncated
	}
	off := 0
	prefixLen := binary.LittleEndian.Uint32(src[off : off+4])
	off += 4
	nbits := binary.LittleEndian.Uint64(src[off : off+8])
	off += 8

	nInt := int(binary.LittleEndian.Uint64(src[off : off+8]))
	off += 8
	if len(src) < off+nInt*4+8 {
		return nil, 0, ErrTruncated
	}
	intSeeds := make([]uint32, nInt)
	for i := range intSeeds {
		intSeeds[i] = binary.LittleEndian.Uint32(src[off : off+4])
		off += 4
	}

	nStr := int(binary.LittleEndian.Uint64(src[off : off+8]))
	off += 8
	if len(src) < off+nStr*16 {
		return nil, 0, ErrTruncated
	}
	strSeeds := make([][2]uint64, nStr)
	for i := range strSeeds {
		strSeeds[i][0] = binary.LittleEndian.Uint64(src[off : off+8])
		off += 8
		strSeeds[i][1] = binary.LittleEndian.Uint64(src[off : off+8])
		off += 8
	}

	nw := int((nbits + 63) / 64)
	if len(src) < off+nw*8 {
		return nil, 0, ErrTruncated
	}
	words := make([]uint64, nw)
	for i := 0; i < nw; i++ {
		words[i] = binary.LittleEndian.Uint64(src[off : off+8])
		off += 8
	}
	bv := bitops.WrapBitVector(words, nbits)
	total := padTo8(off)

	k := nInt
	if nStr > k {
		k = nStr
	}
	return &Bloom{
		NBits:     uint32(nbits),
		PrefixLen: prefixLen,
		K:         k,
		seeds:     seeds{int32: intSeeds, str64: strSeeds},
		bits:      bv,
	}, total, nil
}

func padTo8(n int) int {
	if n%8 == 0 {
		return n
	}
	return n + (8 - n%8)
}
