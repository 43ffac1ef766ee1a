// Package rangefilter glues a succinct trie (package trie) and a prefix
// Bloom filter (package prefixbloom) into the immutable, space-bounded
// range-emptiness filter named by the specification's Filter module.
package rangefilter

import (
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/google/uuid"

	"github.com/datatrails/go-rangefilter/keyrepr"
	"github.com/datatrails/go-rangefilter/prefixbloom"
	"github.com/datatrails/go-rangefilter/trie"
)

// Filter is the immutable top-level object of spec §3's "Filter
// (top-level object)": a trie_depth, a sparse_dense_cutoff, an optional
// DenseLayer+SparseLayer pair, and an optional PrefixBloom, queried
// freely once built.
type Filter[K any] struct {
	kr              keyrepr.KeyRepr[K]
	trieDepthBits   uint32
	cutoffBytes     uint32
	bfPrefixLenBits uint32
	layers          *trie.Layers
	pbf             *prefixbloom.Bloom
	buildID         uuid.UUID
	nKeys           int
}

// Build constructs a Filter from a sorted key slice and params, per spec
// §6's build API. keys must already be sorted (trie.Builder rejects
// out-of-order input); duplicates collapse silently.
func Build[K any](kr keyrepr.KeyRepr[K], keys []K, p Params) (*Filter[K], error) {
	if err := ValidateParams(p, kr.MaxKeyBits()); err != nil {
		return nil, err
	}
	f := &Filter[K]{
		kr:              kr,
		trieDepthBits:   p.TrieDepthBits,
		cutoffBytes:     p.CutoffBytes,
		bfPrefixLenBits: p.BFPrefixLenBits,
		buildID:         uuid.New(),
		nKeys:           len(keys),
	}

	if p.TrieDepthBits > 0 {
		out, err := trie.NewBuilder(kr).Build(keys, p.TrieDepthBits)
		if err != nil {
			return nil, err
		}
		f.layers = trie.Assemble(out, p.CutoffBytes)
	}

	if p.BFPrefixLenBits > 0 {
		distinct := distinctPrefixCount(kr, keys, p.BFPrefixLenBits)
		trieBits := f.trieMemBits()
		totalBits := uint64(p.BitsPerKey * float64(len(keys)))
		var residual uint64
		if totalBits > trieBits {
			residual = totalBits - trieBits
		} else {
			residual = uint64(p.BFPrefixLenBits) * 8
		}

		var nbits uint32
		if kr.IsInteger() {
			// The original source clamps the integer path's bit budget
			// to the addressable uint32 range rather than overflowing.
			nbits = prefixbloom.ClampIntegerBits(residual)
		} else {
			// The string path performs an unchecked narrowing cast in
			// the original source; preserved verbatim (spec §9).
			nbits = uint32(residual)
		}
		if nbits == 0 {
			nbits = 1
		}

		f.pbf = prefixbloom.New(nbits, p.BFPrefixLenBits, distinct, kr.IsInteger())
		for _, k := range keys {
			insertPBF(f.pbf, kr, k, p.BFPrefixLenBits)
		}
	}

	logger.Sugar.Infof(
		"rangefilter.Build: keys=%d trie_depth=%d cutoff=%d bf_prefix_len=%d has_dense=%v has_sparse=%v has_pbf=%v build_id=%s",
		len(keys), p.TrieDepthBits, p.CutoffBytes, p.BFPrefixLenBits,
		f.layers != nil && f.layers.Dense != nil,
		f.layers != nil && f.layers.Sparse != nil,
		f.pbf != nil, f.buildID,
	)
	return f, nil
}

// trieMemBits returns the actual serialized size of the built trie, in
// bits, used to size the PBF's residual budget.
func (f *Filter[K]) trieMemBits() uint64 {
	if f.layers == nil {
		return 0
	}
	var bits uint64
	if f.layers.Dense != nil {
		bits += uint64(f.layers.Dense.SerializeByteLen()) * 8
	}
	if f.layers.Sparse != nil {
		bits += uint64(f.layers.Sparse.SerializeByteLen()) * 8
	}
	return bits
}

// BuildID identifies this Filter instance for cache/log correlation.
func (f *Filter[K]) BuildID() uuid.UUID { return f.buildID }

// Stats reports the bit cost of each owned component, an observability
// accessor the distilled spec's Non-goals don't exclude (they exclude
// ranking and mutability, not introspection).
type Stats struct {
	DenseBits  uint64
	SparseBits uint64
	PBFBits    uint64
	NKeys      int
}

func (f *Filter[K]) Stats() Stats {
	s := Stats{NKeys: f.nKeys}
	if f.layers != nil {
		if f.layers.Dense != nil {
			s.DenseBits = uint64(f.layers.Dense.SerializeByteLen()) * 8
		}
		if f.layers.Sparse != nil {
			s.SparseBits = uint64(f.layers.Sparse.SerializeByteLen()) * 8
		}
	}
	if f.pbf != nil {
		s.PBFBits = uint64(f.pbf.NBits)
	}
	return s
}

// PointQuery answers spec §4.8's point_query(k).
func (f *Filter[K]) PointQuery(k K) bool {
	if f.layers == nil {
		return f.pbfPointQuery(k)
	}
	keyBytes := prefixBytesOf(f.kr, k, f.trieDepthBits)
	remainder := func(level int) (hi, lo uint64) { return trie.KeyRemainder(f.kr, k, level, f.trieDepthBits) }
	res := f.layers.PointQuery(keyBytes, remainder)
	if res.DeferToPBF {
		if f.pbf == nil {
			return true
		}
		return f.pbfPointQuery(k)
	}
	return res.Found
}

// RangeQuery answers spec §4.8's range_query(l, r): integers treat r as
// exclusive, strings treat r as inclusive (kr.IsInteger() selects which).
func (f *Filter[K]) RangeQuery(l, r K) bool {
	if f.layers == nil {
		return f.pbfRangeQuery(l, r)
	}

	lBytes := prefixBytesOf(f.kr, l, f.trieDepthBits)
	rBytes := prefixBytesOf(f.kr, r, f.trieDepthBits)
	remainderL := func(level int) (hi, lo uint64) { return trie.KeyRemainder(f.kr, l, level, f.trieDepthBits) }

	cr := f.layers.Ceiling(lBytes, remainderL)
	if cr.NotFound {
		return false
	}

	n := len(cr.Path)
	switch bytesCompare(cr.Path, rBytes[:n]) {
	case -1:
		return true
	case 1:
		return false
	}

	rHi, rLo := trie.KeyRemainder(f.kr, r, cr.Level+1, f.trieDepthBits)
	switch f.layers.CompareLeafSuffix(cr, rHi, rLo) {
	case trie.CompareGreater:
		return false
	case trie.CompareEqualMaybePositive:
		if f.kr.IsInteger() && f.trieDepthBits >= f.kr.MaxKeyBits() {
			// Full-resolution integer trie: a match at the right bound
			// is not a hit, since range_query's r is exclusive.
			return false
		}
		if f.pbf != nil {
			return f.pbfRangeQuery(l, r)
		}
		return true
	default:
		return true
	}
}

func (f *Filter[K]) pbfPointQuery(k K) bool {
	if f.pbf == nil {
		return false
	}
	if f.kr.IsInteger() {
		return f.pbf.MayContainInt(compactInt(f.kr.Prefix(k, f.bfPrefixLenBits)))
	}
	return f.pbf.MayContainString(prefixBytesOf(f.kr, k, f.bfPrefixLenBits))
}

func (f *Filter[K]) pbfRangeQuery(l, r K) bool {
	if f.pbf == nil {
		return false
	}
	if f.kr.IsInteger() {
		lo := compactInt(f.kr.Prefix(l, f.bfPrefixLenBits))
		hi := compactInt(f.kr.Prefix(r, f.bfPrefixLenBits))
		return f.pbf.RangeQueryInt(lo, hi+1)
	}
	return f.pbf.RangeQueryString(
		prefixBytesOf(f.kr, l, f.bfPrefixLenBits),
		prefixBytesOf(f.kr, r, f.bfPrefixLenBits),
	)
}

func insertPBF[K any](pbf *prefixbloom.Bloom, kr keyrepr.KeyRepr[K], k K, prefixLenBits uint32) {
	if kr.IsInteger() {
		pbf.InsertInt(compactInt(kr.Prefix(k, prefixLenBits)))
		return
	}
	pbf.InsertString(prefixBytesOf(kr, k, prefixLenBits))
}

func distinctPrefixCount[K any](kr keyrepr.KeyRepr[K], keys []K, prefixLenBits uint32) uint64 {
	seen := make(map[[2]uint64]struct{}, len(keys))
	for _, k := range keys {
		p := kr.Prefix(k, prefixLenBits)
		seen[[2]uint64{p.Hi, p.Lo}] = struct{}{}
	}
	return uint64(len(seen))
}

// compactInt returns a Prefix's masked, left-justified 64-bit value: the
// full-width key form prefixbloom's integer path takes, since the Bloom
// itself shifts a key down to its top PrefixLen bits before hashing.
func compactInt(p keyrepr.Prefix) uint64 {
	return p.Hi
}

// prefixBytesOf renders k's bits-length prefix as a big-endian byte
// string, the form trie.Builder and prefixbloom's string path both use.
func prefixBytesOf[K any](kr keyrepr.KeyRepr[K], k K, bits uint32) []byte {
	n := int((bits + 7) / 8)
	p := kr.Prefix(k, bits)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = p.ByteAt(i)
	}
	return out
}

func bytesCompare(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
