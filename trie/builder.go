package trie

import (
	"github.com/datatrails/go-rangefilter/keyrepr"
)

// Builder performs the single-pass, sorted-keys-to-layers construction of
// spec §4.4: canonicalize every key to its trie_depth-bit prefix, walk the
// sorted, deduplicated set grouping by shared bytes level by level (the
// byte-trie analogue of urkle.Builder's bit-level skip-common-prefix /
// crit-bit frame stack), and emit per-level label/child-indicator/LOUDS
// runs plus one suffix record per leaf; Assemble later splits the result at
// sparseDenseCutoff bytes into a dense top and a LOUDS-sparse bottom.
type Builder[K any] struct {
	kr keyrepr.KeyRepr[K]
}

// NewBuilder constructs a Builder bound to a KeyRepr capability.
func NewBuilder[K any](kr keyrepr.KeyRepr[K]) *Builder[K] {
	return &Builder[K]{kr: kr}
}

// levelArrays accumulates one byte level's sparse-form emission before it
// is either folded into a dense node bitmap or kept as a sparse block.
type levelArrays struct {
	labels []byte
	child  []bool
	louds  []bool
}

type leafRef struct {
	level int
	width uint32
	hi    uint64
	lo    uint64
}

type buildState[K any] struct {
	kr       keyrepr.KeyRepr[K]
	depth    uint32
	nBytes   int
	levels   []levelArrays
	leaves   []leafRef // one entry per leaf, in label-emission order, tagged by level
	leafAt   [][]int   // leafAt[level] = indices into leaves, in this level's label order, for leaves that terminate at this level
}

// Build runs the full construction and returns per-level arrays ready to
// be split into DenseLayer/SparseLayer by Assemble.
func (b *Builder[K]) Build(keys []K, trieDepthBits uint32) (*BuildOutput, error) {
	nBytes := int((trieDepthBits + 7) / 8)
	st := &buildState[K]{
		kr:     b.kr,
		depth:  trieDepthBits,
		nBytes: nBytes,
		levels: make([]levelArrays, nBytes),
		leafAt: make([][]int, nBytes),
	}

	type canon struct {
		key   K
		bytes []byte
	}
	canons := make([]canon, 0, len(keys))
	var prevBytes []byte
	for i, k := range keys {
		p := b.kr.Prefix(k, trieDepthBits)
		bs := prefixBytes(p, nBytes)
		if i > 0 {
			if bytesCompare(bs, prevBytes) < 0 {
				return nil, ErrOutOfOrderKeys
			}
			if bytesCompare(bs, prevBytes) == 0 {
				continue // duplicate D-bit prefix collapses silently (spec §4.4)
			}
		}
		canons = append(canons, canon{key: k, bytes: bs})
		prevBytes = bs
	}

	if nBytes == 0 || len(canons) == 0 {
		return &BuildOutput{Depth: trieDepthBits, NBytes: nBytes, Levels: st.levels, Leaves: st.leaves, LeafAt: st.leafAt}, nil
	}

	idxs := make([]int, len(canons))
	for i := range idxs {
		idxs[i] = i
	}

	var build func(level int, group []int)
	build = func(level int, group []int) {
		i := 0
		first := true
		for i < len(group) {
			lbl := canons[group[i]].bytes[level]
			j := i + 1
			for j < len(group) && canons[group[j]].bytes[level] == lbl {
				j++
			}
			sub := group[i:j]
			isLeaf := len(sub) == 1 || level+1 == st.nBytes
			st.levels[level].labels = append(st.levels[level].labels, lbl)
			st.levels[level].louds = append(st.levels[level].louds, first)
			first = false
			if isLeaf {
				st.levels[level].child = append(st.levels[level].child, false)
				k := canons[sub[0]].key
				width := SuffixBitsAtLevel(trieDepthBits, level+1)
				hi, lo := KeyRemainder(b.kr, k, level+1, trieDepthBits)
				leafIdx := len(st.leaves)
				st.leaves = append(st.leaves, leafRef{level: level, width: width, hi: hi, lo: lo})
				st.leafAt[level] = append(st.leafAt[level], leafIdx)
			} else {
				st.levels[level].child = append(st.levels[level].child, true)
				build(level+1, sub)
			}
			i = j
		}
	}
	build(0, idxs)

	return &BuildOutput{Depth: trieDepthBits, NBytes: nBytes, Levels: st.levels, Leaves: st.leaves, LeafAt: st.leafAt}, nil
}

// BuildOutput is the intermediate per-level result handed to Assemble.
type BuildOutput struct {
	Depth  uint32
	NBytes int
	Levels []levelArrays
	Leaves []leafRef
	LeafAt [][]int
}

func prefixBytes(p keyrepr.Prefix, nBytes int) []byte {
	out := make([]byte, nBytes)
	for i := 0; i < nBytes; i++ {
		out[i] = p.ByteAt(i)
	}
	return out
}

func bytesCompare(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return len(a) - len(b)
}
