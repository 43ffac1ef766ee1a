package trie

import (
	"encoding/binary"

	"github.com/datatrails/go-rangefilter/bitops"
)

// denseNodeBits is the fixed 256-bit fanout of a dense node (one bit per
// possible edge byte value), per spec §4.1 "Dense node".
const denseNodeBits = 256

// DenseLayer holds the top sparseDenseCutoff byte levels of the trie
// encoded as one 256-bit labels bitmap and one 256-bit child-indicator
// bitmap per node, plus the suffix stream for leaves terminating within
// these levels. Grounded on urkle/indexview.go's pointer-free, index-
// arithmetic navigation: there are no parent/child pointers, only rank
// over bitmaps.
type DenseLayer struct {
	height    uint32 // number of dense byte levels
	levelBase []uint64
	nodeCount []uint32 // nodeCount[level] = number of dense nodes at that level

	// childRankBase[level] is the count of set child bits in every level
	// below level (i.e. d.child.Rank(levelBase[level]-1), or 0 for
	// level 0). child is one RankBitVector spanning every dense level,
	// so Rank(pos) alone returns a global ordinal; subtracting this base
	// converts it back to the level-local node ordinal buildDenseLayer
	// numbered nodes with.
	childRankBase []uint64

	labels   *bitops.RankBitVector
	child    *bitops.RankBitVector
	suffixes *SuffixVector
}

// Height returns the number of dense byte levels this layer covers.
func (d *DenseLayer) Height() uint32 { return d.height }

func buildDenseLayer(out *BuildOutput, cutoff int) *DenseLayer {
	if cutoff == 0 {
		return nil
	}
	nodeCount := make([]uint32, cutoff)
	nodeCount[0] = 1
	for level := 1; level < cutoff; level++ {
		var n uint32
		for _, c := range out.Levels[level-1].child {
			if c {
				n++
			}
		}
		nodeCount[level] = n
	}
	levelBase := make([]uint64, cutoff)
	var total uint64
	for level := 0; level < cutoff; level++ {
		levelBase[level] = total
		total += uint64(nodeCount[level]) * denseNodeBits
	}

	labels := bitops.NewRankBitVector(total)
	child := bitops.NewRankBitVector(total)
	suffixes := NewSuffixVector()

	for level := 0; level < cutoff; level++ {
		nodeNum := -1
		la := out.Levels[level]
		for i, lbl := range la.labels {
			if la.louds[i] {
				nodeNum++
			}
			pos := levelBase[level] + uint64(nodeNum)*denseNodeBits + uint64(lbl)
			labels.SetBit(pos)
			if la.child[i] {
				child.SetBit(pos)
			}
		}
	}
	labels.Build()
	child.Build()

	childRankBase := make([]uint64, cutoff)
	for level := 1; level < cutoff; level++ {
		childRankBase[level] = child.Rank(levelBase[level] - 1)
	}

	// Emit suffixes in the same bit-scan order a query descent would find
	// them: level by level, node by node, byte by byte (i.e. the order
	// the labels bitmap's set bits are visited), matching spec §4.1's "A
	// suffix stream stores one suffix per set bit in labels that is not
	// set in child_indicator."
	for level := 0; level < cutoff; level++ {
		for _, leafIdx := range out.LeafAt[level] {
			lf := out.Leaves[leafIdx]
			suffixes.Append(lf.width, lf.hi, lf.lo)
		}
	}

	return &DenseLayer{
		height:        uint32(cutoff),
		levelBase:     levelBase,
		nodeCount:     nodeCount,
		childRankBase: childRankBase,
		labels:        labels,
		child:         child,
		suffixes:      suffixes,
	}
}

// childLocalNode converts pos's global child-bit rank into the level-
// local dense node ordinal buildDenseLayer assigned its child (the
// ordinal among only this level's child-marked nodes), undoing the fact
// that child is one RankBitVector spanning every dense level.
func (d *DenseLayer) childLocalNode(level int, pos uint64) uint32 {
	return uint32(d.child.Rank(pos)-d.childRankBase[level]) - 1
}

// DenseLookupResult is the outcome of a dense-layer point descent.
type DenseLookupResult struct {
	// Outcome:
	//   Absent        -> key's edge byte missing at some dense level: false
	//   LeafMatch      -> a leaf was reached; Matched holds its suffix comparison
	//   DeferToPBF     -> the leaf's suffix is empty or equals the key's remainder; caller must consult PBF
	//   ContinueSparse -> descent exited the last dense level; NodeNum is where sparse continues
	Absent         bool
	LeafMatch      bool
	Matched        bool
	DeferToPBF     bool
	ContinueSparse bool
	NodeNum        uint32
}

// LookupKey descends byte-by-byte through the dense levels for keyBytes
// (the trieDepth-bit prefix of the query key, nBytes long) starting at
// global byte level 0. trieDepthBits/level bookkeeping for suffix
// comparison is supplied by the caller via remainder per spec §4.3.
func (d *DenseLayer) LookupKey(keyBytes []byte, remainder func(level int) (hi, lo uint64)) DenseLookupResult {
	nodeNum := uint32(0)
	for level := 0; level < int(d.height); level++ {
		pos := d.levelBase[level] + uint64(nodeNum)*denseNodeBits + uint64(keyBytes[level])
		if !d.labels.ReadBit(pos) {
			return DenseLookupResult{Absent: true}
		}
		if d.child.ReadBit(pos) {
			nodeNum = d.childLocalNode(level, pos)
			continue
		}
		// Leaf: locate its suffix by rank over (labels AND NOT child) up
		// to and including pos, counted across all dense levels so far.
		leafOrdinal := d.leafRank(pos)
		hi, lo := remainder(level + 1)
		res := DenseLookupResult{LeafMatch: true}
		switch d.suffixes.Compare(leafOrdinal, hi, lo) {
		case CompareEqualMaybePositive:
			res.DeferToPBF = true
		default:
			res.Matched = d.suffixes.CheckEquality(leafOrdinal, hi, lo)
		}
		return res
	}
	return DenseLookupResult{ContinueSparse: true, NodeNum: nodeNum}
}

// leafRank counts how many leaf positions (label set, child clear) occur
// at or before pos, across dense levels 0..level, giving the 0-indexed
// position of pos's leaf within the suffix stream.
func (d *DenseLayer) leafRank(pos uint64) int {
	labelRank := d.labels.Rank(pos)
	childRank := d.child.Rank(pos)
	return int(labelRank - childRank - 1)
}

// SerializeByteLen returns the byte length SerializeInto will write.
func (d *DenseLayer) SerializeByteLen() int {
	if d == nil {
		return padTo8(4)
	}
	n := padTo8(4)
	n += d.labels.SerializeByteLen()
	n += d.child.SerializeByteLen()
	n += d.suffixes.SerializeByteLen()
	return padTo8(n)
}

// SerializeInto writes u32 height, then the labels/child rank bit
// vectors and the suffix vector, each self-padded to 8 bytes (spec §6's
// dense_block shape). Per-level node counts and rank bases are not
// persisted: DeserializeDenseLayer rebuilds them from height and the
// child bit vector alone.
func (d *DenseLayer) SerializeInto(dst []byte) (int, error) {
	n := d.SerializeByteLen()
	if len(dst) < n {
		return 0, ErrTruncated
	}
	binary.LittleEndian.PutUint32(dst[0:4], d.height)
	off := padTo8(4)
	w, err := d.labels.SerializeInto(dst[off:])
	if err != nil {
		return 0, err
	}
	off += w
	w, err = d.child.SerializeInto(dst[off:])
	if err != nil {
		return 0, err
	}
	off += w
	w, err = d.suffixes.SerializeInto(dst[off:])
	if err != nil {
		return 0, err
	}
	off += w
	for ; off < n; off++ {
		dst[off] = 0
	}
	return n, nil
}

// DeserializeDenseLayer reads an image produced by SerializeInto.
// trieDepthBits must be the same value the layer was built with, needed
// to rebuild each leaf's suffix width from its level alone.
func DeserializeDenseLayer(trieDepthBits uint32, src []byte) (*DenseLayer, int, error) {
	if len(src) < 4 {
		return nil, 0, ErrTruncated
	}
	height := binary.LittleEndian.Uint32(src[0:4])
	off := padTo8(4)

	labels, w, err := bitops.DeserializeRankBitVector(src[off:])
	if err != nil {
		return nil, 0, err
	}
	off += w
	child, w, err := bitops.DeserializeRankBitVector(src[off:])
	if err != nil {
		return nil, 0, err
	}
	off += w

	levelBase, nodeCount, childRankBase := rebuildDenseLevelInfo(height, child)

	d := &DenseLayer{
		height:        height,
		levelBase:     levelBase,
		nodeCount:     nodeCount,
		childRankBase: childRankBase,
		labels:        labels,
		child:         child,
	}
	widths := d.rebuildLeafWidths(trieDepthBits)
	suffixes, w, err := DeserializeSuffixVector(src[off:], widths)
	if err != nil {
		return nil, 0, err
	}
	off += w
	d.suffixes = suffixes

	off = padTo8(off)
	return d, off, nil
}

// rebuildLeafWidths re-derives every leaf's suffix width in the same
// level-by-level, node-by-node, byte-by-byte order buildDenseLayer
// appended them in, from nothing but the labels/child bits and
// trieDepthBits: a set labels bit with its child bit clear is a leaf at
// that level, and every leaf at a given level shares the same width
// (spec §3).
func (d *DenseLayer) rebuildLeafWidths(trieDepthBits uint32) []uint32 {
	var widths []uint32
	for level := 0; level < int(d.height); level++ {
		width := SuffixBitsAtLevel(trieDepthBits, level+1)
		base := d.levelBase[level]
		end := base + uint64(d.nodeCount[level])*denseNodeBits
		for pos := base; pos < end; pos++ {
			if d.labels.ReadBit(pos) && !d.child.ReadBit(pos) {
				widths = append(widths, width)
			}
		}
	}
	return widths
}

// rebuildDenseLevelInfo recovers levelBase/nodeCount/childRankBase from
// nothing but height and the child bit vector: nodeCount[0] is always 1
// (the root), and nodeCount[level+1] is the number of set child bits
// within level's own bit range, which is exactly
// child.Rank(levelEnd-1)-childRankBase[level] once levelBase/childRankBase
// for level are known — the same rank-prefix-sum relationship
// childLocalNode relies on at query time, run forward instead of per
// query.
func rebuildDenseLevelInfo(height uint32, child *bitops.RankBitVector) (levelBase []uint64, nodeCount []uint32, childRankBase []uint64) {
	levelBase = make([]uint64, height)
	nodeCount = make([]uint32, height)
	childRankBase = make([]uint64, height)
	if height == 0 {
		return
	}
	nodeCount[0] = 1
	var total uint64
	for level := 0; level < int(height); level++ {
		levelBase[level] = total
		if level > 0 {
			childRankBase[level] = child.Rank(levelBase[level] - 1)
		}
		levelEnd := total + uint64(nodeCount[level])*denseNodeBits
		if level+1 < int(height) {
			nodeCount[level+1] = uint32(child.Rank(levelEnd-1) - childRankBase[level])
		}
		total = levelEnd
	}
	return
}
