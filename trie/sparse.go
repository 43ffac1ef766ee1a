package trie

import (
	"encoding/binary"

	"github.com/datatrails/go-rangefilter/bitops"
)

// SparseLayer holds the bottom byte levels of the trie (from byte level
// startLevel onward) in LOUDS-sparse form: a run of ascending label
// bytes, a parallel child-indicator bit per label, a parallel LOUDS bit
// (set at the first label of each node), and the suffix stream for
// leaves terminating within these levels. Grounded on urkle/proof.go's
// index-arithmetic descent (no parent pointers; node boundaries come
// from select-1 over LOUDS).
type SparseLayer struct {
	startLevel int
	labels     *LabelVector
	child      *bitops.RankBitVector
	louds      *bitops.SelectBitVector
	suffixes   *SuffixVector
}

func buildSparseLayer(out *BuildOutput, cutoff int) *SparseLayer {
	if cutoff >= out.NBytes {
		return nil
	}
	var labelBytes []byte
	var childBits []bool
	var loudsBits []bool
	var leaves []leafRef
	for level := cutoff; level < out.NBytes; level++ {
		la := out.Levels[level]
		labelBytes = append(labelBytes, la.labels...)
		childBits = append(childBits, la.child...)
		loudsBits = append(loudsBits, la.louds...)
		for _, leafIdx := range out.LeafAt[level] {
			leaves = append(leaves, out.Leaves[leafIdx])
		}
	}
	if len(labelBytes) == 0 {
		return nil
	}

	child := bitops.NewRankBitVector(uint64(len(childBits)))
	louds := bitops.NewSelectBitVector(uint64(len(loudsBits)))
	for i, c := range childBits {
		if c {
			child.SetBit(uint64(i))
		}
	}
	for i, l := range loudsBits {
		if l {
			louds.SetBit(uint64(i))
		}
	}
	child.Build()
	louds.Build()

	suffixes := NewSuffixVector()
	for _, lf := range leaves {
		suffixes.Append(lf.width, lf.hi, lf.lo)
	}

	return &SparseLayer{
		startLevel: cutoff,
		labels:     NewLabelVector(labelBytes),
		child:      child,
		louds:      louds,
		suffixes:   suffixes,
	}
}

// StartLevel returns the byte level the sparse layer begins at.
func (s *SparseLayer) StartLevel() int { return s.startLevel }

// NodeStart returns the label-array position of the first label of the
// nodeNum-th node (0-indexed) at the sparse layer's start level, located
// by select-1 over LOUDS — the handoff point from DenseLayer.
func (s *SparseLayer) NodeStart(nodeNum uint32) int {
	pos := s.louds.Select(uint64(nodeNum) + 1)
	if pos < 0 {
		return 0
	}
	return int(pos)
}

// nodeBounds returns [start, end) of the label run belonging to the node
// whose first label is at pos.
func (s *SparseLayer) nodeBounds(pos int) (start, end int) {
	// Walk back to the nearest LOUDS-set label (the node's first label).
	start = pos
	for start > 0 && !s.louds.ReadBit(uint64(start)) {
		start--
	}
	end = start + 1
	for end < s.labels.Len() && !s.louds.ReadBit(uint64(end)) {
		end++
	}
	return start, end
}

// SparseLookupResult mirrors DenseLookupResult for the sparse descent.
type SparseLookupResult struct {
	Absent     bool
	LeafMatch  bool
	Matched    bool
	DeferToPBF bool
}

// LookupKey descends from entryPos (the first label position of the node
// reached when control passed from DenseLayer, or 0 for a trie with no
// dense levels) through keyBytes[startLevel:], per spec §4.6.
func (s *SparseLayer) LookupKey(entryPos int, keyBytes []byte, remainder func(level int) (hi, lo uint64)) SparseLookupResult {
	pos := entryPos
	for level := s.startLevel; level < len(keyBytes); level++ {
		start, end := s.nodeBounds(pos)
		found, ok := s.labels.Search(keyBytes[level], start, end-start)
		if !ok {
			return SparseLookupResult{Absent: true}
		}
		if s.child.ReadBit(uint64(found)) {
			// Descend to the child node: its first label is the LOUDS
			// bit with ordinal equal to rank_child(found)+1, located by
			// select.
			childOrdinal := s.child.Rank(uint64(found))
			next := s.louds.Select(childOrdinal)
			if next < 0 {
				return SparseLookupResult{Absent: true}
			}
			pos = int(next)
			continue
		}
		leafOrdinal := s.leafRank(found)
		hi, lo := remainder(level + 1)
		res := SparseLookupResult{LeafMatch: true}
		switch s.suffixes.Compare(leafOrdinal, hi, lo) {
		case CompareEqualMaybePositive:
			res.DeferToPBF = true
		default:
			res.Matched = s.suffixes.CheckEquality(leafOrdinal, hi, lo)
		}
		return res
	}
	return SparseLookupResult{Absent: true}
}

// leafRank counts leaf positions (label present, child clear) at or
// before pos, giving pos's 0-indexed position in the suffix stream.
func (s *SparseLayer) leafRank(pos int) int {
	childRank := s.child.Rank(uint64(pos))
	return pos - int(childRank)
}

// SerializeByteLen returns the byte length SerializeInto will write.
func (s *SparseLayer) SerializeByteLen() int {
	if s == nil {
		return padTo8(16)
	}
	n := 16
	n = padTo8(n)
	n += s.labels.SerializeByteLen()
	n += s.child.SerializeByteLen()
	n += s.louds.SerializeByteLen()
	n += s.suffixes.SerializeByteLen()
	return padTo8(n)
}

// SerializeInto writes the sparse_block header (height placeholder,
// start_level, node_count_dense, child_count_dense left as reserved
// zero fields for forward compatibility) then the label/child/LOUDS/
// suffix vectors, per spec §6.
func (s *SparseLayer) SerializeInto(dst []byte) (int, error) {
	n := s.SerializeByteLen()
	if len(dst) < n {
		return 0, ErrTruncated
	}
	binary.LittleEndian.PutUint32(dst[0:4], 0)
	binary.LittleEndian.PutUint32(dst[4:8], uint32(s.startLevel))
	binary.LittleEndian.PutUint32(dst[8:12], 0)
	binary.LittleEndian.PutUint32(dst[12:16], 0)
	off := padTo8(16)
	w, err := s.labels.SerializeInto(dst[off:])
	if err != nil {
		return 0, err
	}
	off += w
	w, err = s.child.SerializeInto(dst[off:])
	if err != nil {
		return 0, err
	}
	off += w
	w, err = s.louds.SerializeInto(dst[off:])
	if err != nil {
		return 0, err
	}
	off += w
	w, err = s.suffixes.SerializeInto(dst[off:])
	if err != nil {
		return 0, err
	}
	off += w
	for ; off < n; off++ {
		dst[off] = 0
	}
	return n, nil
}

// DeserializeSparseLayer reads an image produced by SerializeInto.
// trieDepthBits must be the same value the layer was built with, needed
// to rebuild each leaf's suffix width from its level alone.
func DeserializeSparseLayer(trieDepthBits uint32, src []byte) (*SparseLayer, int, error) {
	if len(src) < 16 {
		return nil, 0, ErrTruncated
	}
	startLevel := int(binary.LittleEndian.Uint32(src[4:8]))
	off := padTo8(16)

	labels, w, err := DeserializeLabelVector(src[off:])
	if err != nil {
		return nil, 0, err
	}
	off += w
	child, w, err := bitops.DeserializeRankBitVector(src[off:])
	if err != nil {
		return nil, 0, err
	}
	off += w
	louds, w, err := bitops.DeserializeSelectBitVector(src[off:])
	if err != nil {
		return nil, 0, err
	}
	off += w

	s := &SparseLayer{startLevel: startLevel, labels: labels, child: child, louds: louds}
	widths := s.rebuildLeafWidths(trieDepthBits)
	suffixes, w, err := DeserializeSuffixVector(src[off:], widths)
	if err != nil {
		return nil, 0, err
	}
	off += w
	s.suffixes = suffixes
	off = padTo8(off)

	return s, off, nil
}

// rebuildLeafWidths re-derives every leaf's suffix width in emission
// order from nothing but the label/child/LOUDS bits and trieDepthBits.
// The flat label run has no stored level boundaries, but buildSparseLayer
// concatenated it level by level and builder.go emits each level's nodes
// in left-to-right sibling order, so a breadth-first walk over the LOUDS
// tree — one full generation (frontier) at a time, starting from the
// single root node at startLevel — visits exactly the same node-by-node,
// byte-by-byte order the labels were appended in, without needing any
// persisted per-level counts.
func (s *SparseLayer) rebuildLeafWidths(trieDepthBits uint32) []uint32 {
	var widths []uint32
	level := s.startLevel
	frontier := []int{0}
	for len(frontier) > 0 {
		width := SuffixBitsAtLevel(trieDepthBits, level+1)
		var next []int
		for _, nodeStart := range frontier {
			start, end := s.nodeBounds(nodeStart)
			for pos := start; pos < end; pos++ {
				if s.child.ReadBit(uint64(pos)) {
					childOrdinal := s.child.Rank(uint64(pos))
					childStart := s.louds.Select(childOrdinal)
					if childStart >= 0 {
						next = append(next, int(childStart))
					}
				} else {
					widths = append(widths, width)
				}
			}
		}
		frontier = next
		level++
	}
	return widths
}
