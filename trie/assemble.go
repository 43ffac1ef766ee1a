package trie

// Layers is the pair of dense/sparse layers produced by Assemble, ready
// to be owned by a rangefilter.Filter.
type Layers struct {
	TrieDepthBits uint32
	CutoffBytes   uint32
	NBytes        int
	Dense         *DenseLayer
	Sparse        *SparseLayer
}

// Assemble splits a Builder's BuildOutput at sparseDenseCutoffBytes into a
// DenseLayer (top) and a SparseLayer (bottom), per spec §3's "the top
// sparse_dense_cutoff byte levels are encoded dense; the remaining levels
// are encoded sparse."
func Assemble(out *BuildOutput, cutoffBytes uint32) *Layers {
	cutoff := int(cutoffBytes)
	if cutoff > out.NBytes {
		cutoff = out.NBytes
	}
	return &Layers{
		TrieDepthBits: out.Depth,
		CutoffBytes:   cutoffBytes,
		NBytes:        out.NBytes,
		Dense:         buildDenseLayer(out, cutoff),
		Sparse:        buildSparseLayer(out, cutoff),
	}
}

// DenseSerializeByteLen/SparseSerializeByteLen/etc. are exposed via the
// Dense/Sparse fields directly (DenseLayer.SerializeInto,
// SparseLayer.SerializeInto) — rangefilter composes them per spec §6's
// top-level serialization format, which interleaves them with the PBF.

// PointQueryResult is the outcome Filter needs to finish a point query,
// possibly deferring to the PBF.
type PointQueryResult struct {
	Found      bool
	DeferToPBF bool
}

// PointQuery descends dense then sparse for keyBytes (the trie_depth-bit
// canonical prefix of the query key), per spec §4.8.
func (l *Layers) PointQuery(keyBytes []byte, remainder func(level int) (hi, lo uint64)) PointQueryResult {
	if l.Dense == nil && l.Sparse == nil {
		return PointQueryResult{Found: false}
	}
	entryPos := 0
	if l.Dense != nil {
		dr := l.Dense.LookupKey(keyBytes, remainder)
		if dr.Absent {
			return PointQueryResult{Found: false}
		}
		if dr.LeafMatch {
			if dr.DeferToPBF {
				return PointQueryResult{DeferToPBF: true}
			}
			return PointQueryResult{Found: dr.Matched}
		}
		// ContinueSparse
		if l.Sparse == nil {
			return PointQueryResult{Found: false}
		}
		entryPos = l.Sparse.NodeStart(dr.NodeNum)
	}
	if l.Sparse == nil {
		return PointQueryResult{Found: false}
	}
	sr := l.Sparse.LookupKey(entryPos, keyBytes, remainder)
	if sr.Absent {
		return PointQueryResult{Found: false}
	}
	if sr.DeferToPBF {
		return PointQueryResult{DeferToPBF: true}
	}
	return PointQueryResult{Found: sr.Matched}
}
