package rangefilter

import (
	"encoding/binary"

	"github.com/datatrails/go-rangefilter/keyrepr"
	"github.com/datatrails/go-rangefilter/prefixbloom"
	"github.com/datatrails/go-rangefilter/trie"
)

// SerializeByteLen returns the byte length SerializeInto will write, the
// top-level shape named by spec §6's serialization format.
func (f *Filter[K]) SerializeByteLen() int {
	n := 8 // trie_depth_bits, sparse_dense_cutoff_bytes
	n = padTo8(n)
	if f.trieDepthBits > 0 {
		if f.layers.Dense != nil {
			n += f.layers.Dense.SerializeByteLen()
		}
		if f.layers.Sparse != nil {
			n += f.layers.Sparse.SerializeByteLen()
		}
	}
	n += 1 // has_prefix_filter
	n = padTo8(n)
	if f.pbf != nil {
		n += f.pbf.SerializeByteLen()
	}
	return padTo8(n)
}

// SerializeInto writes the byte-exact little-endian image of spec §6.
func (f *Filter[K]) SerializeInto(dst []byte) (int, error) {
	n := f.SerializeByteLen()
	if len(dst) < n {
		return 0, ErrTruncated
	}
	binary.LittleEndian.PutUint32(dst[0:4], f.trieDepthBits)
	binary.LittleEndian.PutUint32(dst[4:8], f.cutoffBytes)
	off := padTo8(8)

	if f.trieDepthBits > 0 {
		if f.layers.Dense != nil {
			w, err := f.layers.Dense.SerializeInto(dst[off:])
			if err != nil {
				return 0, err
			}
			off += w
		}
		if f.layers.Sparse != nil {
			w, err := f.layers.Sparse.SerializeInto(dst[off:])
			if err != nil {
				return 0, err
			}
			off += w
		}
	}

	if f.pbf != nil {
		dst[off] = '1'
	} else {
		dst[off] = '0'
	}
	off++
	off = padTo8(off)

	if f.pbf != nil {
		w, err := f.pbf.SerializeInto(dst[off:])
		if err != nil {
			return 0, err
		}
		off += w
	}

	for ; off < n; off++ {
		dst[off] = 0
	}
	return n, nil
}

// Deserialize reads an image produced by SerializeInto. kr must be the
// same KeyRepr used to build the original Filter; the image carries no
// type information of its own (spec §3: "Filter" is parameterized over
// K, not self-describing).
func Deserialize[K any](kr keyrepr.KeyRepr[K], src []byte) (*Filter[K], int, error) {
	if len(src) < 8 {
		return nil, 0, ErrTruncated
	}
	trieDepthBits := binary.LittleEndian.Uint32(src[0:4])
	cutoffBytes := binary.LittleEndian.Uint32(src[4:8])
	off := padTo8(8)

	f := &Filter[K]{
		kr:            kr,
		trieDepthBits: trieDepthBits,
		cutoffBytes:   cutoffBytes,
	}

	if trieDepthBits > 0 {
		nBytes := int((trieDepthBits + 7) / 8)
		layers := &trie.Layers{TrieDepthBits: trieDepthBits, CutoffBytes: cutoffBytes, NBytes: nBytes}
		cutoff := int(cutoffBytes)
		if cutoff > nBytes {
			cutoff = nBytes
		}
		if cutoff > 0 {
			dense, w, err := trie.DeserializeDenseLayer(trieDepthBits, src[off:])
			if err != nil {
				return nil, 0, err
			}
			layers.Dense = dense
			off += w
		}
		if cutoff < nBytes {
			sparse, w, err := trie.DeserializeSparseLayer(trieDepthBits, src[off:])
			if err != nil {
				return nil, 0, err
			}
			layers.Sparse = sparse
			off += w
		}
		f.layers = layers
	}

	if off >= len(src) {
		return nil, 0, ErrTruncated
	}
	hasPBF := src[off] == '1'
	off++
	off = padTo8(off)

	if hasPBF {
		pbf, w, err := prefixbloom.DeserializeBloom(src[off:])
		if err != nil {
			return nil, 0, err
		}
		f.pbf = pbf
		f.bfPrefixLenBits = pbf.PrefixLen
		off += w
	}

	off = padTo8(off)
	return f, off, nil
}

func padTo8(n int) int {
	if r := n % 8; r != 0 {
		return n + (8 - r)
	}
	return n
}
