package rangefilter

// Params is the (trie_depth, sparse_dense_cutoff, bf_prefix_len,
// bits_per_key) tuple named in spec §6's build API, either chosen by
// hand or produced by modeler.Model.
type Params struct {
	TrieDepthBits   uint32
	CutoffBytes     uint32
	BFPrefixLenBits uint32
	BitsPerKey      float64
}

// ValidateParams checks the contract spec §7 calls out as a build-time
// fatal violation, ported from original_source/include/config.hpp's
// sanity checks: cutoff may not exceed the trie's byte-level count
// (cutoff*8 < trie_depth+8), and neither trie_depth nor the PBF prefix length
// may exceed the key type's maximum length.
func ValidateParams(p Params, maxKeyBits uint32) error {
	if uint64(p.CutoffBytes)*8 >= uint64(p.TrieDepthBits)+8 {
		return ErrInvalidCutoff
	}
	if p.TrieDepthBits > maxKeyBits {
		return ErrTrieDepthTooLarge
	}
	if p.BFPrefixLenBits > maxKeyBits {
		return ErrPrefixLenTooLarge
	}
	if p.BitsPerKey < 0 {
		return ErrNegativeBudget
	}
	return nil
}
