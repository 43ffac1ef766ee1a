package rangefilter

import "errors"

var (
	ErrInvalidCutoff       = errors.New("rangefilter: sparse_dense_cutoff*8 must be < trie_depth+8")
	ErrTrieDepthTooLarge   = errors.New("rangefilter: trie_depth_bits exceeds the key type's max length")
	ErrPrefixLenTooLarge   = errors.New("rangefilter: bf_prefix_len_bits exceeds the key type's max length")
	ErrNegativeBudget      = errors.New("rangefilter: bits_per_key must be >= 0")
	ErrTruncated           = errors.New("rangefilter: truncated serialized image")
	ErrBadMagic            = errors.New("rangefilter: bad magic in serialized image")
)
