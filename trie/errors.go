package trie

import "errors"

var (
	// ErrTruncated is returned when a serialized layer image is shorter
	// than its declared metadata requires.
	ErrTruncated = errors.New("trie: truncated buffer")
	// ErrOutOfOrderKeys is a contract violation: the builder requires
	// sorted (non-decreasing) input; keys whose trie-depth prefixes are
	// equal collapse into one.
	ErrOutOfOrderKeys = errors.New("trie: keys out of order")
	// ErrSuffixTooWide is returned when a requested suffix exceeds the
	// 128-bit packed-suffix ceiling.
	ErrSuffixTooWide = errors.New("trie: suffix width exceeds 128 bits")
)
