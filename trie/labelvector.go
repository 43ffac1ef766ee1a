package trie

import "encoding/binary"

// LabelVector is the concatenation of sparse-node label bytes in
// level-order: one contiguous byte range per level, each node's labels
// sorted ascending within that range (spec §4.2, invariant I4).
type LabelVector struct {
	bytes []byte
}

// NewLabelVector wraps an existing byte slice (used during deserialize or
// by the builder, which appends to it directly).
func NewLabelVector(b []byte) *LabelVector { return &LabelVector{bytes: b} }

// Len returns the number of labels stored.
func (lv *LabelVector) Len() int { return len(lv.bytes) }

// Read returns the label byte at pos.
func (lv *LabelVector) Read(pos int) byte { return lv.bytes[pos] }

// Append appends a label byte, used only by the builder.
func (lv *LabelVector) Append(b byte) { lv.bytes = append(lv.bytes, b) }

// Search performs a linear scan of the node_size bytes starting at
// start_pos for an exact match of label. Ties break on exact match; if
// none exists it returns found=false.
func (lv *LabelVector) Search(label byte, startPos, nodeSize int) (pos int, found bool) {
	end := startPos + nodeSize
	if end > len(lv.bytes) {
		end = len(lv.bytes)
	}
	for i := startPos; i < end; i++ {
		if lv.bytes[i] == label {
			return i, true
		}
	}
	return 0, false
}

// SearchGreaterThan returns the position of the first label strictly
// greater than label within the node_size bytes starting at start_pos.
// Labels within a node are ascending (I4), so this is the first byte in
// the scan exceeding label.
func (lv *LabelVector) SearchGreaterThan(label byte, startPos, nodeSize int) (pos int, found bool) {
	end := startPos + nodeSize
	if end > len(lv.bytes) {
		end = len(lv.bytes)
	}
	for i := startPos; i < end; i++ {
		if lv.bytes[i] > label {
			return i, true
		}
	}
	return 0, false
}

// SerializeByteLen returns the byte length SerializeInto will write.
func (lv *LabelVector) SerializeByteLen() int {
	return padTo8(4 + len(lv.bytes))
}

// SerializeInto writes u32 length then the raw label bytes, padded to 8.
func (lv *LabelVector) SerializeInto(dst []byte) (int, error) {
	n := lv.SerializeByteLen()
	if len(dst) < n {
		return 0, ErrTruncated
	}
	binary.LittleEndian.PutUint32(dst[0:4], uint32(len(lv.bytes)))
	copy(dst[4:4+len(lv.bytes)], lv.bytes)
	for i := 4 + len(lv.bytes); i < n; i++ {
		dst[i] = 0
	}
	return n, nil
}

// DeserializeLabelVector reads an image produced by SerializeInto.
func DeserializeLabelVector(src []byte) (*LabelVector, int, error) {
	if len(src) < 4 {
		return nil, 0, ErrTruncated
	}
	n := int(binary.LittleEndian.Uint32(src[0:4]))
	if len(src) < 4+n {
		return nil, 0, ErrTruncated
	}
	b := make([]byte, n)
	copy(b, src[4:4+n])
	total := padTo8(4 + n)
	return &LabelVector{bytes: b}, total, nil
}

func padTo8(n int) int {
	if n%8 == 0 {
		return n
	}
	return n + (8 - n%8)
}
