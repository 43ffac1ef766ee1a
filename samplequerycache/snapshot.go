package samplequerycache

import (
	"github.com/fxamacker/cbor/v2"

	"github.com/datatrails/go-datatrails-common/logger"
)

// Snapshot encodes the cache's current contents as CBOR, the encoding
// the teacher uses for its own commit-log checkpoints
// (massifs/cborcodec.go). Persistence is optional: a policy layer that
// restarts between compactions can carry a sample forward instead of
// starting cold.
func (c *Cache[K]) Snapshot() ([]byte, error) {
	c.mu.Lock()
	queries := make([]Query[K], len(c.queries))
	copy(queries, c.queries)
	c.mu.Unlock()

	buf, err := cbor.Marshal(queries)
	if err != nil {
		return nil, err
	}
	logger.Sugar.Debugf("samplequerycache: snapshot %d queries, %d bytes", len(queries), len(buf))
	return buf, nil
}

// LoadSnapshot replaces the cache's contents with a previously captured
// Snapshot image. The restored queries count as the oldest entries:
// subsequent Add calls evict them first once the cache fills.
func (c *Cache[K]) LoadSnapshot(buf []byte) error {
	var queries []Query[K]
	if err := cbor.Unmarshal(buf, &queries); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(queries) > c.cap {
		queries = queries[len(queries)-c.cap:]
	}
	c.queries = queries
	c.nextSlot = 0
	logger.Sugar.Debugf("samplequerycache: loaded %d queries from snapshot", len(queries))
	return nil
}
