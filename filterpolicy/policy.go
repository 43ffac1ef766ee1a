// Package filterpolicy defines the thin external-collaborator adapter
// named by spec §6: something like a RocksDB FilterPolicy that supplies
// a bits-per-key budget, drives the build side (model then build), and
// on the read side only ever queries.
package filterpolicy

import (
	"github.com/datatrails/go-rangefilter/keyrepr"
	"github.com/datatrails/go-rangefilter/modeler"
	"github.com/datatrails/go-rangefilter/rangefilter"
	"github.com/datatrails/go-rangefilter/samplequerycache"
)

// Policy is the external collaborator interface of spec §6: "provides
// bits_per_key, calls model then build; on read side it calls
// point_query/range_query and never mutates the filter."
type Policy[K any] interface {
	BitsPerKey() float64
	Model(kr keyrepr.KeyRepr[K], keys []K, samples []samplequerycache.Query[K]) rangefilter.Params
	Build(kr keyrepr.KeyRepr[K], keys []K, params rangefilter.Params) (*rangefilter.Filter[K], error)
	PointQuery(f *rangefilter.Filter[K], k K) bool
	RangeQuery(f *rangefilter.Filter[K], l, r K) bool
}

// DefaultPolicy is the straightforward implementation: Model defers to
// modeler.Model, Build defers to rangefilter.Build, and the read side is
// a pass-through. A caller embedding Policy in, say, a compaction hook
// gets working behavior without writing any glue.
type DefaultPolicy[K any] struct {
	BitsPerKeyValue float64
	MaxKeyBits      uint32
}

var _ Policy[uint64] = DefaultPolicy[uint64]{}

func (p DefaultPolicy[K]) BitsPerKey() float64 { return p.BitsPerKeyValue }

func (p DefaultPolicy[K]) Model(kr keyrepr.KeyRepr[K], keys []K, samples []samplequerycache.Query[K]) rangefilter.Params {
	in := modeler.Input[K]{
		Keys:       keys,
		BitsPerKey: p.BitsPerKeyValue,
		MaxKeyBits: p.MaxKeyBits,
	}
	in.Samples = make([]modeler.SampleQuery[K], len(samples))
	for i, s := range samples {
		in.Samples[i] = modeler.SampleQuery[K]{Left: s.Left, Right: s.Right}
	}

	res := modeler.Model(kr, in)
	return rangefilter.Params{
		TrieDepthBits:   res.TrieDepthBits,
		CutoffBytes:     res.CutoffBytes,
		BFPrefixLenBits: res.BFPrefixLenBits,
		BitsPerKey:      p.BitsPerKeyValue,
	}
}

func (p DefaultPolicy[K]) Build(kr keyrepr.KeyRepr[K], keys []K, params rangefilter.Params) (*rangefilter.Filter[K], error) {
	return rangefilter.Build(kr, keys, params)
}

func (p DefaultPolicy[K]) PointQuery(f *rangefilter.Filter[K], k K) bool {
	return f.PointQuery(k)
}

func (p DefaultPolicy[K]) RangeQuery(f *rangefilter.Filter[K], l, r K) bool {
	return f.RangeQuery(l, r)
}
