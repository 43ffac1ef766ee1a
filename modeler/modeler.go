// Package modeler implements spec §4.9's Layout Modeler: given a sorted
// key set, a sample of empty range queries, and a bits-per-key budget, it
// chooses the (trie_depth, sparse_dense_cutoff, bf_prefix_len) triple
// that minimizes the modeled expected false-positive rate.
package modeler

import (
	"math"
	"sort"

	"github.com/datatrails/go-datatrails-common/logger"

	"github.com/datatrails/go-rangefilter/keyrepr"
	"github.com/datatrails/go-rangefilter/prefixbloom"
)

// SampleQuery is one empty-range query drawn from the workload, per
// spec §4.9's "sorted sample of empty range queries".
type SampleQuery[K any] struct {
	Left, Right K
}

// Input bundles the Modeler's inputs.
type Input[K any] struct {
	Keys       []K
	Samples    []SampleQuery[K]
	BitsPerKey float64
	MaxKeyBits uint32
}

// Result is the chosen (trie_depth, sparse_dense_cutoff, bf_prefix_len)
// triple, per spec §4.9's output.
type Result struct {
	TrieDepthBits   uint32
	CutoffBytes     uint32
	BFPrefixLenBits uint32
}

// dense level cost per spec §4.9: "2*256 * (#distinct prefixes one byte
// above) bits"; sparse level cost: "10 bits per emitted label (8 label +
// 1 child_indicator + 1 LOUDS)".
const (
	denseBitsPerNode  = 2 * 256
	sparseBitsPerEdge = 10
	metadataOverhead  = 256 // fixed per-instance overhead
)

// Model runs the full algorithm of spec §4.9 and returns the chosen
// params.
func Model[K any](kr keyrepr.KeyRepr[K], in Input[K]) Result {
	n := len(in.Keys)
	M := in.MaxKeyBits
	if M == 0 {
		M = kr.MaxKeyBits()
	}
	isInt := kr.IsInteger()

	totalBits := uint64(in.BitsPerKey * float64(n))

	counts := countUniquePrefixes(kr, in.Keys, M) // counts[l] = #distinct prefixes of length l bits, l in [0,M]

	maxD := maxTrieDepth(counts, totalBits, M)

	depthCandidates := trieDepthCandidates(isInt, maxD)
	prefixCandidates := bfPrefixCandidates(isInt, M)

	best := candidateResult{fpr: math.Inf(1)}
	haveBest := false

	emptySamples := filterEmpty(kr, in.Keys, in.Samples)
	if len(emptySamples) == 0 {
		logger.Sugar.Infof("modeler: no empty sample queries, returning safe default (no trie, P=M/2)")
		return Result{TrieDepthBits: 0, CutoffBytes: 0, BFPrefixLenBits: M / 2}
	}

	for _, D := range depthCandidates {
		C, trieMem := bestCutoff(counts, D, M)
		if trieMem > totalBits {
			continue // infeasible: trie alone exceeds the budget
		}
		bfBits := totalBits - trieMem

		resolvedInTrie := 0
		for i := range emptySamples {
			lcp := maxU32(emptySamples[i].lcpLeft, emptySamples[i].lcpRight)
			if D > lcp {
				resolvedInTrie++
			}
		}

		for _, P := range prefixCandidates {
			if P == 0 {
				continue
			}
			fpr := estimateFPR(kr, emptySamples, D, P, bfBits, counts)
			if !haveBest || fpr < best.fpr || (fpr == best.fpr && (D > best.D || (D == best.D && P > best.P))) {
				best = candidateResult{D: D, C: C, P: P, fpr: fpr}
				haveBest = true
			}
		}

		if resolvedInTrie == len(emptySamples) {
			// The trie alone resolves every sampled query; still pick a
			// PBF prefix length for robustness against unseen queries.
			robustP := (D + M) / 2
			if robustP == 0 {
				robustP = 1
			}
			fpr := estimateFPR(kr, emptySamples, D, robustP, bfBits, counts)
			if !haveBest || fpr < best.fpr {
				best = candidateResult{D: D, C: C, P: robustP, fpr: fpr}
				haveBest = true
			}
		}
	}

	if !haveBest {
		return Result{TrieDepthBits: 0, CutoffBytes: 0, BFPrefixLenBits: M / 2}
	}

	// Second refinement pass: strings with M > 64 and a non-trivial
	// winning P get a denser grid around the winner, per spec §5.1.
	if !isInt && M > 64 && best.P > 1 {
		refined := refineAroundP(kr, emptySamples, best, totalBits, counts, M)
		if refined.fpr <= best.fpr {
			best = refined
		}
	}

	logger.Sugar.Infof("modeler: chosen trie_depth=%d cutoff=%d bf_prefix_len=%d modeled_fpr=%.6f",
		best.D, best.C, best.P, best.fpr)

	return Result{TrieDepthBits: best.D, CutoffBytes: best.C, BFPrefixLenBits: best.P}
}

// candidateResult is a single (trie_depth, cutoff, bf_prefix_len)
// candidate and its modeled false-positive rate.
type candidateResult struct {
	D, C, P uint32
	fpr     float64
}

func refineAroundP[K any](kr keyrepr.KeyRepr[K], samples []emptySample[K], best candidateResult, totalBits uint64, counts []uint64, M uint32) candidateResult {
	lo := best.P / 2
	if lo == 0 {
		lo = 1
	}
	hi := best.P + (M-best.P)/2
	if hi > M {
		hi = M
	}
	_, trieMem := bestCutoff(counts, best.D, M)
	var bfBits uint64
	if totalBits > trieMem {
		bfBits = totalBits - trieMem
	}
	refined := best
	step := (hi - lo) / 16
	if step == 0 {
		step = 1
	}
	for p := lo; p <= hi; p += step {
		if p == 0 {
			continue
		}
		fpr := estimateFPR(kr, samples, best.D, p, bfBits, counts)
		if fpr < refined.fpr {
			refined = candidateResult{D: best.D, C: best.C, P: p, fpr: fpr}
		}
	}
	return refined
}

// countUniquePrefixes computes, for every prefix length l in [0, M],
// the number of distinct prefixes of length l bits in the sorted key
// set, via one pass of pairwise LCPs plus a rolling histogram, per spec
// §4.9 step 1.
func countUniquePrefixes[K any](kr keyrepr.KeyRepr[K], keys []K, M uint32) []uint64 {
	counts := make([]uint64, M+1)
	n := len(keys)
	if n == 0 {
		return counts
	}
	// hist[v] = number of adjacent pairs whose LCP is exactly v bits.
	hist := make([]uint64, M+2)
	for i := 1; i < n; i++ {
		lcp := kr.LongestCommonPrefix(keys[i-1], keys[i])
		if lcp > M {
			lcp = M
		}
		hist[lcp]++
	}
	// atLeast[l] = number of adjacent pairs with LCP >= l.
	atLeast := make([]uint64, M+2)
	var running uint64
	for v := int(M); v >= 0; v-- {
		running += hist[v]
		atLeast[v] = running
	}
	for l := uint32(0); l <= M; l++ {
		counts[l] = uint64(n) - atLeast[l]
		if counts[l] == 0 {
			counts[l] = 1
		}
	}
	return counts
}

// calcTrieMem estimates the bit cost of a trie of depth D bits with
// cutoff C bytes, per spec §4.9 step 2.
func calcTrieMem(counts []uint64, D uint32, C uint32) uint64 {
	nBytes := (D + 7) / 8
	if C > nBytes {
		C = nBytes
	}
	var mem uint64
	for level := uint32(0); level < C; level++ {
		nodesAbove := counts[minU32(level*8, uint32(len(counts)-1))]
		mem += nodesAbove * denseBitsPerNode
	}
	for level := C; level < nBytes; level++ {
		edgeBits := minU32((level+1)*8, D)
		edges := counts[minU32(edgeBits, uint32(len(counts)-1))]
		mem += edges * sparseBitsPerEdge
	}
	mem += mem / 128 // rank/select LUT overhead, proportional to level sizes
	mem += metadataOverhead
	return mem
}

// bestCutoff picks the cheapest sparse/dense cutoff C (bytes) for a
// given trie depth D.
func bestCutoff(counts []uint64, D uint32, M uint32) (uint32, uint64) {
	nBytes := (D + 7) / 8
	bestC := uint32(0)
	bestMem := calcTrieMem(counts, D, 0)
	for c := uint32(1); c <= nBytes; c++ {
		mem := calcTrieMem(counts, D, c)
		if mem < bestMem {
			bestMem = mem
			bestC = c
		}
	}
	return bestC, bestMem
}

// maxTrieDepth returns the largest D for which calcTrieMem's cheapest
// cutoff fits within totalBits.
func maxTrieDepth(counts []uint64, totalBits uint64, M uint32) uint32 {
	var maxD uint32
	for d := uint32(0); d <= M; d++ {
		_, mem := bestCutoff(counts, d, M)
		if mem > totalBits {
			break
		}
		maxD = d
	}
	return maxD
}

func trieDepthCandidates(isInt bool, maxD uint32) []uint32 {
	if isInt {
		out := make([]uint32, 0, maxD+1)
		for d := uint32(0); d <= maxD; d++ {
			out = append(out, d)
		}
		return out
	}
	const strideCount = 64
	if maxD <= strideCount {
		out := make([]uint32, 0, maxD+1)
		for d := uint32(0); d <= maxD; d++ {
			out = append(out, d)
		}
		return out
	}
	out := make([]uint32, 0, strideCount+1)
	step := maxD / strideCount
	for d := uint32(0); d <= maxD; d += step {
		out = append(out, d)
	}
	if out[len(out)-1] != maxD {
		out = append(out, maxD)
	}
	return out
}

func bfPrefixCandidates(isInt bool, M uint32) []uint32 {
	if isInt {
		out := make([]uint32, 0, 64)
		for p := uint32(1); p <= 64 && p <= M; p++ {
			out = append(out, p)
		}
		return out
	}
	const count = 64
	if M <= count {
		out := make([]uint32, 0, M)
		for p := uint32(1); p <= M; p++ {
			out = append(out, p)
		}
		return out
	}
	out := make([]uint32, 0, count)
	step := M / count
	for p := uint32(1); p <= M; p += step {
		out = append(out, p)
	}
	return out
}

// emptySample is a filtered, pre-resolved empty-range sample: lcpLeft is
// the LCP of q.Left against the nearest key at or below it, lcpRight is
// the LCP of q.Right against the nearest key at or above it.
type emptySample[K any] struct {
	left, right       K
	lcpLeft, lcpRight uint32
}

func filterEmpty[K any](kr keyrepr.KeyRepr[K], keys []K, samples []SampleQuery[K]) []emptySample[K] {
	bits := kr.MaxKeyBits()
	out := make([]emptySample[K], 0, len(samples))
	for _, q := range samples {
		leftIdx := lowerBound(kr, keys, q.Left, bits)
		if leftIdx < len(keys) && kr.CompareAtPrefix(keys[leftIdx], bits, kr.Prefix(q.Right, bits)) <= 0 {
			continue // contains a key: positive, drop per spec §4.9
		}
		var lcpLeft, lcpRight uint32
		if leftIdx > 0 {
			lcpLeft = kr.LongestCommonPrefix(q.Left, keys[leftIdx-1])
		}
		rightIdx := lowerBound(kr, keys, q.Right, bits)
		if rightIdx < len(keys) {
			lcpRight = kr.LongestCommonPrefix(q.Right, keys[rightIdx])
		}
		out = append(out, emptySample[K]{left: q.Left, right: q.Right, lcpLeft: lcpLeft, lcpRight: lcpRight})
	}
	return out
}

// lowerBound returns the index of the first key >= bound.
func lowerBound[K any](kr keyrepr.KeyRepr[K], keys []K, bound K, bits uint32) int {
	target := kr.Prefix(bound, bits)
	return sort.Search(len(keys), func(i int) bool {
		return kr.CompareAtPrefix(keys[i], bits, target) >= 0
	})
}

// estimateFPR implements spec §4.9 step 4: for every sample not
// resolved by the trie at depth D, bucket its induced PBF prefix-query
// count by floor(log2(count)) and model the expected per-query FPR.
func estimateFPR[K any](kr keyrepr.KeyRepr[K], samples []emptySample[K], D, P uint32, bfBits uint64, counts []uint64) float64 {
	const bins = 64
	var binPop, binSum [bins]uint64
	var guaranteedFP int

	distinctAtP := uint64(1)
	if int(P) < len(counts) {
		distinctAtP = counts[P]
	} else if len(counts) > 0 {
		distinctAtP = counts[len(counts)-1]
	}
	k := prefixbloom.ChooseK(bfBits, distinctAtP)
	fprSingle := prefixbloom.EstimateFPR(bfBits, distinctAtP, k)

	for _, s := range samples {
		lcp := maxU32(s.lcpLeft, s.lcpRight)
		if D > lcp {
			continue
		}
		count, ok := kr.CountPrefixesBetween(s.left, s.right, P)
		if !ok || count == 0 {
			guaranteedFP++
			continue
		}
		bin := int(math.Log2(float64(count)))
		if bin < 0 {
			bin = 0
		}
		if bin >= bins {
			bin = bins - 1
		}
		binPop[bin]++
		binSum[bin] += count
	}

	total := float64(len(samples))
	if total == 0 {
		return 0
	}
	var sumFPR float64
	for b := 0; b < bins; b++ {
		if binPop[b] == 0 {
			continue
		}
		avgCount := float64(binSum[b]) / float64(binPop[b])
		perQueryFPR := 1 - math.Pow(1-fprSingle, avgCount)
		sumFPR += perQueryFPR * float64(binPop[b])
	}
	sumFPR += float64(guaranteedFP) * 1.0
	return sumFPR / total
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
