package prefixbloom

import (
	"math"
)

// maxK is the hard ceiling on hash-function count, per spec §4.7's
// k = min(32, max(1, round(ln2 * nbits / distinctPrefixes))).
const maxK = 32

// ChooseK picks the number of hash probes for a filter sized nbits wide
// holding distinctPrefixes distinct values.
func ChooseK(nbits uint64, distinctPrefixes uint64) int {
	if distinctPrefixes == 0 {
		return 1
	}
	raw := math.Ln2 * float64(nbits) / float64(distinctPrefixes)
	k := int(math.Round(raw))
	if k < 1 {
		k = 1
	}
	if k > maxK {
		k = maxK
	}
	return k
}

// BitsetBytes returns ceil(nbits/8).
func BitsetBytes(nbits uint32) uint32 {
	return (nbits + 7) / 8
}

// ClampIntegerBits clamps a computed bit budget to math.MaxUint32, the
// integer-path behavior the original source applies but deliberately
// does not apply on the string path (spec §9's "The source clamps PBF
// bit count to UINT32_MAX for integer keys but not for strings").
func ClampIntegerBits(bits uint64) uint32 {
	if bits > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(bits)
}

// EstimateFPR models the single-probe false positive rate of a filter
// sized m bits holding n distinct entries with k probes each, per spec
// §4.9's "(1 - exp(-k*n/m))^k".
func EstimateFPR(m, n uint64, k int) float64 {
	if m == 0 {
		return 1
	}
	base := 1 - math.Exp(-float64(k)*float64(n)/float64(m))
	return math.Pow(base, float64(k))
}
