package main

import (
	"fmt"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/datatrails/go-datatrails-common/logger"

	"github.com/datatrails/go-rangefilter/filterpolicy"
	"github.com/datatrails/go-rangefilter/keyrepr"
	"github.com/datatrails/go-rangefilter/samplequerycache"
)

func main() {
	logger.New("INFO")
	defer logger.OnExit()

	rng := rand.New(rand.NewSource(42))

	fmt.Println("Generating 100000 sorted uint64 keys...")
	keys := make([]uint64, 100000)
	v := uint64(0)
	for i := range keys {
		v += uint64(rng.Intn(997) + 1)
		keys[i] = v
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	cache := samplequerycache.New[uint64](256)
	for i := 0; i < 200; i++ {
		idx := rng.Intn(len(keys) - 1)
		gap := keys[idx+1] - keys[idx]
		if gap < 2 {
			continue
		}
		cache.Add(keys[idx]+1, keys[idx+1]-1)
	}

	kr := keyrepr.Uint64Key{}
	policy := filterpolicy.DefaultPolicy[uint64]{BitsPerKeyValue: 24, MaxKeyBits: 64}

	fmt.Println("Modeling layout from key set and sampled queries...")
	start := time.Now()
	samples := cache.GetSample(func(a, b samplequerycache.Query[uint64]) bool { return a.Left < b.Left })
	params := policy.Model(kr, keys, samples)
	modelTime := time.Since(start)
	fmt.Printf("  trie_depth=%d cutoff=%d bf_prefix_len=%d (%v)\n\n",
		params.TrieDepthBits, params.CutoffBytes, params.BFPrefixLenBits, modelTime)

	fmt.Println("Building filter...")
	start = time.Now()
	f, err := policy.Build(kr, keys, params)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	buildTime := time.Since(start)
	fmt.Printf("  Done in %v\n\n", buildTime)

	stats := f.Stats()
	fmt.Println("Filter stats:")
	fmt.Printf("  Dense bits:  %d\n", stats.DenseBits)
	fmt.Printf("  Sparse bits: %d\n", stats.SparseBits)
	fmt.Printf("  PBF bits:    %d\n", stats.PBFBits)
	fmt.Printf("  Keys:        %d\n\n", stats.NKeys)

	fmt.Println("Verifying no false negatives on point_query...")
	start = time.Now()
	miss := 0
	for _, k := range keys {
		if !policy.PointQuery(f, k) {
			miss++
		}
	}
	fmt.Printf("  %d/%d missed (%v)\n\n", miss, len(keys), time.Since(start))

	fmt.Println("Measuring false positive rate on random non-keys...")
	present := make(map[uint64]struct{}, len(keys))
	for _, k := range keys {
		present[k] = struct{}{}
	}
	trials, falsePositives := 20000, 0
	for i := 0; i < trials; i++ {
		var probe uint64
		for {
			probe = rng.Uint64()
			if _, ok := present[probe]; !ok {
				break
			}
		}
		if policy.PointQuery(f, probe) {
			falsePositives++
		}
	}
	fmt.Printf("  %d/%d false positives (%.4f%%)\n\n", falsePositives, trials,
		100*float64(falsePositives)/float64(trials))

	fmt.Println("Serializing...")
	buf := make([]byte, f.SerializeByteLen())
	n, err := f.SerializeInto(buf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "serialize failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("  %d bytes\n", n)
}
