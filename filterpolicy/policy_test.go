package filterpolicy

import (
	"testing"

	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/stretchr/testify/require"

	"github.com/datatrails/go-rangefilter/keyrepr"
	"github.com/datatrails/go-rangefilter/samplequerycache"
)

func TestDefaultPolicyModelBuildQuery(t *testing.T) {
	logger.New("NOOP")
	defer logger.OnExit()

	kr := keyrepr.Uint64Key{}
	keys := []uint64{10, 20, 30, 40, 50}
	policy := DefaultPolicy[uint64]{BitsPerKeyValue: 20, MaxKeyBits: 64}

	samples := []samplequerycache.Query[uint64]{
		{Left: 15, Right: 19},
		{Left: 41, Right: 49},
	}

	params := policy.Model(kr, keys, samples)
	f, err := policy.Build(kr, keys, params)
	require.NoError(t, err)

	for _, k := range keys {
		require.True(t, policy.PointQuery(f, k))
	}
	require.True(t, policy.RangeQuery(f, 5, 25))
}

func TestDefaultPolicyBitsPerKey(t *testing.T) {
	policy := DefaultPolicy[uint64]{BitsPerKeyValue: 12}
	require.Equal(t, 12.0, policy.BitsPerKey())
}
