package routerclient

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTierNames(t *testing.T) {
	t.Parallel()

	require.Equal(t, "MEMORY", TierMemory.String())
	require.Equal(t, "DISK", TierDisk.String())
	require.Equal(t, "Tier(42)", Tier(42).String())
}

func TestParseTier(t *testing.T) {
	t.Parallel()

	for tier, name := range tierNames {
		parsed, err := ParseTier(name)
		require.NoError(t, err)
		require.Equal(t, tier, parsed)
	}

	_, err := ParseTier("memory")
	require.Error(t, err)
}

func TestTierIsStorage(t *testing.T) {
	t.Parallel()

	require.True(t, TierMemory.IsStorage())
	require.True(t, TierDisk.IsStorage())
	require.False(t, TierRouting.IsStorage())
	require.False(t, TierUnspecified.IsStorage())
}
