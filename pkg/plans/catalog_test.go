package plans

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	t.Run("known plan", func(t *testing.T) {
		def, err := Get(PlanSpotlight)
		require.NoError(t, err)
		assert.Equal(t, PlanSpotlight, def.ID)
		require.NotNil(t, def.Quota)
		assert.Equal(t, 1, *def.Quota)
		assert.Equal(t, 30, def.PeriodDays)
		assert.False(t, def.Unlimited())
	})

	t.Run("unknown plan", func(t *testing.T) {
		_, err := Get(PlanID("GOLD"))
		require.Error(t, err)
		assert.True(t, IsUnknownPlan(err))
		assert.Contains(t, err.Error(), "GOLD")
	})
}

func TestCatalogInvariants(t *testing.T) {
	defs := All()
	assert.Len(t, defs, 5)

	seen := make(map[PlanID]bool)
	for _, def := range defs {
		assert.False(t, seen[def.ID], "duplicate catalog entry for %s", def.ID)
		seen[def.ID] = true

		assert.Greater(t, def.PeriodDays, 0, "%s must have a positive period", def.ID)
		assert.NotEmpty(t, def.DisplayName)
		if def.IsTrial {
			assert.Zero(t, def.PriceCents, "trial plans are free")
		}
	}
}

func TestUnlimitedPlans(t *testing.T) {
	unlimited, err := Get(PlanUnlimited)
	require.NoError(t, err)
	assert.True(t, unlimited.Unlimited())

	network, err := Get(PlanNetwork)
	require.NoError(t, err)
	assert.True(t, network.Unlimited())
	assert.True(t, network.GrantsNetworkAccess)

	spotlight, err := Get(PlanSpotlight)
	require.NoError(t, err)
	assert.False(t, spotlight.GrantsNetworkAccess)
}
