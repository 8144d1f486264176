package permissions

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/guildhall-io/guildhall/internal/models"
)

func TestTierAllowsIsMonotonic(t *testing.T) {
	ordered := []string{
		models.TierReadonly,
		models.TierFree,
		models.TierBronze,
		models.TierSilver,
		models.TierGold,
	}

	capabilities := []Capability{
		CapPublicSharing,
		CapCustomDomain,
		CapRoleReviewerExpansion,
		CapAPIAccess,
		CapTokenGateChains,
	}

	for _, capability := range capabilities {
		seen := false
		for _, tier := range ordered {
			allowed := TierAllows(tier, capability)
			if seen {
				require.True(t, allowed,
					"capability %s lost when upgrading to %s", capability, tier)
			}
			seen = seen || allowed
		}
		require.True(t, seen, "capability %s is unreachable on every tier", capability)
	}
}

func TestTierCapabilityFloors(t *testing.T) {
	require.False(t, TierAllows(models.TierReadonly, CapPublicSharing))
	require.True(t, TierAllows(models.TierFree, CapPublicSharing))

	require.False(t, TierAllows(models.TierFree, CapRoleReviewerExpansion))
	require.True(t, TierAllows(models.TierBronze, CapRoleReviewerExpansion))

	require.False(t, TierAllows(models.TierBronze, CapAPIAccess))
	require.True(t, TierAllows(models.TierSilver, CapAPIAccess))
	require.True(t, TierAllows(models.TierSilver, CapTokenGateChains))
}

func TestGrantTierMatchesGold(t *testing.T) {
	for _, capability := range []Capability{
		CapPublicSharing, CapCustomDomain, CapRoleReviewerExpansion,
		CapAPIAccess, CapTokenGateChains,
	} {
		require.Equal(t,
			TierAllows(models.TierGold, capability),
			TierAllows(models.TierGrant, capability),
			"grant tier must mirror gold for %s", capability)
	}
}

func TestTierAllowsUnknownInputsDeny(t *testing.T) {
	require.False(t, TierAllows("platinum", CapPublicSharing))
	require.False(t, TierAllows("", CapPublicSharing))
	require.False(t, TierAllows(models.TierGold, Capability("time_travel")))
}

func TestWorkflowLimits(t *testing.T) {
	require.Equal(t, 3, WorkflowLimit(models.TierFree))
	require.Equal(t, 10, WorkflowLimit(models.TierBronze))
	require.Equal(t, 0, WorkflowLimit(models.TierGold), "gold is unlimited")
	require.Equal(t, 0, WorkflowLimit(models.TierGrant))

	// unknown tiers fall back to the free limit
	require.Equal(t, WorkflowLimit(models.TierFree), WorkflowLimit("platinum"))
}
