package permissions

import "github.com/guildhall-io/guildhall/internal/models"

// Capability names a tier-gated feature. Capabilities concern the space as a
// whole, never an individual actor: tier gates therefore apply to admins and
// members alike.
type Capability string

const (
	CapCustomDomain Capability = "custom_domain"
	CapAPIAccess    Capability = "api_access"
	// CapTokenGateChains allows restricting token gates to specific chains.
	CapTokenGateChains Capability = "token_gate_chains"
	// CapRoleReviewerExpansion allows role assignees to expand to their
	// members for reviewer-style levels on rewards and proposals. Disabled
	// on the free tier; consumed by the role membership resolver.
	CapRoleReviewerExpansion Capability = "role_reviewer_expansion"
	// CapPublicSharing allows making resources visible outside the space.
	CapPublicSharing Capability = "public_sharing"
)

// tierRank orders tiers. The grant tier is issued out-of-band and carries
// gold capabilities.
var tierRank = map[string]int{
	models.TierReadonly: 0,
	models.TierFree:     1,
	models.TierBronze:   2,
	models.TierSilver:   3,
	models.TierGold:     4,
	models.TierGrant:    4,
}

// capabilityFloor holds the minimum tier rank required per capability.
// New tiers or capabilities are additive table entries, not new branches.
var capabilityFloor = map[Capability]int{
	CapPublicSharing:         tierRank[models.TierFree],
	CapCustomDomain:          tierRank[models.TierBronze],
	CapRoleReviewerExpansion: tierRank[models.TierBronze],
	CapAPIAccess:             tierRank[models.TierSilver],
	CapTokenGateChains:       tierRank[models.TierSilver],
}

// workflowLimits caps the number of proposal workflows per tier; zero means
// unlimited.
var workflowLimits = map[string]int{
	models.TierReadonly: 1,
	models.TierFree:     3,
	models.TierBronze:   10,
	models.TierSilver:   25,
	models.TierGold:     0,
	models.TierGrant:    0,
}

// TierAllows reports whether a space on the given tier has the capability.
// It is a pure table lookup; unknown tiers deny everything.
func TierAllows(tier string, capability Capability) bool {
	rank, ok := tierRank[tier]
	if !ok {
		return false
	}
	floor, ok := capabilityFloor[capability]
	if !ok {
		return false
	}
	return rank >= floor
}

// WorkflowLimit returns the maximum number of proposal workflows the tier
// permits; zero means unlimited.
func WorkflowLimit(tier string) int {
	limit, ok := workflowLimits[tier]
	if !ok {
		return workflowLimits[models.TierFree]
	}
	return limit
}
