package permissions

import "github.com/guildhall-io/guildhall/internal/models"

// Policy adjusts a computed flag map based on resource state. Policies are
// pure and order-dependent: each receives the previous policy's output and
// may only remove flags, never add them. All data a policy needs is already
// in the snapshot and actor context.
type Policy func(flags FlagMap, snap *Snapshot, actor *ActorContext) FlagMap

// pipelines is the ordered policy chain per resource type. New policies are
// additive entries here, not conditionals scattered through handlers.
var pipelines = map[ResourceType][]Policy{
	ResourceSpace: {},
	ResourcePage: {
		pageConvertedLock,
		tierSharingRestriction,
	},
	ResourcePost: {
		postDraftLock,
		postLocked,
	},
	ResourcePostCategory: {},
	ResourceReward: {
		rewardSuggestionLock,
		rewardTerminalStatus,
		rewardSubmissionsLock,
	},
	ResourceProposal: {
		proposalDraftLock,
		proposalArchivedLock,
		tierSharingRestriction,
	},
	ResourceProposalEvaluation: {
		evaluationArchivedLock,
		evaluationStepGate,
		evaluationAppealGate,
	},
}

// pageConvertedLock freezes a page once it has been converted into a
// proposal: the page becomes a read-only artifact for everyone but admins.
func pageConvertedLock(flags FlagMap, snap *Snapshot, actor *ActorContext) FlagMap {
	if snap.Page == nil || snap.Page.ConvertedProposalID == nil {
		return flags
	}
	if actor != nil && actor.IsAdmin {
		return flags
	}
	flags.deny(OpEdit, OpDelete)
	return flags
}

// tierSharingRestriction strips public-sharing operations on tiers without
// the capability. Admins are exempt: tier gates concern the space, and an
// admin's bypass covers them like any other policy.
func tierSharingRestriction(flags FlagMap, snap *Snapshot, actor *ActorContext) FlagMap {
	if actor != nil && actor.IsAdmin {
		return flags
	}
	if !TierAllows(snap.SpaceTier, CapPublicSharing) {
		flags.deny(OpMakePublic)
	}
	return flags
}

// postDraftLock hides draft posts from everyone but their author.
func postDraftLock(flags FlagMap, snap *Snapshot, actor *ActorContext) FlagMap {
	if snap.Post == nil || !snap.Post.IsDraft {
		return flags
	}
	if actor != nil && (actor.IsAdmin || actor.UserID == snap.CreatedBy) {
		return flags
	}
	flags.denyAllExcept()
	return flags
}

// postLocked stops further interaction with a locked post while leaving it
// readable.
func postLocked(flags FlagMap, snap *Snapshot, actor *ActorContext) FlagMap {
	if snap.Post == nil || !snap.Post.Locked {
		return flags
	}
	if actor != nil && actor.IsAdmin {
		return flags
	}
	flags.deny(OpEdit, OpComment, OpVote)
	return flags
}

// rewardSuggestionLock keeps a suggested reward inert until it is approved:
// only viewing survives for non-admin, non-creator actors.
func rewardSuggestionLock(flags FlagMap, snap *Snapshot, actor *ActorContext) FlagMap {
	if snap.Reward == nil || snap.Reward.Status != models.RewardStatusSuggestion {
		return flags
	}
	if actor != nil && (actor.IsAdmin || actor.UserID == snap.CreatedBy) {
		return flags
	}
	flags.denyAllExcept(OpView)
	return flags
}

// rewardTerminalStatus blocks new work on completed or paid rewards for
// every actor, admins included: late submissions against a settled payout
// would corrupt the payment record.
func rewardTerminalStatus(flags FlagMap, snap *Snapshot, actor *ActorContext) FlagMap {
	if snap.Reward == nil {
		return flags
	}
	switch snap.Reward.Status {
	case models.RewardStatusComplete:
		flags.deny(OpWork)
	case models.RewardStatusPaid:
		flags.deny(OpWork, OpMarkPaid)
	}
	return flags
}

// rewardSubmissionsLock suspends new work while submissions are locked.
func rewardSubmissionsLock(flags FlagMap, snap *Snapshot, actor *ActorContext) FlagMap {
	if snap.Reward == nil || !snap.Reward.SubmissionsLocked {
		return flags
	}
	if actor != nil && actor.IsAdmin {
		return flags
	}
	flags.deny(OpWork)
	return flags
}

// proposalDraftLock hides draft proposals from everyone but their author.
func proposalDraftLock(flags FlagMap, snap *Snapshot, actor *ActorContext) FlagMap {
	if snap.Proposal == nil || snap.Proposal.Status != models.ProposalStatusDraft {
		return flags
	}
	if actor != nil && (actor.IsAdmin || actor.UserID == snap.CreatedBy) {
		return flags
	}
	flags.denyAllExcept()
	return flags
}

// proposalArchivedLock freezes an archived proposal. Archival is terminal
// state, not a permission decision: the move operation stays blocked even
// for admins. Non-admins additionally lose mutation, and when an admin did
// the archiving only an admin may bring the proposal back.
func proposalArchivedLock(flags FlagMap, snap *Snapshot, actor *ActorContext) FlagMap {
	if snap.Proposal == nil || !snap.Proposal.Archived {
		return flags
	}

	flags.deny(OpMove)

	if actor != nil && actor.IsAdmin {
		return flags
	}

	flags.deny(OpEdit, OpDelete, OpArchive, OpMakePublic)
	if snap.Proposal.ArchivedByAdmin {
		flags.deny(OpUnarchive)
	}
	return flags
}

// evaluationArchivedLock blocks evaluation-advancing operations once the
// parent proposal is archived, for every actor including admins.
func evaluationArchivedLock(flags FlagMap, snap *Snapshot, actor *ActorContext) FlagMap {
	if snap.Evaluation == nil || !snap.Evaluation.ProposalArchived {
		return flags
	}
	flags.deny(OpEvaluate, OpEvaluateAppeal, OpMove)
	return flags
}

// evaluationStepGate keeps evaluate usable only on the active, undecided
// step, and only for registered reviewers. The base computer grants the
// flag; this gate removes it whenever any condition fails.
func evaluationStepGate(flags FlagMap, snap *Snapshot, actor *ActorContext) FlagMap {
	state := snap.Evaluation
	if state == nil {
		return flags
	}
	if actor != nil && actor.IsAdmin {
		return flags
	}

	registered := false
	if actor != nil && !actor.Anonymous() {
		if _, ok := state.ReviewerUserIDs[actor.UserID]; ok {
			registered = true
		} else if actor.HoldsAnyRole(state.ReviewerRoleIDs) {
			registered = true
		}
	}

	if !state.IsCurrentStep || state.HasResult || !registered {
		flags.deny(OpEvaluate)
	}
	return flags
}

// evaluationAppealGate allows evaluate_appeal only while an open appeal
// still needs reviews, and only for registered appeal reviewers. The review
// quota binds every actor, admins included: once the required number of
// appeal reviews is recorded the appeal is settled data.
func evaluationAppealGate(flags FlagMap, snap *Snapshot, actor *ActorContext) FlagMap {
	state := snap.Evaluation
	if state == nil {
		return flags
	}

	required := state.AppealRequiredReviews
	if required <= 0 {
		required = 1
	}
	quotaExhausted := state.AppealReviewCount >= required

	if !state.Appealable || state.AppealedAt == nil || quotaExhausted {
		flags.deny(OpEvaluateAppeal)
		return flags
	}

	if actor != nil && actor.IsAdmin {
		return flags
	}

	registered := false
	if actor != nil && !actor.Anonymous() {
		if _, ok := state.AppealReviewerUserIDs[actor.UserID]; ok {
			registered = true
		} else if actor.HoldsAnyRole(state.AppealReviewerRoleIDs) {
			registered = true
		}
	}
	if !registered {
		flags.deny(OpEvaluateAppeal)
	}
	return flags
}
