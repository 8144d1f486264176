package permissions

import "fmt"

// ResourceType identifies one of the closed set of permissioned resource
// kinds. Each type carries a fixed operation set; operations are never
// interchangeable across types.
type ResourceType string

const (
	ResourceSpace              ResourceType = "space"
	ResourcePage               ResourceType = "page"
	ResourcePost               ResourceType = "post"
	ResourcePostCategory       ResourceType = "post_category"
	ResourceReward             ResourceType = "reward"
	ResourceProposal           ResourceType = "proposal"
	ResourceProposalEvaluation ResourceType = "proposal_evaluation"
)

// ResourceTypes lists every supported resource type.
var ResourceTypes = []ResourceType{
	ResourceSpace,
	ResourcePage,
	ResourcePost,
	ResourcePostCategory,
	ResourceReward,
	ResourceProposal,
	ResourceProposalEvaluation,
}

// Valid reports whether the type is one of the supported resource types.
func (t ResourceType) Valid() bool {
	switch t {
	case ResourceSpace, ResourcePage, ResourcePost, ResourcePostCategory,
		ResourceReward, ResourceProposal, ResourceProposalEvaluation:
		return true
	}
	return false
}

// ParseResourceType validates a wire-level resource type string.
func ParseResourceType(s string) (ResourceType, error) {
	t := ResourceType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w %q", ErrUnknownResourceType, s)
	}
	return t, nil
}

// Operation is a single permissioned action on a resource.
type Operation string

// Operations shared across several resource types.
const (
	OpView    Operation = "view"
	OpEdit    Operation = "edit"
	OpDelete  Operation = "delete"
	OpComment Operation = "comment"
)

// Space operations.
const (
	OpCreatePage          Operation = "create_page"
	OpCreateReward        Operation = "create_reward"
	OpCreateProposal      Operation = "create_proposal"
	OpCreateForumCategory Operation = "create_forum_category"
	OpModerateForums      Operation = "moderate_forums"
	OpDeleteAnyPage       Operation = "delete_any_page"
)

// Page and proposal sharing.
const (
	OpMakePublic Operation = "make_public"
)

// Forum operations.
const (
	OpVote           Operation = "vote"
	OpViewPosts      Operation = "view_posts"
	OpCreatePosts    Operation = "create_posts"
	OpEditCategory   Operation = "edit_category"
	OpDeleteCategory Operation = "delete_category"
)

// Reward operations.
const (
	OpWork     Operation = "work"
	OpReview   Operation = "review"
	OpLock     Operation = "lock"
	OpMarkPaid Operation = "mark_paid"
)

// Proposal and evaluation operations.
const (
	OpMove           Operation = "move"
	OpArchive        Operation = "archive"
	OpUnarchive      Operation = "unarchive"
	OpEvaluate       Operation = "evaluate"
	OpEvaluateAppeal Operation = "evaluate_appeal"
)

// operationSets is the authoritative table from resource type to its closed
// operation set. Order is stable for deterministic JSON output.
var operationSets = map[ResourceType][]Operation{
	ResourceSpace: {
		OpCreatePage, OpCreateReward, OpCreateProposal,
		OpCreateForumCategory, OpModerateForums, OpDeleteAnyPage,
	},
	ResourcePage: {
		OpView, OpEdit, OpComment, OpDelete, OpMakePublic,
	},
	ResourcePost: {
		OpView, OpEdit, OpDelete, OpComment, OpVote,
	},
	ResourcePostCategory: {
		OpViewPosts, OpCreatePosts, OpEditCategory, OpDeleteCategory,
	},
	ResourceReward: {
		OpView, OpEdit, OpDelete, OpWork, OpReview, OpLock, OpMarkPaid,
	},
	ResourceProposal: {
		OpView, OpComment, OpEdit, OpDelete, OpMove,
		OpArchive, OpUnarchive, OpMakePublic,
	},
	ResourceProposalEvaluation: {
		OpView, OpComment, OpEvaluate, OpEvaluateAppeal, OpMove,
	},
}

// OperationsFor returns the closed operation set for a resource type.
func OperationsFor(t ResourceType) []Operation {
	ops := operationSets[t]
	out := make([]Operation, len(ops))
	copy(out, ops)
	return out
}

// Supports reports whether the operation belongs to the type's operation set.
func (t ResourceType) Supports(op Operation) bool {
	for _, candidate := range operationSets[t] {
		if candidate == op {
			return true
		}
	}
	return false
}

// Level is a named capability bucket specific to a resource type. It expands
// to one or more operations through the per-type mapping below.
type Level string

const (
	LevelFullAccess  Level = "full_access"
	LevelEditor      Level = "editor"
	LevelViewComment Level = "view_comment"
	LevelViewer      Level = "viewer"

	LevelModerator   Level = "moderator"
	LevelContributor Level = "contributor"
	LevelMember      Level = "member"
	LevelGuest       Level = "guest"

	LevelCreator   Level = "creator"
	LevelReviewer  Level = "reviewer"
	LevelSubmitter Level = "submitter"
	LevelCommenter Level = "commenter"

	LevelAppealReviewer Level = "appeal_reviewer"
)

// levelOperations maps each (type, level) pair to the operations the level
// expands to. A nil entry means "every operation of the type".
var levelOperations = map[ResourceType]map[Level][]Operation{
	ResourceSpace: {
		LevelModerator: nil,
		LevelMember:    {OpCreatePage, OpCreateProposal},
	},
	ResourcePage: {
		LevelFullAccess:  nil,
		LevelEditor:      {OpView, OpEdit, OpComment},
		LevelViewComment: {OpView, OpComment},
		LevelViewer:      {OpView},
	},
	ResourcePost: {
		LevelModerator:   nil,
		LevelContributor: {OpView, OpComment, OpVote},
		LevelViewer:      {OpView},
	},
	ResourcePostCategory: {
		LevelModerator: nil,
		LevelMember:    {OpViewPosts, OpCreatePosts},
		LevelGuest:     {OpViewPosts},
	},
	ResourceReward: {
		LevelCreator:   nil,
		LevelReviewer:  {OpView, OpReview, OpMarkPaid},
		LevelSubmitter: {OpView, OpWork},
		LevelViewer:    {OpView},
	},
	ResourceProposal: {
		LevelReviewer:  {OpView, OpComment, OpMove},
		LevelCommenter: {OpView, OpComment},
		LevelViewer:    {OpView},
	},
	ResourceProposalEvaluation: {
		LevelReviewer:       {OpView, OpComment, OpEvaluate, OpMove},
		LevelAppealReviewer: {OpView, OpComment, OpEvaluateAppeal},
		LevelViewer:         {OpView},
	},
}

// creatorOperations is the fixed set granted to a resource's recorded
// creator, per type. Types absent from the table grant nothing implicitly;
// a nil entry grants every operation of the type.
var creatorOperations = map[ResourceType][]Operation{
	ResourcePage:         nil,
	ResourcePost:         {OpView, OpEdit, OpDelete, OpComment, OpVote},
	ResourcePostCategory: nil,
	ResourceReward:       nil,
	ResourceProposal: {
		OpView, OpComment, OpEdit, OpDelete, OpMove, OpArchive, OpUnarchive,
	},
}

// publicLevels names the levels a Public assignee may legally carry, per
// type. Public visitors only ever receive read-level operations; the
// assignment APIs enforce this at creation time.
var publicLevels = map[ResourceType]map[Level]struct{}{
	ResourcePage:               {LevelViewer: {}, LevelViewComment: {}},
	ResourcePost:               {LevelViewer: {}},
	ResourcePostCategory:       {LevelGuest: {}},
	ResourceReward:             {LevelViewer: {}},
	ResourceProposal:           {LevelViewer: {}},
	ResourceProposalEvaluation: {LevelViewer: {}},
}

// LevelsFor lists the levels defined for a resource type.
func LevelsFor(t ResourceType) []Level {
	defs := levelOperations[t]
	out := make([]Level, 0, len(defs))
	for level := range defs {
		out = append(out, level)
	}
	return out
}

// LevelValid reports whether the level is defined for the resource type.
func LevelValid(t ResourceType, level Level) bool {
	_, ok := levelOperations[t][level]
	return ok
}

// LevelAllowsPublic reports whether a Public assignee may carry the level.
func LevelAllowsPublic(t ResourceType, level Level) bool {
	_, ok := publicLevels[t][level]
	return ok
}

func expandLevel(t ResourceType, level Level) []Operation {
	ops, ok := levelOperations[t][level]
	if !ok {
		return nil
	}
	if ops == nil {
		return operationSets[t]
	}
	return ops
}

func expandCreator(t ResourceType) []Operation {
	ops, ok := creatorOperations[t]
	if !ok {
		return nil
	}
	if ops == nil {
		return operationSets[t]
	}
	return ops
}
