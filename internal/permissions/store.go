package permissions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/guildhall-io/guildhall/internal/models"
)

// Snapshot bundles everything the engine needs to compute permissions for
// one resource: its assignment rows plus the minimal state fields the policy
// pipeline consumes. Policies never load data of their own.
type Snapshot struct {
	ID        string
	Type      ResourceType
	SpaceID   string
	SpaceTier string
	CreatedBy string

	Assignments []models.PermissionAssignment

	// Exactly one of the following is set, matching Type. Space resources
	// carry none: the space row itself holds no policy-relevant state.
	Page       *PageState
	Post       *PostState
	Reward     *RewardState
	Proposal   *ProposalState
	Evaluation *EvaluationState
}

// PageState carries the page fields the policy pipeline reads.
type PageState struct {
	ConvertedProposalID *string
}

// PostState carries the forum post fields the policy pipeline reads.
type PostState struct {
	IsDraft bool
	Locked  bool
}

// RewardState carries the reward fields the policy pipeline reads.
type RewardState struct {
	Status            string
	SubmissionsLocked bool
}

// ProposalState carries the proposal fields the policy pipeline reads.
type ProposalState struct {
	Status          string
	Archived        bool
	ArchivedByAdmin bool
}

// EvaluationState carries the evaluation-step fields the policy pipeline
// reads, with reviewer registrations pre-loaded so step policies stay pure.
type EvaluationState struct {
	IsCurrentStep         bool
	HasResult             bool
	Appealable            bool
	AppealedAt            *time.Time
	AppealRequiredReviews int
	AppealReviewCount     int
	ProposalArchived      bool

	ReviewerUserIDs       map[string]struct{}
	ReviewerRoleIDs       []string
	AppealReviewerUserIDs map[string]struct{}
	AppealReviewerRoleIDs []string
}

// ReferencedRoleIDs returns every role id the snapshot mentions, across
// assignment rows and evaluation reviewer registrations.
func (s *Snapshot) ReferencedRoleIDs() []string {
	seen := make(map[string]struct{})
	for _, row := range s.Assignments {
		if row.RoleID != nil {
			seen[*row.RoleID] = struct{}{}
		}
	}
	if s.Evaluation != nil {
		for _, id := range s.Evaluation.ReviewerRoleIDs {
			seen[id] = struct{}{}
		}
		for _, id := range s.Evaluation.AppealReviewerRoleIDs {
			seen[id] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out
}

// ListFilter narrows bulk computation to a subset of a space's resources.
type ListFilter struct {
	CreatedBy  string
	Status     string
	CategoryID string
}

// Store provides read-only, batched access to persisted assignments and
// resource state. Batch loads issue one query per data shape, never one per
// resource id.
type Store interface {
	// LoadSnapshots returns snapshots keyed by resource id. Ids with no
	// backing row are absent from the map, which callers translate into
	// ErrNotFound; an empty assignment list is a valid snapshot state.
	LoadSnapshots(ctx context.Context, t ResourceType, ids []string) (map[string]*Snapshot, error)

	// ListResourceIDs returns the ids of every resource of the type in the
	// space, optionally narrowed by filter.
	ListResourceIDs(ctx context.Context, spaceID string, t ResourceType, filter *ListFilter) ([]string, error)

	// Membership returns the actor's membership row for the space, or nil
	// when the actor is not a member.
	Membership(ctx context.Context, spaceID, userID string) (*models.SpaceMember, error)
}

// GormStore implements Store over the application database.
type GormStore struct {
	db *gorm.DB
}

// NewStore constructs the gorm-backed assignment store adapter.
func NewStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("permission store: db is required")
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) LoadSnapshots(ctx context.Context, t ResourceType, ids []string) (map[string]*Snapshot, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w %q", ErrUnknownResourceType, t)
	}
	if len(ids) == 0 {
		return map[string]*Snapshot{}, nil
	}

	snapshots, err := s.loadResourceRows(ctx, t, ids)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return snapshots, nil
	}

	if err := s.attachSpaceTiers(ctx, snapshots); err != nil {
		return nil, err
	}
	if err := s.attachAssignments(ctx, t, snapshots); err != nil {
		return nil, err
	}
	if t == ResourceProposalEvaluation {
		if err := s.attachEvaluationDetail(ctx, snapshots); err != nil {
			return nil, err
		}
	}

	return snapshots, nil
}

// loadResourceRows issues the single per-type resource query and seeds the
// snapshot map with identity and policy state.
func (s *GormStore) loadResourceRows(ctx context.Context, t ResourceType, ids []string) (map[string]*Snapshot, error) {
	tx := s.db.WithContext(ctx)
	snapshots := make(map[string]*Snapshot, len(ids))

	switch t {
	case ResourceSpace:
		var rows []models.Space
		if err := tx.Find(&rows, "id IN ?", ids).Error; err != nil {
			return nil, fmt.Errorf("permission store: load spaces: %w", err)
		}
		for _, row := range rows {
			snapshots[row.ID] = &Snapshot{
				ID: row.ID, Type: t, SpaceID: row.ID, SpaceTier: row.Tier,
			}
		}

	case ResourcePage:
		var rows []models.Page
		if err := tx.Find(&rows, "id IN ?", ids).Error; err != nil {
			return nil, fmt.Errorf("permission store: load pages: %w", err)
		}
		for _, row := range rows {
			snapshots[row.ID] = &Snapshot{
				ID: row.ID, Type: t, SpaceID: row.SpaceID, CreatedBy: row.CreatedBy,
				Page: &PageState{ConvertedProposalID: row.ConvertedProposalID},
			}
		}

	case ResourcePost:
		var rows []models.Post
		if err := tx.Find(&rows, "id IN ?", ids).Error; err != nil {
			return nil, fmt.Errorf("permission store: load posts: %w", err)
		}
		for _, row := range rows {
			snapshots[row.ID] = &Snapshot{
				ID: row.ID, Type: t, SpaceID: row.SpaceID, CreatedBy: row.CreatedBy,
				Post: &PostState{IsDraft: row.IsDraft, Locked: row.Locked},
			}
		}

	case ResourcePostCategory:
		var rows []models.PostCategory
		if err := tx.Find(&rows, "id IN ?", ids).Error; err != nil {
			return nil, fmt.Errorf("permission store: load post categories: %w", err)
		}
		for _, row := range rows {
			snapshots[row.ID] = &Snapshot{
				ID: row.ID, Type: t, SpaceID: row.SpaceID, CreatedBy: row.CreatedBy,
			}
		}

	case ResourceReward:
		var rows []models.Reward
		if err := tx.Find(&rows, "id IN ?", ids).Error; err != nil {
			return nil, fmt.Errorf("permission store: load rewards: %w", err)
		}
		for _, row := range rows {
			snapshots[row.ID] = &Snapshot{
				ID: row.ID, Type: t, SpaceID: row.SpaceID, CreatedBy: row.CreatedBy,
				Reward: &RewardState{Status: row.Status, SubmissionsLocked: row.SubmissionsLocked},
			}
		}

	case ResourceProposal:
		var rows []models.Proposal
		if err := tx.Find(&rows, "id IN ?", ids).Error; err != nil {
			return nil, fmt.Errorf("permission store: load proposals: %w", err)
		}
		for _, row := range rows {
			snapshots[row.ID] = &Snapshot{
				ID: row.ID, Type: t, SpaceID: row.SpaceID, CreatedBy: row.CreatedBy,
				Proposal: &ProposalState{
					Status:          row.Status,
					Archived:        row.Archived,
					ArchivedByAdmin: row.ArchivedByAdmin,
				},
			}
		}

	case ResourceProposalEvaluation:
		var rows []models.ProposalEvaluation
		if err := tx.Find(&rows, "id IN ?", ids).Error; err != nil {
			return nil, fmt.Errorf("permission store: load evaluations: %w", err)
		}
		proposalIDs := make([]string, 0, len(rows))
		for _, row := range rows {
			proposalIDs = append(proposalIDs, row.ProposalID)
			snapshots[row.ID] = &Snapshot{
				ID: row.ID, Type: t, SpaceID: row.SpaceID,
				Evaluation: &EvaluationState{
					HasResult:             row.Result != nil,
					Appealable:            row.Appealable,
					AppealedAt:            row.AppealedAt,
					AppealRequiredReviews: row.AppealRequiredReviews,
					ReviewerUserIDs:       make(map[string]struct{}),
					AppealReviewerUserIDs: make(map[string]struct{}),
				},
			}
		}
		if len(proposalIDs) > 0 {
			var proposals []models.Proposal
			if err := tx.Find(&proposals, "id IN ?", proposalIDs).Error; err != nil {
				return nil, fmt.Errorf("permission store: load parent proposals: %w", err)
			}
			byID := make(map[string]models.Proposal, len(proposals))
			for _, p := range proposals {
				byID[p.ID] = p
			}
			for _, row := range rows {
				snap := snapshots[row.ID]
				parent, ok := byID[row.ProposalID]
				if !ok {
					// orphaned evaluation; treat the parent as missing
					delete(snapshots, row.ID)
					continue
				}
				snap.CreatedBy = parent.CreatedBy
				snap.Evaluation.ProposalArchived = parent.Archived
				snap.Evaluation.IsCurrentStep = parent.CurrentEvaluationID != nil &&
					*parent.CurrentEvaluationID == row.ID
			}
		}
	}

	return snapshots, nil
}

func (s *GormStore) attachSpaceTiers(ctx context.Context, snapshots map[string]*Snapshot) error {
	spaceIDs := make([]string, 0, len(snapshots))
	seen := make(map[string]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if _, ok := seen[snap.SpaceID]; !ok {
			seen[snap.SpaceID] = struct{}{}
			spaceIDs = append(spaceIDs, snap.SpaceID)
		}
	}

	var spaces []models.Space
	if err := s.db.WithContext(ctx).Select("id", "tier").Find(&spaces, "id IN ?", spaceIDs).Error; err != nil {
		return fmt.Errorf("permission store: load space tiers: %w", err)
	}

	tiers := make(map[string]string, len(spaces))
	for _, space := range spaces {
		tiers[space.ID] = space.Tier
	}
	for id, snap := range snapshots {
		tier, ok := tiers[snap.SpaceID]
		if !ok {
			// resource references a deleted space; surface as missing
			delete(snapshots, id)
			continue
		}
		snap.SpaceTier = tier
	}
	return nil
}

func (s *GormStore) attachAssignments(ctx context.Context, t ResourceType, snapshots map[string]*Snapshot) error {
	ids := make([]string, 0, len(snapshots))
	for id := range snapshots {
		ids = append(ids, id)
	}

	var rows []models.PermissionAssignment
	err := s.db.WithContext(ctx).
		Where("resource_type = ? AND resource_id IN ?", string(t), ids).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Find(&rows).Error
	if err != nil {
		return fmt.Errorf("permission store: load assignments: %w", err)
	}

	for _, row := range rows {
		if snap, ok := snapshots[row.ResourceID]; ok {
			snap.Assignments = append(snap.Assignments, row)
		}
	}
	return nil
}

// attachEvaluationDetail loads reviewer registrations and appeal review
// counts, one query per shape across the whole batch.
func (s *GormStore) attachEvaluationDetail(ctx context.Context, snapshots map[string]*Snapshot) error {
	ids := make([]string, 0, len(snapshots))
	for id := range snapshots {
		ids = append(ids, id)
	}
	tx := s.db.WithContext(ctx)

	var reviewers []models.EvaluationReviewer
	if err := tx.Find(&reviewers, "evaluation_id IN ?", ids).Error; err != nil {
		return fmt.Errorf("permission store: load evaluation reviewers: %w", err)
	}
	for _, reviewer := range reviewers {
		snap, ok := snapshots[reviewer.EvaluationID]
		if !ok {
			continue
		}
		state := snap.Evaluation
		switch {
		case reviewer.ForAppeal && reviewer.UserID != nil:
			state.AppealReviewerUserIDs[*reviewer.UserID] = struct{}{}
		case reviewer.ForAppeal && reviewer.RoleID != nil:
			state.AppealReviewerRoleIDs = append(state.AppealReviewerRoleIDs, *reviewer.RoleID)
		case reviewer.UserID != nil:
			state.ReviewerUserIDs[*reviewer.UserID] = struct{}{}
		case reviewer.RoleID != nil:
			state.ReviewerRoleIDs = append(state.ReviewerRoleIDs, *reviewer.RoleID)
		}
	}

	type reviewCount struct {
		EvaluationID string
		Total        int
	}
	var counts []reviewCount
	err := tx.Model(&models.EvaluationReview{}).
		Select("evaluation_id, COUNT(*) AS total").
		Where("evaluation_id IN ? AND for_appeal = ?", ids, true).
		Group("evaluation_id").
		Scan(&counts).Error
	if err != nil {
		return fmt.Errorf("permission store: count appeal reviews: %w", err)
	}
	for _, count := range counts {
		if snap, ok := snapshots[count.EvaluationID]; ok {
			snap.Evaluation.AppealReviewCount = count.Total
		}
	}
	return nil
}

func (s *GormStore) ListResourceIDs(ctx context.Context, spaceID string, t ResourceType, filter *ListFilter) ([]string, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w %q", ErrUnknownResourceType, t)
	}

	tx := s.db.WithContext(ctx)
	if filter != nil {
		if filter.CreatedBy != "" {
			tx = tx.Where("created_by = ?", filter.CreatedBy)
		}
		if filter.Status != "" {
			tx = tx.Where("status = ?", filter.Status)
		}
		if filter.CategoryID != "" {
			tx = tx.Where("category_id = ?", filter.CategoryID)
		}
	}

	var ids []string
	var err error
	switch t {
	case ResourceSpace:
		err = tx.Model(&models.Space{}).Where("id = ?", spaceID).Pluck("id", &ids).Error
	case ResourcePage:
		err = tx.Model(&models.Page{}).Where("space_id = ?", spaceID).Pluck("id", &ids).Error
	case ResourcePost:
		err = tx.Model(&models.Post{}).Where("space_id = ?", spaceID).Pluck("id", &ids).Error
	case ResourcePostCategory:
		err = tx.Model(&models.PostCategory{}).Where("space_id = ?", spaceID).Pluck("id", &ids).Error
	case ResourceReward:
		err = tx.Model(&models.Reward{}).Where("space_id = ?", spaceID).Pluck("id", &ids).Error
	case ResourceProposal:
		err = tx.Model(&models.Proposal{}).Where("space_id = ?", spaceID).Pluck("id", &ids).Error
	case ResourceProposalEvaluation:
		err = tx.Model(&models.ProposalEvaluation{}).Where("space_id = ?", spaceID).Pluck("id", &ids).Error
	}
	if err != nil {
		return nil, fmt.Errorf("permission store: list %s ids: %w", t, err)
	}
	return ids, nil
}

func (s *GormStore) Membership(ctx context.Context, spaceID, userID string) (*models.SpaceMember, error) {
	if userID == "" {
		return nil, nil
	}

	var member models.SpaceMember
	err := s.db.WithContext(ctx).
		Where("space_id = ? AND user_id = ?", spaceID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("permission store: load membership: %w", err)
	}
	return &member, nil
}
