package permissions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/guildhall-io/guildhall/internal/models"
	"github.com/guildhall-io/guildhall/pkg/logger"
	"github.com/guildhall-io/guildhall/pkg/metrics"
)

// ActorContext describes the acting user relative to one resource's space,
// with role expansions pre-resolved. An empty UserID means an anonymous
// visitor. ActorContext carries everything policies may consult; policies
// perform no data access of their own.
type ActorContext struct {
	UserID   string
	IsMember bool
	IsAdmin  bool

	// Roles holds the resolved member sets for every role the resource
	// snapshot references (assignment rows and reviewer registrations).
	Roles RoleMembers
}

// Anonymous reports whether there is no authenticated actor.
func (a *ActorContext) Anonymous() bool {
	return a == nil || a.UserID == ""
}

// HoldsRole reports whether the actor currently holds the role through an
// active space membership.
func (a *ActorContext) HoldsRole(roleID string) bool {
	if a.Anonymous() {
		return false
	}
	return a.Roles.Contains(roleID, a.UserID)
}

// HoldsAnyRole reports whether the actor holds any of the roles.
func (a *ActorContext) HoldsAnyRole(roleIDs []string) bool {
	if a.Anonymous() {
		return false
	}
	return a.Roles.ContainsAny(roleIDs, a.UserID)
}

// baseComputer turns assignment rows and actor identity into the initial
// flag map for one resource type. The pipeline afterwards only removes.
type baseComputer func(snap *Snapshot, actor *ActorContext) FlagMap

// baseComputers is the closed table from resource type to its base
// computer. Most types share the generic assignment walk; evaluations also
// fold in their reviewer registrations.
var baseComputers = map[ResourceType]baseComputer{
	ResourceSpace:              computeAssignmentBase,
	ResourcePage:               computeAssignmentBase,
	ResourcePost:               computeAssignmentBase,
	ResourcePostCategory:       computeAssignmentBase,
	ResourceReward:             computeAssignmentBase,
	ResourceProposal:           computeAssignmentBase,
	ResourceProposalEvaluation: computeEvaluationBase,
}

// computeAssignmentBase is the shared step 1-4 walk of §base computation:
// default-deny map, assignment union, creator operations. Assignees that no
// longer resolve (deleted role, departed member) are silently skipped.
func computeAssignmentBase(snap *Snapshot, actor *ActorContext) FlagMap {
	flags := NewFlagMap(snap.Type)

	for _, row := range snap.Assignments {
		if !assigneeMatches(assigneeOf(row), snap, actor) {
			continue
		}
		flags.grant(expandLevel(snap.Type, Level(row.Level))...)
	}

	if !actor.Anonymous() && actor.UserID == snap.CreatedBy {
		flags.grant(expandCreator(snap.Type)...)
	}

	return flags
}

// computeEvaluationBase extends the generic walk with reviewer
// registrations: a registered reviewer receives the reviewer level, a
// registered appeal reviewer the appeal level. Step gating happens later in
// the pipeline, which only removes.
func computeEvaluationBase(snap *Snapshot, actor *ActorContext) FlagMap {
	flags := computeAssignmentBase(snap, actor)

	state := snap.Evaluation
	if state == nil || actor.Anonymous() {
		return flags
	}

	if _, ok := state.ReviewerUserIDs[actor.UserID]; ok || actor.HoldsAnyRole(state.ReviewerRoleIDs) {
		flags.grant(expandLevel(ResourceProposalEvaluation, LevelReviewer)...)
	}
	if _, ok := state.AppealReviewerUserIDs[actor.UserID]; ok || actor.HoldsAnyRole(state.AppealReviewerRoleIDs) {
		flags.grant(expandLevel(ResourceProposalEvaluation, LevelAppealReviewer)...)
	}

	return flags
}

func assigneeMatches(assignee Assignee, snap *Snapshot, actor *ActorContext) bool {
	switch assignee.Group {
	case GroupUser:
		return !actor.Anonymous() && actor.UserID == assignee.ID
	case GroupRole:
		return actor.HoldsRole(assignee.ID)
	case GroupSpace:
		return actor.IsMember && assignee.ID == snap.SpaceID
	case GroupPublic:
		// public grants cover anonymous visitors and signed-in non-members
		return actor.Anonymous() || !actor.IsMember
	}
	return false
}

// Engine computes authoritative permission flag maps. It is stateless and
// safe for unbounded parallel use; every call recomputes from the snapshot
// the store hands it, with no cache in between.
type Engine struct {
	store    Store
	resolver *Resolver
	workers  int
	log      *zap.Logger
}

// Option adjusts engine construction.
type Option func(*Engine)

// WithWorkers caps the bulk computation fan-out. Values below one fall back
// to the default.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

const defaultWorkers = 8

// NewEngine constructs the permission computation engine.
func NewEngine(store Store, resolver *Resolver, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("permission engine: store is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("permission engine: resolver is required")
	}

	engine := &Engine{
		store:    store,
		resolver: resolver,
		workers:  defaultWorkers,
		log:      logger.WithModule("permissions"),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// Compute produces the authoritative flag map for one resource and an
// optional actor (empty actorID means anonymous).
func (e *Engine) Compute(ctx context.Context, resourceID string, t ResourceType, actorID string) (FlagMap, error) {
	flags, err := e.compute(ctx, resourceID, t, actorID)
	switch {
	case err == nil:
		metrics.PermissionComputations.WithLabelValues(string(t), "ok").Inc()
	case isNotFound(err):
		metrics.PermissionComputations.WithLabelValues(string(t), "not_found").Inc()
	default:
		metrics.PermissionComputations.WithLabelValues(string(t), "error").Inc()
	}
	return flags, err
}

func (e *Engine) compute(ctx context.Context, resourceID string, t ResourceType, actorID string) (FlagMap, error) {
	resourceID = strings.TrimSpace(resourceID)
	if resourceID == "" {
		return nil, fmt.Errorf("permission engine: resource id is required")
	}
	if !t.Valid() {
		return nil, fmt.Errorf("%w %q", ErrUnknownResourceType, t)
	}

	snapshots, err := e.store.LoadSnapshots(ctx, t, []string{resourceID})
	if err != nil {
		return nil, err
	}
	snap, ok := snapshots[resourceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, t, resourceID)
	}

	actor, err := e.resolveActor(ctx, snap, actorID)
	if err != nil {
		return nil, err
	}

	return computeFromSnapshot(snap, actor), nil
}

// resolveActor loads membership and role expansions for the snapshot's
// space. The two lookups are independent and run concurrently.
func (e *Engine) resolveActor(ctx context.Context, snap *Snapshot, actorID string) (*ActorContext, error) {
	actor := &ActorContext{UserID: strings.TrimSpace(actorID), Roles: RoleMembers{}}

	group, groupCtx := errgroup.WithContext(ctx)

	var member *models.SpaceMember
	if !actor.Anonymous() {
		group.Go(func() error {
			var err error
			member, err = e.store.Membership(groupCtx, snap.SpaceID, actor.UserID)
			return err
		})
	}

	if roleIDs := snap.ReferencedRoleIDs(); len(roleIDs) > 0 {
		group.Go(func() error {
			expanded, err := e.resolver.Expand(groupCtx, snap.SpaceID, snap.SpaceTier, snap.Type, roleIDs)
			if err != nil {
				return err
			}
			actor.Roles = expanded
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	if member != nil {
		actor.IsMember = true
		actor.IsAdmin = member.IsAdmin
	}
	return actor, nil
}

// computeFromSnapshot is the pure computation core shared by single and
// bulk paths: admin bypass, base computation, then the policy pipeline.
func computeFromSnapshot(snap *Snapshot, actor *ActorContext) FlagMap {
	var flags FlagMap
	if actor != nil && actor.IsAdmin {
		flags = allTrueFlagMap(snap.Type)
	} else {
		flags = baseComputers[snap.Type](snap, actor)
	}

	for _, policy := range pipelines[snap.Type] {
		flags = policy(flags, snap, actor)
	}
	return flags
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
