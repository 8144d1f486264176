package permissions

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/guildhall-io/guildhall/internal/models"
	"github.com/guildhall-io/guildhall/pkg/metrics"
)

// BulkResult holds the outcome for one resource in a bulk computation:
// either a flag map or the error that prevented computing it.
type BulkResult struct {
	Flags FlagMap `json:"flags,omitempty"`
	Err   error   `json:"-"`
}

// BulkCompute computes flag maps for every resource of the given type in a
// space (optionally narrowed by filter), keyed by resource id. Data loading
// is batched — one query per data shape, one role resolution for the union
// of all referenced roles — and the pure per-resource computation fans out
// over a bounded worker pool. A failure on one resource is reported in its
// entry and never aborts the batch: the result map contains an entry for
// every requested id.
func (e *Engine) BulkCompute(ctx context.Context, spaceID string, t ResourceType, actorID string, filter *ListFilter) (map[string]BulkResult, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w %q", ErrUnknownResourceType, t)
	}
	spaceID = strings.TrimSpace(spaceID)
	if spaceID == "" {
		return nil, fmt.Errorf("permission engine: space id is required")
	}

	started := time.Now()
	defer func() {
		metrics.BulkComputeDuration.WithLabelValues(string(t)).Observe(time.Since(started).Seconds())
	}()

	ids, err := e.store.ListResourceIDs(ctx, spaceID, t, filter)
	if err != nil {
		return nil, err
	}
	metrics.BulkComputeBatchSize.Observe(float64(len(ids)))

	results := make(map[string]BulkResult, len(ids))
	if len(ids) == 0 {
		return results, nil
	}

	snapshots, err := e.store.LoadSnapshots(ctx, t, ids)
	if err != nil {
		return nil, err
	}

	actor, err := e.resolveBulkActor(ctx, spaceID, t, actorID, snapshots)
	if err != nil {
		return nil, err
	}

	// loading is done; honour cancellation before starting the fan-out
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var mu sync.Mutex
	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(e.workers)

	for _, id := range ids {
		group.Go(func() error {
			result := e.computeOne(id, t, snapshots[id], actor)
			mu.Lock()
			results[id] = result
			mu.Unlock()
			return nil
		})
	}
	// workers never return errors; failures land in their result entry
	_ = group.Wait()

	return results, nil
}

// computeOne wraps the pure computation so a malformed resource yields an
// error entry instead of aborting the batch.
func (e *Engine) computeOne(id string, t ResourceType, snap *Snapshot, actor *ActorContext) (result BulkResult) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn("bulk compute panic",
				zap.String("resource_id", id),
				zap.String("resource_type", string(t)),
				zap.Any("error", r),
			)
			result = BulkResult{Err: fmt.Errorf("permission engine: compute %s %s: %v", t, id, r)}
		}
	}()

	if snap == nil {
		return BulkResult{Err: fmt.Errorf("%w: %s %s", ErrNotFound, t, id)}
	}
	return BulkResult{Flags: computeFromSnapshot(snap, actor)}
}

// resolveBulkActor builds one actor context for the whole batch: one
// membership lookup and one role resolution over the union of every role id
// referenced across all snapshots.
func (e *Engine) resolveBulkActor(ctx context.Context, spaceID string, t ResourceType, actorID string, snapshots map[string]*Snapshot) (*ActorContext, error) {
	actor := &ActorContext{UserID: strings.TrimSpace(actorID), Roles: RoleMembers{}}

	roleSet := make(map[string]struct{})
	tier := ""
	for _, snap := range snapshots {
		for _, id := range snap.ReferencedRoleIDs() {
			roleSet[id] = struct{}{}
		}
		tier = snap.SpaceTier
	}
	roleIDs := make([]string, 0, len(roleSet))
	for id := range roleSet {
		roleIDs = append(roleIDs, id)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	var member *models.SpaceMember
	if !actor.Anonymous() {
		group.Go(func() error {
			var err error
			member, err = e.store.Membership(groupCtx, spaceID, actor.UserID)
			return err
		})
	}

	if len(roleIDs) > 0 {
		group.Go(func() error {
			expanded, err := e.resolver.Expand(groupCtx, spaceID, tier, t, roleIDs)
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
