package permissions

import (
	"context"
	"fmt"
	"sort"

	"github.com/guildhall-io/guildhall/pkg/metrics"
)

// Rollup regroups one resource's assignment rows by capability level for
// display and audit: per level, the deduplicated assignees. This view is not
// actor-specific, but it is redacted for actors who cannot view the
// resource: they receive an all-empty structure rather than a filtered one,
// so they learn nothing about who can review — not even the set size. The
// creator level stays visible whenever the resource itself is.
func (e *Engine) Rollup(ctx context.Context, resourceID string, t ResourceType, actorID string) (map[Level][]Assignee, error) {
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
	flags := computeFromSnapshot(snap, actor)

	rollup := make(map[Level][]Assignee)
	if snap.CreatedBy != "" {
		rollup[LevelCreator] = []Assignee{UserAssignee(snap.CreatedBy)}
	}

	viewOp := viewOperationFor(t)
	if viewOp != "" && !flags.Can(viewOp) {
		metrics.RollupRequests.WithLabelValues(string(t), "true").Inc()
		return rollup, nil
	}
	metrics.RollupRequests.WithLabelValues(string(t), "false").Inc()

	seen := make(map[Level]map[Assignee]struct{})
	for _, row := range snap.Assignments {
		assignee := assigneeOf(row)
		if assignee.Group == "" {
			continue
		}
		level := Level(row.Level)
		if seen[level] == nil {
			seen[level] = make(map[Assignee]struct{})
		}
		if _, dup := seen[level][assignee]; dup {
			continue
		}
		seen[level][assignee] = struct{}{}
		rollup[level] = append(rollup[level], assignee)
	}

	for level := range rollup {
		entries := rollup[level]
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Group != entries[j].Group {
				return entries[i].Group < entries[j].Group
			}
			return entries[i].ID < entries[j].ID
		})
	}
	return rollup, nil
}

// viewOperationFor names the read operation guarding rollup visibility.
// Space resources have no view operation and are never redacted.
func viewOperationFor(t ResourceType) Operation {
	switch t {
	case ResourcePostCategory:
		return OpViewPosts
	case ResourceSpace:
		return ""
	default:
		return OpView
	}
}
