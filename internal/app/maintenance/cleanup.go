package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/guildhall-io/guildhall/internal/services"
	"github.com/guildhall-io/guildhall/pkg/logger"
)

const (
	defaultAssignmentSpec = "@every 10m"
	defaultMembershipSpec = "@hourly"
)

// Cleaner coordinates background maintenance: purging expired permission
// assignments and dropping role memberships whose space member is gone.
// Expired assignments are already invisible to the engine, so cleanup is
// about keeping tables small, not about correctness.
type Cleaner struct {
	assignments *services.AssignmentService
	roles       *services.RoleService
	cron        *cron.Cron
	now         func() time.Time
	log         *zap.Logger
	enabled     bool

	assignmentSchedule string
	membershipSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithAssignmentSchedule overrides the cron specification for expired assignment pruning.
func WithAssignmentSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.assignmentSchedule = spec
		}
	}
}

// WithMembershipSchedule overrides the cron specification for orphaned role membership pruning.
func WithMembershipSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.membershipSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency results in
// the corresponding cleanup job being skipped.
func NewCleaner(assignments *services.AssignmentService, roles *services.RoleService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		assignments:        assignments,
		roles:              roles,
		now:                time.Now,
		assignmentSchedule: defaultAssignmentSpec,
		membershipSchedule: defaultMembershipSpec,
		log:                logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.assignments != nil || cleaner.roles != nil

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.assignments != nil {
		if _, err := c.cron.AddFunc(c.assignmentSchedule, func() {
			ctx := context.Background()
			pruned, err := c.assignments.PruneExpired(ctx, c.now())
			if err != nil {
				c.log.Warn("assignment cleanup failed", zap.Error(err))
				return
			}
			if pruned > 0 {
				c.log.Info("pruned expired assignments", zap.Int64("count", pruned))
			}
		}); err != nil {
			return err
		}
	}

	if c.roles != nil {
		if _, err := c.cron.AddFunc(c.membershipSchedule, func() {
			ctx := context.Background()
			pruned, err := c.roles.PruneOrphanedMemberships(ctx)
			if err != nil {
				c.log.Warn("role membership cleanup failed", zap.Error(err))
				return
			}
			if pruned > 0 {
				c.log.Info("pruned orphaned role memberships", zap.Int64("count", pruned))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.assignments != nil {
		if _, err := c.assignments.PruneExpired(ctx, c.now()); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.roles != nil {
		if _, err := c.roles.PruneOrphanedMemberships(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
