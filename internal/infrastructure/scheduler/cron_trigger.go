package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kontor/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// TenantProvider lists the tenants daily jobs run for
type TenantProvider interface {
	FindAllActiveIDs(ctx context.Context) ([]uuid.UUID, error)
}

// DailyTrigger submits the daily jobs once per UTC day at the configured time
type DailyTrigger struct {
	hour, minute   int
	maxTenants     int
	checkInterval  time.Duration
	scheduler      *Scheduler
	tenantProvider TenantProvider
	logger         *zap.Logger
	now            func() time.Time

	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.Mutex
	isRunning   bool
	lastRunDate string
}

// parseDailyAt parses an HH:MM time of day
func parseDailyAt(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidDailyAt, s)
	}
	return t.Hour(), t.Minute(), nil
}

// NewDailyTrigger creates a trigger for cfg.DailyAt
func NewDailyTrigger(cfg config.SchedulerConfig, scheduler *Scheduler, tenants TenantProvider, logger *zap.Logger) (*DailyTrigger, error) {
	hour, minute, err := parseDailyAt(cfg.DailyAt)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DailyTrigger{
		hour:           hour,
		minute:         minute,
		maxTenants:     cfg.MaxTenants,
		checkInterval:  time.Minute,
		scheduler:      scheduler,
		tenantProvider: tenants,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start starts the check loop
func (c *DailyTrigger) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isRunning {
		return nil
	}
	c.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.runLoop(ctx)

	c.logger.Info("Daily trigger started",
		zap.Int("hour", c.hour),
		zap.Int("minute", c.minute),
	)
	return nil
}

// Stop stops the check loop
func (c *DailyTrigger) Stop(ctx context.Context) error {
	c.mu.Lock()
	if !c.isRunning {
		c.mu.Unlock()
		return nil
	}
	c.isRunning = false
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *DailyTrigger) runLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger runs the daily jobs when the time of day has been reached
// and they have not run yet today. A restart after the slot still runs them.
func (c *DailyTrigger) checkAndTrigger(ctx context.Context) bool {
	now := c.now()
	today := now.Format("2006-01-02")

	c.mu.Lock()
	if c.lastRunDate == today {
		c.mu.Unlock()
		return false
	}
	if now.Hour()*60+now.Minute() < c.hour*60+c.minute {
		c.mu.Unlock()
		return false
	}
	c.lastRunDate = today
	c.mu.Unlock()

	c.runNow(ctx, now)
	return true
}

// runNow submits the daily jobs for every tenant as of the given time
func (c *DailyTrigger) runNow(ctx context.Context, asOf time.Time) int {
	tenantIDs, err := c.tenantProvider.FindAllActiveIDs(ctx)
	if err != nil {
		c.logger.Error("Failed to list tenants for daily jobs", zap.Error(err))
		return 0
	}
	if c.maxTenants > 0 && len(tenantIDs) > c.maxTenants {
		c.logger.Warn("Tenant count exceeds daily job limit, truncating",
			zap.Int("tenants", len(tenantIDs)),
			zap.Int("max_tenants", c.maxTenants),
		)
		tenantIDs = tenantIDs[:c.maxTenants]
	}

	day := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	submitted := 0
	for _, tenantID := range tenantIDs {
		for _, kind := range DailyJobKinds() {
			if err := c.scheduler.SubmitJob(NewJob(tenantID, kind, day)); err != nil {
				c.logger.Error("Failed to submit daily job",
					zap.String("tenant_id", tenantID.String()),
					zap.String("kind", string(kind)),
					zap.Error(err),
				)
				continue
			}
			submitted++
		}
	}

	c.logger.Info("Daily jobs submitted",
		zap.Int("tenant_count", len(tenantIDs)),
		zap.Int("jobs", submitted),
	)
	return submitted
}
