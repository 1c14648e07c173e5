package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPruneSchedule runs retention at the top of every hour.
const DefaultPruneSchedule = "0 * * * *"

var standardCronParser = cron.NewParser(
	cron.Minute |
		cron.Hour |
		cron.Dom |
		cron.Month |
		cron.Dow,
)

// ParseSchedule parses a five-field cron expression evaluated in UTC.
// Timezone prefixes are rejected.
func ParseSchedule(expr string) (cron.Schedule, error) {
	clean := strings.TrimSpace(expr)
	if clean == "" {
		return nil, fmt.Errorf("cron expression is required")
	}

	upper := strings.ToUpper(clean)
	if strings.Contains(upper, "CRON_TZ=") || strings.Contains(upper, "TZ=") {
		return nil, fmt.Errorf("cron expression must be UTC-only (timezone prefixes are not allowed)")
	}

	schedule, err := standardCronParser.Parse(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule, nil
}

// PrunerConfig configures the background retention runner.
type PrunerConfig struct {
	Store    Store
	Schedule string
	Logger   *slog.Logger
}

// Pruner calls Store.Prune on a cron schedule.
type Pruner struct {
	store    Store
	schedule cron.Schedule
	logger   *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewPruner validates the schedule and creates a stopped Pruner.
func NewPruner(cfg PrunerConfig) (*Pruner, error) {
	if cfg.Store == nil {
		return nil, errors.New("history pruner store is nil")
	}
	expr := cfg.Schedule
	if strings.TrimSpace(expr) == "" {
		expr = DefaultPruneSchedule
	}
	schedule, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		store:    cfg.Store,
		schedule: schedule,
		logger:   logger,
	}, nil
}

// Next returns the next prune time after now.
func (p *Pruner) Next(now time.Time) time.Time {
	return p.schedule.Next(now.UTC())
}

// RunOnce performs one prune pass and logs the outcome.
func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	removed, err := p.store.Prune(ctx)
	if err != nil {
		p.logger.Error("history prune failed", "error", err)
		return removed, err
	}
	if removed > 0 {
		p.logger.Info("history pruned", "removed", removed)
	}
	return removed, nil
}

// Start begins running on the schedule. Starting twice is a no-op.
func (p *Pruner) Start(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cron != nil {
		return nil
	}
	c := cron.New(cron.WithLocation(time.UTC))
	c.Schedule(p.schedule, cron.FuncJob(func() {
		_, _ = p.RunOnce(context.Background())
	}))
	c.Start()
	p.cron = c
	return nil
}

// Stop stops the schedule and waits for a running prune to finish or ctx to expire.
func (p *Pruner) Stop(ctx context.Context) error {
	p.mu.Lock()
	c := p.cron
	p.cron = nil
	p.mu.Unlock()

	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
