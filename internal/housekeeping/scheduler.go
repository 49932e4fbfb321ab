// AngelaMos | 2026
// scheduler.go

package housekeeping

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/reseller-console/internal/core"
)

const (
	lockPrefix     = "housekeeping:lock:"
	defaultLockTTL = 2 * time.Minute
)

// ErrLockHeld is returned by RunNow when another replica holds the job lock.
var ErrLockHeld = errors.New("housekeeping lock held")

// Job is a periodic maintenance task. Run reports how many rows it touched.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) (int64, error)
}

type Config struct {
	// Locker is optional; without it jobs run unguarded.
	Locker  *redsync.Redsync
	LockTTL time.Duration
	Logger  *slog.Logger
}

// Scheduler runs jobs on a seconds-precision cron. Each run holds a
// redsync lock so only one replica executes a given job at a time.
type Scheduler struct {
	cron    *cron.Cron
	locker  *redsync.Redsync
	lockTTL time.Duration
	logger  *slog.Logger
	jobs    map[string]Job
}

func New(cfg Config) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}

	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		locker:  cfg.Locker,
		lockTTL: ttl,
		logger:  logger,
		jobs:    make(map[string]Job),
	}
}

func (s *Scheduler) Add(job Job) error {
	if _, exists := s.jobs[job.Name]; exists {
		return fmt.Errorf("add job %s: %w", job.Name, core.ErrDuplicateKey)
	}

	_, err := s.cron.AddFunc(job.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.lockTTL)
		defer cancel()

		if err := s.RunNow(ctx, job.Name); err != nil && !errors.Is(err, ErrLockHeld) {
			s.logger.Error("housekeeping job failed",
				"job", job.Name,
				"error", err,
			)
		}
	})
	if err != nil {
		return fmt.Errorf("add job %s: %w", job.Name, err)
	}

	s.jobs[job.Name] = job
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("housekeeping scheduler started", "jobs", len(s.jobs))
}

// Stop halts scheduling and waits for running jobs or ctx, whichever is
// first.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.logger.Warn("housekeeping stop timed out")
	}
}

// RunNow executes a registered job immediately under its lock.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	job, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("run job %s: %w", name, core.ErrNotFound)
	}

	ctx, span := core.StartSpan(ctx, "housekeeping.job",
		attribute.String("job", name),
	)
	defer span.End()

	if s.locker != nil {
		mutex := s.locker.NewMutex(
			lockPrefix+name,
			redsync.WithExpiry(s.lockTTL),
			redsync.WithTries(1),
		)
		if err := mutex.LockContext(ctx); err != nil {
			s.logger.Debug("housekeeping job skipped, lock held elsewhere",
				"job", name,
			)
			return ErrLockHeld
		}
		defer func() {
			if _, err := mutex.UnlockContext(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("housekeeping unlock failed", "job", name, "error", err)
			}
		}()
	}

	start := time.Now()
	affected, err := job.Run(ctx)
	if err != nil {
		core.SetSpanError(ctx, err)
		return fmt.Errorf("run job %s: %w", name, err)
	}

	s.logger.Info("housekeeping job finished",
		"job", name,
		"affected", affected,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
