package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"skillswap/internal/metrics"
)

// Func is a unit of background work. The returned count is logged.
type Func func(ctx context.Context) (int64, error)

type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewScheduler(logger *slog.Logger, timeout time.Duration) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:  logger,
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add registers fn under name on a standard cron spec or an @every
// descriptor.
func (s *Scheduler) Add(name, spec string, fn Func) error {
	if _, err := s.cron.AddFunc(spec, func() { s.Run(name, fn) }); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

// Run executes fn once with the scheduler's timeout and records the outcome.
func (s *Scheduler) Run(name string, fn Func) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	n, err := fn(ctx)
	dur := time.Since(start)
	metrics.RecordJobRun(name, dur, err == nil)

	log := s.logger.With("job", name, "duration_ms", dur.Milliseconds())
	if err != nil {
		log.Error("job failed", "err", err)
		return
	}
	if n > 0 {
		log.Info("job finished", "affected", n)
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop cancels running jobs and waits for them to return or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
