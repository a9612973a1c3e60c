package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs a report function on a cron schedule.
type Scheduler struct {
	cron       *cron.Cron
	ctx        context.Context
	cancel     context.CancelFunc
	log        *zap.Logger
	spec       string
	reportFunc func(ctx context.Context) error
}

// New accepts standard five-field cron specs and descriptors like "@every 15m".
func New(spec string, log *zap.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron:   cron.New(),
		ctx:    ctx,
		cancel: cancel,
		log:    log,
		spec:   spec,
	}
}

func (s *Scheduler) SetReportFunction(f func(ctx context.Context) error) {
	s.reportFunc = f
}

func (s *Scheduler) Start() error {
	if s.reportFunc == nil {
		return fmt.Errorf("scheduler: report function not set")
	}

	_, err := s.cron.AddFunc(s.spec, s.runReport)
	if err != nil {
		return fmt.Errorf("scheduler: invalid schedule %q: %w", s.spec, err)
	}

	s.cron.Start()
	s.log.Info("scheduler started", zap.String("schedule", s.spec))
	return nil
}

func (s *Scheduler) runReport() {
	if err := s.reportFunc(s.ctx); err != nil {
		s.log.Error("scheduled report failed", zap.Error(err))
	}
}

// Stop waits for a running report to finish.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
