package analytics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"career-chat/internal/registry"
	"career-chat/internal/storage"
)

type StatsSource interface {
	Stats() registry.Stats
}

// Reporter logs the live registry size and, when a transcript log is kept,
// today's usage. The registry never evicts, so its size only grows until
// sessions are cleared or the process restarts.
type Reporter struct {
	src StatsSource
	rec storage.Recorder
	log *zap.Logger
	now func() time.Time
}

// NewReporter builds a reporter. rec may be nil.
func NewReporter(src StatsSource, rec storage.Recorder, log *zap.Logger) *Reporter {
	return &Reporter{src: src, rec: rec, log: log, now: time.Now}
}

func (r *Reporter) Report(ctx context.Context) error {
	st := r.src.Stats()
	fields := []zap.Field{
		zap.Int("sessions", st.Sessions),
		zap.Int("exchanges", st.Exchanges),
	}
	if !st.Oldest.IsZero() {
		fields = append(fields, zap.Duration("oldest_age", r.now().Sub(st.Oldest).Round(time.Second)))
	}
	r.log.Info("registry usage", fields...)

	if r.rec == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	events, err := r.rec.LoadInteractions()
	if err != nil {
		return fmt.Errorf("load transcript log: %w", err)
	}
	day := AnalyzeDay(events, r.now())
	r.log.Info(day.Summary(5))
	return nil
}
