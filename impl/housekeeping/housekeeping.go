// Package housekeeping runs periodic maintenance jobs on a cron schedule.
package housekeeping

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"codegate/lib/sl"
)

const purgeTimeout = 2 * time.Minute

// Sweeper drops stale in-memory entries and reports how many went.
type Sweeper interface {
	Sweep() int
}

type Purger interface {
	PurgeExpired(ctx context.Context, grace time.Duration) (int64, error)
}

type Housekeeping struct {
	cron *cron.Cron
	log  *slog.Logger
}

func New(log *slog.Logger) *Housekeeping {
	logger := log.With(sl.Module("housekeeping"))
	adapter := cronLogger{log: logger}
	return &Housekeeping{
		cron: cron.New(
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		log: logger,
	}
}

// AddSweep schedules s.Sweep; name labels the job in logs.
func (h *Housekeeping) AddSweep(schedule, name string, s Sweeper) error {
	if _, err := h.cron.AddFunc(schedule, h.sweepJob(name, s)); err != nil {
		return fmt.Errorf("schedule %s sweep %q: %w", name, schedule, err)
	}
	return nil
}

// AddPurge schedules removal of sessions expired longer than grace ago.
// onPurged, when set, receives the number of removed sessions.
func (h *Housekeeping) AddPurge(schedule string, grace time.Duration, p Purger, onPurged func(int64)) error {
	if _, err := h.cron.AddFunc(schedule, h.purgeJob(grace, p, onPurged)); err != nil {
		return fmt.Errorf("schedule purge %q: %w", schedule, err)
	}
	return nil
}

func (h *Housekeeping) sweepJob(name string, s Sweeper) func() {
	return func() {
		if n := s.Sweep(); n > 0 {
			h.log.With(slog.String("job", name), slog.Int("removed", n)).Debug("sweep")
		}
	}
}

func (h *Housekeeping) purgeJob(grace time.Duration, p Purger, onPurged func(int64)) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
		defer cancel()

		n, err := p.PurgeExpired(ctx, grace)
		if err != nil {
			h.log.Error("purge expired sessions", sl.Err(err))
			return
		}
		if onPurged != nil {
			onPurged(n)
		}
		if n > 0 {
			h.log.With(slog.Int64("removed", n)).Info("expired sessions purged")
		}
	}
}

func (h *Housekeeping) Start() {
	h.cron.Start()
	h.log.With(slog.Int("jobs", len(h.cron.Entries()))).Info("housekeeping started")
}

// Stop halts scheduling and waits for running jobs up to ctx's deadline.
func (h *Housekeeping) Stop(ctx context.Context) {
	select {
	case <-h.cron.Stop().Done():
	case <-ctx.Done():
		h.log.Warn("housekeeping jobs still running on shutdown")
	}
}

// cronLogger routes cron's own messages to slog.
type cronLogger struct {
	log *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.With(sl.Err(err)).Error(msg, keysAndValues...)
}
