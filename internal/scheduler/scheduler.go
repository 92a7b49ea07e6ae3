// Package scheduler drives the digest, live and reminder jobs on independent
// timers. Each job computes its next fire from the wall clock.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"econ-calendar-bot/internal/logger"
	"econ-calendar-bot/internal/metrics"
	"econ-calendar-bot/internal/pipeline"
	"econ-calendar-bot/internal/store"
	"econ-calendar-bot/internal/types"
)

const (
	JobDigest   = "digest"
	JobLive     = "live"
	JobReminder = "reminder"
)

// Runner is the part of *pipeline.Pipeline the scheduler drives.
type Runner interface {
	Poll(ctx context.Context, withReminders bool, dates ...string) (pipeline.Result, error)
	Remind(ctx context.Context, dates ...string) (pipeline.Result, error)
	Digest(ctx context.Context, date string) (int, error)
}

type Scheduler struct {
	runner  Runner
	clock   clockwork.Clock
	metrics *metrics.Recorder
	loc     *time.Location

	interval          time.Duration
	window            Window
	digestAt          types.TimeOfDay
	cutover           types.TimeOfDay
	remindersEnabled  bool
	separateReminders bool
}

type Option func(*Scheduler)

func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func New(cfg *store.Config, runner Runner, opts ...Option) (*Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	clocks := map[string]types.TimeOfDay{}
	for name, raw := range map[string]string{
		"active_start": cfg.Schedule.ActiveStart,
		"active_end":   cfg.Schedule.ActiveEnd,
		"digest_at":    cfg.Schedule.DigestAt,
	} {
		tod, ok := types.ParseTimeOfDay(raw)
		if !ok {
			return nil, fmt.Errorf("schedule.%s: invalid time '%s'", name, raw)
		}
		clocks[name] = tod
	}
	cutover, _ := types.ParseTimeOfDay(cfg.Schedule.TomorrowCutover)

	s := &Scheduler{
		runner:   runner,
		clock:    clockwork.NewRealClock(),
		loc:      loc,
		interval: cfg.Schedule.PollInterval,
		window: Window{
			Start:        clocks["active_start"],
			End:          clocks["active_end"],
			WeekdaysOnly: cfg.Schedule.WeekdaysOnly,
		},
		digestAt:          clocks["digest_at"],
		cutover:           cutover,
		remindersEnabled:  cfg.Reminder.Enabled,
		separateReminders: cfg.Schedule.SeparateReminderJob,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run blocks until ctx is cancelled. Jobs never stop each other: a failed
// cycle is logged and the job waits for its next fire.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.loop(ctx, JobDigest, func(now time.Time) time.Time { return NextDaily(now, s.digestAt) }, s.runDigest)
	})
	g.Go(func() error {
		return s.loop(ctx, JobLive, s.nextTick, s.runLive)
	})
	if s.remindersEnabled && s.separateReminders {
		g.Go(func() error {
			return s.loop(ctx, JobReminder, s.nextTick, s.runReminder)
		})
	}

	logger.Info(ctx, "Scheduler started",
		"interval", s.interval.String(),
		"window", fmt.Sprintf("%s-%s", s.window.Start, s.window.End),
		"digest_at", s.digestAt.String(),
		"separate_reminders", s.separateReminders)
	return g.Wait()
}

func (s *Scheduler) nextTick(now time.Time) time.Time {
	return NextInterval(now, s.interval)
}

func (s *Scheduler) loop(ctx context.Context, job string, next func(time.Time) time.Time, run func(context.Context, time.Time) (string, error)) error {
	for {
		now := s.clock.Now().In(s.loc)
		fire := next(now)
		timer := s.clock.NewTimer(fire.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Debug(ctx, "Job stopped", "job", job)
			return nil
		case <-timer.Chan():
		}

		// an in-flight cycle finishes even if shutdown starts meanwhile
		outcome, err := run(context.WithoutCancel(ctx), s.clock.Now().In(s.loc))
		if err != nil {
			logger.ErrorWithErr(ctx, "Job cycle failed", err, "job", job)
			outcome = metrics.OutcomeFailed
		}
		s.metrics.RecordCycle(job, outcome)
	}
}

// runLive polls inside the active window. Outside it, folded reminders still
// run so that releases right after the window opens get their lead time.
func (s *Scheduler) runLive(ctx context.Context, now time.Time) (string, error) {
	dates := s.LiveDates(now)
	withReminders := s.remindersEnabled && !s.separateReminders
	if !s.window.Contains(now) {
		if !withReminders {
			return metrics.OutcomeSkipped, nil
		}
		return s.runReminder(ctx, now)
	}
	if _, err := s.runner.Poll(ctx, withReminders, dates...); err != nil {
		return "", err
	}
	return metrics.OutcomeOK, nil
}

func (s *Scheduler) runReminder(ctx context.Context, now time.Time) (string, error) {
	if _, err := s.runner.Remind(ctx, s.LiveDates(now)...); err != nil {
		return "", err
	}
	return metrics.OutcomeOK, nil
}

func (s *Scheduler) runDigest(ctx context.Context, now time.Time) (string, error) {
	if _, err := s.runner.Digest(ctx, Tomorrow(now)); err != nil {
		return "", err
	}
	return metrics.OutcomeOK, nil
}

// LiveDates is today, plus tomorrow once the cutover has passed.
func (s *Scheduler) LiveDates(now time.Time) []string {
	dates := []string{now.Format(types.DateLayout)}
	if AfterCutover(now, s.cutover) {
		dates = append(dates, Tomorrow(now))
	}
	return dates
}
