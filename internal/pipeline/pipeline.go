// Package pipeline runs one fetch-decide-notify cycle: it diffs the provider's
// releases against the posted store, emits announcements, updates and
// reminders through the sink, and commits what it handled.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"econ-calendar-bot/internal/classifier"
	"econ-calendar-bot/internal/identity"
	"econ-calendar-bot/internal/interfaces"
	"econ-calendar-bot/internal/logger"
	"econ-calendar-bot/internal/metrics"
	"econ-calendar-bot/internal/notify"
	"econ-calendar-bot/internal/posted"
	"econ-calendar-bot/internal/store"
	"econ-calendar-bot/internal/types"
)

// Result counts what one cycle emitted.
type Result struct {
	Fetched   int
	Announced int
	Updated   int
	Reminded  int
}

func (r Result) Emitted() int { return r.Announced + r.Updated + r.Reminded }

type Pipeline struct {
	store      *posted.Store
	provider   interfaces.ReleaseProvider
	sink       interfaces.Sink
	inferrer   interfaces.TimeInferrer
	classifier *classifier.Classifier
	formatter  *notify.Formatter
	clock      clockwork.Clock
	metrics    *metrics.Recorder
	loc        *time.Location

	high             int
	minLead, maxLead time.Duration
	remindersEnabled bool
	dry              bool
}

type Option func(*Pipeline)

// WithInferrer fills Unknown times before reminders and formatting.
func WithInferrer(inf interfaces.TimeInferrer) Option {
	return func(p *Pipeline) { p.inferrer = inf }
}

func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithDryRun sends everything but never commits to the posted store.
func WithDryRun(dry bool) Option {
	return func(p *Pipeline) { p.dry = dry }
}

func New(cfg *store.Config, st *posted.Store, prov interfaces.ReleaseProvider, sink interfaces.Sink, opts ...Option) (*Pipeline, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("pipeline location: %w", err)
	}
	p := &Pipeline{
		store:            st,
		provider:         prov,
		sink:             sink,
		classifier:       classifier.New(cfg.Classifier.NegativeGood, cfg.Classifier.PositiveGood),
		formatter:        notify.NewFormatter(cfg.HighImportance, cfg.Reminder.TTL),
		clock:            clockwork.NewRealClock(),
		loc:              loc,
		high:             cfg.HighImportance,
		minLead:          cfg.Reminder.MinLead,
		maxLead:          cfg.Reminder.MaxLead,
		remindersEnabled: cfg.Reminder.Enabled,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Location is the zone wall-clock times are interpreted in.
func (p *Pipeline) Location() *time.Location { return p.loc }

// Now is the pipeline clock in its location.
func (p *Pipeline) Now() time.Time { return p.clock.Now().In(p.loc) }

// Today is the current calendar date in the pipeline location.
func (p *Pipeline) Today() string { return p.Now().Format(types.DateLayout) }

// Poll runs announcements and updates for the given dates, and reminders
// when withReminders is set. A provider error aborts before any send or commit.
func (p *Pipeline) Poll(ctx context.Context, withReminders bool, dates ...string) (Result, error) {
	ctx = logger.WithCycleID(ctx, uuid.NewString())
	timer := logger.StartOperation(ctx, "pipeline.Poll", "dates", fmt.Sprint(dates))
	ctx = timer.GetContext()

	releases, err := p.fetch(ctx, dates, true)
	if err != nil {
		timer.EndWithError(err)
		return Result{}, err
	}
	p.resolveTimes(ctx, releases)

	res := Result{Fetched: len(releases)}
	res.Announced = p.announce(ctx, releases)
	res.Updated = p.update(ctx, releases)
	if withReminders {
		res.Reminded = p.remindFrom(ctx, releases)
	}

	p.reportSizes()
	timer.End("fetched", res.Fetched, "announced", res.Announced, "updated", res.Updated, "reminded", res.Reminded)
	if res.Emitted() > 0 {
		logger.Info(ctx, "Poll cycle emitted notifications",
			"announced", res.Announced, "updated", res.Updated, "reminded", res.Reminded)
	}
	return res, nil
}

// Remind runs only the reminder step against the releases of dates, today
// when none are given.
func (p *Pipeline) Remind(ctx context.Context, dates ...string) (Result, error) {
	if !p.remindersEnabled {
		return Result{}, nil
	}
	ctx = logger.WithCycleID(ctx, uuid.NewString())
	if len(dates) == 0 {
		dates = []string{p.Today()}
	}

	releases, err := p.fetch(ctx, dates, false)
	if err != nil {
		logger.ErrorWithErr(ctx, "Reminder cycle aborted", err)
		return Result{}, err
	}
	p.resolveTimes(ctx, releases)

	res := Result{Fetched: len(releases), Reminded: p.remindFrom(ctx, releases)}
	p.reportSizes()
	return res, nil
}

// Digest sends the preview of date in full. Nothing is checked or committed.
func (p *Pipeline) Digest(ctx context.Context, date string) (int, error) {
	ctx = logger.WithCycleID(ctx, uuid.NewString())

	releases, err := p.fetch(ctx, []string{date}, true)
	if err != nil {
		logger.ErrorWithErr(ctx, "Digest aborted", err, "date", date)
		return 0, err
	}
	p.resolveTimes(ctx, releases)

	msg := p.formatter.Digest(date, releases)
	delivered := p.send(ctx, "digest", msg)
	logger.Notification(ctx, "digest", date, delivered, "releases", len(releases))
	return len(releases), nil
}

func (p *Pipeline) fetch(ctx context.Context, dates []string, withEarnings bool) ([]types.Release, error) {
	var all []types.Release
	for _, date := range dates {
		start := time.Now()
		rs, err := p.provider.FetchReleases(ctx, date)
		p.metrics.RecordLatency("FetchReleases", time.Since(start))
		if err != nil {
			return nil, err
		}
		all = append(all, rs...)

		if !withEarnings {
			continue
		}
		start = time.Now()
		es, err := p.provider.FetchEarnings(ctx, date)
		p.metrics.RecordLatency("FetchEarnings", time.Since(start))
		if err != nil {
			return nil, err
		}
		all = append(all, es...)
	}
	return all, nil
}

// resolveTimes asks the inferrer for every Unknown time. Failures leave the time Unknown.
func (p *Pipeline) resolveTimes(ctx context.Context, releases []types.Release) {
	if p.inferrer == nil {
		return
	}
	for i := range releases {
		if releases[i].Time.Known() {
			continue
		}
		tod, err := p.inferrer.InferTime(ctx, releases[i])
		if err != nil {
			logger.Warn(ctx, "Time inference failed, keeping Unknown", "title", releases[i].Title, "error", err)
			continue
		}
		releases[i].Time = tod
	}
}

type pending struct {
	bucket string
	id     types.Identity
}

// announce batches every unseen release into one message per date, then
// commits each identity of that message.
func (p *Pipeline) announce(ctx context.Context, releases []types.Release) int {
	var (
		dates   []string
		batches = map[string][]types.Release{}
		ids     = map[string][]pending{}
		seen    = map[string]bool{}
	)
	for _, r := range releases {
		bucket := identity.Bucket(r.Kind, types.CategoryAnnouncement)
		id := identity.Of(r, types.CategoryAnnouncement)
		if seen[bucket+id.Key()] || p.store.Contains(bucket, id) {
			continue
		}
		seen[bucket+id.Key()] = true
		if _, ok := batches[r.Date]; !ok {
			dates = append(dates, r.Date)
		}
		batches[r.Date] = append(batches[r.Date], r)
		ids[r.Date] = append(ids[r.Date], pending{bucket: bucket, id: id})
	}
	sort.Strings(dates)

	n := 0
	for _, date := range dates {
		delivered := p.send(ctx, string(types.CategoryAnnouncement), p.formatter.Announcements(date, batches[date]))
		for _, pd := range ids[date] {
			logger.Notification(ctx, string(types.CategoryAnnouncement), pd.id.String(), delivered)
			p.commit(ctx, pd.bucket, pd.id)
		}
		n += len(batches[date])
	}
	return n
}

// update emits one message per release whose actual appeared since the last commit.
func (p *Pipeline) update(ctx context.Context, releases []types.Release) int {
	n := 0
	seen := map[string]bool{}
	for _, r := range releases {
		if !r.HasActual() {
			continue
		}
		bucket := identity.Bucket(r.Kind, types.CategoryUpdate)
		id := identity.Of(r, types.CategoryUpdate)
		if seen[bucket+id.Key()] || p.store.Contains(bucket, id) {
			continue
		}
		seen[bucket+id.Key()] = true

		result := p.classifier.Classify(r)
		delivered := p.send(ctx, string(types.CategoryUpdate), p.formatter.Update(r, result))
		logger.Notification(ctx, string(types.CategoryUpdate), id.String(), delivered, "sentiment", result.Label)
		p.commit(ctx, bucket, id)
		n++
	}
	return n
}

// remindFrom alerts high-importance macro releases whose start lies within
// [minLead, maxLead] of now, both ends inclusive.
func (p *Pipeline) remindFrom(ctx context.Context, releases []types.Release) int {
	if !p.remindersEnabled {
		return 0
	}
	now := p.Now()
	n := 0
	for _, r := range releases {
		if r.Kind != types.KindMacro || r.Importance < p.high {
			continue
		}
		at, ok := r.Time.On(r.Date, p.loc)
		if !ok {
			continue
		}
		lead := at.Sub(now)
		if !InWindow(lead, p.minLead, p.maxLead) {
			continue
		}

		bucket := identity.Bucket(r.Kind, types.CategoryReminder)
		id := identity.Of(r, types.CategoryReminder)
		if p.store.Contains(bucket, id) {
			continue
		}

		delivered := p.send(ctx, string(types.CategoryReminder), p.formatter.Reminder(r, lead))
		logger.Notification(ctx, string(types.CategoryReminder), id.String(), delivered, "lead", lead.String())
		p.commit(ctx, bucket, id)
		n++
	}
	return n
}

// InWindow reports lo <= lead <= hi.
func InWindow(lead, lo, hi time.Duration) bool {
	return lead >= lo && lead <= hi
}

// send reports delivery; failures are logged and never stop the commit.
func (p *Pipeline) send(ctx context.Context, category string, msg types.Message) bool {
	if err := p.sink.Send(ctx, msg); err != nil {
		logger.ErrorWithErr(ctx, "Sink delivery failed", err, "category", category, "title", msg.Title)
		p.metrics.RecordNotification(category, metrics.OutcomeFailed)
		return false
	}
	outcome := metrics.OutcomeDelivered
	if p.dry {
		outcome = metrics.OutcomeDry
	}
	p.metrics.RecordNotification(category, outcome)
	return true
}

func (p *Pipeline) commit(ctx context.Context, bucket string, id types.Identity) {
	if p.dry {
		return
	}
	if err := p.store.Commit(ctx, bucket, id); err != nil {
		logger.ErrorWithErr(ctx, "Failed to persist posted state", err, "bucket", bucket, "identity", id.String())
	}
}

func (p *Pipeline) reportSizes() {
	for _, b := range identity.Buckets() {
		p.metrics.SetPosted(b, p.store.Size(b))
	}
}
