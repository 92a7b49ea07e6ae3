package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"econ-calendar-bot/internal/api"
	"econ-calendar-bot/internal/identity"
	"econ-calendar-bot/internal/interfaces"
	"econ-calendar-bot/internal/journal"
	"econ-calendar-bot/internal/llm"
	"econ-calendar-bot/internal/llm/claude"
	"econ-calendar-bot/internal/llm/heuristic"
	"econ-calendar-bot/internal/llm/llmobs"
	"econ-calendar-bot/internal/llm/openai"
	"econ-calendar-bot/internal/logger"
	"econ-calendar-bot/internal/metrics"
	"econ-calendar-bot/internal/notify"
	"econ-calendar-bot/internal/notify/notifyobs"
	"econ-calendar-bot/internal/posted"
	"econ-calendar-bot/internal/provider"
	"econ-calendar-bot/internal/provider/providerobs"
	"econ-calendar-bot/internal/store"
	"econ-calendar-bot/internal/trace"
)

const version = "1.0.0"

// initializeSystem initializes logger and tracer
func initializeSystem() error {
	// Load environment variables
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(version); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

// loadConfig reads BOT_CONFIG, or config.yaml in the working directory.
func loadConfig(ctx context.Context) (*store.Config, error) {
	path := os.Getenv("BOT_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	logger.Info(ctx, "Config loaded", "path", path, "timezone", cfg.Timezone, "countries", cfg.Countries)
	return cfg, nil
}

// initializeJournal opens the notification journal and compresses old days.
func initializeJournal(ctx context.Context, cfg *store.Config) (*journal.Journal, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	j := journal.New(cfg.Journal.Dir, loc)
	if cfg.Journal.RetentionDays > 0 {
		n, err := j.CompressOlder(cfg.Journal.RetentionDays)
		if err != nil {
			logger.Warn(ctx, "Failed to compress old journal files", "error", err)
		} else if n > 0 {
			logger.Info(ctx, "Compressed old journal files", "files", n)
		}
	}
	return j, nil
}

// initializePosted opens the configured backend and loads every bucket.
// The returned close func releases the backend.
func initializePosted(ctx context.Context, cfg *store.Config) (*posted.Store, func(), error) {
	var (
		backend posted.Backend
		closeFn = func() {}
	)

	switch cfg.Posted.Backend {
	case "redis":
		rb, err := posted.NewRedisBackend(
			posted.WithRedisAddr(cfg.Posted.Redis.Addr),
			posted.WithRedisPassword(os.Getenv("REDIS_PASSWORD")),
			posted.WithRedisDB(cfg.Posted.Redis.DB),
			posted.WithRedisPrefix(cfg.Posted.Redis.Prefix),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("redis posted backend: %w", err)
		}
		backend = rb
		closeFn = func() { _ = rb.Close() }
		logger.Info(ctx, "Using Redis posted store", "addr", cfg.Posted.Redis.Addr, "prefix", cfg.Posted.Redis.Prefix)
	default:
		fb, err := posted.NewFileBackend(cfg.Posted.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("file posted backend: %w", err)
		}
		backend = fb
		logger.Info(ctx, "Using file posted store", "dir", cfg.Posted.Dir)
	}

	st := posted.New(backend)
	st.LoadAll(ctx, identity.Buckets())
	return st, closeFn, nil
}

// httpOptions are shared by every outbound JSON client. Request tracing
// follows the logger's debug switch.
func httpOptions(extra ...api.ClientOption) []api.ClientOption {
	return append([]api.ClientOption{api.WithLogging(logger.IsDebugEnabled())}, extra...)
}

// initializeProvider initializes the release provider with observability
func initializeProvider(ctx context.Context, cfg *store.Config) interfaces.ReleaseProvider {
	var p interfaces.ReleaseProvider

	if cfg.Provider.Source == "STATIC" {
		logger.Info(ctx, "Using STATIC demo releases")
		p = provider.NewStaticProvider()
	} else {
		limiter := rate.NewLimiter(rate.Limit(cfg.Provider.RatePerSecond), cfg.Provider.Burst)
		opts := []provider.InvestingOption{provider.WithLimiter(limiter)}
		if len(cfg.Tickers) > 0 {
			opts = append(opts, provider.WithEarnings(provider.NewNasdaqEarningsProvider(cfg.Provider.EarningsURL, cfg.Tickers, httpOptions()...)))
		}
		p = provider.NewInvestingProvider(cfg.Provider.CalendarURL, cfg.Countries, cfg.ImportanceThreshold, cfg.Provider.Timeout, opts...)
		logger.Info(ctx, "Using LIVE calendar", "url", cfg.Provider.CalendarURL, "tickers", len(cfg.Tickers))
	}

	// Wrap with observability middleware
	return providerobs.Wrap(p)
}

// initializeInferrer chains the configured model in front of the session-hint fallback.
func initializeInferrer(ctx context.Context, cfg *store.Config) interfaces.TimeInferrer {
	var chain []interfaces.TimeInferrer

	switch cfg.LLM.Provider {
	case "OPENAI":
		inf, err := openai.New(cfg, httpOptions()...)
		if err != nil {
			logger.Warn(ctx, "OpenAI inferrer unavailable, using heuristics only", "error", err)
		} else {
			chain = append(chain, inf)
		}
	case "CLAUDE":
		inf, err := claude.New(cfg, httpOptions()...)
		if err != nil {
			logger.Warn(ctx, "Claude inferrer unavailable, using heuristics only", "error", err)
		} else {
			chain = append(chain, inf)
		}
	default:
		logger.Info(ctx, "No LLM provider configured - only literal and session-hint times are inferred")
	}
	chain = append(chain, heuristic.New())

	// Wrap with observability middleware
	return llmobs.Wrap(llm.Cached(llm.Chain(chain...)))
}

// initializeSink builds the outbound sink. The returned close func cancels
// pending message deletions.
func initializeSink(ctx context.Context, cfg *store.Config, j *journal.Journal, dry bool) (interfaces.Sink, func(), error) {
	var (
		sink    interfaces.Sink
		closeFn = func() {}
	)

	if dry || cfg.Sink.Kind == "CONSOLE" {
		logger.Warn(ctx, "Notifications go to stdout", "dry_run", dry)
		sink = notify.NewConsoleSink(os.Stdout)
	} else {
		ds, err := notify.NewDiscordSink(os.Getenv("DISCORD_WEBHOOK_URL"), cfg.Sink.Username,
			notify.WithClientOptions(httpOptions(api.WithTimeout(15*time.Second))...),
		)
		if err != nil {
			return nil, nil, err
		}
		sink = ds
		closeFn = func() { _ = ds.Close() }
	}

	// Wrap with journal and observability middleware
	return notifyobs.Wrap(notify.NewJournalSink(sink, j)), closeFn, nil
}

// initializeMetrics registers the collectors and serves them when an address is set.
func initializeMetrics(ctx context.Context, cfg *store.Config) *metrics.Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, reg); err != nil {
				logger.ErrorWithErr(ctx, "Metrics endpoint failed", err, "addr", cfg.Metrics.Addr)
			}
		}()
	}
	return rec
}

func shutdownTracer() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = trace.Shutdown(ctx)
}
