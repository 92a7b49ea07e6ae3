// Package metrics exposes the bot's Prometheus counters. A nil *Recorder is
// valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"econ-calendar-bot/internal/logger"
)

const namespace = "econbot"

// Cycle and notification outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
	OutcomeDelivered = "delivered"
	OutcomeDry       = "dry"
)

type Recorder struct {
	cycles        *prometheus.CounterVec
	notifications *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	posted        *prometheus.GaugeVec
}

// New registers the collectors on reg (prometheus.DefaultRegisterer when nil).
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		cycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cycles_total",
				Help:      "Scheduler job runs by outcome",
			},
			[]string{"job", "outcome"},
		),
		notifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Notifications handed to the sink by category and outcome",
			},
			[]string{"category", "outcome"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_duration_seconds",
				Help:      "Data provider call duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		posted: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "posted_identities",
				Help:      "Identities in the posted set per bucket",
			},
			[]string{"bucket"},
		),
	}
}

func (r *Recorder) RecordCycle(job, outcome string) {
	if r == nil {
		return
	}
	r.cycles.WithLabelValues(job, outcome).Inc()
}

func (r *Recorder) RecordNotification(category, outcome string) {
	if r == nil {
		return
	}
	r.notifications.WithLabelValues(category, outcome).Inc()
}

func (r *Recorder) RecordLatency(op string, d time.Duration) {
	if r == nil {
		return
	}
	r.latency.WithLabelValues(op).Observe(d.Seconds())
}

func (r *Recorder) SetPosted(bucket string, n int) {
	if r == nil {
		return
	}
	r.posted.WithLabelValues(bucket).Set(float64(n))
}

// Serve exposes /metrics and /healthz on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info(ctx, "Metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
