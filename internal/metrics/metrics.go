package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"BandSentinel/internal/model"
)

// Metrics holds all Prometheus metrics for the band sentinel.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	EvaluationsTotal *prometheus.CounterVec // labels: outcome=BUY|SELL|HOLD|no_data
	AddsTotal        *prometheus.CounterVec // labels: outcome
	RefreshDuration  prometheus.Histogram
	RefreshesTotal   prometheus.Counter
	WatchlistSize    prometheus.Gauge

	gatherer prometheus.Gatherer
}

// NewMetrics creates the metrics and registers them on reg. A nil reg uses a
// fresh private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bandsentinel_evaluations_total",
			Help: "Symbol evaluations by outcome",
		}, []string{"outcome"}),
		AddsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bandsentinel_watchlist_adds_total",
			Help: "Watchlist add attempts by outcome",
		}, []string{"outcome"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bandsentinel_refresh_duration_seconds",
			Help:    "Wall time of a full watchlist refresh",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		RefreshesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bandsentinel_refreshes_total",
			Help: "Completed watchlist refresh cycles",
		}),
		WatchlistSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bandsentinel_watchlist_size",
			Help: "Number of tracked symbols",
		}),
		gatherer: reg,
	}
	reg.MustRegister(
		m.EvaluationsTotal,
		m.AddsTotal,
		m.RefreshDuration,
		m.RefreshesTotal,
		m.WatchlistSize,
	)
	return m
}

// ObserveEvaluation counts one evaluation by its signal, or no_data on error.
func (m *Metrics) ObserveEvaluation(res *model.EvaluationResult, err error) {
	if m == nil {
		return
	}
	outcome := "no_data"
	if err == nil && res != nil {
		outcome = string(res.Signal)
	}
	m.EvaluationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveAdd(outcome string) {
	if m == nil {
		return
	}
	m.AddsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRefresh(d time.Duration) {
	if m == nil {
		return
	}
	m.RefreshesTotal.Inc()
	m.RefreshDuration.Observe(d.Seconds())
}

func (m *Metrics) SetWatchlistSize(n int) {
	if m == nil {
		return
	}
	m.WatchlistSize.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics endpoint listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "metrics server")
	}
	return nil
}
