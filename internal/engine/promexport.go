package engine

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ambient observability alongside the per-run NDJSON metrics files. These
// are process-wide counters, not part of the stable IPC protocol.
var (
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetd_pipeline_runs_total",
		Help: "Total pipeline runs by result.",
	}, []string{"result"})

	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fleetd_job_duration_seconds",
		Help:    "Job duration in seconds by outcome.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	ActiveWatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fleetd_active_watches",
		Help: "Number of currently registered, unpaused watches.",
	})
)

// ServeMetrics binds a loopback HTTP server exposing /metrics, returning
// once ctx is cancelled.
func ServeMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	fmt.Printf("fleetd: prometheus metrics on http://%s/metrics\n", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}
