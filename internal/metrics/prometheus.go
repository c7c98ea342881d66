package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder reports tracer activity using Prometheus primitives.
type PrometheusRecorder struct {
	steps        *prometheus.CounterVec
	stepLatency  *prometheus.HistogramVec
	executions   *prometheus.CounterVec
	execLatency  *prometheus.HistogramVec
	forcedCloses *prometheus.CounterVec
}

func NewPrometheusRecorder(registry *prometheus.Registry) (*PrometheusRecorder, error) {
	if registry == nil {
		return nil, fmt.Errorf("prometheus registry is nil")
	}

	r := &PrometheusRecorder{
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_analyzer_steps_total",
			Help: "Total recorded step completions by status",
		}, []string{"agent_id", "status"}),
		stepLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "workflow_analyzer_step_duration_seconds",
			Help:    "Observed step latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"agent_id"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_analyzer_executions_total",
			Help: "Total finalized executions by status",
		}, []string{"workflow_id", "status"}),
		execLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "workflow_analyzer_execution_duration_seconds",
			Help:    "Observed execution wall clock in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"workflow_id"}),
		forcedCloses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "workflow_analyzer_forced_closes_total",
			Help: "Steps force-closed at execution finalization",
		}, []string{"agent_id"}),
	}

	for _, collector := range []prometheus.Collector{r.steps, r.stepLatency, r.executions, r.execLatency, r.forcedCloses} {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return r, nil
}

func (r *PrometheusRecorder) ObserveStep(agentID string, status string, duration time.Duration) {
	r.steps.WithLabelValues(agentID, status).Inc()
	r.stepLatency.WithLabelValues(agentID).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) ObserveExecution(workflowID string, status string, duration time.Duration) {
	r.executions.WithLabelValues(workflowID, status).Inc()
	r.execLatency.WithLabelValues(workflowID).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) ObserveForcedClose(agentID string) {
	r.forcedCloses.WithLabelValues(agentID).Inc()
}

// StartPrometheusServer exposes the registry on /metrics. Off unless the
// caller opts in; the analyzer core itself never serves traffic.
func StartPrometheusServer(addr string, registry *prometheus.Registry) (*http.Server, error) {
	if addr == "" {
		addr = ":2112"
	}
	if registry == nil {
		return nil, fmt.Errorf("prometheus registry is nil")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics endpoint %q: %w", addr, err)
	}

	srv := &http.Server{
		Addr:    ln.Addr().String(),
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	go func() {
		_ = srv.Serve(ln)
	}()
	return srv, nil
}

func StopServer(ctx context.Context, srv *http.Server) error {
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
