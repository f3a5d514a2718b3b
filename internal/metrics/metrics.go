package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PollCycles = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "deadticker_poll_cycles_total",
		Help: "Total mention poll cycles",
	})
	PollErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deadticker_poll_errors_total",
		Help: "Poll failures by kind (throttled, other)",
	}, []string{"kind"})
	MentionOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deadticker_mention_outcomes_total",
		Help: "Mentions handled, by terminal outcome",
	}, []string{"outcome"})
	WriteThrottles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deadticker_write_throttles_total",
		Help: "Write calls rejected by platform rate limits",
	}, []string{"endpoint"})
	ResolverCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deadticker_resolver_cache_total",
		Help: "Contract lookups served from cache (hit) or the market source (miss)",
	}, []string{"result"})
	RenderDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "deadticker_render_duration_seconds",
		Help:    "Tombstone render duration seconds",
		Buckets: prometheus.DefBuckets,
	})
	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deadticker_api_retries_total",
		Help: "Total API retry attempts",
	}, []string{"endpoint"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deadticker_command_runs_total",
		Help: "CLI command runs",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "deadticker_command_errors_total",
		Help: "CLI command failures",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(PollCycles, PollErrors, MentionOutcomes, WriteThrottles,
		ResolverCache, RenderDuration, APIRetries, CommandRuns, CommandErrors)
}

// Handler routes /metrics and /health.
func Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }).Methods(http.MethodGet)
	return r
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) *http.Server {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return nil
	}
	srv := &http.Server{Addr: addr, Handler: Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

// ObserveRenderDuration records a render duration.
func ObserveRenderDuration(start time.Time) { RenderDuration.Observe(time.Since(start).Seconds()) }

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
