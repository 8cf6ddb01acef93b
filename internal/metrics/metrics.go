// Package metrics exposes the daemon's Prometheus surface and samples host
// resource usage into the metrics store on a cron schedule.
package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/nanocl-project/nanocld/internal/logging"
	"github.com/nanocl-project/nanocld/internal/store"
)

// Registry holds the daemon's Prometheus collectors, kept separate from the
// default global registry so tests can build their own.
var Registry = prometheus.NewRegistry()

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "nanocl", Subsystem: "http", Name: "inflight_requests",
		Help: "Current number of in-flight HTTP requests.",
	})
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nanocl", Subsystem: "http", Name: "requests_total",
		Help: "Total number of HTTP requests handled.",
	}, []string{"method", "path", "status"})
	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nanocl", Subsystem: "http", Name: "request_duration_seconds",
		Help: "Duration of HTTP requests.", Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"method", "path"})

	registerOnce sync.Once
)

func register() {
	registerOnce.Do(func() {
		Registry.MustRegister(
			httpInFlight,
			httpRequests,
			httpDuration,
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewGoCollector(),
		)
	})
}

func init() { register() }

// Handler exposes the registered collectors for scraping at /metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps next with request-count and latency collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		httpRequests.WithLabelValues(strings.ToUpper(r.Method), r.URL.Path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(strings.ToUpper(r.Method), r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// hostSample is the payload stored for a Kind "host" metric row.
type hostSample struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemPercent float64 `json:"mem_percent"`
	MemUsedMiB uint64  `json:"mem_used_mib"`
}

// Sampler periodically records host CPU/memory usage into the metrics store
// and prunes rows past their expiry, on the same cron primitive the node
// heartbeat uses.
type Sampler struct {
	cron     *cron.Cron
	store    *store.Store
	log      *logging.Logger
	nodeName string
	ttl      time.Duration

	mu      sync.Mutex
	running bool
}

// NewSampler builds a Sampler that tags rows with nodeName and expires them
// after ttl.
func NewSampler(s *store.Store, log *logging.Logger, nodeName string, ttl time.Duration) *Sampler {
	return &Sampler{cron: cron.New(), store: s, log: log, nodeName: nodeName, ttl: ttl}
}

// Start schedules sampling and pruning on schedule (standard 5-field cron).
func (sm *Sampler) Start(ctx context.Context, schedule string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if sm.running {
		return nil
	}

	if _, err := sm.cron.AddFunc(schedule, func() { sm.sampleOnce(ctx) }); err != nil {
		return err
	}
	if _, err := sm.cron.AddFunc(schedule, func() { sm.pruneOnce(ctx) }); err != nil {
		return err
	}

	sm.cron.Start()
	sm.running = true
	return nil
}

// Stop halts sampling and waits for any in-flight run to finish.
func (sm *Sampler) Stop() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if !sm.running {
		return
	}
	<-sm.cron.Stop().Done()
	sm.running = false
}

func (sm *Sampler) sampleOnce(ctx context.Context) {
	pct, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		sm.log.Errorf("sample cpu: %v", err)
		return
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		sm.log.Errorf("sample mem: %v", err)
		return
	}

	cpuPercent := 0.0
	if len(pct) > 0 {
		cpuPercent = pct[0]
	}

	data, err := json.Marshal(hostSample{
		CPUPercent: cpuPercent,
		MemPercent: vm.UsedPercent,
		MemUsedMiB: vm.Used / (1024 * 1024),
	})
	if err != nil {
		sm.log.Errorf("marshal host sample: %v", err)
		return
	}

	now := time.Now().UTC()
	sample := store.MetricSample{
		Key:       uuid.NewString(),
		CreatedAt: now,
		ExpireAt:  now.Add(sm.ttl),
		NodeName:  sm.nodeName,
		Kind:      "host",
		Data:      data,
	}
	if err := sm.store.CreateMetric(ctx, sample); err != nil {
		sm.log.Errorf("store host sample: %v", err)
	}
}

func (sm *Sampler) pruneOnce(ctx context.Context) {
	n, err := sm.store.PruneExpiredMetrics(ctx)
	if err != nil {
		sm.log.Errorf("prune expired metrics: %v", err)
		return
	}
	if n > 0 {
		sm.log.Debugf("pruned %d expired metric rows", n)
	}
}
