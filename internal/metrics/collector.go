package metrics

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// failureKinder is implemented by errors that classify themselves, such as
// auth.RemoteFetchError.
type failureKinder interface {
	FailureKind() string
}

// Collector records token lifecycle events in a thread-safe manner: cache
// hits, refreshes by reason, and the latency and outcome of every call to the
// identity endpoint.
type Collector struct {
	mu           sync.Mutex
	hist         *hdrhistogram.Histogram
	cacheHits    int64
	successes    int64
	failures     int64
	minLatency   time.Duration
	maxLatency   time.Duration
	sumLatency   time.Duration
	refreshes    map[string]int64
	errorsByKind map[string]int64
	start        time.Time
}

// Stats represents aggregated token lifecycle metrics.
type Stats struct {
	CacheHits   int64         `json:"cache_hits"`
	Fetches     int64         `json:"fetches"`
	Successes   int64         `json:"successes"`
	Failures    int64         `json:"failures"`
	MinLatency  time.Duration `json:"-"`
	MaxLatency  time.Duration `json:"-"`
	MeanLatency time.Duration `json:"-"`
	P50Latency  time.Duration `json:"-"`
	P90Latency  time.Duration `json:"-"`
	P99Latency  time.Duration `json:"-"`
	Uptime      time.Duration `json:"-"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64          `json:"min_latency_ms"`
	MaxLatencyMs  float64          `json:"max_latency_ms"`
	MeanLatencyMs float64          `json:"mean_latency_ms"`
	P50LatencyMs  float64          `json:"p50_latency_ms"`
	P90LatencyMs  float64          `json:"p90_latency_ms"`
	P99LatencyMs  float64          `json:"p99_latency_ms"`
	UptimeMs      float64          `json:"uptime_ms"`
	Refreshes     map[string]int64 `json:"refreshes,omitempty"`
	Errors        map[string]int64 `json:"errors,omitempty"`
}

func NewCollector() *Collector {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Collector{
		hist:         h,
		refreshes:    make(map[string]int64),
		errorsByKind: make(map[string]int64),
		start:        time.Now(),
	}
}

// CacheHit records a token served from the session cache.
func (c *Collector) CacheHit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheHits++
}

// Refresh records that the cached token was replaced, and why.
func (c *Collector) Refresh(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshes[reason]++
}

// FetchDone records a single identity endpoint round trip.
func (c *Collector) FetchDone(latency time.Duration, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if latency > 0 {
		us := latency.Microseconds()
		if us < c.hist.LowestTrackableValue() {
			us = c.hist.LowestTrackableValue()
		}
		if us > c.hist.HighestTrackableValue() {
			us = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(us)
	}
	c.sumLatency += latency

	if c.minLatency == 0 || latency < c.minLatency {
		c.minLatency = latency
	}
	if latency > c.maxLatency {
		c.maxLatency = latency
	}

	if err == nil {
		c.successes++
		return
	}
	c.failures++
	c.errorsByKind[errorKind(err)]++
}

func errorKind(err error) string {
	var k failureKinder
	if errors.As(err, &k) {
		return k.FailureKind()
	}
	kind := fmt.Sprintf("%T", err)
	if len(kind) > 30 {
		kind = kind[len(kind)-30:]
	}
	return kind
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	fetches := c.successes + c.failures
	stats := Stats{
		CacheHits:  c.cacheHits,
		Fetches:    fetches,
		Successes:  c.successes,
		Failures:   c.failures,
		MinLatency: c.minLatency,
		MaxLatency: c.maxLatency,
		Uptime:     time.Since(c.start),
	}

	if fetches > 0 {
		stats.MeanLatency = time.Duration(int64(c.sumLatency) / fetches)
	}

	if c.hist.TotalCount() > 0 {
		stats.P50Latency = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90Latency = time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P99Latency = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	stats.MinLatencyMs = float64(stats.MinLatency) / float64(time.Millisecond)
	stats.MaxLatencyMs = float64(stats.MaxLatency) / float64(time.Millisecond)
	stats.MeanLatencyMs = float64(stats.MeanLatency) / float64(time.Millisecond)
	stats.P50LatencyMs = float64(stats.P50Latency) / float64(time.Millisecond)
	stats.P90LatencyMs = float64(stats.P90Latency) / float64(time.Millisecond)
	stats.P99LatencyMs = float64(stats.P99Latency) / float64(time.Millisecond)
	stats.UptimeMs = float64(stats.Uptime) / float64(time.Millisecond)

	if len(c.refreshes) > 0 {
		stats.Refreshes = make(map[string]int64, len(c.refreshes))
		for k, v := range c.refreshes {
			stats.Refreshes[k] = v
		}
	}
	if len(c.errorsByKind) > 0 {
		stats.Errors = make(map[string]int64, len(c.errorsByKind))
		for k, v := range c.errorsByKind {
			stats.Errors[k] = v
		}
	}

	return stats
}
