// Package perf keeps a bounded in-memory record of recent request and query latency for the
// admin performance view. Prometheus carries the long-term series.
package perf

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the default capacity of the ring buffer.
const DefaultRingSize = 10000

// Kind distinguishes request samples from query samples.
type Kind uint8

const (
	KindRequest Kind = iota
	KindQuery
)

// Sample is a single timing record stored in the ring buffer.
type Sample struct {
	Kind     Kind
	Name     string // "METHOD /path" or "db.op"
	Status   int    // HTTP status, 0 for queries
	Duration time.Duration
	At       time.Time
}

// Collector is a fixed-size ring buffer of samples. When full, the oldest sample is
// overwritten. Aggregation happens on read.
type Collector struct {
	mu      sync.Mutex
	samples []Sample
	pos     int
	total   atomic.Int64
	now     func() time.Time
}

// NewCollector creates a collector holding at most size samples.
// POST: a non-positive size falls back to DefaultRingSize
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{samples: make([]Sample, size), now: time.Now}
}

// Record appends a sample, stamping it with the current time when At is zero.
func (c *Collector) Record(s Sample) {
	if s.At.IsZero() {
		s.At = c.now()
	}
	c.mu.Lock()
	c.samples[c.pos] = s
	c.pos = (c.pos + 1) % len(c.samples)
	c.mu.Unlock()
	c.total.Add(1)
}

// RecordRequest records one HTTP request.
func (c *Collector) RecordRequest(method, path string, status int, d time.Duration) {
	c.Record(Sample{Kind: KindRequest, Name: method + " " + path, Status: status, Duration: d})
}

// RecordQuery records one SQL call. Its signature matches storage.QueryObserver.
func (c *Collector) RecordQuery(db, op string, d time.Duration) {
	c.Record(Sample{Kind: KindQuery, Name: db + "." + op, Duration: d})
}

// TotalRecorded returns the number of samples ever recorded, including overwritten ones.
func (c *Collector) TotalRecorded() int64 {
	return c.total.Load()
}

// Stat aggregates the samples sharing one name.
type Stat struct {
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	AvgMs  float64 `json:"avg_ms"`
	MaxMs  float64 `json:"max_ms"`
	Errors int     `json:"errors"` // responses with status >= 500
}

// Snapshot is the aggregated view of the buffer.
type Snapshot struct {
	Since          time.Time `json:"since"`
	Requests       int       `json:"requests"`
	TotalRecorded  int64     `json:"total_recorded"`
	RequestP50Ms   float64   `json:"request_p50_ms"`
	RequestP95Ms   float64   `json:"request_p95_ms"`
	RequestP99Ms   float64   `json:"request_p99_ms"`
	SlowestPaths   []Stat    `json:"slowest_paths"`
	SlowestQueries []Stat    `json:"slowest_queries"`
}

// Snapshot aggregates samples recorded at or after since, keeping the topN slowest names
// of each kind by average latency.
// POST: percentiles are zero when no request sample qualifies
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	buf := make([]Sample, len(c.samples))
	copy(buf, c.samples)
	c.mu.Unlock()

	var latencies []float64
	requests := make(map[string]*Stat)
	queries := make(map[string]*Stat)
	for _, s := range buf {
		if s.At.IsZero() || s.At.Before(since) {
			continue
		}
		ms := float64(s.Duration.Microseconds()) / 1000.0
		stats := queries
		if s.Kind == KindRequest {
			stats = requests
			latencies = append(latencies, ms)
		}
		st, ok := stats[s.Name]
		if !ok {
			st = &Stat{Name: s.Name}
			stats[s.Name] = st
		}
		st.Count++
		st.AvgMs += ms // running sum until averaged below
		st.MaxMs = math.Max(st.MaxMs, ms)
		if s.Status >= 500 {
			st.Errors++
		}
	}

	snap := Snapshot{
		Since:          since,
		Requests:       len(latencies),
		TotalRecorded:  c.TotalRecorded(),
		SlowestPaths:   slowest(requests, topN),
		SlowestQueries: slowest(queries, topN),
	}
	if len(latencies) > 0 {
		sort.Float64s(latencies)
		snap.RequestP50Ms = percentile(latencies, 50)
		snap.RequestP95Ms = percentile(latencies, 95)
		snap.RequestP99Ms = percentile(latencies, 99)
	}
	return snap
}

// percentile interpolates the p-th percentile of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lower, upper := int(math.Floor(idx)), int(math.Ceil(idx))
	if lower == upper {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

func slowest(stats map[string]*Stat, n int) []Stat {
	list := make([]Stat, 0, len(stats))
	for _, s := range stats {
		s.AvgMs /= float64(s.Count)
		list = append(list, *s)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].AvgMs != list[j].AvgMs {
			return list[i].AvgMs > list[j].AvgMs
		}
		return list[i].Name < list[j].Name
	})
	if n > 0 && len(list) > n {
		list = list[:n]
	}
	return list
}
