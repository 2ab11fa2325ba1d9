// Package perf keeps a bounded in-memory window of request timings for the
// development performance page. Prometheus remains the production source.
package perf

import (
	"cmp"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultRingSize is the default capacity of the ring buffer.
const DefaultRingSize = 10000

// Entry is a single timing record stored in the ring buffer.
type Entry struct {
	Route      string // "METHOD /pattern"
	StatusCode int
	DurationMs float64
	Timestamp  time.Time
}

// Collector is a fixed-size ring buffer for timing entries.
// Writes are non-blocking; when full, oldest entries are overwritten.
// Aggregation happens only on read (Snapshot).
type Collector struct {
	mu      sync.Mutex
	entries []Entry
	size    int
	pos     int
	count   int64 // total entries ever written (atomic for stats)
}

// NewCollector creates a collector with the given ring buffer capacity.
// A non-positive size uses DefaultRingSize.
func NewCollector(size int) *Collector {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Collector{
		entries: make([]Entry, size),
		size:    size,
	}
}

// Record appends an entry to the ring buffer.
// POST: Entry stored; if buffer full, oldest entry overwritten
func (c *Collector) Record(e Entry) {
	c.mu.Lock()
	c.entries[c.pos] = e
	c.pos = (c.pos + 1) % c.size
	c.mu.Unlock()
	atomic.AddInt64(&c.count, 1)
}

// TotalRecorded returns the total number of entries ever recorded.
func (c *Collector) TotalRecorded() int64 {
	return atomic.LoadInt64(&c.count)
}

// Snapshot holds aggregated performance data computed on read.
type Snapshot struct {
	TotalRequests int64       `json:"totalRequests"`
	Window        int         `json:"window"` // entries inside the since window
	ServerErrors  int         `json:"serverErrors"`
	P50Ms         float64     `json:"p50Ms"`
	P95Ms         float64     `json:"p95Ms"`
	P99Ms         float64     `json:"p99Ms"`
	SlowestRoutes []RouteStat `json:"slowestRoutes"`
}

// RouteStat aggregates timing for one route.
type RouteStat struct {
	Route   string  `json:"route"`
	AvgMs   float64 `json:"avgMs"`
	MaxMs   float64 `json:"maxMs"`
	Count   int     `json:"count"`
	TotalMs float64 `json:"-"`
}

// Snapshot computes aggregated stats over entries recorded at or after since.
// POST: SlowestRoutes holds at most topN routes, slowest average first
func (c *Collector) Snapshot(since time.Time, topN int) Snapshot {
	c.mu.Lock()
	buf := slices.Clone(c.entries)
	c.mu.Unlock()

	var durations []float64
	stats := make(map[string]*RouteStat)
	snap := Snapshot{TotalRequests: c.TotalRecorded()}

	for _, e := range buf {
		if e.Timestamp.IsZero() || e.Timestamp.Before(since) {
			continue
		}
		durations = append(durations, e.DurationMs)
		if e.StatusCode >= 500 {
			snap.ServerErrors++
		}
		s, ok := stats[e.Route]
		if !ok {
			s = &RouteStat{Route: e.Route}
			stats[e.Route] = s
		}
		s.Count++
		s.TotalMs += e.DurationMs
		s.MaxMs = max(s.MaxMs, e.DurationMs)
	}

	snap.Window = len(durations)
	snap.SlowestRoutes = topByAvg(stats, topN)
	if len(durations) > 0 {
		slices.Sort(durations)
		snap.P50Ms = percentile(durations, 50)
		snap.P95Ms = percentile(durations, 95)
		snap.P99Ms = percentile(durations, 99)
	}
	return snap
}

// percentile returns the p-th percentile from a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (p / 100) * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))
	if lower == upper || upper >= len(sorted) {
		return sorted[lower]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// topByAvg returns the top n routes by average duration, descending.
func topByAvg(stats map[string]*RouteStat, n int) []RouteStat {
	list := make([]RouteStat, 0, len(stats))
	for _, s := range stats {
		s.AvgMs = s.TotalMs / float64(s.Count)
		list = append(list, *s)
	}
	slices.SortFunc(list, func(a, b RouteStat) int {
		if c := cmp.Compare(b.AvgMs, a.AvgMs); c != 0 {
			return c
		}
		return cmp.Compare(a.Route, b.Route)
	})
	if len(list) > n {
		list = list[:n]
	}
	return list
}
