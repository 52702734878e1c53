// Package telemetry collects in-process statement statistics. A Collector
// is an executor.Observer: register it with client.WithObserver.
package telemetry

import (
	"log/slog"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/satishbabariya/sqlchain/internal/debug"
	"github.com/satishbabariya/sqlchain/query/executor"
	"github.com/satishbabariya/sqlchain/query/failure"
)

// DisableEnvVar turns collection off when set to a true value
const DisableEnvVar = "SQLCHAIN_TELEMETRY_DISABLED"

// OpStats aggregates the statements run for one terminal or operation
type OpStats struct {
	Op       string
	Count    int64
	Errors   int64
	Canceled int64
	Rows     int64
	Total    time.Duration
	Max      time.Duration
}

// Mean is the average statement duration
func (s OpStats) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Snapshot is a copy of the collected statistics
type Snapshot struct {
	Since time.Time
	Ops   []OpStats // sorted by Op
}

// Op returns the statistics of one operation
func (s Snapshot) Op(name string) (OpStats, bool) {
	for _, o := range s.Ops {
		if o.Op == name {
			return o, true
		}
	}
	return OpStats{}, false
}

// Collector aggregates executor events per operation
type Collector struct {
	enabled       bool
	logger        *slog.Logger
	flushInterval time.Duration

	mu    sync.Mutex
	ops   map[string]*OpStats
	since time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Option configures a Collector
type Option func(*Collector)

// WithLogger sets where periodic and final dumps are written
func WithLogger(l *slog.Logger) Option {
	return func(c *Collector) {
		c.logger = l
	}
}

// WithFlushInterval dumps the statistics every interval until Shutdown
func WithFlushInterval(d time.Duration) Option {
	return func(c *Collector) {
		c.flushInterval = d
	}
}

// NewCollector creates a collector. It collects nothing when DisableEnvVar is set.
func NewCollector(opts ...Option) *Collector {
	c := &Collector{
		enabled:  !isTelemetryDisabled(),
		ops:      make(map[string]*OpStats),
		since:    time.Now(),
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = debug.Logger()
	}
	if c.enabled && c.flushInterval > 0 {
		c.startBackgroundFlush()
	}
	return c
}

// Enabled returns whether the collector records events
func (c *Collector) Enabled() bool {
	return c.enabled
}

// Observe records one executed statement
func (c *Collector) Observe(ev executor.Event) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.ops[ev.Op]
	if !ok {
		s = &OpStats{Op: ev.Op}
		c.ops[ev.Op] = s
	}
	s.Count++
	s.Rows += ev.Rows
	s.Total += ev.Duration
	if ev.Duration > s.Max {
		s.Max = ev.Duration
	}
	switch {
	case ev.Err == nil:
	case failure.IsKind(ev.Err, failure.Canceled):
		s.Canceled++
	default:
		s.Errors++
	}
}

// Stats returns a copy of the statistics collected so far
func (c *Collector) Stats() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{Since: c.since, Ops: make([]OpStats, 0, len(c.ops))}
	for _, s := range c.ops {
		snap.Ops = append(snap.Ops, *s)
	}
	sort.Slice(snap.Ops, func(i, j int) bool { return snap.Ops[i].Op < snap.Ops[j].Op })
	return snap
}

// Reset drops everything collected so far
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = make(map[string]*OpStats)
	c.since = time.Now()
}

// flush logs one line per operation
func (c *Collector) flush() {
	snap := c.Stats()
	for _, s := range snap.Ops {
		c.logger.Info("statement stats",
			"op", s.Op,
			"count", s.Count,
			"errors", s.Errors,
			"canceled", s.Canceled,
			"rows", s.Rows,
			"mean", s.Mean(),
			"max", s.Max,
		)
	}
}

// startBackgroundFlush starts a background goroutine to dump statistics periodically
func (c *Collector) startBackgroundFlush() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.flush()
			case <-c.stopChan:
				return
			}
		}
	}()
}

// Shutdown stops periodic dumps and writes a final one
func (c *Collector) Shutdown() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
		c.wg.Wait()
		if c.enabled {
			c.flush()
		}
	})
}

// isTelemetryDisabled checks if telemetry is disabled via environment variable
func isTelemetryDisabled() bool {
	off, _ := strconv.ParseBool(os.Getenv(DisableEnvVar))
	return off
}
