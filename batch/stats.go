package batch

import (
	"sync"
	"sync/atomic"
	"time"
)

// RunStats summarizes a single run. It is derived from the run's results and
// never stored.
type RunStats struct {
	// RunID identifies the run in logs and metrics.
	RunID string `json:"runId"`

	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`

	// SuccessRate and FailureRate are fractions in [0, 1]. Both are 0 when
	// Total is 0.
	SuccessRate float64 `json:"successRate"`
	FailureRate float64 `json:"failureRate"`

	// ErrorBreakdown counts failures by kind. It is nil when nothing failed.
	ErrorBreakdown map[ErrorKind]int `json:"errorBreakdown,omitempty"`

	// SampleErrors holds the first failures of the run.
	SampleErrors []ErrorRecord `json:"sampleErrors,omitempty"`

	// AccessorErrors counts accessor failures by accessor name. It is nil
	// when every accessor call succeeded.
	AccessorErrors map[string]int `json:"accessorErrors,omitempty"`

	// Stopped is true when StopOnError ended the run early.
	Stopped bool `json:"stopped"`

	// Duration is the wall time of the run, settling delay included.
	Duration time.Duration `json:"duration"`
}

// summarize computes RunStats from a finished run.
func summarize(results []Result, errs []ErrorRecord, sample int) RunStats {
	s := RunStats{
		Total:  len(results),
		Failed: len(errs),
	}
	s.Successful = s.Total - s.Failed

	if s.Total > 0 {
		s.SuccessRate = float64(s.Successful) / float64(s.Total)
		s.FailureRate = float64(s.Failed) / float64(s.Total)
	}

	if s.Failed > 0 {
		s.ErrorBreakdown = make(map[ErrorKind]int)
		for _, e := range errs {
			s.ErrorBreakdown[e.Kind]++
		}

		if sample > len(errs) {
			sample = len(errs)
		}
		s.SampleErrors = append([]ErrorRecord(nil), errs[:sample]...)
	}

	return s
}

// StatsCollector defines the interface for collecting metrics across runs.
// Implementations can keep metrics in memory or export them to monitoring
// systems. Methods may be called concurrently when Options.Concurrency is
// above one.
type StatsCollector interface {
	// RecordRunStart is called when a run starts with the number of input
	// items.
	RecordRunStart(items int)

	// RecordRunComplete is called with the final statistics of a run.
	RecordRunComplete(stats RunStats)

	// RecordItemProcessed is called for each successfully processed item.
	RecordItemProcessed()

	// RecordItemError is called for each failed item.
	RecordItemError(kind ErrorKind)

	// RecordAccessorError is called when an accessor call finally fails.
	RecordAccessorError(name string)

	// RecordAccessorRetry is called before an accessor call is retried.
	RecordAccessorRetry(name string)

	// GetStats returns a snapshot of the current statistics.
	GetStats() Stats
}

// Stats holds statistics aggregated over runs.
type Stats struct {
	RunsStarted   uint64
	RunsCompleted uint64
	RunsStopped   uint64

	// ItemsProcessed is the number of items that succeeded.
	ItemsProcessed uint64
	// ItemErrors is the number of items that failed.
	ItemErrors uint64

	AccessorErrors  uint64
	AccessorRetries uint64

	// TotalProcessingTime is the cumulative duration of completed runs.
	TotalProcessingTime time.Duration
	MinRunTime          time.Duration
	MaxRunTime          time.Duration

	// MinRunSize and MaxRunSize are the smallest and largest number of items
	// a run started with.
	MinRunSize int
	MaxRunSize int

	StartTime      time.Time
	LastUpdateTime time.Time
}

// AverageRunTime returns the average duration of completed runs, or 0.
func (s *Stats) AverageRunTime() time.Duration {
	if s.RunsCompleted == 0 {
		return 0
	}
	return s.TotalProcessingTime / time.Duration(s.RunsCompleted)
}

// ErrorRate returns the fraction of items that failed, or 0 if no item was
// processed.
func (s *Stats) ErrorRate() float64 {
	total := s.ItemsProcessed + s.ItemErrors
	if total == 0 {
		return 0
	}
	return float64(s.ItemErrors) / float64(total)
}

// Duration returns the time between the start of collection and the last
// update.
func (s *Stats) Duration() time.Duration {
	return s.LastUpdateTime.Sub(s.StartTime)
}

// NoOpStatsCollector discards all metrics. It is the default.
type NoOpStatsCollector struct{}

// RecordRunStart implements the StatsCollector interface.
func (n *NoOpStatsCollector) RecordRunStart(items int) {}

// RecordRunComplete implements the StatsCollector interface.
func (n *NoOpStatsCollector) RecordRunComplete(stats RunStats) {}

// RecordItemProcessed implements the StatsCollector interface.
func (n *NoOpStatsCollector) RecordItemProcessed() {}

// RecordItemError implements the StatsCollector interface.
func (n *NoOpStatsCollector) RecordItemError(kind ErrorKind) {}

// RecordAccessorError implements the StatsCollector interface.
func (n *NoOpStatsCollector) RecordAccessorError(name string) {}

// RecordAccessorRetry implements the StatsCollector interface.
func (n *NoOpStatsCollector) RecordAccessorRetry(name string) {}

// GetStats implements the StatsCollector interface.
func (n *NoOpStatsCollector) GetStats() Stats {
	return Stats{}
}

// BasicStatsCollector is an in-memory StatsCollector. All methods are safe
// for concurrent use.
type BasicStatsCollector struct {
	mu    sync.RWMutex
	stats Stats
	sized bool

	runsStarted     uint64
	runsCompleted   uint64
	runsStopped     uint64
	itemsProcessed  uint64
	itemErrors      uint64
	accessorErrors  uint64
	accessorRetries uint64
}

// NewBasicStatsCollector creates a new BasicStatsCollector.
func NewBasicStatsCollector() *BasicStatsCollector {
	now := time.Now()
	return &BasicStatsCollector{
		stats: Stats{
			StartTime:      now,
			LastUpdateTime: now,
			MinRunTime:     time.Duration(1<<63 - 1),
		},
	}
}

// RecordRunStart implements the StatsCollector interface.
func (b *BasicStatsCollector) RecordRunStart(items int) {
	atomic.AddUint64(&b.runsStarted, 1)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.stats.LastUpdateTime = time.Now()
	if !b.sized || items < b.stats.MinRunSize {
		b.stats.MinRunSize = items
		b.sized = true
	}
	if items > b.stats.MaxRunSize {
		b.stats.MaxRunSize = items
	}
}

// RecordRunComplete implements the StatsCollector interface.
func (b *BasicStatsCollector) RecordRunComplete(stats RunStats) {
	atomic.AddUint64(&b.runsCompleted, 1)
	if stats.Stopped {
		atomic.AddUint64(&b.runsStopped, 1)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.stats.LastUpdateTime = time.Now()
	b.stats.TotalProcessingTime += stats.Duration
	if stats.Duration < b.stats.MinRunTime {
		b.stats.MinRunTime = stats.Duration
	}
	if stats.Duration > b.stats.MaxRunTime {
		b.stats.MaxRunTime = stats.Duration
	}
}

// RecordItemProcessed implements the StatsCollector interface.
func (b *BasicStatsCollector) RecordItemProcessed() {
	atomic.AddUint64(&b.itemsProcessed, 1)
}

// RecordItemError implements the StatsCollector interface.
func (b *BasicStatsCollector) RecordItemError(kind ErrorKind) {
	atomic.AddUint64(&b.itemErrors, 1)
}

// RecordAccessorError implements the StatsCollector interface.
func (b *BasicStatsCollector) RecordAccessorError(name string) {
	atomic.AddUint64(&b.accessorErrors, 1)
}

// RecordAccessorRetry implements the StatsCollector interface.
func (b *BasicStatsCollector) RecordAccessorRetry(name string) {
	atomic.AddUint64(&b.accessorRetries, 1)
}

// GetStats implements the StatsCollector interface.
func (b *BasicStatsCollector) GetStats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := b.stats
	stats.RunsStarted = atomic.LoadUint64(&b.runsStarted)
	stats.RunsCompleted = atomic.LoadUint64(&b.runsCompleted)
	stats.RunsStopped = atomic.LoadUint64(&b.runsStopped)
	stats.ItemsProcessed = atomic.LoadUint64(&b.itemsProcessed)
	stats.ItemErrors = atomic.LoadUint64(&b.itemErrors)
	stats.AccessorErrors = atomic.LoadUint64(&b.accessorErrors)
	stats.AccessorRetries = atomic.LoadUint64(&b.accessorRetries)

	if stats.RunsCompleted == 0 {
		stats.MinRunTime = 0
	}

	return stats
}
