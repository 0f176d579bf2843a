package batch_test

import (
	"sync"
	"testing"
	"time"

	"github.com/n8nkit/itembatch/batch"
)

func TestNoOpStatsCollector(t *testing.T) {
	stats := &batch.NoOpStatsCollector{}

	// These should not panic
	stats.RecordRunStart(10)
	stats.RecordRunComplete(batch.RunStats{Total: 10, Duration: time.Second})
	stats.RecordItemProcessed()
	stats.RecordItemError(batch.KindProcessing)
	stats.RecordAccessorError("Source")
	stats.RecordAccessorRetry("Source")

	// GetStats should return zero values
	s := stats.GetStats()
	if s.RunsStarted != 0 || s.ItemsProcessed != 0 {
		t.Error("NoOpStatsCollector returned non-zero stats")
	}
}

func TestBasicStatsCollector(t *testing.T) {
	stats := batch.NewBasicStatsCollector()

	// Record some runs
	stats.RecordRunStart(5)
	stats.RecordRunComplete(batch.RunStats{Total: 5, Duration: 100 * time.Millisecond})

	stats.RecordRunStart(3)
	stats.RecordRunComplete(batch.RunStats{Total: 3, Duration: 50 * time.Millisecond, Stopped: true})

	stats.RecordRunStart(7)
	stats.RecordRunComplete(batch.RunStats{Total: 7, Duration: 150 * time.Millisecond})

	// Record items
	for i := 0; i < 10; i++ {
		stats.RecordItemProcessed()
	}
	for i := 0; i < 5; i++ {
		stats.RecordItemError(batch.KindProcessing)
	}

	// Record accessor events
	stats.RecordAccessorRetry("Sources")
	stats.RecordAccessorRetry("Sources")
	stats.RecordAccessorError("Sources")

	s := stats.GetStats()

	if s.RunsStarted != 3 {
		t.Errorf("RunsStarted = %d, want 3", s.RunsStarted)
	}
	if s.RunsCompleted != 3 {
		t.Errorf("RunsCompleted = %d, want 3", s.RunsCompleted)
	}
	if s.RunsStopped != 1 {
		t.Errorf("RunsStopped = %d, want 1", s.RunsStopped)
	}
	if s.ItemsProcessed != 10 {
		t.Errorf("ItemsProcessed = %d, want 10", s.ItemsProcessed)
	}
	if s.ItemErrors != 5 {
		t.Errorf("ItemErrors = %d, want 5", s.ItemErrors)
	}
	if s.AccessorRetries != 2 {
		t.Errorf("AccessorRetries = %d, want 2", s.AccessorRetries)
	}
	if s.AccessorErrors != 1 {
		t.Errorf("AccessorErrors = %d, want 1", s.AccessorErrors)
	}

	// Verify timing
	if s.MinRunTime != 50*time.Millisecond {
		t.Errorf("MinRunTime = %v, want 50ms", s.MinRunTime)
	}
	if s.MaxRunTime != 150*time.Millisecond {
		t.Errorf("MaxRunTime = %v, want 150ms", s.MaxRunTime)
	}
	if s.TotalProcessingTime != 300*time.Millisecond {
		t.Errorf("TotalProcessingTime = %v, want 300ms", s.TotalProcessingTime)
	}
	if s.AverageRunTime() != 100*time.Millisecond {
		t.Errorf("AverageRunTime() = %v, want 100ms", s.AverageRunTime())
	}

	// Verify sizes
	if s.MinRunSize != 3 {
		t.Errorf("MinRunSize = %d, want 3", s.MinRunSize)
	}
	if s.MaxRunSize != 7 {
		t.Errorf("MaxRunSize = %d, want 7", s.MaxRunSize)
	}
}

func TestBasicStatsCollector_EmptyRunSize(t *testing.T) {
	stats := batch.NewBasicStatsCollector()

	stats.RecordRunStart(4)
	stats.RecordRunStart(0)

	s := stats.GetStats()
	if s.MinRunSize != 0 {
		t.Errorf("MinRunSize = %d, want 0", s.MinRunSize)
	}
	if s.MinRunTime != 0 {
		t.Errorf("MinRunTime = %v, want 0 before any run completed", s.MinRunTime)
	}
}

func TestBasicStatsCollector_Concurrent(t *testing.T) {
	stats := batch.NewBasicStatsCollector()

	var wg sync.WaitGroup
	const goroutines = 10
	const operations = 100

	// Concurrently record various stats
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < operations; j++ {
				stats.RecordRunStart(id + j)
				stats.RecordItemProcessed()
				stats.RecordRunComplete(batch.RunStats{Total: id + j, Duration: time.Duration(j) * time.Millisecond})
				if j%5 == 0 {
					stats.RecordItemError(batch.KindProcessing)
				}
				if j%10 == 0 {
					stats.RecordAccessorError("concurrent")
				}
			}
		}(i)
	}

	wg.Wait()

	s := stats.GetStats()
	expectedRuns := uint64(goroutines * operations)
	if s.RunsStarted != expectedRuns {
		t.Errorf("RunsStarted = %d, want %d", s.RunsStarted, expectedRuns)
	}
	if s.RunsCompleted != expectedRuns {
		t.Errorf("RunsCompleted = %d, want %d", s.RunsCompleted, expectedRuns)
	}
	if s.ItemsProcessed != expectedRuns {
		t.Errorf("ItemsProcessed = %d, want %d", s.ItemsProcessed, expectedRuns)
	}
	if s.AccessorErrors != uint64(goroutines*operations/10) {
		t.Errorf("AccessorErrors = %d, want %d", s.AccessorErrors, goroutines*operations/10)
	}
}

func TestStats_CalculatedMetrics(t *testing.T) {
	tests := []struct {
		name       string
		stats      batch.Stats
		avgRunTime time.Duration
		errorRate  float64
	}{
		{
			name: "normal stats",
			stats: batch.Stats{
				RunsCompleted:       5,
				ItemsProcessed:      45,
				ItemErrors:          5,
				TotalProcessingTime: 500 * time.Millisecond,
			},
			avgRunTime: 100 * time.Millisecond,
			errorRate:  0.1,
		},
		{
			name:       "no runs completed",
			stats:      batch.Stats{},
			avgRunTime: 0,
			errorRate:  0,
		},
		{
			name: "all errors",
			stats: batch.Stats{
				ItemErrors: 10,
			},
			errorRate: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stats.AverageRunTime(); got != tt.avgRunTime {
				t.Errorf("AverageRunTime() = %v, want %v", got, tt.avgRunTime)
			}
			if got := tt.stats.ErrorRate(); got != tt.errorRate {
				t.Errorf("ErrorRate() = %v, want %v", got, tt.errorRate)
			}
		})
	}
}

func TestStats_Duration(t *testing.T) {
	startTime := time.Now()
	stats := batch.Stats{
		StartTime:      startTime,
		LastUpdateTime: startTime.Add(5 * time.Second),
	}

	duration := stats.Duration()
	if duration != 5*time.Second {
		t.Errorf("Duration() = %v, want 5s", duration)
	}
}
