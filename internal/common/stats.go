package common

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Stats holds atomic counters for building progress
type Stats struct {
	Total   uint64 // Buildings queued
	Done    uint64 // Buildings written
	Skipped uint64 // Buildings without BIA potential
	Failed  uint64 // Buildings that failed
	Sensors uint64 // Surfaces written

	StartTime time.Time

	// Internal state for reporter
	running  atomic.Bool
	stopCh   chan struct{}
	silent   bool
	interval time.Duration
}

// NewStats creates a new Stats instance for total buildings
func NewStats(total int) *Stats {
	return &Stats{
		Total:     uint64(total),
		StartTime: time.Now(),
		stopCh:    make(chan struct{}),
		interval:  500 * time.Millisecond,
	}
}

// AddDone records a written building and its surface count
func (s *Stats) AddDone(sensors int) {
	atomic.AddUint64(&s.Done, 1)
	atomic.AddUint64(&s.Sensors, uint64(sensors))
}

// AddSkipped records a building without potential
func (s *Stats) AddSkipped() {
	atomic.AddUint64(&s.Skipped, 1)
}

// AddFailed records a failed building
func (s *Stats) AddFailed() {
	atomic.AddUint64(&s.Failed, 1)
}

// Finished returns the number of buildings with an outcome
func (s *Stats) Finished() uint64 {
	return atomic.LoadUint64(&s.Done) + atomic.LoadUint64(&s.Skipped) + atomic.LoadUint64(&s.Failed)
}

// GetFailed atomically reads the failed counter
func (s *Stats) GetFailed() uint64 {
	return atomic.LoadUint64(&s.Failed)
}

// SetSilent enables or disables silent mode
func (s *Stats) SetSilent(silent bool) {
	s.silent = silent
}

// StartReporter starts a background goroutine that prints progress every
// 500ms using newline-based output to avoid conflicts with log.Printf
func (s *Stats) StartReporter() {
	if s.running.Load() {
		return // Already running
	}
	s.running.Store(true)
	go s.reporterLoop()
}

// StopReporter stops the background reporter goroutine
func (s *Stats) StopReporter() {
	if !s.running.Load() {
		return
	}
	s.running.Store(false)
	close(s.stopCh)
}

func (s *Stats) reporterLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if !s.silent {
				fmt.Println(s.Status())
			}
		}
	}
}

// Status formats the current progress line
func (s *Stats) Status() string {
	finished := s.Finished()
	pct := 0.0
	if s.Total > 0 {
		pct = float64(finished) / float64(s.Total) * 100
	}
	return fmt.Sprintf("[Progress] Buildings: %d/%d (%.1f%%) | Done: %d | Skipped: %d | Failed: %d | Surfaces: %d | Elapsed: %v",
		finished, s.Total, pct,
		atomic.LoadUint64(&s.Done),
		atomic.LoadUint64(&s.Skipped),
		atomic.LoadUint64(&s.Failed),
		atomic.LoadUint64(&s.Sensors),
		time.Since(s.StartTime).Round(time.Second),
	)
}
