package reembed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports how many files of an index have been re-embedded.
type ProgressTracker struct {
	writer         io.Writer
	total          int
	files          int
	records        int
	failed         int
	reportInterval int
	lastReported   int
	startTime      time.Time
	started        bool
	mu             sync.Mutex
}

// NewProgressTracker creates a tracker for total files that prints every
// reportInterval files. An interval below 1 reports after every file.
func NewProgressTracker(writer io.Writer, total, reportInterval int) *ProgressTracker {
	if reportInterval < 1 {
		reportInterval = 1
	}
	return &ProgressTracker{
		writer:         writer,
		total:          total,
		reportInterval: reportInterval,
	}
}

// Start begins tracking progress.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.files = 0
	p.records = 0
	p.failed = 0
	p.lastReported = 0
}

// Advance records one finished file and the records it rewrote.
func (p *ProgressTracker) Advance(records int, failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	if p.files < p.total {
		p.files++
	}
	p.records += records
	if failed {
		p.failed++
	}

	if p.files-p.lastReported >= p.reportInterval {
		p.report()
		p.lastReported = p.files
	}
}

// Finish prints the final line.
func (p *ProgressTracker) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}

	p.report()
	fmt.Fprintln(p.writer)
}

// Elapsed returns the time elapsed since Start was called.
func (p *ProgressTracker) Elapsed() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	return time.Since(p.startTime)
}

// report must be called with the lock held.
func (p *ProgressTracker) report() {
	rate := 0.0
	if secs := time.Since(p.startTime).Seconds(); secs > 0 {
		rate = float64(p.records) / secs
	}

	percentage := 0.0
	if p.total > 0 {
		percentage = float64(p.files) / float64(p.total) * 100.0
	}

	fmt.Fprintf(p.writer, "\rReembedded: %d/%d files (%.1f%%) - %d records - %d failed - %.1f records/s",
		p.files, p.total, percentage, p.records, p.failed, rate)
}
