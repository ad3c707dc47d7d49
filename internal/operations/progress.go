package operations

import (
	"fmt"
	"sync"
	"time"
)

// ProgressTracker tracks incremental progress for a long-running step.
type ProgressTracker struct {
	StepID    string
	Total     int
	Current   int
	StartTime time.Time
	Message   string
	mu        sync.Mutex
}

// NewProgressTracker creates a tracker for a step with a known total.
func NewProgressTracker(stepID string, total int) *ProgressTracker {
	return &ProgressTracker{
		StepID:    stepID,
		Total:     total,
		StartTime: time.Now(),
	}
}

// Update sets the current progress and message.
func (p *ProgressTracker) Update(current int, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Current = current
	p.Message = message
}

// Increment advances the current progress by one.
func (p *ProgressTracker) Increment(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Current++
	p.Message = message
}

// GetProgress returns the current progress state.
func (p *ProgressTracker) GetProgress() (current, total int, percentage float64, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Total > 0 {
		percentage = float64(p.Current) / float64(p.Total) * 100
	}

	return p.Current, p.Total, percentage, p.Message
}

// GetETA estimates the time remaining from the observed rate.
func (p *ProgressTracker) GetETA() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Current == 0 || p.Total == 0 {
		return "calculating..."
	}

	elapsed := time.Since(p.StartTime)
	rate := float64(p.Current) / elapsed.Seconds()
	if rate == 0 {
		return "calculating..."
	}

	remaining := float64(p.Total-p.Current) / rate
	switch {
	case remaining < 60:
		return fmt.Sprintf("%.0f seconds", remaining)
	case remaining < 3600:
		return fmt.Sprintf("%.1f minutes", remaining/60)
	default:
		return fmt.Sprintf("%.1f hours", remaining/3600)
	}
}

// IsComplete reports whether current progress reached the total.
func (p *ProgressTracker) IsComplete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.Current >= p.Total
}

// GetElapsedTime returns the elapsed time since the tracker started.
func (p *ProgressTracker) GetElapsedTime() time.Duration {
	return time.Since(p.StartTime)
}

// GetElapsedTimeString renders the elapsed time for display.
func (p *ProgressTracker) GetElapsedTimeString() string {
	elapsed := p.GetElapsedTime()
	switch {
	case elapsed < time.Minute:
		return fmt.Sprintf("%.0f seconds", elapsed.Seconds())
	case elapsed < time.Hour:
		return fmt.Sprintf("%.1f minutes", elapsed.Minutes())
	default:
		return fmt.Sprintf("%.1f hours", elapsed.Hours())
	}
}
