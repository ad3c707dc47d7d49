package operations

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"nbacli/internal/exporter"
)

// Run statuses recorded in the manifest
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// FileOutcome records the outcome for a single output file of a run
type FileOutcome struct {
	Path    string          `json:"path"`
	Status  exporter.Status `json:"status"`
	Rows    int             `json:"rows,omitempty"`
	Message string          `json:"message,omitempty"`
}

// RunManifest tracks the identity, scope, and per-file outcomes of one run.
// It is the record handed to the catalog when the run finishes.
type RunManifest struct {
	mu sync.RWMutex

	// Identity
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	StartTime time.Time `json:"start_time"`

	// Scope
	Domain  string   `json:"domain,omitempty"`
	Seasons []string `json:"seasons,omitempty"`
	Force   bool     `json:"force"`

	// Per-file outcomes in write order
	Files []FileOutcome `json:"files"`

	// Current status
	Status  string     `json:"status"`
	EndTime *time.Time `json:"end_time,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// NewRunManifest creates a manifest for a run of the given kind
func NewRunManifest(kind string) *RunManifest {
	return &RunManifest{
		ID:        uuid.NewString(),
		Kind:      kind,
		StartTime: time.Now(),
		Status:    RunStatusRunning,
		Files:     []FileOutcome{},
	}
}

// SetScope records what the run covers
func (m *RunManifest) SetScope(domain string, seasons []string, force bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Domain = domain
	m.Seasons = append([]string(nil), seasons...)
	m.Force = force
}

// AddOutcome appends a single file outcome
func (m *RunManifest) AddOutcome(outcome FileOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Files = append(m.Files, outcome)
}

// AddReport merges every result of a write report into the manifest
func (m *RunManifest) AddReport(report exporter.WriteReport) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, res := range report.Results {
		outcome := FileOutcome{
			Path:   res.Path,
			Status: res.Status,
			Rows:   res.Rows,
		}
		if res.Err != nil {
			outcome.Message = res.Err.Error()
		}
		m.Files = append(m.Files, outcome)
	}
}

// AddSkip records a file that was deliberately not processed
func (m *RunManifest) AddSkip(path, message string) {
	m.AddOutcome(FileOutcome{Path: path, Status: exporter.StatusSkipped, Message: message})
}

// AddFailure records a file whose processing was abandoned
func (m *RunManifest) AddFailure(path string, err error) {
	outcome := FileOutcome{Path: path, Status: exporter.StatusFailed}
	if err != nil {
		outcome.Message = err.Error()
	}
	m.AddOutcome(outcome)
}

// Finish closes the run. A nil error marks it completed, otherwise failed.
func (m *RunManifest) Finish(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.EndTime = &now
	if err != nil {
		m.Status = RunStatusFailed
		m.Error = err.Error()
		return
	}
	m.Status = RunStatusCompleted
}

// FilesWritten counts outcomes that created or rewrote a file
func (m *RunManifest) FilesWritten() int { return m.count(exporter.StatusWritten) }

// FilesSkipped counts outcomes left untouched
func (m *RunManifest) FilesSkipped() int { return m.count(exporter.StatusSkipped) }

// FilesFailed counts outcomes whose write was abandoned
func (m *RunManifest) FilesFailed() int { return m.count(exporter.StatusFailed) }

func (m *RunManifest) count(s exporter.Status) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, f := range m.Files {
		if f.Status == s {
			n++
		}
	}
	return n
}

// RowsWritten sums the rows of every written file
func (m *RunManifest) RowsWritten() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, f := range m.Files {
		if f.Status == exporter.StatusWritten {
			n += f.Rows
		}
	}
	return n
}

// Duration returns how long the run took, or has been running
func (m *RunManifest) Duration() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.EndTime != nil {
		return m.EndTime.Sub(m.StartTime)
	}
	return time.Since(m.StartTime)
}

// Clone creates a deep copy of the manifest
func (m *RunManifest) Clone() *RunManifest {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clone := &RunManifest{
		ID:        m.ID,
		Kind:      m.Kind,
		StartTime: m.StartTime,
		Domain:    m.Domain,
		Seasons:   append([]string(nil), m.Seasons...),
		Force:     m.Force,
		Files:     append([]FileOutcome(nil), m.Files...),
		Status:    m.Status,
		Error:     m.Error,
	}
	if m.EndTime != nil {
		end := *m.EndTime
		clone.EndTime = &end
	}
	return clone
}

// SaveToFile saves the manifest to a JSON file
func (m *RunManifest) SaveToFile(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}

	return nil
}

// LoadRunManifest loads a manifest from a JSON file
func LoadRunManifest(path string) (*RunManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	var manifest RunManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}

	return &manifest, nil
}
