package operations

import (
	"time"
)

// Operation step identifiers
const (
	StepIDClean    = "clean"
	StepIDRoster   = "roster"
	StepIDAwards   = "awards"
	StepIDSchedule = "schedule"
	StepIDImport   = "import"
)

// Operation step names
const (
	StepNameClean    = "Stat Cleaning"
	StepNameRoster   = "Roster Assembly"
	StepNameAwards   = "Award Ballot Reshaping"
	StepNameSchedule = "Schedule Enrichment"
	StepNameImport   = "Workbook Import"
)

// Context keys for operation state
const (
	ContextKeyDomain     = "domain"
	ContextKeySeason     = "season"
	ContextKeySeasons    = "seasons"
	ContextKeyAllSeasons = "all_seasons"
	ContextKeyForce      = "force"
	ContextKeyManifests  = "manifests"
	ContextKeyRowsKept   = "rows_kept"
)

// WebSocket event types matching the frontend protocol
const (
	EventTypeOperationSnapshot = "operation:snapshot"
	EventTypeOperationStatus   = "operation:status"
	EventTypeOperationProgress = "operation:progress"
	EventTypeOperationComplete = "operation:complete"
	EventTypeOperationError    = "operation:error"
	EventTypeOperationReset    = "operation:reset"
)

// Default timeouts
const (
	DefaultStepTimeout     = 30 * time.Minute
	DefaultCleanTimeout    = 30 * time.Minute
	DefaultRosterTimeout   = 10 * time.Minute
	DefaultAwardsTimeout   = 10 * time.Minute
	DefaultScheduleTimeout = 10 * time.Minute
	DefaultImportTimeout   = 5 * time.Minute
)

// RetryConfig defines retry behavior for steps
type RetryConfig struct {
	MaxAttempts  int           `json:"max_attempts"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Multiplier   float64       `json:"multiplier"`
}

// NewRetryConfig returns the default retry configuration
func NewRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// OperationRequest represents a request to execute an operation
type OperationRequest struct {
	ID         string                 `json:"id"`
	Domain     string                 `json:"domain,omitempty"`
	Season     string                 `json:"season,omitempty"`
	Seasons    []string               `json:"seasons,omitempty"`
	AllSeasons bool                   `json:"all_seasons,omitempty"`
	Force      bool                   `json:"force,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// OperationResponse represents the response from an operation execution
type OperationResponse struct {
	ID       string                `json:"id"`
	Status   OperationStatus       `json:"status"`
	Duration time.Duration         `json:"duration"`
	Steps    map[string]*StepState `json:"steps"`
	Error    string                `json:"error,omitempty"`
}

// ProgressUpdate represents a progress update from a step
type ProgressUpdate struct {
	StepID   string                 `json:"step_id"`
	Progress float64                `json:"progress"`
	Message  string                 `json:"message"`
	ETA      string                 `json:"eta,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// OperationType represents an available operation type
type OperationType struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Description  string                `json:"description"`
	Dependencies []string              `json:"dependencies"`
	CanRunAlone  bool                  `json:"can_run_alone"`
	Parameters   []ParameterDefinition `json:"parameters"`
}

// ParameterDefinition defines a parameter for an operation type
type ParameterDefinition struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"` // string, number, select, boolean
	Description string      `json:"description"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
	Options     []string    `json:"options,omitempty"` // For select type
}
