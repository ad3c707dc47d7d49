package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// Pipeline-specific errors (using errors package for sentinel errors)
var (
	ErrSourceMissing    = errors.New("source file missing")
	ErrEmptySource      = errors.New("source file empty")
	ErrUnparseableValue = errors.New("unparseable value")
	ErrWriteConflict    = errors.New("output already exists")
	ErrWriteFailure     = errors.New("output write failed")
	ErrUnknownDomain    = errors.New("unknown stat domain")
	ErrNoSeasons        = errors.New("no seasons resolved")
	ErrRunActive        = errors.New("run already active")
	ErrMissingColumn    = errors.New("required column missing")
)

// RunConflictDetails provides additional context for run conflict errors
type RunConflictDetails struct {
	RunID     string     `json:"run_id,omitempty"`
	Domain    string     `json:"domain,omitempty"`
	Seasons   []string   `json:"seasons,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	Forced    bool       `json:"forced,omitempty"`
}

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// Additional fields for extensibility
	Extensions map[string]interface{} `json:"-"`
}

// Render implements the render.Renderer interface
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON custom marshaler to include extensions
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := make(map[string]interface{})

	// Add standard fields
	data["type"] = pd.Type
	data["title"] = pd.Title
	data["status"] = pd.Status

	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}

	// Add extensions
	for k, v := range pd.Extensions {
		data[k] = v
	}

	return json.Marshal(data)
}

// NewProblemDetails creates a new RFC 7807 compliant error
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:       problemType,
		Title:      title,
		Status:     status,
		Detail:     detail,
		Instance:   instance,
		Extensions: make(map[string]interface{}),
	}
}

// WithExtension adds an extension field to the problem details
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	pd.Extensions[key] = value
	return pd
}

// NewRunAlreadyActiveError creates an error for concurrent run requests
func NewRunAlreadyActiveError(details *RunConflictDetails, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusConflict,
		"/errors/run-already-active",
		"Run Already Active",
		"A cleaning run is already in progress. Wait for it to finish or check its status before starting another.",
		fmt.Sprintf("/api/operations#%s", traceID),
	)

	problem.WithExtension("error_type", "run_already_active").
		WithExtension("trace_id", traceID)

	if details != nil {
		if details.RunID != "" {
			problem.WithExtension("active_run_id", details.RunID)
		}
		if details.Domain != "" {
			problem.WithExtension("active_domain", details.Domain)
		}
		if len(details.Seasons) > 0 {
			problem.WithExtension("active_seasons", details.Seasons)
		}
		if details.StartedAt != nil {
			problem.WithExtension("started_at", details.StartedAt.Format("2006-01-02T15:04:05Z"))
		}
		problem.WithExtension("forced", details.Forced)
	}

	return problem
}

// NewUnknownDomainError creates an error for requests naming a domain outside the registry
func NewUnknownDomainError(domain string, known []string, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusNotFound,
		"/errors/data/unknown-domain",
		"Unknown Stat Domain",
		fmt.Sprintf("Stat domain %q is not registered.", domain),
		fmt.Sprintf("/api/data/files#%s", traceID),
	)

	problem.WithExtension("error_type", "unknown_domain").
		WithExtension("trace_id", traceID).
		WithExtension("requested_domain", domain)

	if len(known) > 0 {
		problem.WithExtension("known_domains", known)
	}

	return problem
}

// NewSeasonFormatError creates an error for malformed season labels
func NewSeasonFormatError(season string, traceID string) *ProblemDetails {
	problem := NewProblemDetails(
		http.StatusBadRequest,
		"/errors/data/season-format",
		"Invalid Season Label",
		fmt.Sprintf("Season %q does not match the YYYY-YY format, for example 2024-25.", season),
		fmt.Sprintf("/api/operations#%s", traceID),
	)

	problem.WithExtension("error_type", "season_format").
		WithExtension("trace_id", traceID).
		WithExtension("requested_season", season)

	return problem
}
