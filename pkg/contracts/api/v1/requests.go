// Package api contains API contract definitions for the NBA statistics
// data service. Version v1 represents the current stable API version.
package api

import (
	"errors"
	"strings"
)

// Common request parameters

// PaginationRequest represents common pagination parameters
type PaginationRequest struct {
	Page     int    `json:"page" query:"page" validate:"min=1"`
	PageSize int    `json:"page_size" query:"page_size" validate:"min=1,max=100"`
	Sort     string `json:"sort" query:"sort" validate:"omitempty,oneof=asc desc"`
	SortBy   string `json:"sort_by" query:"sort_by"`
}

// Operation API requests

// OperationStartRequest launches a cleaning run. Exactly one of Season,
// Seasons or AllSeasons may be set; all empty means the configured
// default season. An empty Domain runs every registered domain.
type OperationStartRequest struct {
	Domain     string                 `json:"domain,omitempty" validate:"omitempty,stat_domain"`
	Season     string                 `json:"season,omitempty" validate:"omitempty,season_label"`
	Seasons    []string               `json:"seasons,omitempty" validate:"omitempty,dive,season_label"`
	AllSeasons bool                   `json:"all_seasons,omitempty"`
	Force      bool                   `json:"force,omitempty"`
	Step       string                 `json:"step,omitempty" validate:"omitempty,oneof=import clean roster awards schedule"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// Validate enforces the structural rules that do not need the domain
// registry: the season selectors are mutually exclusive.
func (r *OperationStartRequest) Validate() error {
	selectors := 0
	if strings.TrimSpace(r.Season) != "" {
		selectors++
	}
	if len(r.Seasons) > 0 {
		selectors++
	}
	if r.AllSeasons {
		selectors++
	}
	if selectors > 1 {
		return errors.New("season, seasons and all_seasons are mutually exclusive")
	}
	return nil
}

// SeasonLabels returns every season label carried by the request.
func (r *OperationStartRequest) SeasonLabels() []string {
	var labels []string
	if s := strings.TrimSpace(r.Season); s != "" {
		labels = append(labels, s)
	}
	for _, s := range r.Seasons {
		if s = strings.TrimSpace(s); s != "" {
			labels = append(labels, s)
		}
	}
	return labels
}

// OperationStopRequest stops a running operation
type OperationStopRequest struct {
	OperationID string `json:"operation_id" param:"id" validate:"required"`
	Force       bool   `json:"force" query:"force"`
}

// OperationListRequest filters the operation list
type OperationListRequest struct {
	PaginationRequest
	Status string `json:"status" query:"status" validate:"omitempty,oneof=pending running completed failed cancelled"`
}

// JobListRequest filters the async job list
type JobListRequest struct {
	Status      string `json:"status" query:"status" validate:"omitempty,oneof=pending running completed failed cancelled"`
	OperationID string `json:"operation_id" query:"operation_id"`
	Step        string `json:"step" query:"step"`
	Limit       int    `json:"limit" query:"limit" validate:"omitempty,min=1,max=500"`
}

// Run catalog API requests

// RunListRequest asks for the most recent recorded runs
type RunListRequest struct {
	Limit int `json:"limit" query:"limit" validate:"omitempty,min=1,max=200"`
}

// Data API requests

// ArtifactListRequest lists cleaned artifacts for one domain
type ArtifactListRequest struct {
	Domain string `json:"domain" param:"domain" validate:"required,stat_domain"`
	Season string `json:"season" query:"season" validate:"omitempty,season_label"`
}

// Client log requests

// ClientLogRequest carries a log entry emitted by a browser client
type ClientLogRequest struct {
	Level   string                 `json:"level" validate:"required,oneof=debug info warn error"`
	Message string                 `json:"message" validate:"required,max=4096"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Source  string                 `json:"source,omitempty" validate:"omitempty,max=256"`
}
