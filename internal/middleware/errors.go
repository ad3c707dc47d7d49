package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apperrors "nbacli/internal/errors"
	"nbacli/internal/infrastructure"
)

// Problem represents an RFC 7807 problem details object.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Trace  string `json:"trace_id,omitempty"`
}

// Render writes the problem as application/problem+json.
func (p Problem) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	return json.NewEncoder(w).Encode(p)
}

// NewErrorResponder returns a function handlers can use to log an error
// and answer it as an RFC 7807 problem.
func NewErrorResponder(logger *slog.Logger) func(w http.ResponseWriter, r *http.Request, err error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		ctx := r.Context()
		traceID := infrastructure.GetTraceID(ctx)

		logger.ErrorContext(ctx, "request error",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"trace_id", traceID,
		)

		problem := mapErrorToProblem(err, traceID)
		problem.Render(w, r)
	}
}

// mapErrorToProblem maps pipeline and API errors to problem details.
func mapErrorToProblem(err error, traceID string) Problem {
	var apiErr *apperrors.APIError
	if errors.As(err, &apiErr) {
		return Problem{
			Type:   "/errors/" + strings.ToLower(strings.ReplaceAll(apiErr.ErrorCode, "_", "-")),
			Title:  http.StatusText(apiErr.StatusCode),
			Status: apiErr.StatusCode,
			Detail: apiErr.Message,
			Trace:  traceID,
		}
	}

	switch {
	case errors.Is(err, apperrors.ErrUnknownDomain):
		return Problem{
			Type:   "/errors/domain-not-found",
			Title:  "Unknown Stat Domain",
			Status: http.StatusNotFound,
			Detail: err.Error(),
			Trace:  traceID,
		}
	case errors.Is(err, apperrors.ErrRunActive):
		return Problem{
			Type:   "/errors/run-active",
			Title:  "Run Already Active",
			Status: http.StatusConflict,
			Detail: err.Error(),
			Trace:  traceID,
		}
	case errors.Is(err, apperrors.ErrSourceMissing), errors.Is(err, apperrors.ErrNoSeasons):
		return Problem{
			Type:   "/errors/data-not-found",
			Title:  "Data Not Found",
			Status: http.StatusNotFound,
			Detail: err.Error(),
			Trace:  traceID,
		}
	}

	if strings.Contains(strings.ToLower(err.Error()), "validation") {
		return Problem{
			Type:   "/errors/validation-failed",
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Detail: err.Error(),
			Trace:  traceID,
		}
	}

	return Problem{
		Type:   "/errors/internal-server-error",
		Title:  "Internal Server Error",
		Status: http.StatusInternalServerError,
		Detail: "An unexpected error occurred",
		Trace:  traceID,
	}
}

// ProblemFromStatus creates a Problem from an HTTP status code.
func ProblemFromStatus(status int, detail string, traceID string) Problem {
	var title, problemType string

	switch status {
	case http.StatusBadRequest:
		title = "Bad Request"
		problemType = "/errors/bad-request"
	case http.StatusNotFound:
		title = "Not Found"
		problemType = "/errors/not-found"
	case http.StatusMethodNotAllowed:
		title = "Method Not Allowed"
		problemType = "/errors/method-not-allowed"
	case http.StatusConflict:
		title = "Conflict"
		problemType = "/errors/conflict"
	case http.StatusTooManyRequests:
		title = "Too Many Requests"
		problemType = "/errors/rate-limit-exceeded"
	case http.StatusInternalServerError:
		title = "Internal Server Error"
		problemType = "/errors/internal-server-error"
	case http.StatusServiceUnavailable:
		title = "Service Unavailable"
		problemType = "/errors/service-unavailable"
	case http.StatusGatewayTimeout:
		title = "Gateway Timeout"
		problemType = "/errors/gateway-timeout"
	default:
		title = http.StatusText(status)
		problemType = "/errors/unknown"
	}

	return Problem{
		Type:   problemType,
		Title:  title,
		Status: status,
		Detail: detail,
		Trace:  traceID,
	}
}
