package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nbacli/internal/shared/testutil"
)

func TestNewErrorHandler(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)

	handler := NewErrorHandler(logger, true)
	require.NotNil(t, handler)
	assert.True(t, handler.includeStack)

	handler = NewErrorHandler(logger, false)
	assert.False(t, handler.includeStack)
}

func TestErrorToProblem(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "context deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "context canceled",
			err:        context.Canceled,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "api error validation",
			err:        ErrValidationFailed,
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
		},
		{
			name:       "api error domain not found",
			err:        ErrDomainNotFound,
			wantStatus: http.StatusNotFound,
			wantType:   TypeDomainNotFound,
		},
		{
			name:       "api error run not found",
			err:        ErrRunNotFound,
			wantStatus: http.StatusNotFound,
			wantType:   TypeRunNotFound,
		},
		{
			name:       "sentinel unknown domain",
			err:        fmt.Errorf("resolving: %w", ErrUnknownDomain),
			wantStatus: http.StatusNotFound,
			wantType:   TypeDomainNotFound,
		},
		{
			name:       "sentinel run active",
			err:        ErrRunActive,
			wantStatus: http.StatusConflict,
			wantType:   TypeRunActive,
		},
		{
			name:       "sentinel source missing",
			err:        fmt.Errorf("domain player_boxscores: %w", ErrSourceMissing),
			wantStatus: http.StatusNotFound,
			wantType:   TypeDataNotFound,
		},
		{
			name:       "sentinel no seasons",
			err:        ErrNoSeasons,
			wantStatus: http.StatusNotFound,
			wantType:   TypeDataNotFound,
		},
		{
			name:       "string match not found",
			err:        fmt.Errorf("file xyz.csv not found"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
		},
		{
			name:       "string match unauthorized",
			err:        fmt.Errorf("unauthorized access"),
			wantStatus: http.StatusUnauthorized,
			wantType:   TypeUnauthorized,
		},
		{
			name:       "string match rate limit",
			err:        fmt.Errorf("rate limit hit"),
			wantStatus: http.StatusTooManyRequests,
			wantType:   TypeRateLimit,
		},
		{
			name:       "unknown error defaults to internal",
			err:        fmt.Errorf("something odd happened"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/data/files", nil)

			problem := handler.ErrorToProblem(tt.err, r)
			require.NotNil(t, problem)
			assert.Equal(t, tt.wantStatus, problem.Status)
			assert.Equal(t, tt.wantType, problem.Type)
			assert.Equal(t, "/api/data/files", problem.Instance)
		})
	}
}

func TestHandleError(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/runs/missing", nil)

	handler.HandleError(w, r, ErrRunNotFound)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, TypeRunNotFound, problem["type"])
	assert.Equal(t, float64(http.StatusNotFound), problem["status"])
	assert.Equal(t, "RUN_NOT_FOUND", problem["error_code"])

	// trace_id extension is always present even without request ID middleware
	_, hasTraceID := problem["trace_id"]
	assert.True(t, hasTraceID)

	// The failure was logged
	assert.True(t, logs.ContainsMessage("request failed"))
}

func TestHandleError_NilError(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/test", nil)

	handler.HandleError(w, r, nil)

	// Nothing written for nil errors
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, w.Body.Len())
	assert.Equal(t, 0, logs.Count())
}

func TestHandleError_IncludesStackInDevelopment(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, true)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/test", nil)

	handler.HandleError(w, r, fmt.Errorf("boom"))

	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))

	stack, ok := problem["stack"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, stack)
}

func TestHandlePanic(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/operations", nil)

	handler.HandlePanic(w, r, "runtime failure")

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, TypeInternal, problem["type"])

	assert.True(t, logs.ContainsMessage("panic recovered"))
}

func TestNotFoundHandler(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/nope", nil)

	handler.NotFound(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Equal(t, TypeNotFound, problem["type"])
	assert.Equal(t, "/nope", problem["instance"])
}

func TestMethodNotAllowedHandler(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	w := httptest.NewRecorder()
	r := httptest.NewRequest("DELETE", "/api/health", nil)

	handler.MethodNotAllowed(w, r)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &problem))
	assert.Contains(t, problem["detail"], "DELETE")
}

func TestErrorHandlerMiddleware_PanicRecovery(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	panicking := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/test", nil)

	handler.Middleware(panicking).ServeHTTP(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestErrorResponseWriter_DefaultsToOK(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	plain := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/test", nil)

	handler.Middleware(plain).ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}
