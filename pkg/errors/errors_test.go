package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestIsWarning(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "authorization denied", err: NewAuthorizationDenied("viewer"), want: true},
		{name: "not authenticated", err: NewNotAuthenticated(), want: true},
		{name: "rate limited", err: NewRateLimitError(10, "minute"), want: true},
		{name: "wrapped denial", err: fmt.Errorf("dispatch: %w", NewAuthorizationDenied("viewer")), want: true},
		{name: "malformed input", err: NewMalformedInput("bad"), want: false},
		{name: "persistence failure", err: NewPersistenceFailure("create snapshot", stderrors.New("boom")), want: false},
		{name: "plain error", err: stderrors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsWarning(tt.err))
		})
	}
}

func TestPublic(t *testing.T) {
	code, message := Public(fmt.Errorf("wrapped: %w", NewMissingFields("identity")))
	assert.Equal(t, CodeMissingFields, code)
	assert.Equal(t, "missing required fields", message)

	code, _ = Public(NewNotFoundError("snapshot"))
	assert.Equal(t, string(ErrorTypeNotFound), code)

	code, message = Public(stderrors.New("secret connection string"))
	assert.Equal(t, string(ErrorTypeInternal), code)
	assert.NotContains(t, message, "secret")
}

func TestPersistenceFailure_UnwrapsCause(t *testing.T) {
	cause := stderrors.New("throttled")
	err := NewPersistenceFailure("update snapshot", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodePersistenceFailure, CodeOf(err, ""))
	assert.Equal(t, "fallback", CodeOf(cause, "fallback"))
}

func TestErrorHandler_Handle(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "not found", err: NewNotFoundError("snapshot").WithCode(CodeSnapshotNotFound), wantStatus: http.StatusNotFound, wantCode: CodeSnapshotNotFound},
		{name: "forbidden", err: NewAuthorizationDenied("viewer"), wantStatus: http.StatusForbidden, wantCode: CodeAuthorizationDenied},
		{name: "unavailable", err: NewUnavailableError("diagram store"), wantStatus: http.StatusServiceUnavailable, wantCode: string(ErrorTypeUnavailable)},
		{name: "plain error", err: stderrors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: string(ErrorTypeInternal)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			h := NewErrorHandler(zap.NewNop(), false)
			rec := httptest.NewRecorder()

			// Act
			h.Handle(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			// Assert
			assert.Equal(t, tt.wantStatus, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.True(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotContains(t, body.Details, "stackTrace")
		})
	}
}

func TestErrorHandler_MiddlewareRecoversPanics(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), true)
	handler := h.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Message, "kaboom")
	assert.Contains(t, body.Details, "stackTrace")
}
