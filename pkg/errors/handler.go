package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ErrorResponse is the JSON body of every failed REST call. Code matches the
// code websocket clients receive in warning and error events.
type ErrorResponse struct {
	Error     bool                   `json:"error"`
	Type      string                 `json:"type"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"requestId,omitempty"`
}

// ErrorHandler turns errors into JSON responses
type ErrorHandler struct {
	logger *zap.Logger
	debug  bool
}

// NewErrorHandler creates a new error handler. With debug set, responses
// include the cause and stack trace.
func NewErrorHandler(logger *zap.Logger, debug bool) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
		debug:  debug,
	}
}

// Handle writes the response for err
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	status := http.StatusInternalServerError
	errType := ErrorTypeInternal
	code, message := Public(err)
	response := ErrorResponse{
		Error:     true,
		Code:      code,
		Message:   message,
		RequestID: chimiddleware.GetReqID(r.Context()),
	}

	appErr := GetAppError(err)
	if appErr != nil {
		errType = appErr.Type
		if appErr.HTTPStatus != 0 {
			status = appErr.HTTPStatus
		}
		response.Details = appErr.Details
	}
	response.Type = string(errType)

	if h.debug {
		response.Details = h.debugDetails(err, appErr, response.Details)
	}

	h.log(r, err, code, status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(response); encErr != nil {
		h.logger.Error("Failed to encode error response", zap.Error(encErr))
	}
}

// Middleware recovers panics into internal error responses
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.Handle(w, r, NewInternalError(fmt.Sprintf("panic: %v", rec)))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

func (h *ErrorHandler) debugDetails(err error, appErr *AppError, details map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(details)+2)
	for k, v := range details {
		out[k] = v
	}
	out["cause"] = err.Error()
	if appErr != nil && appErr.StackTrace != "" {
		out["stackTrace"] = appErr.StackTrace
	}
	return out
}

// log picks the level from the status: client mistakes are warnings
func (h *ErrorHandler) log(r *http.Request, err error, code string, status int) {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("code", code),
		zap.Int("status", status),
		zap.String("requestID", chimiddleware.GetReqID(r.Context())),
		zap.Error(err),
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", fields...)
		return
	}
	h.logger.Warn("Request rejected", fields...)
}
