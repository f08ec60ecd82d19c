package common

import (
	"encoding/json"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// APIResponse wraps every successful REST payload. Failures use the
// errors package's ErrorResponse instead.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *MetaInfo   `json:"meta,omitempty"`
}

// MetaInfo contains metadata about the response
type MetaInfo struct {
	RequestID string `json:"requestId,omitempty"`
	Viewer    string `json:"viewer,omitempty"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// RespondJSON sends a JSON response
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// RespondWithMeta sends a response carrying the request id and the
// identity the result was computed for
func RespondWithMeta(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	viewer, _ := GetIdentity(r.Context())
	writeJSON(w, status, APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
		Meta: &MetaInfo{
			RequestID: chimiddleware.GetReqID(r.Context()),
			Viewer:    viewer,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "v2",
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, response APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}
