package web

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/luanlucolli2/catarinense-leads-sub000/internal/logging"
)

// errorResponse is the JSON body every API error carries.
type errorResponse struct {
	Error string `json:"error"`
}

// respondError logs the failure with the request id and writes a JSON
// error body. Client-facing messages stay short; the log line carries
// the context.
func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logging.FromContext(r.Context()).Error("request error",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"error", message,
	)

	writeJSON(w, status, errorResponse{Error: message})
}

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent; nothing to do but log.
		slog.Error("json encode error", "error", err)
	}
}
