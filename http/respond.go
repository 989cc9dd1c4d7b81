package http

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// respondJSON writes data as a JSON response with the given status.
func (a *API) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Warn("failed to encode response", zap.Error(err))
	}
}

// respondError writes the API error body: {"error": "<detail>"}.
func (a *API) respondError(w http.ResponseWriter, status int, detail string) {
	a.respondJSON(w, status, map[string]string{"error": detail})
}
