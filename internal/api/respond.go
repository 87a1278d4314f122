package api

import (
	"encoding/json"
	"net/http"
)

// writeJSON writes v as a JSON response with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// requireMonitor answers 503 and returns false when no engine is attached.
func (s *Server) requireMonitor(w http.ResponseWriter) bool {
	if s.monitor == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no simulation attached")
		return false
	}
	return true
}
