package api

import (
	"maps"
	"net/http"
	"slices"
)

func (s *Server) handleGetProgress(w http.ResponseWriter, _ *http.Request) {
	if !s.requireMonitor(w) {
		return
	}
	s.writeJSON(w, http.StatusOK, s.monitor.Progress())
}

// moveResponse is one entry of GET /v1/moves.
type moveResponse struct {
	Name           string  `json:"name"`
	AcceptanceRate float64 `json:"acceptance_rate"`
}

// handleListMoves reports acceptance rates as of the latest progress report.
func (s *Server) handleListMoves(w http.ResponseWriter, _ *http.Request) {
	if !s.requireMonitor(w) {
		return
	}
	rates := s.monitor.Progress().AcceptanceRates
	moves := make([]moveResponse, 0, len(rates))
	for _, name := range slices.Sorted(maps.Keys(rates)) {
		moves = append(moves, moveResponse{Name: name, AcceptanceRate: rates[name]})
	}
	s.writeJSON(w, http.StatusOK, moves)
}
