package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/montecarlo/internal/model"
	"github.com/seantiz/montecarlo/internal/store"
)

// checkpointListResponse is the JSON response for GET /v1/checkpoints.
type checkpointListResponse struct {
	Checkpoints []*model.Checkpoint `json:"checkpoints"`
}

func (s *Server) handleListCheckpoints(w http.ResponseWriter, r *http.Request) {
	group := r.URL.Query().Get("group")

	list, err := s.store.ListCheckpoints(r.Context(), group)
	if err != nil {
		s.logger.Error("list checkpoints", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list checkpoints")
		return
	}
	if list == nil {
		list = []*model.Checkpoint{}
	}

	s.writeJSON(w, http.StatusOK, checkpointListResponse{Checkpoints: list})
}

func (s *Server) handleGetCheckpoint(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	name := chi.URLParam(r, "name")

	cp, err := s.store.GetCheckpoint(r.Context(), group, name)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "checkpoint not found")
		return
	}
	if err != nil {
		s.logger.Error("get checkpoint", "group", group, "name", name, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get checkpoint")
		return
	}

	s.writeJSON(w, http.StatusOK, cp)
}

func (s *Server) handleDeleteCheckpoint(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	name := chi.URLParam(r, "name")

	err := s.store.DeleteCheckpoint(r.Context(), group, name)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "checkpoint not found")
		return
	}
	if err != nil {
		s.logger.Error("delete checkpoint", "group", group, "name", name, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to delete checkpoint")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
