package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/puppilot/internal/engine"
	"github.com/seantiz/puppilot/internal/model"
	"github.com/seantiz/puppilot/internal/routine"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxBodySize      = 1 << 20 // 1 MB
)

// createSailRequest is the JSON body for POST /api/v0/sails.
type createSailRequest struct {
	Routines []string `json:"routines"`
}

type createSailResponse struct {
	SailID string `json:"sailId"`
}

type listSailsResponse struct {
	Sails []engine.SailSummary `json:"sails"`
}

// sailHistoryResponse wraps the paginated list of stored sails.
type sailHistoryResponse struct {
	Sails  []*model.SailRecord `json:"sails"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

func (s *Server) handleCreateSail(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if err := validateBody(createSailValidator, body); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req createSailRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	id, err := s.engine.Sail(r.Context(), req.Routines)
	switch {
	case err == nil:
	case errors.Is(err, routine.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, engine.ErrNoRoutines):
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, engine.ErrClosed):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	default:
		s.logger.Error("start sail", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to start sail")
		return
	}

	s.writeJSON(w, http.StatusAccepted, createSailResponse{SailID: id})
}

func (s *Server) handleListSails(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, listSailsResponse{Sails: s.engine.List()})
}

func (s *Server) handleGetSail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	snap, err := s.engine.Status(r.Context(), id)
	if errors.Is(err, engine.ErrSailNotFound) {
		s.writeError(w, http.StatusNotFound, "sail not found")
		return
	}
	if err != nil {
		s.logger.Error("get sail", "sail_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get sail")
		return
	}

	s.writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSailHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", defaultListLimit)
	offset := parseIntQuery(r, "offset", 0)

	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	sails, total, err := s.engine.History(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list sail history", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list sails")
		return
	}

	if sails == nil {
		sails = []*model.SailRecord{}
	}

	s.writeJSON(w, http.StatusOK, sailHistoryResponse{
		Sails:  sails,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}
