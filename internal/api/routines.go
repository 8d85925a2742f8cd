package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/puppilot/internal/routine"
)

// routineResponse is a routine's meta as served by the API.
type routineResponse struct {
	routine.Meta
	TimeLimitMS int64 `json:"timeLimitMs,omitempty"`
}

type listRoutinesResponse struct {
	Routines []routineResponse `json:"routines"`
}

func toRoutineResponse(m routine.Meta) routineResponse {
	return routineResponse{Meta: m, TimeLimitMS: m.TimeLimit.Milliseconds()}
}

func (s *Server) handleListRoutines(w http.ResponseWriter, _ *http.Request) {
	metas := s.catalog.List()
	out := make([]routineResponse, len(metas))
	for i, m := range metas {
		out[i] = toRoutineResponse(m)
	}
	s.writeJSON(w, http.StatusOK, listRoutinesResponse{Routines: out})
}

func (s *Server) handleGetRoutine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rt, err := s.catalog.Get(id)
	if errors.Is(err, routine.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "routine not found")
		return
	}
	if err != nil {
		s.logger.Error("get routine", "routine_id", id, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get routine")
		return
	}

	s.writeJSON(w, http.StatusOK, toRoutineResponse(rt.Meta()))
}
