package api

import (
	"net/http"
)

// statsResponse is the JSON response for GET /api/v0/stats.
type statsResponse struct {
	Sails         int            `json:"sails"`
	Jobs          int            `json:"jobs"`
	ByStatus      map[string]int `json:"byStatus"`
	AvgDurationMS float64        `json:"avgDurationMs"`
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		s.logger.Error("get sail stats", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	s.writeJSON(w, http.StatusOK, statsResponse{
		Sails:         stats.Sails,
		Jobs:          stats.Jobs,
		ByStatus:      stats.CountByStatus,
		AvgDurationMS: stats.AvgDurationMS,
	})
}
