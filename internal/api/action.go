package api

import "net/http"

// handleClose asks the server to shut down. The response is written before
// shutdown starts; running sails are finished by the caller of Run.
func (s *Server) handleClose(w http.ResponseWriter, _ *http.Request) {
	s.logger.Info("close requested")
	s.writeJSON(w, http.StatusAccepted, struct{}{})
	s.requestClose()
}
