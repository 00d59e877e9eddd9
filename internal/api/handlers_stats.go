package api

import (
	"net/http"
)

func (s *Server) handleGrobidStats(w http.ResponseWriter, r *http.Request) {
	if s.grobid == nil {
		jsonError(w, "grobid stats unavailable", http.StatusServiceUnavailable)
		return
	}

	alive := s.grobid.IsAlive(r.Context()) == nil
	writeJSON(w, http.StatusOK, map[string]any{
		"url":   s.cfg.GrobidURL,
		"alive": alive,
		"stats": s.grobid.Stats().Snapshot(),
	})
}
