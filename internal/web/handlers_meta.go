package web

import (
	"net/http"

	"github.com/JonMunkholm/leads/internal/logging"
)

// ExporterInfo describes one usable export format.
type ExporterInfo struct {
	Type        string `json:"type"`
	ContentType string `json:"contentType"`
	Extension   string `json:"extension"`
}

func (s *Server) handleListExporters(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Exports.Exporters()
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]ExporterInfo, len(list))
	for i, e := range list {
		out[i] = ExporterInfo{Type: e.Type(), ContentType: e.ContentType(), Extension: e.Extension()}
	}
	writeJSON(w, out)
}

func (s *Server) handleListMasters(w http.ResponseWriter, r *http.Request) {
	masters, err := s.deps.Exports.Masters(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if masters == nil {
		writeJSON(w, []struct{}{})
		return
	}
	writeJSON(w, masters)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleReady fails until the lead tables exist.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready.Ready(r.Context()); err != nil {
			logging.FromContext(r.Context()).Warn("not ready", "error", err)
			writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, map[string]string{"status": "ready"})
}
