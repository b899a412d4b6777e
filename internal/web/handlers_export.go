package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/leads/internal/export"
	"github.com/JonMunkholm/leads/internal/logging"
)

// handleExportMaster exports every lead of a master form, or those listed in ids.
func (s *Server) handleExportMaster(w http.ResponseWriter, r *http.Request) {
	masterID, err := pathID(r, "masterID")
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.export(w, r, export.Request{MasterID: masterID})
}

// handleExportConfig runs a stored export configuration.
func (s *Server) handleExportConfig(w http.ResponseWriter, r *http.Request) {
	configID, err := pathID(r, "configID")
	if err != nil {
		respondError(w, r, err)
		return
	}
	s.export(w, r, export.Request{ConfigID: configID})
}

func (s *Server) export(w http.ResponseWriter, r *http.Request, req export.Request) {
	q := r.URL.Query()
	req.Type = strings.ToLower(strings.TrimSpace(q.Get("type")))

	ids, err := parseIDList(q.Get("ids"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	req.SubmissionIDs = ids

	art, err := s.deps.Exports.Export(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	logging.WithFields(r.Context(), "export_id", art.ID, "type", art.Type).
		Info("export served", "rows", art.Rows, "bytes", len(art.Body))

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, art.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Body)))
	w.Header().Set("X-Export-ID", art.ID)
	w.Header().Set("X-Export-Rows", strconv.Itoa(art.Rows))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Body)
}

// parseIDList parses "1,2, 3" into ids. Empty input selects everything.
func parseIDList(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil || id <= 0 {
			return nil, badRequest("invalid lead id %q", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
