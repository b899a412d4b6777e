package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/leads/internal/core"
	"github.com/JonMunkholm/leads/internal/logging"
)

// errBadRequest marks malformed requests.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// multipartMemory is how much of a multipart body is kept in memory.
const multipartMemory = 8 << 20

// CaptureResponse is returned for a stored submission.
type CaptureResponse struct {
	LeadID int64 `json:"leadId"`
}

// handleCapture stores one submission of a form.
//
// Bodies may be form-encoded, multipart or a JSON object. Field names ending
// in "[]" and repeated names are stored as lists. The submitting member and
// language come from the X-Member-ID and X-Language (or Accept-Language)
// headers.
func (s *Server) handleCapture(w http.ResponseWriter, r *http.Request) {
	formID, err := pathID(r, "formID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	in, err := parseSubmission(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	leadID, err := s.deps.Recorder.CaptureForm(r.Context(), formID, in)
	if s.deps.Captures != nil {
		s.deps.Captures.CaptureFinished(err)
	}

	switch {
	case err == nil:
		writeJSONStatus(w, http.StatusCreated, CaptureResponse{LeadID: leadID})
	case core.IsDisabled(err):
		logging.FromContext(r.Context()).Debug("capture disabled", "form_id", formID)
		w.WriteHeader(http.StatusNoContent)
	case core.IsNotFound(err):
		respondError(w, r, err)
	default:
		respondCaptureError(w, r, err)
	}
}

// parseSubmission reads posted values, files and submitter metadata.
func parseSubmission(r *http.Request) (core.Submitted, error) {
	in := core.Submitted{
		MemberID: core.AnonymousMember,
		Language: requestLanguage(r),
	}

	if raw := strings.TrimSpace(r.Header.Get("X-Member-ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 0 {
			return in, badRequest("invalid X-Member-ID %q", raw)
		}
		in.MemberID = id
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		post := map[string]core.Value{}
		if err := json.NewDecoder(r.Body).Decode(&post); err != nil {
			return in, badRequest("invalid JSON body: %v", err)
		}
		in.Post = post

	case "multipart/form-data":
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			return in, badRequest("invalid multipart body: %v", err)
		}
		in.Post = postedValues(r.MultipartForm.Value)
		in.Files = uploadedFiles(r)

	default:
		if err := r.ParseForm(); err != nil {
			return in, badRequest("invalid form body: %v", err)
		}
		in.Post = postedValues(r.PostForm)
	}

	return in, nil
}

// postedValues converts form values. "name[]" and repeated keys become lists.
func postedValues(form map[string][]string) map[string]core.Value {
	out := make(map[string]core.Value, len(form))
	for key, vals := range form {
		name, isList := strings.CutSuffix(key, "[]")
		if isList || len(vals) > 1 {
			out[name] = core.List(vals...)
			continue
		}
		if len(vals) == 1 {
			out[name] = core.Scalar(vals[0])
		}
	}
	return out
}

func uploadedFiles(r *http.Request) map[string]core.UploadedFile {
	if r.MultipartForm == nil || len(r.MultipartForm.File) == 0 {
		return nil
	}
	out := make(map[string]core.UploadedFile, len(r.MultipartForm.File))
	for key, headers := range r.MultipartForm.File {
		if len(headers) == 0 {
			continue
		}
		h := headers[0]
		out[key] = core.UploadedFile{
			Name:        h.Filename,
			ContentType: h.Header.Get("Content-Type"),
			Size:        h.Size,
		}
	}
	return out
}

// requestLanguage returns X-Language, else the first Accept-Language tag.
func requestLanguage(r *http.Request) string {
	if lang := strings.TrimSpace(r.Header.Get("X-Language")); lang != "" {
		return lang
	}
	accept := r.Header.Get("Accept-Language")
	if accept == "" {
		return ""
	}
	first, _, _ := strings.Cut(accept, ",")
	tag, _, _ := strings.Cut(first, ";")
	return strings.TrimSpace(tag)
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return id, nil
}
