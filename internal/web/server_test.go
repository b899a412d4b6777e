package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/leads/internal/config"
	"github.com/JonMunkholm/leads/internal/core"
	"github.com/JonMunkholm/leads/internal/export"
)

type fakeRecorder struct {
	formID int64
	got    core.Submitted
	id     int64
	err    error
}

func (f *fakeRecorder) CaptureForm(ctx context.Context, formID int64, in core.Submitted) (int64, error) {
	f.formID = formID
	f.got = in
	return f.id, f.err
}

type fakeExports struct {
	req     export.Request
	art     *export.Artifact
	err     error
	masters []core.MasterForm
}

func (f *fakeExports) Export(ctx context.Context, req export.Request) (*export.Artifact, error) {
	f.req = req
	return f.art, f.err
}

func (f *fakeExports) Exporters() ([]export.Exporter, error) {
	return export.NewRegistry(export.Builtin(export.Options{Enabled: export.NewAvailability([]string{"csv", "json"})})...).Available()
}

func (f *fakeExports) Masters(ctx context.Context) ([]core.MasterForm, error) {
	return f.masters, nil
}

type fakeReady struct{ err error }

func (f fakeReady) Ready(ctx context.Context) error { return f.err }

type captureCounter struct{ errs []error }

func (c *captureCounter) CaptureFinished(err error) { c.errs = append(c.errs, err) }

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{MaxBodySize: 1 << 20},
		Metrics: config.MetricsConfig{Enabled: true},
	}
}

type harness struct {
	server   *Server
	recorder *fakeRecorder
	exports  *fakeExports
	captures *captureCounter
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	h := &harness{
		recorder: &fakeRecorder{id: 42},
		exports:  &fakeExports{},
		captures: &captureCounter{},
	}
	h.server = NewServer(cfg, Deps{
		Recorder: h.recorder,
		Exports:  h.exports,
		Ready:    fakeReady{},
		Metrics:  http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
		Captures: h.captures,
	})
	t.Cleanup(func() { _ = h.server.Shutdown(context.Background()) })
	return h
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.server.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp
}

func TestCapture_FormEncoded(t *testing.T) {
	h := newHarness(t, testConfig())

	form := url.Values{}
	form.Set("name", "Ada")
	form.Add("colors[]", "red")
	form.Add("tags", "a")
	form.Add("tags", "b")
	req := httptest.NewRequest(http.MethodPost, "/api/forms/3/leads", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Member-ID", "7")
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.8")

	rec := h.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"leadId":42}`, rec.Body.String())

	assert.Equal(t, int64(3), h.recorder.formID)
	got := h.recorder.got
	assert.Equal(t, int64(7), got.MemberID)
	assert.Equal(t, "de-DE", got.Language)
	assert.Equal(t, "Ada", got.Post["name"].String())
	assert.True(t, got.Post["colors"].Equal(core.List("red")))
	assert.True(t, got.Post["tags"].Equal(core.List("a", "b")))
	require.Len(t, h.captures.errs, 1)
	assert.NoError(t, h.captures.errs[0])
}

func TestCapture_JSON(t *testing.T) {
	h := newHarness(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/forms/3/leads", strings.NewReader(`{"dob":"1990-07-14","colors":["red","blue"]}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	rec := h.do(req)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, core.AnonymousMember, h.recorder.got.MemberID)
	assert.Equal(t, "1990-07-14", h.recorder.got.Post["dob"].String())
	assert.Equal(t, []string{"red", "blue"}, h.recorder.got.Post["colors"].Items())
}

func TestCapture_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		path     string
		body     string
		member   string
		status   int
		code     string
		noDetail string
	}{
		{name: "disabled", err: &core.DisabledError{FormID: 3}, status: http.StatusNoContent},
		{name: "invalid date", err: fmt.Errorf("capture form 3: %w", &core.ValidationError{Field: "dob", Value: "14.07.1990"}), status: http.StatusUnprocessableEntity, code: "CAP001"},
		{name: "storage failure", err: errors.New(`insert lead: pq: relation "leads" does not exist`), status: http.StatusInternalServerError, code: "CAP003", noDetail: "relation"},
		{name: "unknown form", err: core.NewNotFound("form", int64(3)), status: http.StatusNotFound, code: "EXP005"},
		{name: "bad form id", path: "/api/forms/abc/leads", status: http.StatusBadRequest, code: "ERR000"},
		{name: "bad member", member: "someone", status: http.StatusBadRequest},
		{name: "bad json", body: `{"name":`, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, testConfig())
			h.recorder.err = tt.err

			path := tt.path
			if path == "" {
				path = "/api/forms/3/leads"
			}
			body := tt.body
			if body == "" {
				body = `{"name":"Ada"}`
			}
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			if tt.member != "" {
				req.Header.Set("X-Member-ID", tt.member)
			}

			rec := h.do(req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status == http.StatusNoContent {
				assert.Empty(t, rec.Body.String())
				return
			}
			resp := decodeError(t, rec)
			if tt.code != "" {
				assert.Equal(t, tt.code, resp.Code)
			}
			if tt.noDetail != "" {
				assert.NotContains(t, rec.Body.String(), tt.noDetail)
			}
		})
	}
}

func TestExport_Master(t *testing.T) {
	h := newHarness(t, testConfig())
	h.exports.art = &export.Artifact{
		ID:          "e-1",
		Type:        "csv",
		Filename:    "leads_5_20240301_120000.csv",
		ContentType: "text/csv; charset=utf-8",
		Body:        []byte("Created,Form,Member\n"),
	}

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/masters/5/export?type=CSV&ids=3,%204", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, export.Request{MasterID: 5, Type: "csv", SubmissionIDs: []int64{3, 4}}, h.exports.req)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="leads_5_20240301_120000.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "e-1", rec.Header().Get("X-Export-ID"))
	assert.Equal(t, "0", rec.Header().Get("X-Export-Rows"))
	assert.Equal(t, "Created,Form,Member\n", rec.Body.String())
}

func TestExport_Config(t *testing.T) {
	h := newHarness(t, testConfig())
	h.exports.art = &export.Artifact{ID: "e-2", Type: "json", Filename: "x.json", ContentType: "application/json"}

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/exports/9", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.Request{ConfigID: 9}, h.exports.req)
}

func TestExport_Errors(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		err    error
		status int
		code   string
		msg    string
	}{
		{"unknown type", "/api/masters/5/export?type=xlsx", core.NewNotFound("exporter", "xlsx"), http.StatusNotFound, "EXP002", "xlsx"},
		{"unknown config", "/api/exports/77", core.NewNotFound("export config", int64(77)), http.StatusNotFound, "EXP001", "77"},
		{"busy", "/api/masters/5/export", export.ErrTooManyExports, http.StatusTooManyRequests, "EXP004", ""},
		{"integrity", "/api/masters/5/export", &core.IntegrityError{Reason: "duplicate key"}, http.StatusInternalServerError, "EXP003", ""},
		{"bad ids", "/api/masters/5/export?ids=1,x", nil, http.StatusBadRequest, "", ""},
		{"bad master", "/api/masters/0/export", nil, http.StatusBadRequest, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, testConfig())
			h.exports.err = tt.err

			rec := h.do(httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, tt.status, rec.Code)

			resp := decodeError(t, rec)
			if tt.code != "" {
				assert.Equal(t, tt.code, resp.Code)
			}
			if tt.msg != "" {
				assert.Contains(t, resp.Message, tt.msg)
			}
			if tt.status == http.StatusTooManyRequests {
				assert.NotEmpty(t, rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestListings(t *testing.T) {
	h := newHarness(t, testConfig())
	h.exports.masters = []core.MasterForm{{ID: 1, Title: "Contact", MenuLabel: "Contact"}}

	rec := h.do(httptest.NewRequest(http.MethodGet, "/api/exporters", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var infos []ExporterInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &infos))
	require.Len(t, infos, 2)
	assert.Equal(t, ExporterInfo{Type: "csv", ContentType: "text/csv; charset=utf-8", Extension: "csv"}, infos[0])

	rec = h.do(httptest.NewRequest(http.MethodGet, "/api/masters", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"id":1,"title":"Contact","menuLabel":"Contact","orphaned":false}]`, rec.Body.String())

	h.exports.masters = nil
	rec = h.do(httptest.NewRequest(http.MethodGet, "/api/masters", nil))
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHealthReadyMetrics(t *testing.T) {
	h := newHarness(t, testConfig())

	assert.Equal(t, http.StatusOK, h.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	assert.Equal(t, http.StatusOK, h.do(httptest.NewRequest(http.MethodGet, "/readyz", nil)).Code)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "# metrics", rec.Body.String())

	h.server.deps.Ready = fakeReady{err: errors.New("table leads is missing")}
	rec = h.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "leads")
}

func TestAPIKeyProtectsExports(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	h := newHarness(t, cfg)

	assert.Equal(t, http.StatusUnauthorized, h.do(httptest.NewRequest(http.MethodGet, "/api/exporters", nil)).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/exporters", nil)
	req.Header.Set("X-API-Key", "secret")
	assert.Equal(t, http.StatusOK, h.do(req).Code)

	// Submissions stay public.
	capture := httptest.NewRequest(http.MethodPost, "/api/forms/3/leads", strings.NewReader(`{}`))
	capture.Header.Set("Content-Type", "application/json")
	assert.Equal(t, http.StatusCreated, h.do(capture).Code)
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	defer rl.stop()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("1.2.3.4"))
	assert.True(t, rl.allow("1.2.3.4"))
	assert.False(t, rl.allow("1.2.3.4"))
	assert.True(t, rl.allow("5.6.7.8"))

	now = now.Add(2 * time.Minute)
	assert.True(t, rl.allow("1.2.3.4"))
}

func TestCaptureRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, CaptureLimit: 1}
	h := newHarness(t, cfg)

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/forms/3/leads", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		return h.do(req).Code
	}
	assert.Equal(t, http.StatusCreated, post())
	assert.Equal(t, http.StatusTooManyRequests, post())
}
