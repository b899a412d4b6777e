package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/leads/internal/core"
	"github.com/JonMunkholm/leads/internal/export"
)

func TestCaptureOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeStored},
		{&core.DisabledError{FormID: 3}, OutcomeDisabled},
		{fmt.Errorf("capture form 1: %w", &core.ValidationError{Field: "dob"}), OutcomeInvalid},
		{errors.New("connection reset"), OutcomeFailed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CaptureOutcome(tt.err), "%v", tt.err)
	}
}

func TestCollector_Capture(t *testing.T) {
	c := NewCollector("test", prometheus.NewRegistry())

	c.CaptureFinished(nil)
	c.CaptureFinished(nil)
	c.CaptureFinished(&core.DisabledError{})
	c.RecordsStored(5)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.captures.WithLabelValues(OutcomeStored)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.captures.WithLabelValues(OutcomeDisabled)))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.recordsStored))
}

func TestCollector_Export(t *testing.T) {
	c := NewCollector("test", prometheus.NewRegistry())

	c.ExportFinished("csv", 10, 20*time.Millisecond, nil)
	c.ExportFinished("", 0, time.Millisecond, core.NewNotFound("exporter", "xlsx"))
	c.ExportFinished("csv", 0, time.Second, export.ErrTooManyExports)
	c.ExportFinished("", 0, 0, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.exports.WithLabelValues("csv", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.exports.WithLabelValues("unknown", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.exports.WithLabelValues("csv", "busy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.exports.WithLabelValues("unknown", "error")))
	assert.Equal(t, 10.0, testutil.ToFloat64(c.exportRows))
	assert.Equal(t, 1, testutil.CollectAndCount(c.exportDuration))
}

func TestCollector_UnknownExportTypesShareOneSeries(t *testing.T) {
	c := NewCollector("test", prometheus.NewRegistry())
	reg := export.NewRegistry(export.Builtin(export.Options{})...)
	svc := export.NewService(nil, reg, core.NewDenormalizer(nil, core.DenormalizerOptions{}), nil, c)

	for i := 0; i < 50; i++ {
		_, err := svc.Export(context.Background(), export.Request{MasterID: 1, Type: fmt.Sprintf("junk-%d", i)})
		require.True(t, core.IsNotFound(err), "%v", err)
	}

	assert.Equal(t, 1, testutil.CollectAndCount(c.exports))
	assert.Equal(t, 50.0, testutil.ToFloat64(c.exports.WithLabelValues("unknown", "not_found")))
}

func TestCollector_WatchLimiterAndHandler(t *testing.T) {
	c := NewCollector("test", nil)
	l := export.NewLimiter(2, time.Second)
	c.WatchLimiter("test", l)

	started := make(chan struct{})
	stop := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- l.Do(context.Background(), func(context.Context) error {
			close(started)
			<-stop
			return nil
		})
	}()
	<-started
	defer func() {
		close(stop)
		require.NoError(t, <-done)
	}()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "test_export_active 1"), body)
	assert.Contains(t, body, "go_goroutines")
}
