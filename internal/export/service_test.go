package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/leads/internal/core"
)

// fakeStore serves fixed pivot data for one master form.
type fakeStore struct {
	configs map[int64]core.ExportConfigRow
	defs    map[int64]core.FieldDefinition
	records []core.PivotRecord // already in export order
	masters []core.MasterForm
	reads   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		configs: make(map[int64]core.ExportConfigRow),
		defs:    make(map[int64]core.FieldDefinition),
	}
}

func (f *fakeStore) ExportConfigRow(ctx context.Context, id int64) (core.ExportConfigRow, bool, error) {
	row, ok := f.configs[id]
	return row, ok, nil
}

func (f *fakeStore) match(q core.PivotQuery, r core.PivotRecord) bool {
	if r.MasterFieldID == 0 {
		return false
	}
	if len(q.SubmissionIDs) == 0 {
		return true
	}
	for _, id := range q.SubmissionIDs {
		if id == r.SubmissionID {
			return true
		}
	}
	return false
}

func (f *fakeStore) PivotColumns(ctx context.Context, q core.PivotQuery) ([]core.ColumnSource, error) {
	f.reads++
	seen := make(map[int64]bool)
	var out []core.ColumnSource
	for _, r := range f.records {
		if !f.match(q, r) || seen[r.MasterFieldID] {
			continue
		}
		seen[r.MasterFieldID] = true
		src := core.ColumnSource{MasterFieldID: r.MasterFieldID, RecordName: r.Name, RecordSorting: r.Sorting}
		if d, ok := f.defs[r.MasterFieldID]; ok {
			src.Definition = &d
		}
		out = append(out, src)
	}
	return out, nil
}

func (f *fakeStore) FieldDefinitions(ctx context.Context, ids []int64) ([]core.FieldDefinition, error) {
	var out []core.FieldDefinition
	for _, id := range ids {
		if d, ok := f.defs[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) EachPivotRecord(ctx context.Context, q core.PivotQuery, fn func(core.PivotRecord) error) error {
	f.reads++
	for _, r := range f.records {
		if !f.match(q, r) {
			continue
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) ListMasters(ctx context.Context) ([]core.MasterForm, error) {
	return f.masters, nil
}

func pivotRecord(lead, id, field int64, name, value string, created time.Time) core.PivotRecord {
	return core.PivotRecord{
		FieldRecord: core.FieldRecord{
			ID:            id,
			SubmissionID:  lead,
			MasterFieldID: field,
			FieldID:       field,
			Name:          name,
			Value:         core.Scalar(value),
		},
		Created:   created,
		FormTitle: "Contact",
	}
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []observed
}

type observed struct {
	typ  string
	rows int
	err  error
}

func (o *recordingObserver) ExportFinished(typ string, rows int, elapsed time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, observed{typ: typ, rows: rows, err: err})
}

func newTestService(store *fakeStore, obs Observer) *Service {
	reg := NewRegistry(Builtin(Options{})...)
	pivot := core.NewDenormalizer(store, core.DenormalizerOptions{})
	svc := NewService(store, reg, pivot, NewLimiter(1, time.Second), obs)
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestService_UnknownTypeIsNotFound(t *testing.T) {
	store := newFakeStore()
	obs := &recordingObserver{}
	svc := newTestService(store, obs)

	_, err := svc.Export(context.Background(), Request{MasterID: 1, Type: "xlsx"})
	require.Error(t, err)

	var nf *core.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "xlsx", nf.Key)
	assert.Contains(t, err.Error(), "xlsx")
	assert.Zero(t, store.reads, "no lead data is read for an unknown type")

	require.Len(t, obs.calls, 1)
	assert.Empty(t, obs.calls[0].typ, "unresolved types are not reported")
	assert.Error(t, obs.calls[0].err)
}

func TestService_ObserverSeesOnlyRegisteredTypes(t *testing.T) {
	store := newFakeStore()
	store.configs[7] = core.ExportConfigRow{ID: 7, FormID: 1, Type: "bogus"}
	obs := &recordingObserver{}
	svc := newTestService(store, obs)

	for _, req := range []Request{
		{MasterID: 1, Type: "junk-1"},
		{MasterID: 1, Type: "junk-2"},
		{ConfigID: 7},
		{MasterID: 1, Type: "json"},
	} {
		_, _ = svc.Export(context.Background(), req)
	}

	require.Len(t, obs.calls, 4)
	got := make([]string, len(obs.calls))
	for i, c := range obs.calls {
		got[i] = c.typ
	}
	assert.Equal(t, []string{"", "", "", "json"}, got)
}

func TestService_ZeroLeadsIsHeaderOnly(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)

	art, err := svc.Export(context.Background(), Request{MasterID: 1, Type: "csv"})
	require.NoError(t, err)

	assert.Equal(t, 0, art.Rows)
	assert.Equal(t, "Created,Form,Member\n", string(art.Body))
	assert.Equal(t, "leads_1_20240301_120000.csv", art.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", art.ContentType)
	assert.NotEmpty(t, art.ID)
}

func TestService_ExportByMaster(t *testing.T) {
	store := newFakeStore()
	t1 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	store.records = []core.PivotRecord{
		pivotRecord(2, 3, 10, "name", "Sam", t2),
		pivotRecord(1, 1, 10, "name", "Jo", t1),
		pivotRecord(1, 2, 11, "email", "jo@example.com", t1),
	}
	obs := &recordingObserver{}
	svc := newTestService(store, obs)

	art, err := svc.Export(context.Background(), Request{MasterID: 1})
	require.NoError(t, err)
	assert.Equal(t, "csv", art.Type)
	assert.Equal(t, 2, art.Rows)

	rows, err := csv.NewReader(bytes.NewReader(art.Body)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"Created", "Form", "Member", "name", "email"}, rows[0])
	assert.Equal(t, []string{"2024-01-02 09:00", "Contact", "", "Sam", ""}, rows[1])
	assert.Equal(t, []string{"2024-01-01 09:00", "Contact", "", "Jo", "jo@example.com"}, rows[2])

	require.Len(t, obs.calls, 1)
	assert.Equal(t, observed{typ: "csv", rows: 2}, obs.calls[0])
}

func TestService_ExportByConfig(t *testing.T) {
	store := newFakeStore()
	store.defs[11] = core.FieldDefinition{ID: 11, Name: "email", Label: "E-Mail"}
	store.configs[7] = core.ExportConfigRow{
		ID:     7,
		FormID: 1,
		Type:   "json",
		Fields: json.RawMessage(`["11"]`),
	}
	t1 := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	store.records = []core.PivotRecord{
		pivotRecord(1, 1, 10, "name", "Jo", t1),
		pivotRecord(1, 2, 11, "email", "jo@example.com", t1),
	}
	svc := newTestService(store, nil)

	art, err := svc.Export(context.Background(), Request{ConfigID: 7})
	require.NoError(t, err)
	assert.Equal(t, "json", art.Type)

	var got struct {
		Header []string   `json:"header"`
		Rows   [][]string `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(art.Body, &got))
	assert.Equal(t, []string{"Created", "Form", "Member", "E-Mail"}, got.Header)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "jo@example.com", got.Rows[0][3])

	// An explicit type overrides the configured one.
	art, err = svc.Export(context.Background(), Request{ConfigID: 7, Type: "markdown"})
	require.NoError(t, err)
	assert.Equal(t, "leads_1_20240301_120000.md", art.Filename)
}

func TestService_MissingConfig(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)

	_, err := svc.Export(context.Background(), Request{ConfigID: 99})
	assert.True(t, core.IsNotFound(err))
}

func TestService_RequiresMaster(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)

	_, err := svc.Export(context.Background(), Request{})
	require.Error(t, err)
	assert.False(t, core.IsNotFound(err))
}

func TestService_Busy(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, nil)
	svc.limiter = NewLimiter(1, 20*time.Millisecond)
	release := hold(t, svc.limiter)
	defer release()

	_, err := svc.Export(context.Background(), Request{MasterID: 1})
	assert.True(t, errors.Is(err, ErrTooManyExports))
	assert.Zero(t, store.reads, "no lead data is read without a slot")
}

func TestService_Masters(t *testing.T) {
	store := newFakeStore()
	store.masters = []core.MasterForm{{ID: 1, Title: "Contact"}}
	svc := newTestService(store, nil)

	got, err := svc.Masters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.masters, got)

	exps, err := svc.Exporters()
	require.NoError(t, err)
	assert.Len(t, exps, 5)
}
