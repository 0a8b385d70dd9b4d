package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantprice/handlers"
	"plantprice/models"
	"plantprice/repository"
	"plantprice/scheduler"
)

// fakeBatches mimics the orchestrator state machine without running anything
type fakeBatches struct {
	mu       sync.Mutex
	batch    *models.Batch
	results  []models.PlantResult
	lastOpts scheduler.BatchOptions
}

func (f *fakeBatches) Start(opts scheduler.BatchOptions) (*models.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.batch != nil && f.batch.Status == models.BatchStatusRunning {
		return nil, scheduler.ErrBatchRunning
	}
	f.lastOpts = opts
	f.batch = models.NewBatch(opts.Queries, opts.Method, opts.ExcludedSources, opts.PauseOnCaptcha)
	f.batch.Start()
	return f.batch.Clone(), nil
}

func (f *fakeBatches) Resume() (*models.Batch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.batch == nil || f.batch.Status != models.BatchStatusPausedForCaptcha {
		return nil, scheduler.ErrNotPaused
	}
	f.batch.Resume()
	return f.batch.Clone(), nil
}

func (f *fakeBatches) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.batch == nil || !f.batch.IsActive() {
		return scheduler.ErrNotRunning
	}
	f.batch.Stop()
	return nil
}

func (f *fakeBatches) Snapshot() models.BatchSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := models.BatchSnapshot{State: models.BatchStatusIdle, Results: f.results}
	if f.batch != nil {
		snap.State = f.batch.Status
		snap.Batch = f.batch.Clone()
		snap.CanResume = f.batch.Status == models.BatchStatusPausedForCaptcha
	}
	return snap
}

type fakeEvents struct {
	events []models.BatchEvent
}

func (f *fakeEvents) After(seq int) []models.BatchEvent {
	out := []models.BatchEvent{}
	for _, ev := range f.events {
		if ev.Seq > seq {
			out = append(out, ev)
		}
	}
	return out
}

type fakeHistory struct {
	results map[string][]models.PlantResult
}

func (f *fakeHistory) ListBatches(_ context.Context, _ int) ([]models.BatchSummary, error) {
	var out []models.BatchSummary
	for id := range f.results {
		out = append(out, models.BatchSummary{ID: id, Status: models.BatchStatusCompleted})
	}
	return out, nil
}

func (f *fakeHistory) GetBatchResults(_ context.Context, id string) ([]models.PlantResult, error) {
	results, ok := f.results[id]
	if !ok {
		return nil, repository.ErrBatchNotFound
	}
	return results, nil
}

func newRouter(batches *fakeBatches, history handlers.HistoryStore) *mux.Router {
	events := &fakeEvents{events: []models.BatchEvent{
		{Seq: 1, Type: models.EventProgress, Message: "Starting batch of 1 plants"},
		{Seq: 2, Type: models.EventResult, Query: "Jade Plant"},
	}}
	h := handlers.NewHandlers(batches, events, history, handlers.Defaults{
		Method:          models.MethodDirectHTTP,
		PauseOnCaptcha:  true,
		ExcludedSources: []string{"etsy"},
	})
	r := mux.NewRouter()
	h.Register(r)
	return r
}

func do(t *testing.T, r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestStartBatch(t *testing.T) {
	t.Parallel()

	t.Run("applies defaults and rejects a second start", func(t *testing.T) {
		t.Parallel()

		batches := &fakeBatches{}
		r := newRouter(batches, nil)

		rec := do(t, r, http.MethodPost, "/api/v1/batch", `{"plants":["Jade Plant"," ","Monstera"]}`)
		require.Equal(t, http.StatusAccepted, rec.Code)

		var batch models.Batch
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batch))
		assert.Equal(t, []string{"Jade Plant", "Monstera"}, batch.Queries)
		assert.Equal(t, models.BatchStatusRunning, batch.Status)
		assert.Equal(t, models.MethodDirectHTTP, batches.lastOpts.Method)
		assert.Equal(t, []string{"etsy"}, batches.lastOpts.ExcludedSources)
		assert.True(t, batches.lastOpts.PauseOnCaptcha)
		assert.Equal(t, models.SelectionDiverse, batches.lastOpts.Selection)

		rec = do(t, r, http.MethodPost, "/api/v1/batch", `{"plants":["Pothos"]}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("request fields override defaults", func(t *testing.T) {
		t.Parallel()

		batches := &fakeBatches{}
		r := newRouter(batches, nil)

		rec := do(t, r, http.MethodPost, "/api/v1/batch", `{"plants":["Jade Plant"],"method":"browser","excluded_sources":[],"pause_on_captcha":false,"selection":"in-order"}`)
		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, models.MethodBrowser, batches.lastOpts.Method)
		assert.Empty(t, batches.lastOpts.ExcludedSources)
		assert.False(t, batches.lastOpts.PauseOnCaptcha)
		assert.Equal(t, models.SelectionInOrder, batches.lastOpts.Selection)
	})

	t.Run("bad requests", func(t *testing.T) {
		t.Parallel()

		r := newRouter(&fakeBatches{}, nil)

		assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/v1/batch", `not json`).Code)
		assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/v1/batch", `{"plants":[]}`).Code)
		assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/v1/batch", `{"plants":["Jade"],"method":"telnet"}`).Code)
		assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/v1/batch", `{"plants":["Jade"],"selection":"cheapest"}`).Code)
	})
}

func TestBatchControl(t *testing.T) {
	t.Parallel()

	t.Run("resume without a captcha pause conflicts", func(t *testing.T) {
		t.Parallel()

		batches := &fakeBatches{}
		r := newRouter(batches, nil)

		assert.Equal(t, http.StatusConflict, do(t, r, http.MethodPost, "/api/v1/batch/resume", "").Code)

		require.Equal(t, http.StatusAccepted, do(t, r, http.MethodPost, "/api/v1/batch", `{"plants":["Jade Plant"]}`).Code)
		assert.Equal(t, http.StatusConflict, do(t, r, http.MethodPost, "/api/v1/batch/resume", "").Code)
	})

	t.Run("resume after a captcha pause", func(t *testing.T) {
		t.Parallel()

		batches := &fakeBatches{}
		r := newRouter(batches, nil)
		require.Equal(t, http.StatusAccepted, do(t, r, http.MethodPost, "/api/v1/batch", `{"plants":["Jade Plant"]}`).Code)

		batches.mu.Lock()
		batches.batch.PauseForCaptcha("CAPTCHA detected")
		batches.mu.Unlock()

		rec := do(t, r, http.MethodGet, "/api/v1/batch", "")
		var progress models.ProgressResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &progress))
		assert.Equal(t, models.BatchStatusPausedForCaptcha, progress.State)
		assert.True(t, progress.CanResume)

		assert.Equal(t, http.StatusAccepted, do(t, r, http.MethodPost, "/api/v1/batch/resume", "").Code)
	})

	t.Run("stop", func(t *testing.T) {
		t.Parallel()

		r := newRouter(&fakeBatches{}, nil)

		assert.Equal(t, http.StatusConflict, do(t, r, http.MethodPost, "/api/v1/batch/stop", "").Code)

		require.Equal(t, http.StatusAccepted, do(t, r, http.MethodPost, "/api/v1/batch", `{"plants":["Jade Plant"]}`).Code)
		rec := do(t, r, http.MethodPost, "/api/v1/batch/stop", "")
		require.Equal(t, http.StatusAccepted, rec.Code)

		var progress models.ProgressResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &progress))
		assert.Equal(t, models.BatchStatusStopped, progress.State)
	})
}

func TestGetEvents(t *testing.T) {
	t.Parallel()

	r := newRouter(&fakeBatches{}, nil)

	rec := do(t, r, http.MethodGet, "/api/v1/batch/events?after=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var events []models.BatchEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].Seq)

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/api/v1/batch/events?after=x", "").Code)
}

func TestExportResults(t *testing.T) {
	t.Parallel()

	batches := &fakeBatches{results: []models.PlantResult{{
		Position: 1,
		Plant:    "Jade Plant",
		Status:   models.PlantStatusFound,
		Results:  []models.SearchCandidate{{Price: "$12.98", Source: "Bunnings - https://www.bunnings.com.au/p/jade"}},
	}}}
	r := newRouter(batches, nil)

	t.Run("csv with a column subset", func(t *testing.T) {
		t.Parallel()

		rec := do(t, r, http.MethodGet, "/api/v1/batch/export?format=csv&columns=plant,price1", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="plant_prices.csv"`)
		assert.Equal(t, "plant,price1\nJade Plant,$12.98\n", rec.Body.String())
	})

	t.Run("docx", func(t *testing.T) {
		t.Parallel()

		rec := do(t, r, http.MethodGet, "/api/v1/batch/export?format=docx", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.HasPrefix(rec.Body.String(), "PK"))
	})

	t.Run("invalid parameters", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/api/v1/batch/export?format=pdf", "").Code)
		assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/api/v1/batch/export?columns=price9", "").Code)
	})
}

func TestHistory(t *testing.T) {
	t.Parallel()

	t.Run("disabled without persistence", func(t *testing.T) {
		t.Parallel()

		r := newRouter(&fakeBatches{}, nil)
		assert.Equal(t, http.StatusServiceUnavailable, do(t, r, http.MethodGet, "/api/v1/batches", "").Code)
		assert.Equal(t, http.StatusServiceUnavailable, do(t, r, http.MethodGet, "/api/v1/batches/abc/results", "").Code)
	})

	t.Run("reads persisted batches", func(t *testing.T) {
		t.Parallel()

		history := &fakeHistory{results: map[string][]models.PlantResult{
			"b1": {{Position: 1, Plant: "Jade Plant", Status: models.PlantStatusFound}},
		}}
		r := newRouter(&fakeBatches{}, history)

		rec := do(t, r, http.MethodGet, "/api/v1/batches", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var summaries []models.BatchSummary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
		require.Len(t, summaries, 1)
		assert.Equal(t, "b1", summaries[0].ID)

		rec = do(t, r, http.MethodGet, "/api/v1/batches/b1/results", "")
		require.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/api/v1/batches/missing/results", "").Code)
	})
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	rec := do(t, newRouter(&fakeBatches{}, nil), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "idle", body["batch_state"])
}
