package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"plantprice/models"
	"plantprice/repository"
	"plantprice/scheduler"
	"plantprice/scraper"
	"plantprice/storage"
)

// BatchController is the orchestrator surface driven over HTTP
type BatchController interface {
	Start(opts scheduler.BatchOptions) (*models.Batch, error)
	Resume() (*models.Batch, error)
	Stop() error
	Snapshot() models.BatchSnapshot
}

// EventSource serves the batch event log
type EventSource interface {
	After(seq int) []models.BatchEvent
}

// HistoryStore reads persisted batches
type HistoryStore interface {
	ListBatches(ctx context.Context, limit int) ([]models.BatchSummary, error)
	GetBatchResults(ctx context.Context, batchID string) ([]models.PlantResult, error)
}

// Defaults fill fields a start request leaves out
type Defaults struct {
	Method          models.Method
	PauseOnCaptcha  bool
	ExcludedSources []string
	Selection       models.Selection
	ExportColumns   string
}

type Handlers struct {
	batches  BatchController
	events   EventSource
	history  HistoryStore
	defaults Defaults
}

// NewHandlers creates the handlers. history may be nil when persistence is disabled.
func NewHandlers(batches BatchController, events EventSource, history HistoryStore, defaults Defaults) *Handlers {
	if defaults.Method == "" {
		defaults.Method = models.MethodDirectHTTP
	}
	if defaults.Selection == "" {
		defaults.Selection = models.SelectionDiverse
	}
	return &Handlers{
		batches:  batches,
		events:   events,
		history:  history,
		defaults: defaults,
	}
}

// Register adds every route to r
func (h *Handlers) Register(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/sources", h.GetSources).Methods("GET")

	apiV1.HandleFunc("/batch", h.StartBatch).Methods("POST")
	apiV1.HandleFunc("/batch", h.GetProgress).Methods("GET")
	apiV1.HandleFunc("/batch/resume", h.ResumeBatch).Methods("POST")
	apiV1.HandleFunc("/batch/stop", h.StopBatch).Methods("POST")
	apiV1.HandleFunc("/batch/results", h.GetResults).Methods("GET")
	apiV1.HandleFunc("/batch/events", h.GetEvents).Methods("GET")
	apiV1.HandleFunc("/batch/export", h.ExportResults).Methods("GET")

	apiV1.HandleFunc("/batches", h.ListBatches).Methods("GET")
	apiV1.HandleFunc("/batches/{id}/results", h.GetBatchResults).Methods("GET")
}

// HealthCheck returns a simple health check response
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	snap := h.batches.Snapshot()
	response := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now(),
		"service":     "plantprice",
		"batch_state": snap.State,
		"persistence": h.history != nil,
	}
	writeJSON(w, http.StatusOK, response)
}

// GetSources returns the source descriptor table
func (h *Handlers) GetSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scraper.AllSources())
}

// StartBatch starts a batch run over the posted plant names
func (h *Handlers) StartBatch(w http.ResponseWriter, r *http.Request) {
	var req models.StartBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := scheduler.BatchOptions{
		Queries:         req.Plants,
		Method:          req.Method,
		ExcludedSources: req.ExcludedSources,
		PauseOnCaptcha:  h.defaults.PauseOnCaptcha,
		Selection:       req.Selection,
	}
	if opts.Method == "" {
		opts.Method = h.defaults.Method
	}
	if opts.Selection == "" {
		opts.Selection = h.defaults.Selection
	}
	if opts.ExcludedSources == nil {
		opts.ExcludedSources = h.defaults.ExcludedSources
	}
	if req.PauseOnCaptcha != nil {
		opts.PauseOnCaptcha = *req.PauseOnCaptcha
	}

	batch, err := h.batches.Start(opts)
	switch {
	case errors.Is(err, scheduler.ErrBatchRunning):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, scheduler.ErrNoQueries):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		log.Printf("❌ Failed to start batch: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to start batch")
		return
	}

	writeJSON(w, http.StatusAccepted, batch)
}

// ResumeBatch continues a batch paused for captcha
func (h *Handlers) ResumeBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := h.batches.Resume()
	switch {
	case errors.Is(err, scheduler.ErrNotPaused):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		log.Printf("❌ Failed to resume batch: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to resume batch")
		return
	}

	writeJSON(w, http.StatusAccepted, batch)
}

// StopBatch asks the current batch to stop
func (h *Handlers) StopBatch(w http.ResponseWriter, r *http.Request) {
	if err := h.batches.Stop(); err != nil {
		if errors.Is(err, scheduler.ErrNotRunning) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, models.NewProgressResponse(h.batches.Snapshot()))
}

// GetProgress returns state, progress and remaining queries
func (h *Handlers) GetProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.NewProgressResponse(h.batches.Snapshot()))
}

// GetResults returns the per-item results of the current batch so far
func (h *Handlers) GetResults(w http.ResponseWriter, r *http.Request) {
	results := h.batches.Snapshot().Results
	if results == nil {
		results = []models.PlantResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

// GetEvents returns log events newer than ?after=N
func (h *Handlers) GetEvents(w http.ResponseWriter, r *http.Request) {
	after := 0
	if v := r.URL.Query().Get("after"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid after parameter")
			return
		}
		after = n
	}

	writeJSON(w, http.StatusOK, h.events.After(after))
}

// ExportResults downloads the current results as CSV or DOCX
func (h *Handlers) ExportResults(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}

	spec := r.URL.Query().Get("columns")
	if spec == "" {
		spec = h.defaults.ExportColumns
	}
	columns, err := storage.ParseColumns(spec)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap := h.batches.Snapshot()
	name := "plant_prices"
	if snap.Batch != nil {
		id := snap.Batch.ID
		if len(id) > 8 {
			id = id[:8]
		}
		name = fmt.Sprintf("plant_prices_%s", id)
	}

	var buf bytes.Buffer
	var contentType string
	switch format {
	case "csv":
		contentType = "text/csv"
		err = storage.WriteCSV(&buf, snap.Results, columns)
	case "docx":
		contentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
		err = storage.WriteDOCX(&buf, "Plant Price Report", snap.Results, columns)
	default:
		writeError(w, http.StatusBadRequest, "format must be csv or docx")
		return
	}
	if err != nil {
		log.Printf("❌ Failed to export results: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to export results")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.%s"`, name, format))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// ListBatches returns persisted batch history
func (h *Handlers) ListBatches(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "Persistence is disabled")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	batches, err := h.history.ListBatches(r.Context(), limit)
	if err != nil {
		log.Printf("Failed to list batches: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to list batches")
		return
	}

	writeJSON(w, http.StatusOK, batches)
}

// GetBatchResults returns the persisted results of one batch
func (h *Handlers) GetBatchResults(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "Persistence is disabled")
		return
	}

	id := mux.Vars(r)["id"]
	results, err := h.history.GetBatchResults(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrBatchNotFound) {
			writeError(w, http.StatusNotFound, "Batch not found")
			return
		}
		log.Printf("Failed to get results for batch %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to get batch results")
		return
	}

	writeJSON(w, http.StatusOK, results)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
