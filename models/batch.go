package models

import (
	"time"

	"github.com/google/uuid"
)

// BatchStatus is the orchestrator state for a batch run
type BatchStatus string

const (
	BatchStatusIdle             BatchStatus = "idle"
	BatchStatusRunning          BatchStatus = "running"
	BatchStatusPausedForCaptcha BatchStatus = "paused_for_captcha"
	BatchStatusStopped          BatchStatus = "stopped"
	BatchStatusCompleted        BatchStatus = "completed"
)

// Method selects the fetch transport for the search engine page
type Method string

const (
	MethodBrowser    Method = "browser"
	MethodDirectHTTP Method = "direct-http"
)

// Valid reports whether m is a known method
func (m Method) Valid() bool {
	return m == MethodBrowser || m == MethodDirectHTTP
}

// Batch represents one run over an ordered list of plant names
type Batch struct {
	ID              string      `json:"id" db:"id"`
	Queries         []string    `json:"queries"`
	Method          Method      `json:"method" db:"method"`
	ExcludedSources []string    `json:"excluded_sources"`
	PauseOnCaptcha  bool        `json:"pause_on_captcha" db:"pause_on_captcha"`
	Selection       Selection   `json:"selection" db:"selection"`
	Status          BatchStatus `json:"status" db:"status"`
	Processed       int         `json:"processed" db:"processed"`
	Total           int         `json:"total" db:"total"`
	Message         string      `json:"message" db:"message"`
	Error           string      `json:"error,omitempty" db:"error"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	StartedAt       *time.Time  `json:"started_at,omitempty" db:"started_at"`
	FinishedAt      *time.Time  `json:"finished_at,omitempty" db:"finished_at"`
}

// NewBatch creates a batch in the idle state
func NewBatch(queries []string, method Method, excluded []string, pauseOnCaptcha bool) *Batch {
	q := make([]string, len(queries))
	copy(q, queries)
	ex := make([]string, len(excluded))
	copy(ex, excluded)

	return &Batch{
		ID:              uuid.NewString(),
		Queries:         q,
		Method:          method,
		ExcludedSources: ex,
		PauseOnCaptcha:  pauseOnCaptcha,
		Selection:       SelectionDiverse,
		Status:          BatchStatusIdle,
		Total:           len(q),
		Message:         "Batch created",
		CreatedAt:       time.Now(),
	}
}

// Start marks the batch as running
func (b *Batch) Start() {
	b.Status = BatchStatusRunning
	b.Message = "Initializing..."
	if b.StartedAt == nil {
		now := time.Now()
		b.StartedAt = &now
	}
}

// UpdateProgress records processed items and the status line
func (b *Batch) UpdateProgress(processed int, message string) {
	b.Processed = processed
	b.Message = message
}

// PauseForCaptcha parks the batch until an explicit resume
func (b *Batch) PauseForCaptcha(message string) {
	b.Status = BatchStatusPausedForCaptcha
	b.Message = message
}

// Resume moves a paused batch back to running
func (b *Batch) Resume() {
	b.Status = BatchStatusRunning
	b.Message = "Continuing after CAPTCHA..."
}

// Stop marks the batch as stopped by the caller
func (b *Batch) Stop() {
	b.Status = BatchStatusStopped
	b.Message = "Scraping stopped by user."
	b.finish()
}

// Complete marks every query as processed
func (b *Batch) Complete() {
	b.Status = BatchStatusCompleted
	b.Processed = b.Total
	b.Message = "Scraping completed!"
	b.finish()
}

// Fail records an unhandled error and returns the batch to idle
func (b *Batch) Fail(err string) {
	b.Status = BatchStatusIdle
	b.Message = "Error occurred!"
	b.Error = err
	b.finish()
}

// IsActive returns true while the batch holds the worker
func (b *Batch) IsActive() bool {
	return b.Status == BatchStatusRunning || b.Status == BatchStatusPausedForCaptcha
}

// Percent returns progress in the 0-100 range
func (b *Batch) Percent() int {
	if b.Total == 0 {
		return 0
	}
	return b.Processed * 100 / b.Total
}

// Duration returns how long the batch has been running
func (b *Batch) Duration() time.Duration {
	if b.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if b.FinishedAt != nil {
		end = *b.FinishedAt
	}
	return end.Sub(*b.StartedAt)
}

func (b *Batch) finish() {
	now := time.Now()
	b.FinishedAt = &now
}

// Clone returns a deep copy safe to hand to another goroutine
func (b *Batch) Clone() *Batch {
	if b == nil {
		return nil
	}
	c := *b
	c.Queries = append([]string(nil), b.Queries...)
	c.ExcludedSources = append([]string(nil), b.ExcludedSources...)
	if b.StartedAt != nil {
		t := *b.StartedAt
		c.StartedAt = &t
	}
	if b.FinishedAt != nil {
		t := *b.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}
