package models

import (
	"fmt"
	"strings"
	"time"
)

// StartBatchRequest represents the request to start a batch
type StartBatchRequest struct {
	Plants          []string  `json:"plants" validate:"required"`
	ExcludedSources []string  `json:"excluded_sources"`
	PauseOnCaptcha  *bool     `json:"pause_on_captcha"`
	Method          Method    `json:"method"`
	Selection       Selection `json:"selection"`
}

// Validate checks the request and drops blank plant names
func (r *StartBatchRequest) Validate() error {
	plants := make([]string, 0, len(r.Plants))
	for _, p := range r.Plants {
		if p = strings.TrimSpace(p); p != "" {
			plants = append(plants, p)
		}
	}
	if len(plants) == 0 {
		return fmt.Errorf("at least one plant name is required")
	}
	r.Plants = plants

	if r.Method != "" && !r.Method.Valid() {
		return fmt.Errorf("unknown method %q (use %q or %q)", r.Method, MethodBrowser, MethodDirectHTTP)
	}
	if r.Selection != "" && !r.Selection.Valid() {
		return fmt.Errorf("unknown selection %q (use %q or %q)", r.Selection, SelectionDiverse, SelectionInOrder)
	}
	return nil
}

// BatchSummary represents a persisted batch in history listings
type BatchSummary struct {
	ID         string      `json:"id" db:"id"`
	Status     BatchStatus `json:"status" db:"status"`
	Method     Method      `json:"method" db:"method"`
	Total      int         `json:"total" db:"total"`
	Processed  int         `json:"processed" db:"processed"`
	Message    string      `json:"message" db:"message"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty" db:"finished_at"`
}

// ProgressResponse is the caller-visible progress of the current batch
type ProgressResponse struct {
	State            BatchStatus `json:"state"`
	BatchID          string      `json:"batch_id,omitempty"`
	Processed        int         `json:"processed"`
	Total            int         `json:"total"`
	Percent          int         `json:"percent"`
	Status           string      `json:"status"`
	RemainingQueries []string    `json:"remaining_queries"`
	CanResume        bool        `json:"can_resume"`
	Error            string      `json:"error,omitempty"`
}

// NewProgressResponse flattens a snapshot for the API
func NewProgressResponse(s BatchSnapshot) ProgressResponse {
	resp := ProgressResponse{
		State:            s.State,
		RemainingQueries: s.Session.RemainingQueries,
		CanResume:        s.CanResume,
		Status:           "Ready",
	}
	if resp.RemainingQueries == nil {
		resp.RemainingQueries = []string{}
	}
	if s.Batch != nil {
		resp.BatchID = s.Batch.ID
		resp.Processed = s.Batch.Processed
		resp.Total = s.Batch.Total
		resp.Percent = s.Batch.Percent()
		resp.Status = s.Batch.Message
		resp.Error = s.Batch.Error
	}
	return resp
}
