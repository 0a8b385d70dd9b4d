package models

import "time"

// ScrapeSession is the mutable state of one batch run
type ScrapeSession struct {
	Running          bool     `json:"running"`
	PausedForCaptcha bool     `json:"paused_for_captcha"`
	RemainingQueries []string `json:"remaining_queries"`
	ExcludedSources  []string `json:"excluded_sources"`
}

// EventType classifies orchestrator notifications
type EventType string

const (
	EventProgress  EventType = "progress"
	EventLog       EventType = "log"
	EventResult    EventType = "result"
	EventCaptcha   EventType = "captcha"
	EventError     EventType = "error"
	EventStopped   EventType = "stopped"
	EventCompleted EventType = "completed"
)

// BatchEvent is sent from the batch worker to the control surface
type BatchEvent struct {
	Seq       int          `json:"seq"`
	Type      EventType    `json:"type"`
	BatchID   string       `json:"batch_id"`
	Query     string       `json:"query,omitempty"`
	Processed int          `json:"processed"`
	Total     int          `json:"total"`
	Message   string       `json:"message"`
	Result    *PlantResult `json:"result,omitempty"`
	Time      time.Time    `json:"time"`
}

// BatchSnapshot is a copy of the orchestrator state for the caller
type BatchSnapshot struct {
	State     BatchStatus   `json:"state"`
	Batch     *Batch        `json:"batch,omitempty"`
	Session   ScrapeSession `json:"session"`
	Results   []PlantResult `json:"results"`
	CanResume bool          `json:"can_resume"`
}
