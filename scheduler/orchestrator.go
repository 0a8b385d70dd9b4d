package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"plantprice/models"
	"plantprice/scraper"
)

var (
	ErrBatchRunning = errors.New("a batch is already running")
	ErrNotPaused    = errors.New("batch is not paused for captcha")
	ErrNotRunning   = errors.New("no batch is running")
	ErrNoQueries    = errors.New("no plant names to process")
)

// Finder collects price candidates for one item
type Finder interface {
	FindPrices(ctx context.Context, sess *scraper.Session, query string, opts scraper.QueryOptions) (*models.QueryResultSet, error)
}

// SessionOpener opens the transport session of a batch
type SessionOpener interface {
	Open(method models.Method) (*scraper.Session, error)
}

// ResultStore persists batches and per-item results
type ResultStore interface {
	SaveBatch(ctx context.Context, batch *models.Batch) error
	SaveResult(ctx context.Context, batchID string, result models.PlantResult) error
}

// BatchOptions describes a batch to start
type BatchOptions struct {
	Queries         []string
	Method          models.Method
	ExcludedSources []string
	PauseOnCaptcha  bool
	Selection       models.Selection
}

// Orchestrator runs one batch at a time on its own goroutine. Callers read
// state through Snapshot and Events; only the batch goroutine mutates results.
type Orchestrator struct {
	ctx         context.Context
	finder      Finder
	opener      SessionOpener
	store       ResultStore
	resultCount int

	mu      sync.Mutex
	batch   *models.Batch
	session models.ScrapeSession
	results []models.PlantResult
	held    *scraper.Session // kept open while paused for captcha
	seq     int

	events chan models.BatchEvent
	loops  sync.WaitGroup
}

type panicError struct {
	value interface{}
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// NewOrchestrator creates an orchestrator. store may be nil.
func NewOrchestrator(ctx context.Context, finder Finder, opener SessionOpener, store ResultStore, resultCount int) *Orchestrator {
	if resultCount <= 0 {
		resultCount = models.DefaultResultCount
	}
	return &Orchestrator{
		ctx:         ctx,
		finder:      finder,
		opener:      opener,
		store:       store,
		resultCount: resultCount,
		events:      make(chan models.BatchEvent, 256),
	}
}

// Events delivers batch notifications to the control surface
func (o *Orchestrator) Events() <-chan models.BatchEvent {
	return o.events
}

// Start begins a new batch. A batch parked on a captcha is discarded.
func (o *Orchestrator) Start(opts BatchOptions) (*models.Batch, error) {
	if len(opts.Queries) == 0 {
		return nil, ErrNoQueries
	}

	o.mu.Lock()
	if o.batch != nil && o.batch.Status == models.BatchStatusRunning {
		o.mu.Unlock()
		return nil, ErrBatchRunning
	}

	sess, err := o.opener.Open(opts.Method)
	if err != nil {
		o.mu.Unlock()
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	if o.held != nil {
		log.Println("🛑 Discarding batch paused for CAPTCHA")
		o.release(o.held)
		o.held = nil
	}

	batch := models.NewBatch(opts.Queries, opts.Method, opts.ExcludedSources, opts.PauseOnCaptcha)
	if opts.Selection.Valid() {
		batch.Selection = opts.Selection
	}
	batch.Start()
	o.batch = batch
	o.results = nil
	o.session = models.ScrapeSession{
		Running:          true,
		RemainingQueries: append([]string(nil), batch.Queries...),
		ExcludedSources:  append([]string(nil), batch.ExcludedSources...),
	}
	snapshot := batch.Clone()
	o.emitLocked(models.EventProgress, "", fmt.Sprintf("Starting batch of %d plants", batch.Total), nil)
	o.loops.Add(1)
	o.mu.Unlock()

	log.Printf("🚀 Batch %s started with %d plants (%s)", batch.ID, batch.Total, batch.Method)
	o.saveBatch(snapshot)

	go o.run(sess, snapshot.Queries)
	return snapshot, nil
}

// Resume continues a batch paused for captcha from the first unprocessed item
func (o *Orchestrator) Resume() (*models.Batch, error) {
	o.mu.Lock()
	if o.batch == nil || o.batch.Status != models.BatchStatusPausedForCaptcha {
		o.mu.Unlock()
		return nil, ErrNotPaused
	}

	sess := o.held
	o.held = nil
	if sess == nil {
		var err error
		if sess, err = o.opener.Open(o.batch.Method); err != nil {
			o.mu.Unlock()
			return nil, fmt.Errorf("failed to open session: %w", err)
		}
	}

	o.batch.Resume()
	o.session.PausedForCaptcha = false
	o.session.Running = true
	remaining := append([]string(nil), o.session.RemainingQueries...)
	snapshot := o.batch.Clone()
	o.emitLocked(models.EventProgress, "", o.batch.Message, nil)
	o.loops.Add(1)
	o.mu.Unlock()

	log.Printf("🔄 Batch %s resumed with %d plants left", snapshot.ID, len(remaining))
	o.saveBatch(snapshot)

	go o.run(sess, remaining)
	return snapshot, nil
}

// Stop asks the running batch to halt after the item in flight. A paused
// batch stops immediately.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	if o.batch == nil {
		o.mu.Unlock()
		return ErrNotRunning
	}

	switch o.batch.Status {
	case models.BatchStatusRunning:
		o.session.Running = false
		o.batch.Message = "Stopping after current plant..."
		o.mu.Unlock()
		log.Println("🛑 Stop requested")
		return nil

	case models.BatchStatusPausedForCaptcha:
		held := o.held
		o.held = nil
		o.batch.Stop()
		o.session.Running = false
		o.session.PausedForCaptcha = false
		snapshot := o.batch.Clone()
		o.emitLocked(models.EventStopped, "", snapshot.Message, nil)
		o.mu.Unlock()

		o.release(held)
		o.saveBatch(snapshot)
		return nil
	}

	o.mu.Unlock()
	return ErrNotRunning
}

// Busy reports whether a batch is running or parked on a captcha
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.batch != nil && o.batch.IsActive()
}

// Snapshot copies the current state for the caller
func (o *Orchestrator) Snapshot() models.BatchSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := models.BatchSnapshot{
		State: models.BatchStatusIdle,
		Session: models.ScrapeSession{
			Running:          o.session.Running,
			PausedForCaptcha: o.session.PausedForCaptcha,
			RemainingQueries: append([]string(nil), o.session.RemainingQueries...),
			ExcludedSources:  append([]string(nil), o.session.ExcludedSources...),
		},
		Results: append([]models.PlantResult(nil), o.results...),
	}
	if o.batch != nil {
		snap.State = o.batch.Status
		snap.Batch = o.batch.Clone()
		snap.CanResume = o.batch.Status == models.BatchStatusPausedForCaptcha
	}
	return snap
}

// Wait blocks until no batch goroutine is running
func (o *Orchestrator) Wait() {
	o.loops.Wait()
}

// run processes queries in order. It owns sess and releases it on every
// exit except a captcha pause.
func (o *Orchestrator) run(sess *scraper.Session, queries []string) {
	defer o.loops.Done()

	o.mu.Lock()
	base := o.batch.Processed
	total := o.batch.Total
	selection := o.batch.Selection
	opts := scraper.QueryOptions{
		ExcludedSources: o.batch.ExcludedSources,
		PauseOnCaptcha:  o.batch.PauseOnCaptcha,
		ResultCount:     o.resultCount,
	}
	o.mu.Unlock()

	for i, query := range queries {
		position := base + i + 1

		if !o.running() || o.ctx.Err() != nil {
			o.finishStopped(sess, queries[i:])
			return
		}

		o.progress(position-1, total, query, fmt.Sprintf("Processing %s (%d/%d)", query, position, total))

		set, err := o.find(sess, query, opts)

		var pe *panicError
		switch {
		case errors.As(err, &pe):
			o.fail(sess, query, err)
			return

		case errors.Is(err, scraper.ErrCaptcha):
			o.pause(sess, query, queries[i:], err)
			return

		case err != nil && o.ctx.Err() != nil:
			o.finishStopped(sess, queries[i:])
			return

		case err != nil:
			log.Printf("❌ Error processing %s: %v", query, err)
			o.record(models.NewErrorPlantResult(position, query, err), queries[i+1:])

		default:
			o.record(models.NewPlantResultBy(position, set, o.resultCount, selection), queries[i+1:])
		}
	}

	o.complete(sess)
}

// find calls the finder and converts a panic into a *panicError
func (o *Orchestrator) find(sess *scraper.Session, query string, opts scraper.QueryOptions) (set *models.QueryResultSet, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r}
		}
	}()
	return o.finder.FindPrices(o.ctx, sess, query, opts)
}

func (o *Orchestrator) running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.session.Running
}

func (o *Orchestrator) progress(processed, total int, query, message string) {
	o.mu.Lock()
	o.batch.UpdateProgress(processed, message)
	o.emitLocked(models.EventProgress, query, message, nil)
	o.mu.Unlock()
	log.Printf("📝 %s", message)
}

func (o *Orchestrator) record(result models.PlantResult, remaining []string) {
	o.mu.Lock()
	o.results = append(o.results, result)
	o.session.RemainingQueries = append([]string(nil), remaining...)
	o.batch.UpdateProgress(o.batch.Processed+1, fmt.Sprintf("Processed %s", result.Plant))
	batchID := o.batch.ID
	snapshot := o.batch.Clone()
	r := result
	o.emitLocked(models.EventResult, result.Plant, fmt.Sprintf("%s: %s", result.Plant, result.Status), &r)
	o.mu.Unlock()

	if o.store != nil {
		if err := o.store.SaveResult(o.ctx, batchID, result); err != nil {
			log.Printf("⚠️ Failed to save result for %s: %v", result.Plant, err)
		}
	}
	o.saveBatch(snapshot)
}

func (o *Orchestrator) pause(sess *scraper.Session, query string, remaining []string, err error) {
	o.mu.Lock()
	o.held = sess
	o.session.Running = false
	o.session.PausedForCaptcha = true
	o.session.RemainingQueries = append([]string(nil), remaining...)
	o.batch.PauseForCaptcha("CAPTCHA detected! Please solve it manually, then resume.")
	snapshot := o.batch.Clone()
	o.emitLocked(models.EventCaptcha, query, err.Error(), nil)
	o.mu.Unlock()

	log.Printf("🧩 Batch %s paused for CAPTCHA at %s, %d plants remaining", snapshot.ID, query, len(remaining))
	o.saveBatch(snapshot)
}

func (o *Orchestrator) finishStopped(sess *scraper.Session, remaining []string) {
	o.release(sess)

	o.mu.Lock()
	o.session.Running = false
	o.session.RemainingQueries = append([]string(nil), remaining...)
	o.batch.Stop()
	snapshot := o.batch.Clone()
	o.emitLocked(models.EventStopped, "", snapshot.Message, nil)
	o.mu.Unlock()

	log.Printf("🛑 Batch %s stopped after %d/%d plants", snapshot.ID, snapshot.Processed, snapshot.Total)
	o.saveBatch(snapshot)
}

func (o *Orchestrator) complete(sess *scraper.Session) {
	o.release(sess)

	o.mu.Lock()
	o.session.Running = false
	o.session.RemainingQueries = nil
	o.batch.Complete()
	snapshot := o.batch.Clone()
	o.emitLocked(models.EventCompleted, "", snapshot.Message, nil)
	o.mu.Unlock()

	log.Printf("✅ Batch %s completed in %v", snapshot.ID, snapshot.Duration())
	o.saveBatch(snapshot)
}

// fail handles an unexpected error: surface it, release the session and go idle
func (o *Orchestrator) fail(sess *scraper.Session, query string, err error) {
	log.Printf("❌ Unhandled error while processing %s: %v", query, err)
	o.release(sess)

	o.mu.Lock()
	o.session.Running = false
	o.batch.Fail(err.Error())
	snapshot := o.batch.Clone()
	o.emitLocked(models.EventError, query, fmt.Sprintf("Error processing %s: %v", query, err), nil)
	o.mu.Unlock()

	o.saveBatch(snapshot)
}

func (o *Orchestrator) release(sess *scraper.Session) {
	if sess == nil {
		return
	}
	if err := sess.Close(); err != nil {
		log.Printf("⚠️ Failed to close session: %v", err)
	}
}

func (o *Orchestrator) saveBatch(batch *models.Batch) {
	if o.store == nil {
		return
	}
	if err := o.store.SaveBatch(o.ctx, batch); err != nil {
		log.Printf("⚠️ Failed to save batch %s: %v", batch.ID, err)
	}
}

// emitLocked queues an event; o.mu must be held. Events are dropped when nobody drains the channel.
func (o *Orchestrator) emitLocked(t models.EventType, query, message string, result *models.PlantResult) {
	o.seq++
	ev := models.BatchEvent{
		Seq:     o.seq,
		Type:    t,
		Query:   query,
		Message: message,
		Result:  result,
		Time:    time.Now(),
	}
	if o.batch != nil {
		ev.BatchID = o.batch.ID
		ev.Processed = o.batch.Processed
		ev.Total = o.batch.Total
	}

	select {
	case o.events <- ev:
	default:
		log.Printf("⚠️ Event buffer full, dropping %s event", t)
	}
}
