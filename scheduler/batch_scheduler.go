package scheduler

import (
	"errors"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"plantprice/models"
	"plantprice/storage"
)

// BatchStarter is the part of the orchestrator the scheduler drives
type BatchStarter interface {
	Busy() bool
	Start(opts BatchOptions) (*models.Batch, error)
}

// BatchScheduler re-runs a plant list on a cron schedule
type BatchScheduler struct {
	cron      *cron.Cron
	spec      string
	plantFile string
	starter   BatchStarter
	defaults  BatchOptions
}

// NewBatchScheduler creates a scheduler. spec uses the six-field form with seconds.
func NewBatchScheduler(spec, plantFile string, starter BatchStarter, defaults BatchOptions) *BatchScheduler {
	return &BatchScheduler{
		cron:      cron.New(cron.WithSeconds()),
		spec:      spec,
		plantFile: plantFile,
		starter:   starter,
		defaults:  defaults,
	}
}

// Start registers the job and starts the cron runner
func (bs *BatchScheduler) Start() error {
	if _, err := bs.cron.AddFunc(bs.spec, bs.runScheduled); err != nil {
		return fmt.Errorf("failed to schedule batch %q: %w", bs.spec, err)
	}
	bs.cron.Start()
	log.Printf("⏰ Plant list %s scheduled (%s)", bs.plantFile, bs.spec)
	return nil
}

// Stop stops the cron runner; a running batch is not interrupted
func (bs *BatchScheduler) Stop() {
	if bs.cron != nil {
		<-bs.cron.Stop().Done()
		log.Println("🛑 Batch scheduler stopped")
	}
}

func (bs *BatchScheduler) runScheduled() {
	if _, err := bs.RunNow(); err != nil {
		log.Printf("⚠️ Scheduled batch skipped: %v", err)
	}
}

// RunNow reads the plant list and starts a batch unless one is in progress
func (bs *BatchScheduler) RunNow() (*models.Batch, error) {
	if bs.starter.Busy() {
		return nil, ErrBatchRunning
	}

	plants, err := storage.ReadPlantList(bs.plantFile)
	if err != nil {
		return nil, err
	}
	if len(plants) == 0 {
		return nil, ErrNoQueries
	}

	opts := bs.defaults
	opts.Queries = plants
	batch, err := bs.starter.Start(opts)
	if err != nil {
		if errors.Is(err, ErrBatchRunning) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to start scheduled batch: %w", err)
	}

	log.Printf("⏰ Scheduled batch %s started with %d plants", batch.ID, len(plants))
	return batch, nil
}
