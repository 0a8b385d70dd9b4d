package scraper

import (
	"context"
	"log"
	"math/rand/v2"
	"time"
)

// DelayWindow is a uniform random delay range
type DelayWindow struct {
	Min time.Duration
	Max time.Duration
}

// Pacer inserts delays between network calls
type Pacer interface {
	Wait(ctx context.Context, w DelayWindow) error
}

// RandomPacer sleeps for a uniform random duration within the window
type RandomPacer struct{}

// Wait sleeps or returns early with ctx.Err()
func (RandomPacer) Wait(ctx context.Context, w DelayWindow) error {
	d := w.Min
	if w.Max > w.Min {
		d += rand.N(w.Max - w.Min)
	}
	if d <= 0 {
		return ctx.Err()
	}

	log.Printf("⏳ Waiting %.1f seconds...", d.Seconds())
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NoPacer never waits
type NoPacer struct{}

// Wait returns immediately
func (NoPacer) Wait(ctx context.Context, _ DelayWindow) error {
	return ctx.Err()
}

// Pacing holds the delay windows of each fetch kind
type Pacing struct {
	Search  DelayWindow
	Browser DelayWindow
	Source  DelayWindow
}

// DefaultPacing returns the default delay windows
func DefaultPacing() Pacing {
	return Pacing{
		Search:  DelayWindow{Min: 1 * time.Second, Max: 3 * time.Second},
		Browser: DelayWindow{Min: 2 * time.Second, Max: 5 * time.Second},
		Source:  DelayWindow{Min: 1 * time.Second, Max: 2 * time.Second},
	}
}
