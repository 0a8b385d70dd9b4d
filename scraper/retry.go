package scraper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// RetryOptions configures retry behavior
type RetryOptions struct {
	MaxRetries  int           // Maximum number of retries after the first attempt
	RetryDelay  time.Duration // Delay between attempts, doubled each retry
	ShouldRetry func(error) bool
}

// DefaultRetryOptions returns default retry options
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxRetries:  1,
		RetryDelay:  2 * time.Second,
		ShouldRetry: IsTransient,
	}
}

// transientError marks a failure worth another attempt
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err so IsTransient reports true
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked with Transient
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// Retry runs fn until it succeeds, returns a non-retryable error, the
// retries are used up, or ctx is done.
func Retry(ctx context.Context, label string, opts RetryOptions, fn func(attempt int) error) error {
	shouldRetry := opts.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	delay := opts.RetryDelay
	var err error
	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("🔄 Retrying %s (attempt %d/%d) in %v: %v", label, attempt, opts.MaxRetries, delay, err)
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("%s: %w", label, ctx.Err())
			case <-timer.C:
			}
			delay *= 2
		}

		err = fn(attempt)
		if err == nil {
			return nil
		}
		if !shouldRetry(err) {
			return err
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", label, opts.MaxRetries+1, err)
}
