package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Epistemic-Technology/vetrecords/internal/logger"
)

const (
	// Shared budget across providers, kept under the lowest tier we run against.
	tokensPerSecond = 30000
	burstTokens     = 60000

	defaultMaxWorkers = 4

	// Rough cost of one PDF page attached as a file, input plus output.
	estimatedTokensPerPage = 2000
	// Prompt, schema and response overhead for a single call.
	baseCallTokens = 3000

	maxRetries     = 5
	baseRetryDelay = 1 * time.Second
	maxRetryDelay  = 32 * time.Second
)

// tokenLimiter is shared by every concurrent extraction in the process.
var tokenLimiter = rate.NewLimiter(rate.Limit(tokensPerSecond), burstTokens)

// EstimateTokens guesses the token cost of req for the rate limiter.
func EstimateTokens(req Request) int {
	n := baseCallTokens
	if req.InputMode == InputFile {
		n += max(req.Pages, 1) * estimatedTokensPerPage
	} else {
		n += len(req.Text) / 4
	}
	return min(n, burstTokens)
}

// RateLimitedCall waits for limiter approval, then calls fn, retrying with exponential
// backoff while the provider answers 429. Other errors are returned immediately.
func RateLimitedCall[T any](ctx context.Context, estimatedTokens int, log logger.Logger, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if err := tokenLimiter.WaitN(ctx, min(estimatedTokens, burstTokens)); err != nil {
		return zero, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := min(baseRetryDelay<<(attempt-1), maxRetryDelay)
			log.Info("Retry attempt %d/%d after %v delay", attempt, maxRetries, delay)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				log.Info("Retry succeeded on attempt %d", attempt)
			}
			return result, nil
		}

		lastErr = err
		if !isRateLimitError(err) {
			return zero, err
		}

		log.Warn("Rate limit error (429) on attempt %d/%d: %v", attempt+1, maxRetries+1, err)
	}

	return zero, fmt.Errorf("max retries (%d) exceeded, last error: %w", maxRetries, lastErr)
}

var rateLimitMarkers = []string{"429", "rate limit", "rate_limit_exceeded", "Too Many Requests", "RESOURCE_EXHAUSTED"}

// isRateLimitError checks if an error is a 429 from either provider
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, m := range rateLimitMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// WorkerPool bounds the number of concurrent model calls.
type WorkerPool struct {
	maxWorkers int
	semaphore  chan struct{}
}

// NewWorkerPool creates a new worker pool with the specified maximum workers
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}
	return &WorkerPool{
		maxWorkers: maxWorkers,
		semaphore:  make(chan struct{}, maxWorkers),
	}
}

// Acquire acquires a worker slot, blocking if all workers are busy
func (wp *WorkerPool) Acquire(ctx context.Context) error {
	select {
	case wp.semaphore <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release releases a worker slot, allowing another worker to proceed
func (wp *WorkerPool) Release() {
	<-wp.semaphore
}

// ParallelProcess runs processFn over items with at most maxWorkers in flight.
// Results keep the order of items. The first error wins.
func ParallelProcess[T any, R any](
	ctx context.Context,
	items []T,
	maxWorkers int,
	log logger.Logger,
	processFn func(context.Context, int, T) (R, error),
) ([]R, error) {
	if len(items) == 0 {
		return []R{}, nil
	}

	wp := NewWorkerPool(maxWorkers)
	results := make([]R, len(items))

	type result struct {
		index int
		value R
		err   error
	}
	resultChan := make(chan result, len(items))

	spawned := 0
	var acquireErr error
	for i, item := range items {
		if err := wp.Acquire(ctx); err != nil {
			acquireErr = err
			break
		}
		spawned++

		go func(idx int, itm T) {
			defer wp.Release()

			select {
			case <-ctx.Done():
				var zero R
				resultChan <- result{index: idx, value: zero, err: ctx.Err()}
				return
			default:
			}

			val, err := processFn(ctx, idx, itm)
			resultChan <- result{index: idx, value: val, err: err}
		}(i, item)
	}

	var firstError error
	for range spawned {
		res := <-resultChan
		if res.err != nil && firstError == nil {
			firstError = res.err
		}
		results[res.index] = res.value
	}

	if firstError == nil && acquireErr != nil {
		firstError = acquireErr
	}
	if firstError != nil {
		log.Debug("Parallel processing stopped after %d of %d items: %v", spawned, len(items), firstError)
		return nil, firstError
	}

	return results, nil
}
