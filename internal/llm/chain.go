package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Epistemic-Technology/vetrecords/internal/logger"
	"github.com/Epistemic-Technology/vetrecords/internal/metrics"
	"github.com/Epistemic-Technology/vetrecords/models"
)

// ErrAllModelsFailed is returned when no attempt in the chain produced a valid extraction.
var ErrAllModelsFailed = errors.New("all models failed")

// Attempt is one provider/model pair in the fallback order.
type Attempt struct {
	Provider Provider
	Model    string
}

func (a Attempt) String() string {
	return a.Provider.Name() + ":" + a.Model
}

// Result is the accepted output of one chain run.
type Result struct {
	Extraction models.RecordExtraction
	Model      string
	Repairs    []string
	Raw        []byte
}

// Chain tries each attempt in order and returns the first output that validates.
// There is no backoff between attempts; 429s are retried inside an attempt by RateLimitedCall.
type Chain struct {
	attempts []Attempt
	timeout  time.Duration
	log      logger.Logger
}

// NewChain builds a chain. timeout bounds each attempt; zero means no per-attempt limit.
func NewChain(log logger.Logger, timeout time.Duration, attempts ...Attempt) *Chain {
	return &Chain{attempts: attempts, timeout: timeout, log: log}
}

// Attempts returns the configured fallback order.
func (c *Chain) Attempts() []Attempt {
	return append([]Attempt(nil), c.attempts...)
}

// Run extracts req with the first model that succeeds.
func (c *Chain) Run(ctx context.Context, req Request) (*Result, error) {
	if len(c.attempts) == 0 {
		return nil, fmt.Errorf("%w: no models configured", ErrAllModelsFailed)
	}
	schema := BuildRecordSchema(req.SchemaMode)

	var errs []error
	for i, attempt := range c.attempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		req.Model = attempt.Model
		log := c.log.With("label", req.Label, "model", attempt.String())
		log.Info("Extraction attempt %d/%d", i+1, len(c.attempts))

		res, outcome, err := c.try(ctx, attempt, req, schema, log)
		metrics.ModelAttempts.WithLabelValues(attempt.Provider.Name(), attempt.Model, outcome).Inc()
		if err == nil {
			if len(res.Repairs) > 0 {
				metrics.SanitizeRepairs.Add(float64(len(res.Repairs)))
				log.Warn("Applied %d repairs to model output", len(res.Repairs))
			}
			log.Info("Extracted %d categorized dates", len(res.Extraction.CategorizedDates))
			return res, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("Attempt failed: %v", err)
		errs = append(errs, fmt.Errorf("%s: %w", attempt, err))
	}

	return nil, fmt.Errorf("%w: %w", ErrAllModelsFailed, errors.Join(errs...))
}

func (c *Chain) try(ctx context.Context, attempt Attempt, req Request, schema map[string]any, log logger.Logger) (*Result, string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := RateLimitedCall(ctx, EstimateTokens(req), log, func(ctx context.Context) ([]byte, error) {
		return attempt.Provider.Extract(ctx, req)
	})
	metrics.ModelLatency.WithLabelValues(attempt.Provider.Name(), attempt.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			return nil, metrics.OutcomeCanceled, err
		case isRateLimitError(err):
			return nil, metrics.OutcomeRateLimited, err
		}
		return nil, metrics.OutcomeCallError, err
	}

	res, err := accept(raw, req.SchemaMode, schema)
	if err != nil {
		log.Debug("Rejected output: %s", truncate(string(raw), 500))
		return nil, metrics.OutcomeInvalidJSON, err
	}
	res.Model = attempt.String()
	return res, metrics.OutcomeSuccess, nil
}

// accept validates model output against schema. Lenient output is sanitized first.
func accept(raw []byte, mode SchemaMode, schema map[string]any) (*Result, error) {
	doc := StripCodeFences(raw)
	var repairs []string
	if mode == SchemaLenient {
		cleaned, r, err := SanitizeExtraction(doc)
		if err != nil {
			return nil, fmt.Errorf("sanitize failed: %w", err)
		}
		doc, repairs = cleaned, r
	}
	if err := ValidateJSONAgainstSchema(schema, doc); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	ext, err := DecodeExtraction(doc)
	if err != nil {
		return nil, err
	}
	return &Result{Extraction: ext, Repairs: repairs, Raw: doc}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
