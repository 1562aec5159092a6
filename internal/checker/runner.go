package checker

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Completion is a finished check together with the position of its URL in
// the Request.
type Completion struct {
	Index  int
	Result Result
}

// Runner checks batches of URLs concurrently. All batches run by the same
// Runner share one limit on requests in flight.
type Runner struct {
	fetcher *Fetcher
	sem     *semaphore.Weighted
	logger  *slog.Logger
}

// NewRunner creates a Runner with its own connection pool. Pass nil logger to
// use the default logger.
func NewRunner(cfg Config, logger *slog.Logger) *Runner {
	cfg = cfg.withDefaults()
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = cfg.Concurrency
	return NewRunnerWithTransport(cfg, transport, logger)
}

// NewRunnerWithTransport creates a Runner sending requests through transport.
func NewRunnerWithTransport(cfg Config, transport http.RoundTripper, logger *slog.Logger) *Runner {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		fetcher: NewFetcher(cfg, transport),
		sem:     semaphore.NewWeighted(int64(cfg.Concurrency)),
		logger:  logger,
	}
}

// Stream starts checking every URL in req and returns a channel that receives
// one Completion per URL in completion order. The channel is closed after the
// last one. Only an invalid request returns an error, in which case nothing
// is dispatched.
//
// Cancelling ctx does not abort the batch: checks still waiting for a slot or
// cut short by the cancellation complete with an error result.
func (r *Runner) Stream(ctx context.Context, req Request) (<-chan Completion, error) {
	cookies, err := req.validate()
	if err != nil {
		return nil, err
	}

	done := make(chan Completion)
	// Buffered so a consumer that stops reading never strands the workers.
	out := make(chan Completion, len(req.URLs))

	var wg sync.WaitGroup
	for i, u := range req.URLs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			done <- Completion{Index: i, Result: r.check(ctx, u, cookies)}
		}()
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	go func() {
		defer close(out)
		for c := range done {
			if req.OnProgress != nil {
				req.OnProgress(c.Result)
			}
			out <- c
		}
	}()

	return out, nil
}

// Run checks every URL in req and returns the results in request order.
func (r *Runner) Run(ctx context.Context, req Request) (Set, error) {
	start := time.Now()
	completions, err := r.Stream(ctx, req)
	if err != nil {
		return nil, err
	}

	results := make(Set, len(req.URLs))
	for c := range completions {
		results[c.Index] = c.Result
	}

	r.logger.Info("batch complete",
		"urls", len(results),
		"failed", results.Failed(),
		"duration", time.Since(start),
	)
	return results, nil
}

// Go runs req in the background and calls done with the same values Run
// would return.
func (r *Runner) Go(ctx context.Context, req Request, done func(Set, error)) {
	go func() {
		done(r.Run(ctx, req))
	}()
}

func (r *Runner) check(ctx context.Context, rawURL string, cookies []*http.Cookie) Result {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return Result{URL: rawURL, Error: errorMessage(err)}
	}
	defer r.sem.Release(1)

	res := r.fetcher.Fetch(ctx, rawURL, cookies)
	if res.Failed() {
		r.logger.Debug("check failed", "url", rawURL, "error", res.Error)
	}
	return res
}
