// Package batch fans out enrichment fetches with a bounded concurrency.
package batch

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/phauks/botc-data-sync/internal/catalog"
)

// Request pairs a character id with the URL to fetch for it.
type Request struct {
	ID  string
	URL string
}

// Result is the terminal outcome for one id: either a fetched body or a
// failure marker. Exactly one of Body/Err is meaningful.
type Result struct {
	ID   string
	Body []byte
	Err  error
}

// Orchestrator issues fetches such that at most Concurrency are in flight.
// One id's failure never blocks or aborts the others.
type Orchestrator struct {
	fetcher     catalog.Fetcher
	concurrency int
	logger      *zap.Logger
}

// New constructs an Orchestrator. concurrency below 1 is clamped to 1.
func New(fetcher catalog.Fetcher, concurrency int, logger *zap.Logger) *Orchestrator {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{fetcher: fetcher, concurrency: concurrency, logger: logger}
}

// Fetch runs the whole batch and returns one result per request id. Each
// task owns exactly one slot, so no two goroutines ever write the same entry.
// Cancellation of ctx abandons in-flight work; abandoned ids come back as
// failures and stay eligible for refetch next run.
func (o *Orchestrator) Fetch(ctx context.Context, reqs []Request) map[string]Result {
	slots := make([]Result, len(reqs))
	sem := make(chan struct{}, o.concurrency)
	var wg sync.WaitGroup

	for i, req := range reqs {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			// Remaining ids are marked failed without being started.
			for j := i; j < len(reqs); j++ {
				slots[j] = Result{ID: reqs[j].ID, Err: fmt.Errorf("batch canceled: %w", ctx.Err())}
			}
			wg.Wait()
			return collect(slots)
		}

		wg.Add(1)
		go func(slot *Result, req Request) {
			defer wg.Done()
			defer func() { <-sem }()

			body, err := o.fetcher.Fetch(ctx, req.URL)
			if err != nil {
				o.logger.Warn("enrichment fetch failed",
					zap.String("id", req.ID),
					zap.String("url", req.URL),
					zap.Error(err),
				)
				*slot = Result{ID: req.ID, Err: err}
				return
			}
			*slot = Result{ID: req.ID, Body: body}
		}(&slots[i], req)
	}

	wg.Wait()
	return collect(slots)
}

func collect(slots []Result) map[string]Result {
	out := make(map[string]Result, len(slots))
	for _, r := range slots {
		if r.ID == "" {
			continue
		}
		out[r.ID] = r
	}
	return out
}
