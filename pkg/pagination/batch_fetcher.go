package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lawdesk/lawdesk-client/pkg/envelope"
	"github.com/lawdesk/lawdesk-client/pkg/logging"
	"github.com/rs/zerolog"
)

// ErrNoPages is returned when the first page reports no page count and no
// total to derive one from.
var ErrNoPages = errors.New("first page carries no paging information")

// Config holds batch fetcher configuration
type Config struct {
	// MaxConcurrency is the maximum number of parallel page requests.
	// The client rate limiter still applies to every request.
	MaxConcurrency int
	// Timeout per page fetch
	Timeout time.Duration
	// MaxPages caps how many pages are fetched (0 = no cap)
	MaxPages int
}

// DefaultConfig returns the default batch configuration
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
		MaxPages:       500,
	}
}

// PageFetcher fetches a single 1-based page.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, page int) (*envelope.Page[T], error)
}

// PageFetcherFunc adapts a function to PageFetcher.
type PageFetcherFunc[T any] func(ctx context.Context, page int) (*envelope.Page[T], error)

// FetchPage implements PageFetcher.
func (f PageFetcherFunc[T]) FetchPage(ctx context.Context, page int) (*envelope.Page[T], error) {
	return f(ctx, page)
}

// PageResult represents the result of fetching a single page
type PageResult[T any] struct {
	PageNumber int
	Items      []T
	Error      error
}

// BatchFetcher handles parallel fetching of multiple pages
type BatchFetcher[T any] struct {
	fetcher PageFetcher[T]
	config  Config
	logger  zerolog.Logger
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher[T any](fetcher PageFetcher[T], config Config) *BatchFetcher[T] {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 4
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.MaxPages < 0 {
		config.MaxPages = 0
	}

	return &BatchFetcher[T]{
		fetcher: fetcher,
		config:  config,
		logger:  logging.NewLogger(logging.ComponentPagination),
	}
}

// totalPages returns the page count reported by the first page.
func totalPages[T any](first *envelope.Page[T]) int {
	if first.TotalPages > 0 {
		return first.TotalPages
	}
	if first.PageSize > 0 {
		return (first.TotalCount + first.PageSize - 1) / first.PageSize
	}
	if len(first.Items) > 0 {
		return 1
	}
	return 0
}

// FetchAll fetches page 1, then the remaining pages with a worker pool.
// Items are returned in page order. If any page fails, the items of the
// pages that succeeded are returned together with the first error.
func (bf *BatchFetcher[T]) FetchAll(ctx context.Context) ([]T, error) {
	start := time.Now()

	first, err := bf.fetcher.FetchPage(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}
	if first == nil {
		return nil, ErrNoPages
	}

	total := totalPages(first)
	if total <= 1 {
		bf.logger.Debug().
			Int("items", len(first.Items)).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return first.Items, nil
	}
	if bf.config.MaxPages > 0 && total > bf.config.MaxPages {
		bf.logger.Warn().
			Int("total_pages", total).
			Int("max_pages", bf.config.MaxPages).
			Msg("Page count capped")
		total = bf.config.MaxPages
	}

	bf.logger.Info().
		Int("total_pages", total).
		Int("workers", bf.config.MaxConcurrency).
		Msg("Starting parallel page fetch")

	pages := make([][]T, total+1)
	pages[1] = first.Items

	pageQueue := make(chan int, total-1)
	for page := 2; page <= total; page++ {
		pageQueue <- page
	}
	close(pageQueue)

	pageResults := make(chan PageResult[T], total-1)

	workers := min(bf.config.MaxConcurrency, total-1)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go bf.worker(ctx, pageQueue, pageResults, &wg, i)
	}

	go func() {
		wg.Wait()
		close(pageResults)
	}()

	fetched := 1
	var firstErr error
	failed := 0
	for result := range pageResults {
		if result.Error != nil {
			failed++
			if firstErr == nil {
				firstErr = fmt.Errorf("page %d: %w", result.PageNumber, result.Error)
			}
			continue
		}
		pages[result.PageNumber] = result.Items
		fetched++

		if fetched%50 == 0 {
			bf.logger.Info().
				Int("fetched", fetched).
				Int("total", total).
				Float64("progress_pct", float64(fetched)/float64(total)*100).
				Msg("Fetch progress")
		}
	}

	var items []T
	for _, p := range pages[1:] {
		items = append(items, p...)
	}

	if firstErr != nil {
		bf.logger.Warn().
			Err(firstErr).
			Int("fetched_pages", fetched).
			Int("failed_pages", failed).
			Int("total_pages", total).
			Msg("Returning partial results")
		return items, fmt.Errorf("partial data (%d/%d pages): %w", fetched, total, firstErr)
	}

	bf.logger.Info().
		Int("pages", fetched).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return items, nil
}

// worker processes pages from the queue
func (bf *BatchFetcher[T]) worker(ctx context.Context, pageQueue <-chan int, results chan<- PageResult[T], wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for pageNum := range pageQueue {
		if err := ctx.Err(); err != nil {
			results <- PageResult[T]{PageNumber: pageNum, Error: err}
			continue
		}

		pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		page, err := bf.fetcher.FetchPage(pageCtx, pageNum)
		cancel()

		if err != nil {
			bf.logger.Warn().
				Err(err).
				Int("worker_id", workerID).
				Int("page", pageNum).
				Msg("Page fetch failed")
			results <- PageResult[T]{PageNumber: pageNum, Error: err}
			continue
		}

		var items []T
		if page != nil {
			items = page.Items
		}
		results <- PageResult[T]{PageNumber: pageNum, Items: items}
		pagesProcessed++
	}

	if pagesProcessed > 0 {
		bf.logger.Debug().
			Int("worker_id", workerID).
			Int("pages_processed", pagesProcessed).
			Msg("Worker completed")
	}
}
