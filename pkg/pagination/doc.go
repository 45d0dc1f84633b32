// Package pagination fetches every page of a paged list endpoint in
// parallel.
//
// List endpoints return an envelope.Page carrying TotalPages (or
// TotalCount and PageSize). The batch fetcher reads page 1 to learn the
// page count, then fetches the remaining pages with a small worker pool.
// Each request still passes through the client's rate limiter and cache.
//
// Example usage:
//
//	fetcher := pagination.NewBatchFetcher[legal.Case](
//		pagination.PageFetcherFunc[legal.Case](func(ctx context.Context, page int) (*envelope.Page[legal.Case], error) {
//			return cases.List(ctx, legal.CaseSearch{Page: page, PageSize: 50})
//		}),
//		pagination.DefaultConfig(),
//	)
//	all, err := fetcher.FetchAll(ctx)
//
// The batch fetcher:
//   - Fetches the first page to determine total pages
//   - Distributes remaining pages across workers
//   - Returns items in page order
//   - Returns partial items plus an error when a page fails
package pagination
