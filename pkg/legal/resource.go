// Package legal provides typed services for the practice-management
// resources exposed by the backend: cases, clients, courts, sessions and
// the legal chat assistant.
//
// Every resource follows the same POST-based contract:
//
//	POST   /{resource}/list     search body, paged result (cached)
//	POST   /{resource}/get      {"id": n} (cached)
//	POST   /{resource}/create
//	PUT    /{resource}/update
//	DELETE /{resource}/delete   {"id": n} as JSON body
//	PATCH  /{resource}/restore  {"id": n}
//
// Successful mutations drop every cached response of the resource.
package legal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lawdesk/lawdesk-client/pkg/client"
	"github.com/lawdesk/lawdesk-client/pkg/envelope"
	"github.com/lawdesk/lawdesk-client/pkg/pagination"
)

// ErrRestoreUnsupported is returned by Restore on resources that cannot be
// restored.
var ErrRestoreUnsupported = errors.New("restore not supported for this resource")

// resourceConfig describes one resource.
type resourceConfig[Search any] struct {
	name       string
	path       string
	listTTL    time.Duration
	getTTL     time.Duration
	restorable bool
	withPage   func(s Search, page, pageSize int) Search
}

// Resource is a CRUD service for one backend resource.
type Resource[Item, Create, Update, Search any] struct {
	api   *client.Client
	cfg   resourceConfig[Search]
	batch pagination.Config
}

func newResource[Item, Create, Update, Search any](api *client.Client, cfg resourceConfig[Search]) *Resource[Item, Create, Update, Search] {
	return &Resource[Item, Create, Update, Search]{
		api:   api.Scope(cfg.path),
		cfg:   cfg,
		batch: pagination.DefaultConfig(),
	}
}

// Name returns the resource name, e.g. "cases".
func (r *Resource[Item, Create, Update, Search]) Name() string {
	return r.cfg.name
}

// SetBatchConfig sets the parallel pagination settings used by ListAll.
func (r *Resource[Item, Create, Update, Search]) SetBatchConfig(cfg pagination.Config) {
	r.batch = cfg
}

func listRetry() *client.RetryConfig {
	return &client.RetryConfig{Count: client.Int(2), Delay: client.Duration(time.Second), Backoff: client.Bool(true)}
}

func getRetry() *client.RetryConfig {
	return &client.RetryConfig{Count: client.Int(2), Delay: client.Duration(time.Second)}
}

func writeRetry() *client.RetryConfig {
	return &client.RetryConfig{Count: client.Int(1), Delay: client.Duration(1500 * time.Millisecond)}
}

func restoreRetry() *client.RetryConfig {
	return &client.RetryConfig{Count: client.Int(1), Delay: client.Duration(time.Second)}
}

// List returns one page of search results.
func (r *Resource[Item, Create, Update, Search]) List(ctx context.Context, search Search) (*envelope.Page[Item], error) {
	resp, err := r.api.Post(ctx, "/list", search, &client.RequestOptions{
		Retry: listRetry(),
		Cache: client.CacheConfig{Enabled: true, TTL: r.cfg.listTTL},
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.cfg.name, err)
	}
	page, err := envelope.Data[envelope.Page[Item]](resp.Body)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", r.cfg.name, err)
	}
	return &page, nil
}

// ListAll fetches every page of search results in parallel. pageSize <= 0
// lets the backend choose.
func (r *Resource[Item, Create, Update, Search]) ListAll(ctx context.Context, search Search, pageSize int) ([]Item, error) {
	fetch := pagination.PageFetcherFunc[Item](func(ctx context.Context, page int) (*envelope.Page[Item], error) {
		return r.List(ctx, r.cfg.withPage(search, page, pageSize))
	})
	return pagination.NewBatchFetcher[Item](fetch, r.batch).FetchAll(ctx)
}

// Get returns a single item by id.
func (r *Resource[Item, Create, Update, Search]) Get(ctx context.Context, id int64) (*Item, error) {
	resp, err := r.api.Post(ctx, "/get", envelope.IDRequest{ID: id}, &client.RequestOptions{
		Retry: getRetry(),
		Cache: client.CacheConfig{Enabled: true, TTL: r.cfg.getTTL},
	})
	if err != nil {
		return nil, fmt.Errorf("get %s %d: %w", r.cfg.name, id, err)
	}
	return decodeItem[Item](resp)
}

// Create creates an item and returns it as stored.
func (r *Resource[Item, Create, Update, Search]) Create(ctx context.Context, dto Create) (*Item, error) {
	resp, err := r.api.Post(ctx, "/create", dto, r.mutation(writeRetry()))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", r.cfg.name, err)
	}
	return decodeItem[Item](resp)
}

// Update replaces an item and returns it as stored.
func (r *Resource[Item, Create, Update, Search]) Update(ctx context.Context, dto Update) (*Item, error) {
	resp, err := r.api.Put(ctx, "/update", dto, r.mutation(writeRetry()))
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", r.cfg.name, err)
	}
	return decodeItem[Item](resp)
}

// Delete soft-deletes an item. Deletes are never retried.
func (r *Resource[Item, Create, Update, Search]) Delete(ctx context.Context, id int64) error {
	resp, err := r.api.Delete(ctx, "/delete", envelope.IDRequest{ID: id}, r.mutation(nil))
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", r.cfg.name, id, err)
	}
	return checkSuccess(resp)
}

// Restore undoes a soft delete.
func (r *Resource[Item, Create, Update, Search]) Restore(ctx context.Context, id int64) error {
	if !r.cfg.restorable {
		return fmt.Errorf("restore %s %d: %w", r.cfg.name, id, ErrRestoreUnsupported)
	}
	resp, err := r.api.Patch(ctx, "/restore", envelope.IDRequest{ID: id}, r.mutation(restoreRetry()))
	if err != nil {
		return fmt.Errorf("restore %s %d: %w", r.cfg.name, id, err)
	}
	return checkSuccess(resp)
}

// mutation builds options that drop all cached responses of the resource
// on success.
func (r *Resource[Item, Create, Update, Search]) mutation(retry *client.RetryConfig) *client.RequestOptions {
	return &client.RequestOptions{
		Retry:      retry,
		Invalidate: []string{r.api.BaseURL() + "/"},
	}
}

func decodeItem[Item any](resp *client.Response) (*Item, error) {
	item, err := envelope.Data[Item](resp.Body)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// checkSuccess rejects envelopes with success=false. Empty bodies are
// accepted.
func checkSuccess(resp *client.Response) error {
	if len(resp.Body) == 0 {
		return nil
	}
	env, err := envelope.Decode[json.RawMessage](resp.Body)
	if err != nil || env.Success {
		return nil
	}
	return env.AsError()
}
