package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lawdesk/lawdesk-client/pkg/client"
	"github.com/rs/zerolog"
)

// maxProxyBody bounds request bodies accepted by the proxy.
const maxProxyBody = 4 << 20

// forwardedHeaders are copied from the incoming request to the backend.
var forwardedHeaders = []string{"Authorization", "Accept-Language", "X-Request-ID"}

// proxy forwards /api/* to the backend through the resilient client.
type proxy struct {
	api    *client.Client
	retry  *client.RetryConfig
	logger zerolog.Logger
}

// cacheable reports whether a request may be served from the cache:
// every GET, and POSTs to list and get endpoints.
func cacheable(method, endpoint string) bool {
	switch method {
	case http.MethodGet:
		return true
	case http.MethodPost:
		return strings.HasSuffix(endpoint, "/list") || strings.HasSuffix(endpoint, "/get")
	default:
		return false
	}
}

// resourcePattern returns the cache pattern covering every cached response
// of the resource that endpoint belongs to, e.g. ".../api/cases/".
func (p *proxy) resourcePattern(endpoint string) string {
	resource, _, _ := strings.Cut(strings.TrimPrefix(endpoint, "/"), "/")
	if resource == "" {
		return ""
	}
	return p.api.BaseURL() + "/" + resource + "/"
}

func (p *proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	endpoint := "/" + chi.URLParam(r, "*")

	var body any
	if r.Body != nil {
		data, err := io.ReadAll(io.LimitReader(r.Body, maxProxyBody))
		if err != nil {
			writeProxyError(w, http.StatusBadRequest, "could not read request body")
			return
		}
		if len(strings.TrimSpace(string(data))) > 0 {
			if !json.Valid(data) {
				writeProxyError(w, http.StatusBadRequest, "request body must be JSON")
				return
			}
			body = json.RawMessage(data)
		}
	}

	opts := &client.RequestOptions{
		Headers: http.Header{},
		Params:  r.URL.Query(),
		Retry:   p.retry,
	}
	for _, name := range forwardedHeaders {
		if v := r.Header.Get(name); v != "" {
			opts.Headers.Set(name, v)
		}
	}
	if cacheable(r.Method, endpoint) {
		opts.Cache.Enabled = true
	} else if pattern := p.resourcePattern(endpoint); pattern != "" {
		opts.Invalidate = []string{pattern}
	}

	var (
		resp *client.Response
		err  error
	)
	switch r.Method {
	case http.MethodGet:
		resp, err = p.api.Get(r.Context(), endpoint, opts)
	case http.MethodPost:
		resp, err = p.api.Post(r.Context(), endpoint, body, opts)
	case http.MethodPut:
		resp, err = p.api.Put(r.Context(), endpoint, body, opts)
	case http.MethodPatch:
		resp, err = p.api.Patch(r.Context(), endpoint, body, opts)
	case http.MethodDelete:
		resp, err = p.api.Delete(r.Context(), endpoint, body, opts)
	default:
		writeProxyError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err != nil {
		p.writeBackendError(w, err)
		return
	}

	copyHeader(w.Header(), resp.Header, "Content-Type")
	w.WriteHeader(resp.StatusCode)
	if _, err := w.Write(resp.Body); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to write proxy response")
	}
}

// writeBackendError relays backend error responses unchanged and reports
// transport failures as 502.
func (p *proxy) writeBackendError(w http.ResponseWriter, err error) {
	var httpErr *client.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode > 0 {
		if len(httpErr.Body) > 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(httpErr.StatusCode)
			_, _ = w.Write(httpErr.Body)
			return
		}
		writeProxyError(w, httpErr.StatusCode, client.Describe(err))
		return
	}

	p.logger.Error().Err(err).Msg("Backend request failed")
	writeProxyError(w, http.StatusBadGateway, client.Describe(err))
}

type proxyError struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeProxyError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(proxyError{Success: false, Message: message})
}

func copyHeader(dst, src http.Header, names ...string) {
	for _, name := range names {
		if v := src.Get(name); v != "" {
			dst.Set(name, v)
		}
	}
}
