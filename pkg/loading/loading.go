// Package loading tracks in-flight backend requests so a caller can show a
// busy indicator.
package loading

import (
	"io"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SkipHeader marks a request as background work. The Tracker does not count
// it and removes the header before the request leaves the process.
const SkipHeader = "X-Skip-Loading"

var inflightRequests = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "lawdesk_inflight_requests",
	Help: "Backend requests currently in flight (excluding background requests)",
})

// Tracker is an http.RoundTripper that counts in-flight requests.
type Tracker struct {
	next     http.RoundTripper
	onChange func(loading bool)

	mu    sync.Mutex
	count int
}

// NewTracker wraps next. onChange is called when the count moves between
// zero and one, and may be nil.
func NewTracker(next http.RoundTripper, onChange func(loading bool)) *Tracker {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Tracker{next: next, onChange: onChange}
}

// RoundTrip implements http.RoundTripper. A tracked request stays in flight
// until its response body is closed.
func (t *Tracker) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(SkipHeader) != "" {
		req = req.Clone(req.Context())
		req.Header.Del(SkipHeader)
		return t.next.RoundTrip(req)
	}

	t.add(1)
	resp, err := t.next.RoundTrip(req)
	if err != nil || resp == nil || resp.Body == nil {
		t.add(-1)
		return resp, err
	}

	resp.Body = &trackedBody{ReadCloser: resp.Body, done: func() { t.add(-1) }}
	return resp, nil
}

// trackedBody calls done once, on the first Close.
type trackedBody struct {
	io.ReadCloser
	once sync.Once
	done func()
}

func (b *trackedBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.done)
	return err
}

// Loading reports whether any tracked request is in flight.
func (t *Tracker) Loading() bool {
	return t.Count() > 0
}

// Count returns the number of tracked requests in flight.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

func (t *Tracker) add(delta int) {
	t.mu.Lock()
	before := t.count
	t.count += delta
	after := t.count
	// Notify under the lock so transitions are delivered in order.
	if t.onChange != nil && (before == 0) != (after == 0) {
		t.onChange(after > 0)
	}
	t.mu.Unlock()

	inflightRequests.Add(float64(delta))
}
