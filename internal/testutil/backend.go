// Package testutil provides a scripted automation backend for tests.
//
// This package is internal and should not be imported by external code.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

// Request is a request recorded by Backend.
type Request struct {
	Path   string
	Header http.Header
	Body   map[string]any
}

// Backend is an httptest server with per-path scripted handlers. Unrouted
// paths answer 404. Every request is recorded before it is handled.
type Backend struct {
	*httptest.Server

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []Request
}

// NewBackend starts a backend that is closed when the test ends.
func NewBackend(t testing.TB) *Backend {
	t.Helper()

	b := &Backend{routes: make(map[string]http.HandlerFunc)}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Close)
	return b
}

// Handle routes path to h, replacing any previous handler.
func (b *Backend) Handle(path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[path] = h
}

// Requests returns the requests received so far.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// RootURL returns the server URL parsed.
func (b *Backend) RootURL() *url.URL {
	u, err := url.Parse(b.URL)
	if err != nil {
		panic(fmt.Sprintf("testutil: bad server URL %q: %v", b.URL, err))
	}
	return u
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(data))

	var body map[string]any
	if len(data) > 0 {
		_ = json.Unmarshal(data, &body)
	}

	b.mu.Lock()
	b.requests = append(b.requests, Request{
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   body,
	})
	h, ok := b.routes[r.URL.Path]
	b.mu.Unlock()

	if !ok {
		http.Error(w, fmt.Sprintf("no route for %s", r.URL.Path), http.StatusNotFound)
		return
	}
	h(w, r)
}

// JSON answers with status and v encoded as JSON.
func JSON(status int, v any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Raw answers with status, contentType and body verbatim. An empty
// contentType leaves the header unset.
func Raw(status int, contentType string, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		} else {
			// stop net/http from sniffing one
			w.Header()["Content-Type"] = nil
		}
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}
}

// Redirect answers 301 with the target path as the body text.
func Redirect(target string) http.HandlerFunc {
	return Raw(http.StatusMovedPermanently, "text/plain", []byte(target))
}

// NDJSON answers with an application/jsonl body written chunk by chunk,
// flushing after each so the client sees them as separate reads.
func NDJSON(chunks ...string) http.HandlerFunc {
	return NDJSONFunc(func(send func(chunk string)) {
		for _, chunk := range chunks {
			send(chunk)
		}
	})
}

// NDJSONFunc answers with an application/jsonl body produced by script.
// Every call to send writes and flushes one chunk.
func NDJSONFunc(script func(send func(chunk string))) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/jsonl")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		script(func(chunk string) {
			_, _ = io.WriteString(w, chunk)
			if flusher != nil {
				flusher.Flush()
			}
		})
	}
}

// Sequence answers successive requests with successive handlers; the last
// handler serves every request after the sequence is exhausted.
func Sequence(handlers ...http.HandlerFunc) http.HandlerFunc {
	var mu sync.Mutex
	next := 0
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		h := handlers[next]
		if next < len(handlers)-1 {
			next++
		}
		mu.Unlock()
		h(w, r)
	}
}
