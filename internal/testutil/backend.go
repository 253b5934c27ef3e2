// Package testutil provides a scriptable stub of the upstream document
// backend, with per-route call counting so tests can assert which upstream
// calls were (or were not) attempted.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
)

// StubBackend is a fake upstream backend. Routes are keyed as
// "METHOD /path"; unscripted routes answer with an HTML 404 page, which is
// exactly what a misconfigured real backend does.
type StubBackend struct {
	Server *httptest.Server

	mu     sync.Mutex
	calls  map[string]int
	routes map[string]http.HandlerFunc
}

// NewStubBackend starts a stub backend. Callers own Close.
func NewStubBackend() *StubBackend {
	b := &StubBackend{
		calls:  make(map[string]int),
		routes: make(map[string]http.HandlerFunc),
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.dispatch))
	return b
}

// Close shuts the stub down.
func (b *StubBackend) Close() {
	b.Server.Close()
}

// URL returns the stub's base URL.
func (b *StubBackend) URL() string {
	return b.Server.URL
}

// Handle scripts a route, e.g. b.Handle("POST /api/query", ...).
func (b *StubBackend) Handle(route string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[route] = h
}

// HandleJSON scripts a route with a fixed JSON response.
func (b *StubBackend) HandleJSON(route string, status int, body string) {
	b.Handle(route, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
}

// HandleHTML scripts a route with an HTML response, the shape of a backend
// error page.
func (b *StubBackend) HandleHTML(route string, status int, body string) {
	b.Handle(route, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		w.Write([]byte(body))
	})
}

// Calls returns how many times a route was hit.
func (b *StubBackend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// TotalCalls returns how many requests reached the stub at all.
func (b *StubBackend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for _, n := range b.calls {
		total += n
	}
	return total
}

func (b *StubBackend) dispatch(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path

	b.mu.Lock()
	b.calls[key]++
	h := b.routes[key]
	b.mu.Unlock()

	if h == nil {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("<html><body><h1>404 Not Found</h1><p>The requested URL was not found on this server.</p></body></html>"))
		return
	}
	h(w, r)
}
