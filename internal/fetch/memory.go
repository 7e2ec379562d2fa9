package fetch

import (
	"context"
	"fmt"
	"sync"
)

// Memory is a map-backed fetcher. With Manual set, completions are held
// until Flush, which lets callers interleave deliveries with frames.
type Memory struct {
	Manual bool

	mu       sync.Mutex
	files    map[string][]byte
	failures map[string]error
	queued   []func()
	requests []string
}

// NewMemory returns an empty in-memory fetcher delivering immediately.
func NewMemory() *Memory {
	return &Memory{
		files:    make(map[string][]byte),
		failures: make(map[string]error),
	}
}

// Put stores data under uri.
func (m *Memory) Put(uri string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[uri] = data
}

// Fail makes every fetch of uri fail with err.
func (m *Memory) Fail(uri string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[uri] = err
}

// Fetch implements Fetcher.
func (m *Memory) Fetch(ctx context.Context, uri string, deliver func(Result)) {
	m.mu.Lock()
	m.requests = append(m.requests, uri)
	var r Result
	switch {
	case IsDataURI(uri):
		data, _, err := DecodeDataURI(uri)
		r = Result{URI: uri, Data: data, Err: err}
	case m.failures[uri] != nil:
		r = Result{URI: uri, Err: m.failures[uri]}
	default:
		data, ok := m.files[uri]
		if !ok {
			r = Result{URI: uri, Err: fmt.Errorf("%w: %s", ErrNotFound, uri)}
		} else {
			r = Result{URI: uri, Data: data}
		}
	}
	if m.Manual {
		m.queued = append(m.queued, func() {
			if err := ctx.Err(); err != nil {
				r = Result{URI: uri, Err: err}
			}
			deliver(r)
		})
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	deliver(r)
}

// Flush delivers every held completion and returns how many there were.
func (m *Memory) Flush() int {
	m.mu.Lock()
	queued := m.queued
	m.queued = nil
	m.mu.Unlock()
	for _, fn := range queued {
		fn()
	}
	return len(queued)
}

// Requests returns every URI requested so far, in order.
func (m *Memory) Requests() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.requests...)
}
