package fetch

import "sync"

// Token identifies the owner generation a request was issued for.
type Token uint64

// Liveness is a generation counter guarding completions against teardown.
type Liveness struct {
	mu    sync.Mutex
	gen   uint64
	alive bool
}

// NewLiveness returns a live counter at generation 1.
func NewLiveness() *Liveness {
	return &Liveness{gen: 1, alive: true}
}

// Token returns the current generation.
func (l *Liveness) Token() Token {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Token(l.gen)
}

// Alive reports whether completions carrying t may still be applied.
func (l *Liveness) Alive(t Token) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.alive && Token(l.gen) == t
}

// Revoke invalidates every outstanding token. It is idempotent.
func (l *Liveness) Revoke() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.alive = false
}

type delivery struct {
	token  Token
	result Result
	apply  func(Result)
}

// Mailbox queues completions until the owner drains them.
type Mailbox struct {
	life    *Liveness
	mu      sync.Mutex
	pending []delivery
	dropped int
}

// NewMailbox returns a mailbox guarded by life.
func NewMailbox(life *Liveness) *Mailbox {
	return &Mailbox{life: life}
}

// Deliverer returns a completion callback for one request. The result is
// applied by a later Drain only if the token is still alive then.
func (m *Mailbox) Deliverer(apply func(Result)) func(Result) {
	token := m.life.Token()
	return func(r Result) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if !m.life.Alive(token) {
			m.dropped++
			return
		}
		m.pending = append(m.pending, delivery{token: token, result: r, apply: apply})
	}
}

// Drain applies queued completions in arrival order on the calling goroutine
// and returns how many were applied.
func (m *Mailbox) Drain() int {
	m.mu.Lock()
	batch := m.pending
	m.pending = nil
	m.mu.Unlock()

	applied := 0
	for _, d := range batch {
		if !m.life.Alive(d.token) {
			m.mu.Lock()
			m.dropped++
			m.mu.Unlock()
			continue
		}
		d.apply(d.result)
		applied++
	}
	return applied
}

// Pending returns the number of completions waiting to be drained.
func (m *Mailbox) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Dropped returns how many completions arrived for a revoked owner.
func (m *Mailbox) Dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}
