package dispatch

import "sync"

// mailbox is an unbounded FIFO drained by the delivery goroutine. Producers
// never block, so a Handler may submit new calls from inside a callback.
type mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []Outcome
	closed bool
}

func newMailbox() *mailbox {
	m := &mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *mailbox) push(o Outcome) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	m.items = append(m.items, o)
	m.cond.Signal()
	return true
}

// take blocks until outcomes are queued. It returns false once the mailbox
// is closed and empty.
func (m *mailbox) take() ([]Outcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.items) == 0 && !m.closed {
		m.cond.Wait()
	}
	if len(m.items) == 0 {
		return nil, false
	}
	batch := m.items
	m.items = nil
	return batch, true
}

func (m *mailbox) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cond.Broadcast()
}
