package queue

import "fmt"

type key struct {
	kind  Kind
	topic string
}

// Manager owns every live PullQueue and SubQueue, keyed by (kind, topic),
// created lazily on first use and dropped once empty. Grounded on the
// teacher's Topic/Pipe map-of-maps shape in cellorg's broker service, but
// single-goroutine instead of mutex-guarded (spec.md §5).
type Manager struct {
	pull map[key]*PullQueue
	sub  map[key]*SubQueue
}

// NewManager returns an empty queue manager.
func NewManager() *Manager {
	return &Manager{
		pull: make(map[key]*PullQueue),
		sub:  make(map[key]*SubQueue),
	}
}

// PullQueueFor returns the pull queue for (kind, topic), creating it if
// this is the first reference.
func (m *Manager) PullQueueFor(kind Kind, topic string) *PullQueue {
	k := key{kind, topic}
	q, ok := m.pull[k]
	if !ok {
		q = NewPullQueue(topic)
		m.pull[k] = q
	}
	return q
}

// SubQueueFor returns the subscribe queue for (kind, topic), creating it if
// this is the first reference.
func (m *Manager) SubQueueFor(kind Kind, topic string) *SubQueue {
	k := key{kind, topic}
	q, ok := m.sub[k]
	if !ok {
		q = NewSubQueue(topic)
		m.sub[k] = q
	}
	return q
}

// RemoveMember drops name from every pull and subscribe queue it belongs
// to, pruning queues left empty. Call this once per disconnecting channel.
// It returns the number of in-flight pull items that were redelivered (or
// re-buffered) as a result, for metrics.
func (m *Manager) RemoveMember(name string) int {
	redelivered := 0
	for k, q := range m.pull {
		redelivered += q.RemoveMember(name)
		if q.Empty() {
			delete(m.pull, k)
		}
	}
	for k, q := range m.sub {
		q.RemoveMember(name)
		if q.Empty() {
			delete(m.sub, k)
		}
	}
	return redelivered
}

// AckPull resolves an in-flight push on the pull queue for topic. It
// returns an error if no such queue or in-flight item exists; the router
// logs that error and sends no response.
func (m *Manager) AckPull(kind Kind, topic string, id uint64) error {
	q, ok := m.pull[key{kind, topic}]
	if !ok || !q.Ack(id) {
		return fmt.Errorf("queue: no in-flight item %d on topic %q", id, topic)
	}
	return nil
}
