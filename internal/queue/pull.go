// Package queue implements the task-queue primitives behind push/pull and
// pub/sub delivery (spec.md §4.4): round-robin work distribution with
// acknowledgement and redelivery for pull queues, and best-effort fan-out
// for subscribe queues. Like internal/registry, every method here is called
// only from the broker's single routing goroutine — no locking.
package queue

import "github.com/shayzogo/fastmq/internal/wire"

// Member is a queue participant: a channel name plus the frame sink it owns.
type Member interface {
	Name() string
	Send(frame []byte) error
}

// inFlight tracks one pushed message awaiting acknowledgement.
type inFlight struct {
	id     uint64
	topic  string
	frame  []byte
	member string // name of the member it was last delivered to
}

// PullQueue dispatches push messages for one topic round-robin across its
// live members, tracking in-flight items until acked and redelivering them
// to the next member if the one holding them disappears (spec.md §4.4
// "push/pull", invariant 5: exactly-once delivery across a stable member
// set).
type PullQueue struct {
	topic    string
	members  []Member
	next     int // index of the next member to receive a push
	inFlight map[uint64]*inFlight
	waiting  []*inFlight // items buffered because no member was available
}

// NewPullQueue returns an empty pull queue for topic.
func NewPullQueue(topic string) *PullQueue {
	return &PullQueue{
		topic:    topic,
		inFlight: make(map[uint64]*inFlight),
	}
}

// AddMember adds m to the round-robin rotation, if not already present.
func (q *PullQueue) AddMember(m Member) {
	for _, existing := range q.members {
		if existing.Name() == m.Name() {
			return
		}
	}
	q.members = append(q.members, m)
	q.drainWaiting()
}

// RemoveMember drops m from rotation (its owning socket disconnected) and
// redelivers anything still in flight to it, per spec.md's worker-death
// redelivery invariant. It returns how many items were moved back to the
// queue for reassignment, for metrics.
func (q *PullQueue) RemoveMember(name string) int {
	for i, m := range q.members {
		if m.Name() == name {
			q.members = append(q.members[:i], q.members[i+1:]...)
			if q.next > i {
				q.next--
			}
			break
		}
	}
	moved := 0
	for id, item := range q.inFlight {
		if item.member == name {
			delete(q.inFlight, id)
			q.waiting = append(q.waiting, item)
			moved++
		}
	}
	q.drainWaiting()
	return moved
}

// Empty reports whether the queue has no members and nothing buffered.
func (q *PullQueue) Empty() bool {
	return len(q.members) == 0 && len(q.waiting) == 0 && len(q.inFlight) == 0
}

// Push enqueues frame (already encoded, addressed with id) for round-robin
// delivery. It returns the member it was sent to, or "" if no member is
// currently available (the item is buffered until one joins).
func (q *PullQueue) Push(id uint64, frame []byte) (string, error) {
	item := &inFlight{id: id, topic: q.topic, frame: frame}
	if len(q.members) == 0 {
		q.waiting = append(q.waiting, item)
		return "", nil
	}
	return q.deliver(item)
}

func (q *PullQueue) deliver(item *inFlight) (string, error) {
	m := q.members[q.next%len(q.members)]
	q.next = (q.next + 1) % len(q.members)
	if err := m.Send(item.frame); err != nil {
		return "", err
	}
	item.member = m.Name()
	q.inFlight[item.id] = item
	return m.Name(), nil
}

func (q *PullQueue) drainWaiting() {
	for len(q.waiting) > 0 && len(q.members) > 0 {
		item := q.waiting[0]
		q.waiting = q.waiting[1:]
		if _, err := q.deliver(item); err != nil {
			continue
		}
	}
}

// Ack marks id as delivered, releasing it from in-flight tracking. It
// reports false if id was not in flight (e.g. a late or duplicate ack).
func (q *PullQueue) Ack(id uint64) bool {
	if _, ok := q.inFlight[id]; !ok {
		return false
	}
	delete(q.inFlight, id)
	return true
}

// InFlightCount reports how many items are awaiting acknowledgement, for
// metrics and tests.
func (q *PullQueue) InFlightCount() int {
	return len(q.inFlight)
}

// Kind identifies which dispatch discipline a queue implements, used as
// part of the (kind, topic) key in Manager.
type Kind = wire.Kind
