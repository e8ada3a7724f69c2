package queue

// SubQueue fans a pub message out to every subscribed member, best effort:
// no acknowledgement, no redelivery, no buffering for absent members
// (spec.md §4.4 "pub/sub").
type SubQueue struct {
	topic   string
	members []Member
}

// NewSubQueue returns an empty subscribe queue for topic.
func NewSubQueue(topic string) *SubQueue {
	return &SubQueue{topic: topic}
}

// AddMember adds m to the fan-out set, if not already present.
func (q *SubQueue) AddMember(m Member) {
	for _, existing := range q.members {
		if existing.Name() == m.Name() {
			return
		}
	}
	q.members = append(q.members, m)
}

// RemoveMember drops m from the fan-out set.
func (q *SubQueue) RemoveMember(name string) {
	for i, m := range q.members {
		if m.Name() == name {
			q.members = append(q.members[:i], q.members[i+1:]...)
			return
		}
	}
}

// Empty reports whether the queue has no subscribers left.
func (q *SubQueue) Empty() bool {
	return len(q.members) == 0
}

// Publish sends frame to every current member, in subscription order.
// A member whose Send fails is skipped (its disconnect will be observed
// through the broker's own read loop and trigger RemoveMember separately);
// fan-out is best effort and does not retry.
func (q *SubQueue) Publish(frame []byte) {
	for _, m := range q.members {
		_ = m.Send(frame)
	}
}

// MemberCount reports the current number of subscribers, for metrics.
func (q *SubQueue) MemberCount() int {
	return len(q.members)
}
