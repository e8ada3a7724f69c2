// Package metrics keeps a small set of in-memory counters describing a
// running broker. The teacher repo favors plain in-memory state inspected
// by its own admin endpoints over wiring an external exporter for a
// subsystem this size, and this package follows that: atomic counters, no
// registry, no exposition format.
package metrics

import "sync/atomic"

// Metrics holds atomic counters updated from the broker's single routing
// goroutine (so no read ever races a write, but atomics are used anyway
// since Snapshot may be called from an unrelated goroutine, e.g. an admin
// handler).
type Metrics struct {
	channelsRegistered   uint64
	channelsUnregistered uint64
	messagesRouted       uint64
	pullRedeliveries     uint64
	registerFailures     uint64
}

// New returns a zeroed Metrics.
func New() *Metrics {
	return &Metrics{}
}

func (m *Metrics) ChannelRegistered()   { atomic.AddUint64(&m.channelsRegistered, 1) }
func (m *Metrics) ChannelUnregistered() { atomic.AddUint64(&m.channelsUnregistered, 1) }
func (m *Metrics) MessageRouted()       { atomic.AddUint64(&m.messagesRouted, 1) }
func (m *Metrics) RegisterFailure()     { atomic.AddUint64(&m.registerFailures, 1) }

// AddPullRedeliveries records n items that were moved back to a pull
// queue's head because the worker holding them disconnected before ack.
func (m *Metrics) AddPullRedeliveries(n int) {
	if n > 0 {
		atomic.AddUint64(&m.pullRedeliveries, uint64(n))
	}
}

// Snapshot is a point-in-time copy of every counter, safe to read without
// further synchronization.
type Snapshot struct {
	ChannelsRegistered   uint64
	ChannelsUnregistered uint64
	ActiveChannels       int64
	MessagesRouted       uint64
	PullRedeliveries     uint64
	RegisterFailures     uint64
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	registered := atomic.LoadUint64(&m.channelsRegistered)
	unregistered := atomic.LoadUint64(&m.channelsUnregistered)
	return Snapshot{
		ChannelsRegistered:   registered,
		ChannelsUnregistered: unregistered,
		ActiveChannels:       int64(registered) - int64(unregistered),
		MessagesRouted:       atomic.LoadUint64(&m.messagesRouted),
		PullRedeliveries:     atomic.LoadUint64(&m.pullRedeliveries),
		RegisterFailures:     atomic.LoadUint64(&m.registerFailures),
	}
}
