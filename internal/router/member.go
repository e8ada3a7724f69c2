// Package router classifies decoded inbound messages by kind, dispatches
// the six internal broker request topics, forwards inter-channel req/res
// traffic by raw bytes, and feeds push/pub traffic into the task queues
// (spec.md §4.5).
package router

import "github.com/shayzogo/fastmq/internal/registry"

// channelMember adapts a registry.Channel's socket to queue.Member, so the
// queue package never has to import registry.
type channelMember struct {
	name   string
	socket registry.Socket
}

func (m *channelMember) Name() string            { return m.name }
func (m *channelMember) Send(frame []byte) error { return m.socket.Send(frame) }
