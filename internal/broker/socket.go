// Package broker ties the wire codec, frame reassembler, channel registry,
// task queues, and router into a running server: accept connections, read
// and reassemble frames per peer, route them through the single broker
// goroutine, and tear down cleanly on disconnect or shutdown (spec.md §4.6,
// §5).
package broker

import (
	"fmt"
	"net"
	"sync"
)

// socket wraps one peer's net.Conn with a write mutex, since the registry
// and task queues may each independently decide to send this peer a frame
// (a forwarded req, a pull delivery, a mon event) from the single routing
// goroutine, but the underlying net.Conn.Write is not itself safe to call
// concurrently with writes from a peer's own read-side error path closing
// it mid-write. It implements registry.Socket.
type socket struct {
	id   string
	conn net.Conn

	mu     sync.Mutex
	closed bool
}

func newSocket(id string, conn net.Conn) *socket {
	return &socket{id: id, conn: conn}
}

func (s *socket) ID() string { return s.id }

func (s *socket) Send(frame []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("broker: socket %s is closed", s.id)
	}
	_, err := s.conn.Write(frame)
	return err
}

func (s *socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
