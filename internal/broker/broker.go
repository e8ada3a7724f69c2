package broker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"

	"github.com/shayzogo/fastmq/internal/frame"
	"github.com/shayzogo/fastmq/internal/metrics"
	"github.com/shayzogo/fastmq/internal/queue"
	"github.com/shayzogo/fastmq/internal/registry"
	"github.com/shayzogo/fastmq/internal/router"
)

// BrokerChannelName is the channel name req/sreq messages use to address
// the broker's own internal request topics (spec.md §4.5).
const BrokerChannelName = "broker"

// Config configures a Broker. See internal/config for loading one from
// YAML; this struct has no dependency on that package so tests can build
// one directly.
type Config struct {
	// Network is "tcp" or "unix".
	Network string
	// Address is a host:port for tcp, or a filesystem path for unix.
	Address string
	// Debug enables verbose routing logs.
	Debug bool
}

type inboundFrame struct {
	raw  []byte
	from *socket
}

// Broker owns the listener, every live peer socket, and the single routing
// goroutine that processes all decoded frames (spec.md §5: single-threaded
// cooperative router, no locks on the core data structures). Concurrency
// only exists at the edges: one reader goroutine per peer feeding the
// shared inbox channel, and peer writes guarded individually by each
// socket's own mutex.
type Broker struct {
	cfg      Config
	listener net.Listener

	reg     *registry.Registry
	queues  *queue.Manager
	router  *router.Router
	metrics *metrics.Metrics

	inbox       chan inboundFrame
	disconnects chan *socket
	ready       chan struct{}

	peersMu  sync.Mutex
	peers    map[string]*socket
	wg       sync.WaitGroup
	nextConn uint64
}

// New returns a Broker ready to Start. The registry and queue manager are
// created fresh; nothing is shared with any other Broker instance.
func New(cfg Config) *Broker {
	reg := registry.New()
	queues := queue.NewManager()
	m := metrics.New()

	logf := func(format string, args ...interface{}) {
		if cfg.Debug {
			log.Printf(format, args...)
		}
	}

	b := &Broker{
		cfg:         cfg,
		reg:         reg,
		queues:      queues,
		router:      router.New(reg, queues, BrokerChannelName, logf).WithMetrics(m),
		metrics:     m,
		inbox:       make(chan inboundFrame, 256),
		disconnects: make(chan *socket, 16),
		ready:       make(chan struct{}),
		peers:       make(map[string]*socket),
	}
	return b
}

// Metrics exposes the broker's in-memory counters.
func (b *Broker) Metrics() *metrics.Metrics { return b.metrics }

// Addr blocks until Start has opened the listener, then returns its
// address. Intended for tests and for callers that started the broker
// with an ephemeral port (":0") and need to learn the one actually bound.
func (b *Broker) Addr() net.Addr {
	<-b.ready
	return b.listener.Addr()
}

// Start listens on cfg.Network/cfg.Address and runs until ctx is
// cancelled, at which point it stops accepting connections, closes every
// live peer, and returns once the routing goroutine has drained. Mirrors
// the teacher's Service.Start(ctx) lifecycle shape.
func (b *Broker) Start(ctx context.Context) error {
	listener, err := listen(b.cfg.Network, b.cfg.Address)
	if err != nil {
		return fmt.Errorf("broker: listen on %s %s: %w", b.cfg.Network, b.cfg.Address, err)
	}
	b.listener = listener
	close(b.ready)

	if b.cfg.Debug {
		log.Printf("broker: listening on %s %s", b.cfg.Network, b.cfg.Address)
	}

	routingDone := make(chan struct{})
	go func() {
		b.run()
		close(routingDone)
	}()

	go func() {
		<-ctx.Done()
		if b.cfg.Debug {
			log.Printf("broker: shutting down")
		}
		b.listener.Close()
		b.closeAllPeers()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				b.wg.Wait()
				close(b.inbox)
				<-routingDone
				return nil
			}
			log.Printf("broker: accept error: %v", err)
			continue
		}
		b.wg.Add(1)
		go b.handleConnection(conn)
	}
}

// handleConnection reads length-prefixed frames from one peer until it
// disconnects or sends a malformed frame, reassembling them per spec.md
// §4.2 and handing each whole frame to the routing goroutine.
func (b *Broker) handleConnection(conn net.Conn) {
	defer b.wg.Done()

	id := fmt.Sprintf("conn-%d", atomic.AddUint64(&b.nextConn, 1))
	sock := newSocket(id, conn)
	reassembler := frame.New()

	b.peersMu.Lock()
	b.peers[id] = sock
	b.peersMu.Unlock()

	if b.cfg.Debug {
		log.Printf("broker: accepted %s", id)
	}

	buf := make([]byte, 32*1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			frames, ferr := reassembler.Feed(buf[:n])
			for _, f := range frames {
				b.inbox <- inboundFrame{raw: f, from: sock}
			}
			if ferr != nil {
				if b.cfg.Debug {
					log.Printf("broker: %s sent a malformed frame: %v", id, ferr)
				}
				break
			}
		}
		if err != nil {
			break
		}
	}

	sock.Close()
	reassembler.Reset()

	b.peersMu.Lock()
	delete(b.peers, id)
	b.peersMu.Unlock()

	b.disconnects <- sock
}

// closeAllPeers closes every currently connected peer's socket, which
// unblocks the corresponding handleConnection goroutine's blocking Read so
// Start's accept loop can observe b.wg reaching zero and return.
func (b *Broker) closeAllPeers() {
	b.peersMu.Lock()
	defer b.peersMu.Unlock()
	for _, s := range b.peers {
		s.Close()
	}
}

// run is the single routing goroutine: every registry and queue mutation
// happens here, and only here (spec.md §5).
func (b *Broker) run() {
	for {
		select {
		case f, ok := <-b.inbox:
			if !ok {
				return
			}
			if err := b.router.Route(f.raw, f.from); err != nil {
				if b.cfg.Debug {
					log.Printf("broker: routing error from %s: %v", f.from.ID(), err)
				}
				f.from.Close()
			}
		case s := <-b.disconnects:
			b.handleDisconnect(s)
		}
	}
}

func (b *Broker) handleDisconnect(s *socket) {
	ch, events := b.reg.UnregisterBySocket(s)
	if ch != nil {
		redelivered := b.queues.RemoveMember(ch.Name)
		b.metrics.AddPullRedeliveries(redelivered)
		b.metrics.ChannelUnregistered()
		if b.cfg.Debug {
			log.Printf("broker: %s unregistered channel %q", s.ID(), ch.Name)
		}
	}
	b.router.DeliverMonitorEvents(events)
}

// Shutdown stops accepting connections and waits for in-flight peers to be
// torn down. Prefer cancelling the context passed to Start for ordinary
// shutdown; Shutdown exists for callers that started the broker without
// retaining that cancel function.
func (b *Broker) Shutdown(ctx context.Context) error {
	if b.listener != nil {
		b.listener.Close()
	}
	b.closeAllPeers()
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
