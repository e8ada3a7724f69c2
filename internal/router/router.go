package router

import (
	"fmt"

	"github.com/shayzogo/fastmq/internal/metrics"
	"github.com/shayzogo/fastmq/internal/queue"
	"github.com/shayzogo/fastmq/internal/registry"
	"github.com/shayzogo/fastmq/internal/wire"
)

// Router is the single classifier the broker's routing goroutine calls for
// every decoded inbound frame. It owns no sockets; registry.Socket is the
// only thing it writes to, via the frame it builds or forwards.
type Router struct {
	registry   *registry.Registry
	queues     *queue.Manager
	encoder    *wire.Encoder
	brokerName string
	logf       func(string, ...interface{})
	metrics    *metrics.Metrics

	nextDeliveryID uint64
}

// New returns a Router wired to reg and queues, answering internal sreq/req
// traffic addressed to brokerName. logf receives routing diagnostics (ack
// mismatches, delivery failures); pass a no-op for silent operation.
func New(reg *registry.Registry, queues *queue.Manager, brokerName string, logf func(string, ...interface{})) *Router {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	return &Router{
		registry:   reg,
		queues:     queues,
		encoder:    wire.NewEncoder(),
		brokerName: brokerName,
		logf:       logf,
		metrics:    metrics.New(),
	}
}

// WithMetrics points the router at m instead of the private counter set it
// creates by default, so the broker can surface one shared Snapshot.
func (r *Router) WithMetrics(m *metrics.Metrics) *Router {
	r.metrics = m
	return r
}

// Route decodes raw and dispatches it per spec.md §4.5. A returned error
// means the frame was unroutable at the protocol level (malformed, unknown
// kind) and the caller (internal/broker) should close the originating peer.
func (r *Router) Route(raw []byte, from registry.Socket) error {
	msg, err := wire.Decode(raw)
	if err != nil {
		return err
	}
	r.metrics.MessageRouted()

	switch msg.Kind {
	case wire.KindReq:
		return r.handleReq(msg, raw, from)
	case wire.KindSReq:
		return r.handleSReq(msg, raw, from)
	case wire.KindRes:
		return r.handleRes(msg, raw, from)
	case wire.KindPush:
		return r.handlePush(msg, from)
	case wire.KindPub:
		return r.handlePub(msg, raw, from)
	case wire.KindAck:
		return r.handleAck(msg)
	case wire.KindSub, wire.KindPull:
		return fmt.Errorf("router: kind %s is never sent as a top-level message", msg.Kind)
	default:
		return fmt.Errorf("router: unhandled kind %s", msg.Kind)
	}
}

func (r *Router) handleReq(msg *wire.Message, raw []byte, from registry.Socket) error {
	if msg.Target != r.brokerName {
		return r.forwardOrReject(msg, raw, from)
	}
	return r.dispatchBrokerTopic(msg, raw, from, true)
}

func (r *Router) handleSReq(msg *wire.Message, raw []byte, from registry.Socket) error {
	return r.dispatchBrokerTopic(msg, raw, from, false)
}

func (r *Router) forwardOrReject(msg *wire.Message, raw []byte, from registry.Socket) error {
	ch, ok := r.registry.ChannelByName(msg.Target)
	if !ok {
		return r.replyError(from, msg, wire.ErrTargetChannelNonexist)
	}
	return ch.Socket.Send(raw)
}

// dispatchBrokerTopic handles a req/sreq addressed at the broker itself. If
// topic is a known internal topic, its handler runs. Otherwise, for req
// only (allowFallback), the registry's broker-wide findResponseTopic scan
// is tried so a client that doesn't know the exact channel name can still
// reach a registered responder by topic alone (spec.md §4.5).
func (r *Router) dispatchBrokerTopic(msg *wire.Message, raw []byte, from registry.Socket, allowFallback bool) error {
	if h, ok := internalHandlers[msg.Topic]; ok {
		return h(r, msg, from)
	}
	if allowFallback {
		if ch := r.registry.FindResponseTopic(r.brokerName, msg.Topic); ch != nil {
			return ch.Socket.Send(raw)
		}
	}
	return r.replyError(from, msg, wire.ErrTopicNonexistent)
}

func (r *Router) handleRes(msg *wire.Message, raw []byte, from registry.Socket) error {
	if msg.Target != r.brokerName {
		ch, ok := r.registry.ChannelByName(msg.Target)
		if !ok {
			// The originator is gone; the response is dropped silently
			// (spec.md §5, cancellation via closing the originator socket).
			return nil
		}
		return ch.Socket.Send(raw)
	}
	// Only broker-originated req would have a waiter keyed by id; this
	// broker never originates one, so there is nothing to deliver to.
	r.logf("router: unexpected res addressed to broker, id=%d topic=%q", msg.ID, msg.Topic)
	return nil
}

// handlePush enqueues each item of a push message into the pull queue for
// its topic, delivering it as a single-item push to the worker chosen by
// round robin with a fresh broker-assigned id (spec.md §4.4).
func (r *Router) handlePush(msg *wire.Message, from registry.Socket) error {
	q := r.queues.PullQueueFor(wire.KindPull, msg.Topic)
	for _, item := range msg.Items {
		r.nextDeliveryID++
		delivery := wire.NewPush(r.nextDeliveryID, msg.ContentType, msg.Topic, msg.Source, "", []wire.Content{item})
		frame, err := r.encoder.Encode(delivery)
		if err != nil {
			return err
		}
		if _, err := q.Push(r.nextDeliveryID, frame); err != nil {
			r.logf("router: push delivery failed for topic %q: %v", msg.Topic, err)
		}
	}
	return nil
}

// handlePub fans a pub message out to every current subscriber of its
// topic, forwarding the exact received bytes (no byte-exactness invariant
// requires this for pub, but re-encoding N times for N subscribers is pure
// waste when the bytes are already a valid frame).
func (r *Router) handlePub(msg *wire.Message, raw []byte, from registry.Socket) error {
	q := r.queues.SubQueueFor(wire.KindSub, msg.Topic)
	q.Publish(raw)
	return nil
}

// handleAck resolves an in-flight pull item. An ack for an id that is not
// in flight (late, duplicate, or from a redelivered-elsewhere item) is
// logged and otherwise ignored.
func (r *Router) handleAck(msg *wire.Message) error {
	if err := r.queues.AckPull(wire.KindPull, msg.Topic, msg.ID); err != nil {
		r.logf("router: %v", err)
	}
	return nil
}

func (r *Router) replyError(from registry.Socket, req *wire.Message, code wire.ErrorCode) error {
	return r.replyJSON(from, req, map[string]interface{}{}, code)
}

func (r *Router) replyJSON(from registry.Socket, req *wire.Message, payload interface{}, code wire.ErrorCode) error {
	content, err := wire.NewJSONContent(payload)
	if err != nil {
		return err
	}
	resp := wire.NewResponse(req.ID, wire.ContentJSON, req.Topic, r.brokerName, req.Source, content, code)
	return r.send(from, resp)
}

func (r *Router) send(to registry.Socket, m *wire.Message) error {
	frame, err := r.encoder.Encode(m)
	if err != nil {
		return err
	}
	return to.Send(frame)
}

// DeliverMonitorEvents encodes and sends one mon frame per event, to each
// event's observer socket. Exported so internal/broker can call it for the
// events UnregisterBySocket returns on disconnect, alongside the ones
// internal topic handlers already deliver synchronously.
func (r *Router) DeliverMonitorEvents(events []registry.MonitorEvent) {
	for _, ev := range events {
		r.deliverMonitorEvent(ev)
	}
}

func (r *Router) deliverMonitorEvent(ev registry.MonitorEvent) {
	payload := map[string]interface{}{
		"event":   ev.Event,
		"channel": ev.Channel,
		"pattern": ev.Pattern,
	}
	content, err := wire.NewJSONContent(payload)
	if err != nil {
		r.logf("router: encode monitor event: %v", err)
		return
	}
	r.nextDeliveryID++
	mon := wire.NewMon(r.nextDeliveryID, wire.ContentJSON, content)
	if err := r.send(ev.Observer, mon); err != nil {
		r.logf("router: deliver monitor event to %s: %v", ev.Observer.ID(), err)
	}
}
