package registry

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Monitor is a binding (pattern, observer socket): spec.md §3.
type Monitor struct {
	Pattern     string
	PatternKind PatternKind
	Observer    Socket

	matcher *matcher
}

// MonitorEvent describes one channel lifecycle event that matched a live
// monitor's pattern. The registry only computes these; it never performs
// socket I/O itself (registration/unregistration are reported back to the
// caller — internal/router — which is responsible for actually encoding and
// sending the mon frame).
type MonitorEvent struct {
	Observer Socket
	Pattern  string
	Event    string // "register" or "unregister"
	Channel  string
}

const (
	EventRegister   = "register"
	EventUnregister = "unregister"
)

// ErrRegisterFail is returned when a requested exact channel name is
// already taken (spec.md §7, ErrorCode RegisterFail).
var ErrRegisterFail = fmt.Errorf("registry: channel name already registered")

// Registry tracks every live channel, keyed by name and by owning socket,
// plus the monitors watching channel lifecycle events. Every method must be
// called from a single goroutine (spec.md §5) — there is no internal
// locking.
type Registry struct {
	channels map[string]*Channel
	byOwner  map[Socket]*Channel
	monitors []*Monitor
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		channels: make(map[string]*Channel),
		byOwner:  make(map[Socket]*Channel),
	}
}

// Register creates a new channel for socket under a name derived from
// requestedName, per spec.md §4.3:
//   - "" generates a fresh id for the whole name.
//   - a name containing '#' gets each '#' replaced by a generated id
//     fragment, retried until the result is unique.
//   - any other exact name must not already be registered.
func (r *Registry) Register(requestedName string, socket Socket) (*Channel, []MonitorEvent, error) {
	if _, owned := r.byOwner[socket]; owned {
		return nil, nil, fmt.Errorf("registry: socket already owns a channel")
	}

	name, err := r.resolveName(requestedName)
	if err != nil {
		return nil, nil, err
	}

	ch := newChannel(name, socket)
	r.channels[name] = ch
	r.byOwner[socket] = ch

	events := r.notify(EventRegister, name)
	return ch, events, nil
}

func (r *Registry) resolveName(requested string) (string, error) {
	switch {
	case requested == "":
		for {
			candidate := genID()
			if _, exists := r.channels[candidate]; !exists {
				return candidate, nil
			}
		}
	case strings.Contains(requested, "#"):
		for {
			candidate := substituteHashes(requested)
			if _, exists := r.channels[candidate]; !exists {
				return candidate, nil
			}
		}
	default:
		if _, exists := r.channels[requested]; exists {
			return "", ErrRegisterFail
		}
		return requested, nil
	}
}

func substituteHashes(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == '#' {
			b.WriteString(genID())
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func genID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// ChannelByName returns the live channel with the given name, if any.
func (r *Registry) ChannelByName(name string) (*Channel, bool) {
	ch, ok := r.channels[name]
	return ch, ok
}

// ChannelBySocket returns the channel owned by socket, if any.
func (r *Registry) ChannelBySocket(socket Socket) (*Channel, bool) {
	ch, ok := r.byOwner[socket]
	return ch, ok
}

// AddResponse records that channel name accepts req traffic on topic. It
// returns the channel, or nil if the name is not a live channel.
func (r *Registry) AddResponse(name, topic string) *Channel {
	ch, ok := r.channels[name]
	if !ok {
		return nil
	}
	ch.responseTopics[topic] = struct{}{}
	return ch
}

// AddPull records that channel name pulls work items from topic, with
// caller-opaque options carried verbatim (spec.md §4.4).
func (r *Registry) AddPull(name, topic string, options map[string]interface{}) *Channel {
	ch, ok := r.channels[name]
	if !ok {
		return nil
	}
	ch.pullTopics[topic] = options
	return ch
}

// AddSubscribe records that channel name subscribes to fan-out on topic.
func (r *Registry) AddSubscribe(name, topic string, options map[string]interface{}) *Channel {
	ch, ok := r.channels[name]
	if !ok {
		return nil
	}
	ch.subscribeTopics[topic] = options
	return ch
}

// FindResponseTopic resolves a req's target: if targetName names a live
// channel that registered topic as a response topic, that channel wins;
// otherwise every live channel is searched for one that did (the
// broker-wide fallback used when a req names the broker itself as target).
func (r *Registry) FindResponseTopic(targetName, topic string) *Channel {
	if ch, ok := r.channels[targetName]; ok && ch.HasResponseTopic(topic) {
		return ch
	}
	for _, ch := range r.channels {
		if ch.HasResponseTopic(topic) {
			return ch
		}
	}
	return nil
}

// FindChannelNames returns every live channel name matching pattern under
// the given kind (literal, glob, or regexp).
func (r *Registry) FindChannelNames(pattern string, kind PatternKind) ([]string, error) {
	m, err := newMatcher(pattern, kind)
	if err != nil {
		return nil, err
	}
	var names []string
	for name := range r.channels {
		if m.match(name) {
			names = append(names, name)
		}
	}
	return names, nil
}

// AddMonitor registers observer to receive mon events for every future
// register/unregister whose channel name matches pattern, and returns the
// channels that already match right now.
func (r *Registry) AddMonitor(pattern string, kind PatternKind, observer Socket) (matches []string, err error) {
	m, err := newMatcher(pattern, kind)
	if err != nil {
		return nil, err
	}
	r.monitors = append(r.monitors, &Monitor{Pattern: pattern, PatternKind: kind, Observer: observer, matcher: m})

	for name := range r.channels {
		if m.match(name) {
			matches = append(matches, name)
		}
	}
	return matches, nil
}

// RemoveMonitorsForSocket drops every monitor owned by observer (called when
// that peer disconnects).
func (r *Registry) RemoveMonitorsForSocket(observer Socket) {
	kept := r.monitors[:0]
	for _, mon := range r.monitors {
		if mon.Observer != observer {
			kept = append(kept, mon)
		}
	}
	r.monitors = kept
}

// UnregisterBySocket removes the channel owned by socket (if any), cascading
// to the monitor match set, and returns the removed channel plus the
// monitor events that now fire.
func (r *Registry) UnregisterBySocket(socket Socket) (*Channel, []MonitorEvent) {
	ch, ok := r.byOwner[socket]
	if !ok {
		return nil, nil
	}
	delete(r.byOwner, socket)
	delete(r.channels, ch.Name)
	r.RemoveMonitorsForSocket(socket)

	events := r.notify(EventUnregister, ch.Name)
	return ch, events
}

func (r *Registry) notify(event, channelName string) []MonitorEvent {
	var events []MonitorEvent
	for _, mon := range r.monitors {
		if mon.matcher.match(channelName) {
			events = append(events, MonitorEvent{
				Observer: mon.Observer,
				Pattern:  mon.Pattern,
				Event:    event,
				Channel:  channelName,
			})
		}
	}
	return events
}
