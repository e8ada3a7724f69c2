// Package registry implements the channel registry: tracking registered
// channels, their owning sockets, and their topic subscriptions, per
// spec.md §4.3. It is deliberately lock-free — every method is called only
// from the broker's single routing goroutine (spec.md §5), so the registry
// owns its maps outright instead of guarding them with a mutex the way the
// teacher broker guards its connections/topics/pipes maps.
package registry

// Socket is the narrow interface the registry needs from a live peer
// connection: an identity, a way to push pre-encoded frames to it, and a
// way to close it. The concrete implementation (a *net.Conn wrapper) lives
// in internal/broker; registry and queue only ever see this interface,
// never net.Conn itself.
type Socket interface {
	ID() string
	Send(frame []byte) error
	Close() error
}

// Channel is a named endpoint registered by a connected peer (spec.md §3).
type Channel struct {
	Name   string
	Socket Socket

	responseTopics  map[string]struct{}
	pullTopics      map[string]map[string]interface{}
	subscribeTopics map[string]map[string]interface{}
}

func newChannel(name string, socket Socket) *Channel {
	return &Channel{
		Name:            name,
		Socket:          socket,
		responseTopics:  make(map[string]struct{}),
		pullTopics:      make(map[string]map[string]interface{}),
		subscribeTopics: make(map[string]map[string]interface{}),
	}
}

// HasResponseTopic reports whether this channel accepts req traffic on topic.
func (c *Channel) HasResponseTopic(topic string) bool {
	_, ok := c.responseTopics[topic]
	return ok
}

// PullTopics returns the set of topics this channel pulls from.
func (c *Channel) PullTopics() []string {
	topics := make([]string, 0, len(c.pullTopics))
	for t := range c.pullTopics {
		topics = append(topics, t)
	}
	return topics
}

// SubscribeTopics returns the set of topics this channel subscribes to.
func (c *Channel) SubscribeTopics() []string {
	topics := make([]string, 0, len(c.subscribeTopics))
	for t := range c.subscribeTopics {
		topics = append(topics, t)
	}
	return topics
}
