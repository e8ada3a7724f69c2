package router

import (
	"fmt"

	"github.com/shayzogo/fastmq/internal/registry"
	"github.com/shayzogo/fastmq/internal/wire"
)

// Internal request topics, per spec.md §6.
const (
	topicRegister             = "register"
	topicAddResponseListener  = "addResponseListener"
	topicAddPullListener      = "addPullListener"
	topicAddSubscribeListener = "addSubscribeListener"
	topicGetChannels          = "getChannels"
	topicWatchChannels        = "watchChannels"
)

type internalHandler func(r *Router, msg *wire.Message, from registry.Socket) error

var internalHandlers = map[string]internalHandler{
	topicRegister:             handleRegister,
	topicAddResponseListener:  handleAddResponseListener,
	topicAddPullListener:      handleAddPullListener,
	topicAddSubscribeListener: handleAddSubscribeListener,
	topicGetChannels:          handleGetChannels,
	topicWatchChannels:        handleWatchChannels,
}

// decodeJSON unmarshals msg's JSON payload into v, failing if the payload
// is missing or not JSON content.
func decodeJSON(msg *wire.Message, v interface{}) error {
	jc, ok := msg.Payload.(wire.JSONContent)
	if !ok {
		return fmt.Errorf("router: expected a JSON payload for topic %q", msg.Topic)
	}
	return jc.Unmarshal(v)
}

// handleRegister implements the register internal topic. The requested
// name travels in the req's own source field, since the channel does not
// exist yet to be named any other way (spec.md §6).
func handleRegister(r *Router, msg *wire.Message, from registry.Socket) error {
	ch, events, err := r.registry.Register(msg.Source, from)
	if err != nil {
		r.metrics.RegisterFailure()
		return r.replyJSON(from, msg, map[string]interface{}{}, wire.ErrRegisterFail)
	}
	r.metrics.ChannelRegistered()
	r.DeliverMonitorEvents(events)
	return r.replyJSON(from, msg, map[string]interface{}{"channelName": ch.Name}, wire.ErrNone)
}

func handleAddResponseListener(r *Router, msg *wire.Message, from registry.Socket) error {
	var req struct {
		Topic string `json:"topic"`
	}
	if err := decodeJSON(msg, &req); err != nil || req.Topic == "" {
		return r.replyJSON(from, msg, map[string]interface{}{"result": false}, wire.ErrInvalidParameter)
	}
	ch, ok := r.registry.ChannelBySocket(from)
	if !ok {
		return r.replyJSON(from, msg, map[string]interface{}{"result": false}, wire.ErrInvalidParameter)
	}
	got := r.registry.AddResponse(ch.Name, req.Topic)
	return r.replyJSON(from, msg, map[string]interface{}{"result": got != nil}, wire.ErrNone)
}

func handleAddPullListener(r *Router, msg *wire.Message, from registry.Socket) error {
	var req struct {
		Topic   string                 `json:"topic"`
		Options map[string]interface{} `json:"options"`
	}
	if err := decodeJSON(msg, &req); err != nil || req.Topic == "" {
		return r.replyJSON(from, msg, map[string]interface{}{"result": false}, wire.ErrInvalidParameter)
	}
	ch, ok := r.registry.ChannelBySocket(from)
	if !ok {
		return r.replyJSON(from, msg, map[string]interface{}{"result": false}, wire.ErrInvalidParameter)
	}
	got := r.registry.AddPull(ch.Name, req.Topic, req.Options)
	if got != nil {
		r.queues.PullQueueFor(wire.KindPull, req.Topic).AddMember(&channelMember{name: ch.Name, socket: ch.Socket})
	}
	return r.replyJSON(from, msg, map[string]interface{}{"result": got != nil}, wire.ErrNone)
}

func handleAddSubscribeListener(r *Router, msg *wire.Message, from registry.Socket) error {
	var req struct {
		Topic   string                 `json:"topic"`
		Options map[string]interface{} `json:"options"`
	}
	if err := decodeJSON(msg, &req); err != nil || req.Topic == "" {
		return r.replyJSON(from, msg, map[string]interface{}{"result": false}, wire.ErrInvalidParameter)
	}
	ch, ok := r.registry.ChannelBySocket(from)
	if !ok {
		return r.replyJSON(from, msg, map[string]interface{}{"result": false}, wire.ErrInvalidParameter)
	}
	got := r.registry.AddSubscribe(ch.Name, req.Topic, req.Options)
	if got != nil {
		r.queues.SubQueueFor(wire.KindSub, req.Topic).AddMember(&channelMember{name: ch.Name, socket: ch.Socket})
	}
	return r.replyJSON(from, msg, map[string]interface{}{"result": got != nil}, wire.ErrNone)
}

func handleGetChannels(r *Router, msg *wire.Message, from registry.Socket) error {
	var req struct {
		ChannelName string `json:"channelName"`
		Type        string `json:"type"`
	}
	if err := decodeJSON(msg, &req); err != nil {
		return r.replyJSON(from, msg, map[string]interface{}{}, wire.ErrInvalidParameter)
	}
	kind := patternKindFromType(req.Type)
	names, err := r.registry.FindChannelNames(req.ChannelName, kind)
	if err != nil {
		return r.replyJSON(from, msg, map[string]interface{}{}, wire.ErrInvalidParameter)
	}
	if names == nil {
		names = []string{}
	}
	return r.replyJSON(from, msg, map[string]interface{}{"channels": names}, wire.ErrNone)
}

func handleWatchChannels(r *Router, msg *wire.Message, from registry.Socket) error {
	var req struct {
		ChannelName string `json:"channelName"`
	}
	if err := decodeJSON(msg, &req); err != nil {
		return r.replyJSON(from, msg, map[string]interface{}{"result": false}, wire.ErrInvalidParameter)
	}
	// watchChannels carries no explicit pattern kind (spec.md §6 lists only
	// channelName), so it always matches as a glob; a glob with no wildcard
	// characters still matches just the exact name. (getChannels, by
	// contrast, treats an unrecognized/empty type as a literal name.)
	matches, err := r.registry.AddMonitor(req.ChannelName, registry.PatternGlob, from)
	if err != nil {
		return r.replyJSON(from, msg, map[string]interface{}{"result": false}, wire.ErrInvalidParameter)
	}
	if matches == nil {
		matches = []string{}
	}
	return r.replyJSON(from, msg, map[string]interface{}{
		"result":         true,
		"channelPattern": req.ChannelName,
		"channelNames":   matches,
	}, wire.ErrNone)
}

func patternKindFromType(t string) registry.PatternKind {
	switch t {
	case "glob":
		return registry.PatternGlob
	case "regexp":
		return registry.PatternRegexp
	default:
		return registry.PatternLiteral
	}
}
