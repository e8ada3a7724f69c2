package wire

import "fmt"

// Message is the single decoded unit exchanged between the codec and the
// router. Which fields are meaningful depends on Kind; see fieldOrder in
// codec.go for the authoritative per-kind header schema (spec.md §4.1).
type Message struct {
	ID          uint64
	Kind        Kind
	ContentType ContentType
	Error       ErrorCode
	Topic       string
	Source      string
	Target      string

	// ItemCount is the push-only item count header field. Encode derives
	// it from len(Items); decode populates it from the wire header before
	// parsing that many framed items out of the payload.
	ItemCount uint32

	// Payload carries the single-payload content for every kind except
	// push, which instead populates Items.
	Payload Content

	// Items carries the itemCount framed payload items of a push message.
	Items []Content
}

// IsError reports whether a res message carries the given error code.
// Resolves spec.md §9's open question about the original's
// ResponseMessage.isError comparing against an undefined local: here the
// comparison is just a typed equality check, since ErrorCode is a Go
// constant rather than a dynamically resolved name.
func (m *Message) IsError(code ErrorCode) bool {
	return m.Kind == KindRes && m.Error == code
}

// NewRequest builds a req/sreq message addressed at topic on target.
func NewRequest(id uint64, kind Kind, ct ContentType, topic, source, target string, payload Content) *Message {
	return &Message{ID: id, Kind: kind, ContentType: ct, Topic: topic, Source: source, Target: target, Payload: payload}
}

// NewResponse builds a res message, optionally carrying an error code.
func NewResponse(id uint64, ct ContentType, topic, source, target string, payload Content, errCode ErrorCode) *Message {
	return &Message{ID: id, Kind: KindRes, ContentType: ct, Error: errCode, Topic: topic, Source: source, Target: target, Payload: payload}
}

// NewPush builds a push message carrying items.
func NewPush(id uint64, ct ContentType, topic, source, target string, items []Content) *Message {
	return &Message{ID: id, Kind: KindPush, ContentType: ct, Topic: topic, Source: source, Target: target, Items: items}
}

// NewPub builds a pub message.
func NewPub(id uint64, ct ContentType, topic, source, target string, payload Content) *Message {
	return &Message{ID: id, Kind: KindPub, ContentType: ct, Topic: topic, Source: source, Target: target, Payload: payload}
}

// NewAck builds an ack message for a previously dispatched pull item.
func NewAck(id uint64, topic string) *Message {
	return &Message{ID: id, Kind: KindAck, Topic: topic}
}

// NewMon builds a mon (monitor event) message.
func NewMon(id uint64, ct ContentType, payload Content) *Message {
	return &Message{ID: id, Kind: KindMon, ContentType: ct, Payload: payload}
}

func (m *Message) validate() error {
	if !m.Kind.valid() {
		return fmt.Errorf("%w: 0x%02x", ErrDecodeInvalidKind, uint8(m.Kind))
	}
	switch m.Kind {
	case KindAck:
		return nil
	default:
		if !m.ContentType.valid() {
			return fmt.Errorf("%w: 0x%02x", ErrDecodeInvalidContentType, uint8(m.ContentType))
		}
	}
	return nil
}
