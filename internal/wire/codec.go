package wire

import (
	"encoding/binary"
	"fmt"
)

// field identifies one header slot in a per-kind schema.
type field uint8

const (
	fID field = iota
	fKind
	fContentType
	fError
	fTopic
	fSource
	fTarget
	fItemCount
)

// fieldOrder is the fixed per-kind header schema from spec.md §4.1. Every
// kind starts with (id, kind), which is what lets decode read just those two
// fields generically before selecting the rest of the schema.
var fieldOrder = map[Kind][]field{
	KindReq:  {fID, fKind, fContentType, fError, fTopic, fSource, fTarget},
	KindRes:  {fID, fKind, fContentType, fError, fTopic, fSource, fTarget},
	KindSReq: {fID, fKind, fContentType, fError, fTopic, fSource, fTarget},
	KindPub:  {fID, fKind, fContentType, fTopic, fSource, fTarget},
	KindSub:  {fID, fKind, fContentType, fTopic, fSource},
	KindPush: {fID, fKind, fContentType, fTopic, fSource, fTarget, fItemCount},
	KindPull: {fID, fKind, fContentType, fTopic, fSource},
	KindAck:  {fID, fKind, fTopic},
	KindMon:  {fID, fKind, fContentType},
}

// minFrameLen is the smallest legal frame: 4(totalLen)+4(headerLen), with a
// zero-length header and payload never actually occurring for a real
// message, but required by the frame length law (spec.md §8 invariant 2).
const minFrameLen = 8

// Encoder builds wire frames. It keeps one reusable scratch buffer for
// header assembly, reset before every Encode call — safe only because the
// broker's routing loop that owns an Encoder is single-threaded cooperative
// (spec.md §5, §9 Design Notes). The frame Encode returns is always a fresh
// allocation distinct from the scratch buffer, so callers may hand it to a
// socket write without it being mutated out from under them.
type Encoder struct {
	scratch []byte
}

// NewEncoder returns a ready-to-use Encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Encode serializes m into a complete, self-contained wire frame.
func (e *Encoder) Encode(m *Message) ([]byte, error) {
	if err := m.validate(); err != nil {
		return nil, err
	}

	order, ok := fieldOrder[m.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%02x", ErrDecodeInvalidKind, uint8(m.Kind))
	}

	if m.Kind == KindPush {
		m.ItemCount = uint32(len(m.Items))
	}

	e.scratch = e.scratch[:0]
	for _, f := range order {
		switch f {
		case fID:
			e.scratch = appendUint64(e.scratch, m.ID)
		case fKind:
			e.scratch = append(e.scratch, uint8(m.Kind))
		case fContentType:
			e.scratch = append(e.scratch, uint8(m.ContentType))
		case fError:
			e.scratch = append(e.scratch, uint8(m.Error))
		case fTopic:
			e.scratch = putString(e.scratch, m.Topic)
		case fSource:
			e.scratch = putString(e.scratch, m.Source)
		case fTarget:
			e.scratch = putString(e.scratch, m.Target)
		case fItemCount:
			e.scratch = appendUint32(e.scratch, m.ItemCount)
		}
	}
	headerLen := len(e.scratch)

	payload, err := encodePayload(m)
	if err != nil {
		return nil, err
	}

	total := minFrameLen + headerLen + len(payload)
	frame := make([]byte, total)
	binary.BigEndian.PutUint32(frame[0:4], uint32(total))
	binary.BigEndian.PutUint32(frame[4:8], uint32(headerLen))
	copy(frame[8:8+headerLen], e.scratch)
	copy(frame[8+headerLen:], payload)
	return frame, nil
}

func encodePayload(m *Message) ([]byte, error) {
	switch m.Kind {
	case KindAck:
		return nil, nil
	case KindPush:
		var out []byte
		for _, item := range m.Items {
			data := item.Bytes()
			out = appendUint32(out, uint32(len(data)))
			out = append(out, data...)
		}
		return out, nil
	default:
		if m.Payload == nil {
			return nil, nil
		}
		return m.Payload.Bytes(), nil
	}
}

// Decode parses one complete, self-contained wire frame (exactly as
// produced by Encode, or as sliced out by the frame reassembler) into a
// Message.
func Decode(frame []byte) (*Message, error) {
	if len(frame) < minFrameLen {
		return nil, fmt.Errorf("%w: frame shorter than 8 bytes", ErrDecodeMalformedFrame)
	}
	totalLen := binary.BigEndian.Uint32(frame[0:4])
	headerLen := binary.BigEndian.Uint32(frame[4:8])
	if totalLen < minFrameLen {
		return nil, fmt.Errorf("%w: totalLen %d < 8", ErrDecodeMalformedFrame, totalLen)
	}
	if uint32(len(frame)) != totalLen {
		return nil, fmt.Errorf("%w: frame length %d does not match totalLen %d", ErrDecodeMalformedFrame, len(frame), totalLen)
	}
	if headerLen > totalLen-minFrameLen {
		return nil, fmt.Errorf("%w: headerLen %d exceeds totalLen-8 (%d)", ErrDecodeMalformedFrame, headerLen, totalLen-minFrameLen)
	}

	header := frame[8 : 8+headerLen]
	payload := frame[8+headerLen:]

	if len(header) < 9 {
		return nil, fmt.Errorf("%w: header too short for id+kind", ErrDecodeMalformedFrame)
	}
	id := binary.BigEndian.Uint64(header[0:8])
	kind := Kind(header[8])
	if !kind.valid() {
		return nil, fmt.Errorf("%w: 0x%02x", ErrDecodeInvalidKind, uint8(kind))
	}
	order, ok := fieldOrder[kind]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%02x", ErrDecodeInvalidKind, uint8(kind))
	}

	m := &Message{ID: id, Kind: kind}
	pos := 9
	for _, f := range order[2:] { // fID, fKind already consumed above
		switch f {
		case fContentType:
			if pos >= len(header) {
				return nil, fmt.Errorf("%w: truncated contentType", ErrDecodeMalformedFrame)
			}
			m.ContentType = ContentType(header[pos])
			pos++
		case fError:
			if pos >= len(header) {
				return nil, fmt.Errorf("%w: truncated error code", ErrDecodeMalformedFrame)
			}
			m.Error = ErrorCode(header[pos])
			pos++
		case fTopic:
			s, n, err := readString(header[pos:])
			if err != nil {
				return nil, err
			}
			m.Topic = s
			pos += n
		case fSource:
			s, n, err := readString(header[pos:])
			if err != nil {
				return nil, err
			}
			m.Source = s
			pos += n
		case fTarget:
			s, n, err := readString(header[pos:])
			if err != nil {
				return nil, err
			}
			m.Target = s
			pos += n
		case fItemCount:
			if pos+4 > len(header) {
				return nil, fmt.Errorf("%w: truncated itemCount", ErrDecodeMalformedFrame)
			}
			m.ItemCount = binary.BigEndian.Uint32(header[pos : pos+4])
			pos += 4
		}
	}
	if pos != len(header) {
		return nil, fmt.Errorf("%w: %d trailing header bytes", ErrDecodeMalformedFrame, len(header)-pos)
	}
	if !m.ContentType.valid() && kind != KindAck {
		return nil, fmt.Errorf("%w: 0x%02x", ErrDecodeInvalidContentType, uint8(m.ContentType))
	}

	if err := decodePayload(m, payload); err != nil {
		return nil, err
	}
	return m, nil
}

func decodePayload(m *Message, payload []byte) error {
	switch m.Kind {
	case KindAck:
		return nil
	case KindPush:
		items := make([]Content, 0, m.ItemCount)
		rest := payload
		for i := uint32(0); i < m.ItemCount; i++ {
			if len(rest) < 4 {
				return fmt.Errorf("%w: truncated push item length", ErrDecodeMalformedFrame)
			}
			itemLen := binary.BigEndian.Uint32(rest[0:4])
			rest = rest[4:]
			if uint64(itemLen) > uint64(len(rest)) {
				return fmt.Errorf("%w: push item length %d exceeds remaining payload", ErrDecodeMalformedFrame, itemLen)
			}
			content, err := decodeContent(m.ContentType, rest[:itemLen])
			if err != nil {
				return err
			}
			items = append(items, content)
			rest = rest[itemLen:]
		}
		if len(rest) != 0 {
			return fmt.Errorf("%w: %d trailing payload bytes after %d push items", ErrDecodeMalformedFrame, len(rest), m.ItemCount)
		}
		m.Items = items
		return nil
	default:
		if len(payload) == 0 {
			return nil
		}
		content, err := decodeContent(m.ContentType, payload)
		if err != nil {
			return err
		}
		m.Payload = content
		return nil
	}
}

// PeekTotalLen reads the totalLen prefix from the start of buf without
// consuming it, for use by the frame reassembler. ok is false if buf does
// not yet contain the 4-byte prefix.
func PeekTotalLen(buf []byte) (totalLen uint32, ok bool) {
	if len(buf) < 4 {
		return 0, false
	}
	return binary.BigEndian.Uint32(buf[0:4]), true
}

func appendUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}
