package wire

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Content is the small sum type spec.md's design notes recommend in place of
// an untyped payload blob: exactly one of RawContent, StringContent, or
// JSONContent. Keeping it as a tagged union (rather than erasing to []byte)
// lets the codec refuse malformed JSON or non-UTF-8 strings at decode time,
// instead of deferring that failure to whatever later tries to interpret the
// bytes.
type Content interface {
	Type() ContentType
	Bytes() []byte
	isContent()
}

// RawContent passes payload bytes through untouched.
type RawContent struct {
	Data []byte
}

func (RawContent) Type() ContentType { return ContentRaw }
func (c RawContent) Bytes() []byte   { return c.Data }
func (RawContent) isContent()        {}

// StringContent is a UTF-8 string payload.
type StringContent struct {
	Text string
}

func (StringContent) Type() ContentType { return ContentString }
func (c StringContent) Bytes() []byte   { return []byte(c.Text) }
func (StringContent) isContent()        {}

// JSONContent is a UTF-8 JSON payload, validated as well-formed JSON at
// construction/decode time.
type JSONContent struct {
	Raw json.RawMessage
}

func (JSONContent) Type() ContentType { return ContentJSON }
func (c JSONContent) Bytes() []byte   { return []byte(c.Raw) }
func (JSONContent) isContent()        {}

// NewJSONContent marshals v and wraps the result as validated JSON content.
func NewJSONContent(v interface{}) (JSONContent, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return JSONContent{}, fmt.Errorf("wire: marshal json content: %w", err)
	}
	return JSONContent{Raw: json.RawMessage(data)}, nil
}

// Unmarshal decodes JSON content into v.
func (c JSONContent) Unmarshal(v interface{}) error {
	return json.Unmarshal(c.Raw, v)
}

// decodeContent builds a Content value from raw wire bytes tagged with ct,
// failing decode if the bytes don't actually match what ct promises.
func decodeContent(ct ContentType, data []byte) (Content, error) {
	switch ct {
	case ContentRaw:
		return RawContent{Data: data}, nil
	case ContentString:
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%w: string payload is not valid UTF-8", ErrDecodeInvalidContentType)
		}
		return StringContent{Text: string(data)}, nil
	case ContentJSON:
		if !json.Valid(data) {
			return nil, fmt.Errorf("%w: payload is not well-formed JSON", ErrDecodeInvalidContentType)
		}
		return JSONContent{Raw: json.RawMessage(data)}, nil
	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrDecodeInvalidContentType, uint8(ct))
	}
}
