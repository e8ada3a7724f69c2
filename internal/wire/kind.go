// Package wire implements the fastmq binary frame codec: the self-describing
// envelope every message takes on a TCP or Unix-domain stream connection.
//
// A frame is:
//
//	[ uint32 BE totalLen ][ uint32 BE headerLen ][ header bytes ][ payload bytes ]
//
// totalLen counts the whole frame, including its own four bytes. headerLen is
// the size of the header region only; the payload occupies
// totalLen - 8 - headerLen bytes (may be zero). The header is a flat record
// whose field order is fixed per Kind (see fieldOrder in codec.go).
package wire

import "fmt"

// Kind identifies the message pattern a frame carries.
type Kind uint8

const (
	KindReq  Kind = 1
	KindRes  Kind = 2
	KindPush Kind = 3
	KindPull Kind = 4
	KindPub  Kind = 5
	KindSub  Kind = 6
	KindAck  Kind = 7
	KindMon  Kind = 0xF0
	KindSReq Kind = 0xFF
)

func (k Kind) String() string {
	switch k {
	case KindReq:
		return "req"
	case KindRes:
		return "res"
	case KindPush:
		return "push"
	case KindPull:
		return "pull"
	case KindPub:
		return "pub"
	case KindSub:
		return "sub"
	case KindAck:
		return "ack"
	case KindMon:
		return "mon"
	case KindSReq:
		return "sreq"
	default:
		return fmt.Sprintf("kind(0x%02x)", uint8(k))
	}
}

func (k Kind) valid() bool {
	switch k {
	case KindReq, KindRes, KindPush, KindPull, KindPub, KindSub, KindAck, KindMon, KindSReq:
		return true
	default:
		return false
	}
}

// ContentType tags how a payload or push item is encoded.
type ContentType uint8

const (
	ContentRaw    ContentType = 1
	ContentJSON   ContentType = 2
	ContentString ContentType = 3
)

func (c ContentType) String() string {
	switch c {
	case ContentRaw:
		return "raw"
	case ContentJSON:
		return "json"
	case ContentString:
		return "string"
	default:
		return fmt.Sprintf("contentType(0x%02x)", uint8(c))
	}
}

func (c ContentType) valid() bool {
	switch c {
	case ContentRaw, ContentJSON, ContentString:
		return true
	default:
		return false
	}
}

// ErrorCode is the closed table of error codes carried on a res message's
// error header field (spec.md §7).
type ErrorCode uint8

const (
	ErrNone ErrorCode = 0

	ErrMalformedFrame         ErrorCode = 1
	ErrInvalidKind            ErrorCode = 2
	ErrInvalidContentType     ErrorCode = 3
	ErrRegisterFail           ErrorCode = 4
	ErrTargetChannelNonexist  ErrorCode = 5
	ErrTopicNonexistent       ErrorCode = 6
	ErrInvalidParameter       ErrorCode = 7
)

func (e ErrorCode) String() string {
	switch e {
	case ErrNone:
		return "none"
	case ErrMalformedFrame:
		return "MalformedFrame"
	case ErrInvalidKind:
		return "InvalidKind"
	case ErrInvalidContentType:
		return "InvalidContentType"
	case ErrRegisterFail:
		return "RegisterFail"
	case ErrTargetChannelNonexist:
		return "TargetChannelNonexistent"
	case ErrTopicNonexistent:
		return "TopicNonexistent"
	case ErrInvalidParameter:
		return "InvalidParameter"
	default:
		return fmt.Sprintf("errorCode(%d)", uint8(e))
	}
}
