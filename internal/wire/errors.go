package wire

import "errors"

// Decode-time errors. These correspond to spec.md §7's framing/header error
// taxonomy; the connection lifecycle closes the peer whenever one of these
// is returned from Decode or the frame reassembler.
var (
	ErrDecodeMalformedFrame     = errors.New("wire: malformed frame")
	ErrDecodeInvalidKind        = errors.New("wire: invalid kind")
	ErrDecodeInvalidContentType = errors.New("wire: invalid content type")
)
