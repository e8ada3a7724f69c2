package wire

import (
	"encoding/binary"
	"fmt"
)

// Strings on the wire (topic, source, target) use a single variable-width
// natural-number length prefix, per spec.md §4.1: "a length prefix followed
// by UTF-8 bytes... a single variable-width natural-number encoding used
// consistently throughout the codec". This codec uses the standard unsigned
// LEB128-style varint (encoding/binary.PutUvarint/Uvarint) for that prefix —
// every deployment of this codec agrees on that one encoding, satisfying the
// interoperability requirement by construction.

// putString appends length-prefixed UTF-8 bytes for s to buf and returns the
// extended slice.
func putString(buf []byte, s string) []byte {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(s)))
	buf = append(buf, lenBuf[:n]...)
	buf = append(buf, s...)
	return buf
}

// readString reads a length-prefixed UTF-8 string from buf, returning the
// string and the number of bytes consumed.
func readString(buf []byte) (string, int, error) {
	length, n := binary.Uvarint(buf)
	if n <= 0 {
		return "", 0, fmt.Errorf("%w: truncated string length prefix", ErrDecodeMalformedFrame)
	}
	end := n + int(length)
	if end < n || end > len(buf) {
		return "", 0, fmt.Errorf("%w: string length %d exceeds remaining header", ErrDecodeMalformedFrame, length)
	}
	return string(buf[n:end]), end, nil
}
