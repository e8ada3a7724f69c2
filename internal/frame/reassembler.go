// Package frame turns a stream of arbitrarily-sized byte chunks from one
// peer into whole wire frames, per spec.md §4.2.
package frame

import (
	"fmt"

	"github.com/shayzogo/fastmq/internal/wire"
)

// Reassembler buffers bytes for a single peer and slices out complete
// frames as enough bytes accumulate. It holds no cross-peer state, matching
// spec.md's "Maintains per-peer byte buffer."
type Reassembler struct {
	buf []byte
}

// New returns an empty Reassembler.
func New() *Reassembler {
	return &Reassembler{}
}

// Feed appends chunk to the internal buffer and returns every whole frame
// that can now be sliced out, in order. Partial frames remain buffered for
// the next call. A malformed length prefix returns wire.ErrDecodeMalformedFrame;
// the caller must close the peer connection when that happens (spec.md §4.2).
func (r *Reassembler) Feed(chunk []byte) ([][]byte, error) {
	r.buf = append(r.buf, chunk...)

	var frames [][]byte
	for {
		if len(r.buf) < 4 {
			break
		}
		totalLen, ok := wire.PeekTotalLen(r.buf)
		if !ok {
			break
		}
		if totalLen < 8 {
			return frames, fmt.Errorf("%w: totalLen %d < 8", wire.ErrDecodeMalformedFrame, totalLen)
		}
		if uint64(len(r.buf)) < uint64(totalLen) {
			break // partial frame; wait for more bytes
		}
		if len(r.buf) >= 8 {
			headerLen, _ := wire.PeekTotalLen(r.buf[4:])
			if headerLen > totalLen-8 {
				return frames, fmt.Errorf("%w: headerLen %d exceeds totalLen-8 (%d)", wire.ErrDecodeMalformedFrame, headerLen, totalLen-8)
			}
		}

		one := make([]byte, totalLen)
		copy(one, r.buf[:totalLen])
		frames = append(frames, one)
		r.buf = r.buf[totalLen:]
	}
	return frames, nil
}

// Reset discards any buffered bytes, for use when the peer connection closes.
func (r *Reassembler) Reset() {
	r.buf = nil
}
