package frame

import (
	"bytes"
	"testing"

	"github.com/shayzogo/fastmq/internal/wire"
)

func buildFrame(t *testing.T, id uint64, topic string) []byte {
	t.Helper()
	enc := wire.NewEncoder()
	frame, err := enc.Encode(wire.NewAck(id, topic))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return frame
}

func TestFeedWholeFrameAtOnce(t *testing.T) {
	r := New()
	f := buildFrame(t, 1, "job")

	frames, err := r.Feed(f)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(frames) != 1 || !bytes.Equal(frames[0], f) {
		t.Fatalf("expected exactly one frame matching input, got %v", frames)
	}
}

func TestFeedByteAtATime(t *testing.T) {
	r := New()
	f := buildFrame(t, 2, "job")

	var got [][]byte
	for _, b := range f {
		frames, err := r.Feed([]byte{b})
		if err != nil {
			t.Fatalf("Feed: %v", err)
		}
		got = append(got, frames...)
	}
	if len(got) != 1 || !bytes.Equal(got[0], f) {
		t.Fatalf("expected exactly one reassembled frame, got %d frames", len(got))
	}
}

func TestFeedMultipleFramesInOneChunk(t *testing.T) {
	r := New()
	f1 := buildFrame(t, 1, "a")
	f2 := buildFrame(t, 2, "b")
	f3 := buildFrame(t, 3, "c")

	chunk := append(append(append([]byte{}, f1...), f2...), f3...)
	frames, err := r.Feed(chunk)
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
	for i, want := range [][]byte{f1, f2, f3} {
		if !bytes.Equal(frames[i], want) {
			t.Fatalf("frame %d mismatch", i)
		}
	}
}

func TestFeedMalformedTotalLen(t *testing.T) {
	r := New()
	bad := make([]byte, 8)
	bad[3] = 4 // totalLen = 4, which is < 8
	if _, err := r.Feed(bad); err == nil {
		t.Fatalf("expected malformed frame error")
	}
}

func TestFeedPartialFrameWaits(t *testing.T) {
	r := New()
	f := buildFrame(t, 4, "job")
	frames, err := r.Feed(f[:len(f)-1])
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(frames) != 0 {
		t.Fatalf("expected no frames from a partial feed, got %d", len(frames))
	}
	frames, err = r.Feed(f[len(f)-1:])
	if err != nil {
		t.Fatalf("Feed: %v", err)
	}
	if len(frames) != 1 || !bytes.Equal(frames[0], f) {
		t.Fatalf("expected the completed frame once the rest arrives")
	}
}
