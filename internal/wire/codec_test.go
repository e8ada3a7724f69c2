package wire

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"testing"
)

func roundTrip(t *testing.T, m *Message) *Message {
	t.Helper()
	enc := NewEncoder()
	frame, err := enc.Encode(m)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	total := binary.BigEndian.Uint32(frame[0:4])
	headerLen := binary.BigEndian.Uint32(frame[4:8])
	if int(total) != len(frame) {
		t.Fatalf("frame length law violated: totalLen=%d actual=%d", total, len(frame))
	}
	payloadLen := int(total) - 8 - int(headerLen)
	if payloadLen < 0 {
		t.Fatalf("negative payload length: total=%d headerLen=%d", total, headerLen)
	}

	got, err := Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return got
}

func TestRoundTripReq(t *testing.T) {
	payload, _ := NewJSONContent(map[string]int{"n": 1})
	m := NewRequest(42, KindReq, ContentJSON, "ping", "beta", "alpha", payload)
	got := roundTrip(t, m)

	if got.ID != m.ID || got.Kind != m.Kind || got.ContentType != m.ContentType {
		t.Fatalf("header mismatch: got %+v want %+v", got, m)
	}
	if got.Topic != m.Topic || got.Source != m.Source || got.Target != m.Target {
		t.Fatalf("routing fields mismatch: got %+v want %+v", got, m)
	}
	gotJSON, ok := got.Payload.(JSONContent)
	if !ok {
		t.Fatalf("expected JSONContent, got %T", got.Payload)
	}
	if !bytes.Equal(gotJSON.Raw, payload.Raw) {
		t.Fatalf("payload mismatch: got %s want %s", gotJSON.Raw, payload.Raw)
	}
}

func TestRoundTripResWithError(t *testing.T) {
	m := NewResponse(7, ContentRaw, "ping", "alpha", "beta", RawContent{Data: nil}, ErrTargetChannelNonexist)
	got := roundTrip(t, m)
	if !got.IsError(ErrTargetChannelNonexist) {
		t.Fatalf("expected IsError(ErrTargetChannelNonexist), got error=%v", got.Error)
	}
}

func TestRoundTripPush(t *testing.T) {
	items := []Content{
		StringContent{Text: "a"},
		StringContent{Text: "b"},
		StringContent{Text: "c"},
		StringContent{Text: "d"},
	}
	m := NewPush(1, ContentString, "job", "producer", "job-queue", items)
	got := roundTrip(t, m)

	if got.ItemCount != 4 || len(got.Items) != 4 {
		t.Fatalf("expected 4 items, got itemCount=%d len=%d", got.ItemCount, len(got.Items))
	}
	for i, want := range []string{"a", "b", "c", "d"} {
		sc, ok := got.Items[i].(StringContent)
		if !ok || sc.Text != want {
			t.Fatalf("item %d: got %+v want %q", i, got.Items[i], want)
		}
	}
}

func TestRoundTripAckCarriesNoPayload(t *testing.T) {
	m := NewAck(99, "job")
	got := roundTrip(t, m)
	if got.Payload != nil || len(got.Items) != 0 {
		t.Fatalf("ack should carry no payload, got %+v", got)
	}
	if got.ID != 99 || got.Topic != "job" {
		t.Fatalf("ack routing fields mismatch: %+v", got)
	}
}

func TestRoundTripMon(t *testing.T) {
	payload, _ := NewJSONContent(map[string]string{"event": "register", "channel": "worker-1"})
	m := NewMon(3, ContentJSON, payload)
	got := roundTrip(t, m)
	if got.Kind != KindMon {
		t.Fatalf("expected KindMon, got %v", got.Kind)
	}
	gotJSON := got.Payload.(JSONContent)
	if !bytes.Equal(gotJSON.Raw, payload.Raw) {
		t.Fatalf("mon payload mismatch: got %s want %s", gotJSON.Raw, payload.Raw)
	}
}

func TestRoundTripRawPayloadIsByteExact(t *testing.T) {
	raw := []byte{0x00, 0xFF, 0x10, 0x01, 0x02}
	m := NewPub(5, ContentRaw, "news", "alpha", "", RawContent{Data: raw})
	got := roundTrip(t, m)
	gotRaw := got.Payload.(RawContent)
	if !bytes.Equal(gotRaw.Data, raw) {
		t.Fatalf("raw payload mismatch: got %v want %v", gotRaw.Data, raw)
	}
}

func TestDecodeRejectsMalformedTotalLen(t *testing.T) {
	frame := make([]byte, 8)
	binary.BigEndian.PutUint32(frame[0:4], 4) // totalLen < 8
	binary.BigEndian.PutUint32(frame[4:8], 0)
	if _, err := Decode(frame); err == nil {
		t.Fatalf("expected malformed frame error")
	}
}

func TestDecodeRejectsHeaderLenOverflow(t *testing.T) {
	frame := make([]byte, 12)
	binary.BigEndian.PutUint32(frame[0:4], 12)
	binary.BigEndian.PutUint32(frame[4:8], 100) // headerLen > totalLen-8
	if _, err := Decode(frame); err == nil {
		t.Fatalf("expected malformed frame error for headerLen overflow")
	}
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	enc := NewEncoder()
	frame, err := enc.Encode(NewAck(1, "x"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Corrupt the kind byte (header[8] == byte offset 8+8=16 in the frame).
	frame[16] = 0x77
	if _, err := Decode(frame); err == nil {
		t.Fatalf("expected invalid kind error")
	}
}

func TestDecodeRejectsOversizedPushItem(t *testing.T) {
	items := []Content{StringContent{Text: "a"}}
	enc := NewEncoder()
	frame, err := enc.Encode(NewPush(1, ContentString, "job", "p", "t", items))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Inflate the single item's length prefix past what remains.
	total := binary.BigEndian.Uint32(frame[0:4])
	headerLen := binary.BigEndian.Uint32(frame[4:8])
	itemLenOffset := 8 + headerLen
	binary.BigEndian.PutUint32(frame[itemLenOffset:itemLenOffset+4], total*10)
	if _, err := Decode(frame); err == nil {
		t.Fatalf("expected malformed frame error for oversized item length")
	}
}

func TestMessageEquality(t *testing.T) {
	payload, _ := NewJSONContent([]int{1, 2, 3})
	m := NewRequest(1, KindSReq, ContentJSON, "register", "beta", "", payload)
	got := roundTrip(t, m)
	if !reflect.DeepEqual(got.Payload, m.Payload) {
		t.Fatalf("payload not structurally equal: got %+v want %+v", got.Payload, m.Payload)
	}
}
