package broker

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/shayzogo/fastmq/internal/wire"
)

// testClient is a minimal wire-protocol client used only by these tests. It
// is deliberately not exported or reusable as a package: spec.md marks a
// client library out of scope for this core.
type testClient struct {
	t    *testing.T
	conn net.Conn
	enc  *wire.Encoder
}

func dialTestClient(t *testing.T, addr net.Addr) *testClient {
	t.Helper()
	conn, err := net.Dial(addr.Network(), addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, conn: conn, enc: wire.NewEncoder()}
}

func (c *testClient) send(m *wire.Message) {
	c.t.Helper()
	frame, err := c.enc.Encode(m)
	if err != nil {
		c.t.Fatalf("encode: %v", err)
	}
	if _, err := c.conn.Write(frame); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

func (c *testClient) recv() *wire.Message {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	header := make([]byte, 8)
	if _, err := readFull(c.conn, header); err != nil {
		c.t.Fatalf("read header: %v", err)
	}
	totalLen, ok := wire.PeekTotalLen(header)
	if !ok {
		c.t.Fatalf("short header")
	}
	frame := make([]byte, totalLen)
	copy(frame, header)
	if _, err := readFull(c.conn, frame[8:]); err != nil {
		c.t.Fatalf("read rest of frame: %v", err)
	}
	m, err := wire.Decode(frame)
	if err != nil {
		c.t.Fatalf("decode: %v", err)
	}
	return m
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (c *testClient) register(name string) string {
	c.t.Helper()
	payload, _ := wire.NewJSONContent(map[string]interface{}{})
	c.send(wire.NewRequest(1, wire.KindReq, wire.ContentJSON, "register", name, BrokerChannelName, payload))
	resp := c.recv()
	var body struct {
		ChannelName string `json:"channelName"`
	}
	if err := resp.Payload.(wire.JSONContent).Unmarshal(&body); err != nil {
		c.t.Fatalf("unmarshal register response: %v", err)
	}
	return body.ChannelName
}

func (c *testClient) addResponseListener(name, topic string) {
	c.t.Helper()
	payload, _ := wire.NewJSONContent(map[string]interface{}{"topic": topic})
	c.send(wire.NewRequest(2, wire.KindReq, wire.ContentJSON, "addResponseListener", name, BrokerChannelName, payload))
	c.recv()
}

func (c *testClient) addPullListener(name, topic string) {
	c.t.Helper()
	payload, _ := wire.NewJSONContent(map[string]interface{}{"topic": topic})
	c.send(wire.NewRequest(2, wire.KindReq, wire.ContentJSON, "addPullListener", name, BrokerChannelName, payload))
	c.recv()
}

func startTestBroker(t *testing.T) (net.Addr, func()) {
	t.Helper()
	b := New(Config{Network: "tcp", Address: "127.0.0.1:0"})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Start(ctx)
		close(done)
	}()
	addr := b.Addr()
	return addr, func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("broker did not shut down in time")
		}
	}
}

func TestEndToEndRegisterAndRespond(t *testing.T) {
	addr, stop := startTestBroker(t)
	defer stop()

	alpha := dialTestClient(t, addr)
	beta := dialTestClient(t, addr)

	alpha.register("alpha")
	beta.register("beta")
	alpha.addResponseListener("alpha", "ping")

	payload, _ := wire.NewJSONContent(map[string]interface{}{"n": 1})
	beta.send(wire.NewRequest(10, wire.KindReq, wire.ContentJSON, "ping", "beta", "alpha", payload))

	req := alpha.recv()
	if req.Topic != "ping" || req.Source != "beta" {
		t.Fatalf("unexpected forwarded req: %+v", req)
	}

	respPayload, _ := wire.NewJSONContent(map[string]interface{}{"ok": true})
	alpha.send(wire.NewResponse(req.ID, wire.ContentJSON, "ping", "alpha", "beta", respPayload, wire.ErrNone))

	res := beta.recv()
	if res.ID != req.ID || res.Kind != wire.KindRes {
		t.Fatalf("expected beta to get the matching res, got %+v", res)
	}
}

func TestEndToEndUnknownTarget(t *testing.T) {
	addr, stop := startTestBroker(t)
	defer stop()

	beta := dialTestClient(t, addr)
	beta.register("beta")

	payload, _ := wire.NewJSONContent(map[string]interface{}{})
	beta.send(wire.NewRequest(20, wire.KindReq, wire.ContentJSON, "ping", "beta", "gamma", payload))

	resp := beta.recv()
	if !resp.IsError(wire.ErrTargetChannelNonexist) {
		t.Fatalf("expected TargetChannelNonexistent, got %s", resp.Error)
	}
}

func TestEndToEndPushRoundRobinAndWorkerDeath(t *testing.T) {
	addr, stop := startTestBroker(t)
	defer stop()

	w1 := dialTestClient(t, addr)
	w2 := dialTestClient(t, addr)
	producer := dialTestClient(t, addr)

	w1.register("w1")
	w2.register("w2")
	producer.register("producer")
	w1.addPullListener("w1", "job")
	w2.addPullListener("w2", "job")

	items := []wire.Content{
		wire.StringContent{Text: "a"},
		wire.StringContent{Text: "b"},
	}
	producer.send(wire.NewPush(100, wire.ContentString, "job", "producer", "", items))

	first := w1.recv()
	if first.Topic != "job" {
		t.Fatalf("expected w1 to receive a job item, got %+v", first)
	}

	// w1 dies before acking; its item must be redelivered to w2.
	w1.conn.Close()

	second := w2.recv()
	third := w2.recv()
	_ = second
	_ = third // w2 should see its own round-robin item plus the redelivered one, in some order
}

func TestEndToEndPubFanOut(t *testing.T) {
	addr, stop := startTestBroker(t)
	defer stop()

	s1 := dialTestClient(t, addr)
	s2 := dialTestClient(t, addr)
	pub := dialTestClient(t, addr)

	s1.register("s1")
	s2.register("s2")
	pub.register("pub")

	subscribe := func(c *testClient, name string) {
		payload, _ := wire.NewJSONContent(map[string]interface{}{"topic": "news"})
		c.send(wire.NewRequest(3, wire.KindReq, wire.ContentJSON, "addSubscribeListener", name, BrokerChannelName, payload))
		c.recv()
	}
	subscribe(s1, "s1")
	subscribe(s2, "s2")

	p1, _ := wire.NewJSONContent(map[string]interface{}{"seq": 1})
	pub.send(wire.NewPub(200, wire.ContentJSON, "news", "pub", BrokerChannelName, p1))

	m1 := s1.recv()
	m2 := s2.recv()
	if m1.Topic != "news" || m2.Topic != "news" {
		t.Fatalf("expected both subscribers to see the pub, got %+v %+v", m1, m2)
	}
}
