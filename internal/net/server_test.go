package net

import (
	"bytes"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/erinngo/server/internal/config"
	"github.com/erinngo/server/internal/metrics"
	"github.com/erinngo/server/internal/net/packet"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type echoHandler struct {
	malformed chan error
	closed    chan uint64
}

func newEchoHandler() *echoHandler {
	return &echoHandler{
		malformed: make(chan error, 4),
		closed:    make(chan uint64, 4),
	}
}

func (h *echoHandler) HandlePacket(s *Session, p *packet.Packet) {
	msg, err := p.GetString()
	if err != nil {
		s.Close()
		return
	}
	reply := packet.New(p.Op+1, p.ID)
	reply.PutString(strings.ToUpper(msg))
	s.Send(reply)
	if msg == "bye" {
		s.Close()
	}
}

func (h *echoHandler) HandleMalformed(s *Session, err error) {
	h.malformed <- err
	s.Close()
}

func (h *echoHandler) OnClose(s *Session) {
	h.closed <- s.ID
}

func testOptions(h PacketHandler) SessionOptions {
	cfg := config.Defaults()
	return SessionOptions{
		Network:   cfg.Network,
		RateLimit: cfg.RateLimit,
		Autoban:   cfg.Autoban,
		Framer:    &Framer{MaxSize: cfg.Network.MaxFrameSize},
		Handler:   h,
		Metrics:   metrics.New(),
	}
}

func startTestServer(t *testing.T, h PacketHandler, opts SessionOptions) *Server {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := newServer(ln, opts, zap.NewNop())
	go srv.AcceptLoop()
	t.Cleanup(srv.Shutdown)
	return srv
}

func echoRequest(op int32, msg string) []byte {
	p := packet.New(op, 77)
	p.PutString(msg)
	return (&Framer{}).Encode(p)
}

func readReply(t *testing.T, c net.Conn) *packet.Packet {
	t.Helper()
	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	raw, err := (&Framer{}).ReadFrame(c)
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	p, err := packet.Parse(raw, 0)
	if err != nil {
		t.Fatalf("parse reply: %v", err)
	}
	return p
}

func waitClosed(t *testing.T, h *echoHandler) uint64 {
	t.Helper()
	select {
	case id := <-h.closed:
		return id
	case <-time.After(2 * time.Second):
		t.Fatal("session did not close")
		return 0
	}
}

func TestServerEchoInOrder(t *testing.T) {
	h := newEchoHandler()
	srv := startTestServer(t, h, testOptions(h))

	c, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	var batch bytes.Buffer
	for _, m := range []string{"a", "b", "c"} {
		batch.Write(echoRequest(0x100, m))
	}
	if _, err := c.Write(batch.Bytes()); err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{"A", "B", "C"} {
		p := readReply(t, c)
		if p.Op != 0x101 || p.ID != 77 {
			t.Fatalf("reply header = 0x%X/%d", p.Op, p.ID)
		}
		got, err := p.GetString()
		if err != nil || got != want {
			t.Fatalf("reply = %q, %v; want %q", got, err, want)
		}
	}
	if n := srv.Count(); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}

	c.Close()
	waitClosed(t, h)
	if n := srv.Count(); n != 0 {
		t.Errorf("Count after close = %d, want 0", n)
	}
}

func TestCloseFlushesQueuedFrames(t *testing.T) {
	h := newEchoHandler()
	srv := startTestServer(t, h, testOptions(h))

	c, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, err := c.Write(echoRequest(0x100, "bye")); err != nil {
		t.Fatal(err)
	}

	if got, _ := readReply(t, c).GetString(); got != "BYE" {
		t.Fatalf("reply = %q, want BYE", got)
	}
	waitClosed(t, h)
	c.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := c.Read(make([]byte, 1)); err == nil {
		t.Fatal("connection still open after Close")
	}
}

func TestServerMalformedPacket(t *testing.T) {
	h := newEchoHandler()
	srv := startTestServer(t, h, testOptions(h))

	c, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	frame := echoRequest(0x100, "x")
	frame[FramePrefixSize+12] = 0xFF // body length varint now claims more than is there
	frame[FramePrefixSize+13] = 0x7F
	if _, err := c.Write(frame); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-h.malformed:
		if !errors.Is(err, packet.ErrTruncated) {
			t.Errorf("malformed err = %v, want ErrTruncated", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("malformed packet not reported")
	}
	waitClosed(t, h)
}

func TestServerRateLimit(t *testing.T) {
	h := newEchoHandler()
	opts := testOptions(h)
	opts.RateLimit.PacketsPerSecond = 1
	opts.RateLimit.Burst = 2
	srv := startTestServer(t, h, opts)

	c, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	var batch bytes.Buffer
	for i := 0; i < 10; i++ {
		batch.Write(echoRequest(0x100, "spam"))
	}
	c.Write(batch.Bytes())
	waitClosed(t, h)
}

func TestGatewayWebSocket(t *testing.T) {
	h := newEchoHandler()
	srv := startTestServer(t, h, testOptions(h))
	hs := httptest.NewServer(NewGateway(srv, zap.NewNop()))
	defer hs.Close()

	url := "ws" + strings.TrimPrefix(hs.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	if err := ws.WriteMessage(websocket.BinaryMessage, echoRequest(0x200, "ws")); err != nil {
		t.Fatal(err)
	}
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	typ, msg, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if typ != websocket.BinaryMessage {
		t.Fatalf("message type = %d", typ)
	}
	raw, err := (&Framer{}).ReadFrame(bytes.NewReader(msg))
	if err != nil {
		t.Fatal(err)
	}
	p, err := packet.Parse(raw, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := p.GetString(); p.Op != 0x201 || got != "WS" {
		t.Fatalf("reply = 0x%X %q", p.Op, got)
	}
}
