package client

import (
	"errors"
	"github.com/ValentinKolb/dEcho/rpc/common"
	"github.com/ValentinKolb/dEcho/rpc/serializer"
	"github.com/ValentinKolb/dEcho/rpc/transport"
	"github.com/ValentinKolb/dEcho/rpc/transport/tcp"
	"net"
	"testing"
	"time"
)

// fakeServer accepts one connection and answers every frame with reply(request bytes).
// A nil reply closes the connection
func fakeServer(t *testing.T, reply func(req []byte) []byte) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		framer := transport.NewRawFramer()
		buf := make([]byte, 512)
		for {
			data, err := framer.ReadFrame(conn, buf)
			if err != nil {
				return
			}
			out := reply(data)
			if out == nil {
				return
			}
			if err := framer.WriteFrame(conn, out); err != nil {
				return
			}
		}
	}()

	return listener.Addr().String()
}

func newClient(t *testing.T, endpoint string) *Client {
	t.Helper()

	c := NewClient(common.DefaultClientConfig(endpoint), tcp.NewTCPClientConnector(), serializer.NewProtoSerializer(), transport.NewRawFramer())
	if err := c.Connect(); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// echoServer decodes requests and answers like the real server does
func echoServer(req []byte) []byte {
	s := serializer.NewProtoSerializer()

	var r common.Request
	if err := s.DeserializeRequest(req, &r); err != nil {
		return nil
	}
	var resp *common.Response
	switch r.Type() {
	case common.MsgTEcho:
		resp = common.NewEchoResponse(r.Echo.Content)
	case common.MsgTAdd:
		resp = common.NewAddResponse(r.Add.A + r.Add.B)
	default:
		return nil
	}
	data, _ := s.SerializeResponse(*resp)
	return data
}

func TestNotConnected(t *testing.T) {
	c := NewClient(common.DefaultClientConfig("127.0.0.1:1"), tcp.NewTCPClientConnector(), serializer.NewProtoSerializer(), transport.NewRawFramer())

	if _, err := c.Echo("hi"); !errors.Is(err, common.ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
	if _, err := c.Receive(); !errors.Is(err, common.ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected, got %v", err)
	}
	if c.LocalAddr() != nil {
		t.Errorf("Expected no local address before Connect")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close of unconnected client failed: %v", err)
	}
}

func TestConnectFailure(t *testing.T) {
	// grab a free port and release it again, nobody listens there afterwards
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	endpoint := listener.Addr().String()
	listener.Close()

	c := NewClient(common.DefaultClientConfig(endpoint), tcp.NewTCPClientConnector(), serializer.NewProtoSerializer(), transport.NewRawFramer())
	if err := c.Connect(); err == nil {
		c.Close()
		t.Fatalf("Expected connect to fail")
	}
}

func TestEchoAndAdd(t *testing.T) {
	c := newClient(t, fakeServer(t, echoServer))

	if c.LocalAddr() == nil {
		t.Errorf("Expected a local address after Connect")
	}
	if got, err := c.Echo("hello"); err != nil || got != "hello" {
		t.Errorf("Echo returned %q, %v", got, err)
	}
	if got, err := c.Add(-3, 10); err != nil || got != 7 {
		t.Errorf("Add returned %d, %v", got, err)
	}
}

func TestSendReceive(t *testing.T) {
	c := newClient(t, fakeServer(t, echoServer))

	if err := c.Send(*common.NewAddRequest(20, 22)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	resp, err := c.Receive()
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if resp.Type() != common.MsgTAdd || resp.Add.Result != 42 {
		t.Errorf("Expected add result 42, got %+v", resp)
	}
}

func TestUnexpectedResponseType(t *testing.T) {
	c := newClient(t, fakeServer(t, func([]byte) []byte {
		data, _ := serializer.NewProtoSerializer().SerializeResponse(*common.NewAddResponse(1))
		return data
	}))

	if _, err := c.Echo("hello"); err == nil {
		t.Errorf("Expected an error for an add response to an echo request")
	}
}

func TestMalformedResponse(t *testing.T) {
	c := newClient(t, fakeServer(t, func([]byte) []byte {
		return []byte{0xff, 0xff}
	}))

	_, err := c.Echo("hello")
	if !errors.Is(err, common.ErrMalformed) {
		t.Errorf("Expected ErrMalformed, got %v", err)
	}
}

func TestServerDisconnect(t *testing.T) {
	c := newClient(t, fakeServer(t, func([]byte) []byte {
		return nil
	}))

	if _, err := c.Echo("hello"); !errors.Is(err, common.ErrDisconnected) {
		t.Errorf("Expected ErrDisconnected, got %v", err)
	}
}

// TestCloseInterruptsRequest tests that Close does not wait for a request whose response never comes
func TestCloseInterruptsRequest(t *testing.T) {
	received := make(chan struct{})
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	endpoint := fakeServer(t, func(req []byte) []byte {
		close(received)
		<-release
		return nil
	})
	c := newClient(t, endpoint)

	result := make(chan error, 1)
	go func() {
		_, err := c.Echo("never answered")
		result <- err
	}()

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatalf("Server did not receive the request")
	}

	closed := make(chan error, 1)
	go func() { closed <- c.Close() }()

	select {
	case err := <-closed:
		if err != nil {
			t.Errorf("Close failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Close blocked while a request was in flight")
	}

	select {
	case err := <-result:
		if !errors.Is(err, net.ErrClosed) {
			t.Errorf("Expected net.ErrClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Echo did not return after Close")
	}

	if _, err := c.Echo("after close"); !errors.Is(err, common.ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected after Close, got %v", err)
	}
}
