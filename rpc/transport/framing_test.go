package transport

import (
	"bytes"
	"errors"
	"github.com/ValentinKolb/dEcho/rpc/common"
	"io"
	"net"
	"testing"
	"time"
)

// TestRawFramer tests that a raw frame is exactly the result of one read
func TestRawFramer(t *testing.T) {
	f := NewRawFramer()
	client, server := net.Pipe()
	defer server.Close()

	go func() {
		_ = f.WriteFrame(client, []byte("hello"))
		client.Close()
	}()

	buf := make([]byte, 512)
	data, err := f.ReadFrame(server, buf)
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Expected 'hello', got %q", data)
	}

	// Peer closed the pipe
	if _, err := f.ReadFrame(server, buf); !errors.Is(err, common.ErrDisconnected) {
		t.Errorf("Expected ErrDisconnected, got %v", err)
	}
}

// TestRawFramerReadError tests that errors other than EOF are passed through
func TestRawFramerReadError(t *testing.T) {
	f := NewRawFramer()
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	if err := server.SetReadDeadline(time.Now().Add(10 * time.Millisecond)); err != nil {
		t.Fatalf("Failed to set deadline: %v", err)
	}

	_, err := f.ReadFrame(server, make([]byte, 16))
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Errorf("Expected timeout error, got %v", err)
	}
}

// TestLengthPrefixedFramer tests coalesced frames, empty frames and disconnects
func TestLengthPrefixedFramer(t *testing.T) {
	f := NewLengthPrefixedFramer(1024)
	var stream bytes.Buffer

	frames := [][]byte{[]byte("first"), {}, []byte("second frame")}
	for _, frame := range frames {
		if err := f.WriteFrame(&stream, frame); err != nil {
			t.Fatalf("Failed to write frame: %v", err)
		}
	}

	// All frames arrive as one coalesced byte stream
	buf := make([]byte, 4)
	for i, want := range frames {
		got, err := f.ReadFrame(&stream, buf)
		if err != nil {
			t.Fatalf("Failed to read frame %d: %v", i, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Frame %d: expected %q, got %q", i, want, got)
		}
	}

	if _, err := f.ReadFrame(&stream, buf); !errors.Is(err, common.ErrDisconnected) {
		t.Errorf("Expected ErrDisconnected at end of stream, got %v", err)
	}
}

// TestLengthPrefixedFramerErrors tests invalid streams
func TestLengthPrefixedFramerErrors(t *testing.T) {
	f := NewLengthPrefixedFramer(8)

	testCases := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"Frame too large", []byte{0, 0, 0, 9}, common.ErrFrameTooLarge},
		{"Truncated header", []byte{0, 0}, io.ErrUnexpectedEOF},
		{"Truncated payload", []byte{0, 0, 0, 4, 'a'}, io.ErrUnexpectedEOF},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ReadFrame(bytes.NewReader(tc.data), nil)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	if err := f.WriteFrame(io.Discard, make([]byte, 9)); !errors.Is(err, common.ErrFrameTooLarge) {
		t.Errorf("Expected ErrFrameTooLarge on write, got %v", err)
	}
}

// TestNewFramer tests the lookup of framers by name
func TestNewFramer(t *testing.T) {
	for _, name := range []string{FramingRaw, FramingLengthPrefixed} {
		f, err := NewFramer(name, 0)
		if err != nil {
			t.Fatalf("Expected framer %s to exist: %v", name, err)
		}
		if f.GetName() != name {
			t.Errorf("Expected name %s, got %s", name, f.GetName())
		}
	}
	if _, err := NewFramer("chunked", 0); err == nil {
		t.Errorf("Expected error for unknown framing")
	}
}
