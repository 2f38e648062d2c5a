package unix

import (
	"github.com/ValentinKolb/dEcho/rpc/common"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestListenAndConnect tests a round trip over a unix socket
func TestListenAndConnect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decho.sock")
	server := NewUnixServerConnector()
	client := NewUnixClientConnector()

	listener, err := server.Listen(path)
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = server.UpgradeConnection(conn, common.SocketConf{ReadBufferSize: 4096, WriteBufferSize: 4096})
		buf := make([]byte, 16)
		n, _ := conn.Read(buf)
		_, _ = conn.Write(buf[:n])
	}()

	conn, err := client.Connect(path, time.Second)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("ping")); err != nil {
		t.Fatalf("Failed to write: %v", err)
	}
	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	if err != nil || string(buf[:n]) != "ping" {
		t.Errorf("Expected ping, got %q, %v", buf[:n], err)
	}

	listener.Close()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Socket file should be removed on close, stat returned %v", err)
	}
}

// TestListenRemovesStaleSocket tests that an abandoned socket file does not block the bind
func TestListenRemovesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stale.sock")

	// leave a socket file behind without a listener, like a crashed process
	stale, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	stale.(*net.UnixListener).SetUnlinkOnClose(false)
	stale.Close()
	if _, err := os.Lstat(path); err != nil {
		t.Fatalf("Expected socket file to remain, got %v", err)
	}

	listener, err := NewUnixServerConnector().Listen(path)
	if err != nil {
		t.Fatalf("Expected stale socket file to be replaced, got %v", err)
	}
	listener.Close()
}

// TestListenKeepsRegularFile tests that a file that is not a socket is never removed
func TestListenKeepsRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "important.conf")
	content := []byte("keep me")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	listener, err := NewUnixServerConnector().Listen(path)
	if err == nil {
		listener.Close()
		t.Fatalf("Expected listen on a regular file to fail")
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Regular file was removed: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("Regular file was modified: %q", got)
	}
}

// TestListenInUse tests that a live socket is not taken over
func TestListenInUse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.sock")
	server := NewUnixServerConnector()

	listener, err := server.Listen(path)
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	defer listener.Close()

	// the liveness dial is accepted by the backlog without a running Accept
	if second, err := server.Listen(path); err == nil {
		second.Close()
		t.Fatalf("Expected second listen on a live socket to fail")
	} else if !common.IsAddrInUse(err) {
		t.Errorf("Expected address in use, got %v", err)
	}
}
