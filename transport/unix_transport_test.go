package transport

import (
	"context"
	"net"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	httperrors "github.com/ashep/esp-lib/errors"
)

// setupUnixTestServer listens on a fresh socket and serves one connection.
func setupUnixTestServer(t *testing.T, handler func(net.Conn)) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "srv.sock")
	listener, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("Failed to create Unix test server: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}()

	t.Cleanup(func() {
		listener.Close()
		<-done
	})
	return path
}

func connectUnix(t *testing.T, path string) *UnixTransport {
	t.Helper()

	tr := NewUnixTransport()
	if err := tr.Connect(context.Background(), path, 0); err != nil {
		t.Fatalf("Connect to %s failed: %v", path, err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestUnixTransport_RoundTrip(t *testing.T) {
	path := setupUnixTestServer(t, func(conn net.Conn) {
		buf := make([]byte, 64)
		n, _ := conn.Read(buf)
		conn.Write(append([]byte("echo: "), buf[:n]...))
	})
	tr := connectUnix(t, path)

	if n, err := tr.Write([]byte("ping")); err != nil || n != 4 {
		t.Fatalf("Write = %d, %v", n, err)
	}

	tr.SetReadTimeout(time.Second)
	buf := make([]byte, 64)
	n, err := tr.Read(buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got := string(buf[:n]); got != "echo: ping" {
		t.Errorf("Read %q, want %q", got, "echo: ping")
	}

	if _, err := tr.Read(buf); !httperrors.IsTransport(err, httperrors.TransportErrorConnectionClosed) {
		t.Errorf("Expected connection closed after the peer hung up, got %v", err)
	}
}

func TestUnixTransport_Connect_Failure_NoSuchFile(t *testing.T) {
	tr := NewUnixTransport()
	err := tr.Connect(context.Background(), filepath.Join(t.TempDir(), "missing.sock"), 0)

	expectTransportError(t, err, httperrors.TransportErrorSocketConnectFailure)
}

func TestUnixTransport_Connect_Twice(t *testing.T) {
	path := setupUnixTestServer(t, func(net.Conn) {})
	tr := connectUnix(t, path)

	expectTransportError(t, tr.Connect(context.Background(), path, 0), httperrors.TransportErrorSocketConnectFailure)
}

func TestUnixTransport_PathOverride(t *testing.T) {
	path := setupUnixTestServer(t, func(conn net.Conn) {
		conn.Write([]byte("ok"))
	})

	tr := NewUnixTransport()
	tr.Path = path
	if err := tr.Connect(context.Background(), "device.local", 80); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer tr.Close()

	buf := make([]byte, 16)
	n, err := tr.Read(buf)
	if err != nil || string(buf[:n]) != "ok" {
		t.Errorf("Read = %q, %v", buf[:n], err)
	}
}

func TestUnixTransport_Read_Failure_Timeout(t *testing.T) {
	release := make(chan struct{})
	path := setupUnixTestServer(t, func(net.Conn) { <-release })
	t.Cleanup(func() { close(release) })
	tr := connectUnix(t, path)

	tr.SetReadTimeout(20 * time.Millisecond)
	_, err := tr.Read(make([]byte, 16))
	expectTransportError(t, err, httperrors.TransportErrorTimeout)
}

func TestUnixTransport_Write_Failure_PeerGone(t *testing.T) {
	path := setupUnixTestServer(t, func(conn net.Conn) {
		if uc, ok := conn.(*net.UnixConn); ok {
			if raw, err := uc.SyscallConn(); err == nil {
				raw.Control(func(fd uintptr) {
					linger := syscall.Linger{Onoff: 1, Linger: 0}
					syscall.SetsockoptLinger(int(fd), syscall.SOL_SOCKET, syscall.SO_LINGER, &linger)
				})
			}
		}
	})
	tr := connectUnix(t, path)
	time.Sleep(50 * time.Millisecond)

	_, err := tr.Write([]byte("this should fail"))
	expectTransportError(t, err, httperrors.TransportErrorSocketWriteFailure)
}

func TestUnixTransport_Close(t *testing.T) {
	path := setupUnixTestServer(t, func(net.Conn) {})
	tr := connectUnix(t, path)

	for i := 0; i < 2; i++ {
		if err := tr.Close(); err != nil {
			t.Errorf("Close #%d failed: %v", i+1, err)
		}
	}
	if tr.conn != nil {
		t.Error("Connection should be nil after close")
	}
}

func TestUnixTransport_NotConnected(t *testing.T) {
	tr := NewUnixTransport()

	_, err := tr.Write([]byte("test"))
	expectTransportError(t, err, httperrors.TransportErrorSocketWriteFailure)

	_, err = tr.Read(make([]byte, 8))
	expectTransportError(t, err, httperrors.TransportErrorSocketReadFailure)
}
