package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	httperrors "github.com/ashep/esp-lib/errors"
)

// DialFunc opens a stream connection to address.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// TcpTransport implements the Transport interface using TCP sockets
type TcpTransport struct {
	// Resolver looks up host names. Defaults to net.DefaultResolver.
	Resolver Resolver
	// Dial opens the connection. Defaults to a net.Dialer.
	Dial DialFunc
	// ConnectTimeout bounds resolution and each dial attempt.
	ConnectTimeout time.Duration

	conn        net.Conn
	readTimeout time.Duration
}

// NewTcpTransport creates a new TcpTransport instance
func NewTcpTransport() *TcpTransport {
	return &TcpTransport{
		ConnectTimeout: DefaultConnectTimeout,
	}
}

// Connect resolves host and establishes a TCP connection to the first
// address that accepts it. Resolution and every dial attempt stop when ctx
// is done.
func (t *TcpTransport) Connect(ctx context.Context, host string, port uint16) error {
	if t.conn != nil {
		return httperrors.NewTransportError(httperrors.TransportErrorSocketConnectFailure, "already connected", nil)
	}

	// No socket is opened when resolution fails.
	addrs, err := resolve(ctx, t.Resolver, host, t.ConnectTimeout)
	if err != nil {
		return err
	}

	dial := t.Dial
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	timeout := t.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	var lastErr error
	for _, addr := range addrs {
		target := net.JoinHostPort(addr, strconv.Itoa(int(port)))
		dialCtx, cancel := context.WithTimeout(ctx, timeout)
		conn, err := dial(dialCtx, "tcp", target)
		cancel()
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		// Set TCP_NODELAY to disable Nagle's algorithm for lower latency
		if tcpConn, ok := conn.(*net.TCPConn); ok {
			if err := tcpConn.SetNoDelay(true); err != nil {
				conn.Close()
				return httperrors.NewTransportError(httperrors.TransportErrorSocketCreateFailure, "failed to set TCP_NODELAY", err)
			}
		}

		t.conn = conn
		return nil
	}

	return httperrors.NewTransportError(
		httperrors.TransportErrorSocketConnectFailure,
		fmt.Sprintf("failed to connect to %s:%d", host, port),
		lastErr,
	)
}

// Write sends data over the TCP connection
func (t *TcpTransport) Write(buf []byte) (int, error) {
	return writeConn(t.conn, buf)
}

// Read receives data from the TCP connection
func (t *TcpTransport) Read(buf []byte) (int, error) {
	return readConn(t.conn, buf, t.readTimeout)
}

// SetReadTimeout sets the timeout applied to each Read call
func (t *TcpTransport) SetReadTimeout(d time.Duration) error {
	t.readTimeout = d
	return nil
}

// Close closes the TCP connection
func (t *TcpTransport) Close() error {
	if t.conn == nil {
		return nil // Idempotent close
	}

	conn := t.conn
	t.conn = nil
	return closeConn(conn)
}
