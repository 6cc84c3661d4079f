package transport

import (
	"context"
	"net"
	"time"

	httperrors "github.com/ashep/esp-lib/errors"
)

// UnixTransport implements the Transport interface using Unix domain sockets
type UnixTransport struct {
	// Path overrides the path given to Connect when set. This lets a client
	// keep the URL host for the Host header while talking to a local socket.
	Path string

	conn        net.Conn
	readTimeout time.Duration
}

// NewUnixTransport creates a new UnixTransport instance
func NewUnixTransport() *UnixTransport {
	return &UnixTransport{}
}

// Connect establishes a Unix domain socket connection to the specified path.
// The port parameter is ignored for Unix sockets.
func (t *UnixTransport) Connect(ctx context.Context, path string, port uint16) error {
	if t.conn != nil {
		return httperrors.NewTransportError(httperrors.TransportErrorSocketConnectFailure, "already connected", nil)
	}
	if t.Path != "" {
		path = t.Path
	}

	conn, err := (&net.Dialer{}).DialContext(ctx, "unix", path)
	if err != nil {
		return httperrors.NewTransportError(httperrors.TransportErrorSocketConnectFailure, "failed to connect to unix socket "+path, err)
	}

	t.conn = conn
	return nil
}

// Write sends data over the Unix domain socket
func (t *UnixTransport) Write(buf []byte) (int, error) {
	return writeConn(t.conn, buf)
}

// Read receives data from the Unix domain socket
func (t *UnixTransport) Read(buf []byte) (int, error) {
	return readConn(t.conn, buf, t.readTimeout)
}

// SetReadTimeout sets the timeout applied to each Read call
func (t *UnixTransport) SetReadTimeout(d time.Duration) error {
	t.readTimeout = d
	return nil
}

// Close closes the Unix domain socket connection
func (t *UnixTransport) Close() error {
	if t.conn == nil {
		return nil // Idempotent close
	}

	conn := t.conn
	t.conn = nil
	return closeConn(conn)
}
