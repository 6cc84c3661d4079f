package transport

import (
	"context"
	"time"
)

// Transport defines the interface for network I/O operations.
// Implementations include TCP, Unix domain sockets and io_uring backed TCP.
type Transport interface {
	// Connect resolves host and establishes a connection to it. Resolution
	// and connection setup give up once ctx is done.
	// For Unix sockets, the host parameter is the socket path and port is ignored.
	Connect(ctx context.Context, host string, port uint16) error

	// Write sends the whole buffer to the connected peer.
	// Returns the number of bytes written or an error.
	Write(buf []byte) (int, error)

	// Read receives data from the connected peer.
	// Returns the number of bytes read or an error. A read that waits longer
	// than the configured read timeout fails with TransportErrorTimeout, a
	// peer close with TransportErrorConnectionClosed.
	Read(buf []byte) (int, error)

	// SetReadTimeout bounds every subsequent Read call. Zero disables it.
	SetReadTimeout(d time.Duration) error

	// Close closes the connection. It is safe to call more than once.
	Close() error
}

// Resolver turns a host name into a list of addresses.
// *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}
