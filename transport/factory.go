package transport

import (
	"fmt"
	"strings"
	"time"

	httperrors "github.com/ashep/esp-lib/errors"
)

// Kind names a transport implementation.
type Kind string

const (
	KindTcp     Kind = "tcp"
	KindUnix    Kind = "unix"
	KindUring   Kind = "uring"
	KindUringV2 Kind = "uring-v2"
)

// ParseKind parses a transport name as used in configuration.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case "":
		return KindTcp, nil
	case KindTcp, KindUnix, KindUring, KindUringV2:
		return k, nil
	default:
		return "", httperrors.NewInvalidArgumentError(fmt.Sprintf("unknown transport %q", s))
	}
}

// Options selects and configures the transport built by New.
type Options struct {
	Kind Kind
	// SocketPath is the Unix socket to dial for KindUnix.
	SocketPath     string
	ConnectTimeout time.Duration
	Resolver       Resolver
}

// Destroyer is implemented by transports holding resources beyond the
// connection, such as an io_uring instance.
type Destroyer interface {
	Destroy()
}

// New builds an unconnected transport. Release it with Release once the
// connection is closed.
func New(opts Options) (Transport, error) {
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	switch opts.Kind {
	case "", KindTcp:
		t := NewTcpTransport()
		t.Resolver = opts.Resolver
		t.ConnectTimeout = timeout
		return t, nil
	case KindUnix:
		if opts.SocketPath == "" {
			return nil, httperrors.NewInvalidArgumentError("unix transport requires a socket path")
		}
		t := NewUnixTransport()
		t.Path = opts.SocketPath
		return t, nil
	case KindUring, KindUringV2:
		return newUring(opts.Kind, opts.Resolver, timeout)
	default:
		return nil, httperrors.NewInvalidArgumentError(fmt.Sprintf("unknown transport %q", opts.Kind))
	}
}

// Release closes t and frees whatever else it holds.
func Release(t Transport) error {
	err := t.Close()
	if d, ok := t.(Destroyer); ok {
		d.Destroy()
	}
	return err
}
