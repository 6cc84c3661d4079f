package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	httperrors "github.com/ashep/esp-lib/errors"
)

// DefaultConnectTimeout bounds resolution and the TCP handshake.
const DefaultConnectTimeout = 5 * time.Second

// resolve looks host up and returns its addresses. Resolution yielding zero
// results is an error, same as a resolver failure. The lookup ends at the
// earlier of ctx's deadline and timeout.
func resolve(ctx context.Context, r Resolver, host string, timeout time.Duration) ([]string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return []string{ip.String()}, nil
	}
	if r == nil {
		r = net.DefaultResolver
	}
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addrs, err := r.LookupHost(ctx, host)
	if err != nil {
		return nil, httperrors.NewTransportError(
			httperrors.TransportErrorDnsFailure,
			fmt.Sprintf("failed to resolve %s", host),
			err,
		)
	}
	if len(addrs) == 0 {
		return nil, httperrors.NewTransportError(
			httperrors.TransportErrorDnsFailure,
			fmt.Sprintf("no addresses found for %s", host),
			nil,
		)
	}
	return addrs, nil
}
