//go:build !linux

package transport

import (
	"fmt"
	"time"

	httperrors "github.com/ashep/esp-lib/errors"
)

func newUring(kind Kind, _ Resolver, _ time.Duration) (Transport, error) {
	return nil, httperrors.NewTransportError(
		httperrors.TransportErrorIoUringInit,
		fmt.Sprintf("%s transport requires linux", kind),
		nil,
	)
}
