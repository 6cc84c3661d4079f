//go:build linux

package transport

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"github.com/iceber/iouring-go"

	httperrors "github.com/ashep/esp-lib/errors"
)

// UringTransport implements Transport over TCP using io_uring for async I/O
type UringTransport struct {
	// Resolver looks up host names. Defaults to net.DefaultResolver.
	Resolver Resolver
	// ConnectTimeout bounds resolution.
	ConnectTimeout time.Duration

	iour        *iouring.IOURing
	fd          int
	closed      bool
	readTimeout time.Duration
}

// NewUringTransport creates a new TCP transport with io_uring
func NewUringTransport() (*UringTransport, error) {
	// Create io_uring instance with queue depth of 32
	iour, err := iouring.New(32)
	if err != nil {
		return nil, httperrors.NewTransportError(
			httperrors.TransportErrorIoUringInit,
			"failed to initialize io_uring",
			err,
		)
	}

	return &UringTransport{
		ConnectTimeout: DefaultConnectTimeout,
		iour:           iour,
		fd:             -1,
	}, nil
}

// Connect resolves host and establishes a TCP connection using io_uring
func (t *UringTransport) Connect(ctx context.Context, host string, port uint16) error {
	if t.fd >= 0 {
		return httperrors.NewTransportError(
			httperrors.TransportErrorSocketConnectFailure,
			"already connected",
			nil,
		)
	}

	ips, err := resolveIPs(ctx, t.Resolver, host, t.ConnectTimeout)
	if err != nil {
		return err
	}

	var lastErr error
	for _, ip := range ips {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		fd, sa, err := newStreamSocket(ip, port, true)
		if err != nil {
			return err
		}

		if err := setNoDelay(fd); err != nil {
			syscall.Close(fd)
			return err
		}

		prep, err := iouring.Connect(fd, sa)
		if err != nil {
			syscall.Close(fd)
			return httperrors.NewTransportError(
				httperrors.TransportErrorSocketCreateFailure,
				"unsupported socket address",
				err,
			)
		}

		// Submit connect operation via io_uring
		ch := make(chan iouring.Result, 1)
		if _, err := t.iour.SubmitRequest(prep, ch); err != nil {
			syscall.Close(fd)
			return httperrors.NewTransportError(
				httperrors.TransportErrorIoUringSubmit,
				"failed to submit connect request",
				err,
			)
		}

		// Wait for connect to complete
		result := <-ch
		if _, err := result.ReturnInt(); err != nil {
			syscall.Close(fd)
			lastErr = err
			continue
		}

		t.fd = fd
		t.closed = false
		return nil
	}

	return httperrors.NewTransportError(
		httperrors.TransportErrorSocketConnectFailure,
		fmt.Sprintf("failed to connect to %s:%d", host, port),
		lastErr,
	)
}

// Write sends data over the connection using io_uring
func (t *UringTransport) Write(buf []byte) (int, error) {
	if t.fd < 0 {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorSocketWriteFailure,
			"not connected",
			nil,
		)
	}

	if t.closed {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorConnectionClosed,
			"connection closed",
			nil,
		)
	}

	totalWritten := 0
	for totalWritten < len(buf) {
		ch := make(chan iouring.Result, 1)
		if _, err := t.iour.SubmitRequest(iouring.Send(t.fd, buf[totalWritten:], 0), ch); err != nil {
			return totalWritten, httperrors.NewTransportError(
				httperrors.TransportErrorIoUringSubmit,
				"failed to submit write request",
				err,
			)
		}

		result := <-ch
		n, err := result.ReturnInt()
		if err != nil {
			return totalWritten, httperrors.NewTransportError(
				httperrors.TransportErrorSocketWriteFailure,
				"write failed",
				err,
			)
		}

		if n <= 0 {
			return totalWritten, httperrors.NewTransportError(
				httperrors.TransportErrorSocketWriteFailure,
				"short write",
				nil,
			)
		}

		totalWritten += n
	}

	return totalWritten, nil
}

// Read receives data from the connection using io_uring
func (t *UringTransport) Read(buf []byte) (int, error) {
	if t.fd < 0 {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorSocketReadFailure,
			"not connected",
			nil,
		)
	}

	if t.closed {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorConnectionClosed,
			"connection closed",
			nil,
		)
	}

	// The recv is only submitted once data is available so that a timed out
	// read never leaves a request in flight.
	ready, err := waitReadable(t.fd, t.readTimeout)
	if err != nil {
		return 0, err
	}
	if !ready {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorTimeout,
			"read timed out",
			nil,
		)
	}

	ch := make(chan iouring.Result, 1)
	if _, err := t.iour.SubmitRequest(iouring.Recv(t.fd, buf, 0), ch); err != nil {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorIoUringSubmit,
			"failed to submit read request",
			err,
		)
	}

	result := <-ch
	n, err := result.ReturnInt()
	if err != nil {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorSocketReadFailure,
			"read failed",
			err,
		)
	}

	if n == 0 && len(buf) > 0 {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorConnectionClosed,
			"connection closed by peer",
			nil,
		)
	}

	return n, nil
}

// SetReadTimeout sets the timeout applied to each Read call
func (t *UringTransport) SetReadTimeout(d time.Duration) error {
	t.readTimeout = d
	return nil
}

// Close closes the connection
func (t *UringTransport) Close() error {
	if t.fd < 0 {
		return nil // Already closed or never connected
	}

	if !t.closed {
		t.closed = true
		fd := t.fd
		t.fd = -1
		if err := syscall.Close(fd); err != nil {
			return httperrors.NewTransportError(
				httperrors.TransportErrorSocketCloseFailure,
				"failed to close socket",
				err,
			)
		}
	}

	return nil
}

// Destroy cleans up resources including the io_uring instance
func (t *UringTransport) Destroy() {
	t.Close()
	if t.iour != nil {
		t.iour.Close()
		t.iour = nil
	}
}
