//go:build linux

package transport

import (
	"context"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/godzie44/go-uring/uring"

	httperrors "github.com/ashep/esp-lib/errors"
)

// UringTransportV2 implements Transport over TCP using godzie44/go-uring
type UringTransportV2 struct {
	// Resolver looks up host names. Defaults to net.DefaultResolver.
	Resolver Resolver
	// ConnectTimeout bounds resolution.
	ConnectTimeout time.Duration

	ring        *uring.Ring
	fd          int
	file        *os.File
	readTimeout time.Duration
}

// NewUringTransportV2 creates a new TCP transport with io_uring (v2 using godzie44/go-uring)
func NewUringTransportV2() (*UringTransportV2, error) {
	// Create io_uring instance with queue depth of 32
	ring, err := uring.New(32)
	if err != nil {
		return nil, httperrors.NewTransportError(
			httperrors.TransportErrorIoUringInit,
			"failed to initialize io_uring",
			err,
		)
	}

	return &UringTransportV2{
		ConnectTimeout: DefaultConnectTimeout,
		ring:           ring,
		fd:             -1,
	}, nil
}

// Connect resolves host and establishes a TCP connection
func (t *UringTransportV2) Connect(ctx context.Context, host string, port uint16) error {
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
		fd, sa, err := newStreamSocket(ip, port, false)
		if err != nil {
			return err
		}

		// Use blocking connect for now
		if err := syscall.Connect(fd, sa); err != nil {
			syscall.Close(fd)
			lastErr = err
			continue
		}

		if err := setNoDelay(fd); err != nil {
			syscall.Close(fd)
			return err
		}

		t.fd = fd
		t.file = os.NewFile(uintptr(fd), "socket")
		return nil
	}

	return httperrors.NewTransportError(
		httperrors.TransportErrorSocketConnectFailure,
		fmt.Sprintf("failed to connect to %s:%d", host, port),
		lastErr,
	)
}

// complete queues one operation through queue, submits it and waits for its
// completion.
func (t *UringTransportV2) complete(queue func() error, op string) (int, error) {
	if err := queue(); err != nil {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorIoUringSubmit,
			fmt.Sprintf("failed to queue %s request", op),
			err,
		)
	}

	if _, err := t.ring.Submit(); err != nil {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorIoUringSubmit,
			fmt.Sprintf("failed to submit %s request", op),
			err,
		)
	}

	cqe, err := t.ring.WaitCQEvents(1)
	if err != nil {
		return 0, err
	}

	if err := cqe.Error(); err != nil {
		t.ring.SeenCQE(cqe)
		return 0, err
	}

	n := int(cqe.Res)
	t.ring.SeenCQE(cqe)
	return n, nil
}

// Write sends data over the connection using io_uring
func (t *UringTransportV2) Write(buf []byte) (int, error) {
	if t.fd < 0 {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorSocketWriteFailure,
			"not connected",
			nil,
		)
	}

	totalWritten := 0
	for totalWritten < len(buf) {
		chunk := buf[totalWritten:]
		n, err := t.complete(func() error {
			return t.ring.QueueSQE(uring.Write(t.file.Fd(), chunk, 0), 0, 0)
		}, "write")
		if err != nil {
			if _, ok := httperrors.As(err); ok {
				return totalWritten, err
			}
			return totalWritten, httperrors.NewTransportError(
				httperrors.TransportErrorSocketWriteFailure,
				"write operation failed",
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
func (t *UringTransportV2) Read(buf []byte) (int, error) {
	if t.fd < 0 {
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorSocketReadFailure,
			"not connected",
			nil,
		)
	}

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

	n, err := t.complete(func() error {
		return t.ring.QueueSQE(uring.Read(t.file.Fd(), buf, 0), 0, 0)
	}, "read")
	if err != nil {
		if _, ok := httperrors.As(err); ok {
			return 0, err
		}
		return 0, httperrors.NewTransportError(
			httperrors.TransportErrorSocketReadFailure,
			"read operation failed",
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
func (t *UringTransportV2) SetReadTimeout(d time.Duration) error {
	t.readTimeout = d
	return nil
}

// Close closes the connection
func (t *UringTransportV2) Close() error {
	if t.fd < 0 {
		return nil
	}

	var err error
	if t.file != nil {
		err = t.file.Close()
		t.file = nil
	}
	t.fd = -1

	if err != nil {
		return httperrors.NewTransportError(
			httperrors.TransportErrorSocketCloseFailure,
			"failed to close socket",
			err,
		)
	}
	return nil
}

// Destroy cleans up resources including the io_uring instance
func (t *UringTransportV2) Destroy() {
	t.Close()
	if t.ring != nil {
		t.ring.Close()
		t.ring = nil
	}
}
