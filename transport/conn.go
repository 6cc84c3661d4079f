package transport

import (
	"errors"
	"io"
	"net"
	"os"
	"time"

	httperrors "github.com/ashep/esp-lib/errors"
)

// writeConn sends buf over conn, classifying failures the same way for
// every net.Conn based transport.
func writeConn(conn net.Conn, buf []byte) (int, error) {
	if conn == nil {
		return 0, httperrors.NewTransportError(httperrors.TransportErrorSocketWriteFailure, "not connected", nil)
	}

	n, err := conn.Write(buf)
	if err != nil {
		// A reset or broken pipe is a failed write, not an orderly close.
		return n, httperrors.NewTransportError(httperrors.TransportErrorSocketWriteFailure, "write failed", err)
	}
	if n < len(buf) {
		return n, httperrors.NewTransportError(httperrors.TransportErrorSocketWriteFailure, "short write", io.ErrShortWrite)
	}

	return n, nil
}

// readConn receives into buf, applying timeout as a per-call read deadline.
func readConn(conn net.Conn, buf []byte, timeout time.Duration) (int, error) {
	if conn == nil {
		return 0, httperrors.NewTransportError(httperrors.TransportErrorSocketReadFailure, "not connected", nil)
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return 0, httperrors.NewTransportError(httperrors.TransportErrorSocketReadFailure, "failed to set read deadline", err)
	}

	n, err := conn.Read(buf)
	if err != nil {
		if isTimeout(err) {
			return n, httperrors.NewTransportError(httperrors.TransportErrorTimeout, "read timed out", err)
		}
		// Only an orderly shutdown ends the response.
		if errors.Is(err, io.EOF) {
			return n, httperrors.NewTransportError(httperrors.TransportErrorConnectionClosed, "connection closed by peer", err)
		}
		return n, httperrors.NewTransportError(httperrors.TransportErrorSocketReadFailure, "read failed", err)
	}
	if n == 0 && len(buf) > 0 {
		return 0, httperrors.NewTransportError(httperrors.TransportErrorConnectionClosed, "connection closed by peer", io.EOF)
	}

	return n, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// closeConn closes conn and reports a close failure as a transport error.
func closeConn(conn net.Conn) error {
	if err := conn.Close(); err != nil {
		return httperrors.NewTransportError(httperrors.TransportErrorSocketCloseFailure, "failed to close socket", err)
	}
	return nil
}
