package protocol

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ashep/esp-lib/errors"
	"github.com/ashep/esp-lib/transport"
)

const (
	// DefaultReadTimeout is applied to every read call.
	DefaultReadTimeout = 5 * time.Second
	// DefaultChunkSize is the size of a single read.
	DefaultChunkSize = 512
	// DefaultMaxResponseBytes bounds the accumulated response.
	DefaultMaxResponseBytes = 1 << 20
)

// PartialPolicy decides what happens when a response stops short: the read
// times out after some bytes arrived, or the body is shorter than its
// Content-Length.
type PartialPolicy int

const (
	// PartialAccept returns whatever was received as a successful response.
	PartialAccept PartialPolicy = iota
	// PartialFail turns a short response into an error.
	PartialFail
)

func (p PartialPolicy) String() string {
	switch p {
	case PartialAccept:
		return "accept"
	case PartialFail:
		return "fail"
	default:
		return fmt.Sprintf("PartialPolicy(%d)", int(p))
	}
}

// ParsePartialPolicy parses "accept" or "fail".
func ParsePartialPolicy(s string) (PartialPolicy, error) {
	switch strings.ToLower(s) {
	case "", "accept":
		return PartialAccept, nil
	case "fail":
		return PartialFail, nil
	default:
		return 0, errors.NewInvalidArgumentError(fmt.Sprintf("unknown partial response policy %q", s))
	}
}

// ResponseReader accumulates a response off a connected transport until the
// peer closes, a read times out or OnChunk reports the message complete.
type ResponseReader struct {
	Transport transport.Transport
	// ChunkSize is the size of a single read. Zero means DefaultChunkSize.
	ChunkSize int
	// ReadTimeout bounds each read. Zero disables the per-read timeout.
	ReadTimeout time.Duration
	// MaxBytes bounds the accumulated response. Zero means unbounded.
	MaxBytes int
	// Partial decides whether a timeout after some bytes is a success.
	Partial PartialPolicy
	// OnChunk, when set, sees every chunk as it arrives. Returning true
	// stops reading.
	OnChunk func(chunk []byte) (done bool, err error)
}

// ReadAll reads until the response ends and returns every byte received.
// A deadline on ctx bounds the whole read and shortens the per-read timeout
// as it approaches. Cancellation is checked between reads and always fails
// the read, whatever the partial policy.
func (r *ResponseReader) ReadAll(ctx context.Context) (data []byte, err error) {
	chunkSize := r.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var acc bytes.Buffer
	defer func() {
		if rec := recover(); rec != nil {
			if rec != bytes.ErrTooLarge {
				panic(rec)
			}
			data, err = nil, errors.NewMemoryError(errors.MemoryErrorAllocationFailed, "response buffer could not grow")
		}
	}()

	buf := make([]byte, chunkSize)
	for {
		timeout := r.ReadTimeout
		if err := ctx.Err(); err != nil {
			if err == context.Canceled {
				return nil, cancelled(err)
			}
			return r.timedOut(&acc, err)
		}
		if deadline, ok := ctx.Deadline(); ok {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return r.timedOut(&acc, context.DeadlineExceeded)
			}
			if timeout <= 0 || remaining < timeout {
				timeout = remaining
			}
		}
		if err := r.Transport.SetReadTimeout(timeout); err != nil {
			return nil, err
		}

		n, readErr := r.Transport.Read(buf)
		if n > 0 {
			if r.MaxBytes > 0 && acc.Len()+n > r.MaxBytes {
				return nil, errors.NewMemoryError(
					errors.MemoryErrorAllocationFailed,
					fmt.Sprintf("response exceeds %d bytes", r.MaxBytes),
				)
			}
			acc.Write(buf[:n])

			if r.OnChunk != nil {
				done, err := r.OnChunk(buf[:n])
				if err != nil {
					return nil, err
				}
				if done {
					return acc.Bytes(), nil
				}
			}
		}

		if readErr != nil {
			switch {
			case errors.IsTransport(readErr, errors.TransportErrorConnectionClosed):
				return acc.Bytes(), nil
			case errors.IsTransport(readErr, errors.TransportErrorTimeout):
				if err := ctx.Err(); err == context.Canceled {
					return nil, cancelled(err)
				}
				return r.timedOut(&acc, readErr)
			default:
				return nil, readErr
			}
		}
	}
}

func cancelled(cause error) error {
	return errors.NewTransportError(errors.TransportErrorTimeout, "request cancelled", cause)
}

func (r *ResponseReader) timedOut(acc *bytes.Buffer, cause error) ([]byte, error) {
	if acc.Len() == 0 {
		return nil, errors.NewTransportError(errors.TransportErrorTimeout, "no response received", cause)
	}
	if r.Partial == PartialFail {
		return nil, errors.NewTransportError(
			errors.TransportErrorTimeout,
			fmt.Sprintf("timed out after %d bytes", acc.Len()),
			cause,
		)
	}
	return acc.Bytes(), nil
}
