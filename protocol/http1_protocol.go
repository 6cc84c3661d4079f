package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ashep/esp-lib/errors"
	"github.com/ashep/esp-lib/transport"
)

// Options tunes how a response is read and parsed.
type Options struct {
	ReadTimeout      time.Duration
	ChunkSize        int
	MaxResponseBytes int
	MaxLineBytes     int
	Partial          PartialPolicy
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		ReadTimeout:      DefaultReadTimeout,
		ChunkSize:        DefaultChunkSize,
		MaxResponseBytes: DefaultMaxResponseBytes,
		MaxLineBytes:     DefaultMaxLineBytes,
		Partial:          PartialAccept,
	}
}

// Option configures an Http1Protocol.
type Option func(*Http1Protocol)

// WithOptions replaces the read and parse options.
func WithOptions(o Options) Option {
	return func(p *Http1Protocol) { p.opts = o }
}

// WithLogger sets the logger used for request and response tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Http1Protocol) { p.logger = l }
}

// Http1Protocol implements HTTP/1.0 over a transport: one request and one
// response per connection.
type Http1Protocol struct {
	transport transport.Transport
	opts      Options
	logger    zerolog.Logger
}

// NewHttp1Protocol creates a new HTTP/1.0 protocol handler
func NewHttp1Protocol(t transport.Transport, opts ...Option) *Http1Protocol {
	p := &Http1Protocol{
		transport: t,
		opts:      DefaultOptions(),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Connect establishes a connection to the specified host and port. ctx
// bounds resolution and connection setup.
func (p *Http1Protocol) Connect(ctx context.Context, host string, port uint16) error {
	return p.transport.Connect(ctx, host, port)
}

// Disconnect closes the connection
func (p *Http1Protocol) Disconnect() error {
	return p.transport.Close()
}

// PerformRequest sends req over the connected transport and reads the
// response until the peer closes it, the message is complete or a read
// times out.
func (p *Http1Protocol) PerformRequest(ctx context.Context, req *HttpRequest) (*HttpResponse, error) {
	buf := req.Serialize()
	p.logger.Debug().
		Str("method", req.Method.String()).
		Str("target", req.Path).
		Int("bytes", len(buf)).
		Msg("sending request")
	p.logger.Trace().Bytes("request", buf).Msg("request payload")

	n, err := p.transport.Write(buf)
	if err != nil {
		return nil, err
	}
	if n != len(buf) {
		return nil, errors.NewTransportError(
			errors.TransportErrorSocketWriteFailure,
			fmt.Sprintf("wrote %d of %d bytes", n, len(buf)),
			nil,
		)
	}

	parser := NewResponseParser()
	parser.MaxLineBytes = p.opts.MaxLineBytes
	parser.SkipBody = req.Method == MethodHead

	reader := &ResponseReader{
		Transport:   p.transport,
		ChunkSize:   p.opts.ChunkSize,
		ReadTimeout: p.opts.ReadTimeout,
		MaxBytes:    p.opts.MaxResponseBytes,
		Partial:     p.opts.Partial,
		OnChunk: func(chunk []byte) (bool, error) {
			if err := parser.Feed(chunk); err != nil {
				return false, err
			}
			return parser.Done(), nil
		},
	}

	raw, err := reader.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	p.logger.Trace().Bytes("response", raw).Msg("response payload")

	resp, err := parser.Finish()
	if err != nil {
		return nil, err
	}

	if parser.Truncated() {
		if p.opts.Partial == PartialFail {
			resp.Free()
			return nil, errors.NewProtocolError(
				errors.ProtocolErrorIncompleteResponse,
				"connection closed before complete response received",
			)
		}
		p.logger.Warn().
			Int64("content_length", resp.ContentLength).
			Int("received", len(resp.Body)).
			Msg("accepting partial response body")
	}

	p.logger.Debug().
		Uint16("status", resp.StatusCode).
		Int64("content_length", resp.ContentLength).
		Int("body_bytes", len(resp.Body)).
		Int("headers", resp.Headers.Len()).
		Msg("response received")

	return resp, nil
}
