package client

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ashep/esp-lib/protocol"
	"github.com/ashep/esp-lib/transport"
)

// HttpClient provides a high-level HTTP client API. Every request opens its
// own connection, so a client may be used from many goroutines at once.
type HttpClient struct {
	config   Config
	logger   zerolog.Logger
	resolver transport.Resolver
}

// Option configures an HttpClient.
type Option func(*HttpClient)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *HttpClient) { c.logger = l }
}

// WithResolver replaces the system resolver.
func WithResolver(r transport.Resolver) Option {
	return func(c *HttpClient) { c.resolver = r }
}

// NewHttpClient creates a new HTTP client. A nil config means DefaultConfig.
func NewHttpClient(cfg *Config, opts ...Option) (*HttpClient, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &HttpClient{
		config: *cfg,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns a copy of the client configuration.
func (c *HttpClient) Config() Config {
	return c.config
}

// Get performs a GET request
func (c *HttpClient) Get(ctx context.Context, url string, headers *protocol.Headers) (*protocol.HttpResponse, error) {
	return c.Request(ctx, protocol.MethodGet, url, headers, nil)
}

// Head performs a HEAD request; the response never has a body.
func (c *HttpClient) Head(ctx context.Context, url string, headers *protocol.Headers) (*protocol.HttpResponse, error) {
	return c.Request(ctx, protocol.MethodHead, url, headers, nil)
}

// Post performs a POST request
func (c *HttpClient) Post(ctx context.Context, url string, headers *protocol.Headers, body []byte) (*protocol.HttpResponse, error) {
	return c.Request(ctx, protocol.MethodPost, url, headers, body)
}

// Request parses url, sends one request over a fresh connection and reads
// the response until the server closes the connection, the message is
// complete or a read times out. The connection is closed before Request
// returns. Release the response with FreeResponse.
func (c *HttpClient) Request(ctx context.Context, method protocol.HttpMethod, url string, headers *protocol.Headers, body []byte) (*protocol.HttpResponse, error) {
	log := c.logger.With().Str("request_id", uuid.NewString()).Logger()

	resp, err := c.do(ctx, log, method, url, headers, body)
	if err != nil {
		log.Error().Err(err).Str("method", method.String()).Str("url", url).Msg("request failed")
		return nil, err
	}
	return resp, nil
}

func (c *HttpClient) do(ctx context.Context, log zerolog.Logger, method protocol.HttpMethod, url string, headers *protocol.Headers, body []byte) (*protocol.HttpResponse, error) {
	u, err := protocol.ParseUrl(url)
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("host", u.Host).
		Uint16("port", u.Port).
		Str("path", u.Path).
		Str("query", u.Query).
		Msg("parsed url")

	if c.config.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.Deadline)
		defer cancel()
	}

	trans, err := transport.New(c.config.transportOptions(c.resolver))
	if err != nil {
		return nil, err
	}
	proto := protocol.NewHttp1Protocol(trans,
		protocol.WithOptions(c.config.protocolOptions()),
		protocol.WithLogger(log),
	)

	if err := proto.Connect(ctx, u.Host, u.Port); err != nil {
		transport.Release(trans)
		return nil, err
	}
	defer func() {
		if err := transport.Release(trans); err != nil {
			log.Warn().Err(err).Msg("failed to close connection")
		}
	}()
	log.Debug().Str("transport", c.config.Transport).Msg("connected")

	return proto.PerformRequest(ctx, &protocol.HttpRequest{
		Method:  method,
		Path:    u.Path,
		Query:   u.Query,
		Host:    u.Host,
		Headers: headers,
		Body:    body,
	})
}

// FreeResponse releases resp. It accepts nil and may be called more than
// once.
func FreeResponse(resp *protocol.HttpResponse) {
	resp.Free()
}
