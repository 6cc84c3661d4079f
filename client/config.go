package client

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	httperrors "github.com/ashep/esp-lib/errors"
	"github.com/ashep/esp-lib/protocol"
	"github.com/ashep/esp-lib/transport"
)

// Config is the client configuration.
type Config struct {
	Transport        string        `yaml:"transport"`
	SocketPath       string        `yaml:"socket_path,omitempty"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
	Deadline         time.Duration `yaml:"deadline"`
	ChunkSize        int           `yaml:"chunk_size"`
	MaxResponseBytes int           `yaml:"max_response_bytes"`
	PartialResponse  string        `yaml:"partial_response"`
	Log              LogConfig     `yaml:"log"`
}

// DefaultConfig is the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Transport:        string(transport.KindTcp),
		ReadTimeout:      protocol.DefaultReadTimeout,
		ConnectTimeout:   transport.DefaultConnectTimeout,
		ChunkSize:        protocol.DefaultChunkSize,
		MaxResponseBytes: protocol.DefaultMaxResponseBytes,
		PartialResponse:  protocol.PartialAccept.String(),
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatConsole,
		},
	}
}

// ReadConfig reads and parses configuration. Fields missing from r keep
// their defaults; unknown fields are an error.
func ReadConfig(r io.Reader) (*Config, error) {
	c := DefaultConfig()
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	if err := d.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadConfig opens and reads the configuration file at path. A missing file
// yields the default configuration.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return ReadConfig(f)
}

// Validate checks that every field holds a usable value.
func (c *Config) Validate() error {
	kind, err := transport.ParseKind(c.Transport)
	if err != nil {
		return err
	}
	if kind == transport.KindUnix && c.SocketPath == "" {
		return httperrors.NewInvalidArgumentError("socket_path is required for the unix transport")
	}
	if _, err := protocol.ParsePartialPolicy(c.PartialResponse); err != nil {
		return err
	}
	if _, err := ParseLogFormat(c.Log.Format); err != nil {
		return err
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}

	switch {
	case c.ReadTimeout < 0:
		return httperrors.NewInvalidArgumentError("read_timeout must not be negative")
	case c.ConnectTimeout < 0:
		return httperrors.NewInvalidArgumentError("connect_timeout must not be negative")
	case c.Deadline < 0:
		return httperrors.NewInvalidArgumentError("deadline must not be negative")
	case c.ChunkSize <= 0:
		return httperrors.NewInvalidArgumentError("chunk_size must be positive")
	case c.MaxResponseBytes < 0:
		return httperrors.NewInvalidArgumentError("max_response_bytes must not be negative")
	}
	return nil
}

// protocolOptions converts the read settings of a validated config.
func (c *Config) protocolOptions() protocol.Options {
	partial, _ := protocol.ParsePartialPolicy(c.PartialResponse)
	opts := protocol.DefaultOptions()
	opts.ReadTimeout = c.ReadTimeout
	opts.ChunkSize = c.ChunkSize
	opts.MaxResponseBytes = c.MaxResponseBytes
	opts.Partial = partial
	return opts
}

// transportOptions converts the connection settings of a validated config.
func (c *Config) transportOptions(r transport.Resolver) transport.Options {
	kind, _ := transport.ParseKind(c.Transport)
	return transport.Options{
		Kind:           kind,
		SocketPath:     c.SocketPath,
		ConnectTimeout: c.ConnectTimeout,
		Resolver:       r,
	}
}
