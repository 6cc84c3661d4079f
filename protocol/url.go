package protocol

import (
	"strconv"
	"strings"

	"github.com/ashep/esp-lib/errors"
)

// DefaultPort is used when the URL carries no port.
const DefaultPort uint16 = 80

// ParsedUrl holds the components of a request URL. Path and Query are the
// exact substrings of the input; nothing is decoded or normalized.
type ParsedUrl struct {
	Scheme string
	Host   string
	Port   uint16
	Path   string
	Query  string
}

// ParseUrl splits raw into scheme, host, port, path and query.
// Port defaults to 80, path to "/" and query to "".
func ParseUrl(raw string) (*ParsedUrl, error) {
	if raw == "" {
		return nil, errors.NewUrlError(errors.UrlErrorMalformed, "empty URL")
	}
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c <= ' ' || c == 0x7f {
			return nil, errors.NewUrlError(errors.UrlErrorMalformed, "URL contains whitespace or control characters: "+strconv.Quote(raw))
		}
	}

	// A bare path parses fine but a client cannot use it.
	if raw[0] == '/' {
		return nil, errors.NewUrlError(errors.UrlErrorMissingHost, raw)
	}

	sep := strings.Index(raw, "://")
	if sep <= 0 {
		return nil, errors.NewUrlError(errors.UrlErrorMalformed, "missing scheme: "+raw)
	}
	scheme := raw[:sep]
	if !validScheme(scheme) {
		return nil, errors.NewUrlError(errors.UrlErrorMalformed, "invalid scheme: "+raw)
	}

	rest := raw[sep+len("://"):]
	end := strings.IndexAny(rest, "/?#")
	if end < 0 {
		end = len(rest)
	}
	authority, rest := rest[:end], rest[end:]

	u := &ParsedUrl{
		Scheme: scheme,
		Port:   DefaultPort,
		Path:   "/",
	}

	if err := u.parseAuthority(authority, raw); err != nil {
		return nil, err
	}

	if i := strings.IndexByte(rest, '#'); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		u.Query = rest[i+1:]
		rest = rest[:i]
	}
	if rest != "" {
		u.Path = rest
	}

	return u, nil
}

func (u *ParsedUrl) parseAuthority(authority, raw string) error {
	// Skip userinfo
	if i := strings.LastIndexByte(authority, '@'); i >= 0 {
		authority = authority[i+1:]
	}

	host, port := authority, ""
	if strings.HasPrefix(authority, "[") {
		end := strings.IndexByte(authority, ']')
		if end < 0 {
			return errors.NewUrlError(errors.UrlErrorMalformed, "unterminated IPv6 literal: "+raw)
		}
		host = authority[1:end]
		tail := authority[end+1:]
		if tail != "" {
			if tail[0] != ':' {
				return errors.NewUrlError(errors.UrlErrorMalformed, "unexpected characters after IPv6 literal: "+raw)
			}
			port = tail[1:]
			if port == "" {
				return errors.NewUrlError(errors.UrlErrorMalformed, "empty port: "+raw)
			}
		}
	} else if i := strings.LastIndexByte(authority, ':'); i >= 0 {
		host, port = authority[:i], authority[i+1:]
		if port == "" {
			return errors.NewUrlError(errors.UrlErrorMalformed, "empty port: "+raw)
		}
	}

	if host == "" {
		return errors.NewUrlError(errors.UrlErrorMissingHost, raw)
	}
	u.Host = host

	if port != "" {
		p, err := strconv.ParseUint(port, 10, 16)
		if err != nil || p == 0 {
			return errors.NewUrlError(errors.UrlErrorMalformed, "invalid port: "+raw)
		}
		u.Port = uint16(p)
	}

	return nil
}

func validScheme(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}

// RequestTarget returns the path followed by "?query" when a query is set.
func (u *ParsedUrl) RequestTarget() string {
	if u.Query == "" {
		return u.Path
	}
	return u.Path + "?" + u.Query
}
