package protocol

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/ashep/esp-lib/errors"
)

// ParserState is a state of the response parser.
type ParserState int

const (
	StateStatusLine ParserState = iota
	StateHeaderField
	StateHeaderValue
	StateHeadersComplete
	StateBody
	StateMessageComplete
)

func (s ParserState) String() string {
	switch s {
	case StateStatusLine:
		return "StatusLine"
	case StateHeaderField:
		return "HeaderField"
	case StateHeaderValue:
		return "HeaderValue"
	case StateHeadersComplete:
		return "HeadersComplete"
	case StateBody:
		return "Body"
	case StateMessageComplete:
		return "MessageComplete"
	default:
		return fmt.Sprintf("ParserState(%d)", int(s))
	}
}

const (
	// DefaultMaxLineBytes bounds the status line and every header line.
	DefaultMaxLineBytes = 8 << 10

	// Body preallocation is capped so a bogus Content-Length cannot
	// reserve memory that never arrives.
	maxBodyPrealloc = 64 << 10
)

// ResponseParser is a resumable HTTP/1.0 response parser. Input is pushed
// with Feed in chunks of any size; the result does not depend on where the
// chunk boundaries fall. A parser holds the state of a single response and
// must not be shared between requests.
type ResponseParser struct {
	// MaxLineBytes bounds a single status or header line. Zero means
	// DefaultMaxLineBytes.
	MaxLineBytes int
	// SkipBody marks the response as bodiless, as for HEAD requests.
	SkipBody bool

	state     ParserState
	line      []byte
	field     []byte
	value     []byte
	resp      *HttpResponse
	err       error
	finished  bool
	truncated bool
}

// NewResponseParser creates a parser positioned before the status line.
func NewResponseParser() *ResponseParser {
	return &ResponseParser{resp: newHttpResponse()}
}

// State returns the current state.
func (p *ResponseParser) State() ParserState {
	return p.state
}

// Done reports whether the whole message has been consumed. Bytes fed after
// that are ignored.
func (p *ResponseParser) Done() bool {
	return p.state == StateMessageComplete
}

// Truncated reports whether input ended before Content-Length bytes of body
// arrived.
func (p *ResponseParser) Truncated() bool {
	if p.finished {
		return p.truncated
	}
	return p.bodyShort()
}

func (p *ResponseParser) bodyShort() bool {
	return p.state == StateBody && p.resp.ContentLength >= 0 &&
		int64(len(p.resp.Body)) < p.resp.ContentLength
}

func (p *ResponseParser) maxLine() int {
	if p.MaxLineBytes > 0 {
		return p.MaxLineBytes
	}
	return DefaultMaxLineBytes
}

// Feed consumes the next chunk of input. After the first error every call
// returns that error.
func (p *ResponseParser) Feed(chunk []byte) error {
	if p.err != nil {
		return p.err
	}
	if p.finished {
		return errors.NewInvalidArgumentError("parser already finished")
	}

	for len(chunk) > 0 && p.state != StateMessageComplete {
		var n int
		switch p.state {
		case StateStatusLine:
			n, p.err = p.feedStatusLine(chunk)
		case StateHeaderField, StateHeaderValue:
			n, p.err = p.feedHeaders(chunk)
		case StateBody:
			n = p.feedBody(chunk)
		}
		if p.err != nil {
			return p.err
		}
		chunk = chunk[n:]
	}

	return nil
}

func (p *ResponseParser) feedStatusLine(chunk []byte) (int, error) {
	i := bytes.IndexByte(chunk, '\n')
	if i < 0 {
		if len(p.line)+len(chunk) > p.maxLine() {
			return 0, errors.NewProtocolError(errors.ProtocolErrorMessageTooLarge, "status line too long")
		}
		p.line = append(p.line, chunk...)
		return len(chunk), nil
	}

	if len(p.line)+i > p.maxLine() {
		return 0, errors.NewProtocolError(errors.ProtocolErrorMessageTooLarge, "status line too long")
	}
	p.line = append(p.line, chunk[:i]...)

	if err := p.parseStatusLine(bytes.TrimSuffix(p.line, []byte("\r"))); err != nil {
		return 0, err
	}
	p.line = nil
	p.state = StateHeaderField

	return i + 1, nil
}

// parseStatusLine parses "HTTP/<major>.<minor> <code>[ <reason>]".
func (p *ResponseParser) parseStatusLine(line []byte) error {
	invalid := func(reason string) error {
		return errors.NewProtocolError(
			errors.ProtocolErrorInvalidStatusLine,
			fmt.Sprintf("%s: %q", reason, line),
		)
	}

	rest, ok := bytes.CutPrefix(line, []byte("HTTP/"))
	if !ok {
		return invalid("missing HTTP version")
	}

	version, rest, ok := bytes.Cut(rest, []byte(" "))
	if !ok {
		return invalid("missing status code")
	}
	major, minor, ok := bytes.Cut(version, []byte("."))
	if !ok || !isDigits(major) || !isDigits(minor) {
		return invalid("invalid HTTP version")
	}

	code, reason, _ := bytes.Cut(rest, []byte(" "))
	if len(code) != 3 || !isDigits(code) || code[0] == '0' {
		return invalid("invalid status code")
	}
	status, _ := strconv.ParseUint(string(code), 10, 16)

	p.resp.StatusCode = uint16(status)
	p.resp.StatusMessage = string(reason)
	return nil
}

func isDigits(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (p *ResponseParser) feedHeaders(chunk []byte) (int, error) {
	for i, c := range chunk {
		switch {
		case c == '\r':
			// Line endings may be CRLF or bare LF.
		case c == '\n' && p.state == StateHeaderField:
			if len(p.field) > 0 {
				return 0, errors.NewProtocolError(
					errors.ProtocolErrorInvalidHeader,
					fmt.Sprintf("header line without colon: %q", p.field),
				)
			}
			if err := p.headersComplete(); err != nil {
				return 0, err
			}
			return i + 1, nil
		case c == '\n':
			p.commitHeader()
			p.state = StateHeaderField
		case c == ':' && p.state == StateHeaderField:
			if len(bytes.TrimSpace(p.field)) == 0 {
				return 0, errors.NewProtocolError(errors.ProtocolErrorInvalidHeader, "empty header name")
			}
			p.state = StateHeaderValue
		case p.state == StateHeaderField:
			if len(p.field) >= p.maxLine() {
				return 0, errors.NewProtocolError(errors.ProtocolErrorMessageTooLarge, "header name too long")
			}
			p.field = append(p.field, c)
		default:
			if len(p.field)+len(p.value) >= p.maxLine() {
				return 0, errors.NewProtocolError(errors.ProtocolErrorMessageTooLarge, "header line too long")
			}
			p.value = append(p.value, c)
		}
	}
	return len(chunk), nil
}

func (p *ResponseParser) commitHeader() {
	name := strings.TrimSpace(string(p.field))
	value := strings.TrimSpace(string(p.value))
	p.resp.Headers.Set(name, value)
	p.field = p.field[:0]
	p.value = p.value[:0]
}

func (p *ResponseParser) headersComplete() error {
	p.state = StateHeadersComplete
	p.field, p.value = nil, nil

	if v, ok := p.resp.Headers.Get("Content-Length"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return errors.NewProtocolError(
				errors.ProtocolErrorInvalidHeader,
				fmt.Sprintf("invalid Content-Length %q", v),
			)
		}
		p.resp.ContentLength = n
	}

	if p.SkipBody || !statusAllowsBody(p.resp.StatusCode) || p.resp.ContentLength == 0 {
		p.state = StateMessageComplete
		return nil
	}

	if p.resp.ContentLength > 0 {
		p.resp.Body = make([]byte, 0, min(p.resp.ContentLength, maxBodyPrealloc))
	}
	p.state = StateBody
	return nil
}

func statusAllowsBody(code uint16) bool {
	return code >= 200 && code != 204 && code != 304
}

func (p *ResponseParser) feedBody(chunk []byte) int {
	cl := p.resp.ContentLength
	if cl < 0 {
		p.resp.Body = append(p.resp.Body, chunk...)
		return len(chunk)
	}

	need := cl - int64(len(p.resp.Body))
	if int64(len(chunk)) > need {
		chunk = chunk[:need]
	}
	p.resp.Body = append(p.resp.Body, chunk...)
	if int64(len(p.resp.Body)) == cl {
		p.state = StateMessageComplete
	}
	return len(chunk)
}

// Finish signals the end of input and hands over the response. The parser
// keeps no reference to it afterwards.
func (p *ResponseParser) Finish() (*HttpResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	if p.finished {
		return nil, errors.NewInvalidArgumentError("parser already finished")
	}

	switch p.state {
	case StateStatusLine:
		// A status line cut off before its line ending is still usable.
		line := bytes.TrimSuffix(p.line, []byte("\r"))
		if len(line) == 0 {
			p.err = errors.NewProtocolError(errors.ProtocolErrorInvalidStatusLine, "no status line received")
			return nil, p.err
		}
		if err := p.parseStatusLine(line); err != nil {
			p.err = err
			return nil, err
		}
		p.line = nil
	case StateHeaderField, StateHeaderValue:
		p.err = errors.NewProtocolError(errors.ProtocolErrorIncompleteResponse, "response ended inside headers")
		return nil, p.err
	}

	p.truncated = p.bodyShort()
	p.finished = true
	resp := p.resp
	p.resp = nil
	if resp.Body == nil {
		resp.Body = []byte{}
	}
	return resp, nil
}

// ParseResponse parses a complete response held in data.
func ParseResponse(data []byte) (*HttpResponse, error) {
	p := NewResponseParser()
	if err := p.Feed(data); err != nil {
		return nil, err
	}
	return p.Finish()
}
