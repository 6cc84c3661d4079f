package protocol

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ashep/esp-lib/errors"
)

var responseCmp = cmp.Options{
	cmp.AllowUnexported(Headers{}),
	cmpopts.EquateEmpty(),
}

func feedChunks(t *testing.T, chunks ...[]byte) (*HttpResponse, *ResponseParser, error) {
	t.Helper()

	p := NewResponseParser()
	for _, c := range chunks {
		if err := p.Feed(c); err != nil {
			return nil, p, err
		}
	}
	resp, err := p.Finish()
	return resp, p, err
}

func TestResponseParser_Scenario(t *testing.T) {
	resp, err := ParseResponse([]byte("HTTP/1.0 200 OK\r\nContent-Length: 5\r\n\r\nhello"))
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Errorf("Expected status code 200, got %d", resp.StatusCode)
	}
	if resp.StatusMessage != "OK" {
		t.Errorf("Expected status message OK, got %q", resp.StatusMessage)
	}
	if resp.ContentLength != 5 {
		t.Errorf("Expected content length 5, got %d", resp.ContentLength)
	}
	if string(resp.Body) != "hello" {
		t.Errorf("Expected body %q, got %q", "hello", string(resp.Body))
	}
}

func TestResponseParser_ChunkBoundaryIndependence(t *testing.T) {
	inputs := []string{
		"HTTP/1.0 200 OK\r\nContent-Length: 5\r\nX-A: 1\r\nx-a: 2\r\n\r\nhello",
		"HTTP/1.1 404 Not Found\r\nServer: t\r\n\r\nbody till close\x00with zero",
		"HTTP/1.0 204 No Content\nA: b\n\n",
		"HTTP/1.0 200 OK\r\nContent-Length: 3\r\n\r\nabcdef",
	}

	for _, input := range inputs {
		want, err := ParseResponse([]byte(input))
		if err != nil {
			t.Fatalf("ParseResponse(%q) failed: %v", input, err)
		}

		// Every two-way split.
		for i := 0; i <= len(input); i++ {
			got, _, err := feedChunks(t, []byte(input[:i]), []byte(input[i:]))
			if err != nil {
				t.Fatalf("split at %d failed: %v", i, err)
			}
			if diff := cmp.Diff(want, got, responseCmp); diff != "" {
				t.Fatalf("split at %d mismatch (-want +got):\n%s", i, diff)
			}
		}

		// Byte at a time.
		chunks := make([][]byte, len(input))
		for i := range input {
			chunks[i] = []byte{input[i]}
		}
		got, _, err := feedChunks(t, chunks...)
		if err != nil {
			t.Fatalf("byte-wise feed failed: %v", err)
		}
		if diff := cmp.Diff(want, got, responseCmp); diff != "" {
			t.Fatalf("byte-wise mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestResponseParser_DuplicateHeadersLastWins(t *testing.T) {
	resp, err := ParseResponse([]byte("HTTP/1.0 200 OK\r\nX-Id: 1\r\nContent-Type: a\r\nx-id: 2\r\nX-ID:3\r\n\r\n"))
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}

	if resp.Headers.Len() != 2 {
		t.Fatalf("Expected 2 distinct headers, got %d: %v", resp.Headers.Len(), resp.Headers.All())
	}
	if v := resp.Headers.Value("x-id"); v != "3" {
		t.Errorf("Expected last value 3, got %q", v)
	}
}

func TestResponseParser_EmbeddedZeroBytes(t *testing.T) {
	body := "ab\x00\x00cd\x00"
	input := "HTTP/1.0 200 OK\r\nContent-Length: 7\r\n\r\n" + body
	resp, err := ParseResponse([]byte(input))
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	if len(resp.Body) != len(body) || string(resp.Body) != body {
		t.Errorf("Expected body %q, got %q", body, resp.Body)
	}

	resp, err = ParseResponse([]byte("HTTP/1.0 200 OK\r\n\r\n" + body))
	if err != nil {
		t.Fatalf("ParseResponse without length failed: %v", err)
	}
	if string(resp.Body) != body {
		t.Errorf("Expected body %q, got %q", body, resp.Body)
	}
}

func TestResponseParser_NoContentLength(t *testing.T) {
	resp, err := ParseResponse([]byte("HTTP/1.0 200 OK\r\nServer: x\r\n\r\nuntil close"))
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	if resp.ContentLength != -1 {
		t.Errorf("Expected content length -1, got %d", resp.ContentLength)
	}
	if string(resp.Body) != "until close" {
		t.Errorf("Unexpected body %q", resp.Body)
	}
}

func TestResponseParser_HeaderWhitespace(t *testing.T) {
	resp, err := ParseResponse([]byte("HTTP/1.0 200 OK\r\nX-Pad:   spaced value  \r\nX-Colon: a:b\r\n\r\n"))
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	if v := resp.Headers.Value("X-Pad"); v != "spaced value" {
		t.Errorf("Expected trimmed value, got %q", v)
	}
	if v := resp.Headers.Value("X-Colon"); v != "a:b" {
		t.Errorf("Expected value with colon, got %q", v)
	}
}

func TestResponseParser_StopsAtContentLength(t *testing.T) {
	p := NewResponseParser()
	if err := p.Feed([]byte("HTTP/1.0 200 OK\r\nContent-Length: 2\r\n\r\nok")); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if !p.Done() {
		t.Fatalf("Expected parser to be done, state %v", p.State())
	}
	if err := p.Feed([]byte("trailing garbage")); err != nil {
		t.Fatalf("Feed after completion failed: %v", err)
	}
	resp, err := p.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if string(resp.Body) != "ok" {
		t.Errorf("Expected body ok, got %q", resp.Body)
	}
}

func TestResponseParser_States(t *testing.T) {
	p := NewResponseParser()
	steps := []struct {
		input string
		want  ParserState
	}{
		{"HTTP/1.0 200", StateStatusLine},
		{" OK\r\n", StateHeaderField},
		{"Content-Le", StateHeaderField},
		{"ngth: ", StateHeaderValue},
		{"4\r\n", StateHeaderField},
		{"\r\n", StateBody},
		{"ab", StateBody},
		{"cd", StateMessageComplete},
	}
	for _, s := range steps {
		if err := p.Feed([]byte(s.input)); err != nil {
			t.Fatalf("Feed(%q) failed: %v", s.input, err)
		}
		if p.State() != s.want {
			t.Errorf("After %q: state %v, want %v", s.input, p.State(), s.want)
		}
	}
}

func TestResponseParser_PartialBody(t *testing.T) {
	resp, p, err := feedChunks(t, []byte("HTTP/1.0 200 OK\r\nContent-Length: 10\r\n\r\nabc"))
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if !p.Truncated() {
		t.Error("Expected response to be reported as truncated")
	}
	if string(resp.Body) != "abc" {
		t.Errorf("Expected partial body abc, got %q", resp.Body)
	}
}

func TestResponseParser_StatusLineWithoutTerminator(t *testing.T) {
	resp, err := ParseResponse([]byte("HTTP/1.0 503 Busy"))
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}
	if resp.StatusCode != 503 || resp.StatusMessage != "Busy" {
		t.Errorf("Unexpected status %d %q", resp.StatusCode, resp.StatusMessage)
	}
}

func TestResponseParser_BodilessStatuses(t *testing.T) {
	for _, input := range []string{
		"HTTP/1.0 204 No Content\r\n\r\n",
		"HTTP/1.0 304 Not Modified\r\nContent-Length: 10\r\n\r\n",
	} {
		p := NewResponseParser()
		if err := p.Feed([]byte(input)); err != nil {
			t.Fatalf("Feed(%q) failed: %v", input, err)
		}
		if !p.Done() {
			t.Errorf("Expected %q to complete without a body", input)
		}
	}

	p := NewResponseParser()
	p.SkipBody = true
	if err := p.Feed([]byte("HTTP/1.0 200 OK\r\nContent-Length: 10\r\n\r\n")); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if !p.Done() {
		t.Error("Expected HEAD response to complete without a body")
	}
}

func TestResponseParser_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  errors.ProtocolError
	}{
		{"empty", "", errors.ProtocolErrorInvalidStatusLine},
		{"not http", "SSH-2.0-OpenSSH\r\n\r\n", errors.ProtocolErrorInvalidStatusLine},
		{"no code", "HTTP/1.0\r\n\r\n", errors.ProtocolErrorInvalidStatusLine},
		{"short code", "HTTP/1.0 20 OK\r\n\r\n", errors.ProtocolErrorInvalidStatusLine},
		{"alpha code", "HTTP/1.0 2x0 OK\r\n\r\n", errors.ProtocolErrorInvalidStatusLine},
		{"bad version", "HTTP/one 200 OK\r\n\r\n", errors.ProtocolErrorInvalidStatusLine},
		{"header without colon", "HTTP/1.0 200 OK\r\nbroken\r\n\r\n", errors.ProtocolErrorInvalidHeader},
		{"empty header name", "HTTP/1.0 200 OK\r\n: v\r\n\r\n", errors.ProtocolErrorInvalidHeader},
		{"bad content length", "HTTP/1.0 200 OK\r\nContent-Length: -1\r\n\r\n", errors.ProtocolErrorInvalidHeader},
		{"headers cut off", "HTTP/1.0 200 OK\r\nServer: x", errors.ProtocolErrorIncompleteResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResponse([]byte(tt.input))
			if !errors.IsProtocol(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestResponseParser_LineTooLong(t *testing.T) {
	p := NewResponseParser()
	p.MaxLineBytes = 32
	err := p.Feed([]byte("HTTP/1.0 200 OK\r\nX-Long: " + strings.Repeat("a", 64) + "\r\n\r\n"))
	if !errors.IsProtocol(err, errors.ProtocolErrorMessageTooLarge) {
		t.Errorf("Expected MessageTooLarge, got %v", err)
	}

	// The error sticks.
	if err2 := p.Feed([]byte("more")); err2 != err {
		t.Errorf("Expected sticky error, got %v", err2)
	}
}

func TestResponseParser_IndependentInstances(t *testing.T) {
	a := NewResponseParser()
	b := NewResponseParser()

	a.Feed([]byte("HTTP/1.0 200 OK\r\nX-Who: a"))
	b.Feed([]byte("HTTP/1.0 500 Oops\r\nX-Who: b\r\n\r\nfrom b"))
	a.Feed([]byte("\r\n\r\nfrom a"))

	ra, err := a.Finish()
	if err != nil {
		t.Fatalf("a.Finish failed: %v", err)
	}
	rb, err := b.Finish()
	if err != nil {
		t.Fatalf("b.Finish failed: %v", err)
	}

	if ra.Headers.Value("X-Who") != "a" || string(ra.Body) != "from a" || ra.StatusCode != 200 {
		t.Errorf("Response a was mixed up: %d %v %q", ra.StatusCode, ra.Headers.All(), ra.Body)
	}
	if rb.Headers.Value("X-Who") != "b" || string(rb.Body) != "from b" || rb.StatusCode != 500 {
		t.Errorf("Response b was mixed up: %d %v %q", rb.StatusCode, rb.Headers.All(), rb.Body)
	}
}

func TestResponseParser_FinishTwice(t *testing.T) {
	p := NewResponseParser()
	p.Feed([]byte("HTTP/1.0 200 OK\r\n\r\n"))
	if _, err := p.Finish(); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if _, err := p.Finish(); !errors.IsInvalidArgument(err) {
		t.Errorf("Expected invalid argument on second Finish, got %v", err)
	}
}

func TestHttpResponse_Free(t *testing.T) {
	resp, err := ParseResponse([]byte("HTTP/1.0 200 OK\r\nA: b\r\n\r\nbody"))
	if err != nil {
		t.Fatalf("ParseResponse failed: %v", err)
	}

	resp.Free()
	if resp.Headers != nil || resp.Body != nil {
		t.Error("Free should release headers and body")
	}
	resp.Free()

	var nilResp *HttpResponse
	nilResp.Free()
}
