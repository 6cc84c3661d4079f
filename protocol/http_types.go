package protocol

import (
	"strings"

	"github.com/ashep/esp-lib/errors"
)

const (
	// HttpVersion is the only protocol version spoken by the client.
	HttpVersion = "HTTP/1.0"
	// UserAgent is sent with every request.
	UserAgent = "aespl/1.0"
)

// HttpMethod represents HTTP request methods
type HttpMethod int

const (
	MethodGet HttpMethod = iota
	MethodHead
	MethodPost
	MethodPut
	MethodDelete
	MethodPatch
	MethodOptions
)

var methodNames = [...]string{
	MethodGet:     "GET",
	MethodHead:    "HEAD",
	MethodPost:    "POST",
	MethodPut:     "PUT",
	MethodDelete:  "DELETE",
	MethodPatch:   "PATCH",
	MethodOptions: "OPTIONS",
}

func (m HttpMethod) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return "UNKNOWN"
	}
	return methodNames[m]
}

// ParseMethod returns the method named by s, case-insensitively.
func ParseMethod(s string) (HttpMethod, error) {
	for m, name := range methodNames {
		if strings.EqualFold(s, name) {
			return HttpMethod(m), nil
		}
	}
	return 0, errors.NewInvalidArgumentError("unsupported HTTP method " + s)
}

// HttpHeader represents an HTTP header key-value pair
type HttpHeader struct {
	Key   string
	Value string
}

// HttpRequest represents an HTTP request
type HttpRequest struct {
	Method  HttpMethod
	Path    string
	Query   string
	Host    string
	Headers *Headers
	Body    []byte
}

// HttpResponse represents a parsed HTTP response. Headers and Body are owned
// by the response; Free releases them.
type HttpResponse struct {
	StatusCode    uint16
	StatusMessage string
	// ContentLength is -1 when the response carried no Content-Length.
	ContentLength int64
	Headers       *Headers
	Body          []byte
}

func newHttpResponse() *HttpResponse {
	return &HttpResponse{
		ContentLength: -1,
		Headers:       NewHeaders(),
	}
}

// Free releases the headers and body held by the response. It is safe to
// call on a nil response and more than once.
func (r *HttpResponse) Free() {
	if r == nil {
		return
	}
	if r.Headers != nil {
		r.Headers.Reset()
		r.Headers = nil
	}
	r.Body = nil
}
