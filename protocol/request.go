package protocol

// RequestLen returns the exact size of the request BuildRequest produces for
// the same arguments.
func RequestLen(method HttpMethod, path, query, host string, headers *Headers, body []byte) int {
	n := len(method.String()) + len(" ") + len(path)
	if query != "" {
		n += len("?") + len(query)
	}
	n += len(" ") + len(HttpVersion) + len("\r\n")
	n += len("Host: ") + len(host) + len("\r\n")
	n += len("User-Agent: ") + len(UserAgent) + len("\r\n")
	n += headers.WireLen()
	n += len("\r\n")
	if carriesBody(method, body) {
		n += len(body)
	}
	return n
}

// BuildRequest serializes an HTTP/1.0 request. The buffer is allocated once
// with its final size. GET requests never carry a body.
func BuildRequest(method HttpMethod, path, query, host string, headers *Headers, body []byte) []byte {
	buf := make([]byte, 0, RequestLen(method, path, query, host, headers, body))

	// Request line
	buf = append(buf, method.String()...)
	buf = append(buf, ' ')
	buf = append(buf, path...)
	if query != "" {
		buf = append(buf, '?')
		buf = append(buf, query...)
	}
	buf = append(buf, ' ')
	buf = append(buf, HttpVersion...)
	buf = append(buf, "\r\n"...)

	// Headers
	buf = append(buf, "Host: "...)
	buf = append(buf, host...)
	buf = append(buf, "\r\n"...)
	buf = append(buf, "User-Agent: "...)
	buf = append(buf, UserAgent...)
	buf = append(buf, "\r\n"...)
	buf = headers.AppendWire(buf)

	// Blank line
	buf = append(buf, "\r\n"...)

	if carriesBody(method, body) {
		buf = append(buf, body...)
	}

	return buf
}

// Serialize is BuildRequest applied to req.
func (req *HttpRequest) Serialize() []byte {
	return BuildRequest(req.Method, req.Path, req.Query, req.Host, req.Headers, req.Body)
}

func carriesBody(method HttpMethod, body []byte) bool {
	return method != MethodGet && len(body) > 0
}
