package protocol

import (
	"strings"
)

// Headers is an ordered header collection with case-insensitive names.
// Setting a name that is already present replaces its value in place.
type Headers struct {
	entries []HttpHeader
	index   map[string]int
}

// NewHeaders creates an empty collection.
func NewHeaders() *Headers {
	return &Headers{index: make(map[string]int)}
}

// HeadersOf builds a collection from name/value pairs.
func HeadersOf(pairs ...HttpHeader) *Headers {
	h := NewHeaders()
	for _, p := range pairs {
		h.Set(p.Key, p.Value)
	}
	return h
}

func headerKey(name string) string {
	return strings.ToLower(name)
}

// Set inserts name or, if present, overwrites its value. The last write wins.
func (h *Headers) Set(name, value string) {
	if h.index == nil {
		h.index = make(map[string]int)
	}
	key := headerKey(name)
	if i, ok := h.index[key]; ok {
		h.entries[i] = HttpHeader{Key: name, Value: value}
		return
	}
	h.index[key] = len(h.entries)
	h.entries = append(h.entries, HttpHeader{Key: name, Value: value})
}

// Get returns the value stored for name.
func (h *Headers) Get(name string) (string, bool) {
	if h == nil {
		return "", false
	}
	i, ok := h.index[headerKey(name)]
	if !ok {
		return "", false
	}
	return h.entries[i].Value, true
}

// Value returns the value stored for name or an empty string.
func (h *Headers) Value(name string) string {
	v, _ := h.Get(name)
	return v
}

// Del removes name from the collection.
func (h *Headers) Del(name string) {
	if h == nil {
		return
	}
	key := headerKey(name)
	i, ok := h.index[key]
	if !ok {
		return
	}
	h.entries = append(h.entries[:i], h.entries[i+1:]...)
	delete(h.index, key)
	for k, j := range h.index {
		if j > i {
			h.index[k] = j - 1
		}
	}
}

// Len returns the number of distinct names.
func (h *Headers) Len() int {
	if h == nil {
		return 0
	}
	return len(h.entries)
}

// All returns a copy of the entries in insertion order.
func (h *Headers) All() []HttpHeader {
	if h == nil {
		return nil
	}
	out := make([]HttpHeader, len(h.entries))
	copy(out, h.entries)
	return out
}

// Reset drops every entry.
func (h *Headers) Reset() {
	if h == nil {
		return
	}
	h.entries = nil
	h.index = make(map[string]int)
}

// WireLen is the number of bytes AppendWire adds.
func (h *Headers) WireLen() int {
	if h == nil {
		return 0
	}
	n := 0
	for _, e := range h.entries {
		n += len(e.Key) + len(": ") + len(e.Value) + len("\r\n")
	}
	return n
}

// AppendWire appends every entry as "Name: Value\r\n". Values are written
// verbatim; nothing is escaped or validated.
func (h *Headers) AppendWire(dst []byte) []byte {
	if h == nil {
		return dst
	}
	for _, e := range h.entries {
		dst = append(dst, e.Key...)
		dst = append(dst, ": "...)
		dst = append(dst, e.Value...)
		dst = append(dst, "\r\n"...)
	}
	return dst
}
