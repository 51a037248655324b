// Package headers provides an ordered, case-insensitive header multimap
// shared by batch rendering and response decoding.
package headers

import (
	"strings"
)

// Headers maps a case-insensitive header name to an ordered sequence of
// values. Insertion order of names is preserved, as is the first-seen
// spelling of each name, so rendered output is deterministic.
type Headers struct {
	names  []string            // first-seen spelling, insertion order
	values map[string][]string // lowercase name -> values
}

// New creates an empty Headers.
func New() *Headers {
	return &Headers{values: make(map[string][]string)}
}

// Pairs creates Headers from alternating name/value arguments.
// It panics on an odd number of arguments.
func Pairs(nv ...string) *Headers {
	if len(nv)%2 != 0 {
		panic("headers: Pairs requires an even number of arguments")
	}
	h := New()
	for i := 0; i < len(nv); i += 2 {
		h.Add(nv[i], nv[i+1])
	}
	return h
}

// Add appends a value to the sequence stored under name.
func (h *Headers) Add(name, value string) {
	key := strings.ToLower(name)
	if _, ok := h.values[key]; !ok {
		h.names = append(h.names, name)
	}
	h.values[key] = append(h.values[key], value)
}

// Set replaces all values stored under name with a single value.
func (h *Headers) Set(name, value string) {
	key := strings.ToLower(name)
	if _, ok := h.values[key]; !ok {
		h.names = append(h.names, name)
	}
	h.values[key] = []string{value}
}

// Get returns the first value stored under name.
func (h *Headers) Get(name string) (string, bool) {
	if h == nil {
		return "", false
	}
	vs := h.values[strings.ToLower(name)]
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// Values returns all values stored under name in insertion order.
func (h *Headers) Values(name string) []string {
	if h == nil {
		return nil
	}
	return h.values[strings.ToLower(name)]
}

// Has reports whether any value is stored under name.
func (h *Headers) Has(name string) bool {
	if h == nil {
		return false
	}
	return len(h.values[strings.ToLower(name)]) > 0
}

// Names returns the header names in insertion order, first-seen spelling.
func (h *Headers) Names() []string {
	if h == nil {
		return nil
	}
	out := make([]string, len(h.names))
	copy(out, h.names)
	return out
}

// Len returns the number of distinct header names.
func (h *Headers) Len() int {
	if h == nil {
		return 0
	}
	return len(h.names)
}

// Clone returns an independent copy.
func (h *Headers) Clone() *Headers {
	out := New()
	if h == nil {
		return out
	}
	out.names = append(out.names, h.names...)
	for key, vs := range h.values {
		out.values[key] = append([]string(nil), vs...)
	}
	return out
}

// Merge returns a new Headers combining h and other. Values under the same
// name are appended (set union: duplicates already present are skipped), so
// other's entries win by extension rather than replacement. Neither receiver
// nor argument is mutated.
func (h *Headers) Merge(other *Headers) *Headers {
	out := h.Clone()
	if other == nil {
		return out
	}
	for _, name := range other.names {
		for _, v := range other.values[strings.ToLower(name)] {
			if !contains(out.Values(name), v) {
				out.Add(name, v)
			}
		}
	}
	return out
}

// Write renders each header as "Name: value" followed by CRLF, one line per
// value, in insertion order.
func (h *Headers) Write(sb *strings.Builder) {
	if h == nil {
		return
	}
	for _, name := range h.names {
		for _, v := range h.values[strings.ToLower(name)] {
			sb.WriteString(name)
			sb.WriteString(": ")
			sb.WriteString(v)
			sb.WriteString("\r\n")
		}
	}
}

// String renders the headers as CRLF-terminated lines.
func (h *Headers) String() string {
	var sb strings.Builder
	h.Write(&sb)
	return sb.String()
}

func contains(vs []string, v string) bool {
	for _, x := range vs {
		if x == v {
			return true
		}
	}
	return false
}
