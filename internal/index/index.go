package index

import (
	"slices"
	"strings"
)

// Header is a single recorded header line. Names keep the casing they were
// captured with.
type Header struct {
	Name  string
	Value string
}

// StoredResponse is one captured HTTP response, as served back on replay.
type StoredResponse struct {
	URI        string
	StatusCode int
	Headers    []Header
	Body       []byte
}

// HeaderValues returns every value recorded for the given header name,
// matched case-insensitively, in recorded order.
func (r StoredResponse) HeaderValues(name string) []string {
	var values []string
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			values = append(values, h.Value)
		}
	}
	return values
}

// Index maps exact request URIs to the response captured for them.
//
// An Index is never modified once built, so it can be shared between any
// number of goroutines without synchronization.
type Index struct {
	entries       map[string]StoredResponse
	totalBodySize int64
}

// Lookup returns the response stored for uri. Matching is exact: no scheme,
// host, query or trailing slash normalization is applied.
func (i *Index) Lookup(uri string) (StoredResponse, bool) {
	if i == nil {
		return StoredResponse{}, false
	}
	resp, ok := i.entries[uri]
	return resp, ok
}

func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.entries)
}

// URIs returns all indexed URIs, sorted.
func (i *Index) URIs() []string {
	if i == nil {
		return nil
	}

	uris := make([]string, 0, len(i.entries))
	for uri := range i.entries {
		uris = append(uris, uri)
	}
	slices.Sort(uris)
	return uris
}

func (i *Index) TotalBodySize() int64 {
	if i == nil {
		return 0
	}
	return i.totalBodySize
}

// Builder accumulates responses before freezing them into an Index.
type Builder struct {
	entries map[string]StoredResponse
}

func NewBuilder() *Builder {
	return &Builder{entries: make(map[string]StoredResponse)}
}

// Put stores resp under resp.URI, replacing any earlier response for that URI.
// It reports whether an earlier response was replaced.
func (b *Builder) Put(resp StoredResponse) bool {
	_, replaced := b.entries[resp.URI]
	b.entries[resp.URI] = resp
	return replaced
}

func (b *Builder) Len() int {
	return len(b.entries)
}

// Build returns the Index holding every response put so far. The builder must
// not be used afterwards.
func (b *Builder) Build() *Index {
	idx := &Index{entries: b.entries}
	for _, resp := range b.entries {
		idx.totalBodySize += int64(len(resp.Body))
	}
	b.entries = nil
	return idx
}
