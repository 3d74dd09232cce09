// Package pagination provides the opaque continuation token codec.
//
// The token wraps the store's native continuation key (or a plain offset for
// in-memory sorted result sets) together with a fingerprint of the filter and
// sort shape that produced it. The store's cursor representation never leaks
// past this package.
package pagination

import (
	"encoding/base64"
	"encoding/json"
)

// Page size bounds applied during request normalization.
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// Cursor is a decoded continuation position.
type Cursor struct {
	// Key is the store's native continuation key for indexed queries.
	Key map[string]string `json:"k,omitempty"`

	// Offset is the resume position for result sets sorted in memory.
	Offset int `json:"o,omitempty"`

	// Shape fingerprints the filter/sort combination the cursor belongs to.
	Shape string `json:"s"`
}

// Encode serializes the cursor into an opaque token.
func Encode(c Cursor) string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// Decode parses a caller-supplied token. It never fails: a malformed, stale
// or foreign token degrades to nil, meaning "start from the beginning".
// Tokens may outlive the data that produced them, so leniency here is
// deliberate.
func Decode(token, shape string) *Cursor {
	if token == "" {
		return nil
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil
	}
	if c.Shape != shape {
		return nil
	}
	if len(c.Key) == 0 && c.Offset <= 0 {
		return nil
	}
	return &c
}

// ClampPageSize normalizes a requested page size into the allowed range.
func ClampPageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}
