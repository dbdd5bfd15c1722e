package domain

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// MetadataEntry maps field names to scalar values describing one tracked
// artifact (etag, file_path, file_size, last_modified, ...). The cache treats
// the payload as opaque; only the orchestrator and the packaging tool
// interpret individual fields.
type MetadataEntry map[string]any

// Well-known entry fields written by the packaging tool collaborator.
const (
	FieldETag         = "etag"
	FieldFilePath     = "file_path"
	FieldFileSize     = "file_size"
	FieldLastModified = "last_modified"
)

// Clone returns a shallow copy of the entry. Values are scalars, so a
// shallow copy is a full copy.
func (e MetadataEntry) Clone() MetadataEntry {
	if e == nil {
		return nil
	}
	out := make(MetadataEntry, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// StringField returns the named field rendered as a string, and whether the
// field is present.
func (e MetadataEntry) StringField(name string) (string, bool) {
	v, ok := e[name]
	if !ok {
		return "", false
	}
	return fmt.Sprint(v), true
}

// IntField returns the named field as an int64. JSON decoding yields
// float64 for numbers, so both numeric representations are accepted.
func (e MetadataEntry) IntField(name string) (int64, bool) {
	switch v := e[name].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// Fingerprint computes a stable hash over the entry's fields. Two entries
// with the same fields and values produce the same fingerprint regardless of
// how the values were decoded, which is what the cache-hit check compares.
func (e MetadataEntry) Fingerprint() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := xxhash.New()
	for _, k := range keys {
		_, _ = h.WriteString(k)
		_, _ = h.Write([]byte{'='})
		_, _ = h.WriteString(fmt.Sprint(e[k]))
		_, _ = h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// Snapshot is a point-in-time copy of the full metadata cache: one entry per
// cache key, never partially written.
type Snapshot map[CacheKey]MetadataEntry

// Clone deep-copies the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for k, v := range s {
		out[k] = v.Clone()
	}
	return out
}
