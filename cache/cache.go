// Package cache provides the shared result cache for agent and tool results.
//
// Values are stored as JSON so the in-memory and Redis backends are
// interchangeable. All operations are best-effort: a failed read or write
// degrades to a cache miss and never fails the caller.
package cache

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
)

// Store is a key-based, time-bounded result store.
type Store interface {
	// Get returns the raw value for key, or false if the key was never
	// written or its TTL elapsed.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set overwrites the value unconditionally and resets the TTL window.
	Set(ctx context.Context, key string, value []byte)
}

// GetJSON reads and unmarshals a typed value. A missing key, an expired
// entry, or a decode failure all report a miss.
func GetJSON[T any](ctx context.Context, s Store, key string) (*T, bool) {
	raw, ok := s.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var val T
	if err := json.Unmarshal(raw, &val); err != nil {
		return nil, false
	}
	return &val, true
}

// SetJSON marshals and stores a typed value. Marshal failures are dropped;
// the next Get simply misses.
func SetJSON[T any](ctx context.Context, s Store, key string, val *T) {
	raw, err := json.Marshal(val)
	if err != nil {
		return
	}
	s.Set(ctx, key, raw)
}

// GenerateKey derives a deterministic cache key from a unit-scoped prefix and
// a canonical rendering of the arguments: names sorted, values rendered as
// JSON (which itself sorts map keys). Identical logical requests always
// collide; distinct requests never do.
func GenerateKey(prefix string, args map[string]any) string {
	if len(args) == 0 {
		return prefix
	}

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(prefix)
	for _, name := range names {
		b.WriteByte(':')
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(canonicalValue(args[name]))
	}
	return b.String()
}

func canonicalValue(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		// Unmarshalable values (channels, funcs) have no canonical form;
		// an empty token keeps the key deterministic for the same input.
		return ""
	}
	return string(raw)
}
