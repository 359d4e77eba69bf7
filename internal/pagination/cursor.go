// Package pagination implements keyset pagination over (created_at, id).
package pagination

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

var ErrInvalidCursor = errors.New("invalid cursor format")

// Cursor marks the last row of a page. The next page starts strictly after it
// in (created_at DESC, id DESC) order.
type Cursor struct {
	ID        string
	CreatedAt time.Time
}

// Page is one page of results.
type Page[T any] struct {
	Items      []T
	NextCursor string
	HasMore    bool
}

// EncodeCursor returns an opaque, URL-safe cursor.
func EncodeCursor(id string, createdAt time.Time) string {
	if id == "" {
		return ""
	}
	raw := createdAt.UTC().Format(time.RFC3339Nano) + "|" + id
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a cursor. An empty cursor means the first page and yields nil.
func DecodeCursor(cursor string) (*Cursor, error) {
	if cursor == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	ts, id, ok := strings.Cut(string(decoded), "|")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}

	createdAt, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, ErrInvalidCursor
	}

	return &Cursor{ID: id, CreatedAt: createdAt}, nil
}

// NormalizeLimit maps non-positive or oversized limits to DefaultLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 || limit > MaxLimit {
		return DefaultLimit
	}
	return limit
}

// NewPage builds a page from rows fetched with LIMIT limit+1. The extra row only
// signals that another page exists and is dropped.
func NewPage[T any](rows []T, limit int, id func(T) string, createdAt func(T) time.Time) Page[T] {
	if len(rows) <= limit {
		return Page[T]{Items: rows}
	}

	items := rows[:limit]
	last := items[len(items)-1]
	return Page[T]{
		Items:      items,
		NextCursor: EncodeCursor(id(last), createdAt(last)),
		HasMore:    true,
	}
}
