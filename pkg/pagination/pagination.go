// Package pagination implements keyset cursors over (created_at, id).
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// Params is a page request as it arrives from a controller or the CLI.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the sort key of the last row already returned.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

type cursorPayload struct {
	At int64     `json:"at"`
	ID uuid.UUID `json:"id"`
}

// NormalizeLimit clamps limit into [1, MaxLimit], using DefaultLimit for zero
// or negative values.
func NormalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// FetchSize is how many rows a query should load for a page of limit rows:
// one extra tells whether another page follows.
func FetchSize(limit int) int {
	return NormalizeLimit(limit) + 1
}

// SplitPage trims rows loaded with FetchSize down to the page and returns the
// cursor of its last row, or nil when rows was the final page.
func SplitPage[T any](rows []T, limit int, key func(T) Cursor) ([]T, *Cursor) {
	limit = NormalizeLimit(limit)
	if len(rows) <= limit {
		return rows, nil
	}
	rows = rows[:limit]
	next := key(rows[limit-1])
	return rows, &next
}

// EncodeCursor renders a cursor as an opaque URL-safe token.
func EncodeCursor(cursor Cursor) string {
	raw, _ := json.Marshal(cursorPayload{At: cursor.CreatedAt.UnixNano(), ID: cursor.ID})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// ParseCursor reverses EncodeCursor. A blank value means the first page.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	var payload cursorPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("invalid cursor payload: %w", err)
	}
	if payload.At <= 0 || payload.ID == uuid.Nil {
		return nil, fmt.Errorf("invalid cursor")
	}
	return &Cursor{CreatedAt: time.Unix(0, payload.At).UTC(), ID: payload.ID}, nil
}
