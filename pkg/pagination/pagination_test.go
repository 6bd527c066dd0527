package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	original := Cursor{
		CreatedAt: time.Date(2026, 5, 4, 3, 2, 1, 123456789, time.FixedZone("X", 3600)),
		ID:        uuid.New(),
	}
	decoded, err := ParseCursor(EncodeCursor(original))
	require.NoError(t, err)
	require.NotNil(t, decoded)
	assert.True(t, decoded.CreatedAt.Equal(original.CreatedAt))
	assert.Equal(t, time.UTC, decoded.CreatedAt.Location())
	assert.Equal(t, original.ID, decoded.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	cursor, err := ParseCursor("   ")
	require.NoError(t, err)
	assert.Nil(t, cursor)

	encode := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }
	for _, value := range []string{
		"%%%",
		encode("not json"),
		encode(`{"at":0,"id":"` + uuid.NewString() + `"}`),
		encode(`{"at":1700000000000000000,"id":"nope"}`),
		encode(`{"at":1700000000000000000}`),
	} {
		_, err := ParseCursor(value)
		assert.Error(t, err, value)
	}
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, NormalizeLimit(0))
	assert.Equal(t, DefaultLimit, NormalizeLimit(-3))
	assert.Equal(t, 10, NormalizeLimit(10))
	assert.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	assert.Equal(t, 11, FetchSize(10))
}

func TestSplitPage(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]Cursor, 4)
	for i := range rows {
		rows[i] = Cursor{CreatedAt: base.Add(time.Duration(i) * time.Minute), ID: uuid.New()}
	}
	key := func(c Cursor) Cursor { return c }

	page, next := SplitPage(rows, 3, key)
	require.Len(t, page, 3)
	require.NotNil(t, next)
	assert.Equal(t, rows[2], *next)

	page, next = SplitPage(rows[:3], 3, key)
	assert.Len(t, page, 3)
	assert.Nil(t, next)
}
