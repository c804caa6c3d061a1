package engine

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeRecordTypicalScrape(t *testing.T) {
	p := NormalizeRecord(map[string]any{
		"account_id": " catsdaily ",
		"post_id":    "C8mtEPSp4b8",
		"url":        "https://www.instagram.com/reel/C8mtEPSp4b8/",
		"caption":    "so fluffy",
		"posted_at":  "2024-06-20T15:04:05Z",
		"likes":      float64(1234),
		"views":      "56789",
		"comments":   42,
		"duration":   "12.5",
	})

	assert.Equal(t, "catsdaily", p.AccountID)
	assert.Equal(t, "C8mtEPSp4b8", p.PostID)
	assert.Equal(t, 1234.0, p.Likes)
	assert.Equal(t, 56789.0, p.Views)
	assert.Equal(t, 42.0, p.Comments)
	assert.Equal(t, 12.5, p.Duration)
	assert.Equal(t, time.Date(2024, 6, 20, 15, 4, 5, 0, time.UTC), p.PostedAt)
}

func TestNormalizeRecordMalformedValuesBecomeDefaults(t *testing.T) {
	p := NormalizeRecord(map[string]any{
		"account_id": "catsdaily",
		"posted_at":  "not a date",
		"likes":      "n/a",
		"views":      nil,
		"comments":   []string{"weird"},
	})

	assert.True(t, p.PostedAt.IsZero())
	assert.Zero(t, p.Likes)
	assert.Zero(t, p.Views)
	assert.Zero(t, p.Comments)
	assert.Zero(t, p.Duration)
}

func TestNormalizeRecordMissingFields(t *testing.T) {
	p := NormalizeRecord(map[string]any{"account_id": "catsdaily"})
	assert.Equal(t, "catsdaily", p.AccountID)
	assert.Empty(t, p.PostID)
	assert.True(t, p.PostedAt.IsZero())
	assert.Zero(t, p.Likes)
}

func TestNormalizeTimestampFormats(t *testing.T) {
	cases := map[string]any{
		"rfc3339":        "2024-06-20T15:04:05Z",
		"space datetime": "2024-06-20 15:04:05",
		"bare date":      "2024-06-20",
		"unix seconds":   float64(1718895845), // 2024-06-20T15:04:05Z
		"unix string":    "1718895845",
	}
	for name, raw := range cases {
		p := NormalizeRecord(map[string]any{"posted_at": raw})
		require.False(t, p.PostedAt.IsZero(), name)
		assert.Equal(t, 2024, p.PostedAt.Year(), name)
		assert.Equal(t, time.June, p.PostedAt.Month(), name)
	}
}

func TestNormalizeStripsTimezoneKeepsWallClock(t *testing.T) {
	// +02:00 offsets are dropped, not converted: the wall clock stays.
	p := NormalizeRecord(map[string]any{"posted_at": "2024-06-20T15:04:05+02:00"})
	assert.Equal(t, time.Date(2024, 6, 20, 15, 4, 5, 0, time.UTC), p.PostedAt)
}

func TestNormalizeJSONNumbers(t *testing.T) {
	var raw map[string]any
	dec := json.NewDecoder(strings.NewReader(`{"account_id":"a","likes":91234567890,"posted_at":1718895845}`))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&raw))

	p := NormalizeRecord(raw)
	assert.Equal(t, 91234567890.0, p.Likes)
	assert.False(t, p.PostedAt.IsZero())
}

func TestNormalizePreservesOrder(t *testing.T) {
	raws := []map[string]any{
		{"account_id": "a", "post_id": "1"},
		{"account_id": "a", "post_id": "2"},
		{"account_id": "b", "post_id": "3"},
	}
	posts := Normalize(raws)
	require.Len(t, posts, 3)
	assert.Equal(t, "1", posts[0].PostID)
	assert.Equal(t, "2", posts[1].PostID)
	assert.Equal(t, "3", posts[2].PostID)
}
