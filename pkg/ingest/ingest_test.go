package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeInstagramExport(t *testing.T) {
	raw := map[string]any{
		"ownerUsername": "catsdaily",
		"shortCode":     "C8mtEPSp4b8",
		"url":           "https://www.instagram.com/reel/C8mtEPSp4b8/",
		"caption":       "fluffy",
		"timestamp":     "2024-06-20T15:04:05Z",
		"likesCount":    1234,
		"videoViewCount": 9999,
		"commentsCount": 7,
		"videoDuration": 14.2,
		"hashtags":      []string{"#cat"}, // unknown column, dropped
	}

	got := Canonicalize(raw)
	assert.Equal(t, "catsdaily", got["account_id"])
	assert.Equal(t, "C8mtEPSp4b8", got["post_id"])
	assert.Equal(t, 1234, got["likes"])
	assert.Equal(t, 9999, got["views"])
	assert.Equal(t, 7, got["comments"])
	assert.Equal(t, 14.2, got["duration"])
	assert.NotContains(t, got, "hashtags")
}

func TestCanonicalizeTikTokExport(t *testing.T) {
	got := Canonicalize(map[string]any{
		"author":      "catsdaily",
		"id":          "729",
		"webVideoUrl": "https://www.tiktok.com/@catsdaily/video/729",
		"text":        "meow",
		"createTime":  1718895845,
		"diggCount":   55,
		"playCount":   1000,
	})

	assert.Equal(t, "catsdaily", got["account_id"])
	assert.Equal(t, "729", got["post_id"])
	assert.Equal(t, "meow", got["caption"])
	assert.Equal(t, 1718895845, got["posted_at"])
	assert.Equal(t, 55, got["likes"])
	assert.Equal(t, 1000, got["views"])
}

func TestCanonicalizeSpreadsheetHeaders(t *testing.T) {
	got := Canonicalize(map[string]any{
		"Account":  "brand",
		"Post URL": "https://example.com/p/1",
		"Likes":    "500",
		"Date":     "2024-06-01",
	})

	assert.Equal(t, "brand", got["account_id"])
	assert.Equal(t, "https://example.com/p/1", got["url"])
	assert.Equal(t, "500", got["likes"])
	assert.Equal(t, "2024-06-01", got["posted_at"])
}

func TestFileSourceJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scrape.json")
	payload := `[
		{"ownerUsername":"a","likesCount":10,"timestamp":"2024-06-01T00:00:00Z"},
		{"ownerUsername":"b","likesCount":91234567890,"timestamp":"2024-06-02T00:00:00Z"}
	]`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	src := NewFile(path, "organic")
	assert.Equal(t, SourceFile, src.Name())
	assert.Equal(t, "organic", src.Dataset())

	raws, err := src.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, raws, 2)
	assert.Equal(t, "a", raws[0]["account_id"])
	assert.Equal(t, "b", raws[1]["account_id"])
}

func TestFileSourceCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ads.csv")
	payload := "Account,Likes,Date\nbrand,500,2024-06-01\nbrand,700,2024-06-02\n"
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	raws, err := NewFile(path, "ad").Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, raws, 2)
	assert.Equal(t, "brand", raws[0]["account_id"])
	assert.Equal(t, "500", raws[0]["likes"])
	assert.Equal(t, "2024-06-01", raws[0]["posted_at"])
}

func TestFileSourceUnsupportedExtension(t *testing.T) {
	_, err := NewFile("data.xlsx", "ad").Fetch(context.Background())
	assert.Error(t, err)
}
