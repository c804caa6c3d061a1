// Package ingest pulls raw post records from scrapers, dataset files and
// feed bridges and hands them to the engine normalizer as canonical
// key/value records.
package ingest

import (
	"context"
	"strings"
)

// SourceType identifies where a batch of records came from.
type SourceType string

const (
	SourceFile  SourceType = "file"
	SourceApify SourceType = "apify"
	SourceFeed  SourceType = "feed"
)

// RawPost is one unvalidated scraped record keyed by canonical field
// name. Values stay untyped; the engine normalizer owns coercion.
type RawPost map[string]any

// Source is the interface every collector implements.
type Source interface {
	Name() SourceType
	// Dataset tags the records for cross-dataset calibration, e.g.
	// "ad" or "organic".
	Dataset() string
	Fetch(ctx context.Context) ([]RawPost, error)
}

// fieldAliases maps the canonical field names to the column names seen
// across scraper exports (Apify Instagram/TikTok actors, ad-level
// spreadsheet exports).
var fieldAliases = map[string][]string{
	"account_id": {"account_id", "username", "ownerUsername", "author.nickname", "author", "Account"},
	"post_id":    {"post_id", "id", "shortCode", "shortcode", "Post ID"},
	"url":        {"url", "webVideoUrl", "postUrl", "Post URL"},
	"caption":    {"caption", "text", "description", "Caption"},
	"posted_at":  {"posted_at", "date", "timestamp", "createTime", "createTimeISO", "Date"},
	"likes":      {"likes", "likesCount", "diggCount", "Likes"},
	"views":      {"views", "videoViewCount", "playCount", "videoPlayCount", "Views"},
	"comments":   {"comments", "commentsCount", "commentCount", "Comments"},
	"duration":   {"duration", "videoDuration", "video.duration", "Duration"},
}

// Canonicalize rewrites a raw record's platform-specific column names to
// the canonical ones the normalizer reads. The first matching alias
// wins; aliases are matched case-sensitively first, then
// case-insensitively. Unknown columns are dropped.
func Canonicalize(raw map[string]any) RawPost {
	lower := make(map[string]any, len(raw))
	for k, v := range raw {
		lower[strings.ToLower(k)] = v
	}

	out := make(RawPost, len(fieldAliases))
	for field, aliases := range fieldAliases {
		for _, alias := range aliases {
			if v, ok := raw[alias]; ok {
				out[field] = v
				break
			}
			if v, ok := lower[strings.ToLower(alias)]; ok {
				out[field] = v
				break
			}
		}
	}
	return out
}

// CanonicalizeAll converts a whole batch, preserving order.
func CanonicalizeAll(raws []map[string]any) []RawPost {
	out := make([]RawPost, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Canonicalize(raw))
	}
	return out
}
