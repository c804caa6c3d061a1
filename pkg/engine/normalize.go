package engine

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Normalize coerces raw scraped records into typed posts. Coercion is
// deliberately lenient: a counter that is missing or non-numeric becomes
// 0 and an unparsable timestamp becomes the zero time. No value ever
// produces an error.
func Normalize(raws []map[string]any) []Post {
	posts := make([]Post, 0, len(raws))
	for _, raw := range raws {
		posts = append(posts, NormalizeRecord(raw))
	}
	return posts
}

// NormalizeRecord coerces a single raw record keyed by canonical field
// name (account_id, post_id, url, caption, posted_at, likes, views,
// comments, duration).
func NormalizeRecord(raw map[string]any) Post {
	return Post{
		AccountID: toString(raw["account_id"]),
		PostID:    toString(raw["post_id"]),
		URL:       toString(raw["url"]),
		Caption:   toString(raw["caption"]),
		PostedAt:  toTime(raw["posted_at"]),
		Likes:     toFloat(raw["likes"]),
		Views:     toFloat(raw["views"]),
		Comments:  toFloat(raw["comments"]),
		Duration:  toFloat(raw["duration"]),
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	}
	return ""
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f
		}
	}
	return 0
}

// timeLayouts are tried in order for string timestamps. Scraped exports
// mix RFC 3339, bare dates and space-separated datetimes.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

func toTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return naive(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return naive(parsed)
			}
		}
		// Unix seconds, possibly fractional.
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			return fromUnix(secs)
		}
	case float64:
		return fromUnix(t)
	case int:
		return fromUnix(float64(t))
	case int64:
		return fromUnix(float64(t))
	case json.Number:
		if secs, err := t.Float64(); err == nil {
			return fromUnix(secs)
		}
	}
	return time.Time{}
}

// naive strips the zone while keeping the wall clock, matching the
// timezone-naive timestamps the rest of the pipeline compares.
func naive(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func fromUnix(secs float64) time.Time {
	if secs <= 0 {
		return time.Time{}
	}
	return time.Unix(int64(secs), int64((secs-float64(int64(secs)))*1e9)).UTC()
}
