// Package engine labels social posts as viral or non-viral.
//
// The pipeline is a pure batch transform: normalize raw records, rank each
// account's posts by recency, estimate a per-post engagement baseline from
// the account's own history, compare actual likes against the baseline,
// and cap each account's history. A separate percentile calibrator derives
// engagement cutoffs across whole datasets.
package engine

import (
	"math"
	"time"
)

// Post is one normalized social-media post. Likes, Views, Comments and
// Duration default to 0 when the raw record is missing or malformed; a
// zero PostedAt means the timestamp could not be parsed.
type Post struct {
	AccountID string    `json:"account_id" db:"account_id"`
	PostID    string    `json:"post_id" db:"post_id"`
	URL       string    `json:"url" db:"url"`
	Caption   string    `json:"caption" db:"caption"`
	PostedAt  time.Time `json:"posted_at" db:"posted_at"`
	Likes     float64   `json:"likes" db:"likes"`
	Views     float64   `json:"views" db:"views"`
	Comments  float64   `json:"comments" db:"comments"`
	Duration  float64   `json:"duration" db:"duration"`

	// Set by Label.
	PostNumber int      `json:"post_number" db:"post_number"`
	AvgLast50  *float64 `json:"avg_last_50" db:"avg_last_50"`
	Viral      bool     `json:"viral" db:"viral"`
}

// Config holds the labeling constants.
type Config struct {
	// Window is the number of older sibling posts averaged into a
	// post's engagement baseline.
	Window int
	// Multiplier is the factor a post's likes must exceed its baseline
	// by to be labeled viral.
	Multiplier float64
	// MaxPosts caps each account at its MaxPosts most recent posts
	// after labeling.
	MaxPosts int
	// MinPosts drops accounts with fewer posts before ranking.
	MinPosts int
	// FallbackThreshold labels posts without a baseline by comparing
	// likes against an absolute cutoff, typically one produced by the
	// percentile calibrator. NaN disables the fallback, which leaves
	// baseline-less posts non-viral.
	FallbackThreshold float64
}

// DefaultConfig returns the production labeling constants.
func DefaultConfig() Config {
	return Config{
		Window:            50,
		Multiplier:        1.15,
		MaxPosts:          50,
		MinPosts:          1,
		FallbackThreshold: math.NaN(),
	}
}

// Label runs the full classification pipeline and returns a new labeled
// slice ordered by account and ascending post_number. The input slice is
// not modified.
func Label(posts []Post, cfg Config) []Post {
	if cfg.Window <= 0 {
		cfg.Window = 50
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 1.15
	}
	if len(posts) == 0 {
		return nil
	}

	labeled := filterMinPosts(posts, cfg.MinPosts)
	if len(labeled) == 0 {
		return nil
	}

	labeled, spans := rank(labeled)
	for _, sp := range spans {
		estimateSpan(labeled, sp, cfg.Window)
	}
	labelSpans(labeled, cfg)
	return limit(labeled, spans, cfg.MaxPosts)
}

// filterMinPosts copies the input, dropping every post of an account with
// fewer than min posts. Relative order is preserved.
func filterMinPosts(posts []Post, min int) []Post {
	out := make([]Post, 0, len(posts))
	if min <= 1 {
		return append(out, posts...)
	}
	counts := make(map[string]int, 64)
	for i := range posts {
		counts[posts[i].AccountID]++
	}
	for i := range posts {
		if counts[posts[i].AccountID] >= min {
			out = append(out, posts[i])
		}
	}
	return out
}

// limit keeps each account's posts with post_number 1..max. Spans index
// into the labeled slice, so truncation is a straight copy per span.
func limit(posts []Post, spans []span, max int) []Post {
	if max <= 0 {
		return posts
	}
	out := make([]Post, 0, len(posts))
	for _, sp := range spans {
		end := sp.start + max
		if end > sp.end {
			end = sp.end
		}
		out = append(out, posts[sp.start:end]...)
	}
	return out
}
