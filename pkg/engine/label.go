package engine

import "math"

// labelSpans assigns the viral flag to every post in place.
//
// A post with a baseline is viral when its likes exceed baseline times
// the multiplier. A post without a baseline is non-viral unless a
// fallback threshold is configured, in which case it is viral when its
// likes reach the threshold. The no-baseline-means-non-viral rule is the
// original behavior; the fallback is the explicit merge of the rolling
// and percentile strategies and is off by default.
func labelSpans(posts []Post, cfg Config) {
	useFallback := !math.IsNaN(cfg.FallbackThreshold)
	for i := range posts {
		switch {
		case posts[i].AvgLast50 != nil:
			posts[i].Viral = posts[i].Likes > *posts[i].AvgLast50*cfg.Multiplier
		case useFallback:
			posts[i].Viral = posts[i].Likes >= cfg.FallbackThreshold
		default:
			posts[i].Viral = false
		}
	}
}
