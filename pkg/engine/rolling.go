package engine

// estimateSpan fills in AvgLast50 for one account's posts.
//
// The span is ordered by ascending post_number (most recent first). The
// baseline for the post at index i is the mean likes of the window posts
// at indexes i+1..i+window, i.e. the window posts published immediately
// before it, self excluded. A post whose account has fewer than window
// older posts gets no baseline. The window never crosses the span, so
// accounts cannot leak into each other.
//
// In post_number terms: a baseline exists exactly for posts with
// post_number + window <= k, where k is the account's post count. The
// oldest window posts of every account therefore never get a baseline,
// which is the documented cold-start behavior.
func estimateSpan(posts []Post, sp span, window int) {
	n := sp.end - sp.start
	if n <= window {
		return
	}

	// Prefix sums over the span: prefix[j] = sum of likes of the first
	// j posts of the span.
	prefix := make([]float64, n+1)
	for j := 0; j < n; j++ {
		prefix[j+1] = prefix[j] + posts[sp.start+j].Likes
	}

	for i := 0; i+window < n; i++ {
		mean := (prefix[i+1+window] - prefix[i+1]) / float64(window)
		posts[sp.start+i].AvgLast50 = &mean
	}
}
